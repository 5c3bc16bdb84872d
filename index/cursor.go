package index

import (
	"bytes"
	"sort"

	"github.com/rizalta/toysql/pager"
)

// Cursor yields the entries with begin <= key < end in key order by
// following the leaf chain. A nil begin means the smallest key and a nil
// end means no upper bound.
type Cursor struct {
	idx  *Index
	leaf pager.PageID
	pos  int
	end  []byte
	done bool
}

func (idx *Index) NewCursor(begin, end []byte) (*Cursor, error) {
	c := &Cursor{idx: idx, end: end}
	if idx.root == 0 {
		c.done = true
		return c, nil
	}

	// keys are never empty, so a nil begin lands on the leftmost leaf
	leaf, page, err := idx.findLeaf(begin)
	if err != nil {
		return nil, err
	}
	c.leaf = page.ID
	c.pos = sort.Search(len(leaf.keys), func(i int) bool {
		return bytes.Compare(leaf.keys[i], begin) >= 0
	})
	return c, nil
}

// Next returns the next key and its value. A nil key means the cursor is
// exhausted.
func (c *Cursor) Next() ([]byte, uint64, error) {
	for !c.done {
		n, _, err := c.idx.readNode(c.leaf)
		if err != nil {
			return nil, 0, err
		}

		if c.pos >= len(n.keys) {
			if n.next == 0 {
				c.done = true
				break
			}
			c.leaf, c.pos = n.next, 0
			continue
		}

		k := n.keys[c.pos]
		if c.end != nil && bytes.Compare(k, c.end) >= 0 {
			c.done = true
			break
		}
		v := n.values[c.pos]
		c.pos++
		return k, v, nil
	}
	return nil, 0, nil
}
