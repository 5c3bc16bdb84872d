package index

import (
	"bytes"
	"slices"
	"sort"

	"github.com/rizalta/toysql/pager"
)

type InsertMode uint8

const (
	Upsert InsertMode = iota
	InsertOnly
	UpdateOnly
)

// split describes a node that overflowed: sibling holds the upper half and
// separator is the smallest key reachable through it.
type split struct {
	separator []byte
	sibling   pager.PageID
}

func (idx *Index) Insert(key []byte, value uint64, mode InsertMode) error {
	if err := validateKey(key); err != nil {
		return err
	}

	s, err := idx.insert(idx.root, key, value, mode)
	if err != nil || s == nil {
		return err
	}
	return idx.growRoot(s)
}

// growRoot puts a new internal root above the old root and its sibling.
func (idx *Index) growRoot(s *split) error {
	page, err := idx.pager.NewPage()
	if err != nil {
		return err
	}

	root := newInternalNode()
	root.keys = [][]byte{s.separator}
	root.children = []pager.PageID{idx.root, s.sibling}
	if err := idx.writeNode(page, root); err != nil {
		return err
	}

	idx.root = page.ID
	return idx.syncMetaPage()
}

func (idx *Index) insert(id pager.PageID, key []byte, value uint64, mode InsertMode) (*split, error) {
	n, page, err := idx.readNode(id)
	if err != nil {
		return nil, err
	}

	if n.nodeType == NodeTypeLeaf {
		i, found := slices.BinarySearchFunc(n.keys, key, bytes.Compare)
		switch {
		case found && mode == InsertOnly:
			return nil, ErrKeyAlreadyExists
		case found:
			n.values[i] = value
			return nil, idx.writeNode(page, n)
		case mode == UpdateOnly:
			return nil, ErrKeyNotFound
		}

		n.keys = slices.Insert(n.keys, i, bytes.Clone(key))
		n.values = slices.Insert(n.values, i, value)
		return idx.save(page, n)
	}

	child := sort.Search(len(n.keys), func(j int) bool {
		return bytes.Compare(n.keys[j], key) > 0
	})
	s, err := idx.insert(n.children[child], key, value, mode)
	if err != nil || s == nil {
		return nil, err
	}

	n.keys = slices.Insert(n.keys, child, s.separator)
	n.children = slices.Insert(n.children, child+1, s.sibling)
	return idx.save(page, n)
}

// save writes n back, splitting it first when it no longer fits a page.
func (idx *Index) save(page *pager.Page, n *node) (*split, error) {
	if n.calculateSize() > splitThreshold {
		return idx.splitNode(page, n)
	}
	return nil, idx.writeNode(page, n)
}

// splitPoint is the first key at which the running entry size reaches half
// of the node, clamped so both halves keep a key.
func (n *node) splitPoint() int {
	total := 0
	for i := range n.keys {
		total += n.entrySize(i)
	}

	mid, acc := 0, 0
	for i := range n.keys {
		acc += n.entrySize(i)
		if 2*acc >= total {
			mid = i
			break
		}
	}
	return max(1, min(mid, len(n.keys)-1))
}

func (idx *Index) splitNode(page *pager.Page, n *node) (*split, error) {
	siblingPage, err := idx.pager.NewPage()
	if err != nil {
		return nil, err
	}

	mid := n.splitPoint()
	var sibling *node
	var separator []byte

	if n.nodeType == NodeTypeLeaf {
		sibling = newLeafNode()
		sibling.keys = slices.Clone(n.keys[mid:])
		sibling.values = slices.Clone(n.values[mid:])
		sibling.next, n.next = n.next, siblingPage.ID
		n.keys, n.values = n.keys[:mid], n.values[:mid]
		separator = sibling.keys[0]
	} else {
		// the middle key moves up and lives in neither half
		sibling = newInternalNode()
		sibling.keys = slices.Clone(n.keys[mid+1:])
		sibling.children = slices.Clone(n.children[mid+1:])
		separator = n.keys[mid]
		n.keys, n.children = n.keys[:mid], n.children[:mid+1]
	}

	if err := idx.writeNode(page, n); err != nil {
		return nil, err
	}
	if err := idx.writeNode(siblingPage, sibling); err != nil {
		return nil, err
	}
	return &split{separator: bytes.Clone(separator), sibling: siblingPage.ID}, nil
}
