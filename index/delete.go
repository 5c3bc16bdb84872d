package index

import (
	"bytes"
	"sort"
)

// Delete removes key from its leaf. Leaves are allowed to underflow and
// internal separators are left in place; they still route searches correctly.
func (idx *Index) Delete(key []byte) error {
	if idx.root == 0 {
		return ErrKeyNotFound
	}
	if err := validateKey(key); err != nil {
		return err
	}

	n, page, err := idx.findLeaf(key)
	if err != nil {
		return err
	}

	i := sort.Search(len(n.keys), func(j int) bool {
		return bytes.Compare(n.keys[j], key) >= 0
	})
	if i >= len(n.keys) || !bytes.Equal(n.keys[i], key) {
		return ErrKeyNotFound
	}

	n.keys = append(n.keys[:i], n.keys[i+1:]...)
	n.values = append(n.values[:i], n.values[i+1:]...)

	return idx.writeNode(page, n)
}
