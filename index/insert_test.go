package index

import (
	"bytes"
	"errors"
	"math/rand"
	"testing"

	"github.com/rizalta/toysql/pager"
)

func checkNode(t *testing.T, idx *Index, pageID pager.PageID, min, max []byte) {
	t.Helper()

	n, _, err := idx.readNode(pageID)
	if err != nil {
		t.Fatalf("failed to read node %d: %v", pageID, err)
	}

	for i := 1; i < len(n.keys); i++ {
		if bytes.Compare(n.keys[i-1], n.keys[i]) >= 0 {
			t.Fatalf("keys not sorted in node %d: %q", pageID, n.keys)
		}
	}

	if n.calculateSize() > pager.PageSize {
		t.Fatalf("node %d overflows page: %d bytes", pageID, n.calculateSize())
	}

	if min != nil && len(n.keys) > 0 && bytes.Compare(n.keys[0], min) < 0 {
		t.Fatalf("node key %q < min bound %q", n.keys[0], min)
	}

	if max != nil && len(n.keys) > 0 && bytes.Compare(n.keys[len(n.keys)-1], max) >= 0 {
		t.Fatalf("node key %q >= max bound %q", n.keys[len(n.keys)-1], max)
	}

	switch n.nodeType {
	case NodeTypeLeaf:
		if len(n.keys) != len(n.values) {
			t.Fatalf("leaf keys/values mismatch: %d vs %d", len(n.keys), len(n.values))
		}
	case NodeTypeInternal:
		if len(n.children) != len(n.keys)+1 {
			t.Fatalf("internal children mismatch: %d keys, %d children", len(n.keys), len(n.children))
		}
		for i, child := range n.children {
			var childMin, childMax []byte
			if i > 0 {
				childMin = n.keys[i-1]
			} else {
				childMin = min
			}
			if i < len(n.keys) {
				childMax = n.keys[i]
			} else {
				childMax = max
			}
			checkNode(t, idx, child, childMin, childMax)
		}
	default:
		t.Fatalf("unknown node type %d", n.nodeType)
	}
}

func checkTree(t *testing.T, idx *Index) {
	t.Helper()
	checkNode(t, idx, idx.root, nil, nil)
}

func TestInsertAndSearch(t *testing.T) {
	tests := map[string]uint64{
		"banana": 100,
		"cherry": 200,
		"apple":  50,
	}
	idx := newTestIndex(t)
	defer idx.Close()

	for k, v := range tests {
		if err := idx.Insert([]byte(k), v, Upsert); err != nil {
			t.Fatalf("failed to insert %s: %v", k, err)
		}
	}

	checkTree(t, idx)

	for k, v := range tests {
		val, err := idx.Search([]byte(k))
		if err != nil {
			t.Errorf("missing key %s: %v", k, err)
		}
		if v != val {
			t.Errorf("expected %d for key %s, got %d", v, k, val)
		}
	}
}

func TestInsertModes(t *testing.T) {
	idx := newTestIndex(t)
	defer idx.Close()

	if err := idx.Insert([]byte("a"), 1, InsertOnly); err != nil {
		t.Fatalf("failed to insert: %v", err)
	}

	tests := []struct {
		name     string
		key      string
		value    uint64
		mode     InsertMode
		err      error
		expected uint64
	}{
		{name: "insert only existing", key: "a", value: 2, mode: InsertOnly, err: ErrKeyAlreadyExists, expected: 1},
		{name: "update only existing", key: "a", value: 3, mode: UpdateOnly, expected: 3},
		{name: "update only missing", key: "b", value: 4, mode: UpdateOnly, err: ErrKeyNotFound},
		{name: "upsert existing", key: "a", value: 5, mode: Upsert, expected: 5},
		{name: "upsert missing", key: "c", value: 6, mode: Upsert, expected: 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := idx.Insert([]byte(tt.key), tt.value, tt.mode)
			if !errors.Is(err, tt.err) {
				t.Fatalf("expected error %v, got %v", tt.err, err)
			}
			if tt.expected == 0 {
				return
			}
			val, err := idx.Search([]byte(tt.key))
			if err != nil {
				t.Fatalf("failed to search %s: %v", tt.key, err)
			}
			if val != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, val)
			}
		})
	}
}

func TestInsertInvalidKeys(t *testing.T) {
	idx := newTestIndex(t)
	defer idx.Close()

	if err := idx.Insert(nil, 1, Upsert); !errors.Is(err, ErrEmptyKey) {
		t.Errorf("expected %v, got %v", ErrEmptyKey, err)
	}
	if err := idx.Insert(make([]byte, MaxKeySize+1), 1, Upsert); !errors.Is(err, ErrKeyTooLarge) {
		t.Errorf("expected %v, got %v", ErrKeyTooLarge, err)
	}
}

func TestSplitAndSearch(t *testing.T) {
	idx := newTestIndex(t)
	defer idx.Close()

	const n = 5000
	for i := range n {
		if err := idx.Insert(key(i), uint64(i*10), Upsert); err != nil {
			t.Fatalf("failed to insert %s: %v", key(i), err)
		}
	}
	checkTree(t, idx)

	root, _, err := idx.readNode(idx.root)
	if err != nil {
		t.Fatalf("failed to read root: %v", err)
	}
	if root.nodeType != NodeTypeInternal {
		t.Errorf("expected root to be internal after %d inserts", n)
	}

	for i := range n {
		v, err := idx.Search(key(i))
		if err != nil {
			t.Errorf("missing key %s: %v", key(i), err)
		}
		if v != uint64(i*10) {
			t.Errorf("bad value for %s: expected %d, got %d", key(i), i*10, v)
		}
	}
}

func TestRandomOrderLargeKeys(t *testing.T) {
	idx := newTestIndex(t)
	defer idx.Close()

	r := rand.New(rand.NewSource(7))
	keys := make(map[string]uint64)
	for i := range 400 {
		size := 1 + r.Intn(MaxKeySize)
		k := make([]byte, size)
		r.Read(k)
		keys[string(k)] = uint64(i)
		if err := idx.Insert(k, uint64(i), Upsert); err != nil {
			t.Fatalf("failed to insert key of size %d: %v", size, err)
		}
	}
	checkTree(t, idx)

	for k, v := range keys {
		got, err := idx.Search([]byte(k))
		if err != nil {
			t.Fatalf("missing key of size %d: %v", len(k), err)
		}
		if got != v {
			t.Errorf("expected %d, got %d", v, got)
		}
	}
}

func TestIndexPersist(t *testing.T) {
	path := t.TempDir() + "/index.db"

	p1, err := pager.NewPager(path, pager.WithSync(false))
	if err != nil {
		t.Fatalf("failed to open pager: %v", err)
	}
	idx1, err := NewIndex(p1)
	if err != nil {
		t.Fatalf("failed to initialize index: %v", err)
	}
	for i := range 2000 {
		if err := idx1.Insert(key(i), uint64(i), Upsert); err != nil {
			t.Fatalf("failed to insert: %v", err)
		}
	}
	if err := idx1.Close(); err != nil {
		t.Fatalf("failed to close index: %v", err)
	}

	p2, err := pager.NewPager(path)
	if err != nil {
		t.Fatalf("failed to reopen pager: %v", err)
	}
	idx2, err := NewIndex(p2)
	if err != nil {
		t.Fatalf("failed to reopen index: %v", err)
	}
	defer idx2.Close()

	if idx2.root != idx1.root {
		t.Errorf("expected root %d after reopen, got %d", idx1.root, idx2.root)
	}
	for _, i := range []int{0, 999, 1999} {
		v, err := idx2.Search(key(i))
		if err != nil || v != uint64(i) {
			t.Errorf("expected %d, nil for %s, got %d, %v", i, key(i), v, err)
		}
	}
}
