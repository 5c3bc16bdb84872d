// Package index implements a disk backed B+tree mapping byte keys to uint64 values.
package index

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"sort"

	"github.com/rizalta/toysql/pager"
)

type NodeType uint16

const (
	NodeTypeInternal NodeType = iota + 1
	NodeTypeLeaf
)

const (
	// MaxKeySize bounds a single key so that a split node always fits a page.
	MaxKeySize = 1024

	headerSize     = 16
	splitThreshold = pager.PageSize
)

var (
	ErrKeyNotFound      = errors.New("index: key not found")
	ErrKeyAlreadyExists = errors.New("index: key already exists")
	ErrKeyTooLarge      = errors.New("index: key exceeds maximum size")
	ErrEmptyKey         = errors.New("index: key is empty")
	ErrChecksumMismatch = errors.New("index: page checksum mismatch")
	ErrCorruptNode      = errors.New("index: node is corrupt or malformed")
)

type Pager interface {
	NewPage() (*pager.Page, error)
	ReadPage(pageID pager.PageID) (*pager.Page, error)
	WritePage(page *pager.Page) error
	GetNumPages() uint32
	Close() error
}

type Header struct {
	nodeType NodeType
	keyCount uint16
	next     pager.PageID
	checksum uint32
}

func (h *Header) serialize(data []byte) {
	binary.LittleEndian.PutUint16(data[0:2], uint16(h.nodeType))
	binary.LittleEndian.PutUint16(data[2:4], h.keyCount)
	binary.LittleEndian.PutUint32(data[4:8], uint32(h.next))
}

func (h *Header) deserialize(data []byte) {
	h.nodeType = NodeType(binary.LittleEndian.Uint16(data[0:2]))
	h.keyCount = binary.LittleEndian.Uint16(data[2:4])
	h.next = pager.PageID(binary.LittleEndian.Uint32(data[4:8]))
	h.checksum = binary.LittleEndian.Uint32(data[8:12])
}

type node struct {
	nodeType NodeType
	keys     [][]byte
	values   []uint64
	children []pager.PageID
	next     pager.PageID
}

type Index struct {
	pager Pager
	root  pager.PageID
}

func newLeafNode() *node {
	return &node{
		nodeType: NodeTypeLeaf,
		keys:     make([][]byte, 0),
		values:   make([]uint64, 0),
	}
}

func newInternalNode() *node {
	return &node{
		nodeType: NodeTypeInternal,
		keys:     make([][]byte, 0),
		children: make([]pager.PageID, 0),
	}
}

// entrySize is the on-page size of key i, including its pointer.
func (n *node) entrySize(i int) int {
	if n.nodeType == NodeTypeLeaf {
		return 2 + len(n.keys[i]) + 8
	}
	return 2 + len(n.keys[i]) + 4
}

func (n *node) calculateSize() int {
	size := headerSize
	if n.nodeType == NodeTypeInternal {
		size += 4
	}
	for i := range n.keys {
		size += n.entrySize(i)
	}
	return size
}

func NewIndex(p Pager) (*Index, error) {
	if p.GetNumPages() == 0 {
		if _, err := p.NewPage(); err != nil {
			return nil, err
		}
		rootPage, err := p.NewPage()
		if err != nil {
			return nil, err
		}

		idx := &Index{
			root:  rootPage.ID,
			pager: p,
		}

		if err := idx.syncMetaPage(); err != nil {
			return nil, err
		}

		if err := idx.writeNode(rootPage, newLeafNode()); err != nil {
			return nil, err
		}

		return idx, nil
	}

	meta, err := p.ReadPage(0)
	if err != nil {
		return nil, err
	}

	return &Index{
		root:  pager.PageID(binary.LittleEndian.Uint32(meta.Data[:])),
		pager: p,
	}, nil
}

func (idx *Index) readNode(pageID pager.PageID) (*node, *pager.Page, error) {
	page, err := idx.pager.ReadPage(pageID)
	if err != nil {
		return nil, nil, err
	}

	storedChecksum := binary.LittleEndian.Uint32(page.Data[8:12])
	binary.LittleEndian.PutUint32(page.Data[8:12], 0)
	calculatedChecksum := crc32.ChecksumIEEE(page.Data[:])
	binary.LittleEndian.PutUint32(page.Data[8:12], storedChecksum)
	if calculatedChecksum != storedChecksum {
		return nil, nil, ErrChecksumMismatch
	}

	header := &Header{}
	header.deserialize(page.Data[0:headerSize])

	n := &node{
		nodeType: header.nodeType,
		keys:     make([][]byte, header.keyCount),
		next:     header.next,
	}

	data := page.Data[:]
	offset := headerSize

	readKey := func() ([]byte, error) {
		if offset+2 > len(data) {
			return nil, ErrCorruptNode
		}
		keyLen := int(binary.LittleEndian.Uint16(data[offset:]))
		offset += 2
		if offset+keyLen > len(data) {
			return nil, ErrCorruptNode
		}
		key := make([]byte, keyLen)
		copy(key, data[offset:offset+keyLen])
		offset += keyLen
		return key, nil
	}

	switch n.nodeType {
	case NodeTypeLeaf:
		n.values = make([]uint64, header.keyCount)
		for i := range n.keys {
			key, err := readKey()
			if err != nil {
				return nil, nil, err
			}
			if offset+8 > len(data) {
				return nil, nil, ErrCorruptNode
			}
			n.keys[i] = key
			n.values[i] = binary.LittleEndian.Uint64(data[offset:])
			offset += 8
		}
	case NodeTypeInternal:
		n.children = make([]pager.PageID, header.keyCount+1)
		n.children[0] = pager.PageID(binary.LittleEndian.Uint32(data[offset:]))
		offset += 4
		for i := range n.keys {
			key, err := readKey()
			if err != nil {
				return nil, nil, err
			}
			if offset+4 > len(data) {
				return nil, nil, ErrCorruptNode
			}
			n.keys[i] = key
			n.children[i+1] = pager.PageID(binary.LittleEndian.Uint32(data[offset:]))
			offset += 4
		}
	default:
		return nil, nil, ErrCorruptNode
	}

	return n, page, nil
}

func (idx *Index) writeNode(page *pager.Page, n *node) error {
	if n.calculateSize() > pager.PageSize {
		return ErrCorruptNode
	}

	clear(page.Data[:])
	header := &Header{
		nodeType: n.nodeType,
		keyCount: uint16(len(n.keys)),
		next:     n.next,
	}
	header.serialize(page.Data[0:headerSize])

	data := page.Data[:]
	offset := headerSize

	writeKey := func(key []byte) {
		binary.LittleEndian.PutUint16(data[offset:], uint16(len(key)))
		offset += 2
		offset += copy(data[offset:], key)
	}

	if n.nodeType == NodeTypeLeaf {
		for i, k := range n.keys {
			writeKey(k)
			binary.LittleEndian.PutUint64(data[offset:], n.values[i])
			offset += 8
		}
	} else {
		binary.LittleEndian.PutUint32(data[offset:], uint32(n.children[0]))
		offset += 4
		for i, k := range n.keys {
			writeKey(k)
			binary.LittleEndian.PutUint32(data[offset:], uint32(n.children[i+1]))
			offset += 4
		}
	}

	checksum := crc32.ChecksumIEEE(page.Data[:])
	binary.LittleEndian.PutUint32(page.Data[8:12], checksum)

	return idx.pager.WritePage(page)
}

func (idx *Index) syncMetaPage() error {
	meta, err := idx.pager.ReadPage(0)
	if err != nil {
		return err
	}

	binary.LittleEndian.PutUint32(meta.Data[:], uint32(idx.root))

	return idx.pager.WritePage(meta)
}

func validateKey(key []byte) error {
	if len(key) == 0 {
		return ErrEmptyKey
	}
	if len(key) > MaxKeySize {
		return ErrKeyTooLarge
	}
	return nil
}

// findLeaf descends from the root to the leaf that would hold key.
func (idx *Index) findLeaf(key []byte) (*node, *pager.Page, error) {
	n, page, err := idx.readNode(idx.root)
	if err != nil {
		return nil, nil, err
	}

	for n.nodeType == NodeTypeInternal {
		i := sort.Search(len(n.keys), func(j int) bool {
			return bytes.Compare(n.keys[j], key) > 0
		})
		n, page, err = idx.readNode(n.children[i])
		if err != nil {
			return nil, nil, err
		}
	}

	return n, page, nil
}

func (idx *Index) Search(key []byte) (uint64, error) {
	if idx.root == 0 {
		return 0, ErrKeyNotFound
	}

	n, _, err := idx.findLeaf(key)
	if err != nil {
		return 0, err
	}

	i := sort.Search(len(n.keys), func(j int) bool {
		return bytes.Compare(n.keys[j], key) >= 0
	})

	if i < len(n.keys) && bytes.Equal(n.keys[i], key) {
		return n.values[i], nil
	}

	return 0, ErrKeyNotFound
}

func (idx *Index) Close() error {
	return idx.pager.Close()
}
