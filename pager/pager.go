// Package pager provides page and offset level access to a single database file.
package pager

import (
	"errors"
	"fmt"
	"io"
	"os"
)

const PageSize = 4096

type PageID uint32

var ErrClosed = errors.New("pager: file is closed")

type Page struct {
	ID   PageID
	Data [PageSize]byte
}

type Option func(*Pager)

// WithSync controls whether every write is followed by an fsync.
func WithSync(sync bool) Option {
	return func(p *Pager) {
		p.syncWrites = sync
	}
}

type Pager struct {
	file       *os.File
	numPages   uint32
	syncWrites bool
}

func NewPager(filename string, opts ...Option) (*Pager, error) {
	file, err := os.OpenFile(filename, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("pager: failed opening file: %w", err)
	}
	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("pager: failed to stat file: %w", err)
	}

	p := &Pager{
		file:       file,
		numPages:   uint32(stat.Size() / PageSize),
		syncWrites: true,
	}
	for _, opt := range opts {
		opt(p)
	}

	return p, nil
}

func (p *Pager) Close() error {
	if p.file == nil {
		return ErrClosed
	}
	if err := p.file.Sync(); err != nil {
		p.file.Close()
		p.file = nil
		return fmt.Errorf("pager: failed to sync on close: %w", err)
	}
	err := p.file.Close()
	p.file = nil
	return err
}

func (p *Pager) ReadPage(pageID PageID) (*Page, error) {
	if p.file == nil {
		return nil, ErrClosed
	}
	if uint32(pageID) >= p.numPages {
		return nil, fmt.Errorf("pager: page %d does not exist", pageID)
	}

	page := &Page{ID: pageID}
	if _, err := p.file.ReadAt(page.Data[:], int64(pageID)*PageSize); err != nil {
		return nil, fmt.Errorf("pager: failed to read page %d: %w", pageID, err)
	}

	return page, nil
}

func (p *Pager) WritePage(page *Page) error {
	if p.file == nil {
		return ErrClosed
	}

	n, err := p.file.WriteAt(page.Data[:], int64(page.ID)*PageSize)
	if err != nil {
		return fmt.Errorf("pager: failed to write page %d: %w", page.ID, err)
	}
	if n != PageSize {
		return fmt.Errorf("pager: partial write: wrote %d bytes, expected %d bytes", n, PageSize)
	}
	if uint32(page.ID) >= p.numPages {
		p.numPages = uint32(page.ID) + 1
	}

	return p.sync()
}

// NewPage appends a zeroed page to the end of the file.
func (p *Pager) NewPage() (*Page, error) {
	if p.file == nil {
		return nil, ErrClosed
	}

	page := &Page{ID: PageID(p.numPages)}
	if err := p.WritePage(page); err != nil {
		return nil, err
	}

	return page, nil
}

func (p *Pager) WriteAtOffset(offset uint64, data []byte) error {
	if p.file == nil {
		return ErrClosed
	}

	n, err := p.file.WriteAt(data, int64(offset))
	if err != nil {
		return fmt.Errorf("pager: failed to write at offset %d: %w", offset, err)
	}
	if n != len(data) {
		return fmt.Errorf("pager: partial write: wrote %d bytes, expected %d bytes", n, len(data))
	}

	return p.sync()
}

func (p *Pager) ReadAtOffset(offset uint64, size int) ([]byte, error) {
	if p.file == nil {
		return nil, ErrClosed
	}

	data := make([]byte, size)
	n, err := p.file.ReadAt(data, int64(offset))
	if err != nil && !(errors.Is(err, io.EOF) && n == size) {
		return nil, fmt.Errorf("pager: failed to read at offset %d: %w", offset, err)
	}
	if n != size {
		return nil, fmt.Errorf("pager: partial read: read %d bytes, expected %d bytes", n, size)
	}

	return data, nil
}

func (p *Pager) sync() error {
	if !p.syncWrites {
		return nil
	}
	if err := p.file.Sync(); err != nil {
		return fmt.Errorf("pager: failed to sync: %w", err)
	}
	return nil
}

func (p *Pager) GetNumPages() uint32 {
	return p.numPages
}

func (p *Pager) GetSize() (uint64, error) {
	if p.file == nil {
		return 0, ErrClosed
	}
	stat, err := p.file.Stat()
	if err != nil {
		return 0, err
	}
	return uint64(stat.Size()), nil
}
