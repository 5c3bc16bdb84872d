// Package storage is an append-only record log with a B+tree index over
// the record keys.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-multierror"

	"github.com/rizalta/toysql/index"
	"github.com/rizalta/toysql/pager"
)

var (
	ErrKeyExists   = errors.New("storage: key already exists")
	ErrInvalidKey  = errors.New("storage: key is empty or too large")
	ErrCorruptData = errors.New("storage: record is corrupt or truncated")
)

type Pager interface {
	WriteAtOffset(offset uint64, data []byte) error
	ReadAtOffset(offset uint64, size int) ([]byte, error)
	GetSize() (uint64, error)
	Close() error
}

type Index interface {
	Insert(key []byte, value uint64, insertMode index.InsertMode) error
	Search(key []byte) (uint64, error)
	Delete(key []byte) error
	NewCursor(startKey, endKey []byte) (Cursor, error)
	Close() error
}

// btreeIndex adapts *index.Index to the Index interface.
type btreeIndex struct {
	*index.Index
}

func (b btreeIndex) NewCursor(startKey, endKey []byte) (Cursor, error) {
	return b.Index.NewCursor(startKey, endKey)
}

type Store struct {
	pager   Pager
	index   Index
	offset  uint64
	dataDir string
}

const (
	indexFile = "index.db"
	dataFile  = "data.db"
	lockFile  = "clean.lock"
)

type options struct {
	syncWrites bool
}

type Option func(*options)

// WithSyncWrites makes every log and index write wait for fsync.
func WithSyncWrites(sync bool) Option {
	return func(o *options) {
		o.syncWrites = sync
	}
}

// NewStore opens the store in dataDir. A clean.lock file left by Close marks
// a clean shutdown; without it the index is rebuilt by replaying the log.
func NewStore(dataDir string, opts ...Option) (*Store, error) {
	o := options{syncWrites: true}
	for _, opt := range opts {
		opt(&o)
	}

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, err
	}

	dataPath := filepath.Join(dataDir, dataFile)
	dataPager, err := pager.NewPager(dataPath, pager.WithSync(o.syncWrites))
	if err != nil {
		return nil, err
	}

	indexPath := filepath.Join(dataDir, indexFile)
	indexPager, err := pager.NewPager(indexPath, pager.WithSync(o.syncWrites))
	if err != nil {
		dataPager.Close()
		return nil, err
	}

	idx, err := index.NewIndex(indexPager)
	if err != nil {
		dataPager.Close()
		indexPager.Close()
		return nil, err
	}

	lockFilePath := filepath.Join(dataDir, lockFile)
	clean := false
	if _, err := os.Stat(lockFilePath); err == nil {
		clean = true
	} else if !os.IsNotExist(err) {
		dataPager.Close()
		idx.Close()
		return nil, err
	}

	s, err := newStore(dataPager, btreeIndex{idx}, clean)
	if err != nil {
		dataPager.Close()
		idx.Close()
		return nil, err
	}
	s.dataDir = dataDir

	if clean {
		if err := os.Remove(lockFilePath); err != nil {
			s.Close()
			return nil, err
		}
	}

	return s, nil
}

func newStore(p Pager, idx Index, clean bool) (*Store, error) {
	s := &Store{
		pager: p,
		index: idx,
	}

	if clean {
		size, err := p.GetSize()
		if err != nil {
			return nil, err
		}
		s.offset = size
		return s, nil
	}

	if err := s.recoverIndex(); err != nil {
		return nil, err
	}

	return s, nil
}

// recoverIndex replays the log from the start. Replay stops at the first
// unreadable record, which drops a torn tail write.
func (s *Store) recoverIndex() error {
	offset := uint64(0)
	for {
		r, err := s.readRecord(offset)
		if err != nil {
			break
		}

		switch r.RecordType {
		case RecordTypeInsert:
			if err := s.index.Insert(r.Key, offset, index.Upsert); err != nil {
				return fmt.Errorf("storage: failed to replay record at %d: %w", offset, err)
			}
		case RecordTypeDelete:
			if err := s.index.Delete(r.Key); err != nil && !errors.Is(err, index.ErrKeyNotFound) {
				return fmt.Errorf("storage: failed to replay tombstone at %d: %w", offset, err)
			}
		}
		offset += uint64(r.size())
	}
	s.offset = offset
	return nil
}

func validateKey(key []byte) error {
	if len(key) == 0 || len(key) > index.MaxKeySize {
		return fmt.Errorf("%w: length %d", ErrInvalidKey, len(key))
	}
	return nil
}

func (s *Store) write(key, value []byte, insertMode index.InsertMode) error {
	if err := validateKey(key); err != nil {
		return err
	}

	if insertMode == index.InsertOnly {
		if _, err := s.index.Search(key); err == nil {
			return ErrKeyExists
		} else if !errors.Is(err, index.ErrKeyNotFound) {
			return err
		}
	}

	at, err := s.appendRecord(&Record{RecordType: RecordTypeInsert, Key: key, Value: value})
	if err != nil {
		return fmt.Errorf("storage: failed to write record: %w", err)
	}
	if err := s.index.Insert(key, at, index.Upsert); err != nil {
		return fmt.Errorf("storage: failed to index key: %w", err)
	}
	return nil
}

// Put writes value under key, replacing any previous value.
func (s *Store) Put(key []byte, value []byte) error {
	return s.write(key, value, index.Upsert)
}

// Add writes value under key and fails with ErrKeyExists if key is present.
// Nothing is appended to the log when the key exists.
func (s *Store) Add(key []byte, value []byte) error {
	return s.write(key, value, index.InsertOnly)
}

func (s *Store) Get(key []byte) ([]byte, bool, error) {
	offset, err := s.index.Search(key)
	if err != nil {
		if errors.Is(err, index.ErrKeyNotFound) || errors.Is(err, index.ErrEmptyKey) || errors.Is(err, index.ErrKeyTooLarge) {
			return nil, false, nil
		}
		return nil, false, err
	}

	record, err := s.readRecord(offset)
	if err != nil {
		return nil, false, err
	}

	if record.RecordType == RecordTypeDelete {
		return nil, false, nil
	}

	return record.Value, true, nil
}

// Delete appends a tombstone for key and removes it from the index. It
// reports false when the key is not present.
func (s *Store) Delete(key []byte) (bool, error) {
	if _, found, err := s.Get(key); err != nil || !found {
		return false, err
	}

	if _, err := s.appendRecord(&Record{RecordType: RecordTypeDelete, Key: key}); err != nil {
		return false, fmt.Errorf("storage: failed to write tombstone: %w", err)
	}

	if err := s.index.Delete(key); err != nil {
		return false, fmt.Errorf("storage: failed to unindex key: %w", err)
	}

	return true, nil
}

func (s *Store) Close() error {
	var result *multierror.Error
	if err := s.index.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := s.pager.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := result.ErrorOrNil(); err != nil {
		return err
	}

	if s.dataDir == "" {
		return nil
	}

	file, err := os.Create(filepath.Join(s.dataDir, lockFile))
	if err != nil {
		return err
	}
	return file.Close()
}
