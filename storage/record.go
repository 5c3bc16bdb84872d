package storage

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"

	"github.com/rizalta/toysql/index"
)

type RecordType byte

const (
	RecordTypeInsert RecordType = 0
	RecordTypeDelete RecordType = 1
)

// Record is one log entry. On disk it is laid out as
//
//	type(1) | len(key)(4) | len(value)(4) | crc32(4) | key | value
//
// with the checksum covering every other byte of the entry.
type Record struct {
	RecordType RecordType
	Key        []byte
	Value      []byte
}

const recordHeaderSize = 13

func (r *Record) size() int {
	return recordHeaderSize + len(r.Key) + len(r.Value)
}

func (r *Record) encode() []byte {
	buf := make([]byte, r.size())
	buf[0] = byte(r.RecordType)
	binary.LittleEndian.PutUint32(buf[1:5], uint32(len(r.Key)))
	binary.LittleEndian.PutUint32(buf[5:9], uint32(len(r.Value)))
	n := copy(buf[recordHeaderSize:], r.Key)
	copy(buf[recordHeaderSize+n:], r.Value)
	binary.LittleEndian.PutUint32(buf[9:13], recordChecksum(buf))
	return buf
}

func recordChecksum(buf []byte) uint32 {
	sum := crc32.ChecksumIEEE(buf[:9])
	return crc32.Update(sum, crc32.IEEETable, buf[recordHeaderSize:])
}

// bodySize validates a record header and returns the length of the key and
// value that follow it.
func bodySize(header []byte) (int, error) {
	if len(header) < recordHeaderSize {
		return 0, ErrCorruptData
	}

	rt := RecordType(header[0])
	if rt != RecordTypeInsert && rt != RecordTypeDelete {
		return 0, fmt.Errorf("%w: record type %d", ErrCorruptData, rt)
	}

	keyLen := binary.LittleEndian.Uint32(header[1:5])
	valueLen := binary.LittleEndian.Uint32(header[5:9])
	if keyLen == 0 || keyLen > index.MaxKeySize || (rt == RecordTypeDelete && valueLen != 0) {
		return 0, fmt.Errorf("%w: lengths %d/%d", ErrCorruptData, keyLen, valueLen)
	}
	return int(keyLen) + int(valueLen), nil
}

func decodeRecord(buf []byte) (*Record, error) {
	body, err := bodySize(buf)
	if err != nil {
		return nil, err
	}
	if len(buf) != recordHeaderSize+body {
		return nil, ErrCorruptData
	}
	if binary.LittleEndian.Uint32(buf[9:13]) != recordChecksum(buf) {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrCorruptData)
	}

	keyEnd := recordHeaderSize + int(binary.LittleEndian.Uint32(buf[1:5]))
	r := &Record{
		RecordType: RecordType(buf[0]),
		Key:        bytes.Clone(buf[recordHeaderSize:keyEnd]),
	}
	if r.RecordType == RecordTypeInsert {
		r.Value = bytes.Clone(buf[keyEnd:])
	}
	return r, nil
}

func (s *Store) readRecord(offset uint64) (*Record, error) {
	header, err := s.pager.ReadAtOffset(offset, recordHeaderSize)
	if err != nil {
		return nil, err
	}
	body, err := bodySize(header)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, recordHeaderSize+body)
	copy(buf, header)
	if body > 0 {
		rest, err := s.pager.ReadAtOffset(offset+recordHeaderSize, body)
		if err != nil {
			return nil, err
		}
		copy(buf[recordHeaderSize:], rest)
	}
	return decodeRecord(buf)
}

// appendRecord writes r at the end of the log and returns its offset.
func (s *Store) appendRecord(r *Record) (uint64, error) {
	buf := r.encode()
	at := s.offset
	if err := s.pager.WriteAtOffset(at, buf); err != nil {
		return 0, err
	}
	s.offset += uint64(len(buf))
	return at, nil
}
