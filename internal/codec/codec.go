// Package codec implements the fixed binary framing shared by every
// segment file: sparse-index records and sorted data records, read and
// written with positional I/O so a segment is never buffered into memory
// whole.
//
// A segment file is laid out as:
//
//	| index_count:u32 |
//	| IndexRecord × index_count |
//	| data_count:u32 |
//	| DataRecord × data_count |
//
// IndexRecord:  | keysize:u32 | key:bytes | offset:u64 |
// DataRecord:   | keysize:u32 | valuesize:u32 | key:bytes | value:bytes |
//
// Sizes are u32 big-endian, offsets are u64 big-endian. Encoders measure
// UTF-8 byte length, never rune count.
package codec

import (
	"encoding/binary"
	"io"
	"unicode/utf8"
)

const (
	// SizeLen is the width in bytes of every u32 size/count field.
	SizeLen = 4
	// OffsetLen is the width in bytes of the u64 offset field in an IndexRecord.
	OffsetLen = 8
)

// IndexRecord is one sparse-index entry: a sampled key and the absolute
// byte offset of its DataRecord in the same file.
type IndexRecord struct {
	Key    string
	Offset uint64
}

// DataRecord is one key/value entry in the data section.
type DataRecord struct {
	Key   string
	Value []byte
}

// EncodedSize returns the number of bytes IndexRecord occupies on disk.
func (r IndexRecord) EncodedSize() int64 {
	return int64(SizeLen + len(r.Key) + OffsetLen)
}

// EncodedSize returns the number of bytes DataRecord occupies on disk.
func (r DataRecord) EncodedSize() int64 {
	return int64(SizeLen + SizeLen + len(r.Key) + len(r.Value))
}

// WriteIndexRecord appends one IndexRecord to w.
func WriteIndexRecord(w io.Writer, r IndexRecord) error {
	keyBytes := []byte(r.Key)
	if err := writeU32(w, uint32(len(keyBytes))); err != nil {
		return err
	}
	if _, err := w.Write(keyBytes); err != nil {
		return err
	}
	return writeU64(w, r.Offset)
}

// WriteDataRecord appends one DataRecord to w.
func WriteDataRecord(w io.Writer, r DataRecord) error {
	keyBytes := []byte(r.Key)
	if err := writeU32(w, uint32(len(keyBytes))); err != nil {
		return err
	}
	if err := writeU32(w, uint32(len(r.Value))); err != nil {
		return err
	}
	if _, err := w.Write(keyBytes); err != nil {
		return err
	}
	_, err := w.Write(r.Value)
	return err
}

// WriteU32 writes a single big-endian u32 header field (index_count or
// data_count) to w.
func WriteU32(w io.Writer, v uint32) error {
	return writeU32(w, v)
}

// ReadU32 reads a single big-endian u32 from r.
func ReadU32(r io.Reader) (uint32, error) {
	var buf [SizeLen]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

// ReadIndexRecord decodes one IndexRecord from r, validating that the key
// bytes are valid UTF-8. r must be positioned at the start of the record.
func ReadIndexRecord(r io.Reader) (IndexRecord, error) {
	keyLen, err := ReadU32(r)
	if err != nil {
		return IndexRecord{}, err
	}

	key := make([]byte, keyLen)
	if _, err := io.ReadFull(r, key); err != nil {
		return IndexRecord{}, err
	}
	if !utf8.Valid(key) {
		return IndexRecord{}, ErrInvalidUTF8
	}

	var offBuf [OffsetLen]byte
	if _, err := io.ReadFull(r, offBuf[:]); err != nil {
		return IndexRecord{}, err
	}

	return IndexRecord{Key: string(key), Offset: binary.BigEndian.Uint64(offBuf[:])}, nil
}

// ReadDataRecord decodes one DataRecord from r, validating that the key
// and value bytes are valid UTF-8. r must be positioned at the start of
// the record.
func ReadDataRecord(r io.Reader) (DataRecord, error) {
	keyLen, err := ReadU32(r)
	if err != nil {
		return DataRecord{}, err
	}
	valueLen, err := ReadU32(r)
	if err != nil {
		return DataRecord{}, err
	}

	key := make([]byte, keyLen)
	if _, err := io.ReadFull(r, key); err != nil {
		return DataRecord{}, err
	}
	if !utf8.Valid(key) {
		return DataRecord{}, ErrInvalidUTF8
	}

	value := make([]byte, valueLen)
	if _, err := io.ReadFull(r, value); err != nil {
		return DataRecord{}, err
	}
	if !utf8.Valid(value) {
		return DataRecord{}, ErrInvalidUTF8
	}

	return DataRecord{Key: string(key), Value: value}, nil
}

func writeU32(w io.Writer, v uint32) error {
	var buf [SizeLen]byte
	binary.BigEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func writeU64(w io.Writer, v uint64) error {
	var buf [OffsetLen]byte
	binary.BigEndian.PutUint64(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}
