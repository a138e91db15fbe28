package segment

import (
	"io"
	"os"

	"github.com/nilotpal-ignite/sstore/internal/codec"
	"github.com/nilotpal-ignite/sstore/pkg/errors"
)

// Iterator is a lazy forward reader over a segment's data section. Each
// Iterator owns its own file handle, opened by Iterate, so it can run
// concurrently with point lookups and other iterators on the same segment.
type Iterator struct {
	file *os.File
	path string
	pos  int64
	size int64
	cur  codec.DataRecord
	err  error
}

// Iterate opens a dedicated read handle positioned at the first DataRecord
// and returns an Iterator ready for Next.
func (s *OnDiskSegment) Iterate() (*Iterator, error) {
	file, err := os.Open(s.path)
	if err != nil {
		return nil, errors.ClassifyFileOpenError(err, s.path, s.path)
	}

	start := s.firstDataRecordOffset()
	if _, err := file.Seek(start, io.SeekStart); err != nil {
		file.Close()
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to seek to data section").WithPath(s.path)
	}

	return &Iterator{file: file, path: s.path, pos: start, size: s.size}, nil
}

// Next decodes the next DataRecord, reporting whether one was available.
// Once Next returns false, check Err to distinguish a clean end-of-data
// from a decode failure.
func (it *Iterator) Next() bool {
	if it.err != nil || it.pos >= it.size {
		return false
	}

	rec, err := codec.ReadDataRecord(it.file)
	if err != nil {
		it.err = malformedAt(err, it.path, it.pos, "decoding DataRecord during iteration")
		return false
	}

	it.cur = rec
	it.pos, _ = it.file.Seek(0, io.SeekCurrent)
	return true
}

// Key returns the current record's key. Valid only after Next returns true.
func (it *Iterator) Key() string { return it.cur.Key }

// Value returns the current record's value. Valid only after Next returns true.
func (it *Iterator) Value() []byte { return it.cur.Value }

// Err returns the first decode error encountered, if any.
func (it *Iterator) Err() error { return it.err }

// Close releases the iterator's file handle. Safe to call even if Next was
// never called or already returned false.
func (it *Iterator) Close() error { return it.file.Close() }
