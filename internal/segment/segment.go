// Package segment implements the immutable, sorted, sparse-indexed
// on-disk segment: the reader side of the SSTable format written by
// internal/memtable's flush and internal/store's merge.
package segment

import (
	"io"
	"os"
	"sort"

	"github.com/nilotpal-ignite/sstore/internal/codec"
	"github.com/nilotpal-ignite/sstore/pkg/errors"
)

// indexEntry is one sparse-index sample, kept sorted by Key for the
// bracketing search in Get.
type indexEntry struct {
	key    string
	offset int64
}

// OnDiskSegment is an immutable sorted key-value file plus the in-memory
// sparse index read from its header at Open time. A segment never buffers
// its data section in memory — Get and Iterate both use positional reads
// against a dedicated file handle.
type OnDiskSegment struct {
	path string
	size int64

	// dataSectionOffset is the absolute offset of the data_count field —
	// the first DataRecord begins four bytes after it.
	dataSectionOffset int64
	keyCount          uint32

	index      []indexEntry
	indexByKey map[string]int64
}

// Open reads path's header — the sparse index and the data_count field —
// and returns a segment ready for point lookups and iteration. The
// returned segment holds no open file handle; every read opens its own.
func Open(path string) (*OnDiskSegment, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.ClassifyFileOpenError(err, path, path)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to stat segment file").WithPath(path)
	}
	size := stat.Size()

	indexCount, err := codec.ReadU32(file)
	if err != nil {
		return nil, malformedAt(err, path, 0, "reading index_count header")
	}

	index := make([]indexEntry, 0, indexCount)
	byKey := make(map[string]int64, indexCount)

	for i := uint32(0); i < indexCount; i++ {
		pos, _ := file.Seek(0, io.SeekCurrent)
		rec, err := codec.ReadIndexRecord(file)
		if err != nil {
			return nil, malformedAt(err, path, pos, "decoding IndexRecord")
		}
		index = append(index, indexEntry{key: rec.Key, offset: int64(rec.Offset)})
		byKey[rec.Key] = int64(rec.Offset)
	}

	dataSectionOffset, _ := file.Seek(0, io.SeekCurrent)

	keyCount, err := codec.ReadU32(file)
	if err != nil {
		return nil, malformedAt(err, path, dataSectionOffset, "reading data_count header")
	}

	return &OnDiskSegment{
		path:              path,
		size:              size,
		dataSectionOffset: dataSectionOffset,
		keyCount:          keyCount,
		index:             index,
		indexByKey:        byKey,
	}, nil
}

// Path returns the segment's file path.
func (s *OnDiskSegment) Path() string { return s.path }

// Size returns the segment file's total size in bytes.
func (s *OnDiskSegment) Size() int64 { return s.size }

// KeyCount returns the number of data records in the segment, as recorded
// in the data_count header.
func (s *OnDiskSegment) KeyCount() uint32 { return s.keyCount }

// firstDataRecordOffset is the absolute offset where the first DataRecord
// begins — four bytes past data_section_offset, past the data_count field.
func (s *OnDiskSegment) firstDataRecordOffset() int64 {
	return s.dataSectionOffset + int64(codec.SizeLen)
}

// Get performs a point lookup: exact sparse-index hit short-circuits to a
// single decode, otherwise the bracketing samples around key define an
// inclusive scan window that is linearly searched.
func (s *OnDiskSegment) Get(key string) ([]byte, bool, error) {
	file, err := os.Open(s.path)
	if err != nil {
		return nil, false, errors.ClassifyFileOpenError(err, s.path, s.path)
	}
	defer file.Close()

	if offset, ok := s.indexByKey[key]; ok {
		value, found, err := decodeAt(file, offset, key, s.path)
		if err != nil {
			return nil, false, err
		}
		if found {
			return value, true, nil
		}
		// An exact sparse-index hit that doesn't decode to the expected key
		// indicates a corrupt index; declaring the key absent would mask
		// that corruption, so report it instead.
		return nil, false, errors.NewMalformedSegmentError(
			nil, s.path, offset, "sparse index offset does not point at the indexed key's data record",
		)
	}

	from, to := s.window(key)

	value, found, err := scan(file, from, to, s.size, key, s.path)
	if err != nil {
		return nil, false, err
	}
	return value, found, nil
}

// window computes the inclusive [from, to] byte range that must contain
// key's DataRecord if it exists, from the floor/ceiling sparse samples.
// Called only for keys that missed the exact indexByKey lookup in Get, so
// idx[i].key == key never holds here.
func (s *OnDiskSegment) window(key string) (from, to int64) {
	// s.index is in on-disk order, which the format invariant guarantees
	// is sorted ascending by key, so binary search applies directly.
	idx := s.index
	i := sort.Search(len(idx), func(i int) bool { return idx[i].key >= key })

	if i > 0 {
		from = idx[i-1].offset
	} else {
		from = s.firstDataRecordOffset()
	}

	if i < len(idx) {
		to = idx[i].offset
	} else {
		to = s.size
	}

	return from, to
}

// scan linearly decodes DataRecords starting at from until it finds key,
// passes key (sorted order proves absence), or exhausts the [from, to]
// window. The window is inclusive of to: the loop continues while the
// pre-decode position is <= to and < fileSize.
func scan(file *os.File, from, to, fileSize int64, key, path string) ([]byte, bool, error) {
	if _, err := file.Seek(from, io.SeekStart); err != nil {
		return nil, false, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to seek to scan window").WithPath(path).WithOffset(int(from))
	}

	pos := from
	for pos <= to && pos < fileSize {
		rec, err := codec.ReadDataRecord(file)
		if err != nil {
			return nil, false, malformedAt(err, path, pos, "decoding DataRecord during point lookup scan")
		}

		if rec.Key == key {
			return rec.Value, true, nil
		}
		if rec.Key > key {
			return nil, false, nil
		}

		next, _ := file.Seek(0, io.SeekCurrent)
		pos = next
	}

	return nil, false, nil
}

// decodeAt decodes a single DataRecord at offset and checks its key
// matches expectedKey, per the exact sparse-index hit path.
func decodeAt(file *os.File, offset int64, expectedKey, path string) ([]byte, bool, error) {
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return nil, false, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to seek to indexed offset").WithPath(path).WithOffset(int(offset))
	}
	rec, err := codec.ReadDataRecord(file)
	if err != nil {
		return nil, false, malformedAt(err, path, offset, "decoding DataRecord at sparse-index offset")
	}
	if rec.Key != expectedKey {
		return nil, false, nil
	}
	return rec.Value, true, nil
}

func malformedAt(err error, path string, offset int64, reason string) error {
	if codec.IsTruncated(err) {
		return errors.NewMalformedSegmentError(err, path, offset, reason+": truncated")
	}
	return errors.NewMalformedSegmentError(err, path, offset, reason)
}
