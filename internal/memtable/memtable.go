// Package memtable implements the mutable, sorted in-memory buffer that
// absorbs writes before they are flushed to an immutable on-disk segment.
//
// A Buffer is owned exclusively by one store: every mutation happens under
// the store's lock, so Buffer itself does no internal locking.
package memtable

import (
	"os"
	"sort"

	"github.com/nilotpal-ignite/sstore/internal/codec"
	"github.com/nilotpal-ignite/sstore/internal/segment"
	"github.com/nilotpal-ignite/sstore/pkg/errors"
)

// SampleFactor is the record-count stride between sparse-index entries
// (K in the spec). It is a format constant, not a runtime option: changing
// it would break compatibility with segments already on disk.
const SampleFactor = 10

// Buffer is the mutable sorted key-value map that backs put/get before a
// flush converts it into an on-disk segment.
type Buffer struct {
	entries map[string][]byte
}

// New returns an empty Buffer.
func New() *Buffer {
	return &Buffer{entries: make(map[string][]byte)}
}

// Put inserts or overwrites the value for key.
func (b *Buffer) Put(key string, value []byte) {
	b.entries[key] = value
}

// Get returns the current value for key, if any.
func (b *Buffer) Get(key string) ([]byte, bool) {
	v, ok := b.entries[key]
	return v, ok
}

// Size returns the number of distinct keys currently held.
func (b *Buffer) Size() int {
	return len(b.entries)
}

// sortedKeys returns every key in ascending byte-lexicographic order.
func (b *Buffer) sortedKeys() []string {
	keys := make([]string, 0, len(b.entries))
	for k := range b.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Flush walks the buffer once in sorted key order, writes a new segment
// file at path, and returns it opened as an OnDiskSegment.
//
// The sparse index samples every SampleFactor-th entry starting at index 0,
// recording each sample's data-local offset (cumulative encoded size of
// prior DataRecords). Those local offsets are then converted to absolute
// file offsets once the index section's total size is known, so the
// algorithm remains a single O(n) pass over the buffer plus one O(n) pass
// over the (much smaller) sample set.
func (b *Buffer) Flush(path string) (*segment.OnDiskSegment, error) {
	keys := b.sortedKeys()

	samples := make([]sparseSample, 0, len(keys)/SampleFactor+1)
	var dataLocalOffset int64
	for i, key := range keys {
		if i%SampleFactor == 0 {
			samples = append(samples, sparseSample{key: key, dataLocalOffset: dataLocalOffset})
		}
		dataLocalOffset += codec.DataRecord{Key: key, Value: b.entries[key]}.EncodedSize()
	}

	indexSectionSize := int64(codec.SizeLen)
	for _, s := range samples {
		indexSectionSize += codec.IndexRecord{Key: s.key}.EncodedSize()
	}
	absoluteDataSectionStart := indexSectionSize + int64(codec.SizeLen)

	file, err := os.Create(path)
	if err != nil {
		return nil, errors.ClassifyFileOpenError(err, path, path)
	}

	if werr := writeSegment(file, keys, b.entries, samples, absoluteDataSectionStart); werr != nil {
		file.Close()
		return nil, werr
	}

	if err := file.Sync(); err != nil {
		file.Close()
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to sync flushed segment").WithPath(path)
	}
	if err := file.Close(); err != nil {
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to close flushed segment").WithPath(path)
	}

	return segment.Open(path)
}

// sparseSample is one candidate sparse-index entry recorded during the
// flush walk, before its data-local offset is known to be absolute.
type sparseSample struct {
	key             string
	dataLocalOffset int64
}

func writeSegment(
	file *os.File,
	keys []string,
	entries map[string][]byte,
	samples []sparseSample,
	absoluteDataSectionStart int64,
) error {
	if err := codec.WriteU32(file, uint32(len(samples))); err != nil {
		return wrapFlushErr(err, file.Name())
	}

	for _, s := range samples {
		rec := codec.IndexRecord{Key: s.key, Offset: uint64(absoluteDataSectionStart + s.dataLocalOffset)}
		if err := codec.WriteIndexRecord(file, rec); err != nil {
			return wrapFlushErr(err, file.Name())
		}
	}

	if err := codec.WriteU32(file, uint32(len(keys))); err != nil {
		return wrapFlushErr(err, file.Name())
	}

	for _, key := range keys {
		rec := codec.DataRecord{Key: key, Value: entries[key]}
		if err := codec.WriteDataRecord(file, rec); err != nil {
			return wrapFlushErr(err, file.Name())
		}
	}

	return nil
}

func wrapFlushErr(err error, path string) error {
	return errors.NewStorageError(err, errors.ErrorCodeIO, "failed to write segment during flush").WithPath(path)
}
