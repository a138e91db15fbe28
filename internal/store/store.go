// Package store implements the single orchestrator that owns a data
// directory: the active in-memory buffer, the ordered list of on-disk
// segments, and the put/get/merge operations that coordinate them.
//
// All state-mutating and state-reading methods serialize behind a single
// sync.Mutex. A sync.RWMutex is deliberately not used: letting concurrent
// Gets run while a Put is rolling the buffer over would violate the
// strict mutual-exclusion the store promises its callers.
package store

import (
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/nilotpal-ignite/sstore/internal/memtable"
	"github.com/nilotpal-ignite/sstore/internal/segment"
	"github.com/nilotpal-ignite/sstore/pkg/errors"
	"github.com/nilotpal-ignite/sstore/pkg/filesys"
	"github.com/nilotpal-ignite/sstore/pkg/options"
	"github.com/nilotpal-ignite/sstore/pkg/segname"
)

// Config holds the parameters needed to open a Store.
type Config struct {
	Options *options.Options
	Logger  *zap.SugaredLogger
}

// SegmentInfo is a point-in-time snapshot of one on-disk segment, returned
// by Segments for inspection.
type SegmentInfo struct {
	Path     string
	Size     int64
	KeyCount uint32
}

// Store owns one data directory: an active memtable.Buffer absorbing
// writes and an ordered (oldest-first) list of on-disk segments consulted
// newest-first on a buffer miss.
type Store struct {
	mu sync.Mutex

	dataDir          string
	segmentSizeLimit int
	log              *zap.SugaredLogger

	buffer   *memtable.Buffer
	segments []*segment.OnDiskSegment
	nextID   uint64

	lockFile *os.File
}

// Open bootstraps the data directory if needed, acquires the advisory
// cross-process lock unless disabled, scans for existing seg-<n>.sst
// files in ascending order, and opens each as an OnDiskSegment.
func Open(config *Config) (*Store, error) {
	opts := config.Options
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	existed, err := filesys.Exists(opts.DataDir)
	if err != nil {
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to check data directory existence").WithPath(opts.DataDir)
	}

	if err := filesys.CreateDir(opts.DataDir, 0o755, true); err != nil {
		return nil, errors.ClassifyDirectoryCreationError(err, opts.DataDir)
	}

	s := &Store{
		dataDir:          opts.DataDir,
		segmentSizeLimit: opts.SegmentSizeLimit,
		log:              config.Logger,
		buffer:           memtable.New(),
		nextID:           1,
	}

	if !opts.DisableLock {
		lockFile, err := acquireLock(opts.DataDir)
		if err != nil {
			return nil, err
		}
		s.lockFile = lockFile
	}

	ids, err := segname.List(opts.DataDir)
	if err != nil {
		s.releaseLock()
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to list existing segments").WithPath(opts.DataDir)
	}

	for _, id := range ids {
		seg, err := segment.Open(segname.Path(opts.DataDir, id))
		if err != nil {
			s.releaseLock()
			return nil, err
		}
		s.segments = append(s.segments, seg)
	}
	if len(ids) > 0 {
		s.nextID = ids[len(ids)-1] + 1
	}

	s.log.Infow("store opened", "dataDir", opts.DataDir, "segments", len(s.segments), "freshDirectory", !existed)
	return s, nil
}

// acquireLock opens (creating if absent) a .lock file in dataDir and takes
// a non-blocking exclusive flock(2) on it, rejecting a second Open on the
// same directory from any process while this one is live.
func acquireLock(dataDir string) (*os.File, error) {
	path := filepath.Join(dataDir, ".lock")

	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, errors.ClassifyFileOpenError(err, path, path)
	}

	if err := unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		file.Close()
		return nil, errors.NewStorageError(
			err, errors.ErrorCodeIO, "data directory is locked by another store instance",
		).WithPath(path)
	}

	return file, nil
}

func (s *Store) releaseLock() {
	if s.lockFile == nil {
		return
	}
	unix.Flock(int(s.lockFile.Fd()), unix.LOCK_UN)
	s.lockFile.Close()
	s.lockFile = nil
}

// Put writes key/value into the active buffer, rolling it over to a new
// on-disk segment if the configured entry-count limit is reached.
func (s *Store) Put(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.buffer.Put(key, value)

	if s.buffer.Size() >= s.segmentSizeLimit {
		return s.rollover()
	}
	return nil
}

// rollover flushes the active buffer to a new segment file and starts a
// fresh empty buffer. Callers must hold mu.
func (s *Store) rollover() error {
	path := segname.Path(s.dataDir, s.nextID)

	seg, err := s.buffer.Flush(path)
	if err != nil {
		return err
	}

	s.segments = append(s.segments, seg)
	s.nextID++
	s.buffer = memtable.New()

	s.log.Infow("segment flushed", "path", path, "keys", seg.KeyCount(), "size", seg.Size())
	return nil
}

// Get returns key's value, consulting the buffer first and then the
// on-disk segments newest-to-oldest. The second return reports presence;
// (nil, false, nil) means key is absent, which is not an error.
func (s *Store) Get(key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if value, ok := s.buffer.Get(key); ok {
		return value, true, nil
	}

	for i := len(s.segments) - 1; i >= 0; i-- {
		value, ok, err := s.segments[i].Get(key)
		if err != nil {
			return nil, false, err
		}
		if ok {
			return value, true, nil
		}
	}

	return nil, false, nil
}

// Merge compacts every on-disk segment into a single replacement segment,
// keeping the newest value for each key. It iterates segments
// newest-first, writes the deduplicated result to a temporary file,
// deletes the old segments, and renames the temporary file into place as
// seg-1.sst.
//
// This sequence is not crash-safe: a process that dies between deleting
// the old segments and completing the rename leaves the directory without
// a seg-1.sst. The spec this store implements keeps that gap open rather
// than guessing at a fix; see DESIGN.md.
func (s *Store) Merge() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.segments) <= 1 {
		return nil
	}

	merged := memtable.New()
	for i := len(s.segments) - 1; i >= 0; i-- {
		if err := collectInto(merged, s.segments[i]); err != nil {
			return err
		}
	}

	tmpPath := filepath.Join(s.dataDir, segname.TmpName)
	if _, err := merged.Flush(tmpPath); err != nil {
		return err
	}

	for _, seg := range s.segments {
		if err := filesys.DeleteFile(seg.Path()); err != nil {
			return errors.NewStorageError(err, errors.ErrorCodeIO, "failed to delete stale segment during merge").WithPath(seg.Path())
		}
	}

	finalPath := segname.Path(s.dataDir, 1)
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "failed to rename merged segment into place").WithPath(finalPath)
	}

	finalSeg, err := segment.Open(finalPath)
	if err != nil {
		return err
	}

	s.segments = []*segment.OnDiskSegment{finalSeg}
	s.nextID = 2

	s.log.Infow("merge completed", "path", finalPath, "keys", finalSeg.KeyCount())
	return nil
}

// collectInto copies every (key, value) from seg into merged, skipping
// keys merged already holds — merged is built newest segment first, so
// the first value seen for a key is always the newest.
func collectInto(merged *memtable.Buffer, seg *segment.OnDiskSegment) error {
	it, err := seg.Iterate()
	if err != nil {
		return err
	}
	defer it.Close()

	for it.Next() {
		if _, exists := merged.Get(it.Key()); exists {
			continue
		}
		merged.Put(it.Key(), it.Value())
	}

	return it.Err()
}

// Segments returns a snapshot of the current on-disk segment list, oldest
// first, taken under the store lock.
func (s *Store) Segments() []SegmentInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	info := make([]SegmentInfo, len(s.segments))
	for i, seg := range s.segments {
		info[i] = SegmentInfo{Path: seg.Path(), Size: seg.Size(), KeyCount: seg.KeyCount()}
	}
	return info
}

// Close flushes a non-empty active buffer to a new on-disk segment, so
// every write is readable after a reopen, and then releases the store's
// advisory lock. The lock is released even if the flush fails; the flush
// error is returned.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if s.buffer.Size() > 0 {
		err = s.rollover()
	}

	s.releaseLock()
	s.log.Infow("store closed", "dataDir", s.dataDir)
	return err
}
