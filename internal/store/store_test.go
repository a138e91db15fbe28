package store

import (
	"testing"

	"github.com/nilotpal-ignite/sstore/pkg/logger"
	"github.com/nilotpal-ignite/sstore/pkg/options"
	"github.com/nilotpal-ignite/sstore/pkg/segname"
)

func openTestStore(t *testing.T, segmentSizeLimit int) *Store {
	t.Helper()

	opts := options.NewDefaultOptions()
	options.WithDataDir(t.TempDir())(&opts)
	options.WithSegmentSizeLimit(segmentSizeLimit)(&opts)

	s, err := Open(&Config{Options: &opts, Logger: logger.Nop()})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutGetReadYourWrites(t *testing.T) {
	s := openTestStore(t, 1000)

	if err := s.Put("a", []byte("1")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	value, ok, err := s.Get("a")
	if err != nil || !ok || string(value) != "1" {
		t.Errorf("Get(a) = (%q, %v, %v), want (1, true, nil)", value, ok, err)
	}
}

func TestGetAbsentKeyIsStable(t *testing.T) {
	s := openTestStore(t, 1000)

	for i := 0; i < 3; i++ {
		if _, ok, err := s.Get("never-written"); err != nil || ok {
			t.Errorf("Get() iteration %d = (ok=%v, err=%v), want (false, nil)", i, ok, err)
		}
	}
}

func TestRolloverCreatesSegmentAndFreshBuffer(t *testing.T) {
	s := openTestStore(t, 5)

	for i := 0; i < 5; i++ {
		if err := s.Put(string(rune('a'+i)), []byte{byte(i)}); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
	}

	segs := s.Segments()
	if len(segs) != 1 {
		t.Fatalf("Segments() len = %d, want 1 after hitting the limit", len(segs))
	}
	if segs[0].KeyCount != 5 {
		t.Errorf("Segments()[0].KeyCount = %d, want 5", segs[0].KeyCount)
	}

	if s.buffer.Size() != 0 {
		t.Errorf("buffer.Size() = %d, want 0 immediately after rollover", s.buffer.Size())
	}
}

func TestGetPrefersBufferOverSegments(t *testing.T) {
	s := openTestStore(t, 2)

	if err := s.Put("k", []byte("old")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := s.Put("filler", []byte("x")); err != nil {
		t.Fatalf("Put() error = %v", err) // triggers rollover, "k" now on disk
	}
	if err := s.Put("k", []byte("new")); err != nil {
		t.Fatalf("Put() error = %v", err) // buffer now shadows the on-disk value
	}

	value, ok, err := s.Get("k")
	if err != nil || !ok || string(value) != "new" {
		t.Errorf("Get(k) = (%q, %v, %v), want (new, true, nil)", value, ok, err)
	}
}

func TestPersistenceAcrossReopen(t *testing.T) {
	opts := options.NewDefaultOptions()
	dataDir := t.TempDir()
	options.WithDataDir(dataDir)(&opts)
	options.WithSegmentSizeLimit(3)(&opts)

	s, err := Open(&Config{Options: &opts, Logger: logger.Nop()})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	for _, k := range []string{"a", "b", "c"} {
		if err := s.Put(k, []byte(k)); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := Open(&Config{Options: &opts, Logger: logger.Nop()})
	if err != nil {
		t.Fatalf("reopen Open() error = %v", err)
	}
	defer reopened.Close()

	for _, k := range []string{"a", "b", "c"} {
		value, ok, err := reopened.Get(k)
		if err != nil || !ok || string(value) != k {
			t.Errorf("Get(%q) after reopen = (%q, %v, %v), want (%q, true, nil)", k, value, ok, err, k)
		}
	}
	if segs := reopened.Segments(); len(segs) != 1 {
		t.Errorf("Segments() after reopen = %d segments, want 1", len(segs))
	}
}

func TestMergePreservesNewestWins(t *testing.T) {
	s := openTestStore(t, 1)

	if err := s.Put("x", []byte("v1")); err != nil { // segment 1
		t.Fatalf("Put() error = %v", err)
	}
	if err := s.Put("x", []byte("v2")); err != nil { // segment 2, newer
		t.Fatalf("Put() error = %v", err)
	}
	if err := s.Put("y", []byte("only")); err != nil { // segment 3
		t.Fatalf("Put() error = %v", err)
	}

	if err := s.Merge(); err != nil {
		t.Fatalf("Merge() error = %v", err)
	}

	segs := s.Segments()
	if len(segs) != 1 {
		t.Fatalf("Segments() after merge = %d, want 1", len(segs))
	}
	if segs[0].KeyCount != 2 {
		t.Errorf("merged KeyCount = %d, want 2", segs[0].KeyCount)
	}

	value, ok, err := s.Get("x")
	if err != nil || !ok || string(value) != "v2" {
		t.Errorf("Get(x) after merge = (%q, %v, %v), want (v2, true, nil)", value, ok, err)
	}
	value, ok, err = s.Get("y")
	if err != nil || !ok || string(value) != "only" {
		t.Errorf("Get(y) after merge = (%q, %v, %v), want (only, true, nil)", value, ok, err)
	}
}

func TestMergeNoopWithAtMostOneSegment(t *testing.T) {
	s := openTestStore(t, 1000)

	if err := s.Put("a", []byte("1")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := s.Merge(); err != nil {
		t.Fatalf("Merge() on a store with no on-disk segments error = %v", err)
	}
	if len(s.Segments()) != 0 {
		t.Errorf("Segments() = %d, want 0 (buffer never flushed)", len(s.Segments()))
	}
}

func TestSegmentsSnapshotOrderedOldestFirst(t *testing.T) {
	s := openTestStore(t, 1)

	for i := 0; i < 3; i++ {
		if err := s.Put(string(rune('a'+i)), []byte{byte(i)}); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
	}

	segs := s.Segments()
	if len(segs) != 3 {
		t.Fatalf("Segments() len = %d, want 3", len(segs))
	}
	for i, seg := range segs {
		if seg.KeyCount != 1 {
			t.Errorf("Segments()[%d].KeyCount = %d, want 1", i, seg.KeyCount)
		}
		if want := segname.Path(s.dataDir, uint64(i+1)); seg.Path != want {
			t.Errorf("Segments()[%d].Path = %q, want %q (oldest first)", i, seg.Path, want)
		}
	}
}
