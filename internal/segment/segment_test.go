package segment_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/nilotpal-ignite/sstore/internal/memtable"
	"github.com/nilotpal-ignite/sstore/internal/segment"
	"github.com/nilotpal-ignite/sstore/pkg/errors"
)

// buildSegment flushes a memtable.Buffer holding keys "key-000".."key-0NN"
// and returns the resulting OnDiskSegment, for tests that need a real
// sparse-indexed fixture larger than one sample stride.
func buildSegment(t *testing.T, n int) *segment.OnDiskSegment {
	t.Helper()

	b := memtable.New()
	for i := 0; i < n; i++ {
		key := fmt.Sprintf("key-%03d", i)
		b.Put(key, []byte(fmt.Sprintf("value-%d", i)))
	}

	seg, err := b.Flush(filepath.Join(t.TempDir(), "seg-1.sst"))
	if err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	return seg
}

func TestGetExactSparseHit(t *testing.T) {
	seg := buildSegment(t, 35) // samples at indices 0, 10, 20, 30

	value, ok, err := seg.Get("key-010")
	if err != nil || !ok || string(value) != "value-10" {
		t.Errorf("Get(key-010) = (%q, %v, %v), want (value-10, true, nil)", value, ok, err)
	}
}

func TestGetBetweenSamples(t *testing.T) {
	seg := buildSegment(t, 35)

	value, ok, err := seg.Get("key-015")
	if err != nil || !ok || string(value) != "value-15" {
		t.Errorf("Get(key-015) = (%q, %v, %v), want (value-15, true, nil)", value, ok, err)
	}
}

func TestGetFirstAndLastKey(t *testing.T) {
	seg := buildSegment(t, 35)

	if value, ok, err := seg.Get("key-000"); err != nil || !ok || string(value) != "value-0" {
		t.Errorf("Get(key-000) = (%q, %v, %v), want (value-0, true, nil)", value, ok, err)
	}
	if value, ok, err := seg.Get("key-034"); err != nil || !ok || string(value) != "value-34" {
		t.Errorf("Get(key-034) = (%q, %v, %v), want (value-34, true, nil)", value, ok, err)
	}
}

func TestGetAbsentKeyBeforeFirstAndAfterLast(t *testing.T) {
	seg := buildSegment(t, 35)

	if _, ok, err := seg.Get("key-"); err != nil || ok {
		t.Errorf("Get(before-first) = (ok=%v, err=%v), want (false, nil)", ok, err)
	}
	if _, ok, err := seg.Get("zzz"); err != nil || ok {
		t.Errorf("Get(after-last) = (ok=%v, err=%v), want (false, nil)", ok, err)
	}
}

func TestGetAbsentKeyWithinWindow(t *testing.T) {
	seg := buildSegment(t, 35)

	// key-014b sorts between key-014 and key-015, inside a scan window,
	// but was never written.
	if _, ok, err := seg.Get("key-014b"); err != nil || ok {
		t.Errorf("Get(key-014b) = (ok=%v, err=%v), want (false, nil)", ok, err)
	}
}

func TestGetAllKeysExhaustive(t *testing.T) {
	const n = 47 // not a multiple of SampleFactor, exercises a partial last window
	seg := buildSegment(t, n)

	for i := 0; i < n; i++ {
		key := fmt.Sprintf("key-%03d", i)
		want := fmt.Sprintf("value-%d", i)
		got, ok, err := seg.Get(key)
		if err != nil || !ok || string(got) != want {
			t.Errorf("Get(%q) = (%q, %v, %v), want (%q, true, nil)", key, got, ok, err, want)
		}
	}
}

func TestIterateYieldsAllRecordsInOrder(t *testing.T) {
	const n = 25
	seg := buildSegment(t, n)

	it, err := seg.Iterate()
	if err != nil {
		t.Fatalf("Iterate() error = %v", err)
	}
	defer it.Close()

	i := 0
	for it.Next() {
		want := fmt.Sprintf("key-%03d", i)
		if it.Key() != want {
			t.Errorf("iteration[%d] key = %q, want %q", i, it.Key(), want)
		}
		i++
	}
	if err := it.Err(); err != nil {
		t.Fatalf("iterator error = %v", err)
	}
	if i != n {
		t.Errorf("iterated %d records, want %d", i, n)
	}
}

func TestIterateConcurrentWithGet(t *testing.T) {
	seg := buildSegment(t, 30)

	it, err := seg.Iterate()
	if err != nil {
		t.Fatalf("Iterate() error = %v", err)
	}
	defer it.Close()

	it.Next() // advance the iterator's own handle partway through

	if _, ok, err := seg.Get("key-005"); err != nil || !ok {
		t.Errorf("Get() while an iterator is open failed: ok=%v err=%v", ok, err)
	}
}

func TestOpenMalformedHeaderReturnsStorageError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.sst")
	// index_count claims 1 entry but the file ends immediately after.
	buf := []byte{0, 0, 0, 1}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatalf("os.WriteFile() error = %v", err)
	}

	_, err := segment.Open(path)
	if err == nil {
		t.Fatal("Open() expected an error on truncated header, got nil")
	}
	if !errors.IsStorageError(err) {
		t.Errorf("Open() error is not a StorageError: %v", err)
	}
}
