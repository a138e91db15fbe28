// Package segname manages the fixed on-disk segment naming scheme for the
// SSTable store.
//
// Filename format: seg-<n>.sst
//
// Where n is a positive decimal integer with no zero-padding. The numeric
// suffix orders segments from oldest (smallest n) to newest (largest n);
// unlike a timestamp-based scheme, n is exactly the segment's position in
// the store's segment list, assigned at flush or merge time.
//
// Example filenames:
//
//	seg-1.sst
//	seg-2.sst
//	seg-42.sst
package segname

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/nilotpal-ignite/sstore/pkg/filesys"
)

const (
	prefix    = "seg-"
	extension = ".sst"

	// TmpName is the transient replacement file merge writes before
	// renaming it into place as seg-1.sst.
	TmpName = "tmp.sst"
)

// Name formats the filename for segment n.
func Name(n uint64) string {
	return fmt.Sprintf("%s%d%s", prefix, n, extension)
}

// Path joins dataDir with the formatted filename for segment n.
func Path(dataDir string, n uint64) string {
	return filepath.Join(dataDir, Name(n))
}

// Parse extracts the numeric suffix from a segment filename. It returns
// false if name does not match the seg-<n>.sst scheme.
func Parse(name string) (uint64, bool) {
	if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, extension) {
		return 0, false
	}
	core := strings.TrimSuffix(strings.TrimPrefix(name, prefix), extension)
	n, err := strconv.ParseUint(core, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// List scans dataDir for seg-<n>.sst files and returns their numeric
// suffixes in ascending order, which is load order per the spec: smallest
// n is oldest, largest n is newest.
func List(dataDir string) ([]uint64, error) {
	matches, err := filesys.ReadDir(filepath.Join(dataDir, prefix+"*"+extension))
	if err != nil {
		return nil, err
	}

	ids := make([]uint64, 0, len(matches))
	for _, m := range matches {
		id, ok := Parse(filepath.Base(m))
		if !ok {
			continue
		}
		ids = append(ids, id)
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}
