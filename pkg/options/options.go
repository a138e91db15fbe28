// Package options provides data structures and functions for configuring
// the Ignite SSTable store. It defines the two parameters spec-compatible
// implementations recognize — the data directory and the buffer flush
// threshold — plus ambient knobs for logging and cross-process locking.
package options

import (
	"strings"

	"github.com/nilotpal-ignite/sstore/pkg/errors"
)

// Options defines the configuration parameters for an Ignite store instance.
type Options struct {
	// DataDir is the directory the store owns. It holds every seg-<n>.sst
	// segment file plus the advisory lock file. Mandatory.
	DataDir string `json:"dataDir"`

	// SegmentSizeLimit is the number of distinct keys the in-memory buffer
	// may hold before a flush is triggered. Must be positive.
	//
	// Default: 1024
	SegmentSizeLimit int `json:"segmentSizeLimit"`

	// Development selects a human-friendly zap logger instead of the
	// production JSON encoder. Ambient, does not affect on-disk format.
	Development bool `json:"development"`

	// DisableLock skips the advisory flock(2) acquisition on Open. Intended
	// for tests that open the same directory from multiple goroutines on
	// purpose, or for read-only inspection tools.
	DisableLock bool `json:"disableLock"`
}

// OptionFunc is a function type that modifies the store's configuration.
type OptionFunc func(*Options)

// WithDataDir sets the mandatory data directory for the store.
func WithDataDir(directory string) OptionFunc {
	return func(o *Options) {
		directory = strings.TrimSpace(directory)
		if directory != "" {
			o.DataDir = directory
		}
	}
}

// WithSegmentSizeLimit sets the buffer entry count at which a flush fires.
// Non-positive values are ignored, leaving the previous (or default) limit
// in place; Validate rejects a non-positive limit that was set directly.
func WithSegmentSizeLimit(limit int) OptionFunc {
	return func(o *Options) {
		if limit > 0 {
			o.SegmentSizeLimit = limit
		}
	}
}

// WithDevelopmentLogging switches the store's logger to zap's development
// encoder, which is easier to read in a terminal than the production JSON.
func WithDevelopmentLogging() OptionFunc {
	return func(o *Options) { o.Development = true }
}

// WithoutProcessLock disables the advisory cross-process file lock that
// Open otherwise acquires on DataDir.
func WithoutProcessLock() OptionFunc {
	return func(o *Options) { o.DisableLock = true }
}

// Validate checks that Options describes a usable store configuration.
// It is called by the store at Open time, after defaults and functional
// options have both been applied.
func (o *Options) Validate() error {
	if strings.TrimSpace(o.DataDir) == "" {
		return errors.NewRequiredFieldError("DataDir")
	}
	if o.SegmentSizeLimit <= 0 {
		return errors.NewFieldRangeError("SegmentSizeLimit", o.SegmentSizeLimit, 1, nil)
	}
	return nil
}
