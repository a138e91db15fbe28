// Package ignite provides a persistent, ordered key/value store built on
// the log-structured SSTable pattern: an in-memory sorted buffer absorbs
// writes, flushes to immutable on-disk segments with a sparse index, and
// a merge operation compacts all segments into one. It is designed for
// workloads that can tolerate single-writer discipline in exchange for a
// simple, durable, append-mostly storage model.
package ignite

import (
	"context"

	"github.com/nilotpal-ignite/sstore/internal/engine"
	"github.com/nilotpal-ignite/sstore/internal/store"
	"github.com/nilotpal-ignite/sstore/pkg/logger"
	"github.com/nilotpal-ignite/sstore/pkg/options"
)

// SegmentInfo is a point-in-time snapshot of one on-disk segment.
type SegmentInfo = store.SegmentInfo

// Instance is the primary entry point for interacting with the Ignite
// store, wrapping the underlying engine and the options it was opened
// with.
type Instance struct {
	engine  *engine.Engine
	options *options.Options
}

// Open bootstraps (or reopens) the data directory named by WithDataDir
// and returns an Instance ready for Put/Get/Merge.
func Open(ctx context.Context, service string, opts ...options.OptionFunc) (*Instance, error) {
	defaultOpts := options.NewDefaultOptions()
	for _, opt := range opts {
		opt(&defaultOpts)
	}

	log := logger.New(service, defaultOpts.Development)

	eng, err := engine.New(ctx, &engine.Config{Logger: log, Options: &defaultOpts})
	if err != nil {
		return nil, err
	}

	return &Instance{engine: eng, options: &defaultOpts}, nil
}

// Put stores a key-value pair. If the key already exists, its value is
// overwritten; the new value is visible to Get as soon as Put returns,
// since it lands in the active buffer, which Get consults first.
func (i *Instance) Put(ctx context.Context, key string, value []byte) error {
	return i.engine.Put(ctx, key, value)
}

// Get retrieves the value associated with key. The second return reports
// whether key was found; (nil, false, nil) means key is absent, which is
// not an error.
func (i *Instance) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return i.engine.Get(ctx, key)
}

// Merge compacts every on-disk segment into a single replacement segment,
// keeping the newest value for each key across all prior segments.
func (i *Instance) Merge(ctx context.Context) error {
	return i.engine.Merge(ctx)
}

// Segments returns a snapshot of the current on-disk segment list, oldest
// first.
func (i *Instance) Segments(ctx context.Context) ([]SegmentInfo, error) {
	return i.engine.Segments()
}

// Close gracefully shuts down the Ignite instance, releasing the
// cross-process advisory lock acquired at Open.
func (i *Instance) Close(ctx context.Context) error {
	return i.engine.Close()
}
