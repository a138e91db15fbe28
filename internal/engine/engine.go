// Package engine provides the core database engine implementation for the
// Ignite SSTable store.
//
// The engine is a thin lifecycle wrapper around internal/store.Store: it
// owns the closed/open state transition and delegates every data
// operation straight through. It uses atomic operations for state
// management to provide consistent behavior across concurrent Close calls.
package engine

import (
	"context"
	"errors"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/nilotpal-ignite/sstore/internal/store"
	"github.com/nilotpal-ignite/sstore/pkg/options"
)

// ErrEngineClosed is returned when attempting to perform operations on a closed engine.
var ErrEngineClosed = errors.New("operation failed: cannot access closed engine")

// Engine coordinates the store's lifecycle and exposes the put/get/merge
// surface the public facade calls through to.
type Engine struct {
	options *options.Options
	log     *zap.SugaredLogger
	closed  atomic.Bool
	store   *store.Store
}

// Config holds all the parameters needed to initialize a new Engine instance.
type Config struct {
	Options *options.Options
	Logger  *zap.SugaredLogger
}

// New opens the underlying store and returns an Engine ready for use.
func New(ctx context.Context, config *Config) (*Engine, error) {
	st, err := store.Open(&store.Config{Options: config.Options, Logger: config.Logger})
	if err != nil {
		return nil, err
	}

	return &Engine{options: config.Options, log: config.Logger, store: st}, nil
}

// Put writes key/value through to the store, unless the engine is closed.
func (e *Engine) Put(ctx context.Context, key string, value []byte) error {
	if e.closed.Load() {
		return ErrEngineClosed
	}
	return e.store.Put(key, value)
}

// Get reads key's current value, consulting the buffer then the on-disk
// segments newest-first. The second return distinguishes absence from error.
func (e *Engine) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if e.closed.Load() {
		return nil, false, ErrEngineClosed
	}
	return e.store.Get(key)
}

// Merge compacts every on-disk segment into one.
func (e *Engine) Merge(ctx context.Context) error {
	if e.closed.Load() {
		return ErrEngineClosed
	}
	return e.store.Merge()
}

// Segments returns a snapshot of the current on-disk segment list.
func (e *Engine) Segments() ([]store.SegmentInfo, error) {
	if e.closed.Load() {
		return nil, ErrEngineClosed
	}
	return e.store.Segments(), nil
}

// Close gracefully shuts down the engine, releasing the store's advisory
// lock. It is idempotent: a second call returns ErrEngineClosed.
func (e *Engine) Close() error {
	// Use atomic compare-and-swap to transition from open (false) to closed (true).
	// This operation is atomic and thread-safe, ensuring only one goroutine
	// can successfully close the engine.
	if !e.closed.CompareAndSwap(false, true) {
		return ErrEngineClosed
	}

	return e.store.Close()
}
