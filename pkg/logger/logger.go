// Package logger builds the zap.SugaredLogger instances used throughout the
// store for structured logging. The store and the engine take one of these
// rather than reaching for the global zap logger, so
// tests can inject a no-op logger without touching package state.
package logger

import "go.uber.org/zap"

// New creates a SugaredLogger scoped to the given service name. Production
// builds use zap's JSON encoder; development mode trades structure for a
// console-friendly format.
func New(service string, development bool) *zap.SugaredLogger {
	var base *zap.Logger
	var err error

	if development {
		base, err = zap.NewDevelopment()
	} else {
		base, err = zap.NewProduction()
	}
	if err != nil {
		// zap's constructors only fail on a broken encoder/sink config,
		// which the two presets above never hit. Fall back rather than
		// leave callers with a nil logger.
		base = zap.NewNop()
	}

	return base.Named(service).Sugar()
}

// Nop returns a logger that discards everything, for tests that don't care
// about log output.
func Nop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
