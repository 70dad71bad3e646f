package toolregistry

import (
	"context"
	"log/slog"
	"sync"
)

// DependencyInstaller makes a best-effort attempt to satisfy a tool's
// declared dependency list before its first invocation, grounded on the
// Python original's tool_loader.py (try import, else `pip install`).
// Go tools declare dependencies as shell packages (apt/system binaries) or
// language runtimes their subprocess needs, not Go modules: a Go tool's own
// imports are resolved at build time, so there is nothing to install for
// the tool process itself.
type DependencyInstaller interface {
	// Ensure installs dep if it is not already satisfied. Failures are
	// logged and swallowed by callers, matching the original's
	// best-effort semantics: a missing dependency surfaces later as a
	// subprocess execution failure, not a load-time error.
	Ensure(ctx context.Context, dep string) error
}

// idempotentInstaller wraps a DependencyInstaller so repeated Ensure calls
// for the same dependency across many tool loads only attempt installation
// once per process lifetime.
type idempotentInstaller struct {
	mu        sync.Mutex
	attempted map[string]error
	inner     DependencyInstaller
	logger    *slog.Logger
}

// NewIdempotentInstaller wraps inner so each distinct dependency is only
// ever installed once, caching both success and failure.
func NewIdempotentInstaller(inner DependencyInstaller, logger *slog.Logger) DependencyInstaller {
	if logger == nil {
		logger = slog.Default()
	}
	return &idempotentInstaller{attempted: make(map[string]error), inner: inner, logger: logger}
}

func (i *idempotentInstaller) Ensure(ctx context.Context, dep string) error {
	i.mu.Lock()
	if err, ok := i.attempted[dep]; ok {
		i.mu.Unlock()
		return err
	}
	i.mu.Unlock()

	err := i.inner.Ensure(ctx, dep)
	if err != nil {
		i.logger.Warn("dependency install failed, continuing best-effort", "dependency", dep, "error", err)
	}

	i.mu.Lock()
	i.attempted[dep] = err
	i.mu.Unlock()
	return err
}

// NoopInstaller treats every dependency as already satisfied. Used when a
// tool directory contains system tools whose dependencies are guaranteed
// present by the deployment image.
type NoopInstaller struct{}

func (NoopInstaller) Ensure(context.Context, string) error { return nil }
