// Package handle implements scope-bound ownership of native SDK resources.
// Every handle returned by a backend call is wrapped here so that release
// happens on every exit path, exactly once, even when a later step using the
// handle fails. Handles are never copied: passing one to another component
// passes ownership, not a second reference.
package handle

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReleaseFunc frees the underlying native resource. It is invoked at most
// once for a given Handle.
type ReleaseFunc func() error

// Handle owns a single native resource. The zero value is not usable; create
// handles with New as the direct result of a successful backend call.
type Handle struct {
	id      string
	kind    string
	release ReleaseFunc
	logger  *zap.Logger

	once   sync.Once
	closed atomic.Bool
	err    error
}

// New wraps a native resource in an owning Handle. kind names the resource
// class for diagnostics (e.g. "request"). A nil release is treated as a
// no-op; a nil logger disables release-failure logging.
func New(kind string, release ReleaseFunc, logger *zap.Logger) *Handle {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handle{
		id:      uuid.NewString(),
		kind:    kind,
		release: release,
		logger:  logger,
	}
}

// ID returns the handle's identifier. Read-only.
func (h *Handle) ID() string { return h.id }

// Kind returns the resource class this handle owns. Read-only.
func (h *Handle) Kind() string { return h.kind }

// Closed reports whether the handle has been released.
func (h *Handle) Closed() bool { return h.closed.Load() }

// Close releases the underlying resource. Only the first call releases;
// subsequent calls return the result of the first. A release failure is
// logged and returned, but the handle is still considered closed; the
// native side gets exactly one release attempt.
func (h *Handle) Close() error {
	h.once.Do(func() {
		h.closed.Store(true)
		if h.release == nil {
			return
		}
		if err := h.release(); err != nil {
			h.err = err
			h.logger.Warn("handle release failed",
				zap.String("handle_id", h.id),
				zap.String("kind", h.kind),
				zap.Error(err),
			)
		}
	})
	return h.err
}

// Group owns an ordered set of handles acquired during a multi-step
// operation. Closing the group releases every handle in reverse acquisition
// order; a failed release never prevents releasing the handles acquired
// before it.
type Group struct {
	mu      sync.Mutex
	handles []*Handle
}

// Add transfers ownership of h to the group.
func (g *Group) Add(h *Handle) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.handles = append(g.handles, h)
}

// Len returns the number of handles the group currently owns.
func (g *Group) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.handles)
}

// Close releases all owned handles in reverse acquisition order and returns
// the release failures joined together, or nil if every release succeeded.
func (g *Group) Close() error {
	g.mu.Lock()
	handles := g.handles
	g.handles = nil
	g.mu.Unlock()

	var errs []error
	for i := len(handles) - 1; i >= 0; i-- {
		if err := handles[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
