package camera

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type entry struct {
	controller *Controller
	lastUsed   time.Time
}

// Registry keeps one controller per session so that each session holds at
// most one stream.
type Registry struct {
	device Device
	logger *zap.Logger
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
}

// NewRegistry builds an empty registry over device. A nil device makes every
// Start fail with ErrNoDevice.
func NewRegistry(device Device, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		device:  device,
		logger:  logger,
		now:     time.Now,
		entries: make(map[string]*entry),
	}
}

// Enabled reports whether a device is configured.
func (r *Registry) Enabled() bool {
	return r.device != nil
}

// Controller returns the session's controller, creating it when needed.
func (r *Registry) Controller(sessionID string) *Controller {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[sessionID]
	if !ok {
		e = &entry{controller: NewController(r.device, r.logger.With(zap.String("session_id", sessionID)))}
		r.entries[sessionID] = e
	}
	e.lastUsed = r.now()
	return e.controller
}

// Peek returns the session's controller without creating one.
func (r *Registry) Peek(sessionID string) (*Controller, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[sessionID]
	if !ok {
		return nil, false
	}
	return e.controller, true
}

// Release stops the session's stream, if any, and forgets the controller.
func (r *Registry) Release(sessionID string) {
	r.mu.Lock()
	e, ok := r.entries[sessionID]
	delete(r.entries, sessionID)
	r.mu.Unlock()

	if ok {
		e.controller.Release()
	}
}

// Sweep releases controllers unused for longer than idle and returns how
// many were released.
func (r *Registry) Sweep(idle time.Duration) int {
	cutoff := r.now().Add(-idle)

	r.mu.Lock()
	var stale []*Controller
	for id, e := range r.entries {
		if e.lastUsed.Before(cutoff) {
			stale = append(stale, e.controller)
			delete(r.entries, id)
		}
	}
	r.mu.Unlock()

	for _, c := range stale {
		c.Release()
	}
	return len(stale)
}

// RunSweeper calls Sweep every interval until ctx is done.
func (r *Registry) RunSweeper(ctx context.Context, idle time.Duration) {
	interval := idle / 2
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(idle); n > 0 {
				r.logger.Info("released idle camera streams", zap.Int("count", n))
			}
		}
	}
}

// ReleaseAll stops every held stream.
func (r *Registry) ReleaseAll() {
	r.mu.Lock()
	all := r.entries
	r.entries = make(map[string]*entry)
	r.mu.Unlock()

	for _, e := range all {
		e.controller.Release()
	}
}
