package transfer

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Registry keeps the views opened by page loads until they go idle.
type Registry struct {
	backend Backend
	opts    []ViewOption
	ttl     time.Duration
	now     func() time.Time

	mu    sync.Mutex
	views map[string]*entry
}

type entry struct {
	owner    UserID
	view     *View
	lastSeen time.Time
}

func NewRegistry(backend Backend, ttl time.Duration, opts ...ViewOption) *Registry {
	return &Registry{
		backend: backend,
		opts:    opts,
		ttl:     ttl,
		now:     time.Now,
		views:   make(map[string]*entry),
	}
}

// Open creates a fresh view owned by owner.
func (r *Registry) Open(owner UserID) (string, *View) {
	id := uuid.NewString()
	v := NewView(r.backend, r.opts...)
	r.mu.Lock()
	r.views[id] = &entry{owner: owner, view: v, lastSeen: r.now()}
	r.mu.Unlock()
	return id, v
}

// Get returns the view if it exists and belongs to owner.
func (r *Registry) Get(id string, owner UserID) (*View, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.views[id]
	if !ok || e.owner != owner {
		return nil, false
	}
	e.lastSeen = r.now()
	return e.view, true
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.views)
}

// Sweep drops views idle for longer than the TTL and returns how many went.
// Views with a submission in flight are kept.
func (r *Registry) Sweep(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, e := range r.views {
		if now.Sub(e.lastSeen) <= r.ttl {
			continue
		}
		if e.view.State().Phase != PhaseIdle {
			continue
		}
		delete(r.views, id)
		n++
	}
	return n
}

// Run sweeps every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := r.Sweep(now); n > 0 {
				log.Printf("transfer: evicted %d idle views (%d open)", n, r.Len())
			}
		}
	}
}
