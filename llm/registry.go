package llm

import (
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/caravel-hq/caravel/config"
)

// Registry is the process-wide cache of clients keyed by profile name.
// It is owned by the application's composition root: at most one client
// is constructed per distinct name, even under concurrent first use,
// and entries are never evicted. Profile changes on disk therefore
// apply only to names requested for the first time afterwards.
type Registry struct {
	cfg  *config.Config
	opts []ClientOption

	group   singleflight.Group
	mu      sync.RWMutex
	clients map[string]*Client
}

// NewRegistry creates a registry resolving profiles from cfg. The
// client options are applied to every client the registry constructs.
func NewRegistry(cfg *config.Config, opts ...ClientOption) *Registry {
	return &Registry{
		cfg:     cfg,
		opts:    opts,
		clients: make(map[string]*Client),
	}
}

// Get returns the client for the named profile, constructing it on
// first use. Concurrent first-use calls for the same name observe the
// identical instance.
func (r *Registry) Get(name string) *Client {
	r.mu.RLock()
	c, ok := r.clients[name]
	r.mu.RUnlock()
	if ok {
		return c
	}

	v, _, _ := r.group.Do(name, func() (any, error) {
		r.mu.RLock()
		c, ok := r.clients[name]
		cfg := r.cfg
		r.mu.RUnlock()
		if ok {
			return c, nil
		}

		c = New(cfg.Profile(name), r.opts...)
		r.mu.Lock()
		r.clients[name] = c
		r.mu.Unlock()
		return c, nil
	})
	return v.(*Client)
}

// Clients returns a snapshot of every client constructed so far,
// keyed by profile name.
func (r *Registry) Clients() map[string]*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]*Client, len(r.clients))
	for name, c := range r.clients {
		out[name] = c
	}
	return out
}

// Default returns the client for the default profile.
func (r *Registry) Default() *Client {
	return r.Get(config.DefaultProfileName)
}

// SetConfig swaps the configuration used for profiles resolved from now
// on. Existing clients are untouched.
func (r *Registry) SetConfig(cfg *config.Config) {
	r.mu.Lock()
	r.cfg = cfg
	r.mu.Unlock()
}
