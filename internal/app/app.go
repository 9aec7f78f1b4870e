// Package app is the composition root for per-visitor state. Each visitor gets one Theme Store
// and one Session Store, built on a storage namespace of their own.
package app

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	applog "hopper/internal/log"
	"hopper/internal/session"
	"hopper/internal/storage"
	"hopper/internal/theme"
)

// Providers is the handle passed to everything that renders for a visitor.
type Providers struct {
	VisitorID string
	Theme     *theme.Store
	Session   *session.Store
}

// NewProviders builds both stores for visitorID. The theme marker only logs: pages read the
// visible dark marker from theme.Resolve when the layout renders.
func NewProviders(ctx context.Context, visitorID string, backend storage.Accessor, gw session.Gateway, defaultDark bool) *Providers {
	acc := storage.Scoped(backend, "visitor:"+visitorID)
	ctx = applog.With(ctx, "visitor", visitorID)

	marker := theme.MarkerFunc(func(isDark bool) {
		applog.Debug(ctx, "theme applied", "isDark", isDark)
	})

	return &Providers{
		VisitorID: visitorID,
		Theme:     theme.New(ctx, acc, defaultDark, theme.WithMarker(marker)),
		Session:   session.New(ctx, gw, acc),
	}
}

// Close detaches the stores. Persisted values are kept.
func (p *Providers) Close() {
	if p == nil {
		return
	}
	p.Session.Close()
}

// Config controls a Registry.
type Config struct {
	Backend     storage.Accessor
	Gateway     session.Gateway
	DefaultDark bool
	IdleTTL     time.Duration
}

// Registry keeps live Providers per visitor and drops them after IdleTTL without a request.
type Registry struct {
	cfg      Config
	mu       sync.Mutex
	items    *gocache.Cache
	building singleflight.Group
}

// NewRegistry creates an empty registry.
func NewRegistry(cfg Config) *Registry {
	cfg.Backend = storage.Or(cfg.Backend)

	expiry := gocache.NoExpiration
	cleanup := time.Duration(0)
	if cfg.IdleTTL > 0 {
		expiry = cfg.IdleTTL
		cleanup = cfg.IdleTTL / 2
	}

	items := gocache.New(expiry, cleanup)
	items.OnEvicted(func(visitorID string, value any) {
		if p, ok := value.(*Providers); ok {
			p.Close()
		}
	})
	return &Registry{cfg: cfg, items: items}
}

// Get returns the visitor's Providers, creating them on first use. Every call restarts the
// idle timer. Creation touches storage, so it runs outside the registry lock and concurrent
// first requests for one visitor share a single build.
func (r *Registry) Get(ctx context.Context, visitorID string) *Providers {
	if p, ok := r.lookup(visitorID); ok {
		return p
	}

	value, _, _ := r.building.Do(visitorID, func() (any, error) {
		if p, ok := r.lookup(visitorID); ok {
			return p, nil
		}

		applog.Debug(ctx, "creating visitor providers", "visitor", visitorID)
		p := NewProviders(ctx, visitorID, r.cfg.Backend, r.cfg.Gateway, r.cfg.DefaultDark)

		r.mu.Lock()
		defer r.mu.Unlock()
		if existing, ok := r.items.Get(visitorID); ok {
			p.Close()
			return existing, nil
		}
		// An expired entry may still await the janitor; evict it so its stores are closed.
		r.items.Delete(visitorID)
		r.items.SetDefault(visitorID, p)
		return p, nil
	})
	return value.(*Providers)
}

func (r *Registry) lookup(visitorID string) (*Providers, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	value, ok := r.items.Get(visitorID)
	if !ok {
		return nil, false
	}
	p := value.(*Providers)
	r.items.SetDefault(visitorID, p)
	return p, true
}

// Forget drops the visitor's live stores.
func (r *Registry) Forget(visitorID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items.Delete(visitorID)
}

// Len reports how many visitors are live.
func (r *Registry) Len() int {
	return r.items.ItemCount()
}

// Close detaches every live visitor.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range r.items.Items() {
		if p, ok := item.Object.(*Providers); ok {
			p.Close()
		}
	}
	r.items.Flush()
}
