package strata

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/strata-dev/strata/pkg/reactive"
)

// Registry is the process-wide mapping from store id to live store,
// scoped to one application instance. It owns the root reactive scope
// that every store's subscriptions and effects hang off.
type Registry struct {
	mu      sync.Mutex
	stores  map[string]storeRecord
	staged  map[string][]byte
	plugins []Plugin
	closed  bool

	scope  *reactive.Scope
	logger *slog.Logger
}

// storeRecord pairs a live store with the definition that created it, so
// id conflicts between definitions can be detected.
type storeRecord struct {
	handle Handle
	def    any
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the registry logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithPlugin registers a plugin at construction time.
func WithPlugin(p Plugin) Option {
	return func(r *Registry) {
		r.plugins = append(r.plugins, p)
	}
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		stores: make(map[string]storeRecord),
		staged: make(map[string][]byte),
		scope:  reactive.NewScope(nil),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Logger returns the registry logger.
func (r *Registry) Logger() *slog.Logger { return r.logger }

// Scope returns the registry's root reactive scope.
func (r *Registry) Scope() *reactive.Scope { return r.scope }

// UsePlugin registers a plugin and installs it on every store already
// bound. Stores bound later get the plugin at bind time.
//
// When an install fails the plugin is unregistered again, so later
// stores never see it; stores it installed on before the failure keep
// its hooks.
func (r *Registry) UsePlugin(p Plugin) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrRegistryClosed
	}
	r.plugins = append(r.plugins, p)
	idx := len(r.plugins) - 1
	existing := make([]Handle, 0, len(r.stores))
	for _, rec := range r.stores {
		existing = append(existing, rec.handle)
	}
	r.mu.Unlock()

	for _, h := range existing {
		if err := p.Install(PluginContext{Registry: r, Store: h, Logger: r.logger}); err != nil {
			r.mu.Lock()
			r.plugins = append(r.plugins[:idx], r.plugins[idx+1:]...)
			r.mu.Unlock()
			return fmt.Errorf("strata: plugin install on store %q: %w", h.ID(), err)
		}
	}
	return nil
}

// Handle returns the untyped handle for a bound store.
func (r *Registry) Handle(id string) (Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.stores[id]
	if !ok {
		return nil, false
	}
	return rec.handle, true
}

// Handles returns every bound store, sorted by id.
func (r *Registry) Handles() []Handle {
	r.mu.Lock()
	ids := make([]string, 0, len(r.stores))
	for id := range r.stores {
		ids = append(ids, id)
	}
	records := make(map[string]Handle, len(r.stores))
	for id, rec := range r.stores {
		records[id] = rec.handle
	}
	r.mu.Unlock()

	sort.Strings(ids)
	handles := make([]Handle, 0, len(ids))
	for _, id := range ids {
		handles = append(handles, records[id])
	}
	return handles
}

// Close disposes every store and the registry scope. Stores staged
// hydration payloads that never found a store are dropped; binding after
// Close fails with ErrRegistryClosed.
func (r *Registry) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	handles := make([]Handle, 0, len(r.stores))
	for _, rec := range r.stores {
		handles = append(handles, rec.handle)
	}
	if n := len(r.staged); n > 0 {
		r.logger.Warn("closing with unclaimed hydration state", "stores", n)
	}
	r.staged = nil
	r.mu.Unlock()

	for _, h := range handles {
		h.Dispose()
	}
	r.scope.Dispose()
}

// remove drops a store from the registry, called from Store.Dispose. The
// handle is checked so a stale dispose cannot evict a replacement store.
func (r *Registry) remove(id string, h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.stores[id]; ok && rec.handle == h {
		delete(r.stores, id)
	}
}
