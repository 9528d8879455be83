// Package persist snapshots store state to a backend after mutations and
// restores it when stores are bound. Snapshots are debounced per store so
// bursts of mutations produce one write; pending writes are flushed when
// the registry scope is disposed.
package persist

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/strata-dev/strata"
)

// Backend stores and retrieves per-store state blobs. Load returns
// (nil, nil) when no snapshot exists for the store.
type Backend interface {
	Load(ctx context.Context, storeID string) ([]byte, error)
	Store(ctx context.Context, storeID string, state []byte) error
}

// DefaultDebounce is the default settle window between a mutation and
// the snapshot write.
const DefaultDebounce = 100 * time.Millisecond

// Option configures the plugin.
type Option func(*Plugin)

// WithDebounce sets the snapshot settle window. Zero writes synchronously
// on every mutation.
func WithDebounce(d time.Duration) Option {
	return func(p *Plugin) { p.debounce = d }
}

// WithContext sets the context used for backend calls. Defaults to
// context.Background().
func WithContext(ctx context.Context) Option {
	return func(p *Plugin) { p.ctx = ctx }
}

// Plugin is a strata.Plugin persisting store state.
type Plugin struct {
	backend  Backend
	debounce time.Duration
	ctx      context.Context
}

// New creates the persistence plugin over backend.
func New(backend Backend, opts ...Option) *Plugin {
	p := &Plugin{
		backend:  backend,
		debounce: DefaultDebounce,
		ctx:      context.Background(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Install implements strata.Plugin: restores a snapshot if one exists,
// then persists after each mutation.
func (p *Plugin) Install(pc strata.PluginContext) error {
	id := pc.Store.ID()

	raw, err := p.backend.Load(p.ctx, id)
	if err != nil {
		return err
	}
	if raw != nil {
		if err := pc.Store.PatchJSON(raw); err != nil {
			pc.Logger.Warn("ignoring persisted state", "store", id, "error", err)
		}
	}

	w := &writer{
		plugin: p,
		store:  pc.Store,
		logger: pc.Logger,
	}
	pc.Store.OnMutation(func(strata.Mutation) {
		w.schedule()
	})
	pc.Registry.Scope().OnCleanup(w.flush)

	return nil
}

// writer debounces snapshot writes for one store.
type writer struct {
	plugin *Plugin
	store  strata.Handle
	logger *slog.Logger

	mu    sync.Mutex
	timer *time.Timer
	dirty bool
}

// schedule arms the debounce timer; with a zero debounce the snapshot is
// written on the mutating goroutine.
func (w *writer) schedule() {
	if w.plugin.debounce <= 0 {
		w.write()
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.dirty = true
	if w.timer != nil {
		w.timer.Reset(w.plugin.debounce)
		return
	}
	w.timer = time.AfterFunc(w.plugin.debounce, w.write)
}

// flush writes any pending snapshot and stops the timer.
func (w *writer) flush() {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	dirty := w.dirty
	w.mu.Unlock()

	if dirty {
		w.write()
	}
}

func (w *writer) write() {
	w.mu.Lock()
	w.dirty = false
	w.mu.Unlock()

	raw, err := w.store.StateJSON()
	if err != nil {
		w.logger.Error("persist: snapshot failed", "store", w.store.ID(), "error", err)
		return
	}
	if err := w.plugin.backend.Store(w.plugin.ctx, w.store.ID(), raw); err != nil {
		w.logger.Error("persist: write failed", "store", w.store.ID(), "error", err)
	}
}

var _ strata.Plugin = (*Plugin)(nil)
