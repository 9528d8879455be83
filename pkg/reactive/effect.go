package reactive

import (
	"sync"
	"sync/atomic"
)

// Effect is a side effect that re-runs when its tracked dependencies
// change. Effects run immediately at creation and synchronously on each
// notification; there is no render tick to defer to. An effect created
// inside a scope is disposed with that scope.
type Effect struct {
	id uint64

	fn      func() Cleanup
	cleanup Cleanup

	sourcesMu sync.Mutex
	sources   []*source

	scope *Scope

	running  atomic.Bool
	disposed atomic.Bool
}

// NewEffect creates the effect and runs fn once immediately. fn re-runs
// whenever a signal or memo it read changes. A returned Cleanup runs
// before each re-run and at dispose.
func NewEffect(fn func() Cleanup) *Effect {
	e := &Effect{
		id:    nextID(),
		fn:    fn,
		scope: currentScope(),
	}
	if e.scope != nil {
		e.scope.adopt(e)
	}
	e.run()
	return e
}

// MarkDirty re-runs the effect. Implements Listener. Re-entrant
// notifications during the effect body are ignored.
func (e *Effect) MarkDirty() {
	if e.disposed.Load() {
		return
	}
	e.run()
}

// ID implements Listener.
func (e *Effect) ID() uint64 { return e.id }

// addSource implements sourceTracker.
func (e *Effect) addSource(s *source) {
	e.sourcesMu.Lock()
	defer e.sourcesMu.Unlock()
	for _, existing := range e.sources {
		if existing == s {
			return
		}
	}
	e.sources = append(e.sources, s)
}

func (e *Effect) run() {
	if !e.running.CompareAndSwap(false, true) {
		return
	}
	defer e.running.Store(false)

	if e.cleanup != nil {
		e.cleanup()
		e.cleanup = nil
	}

	// Retrack: the dependency set is whatever this run reads.
	e.sourcesMu.Lock()
	for _, s := range e.sources {
		s.unsubscribe(e)
	}
	e.sources = e.sources[:0]
	e.sourcesMu.Unlock()

	old := swapListener(e)
	e.cleanup = e.fn()
	swapListener(old)
}

// Dispose stops the effect, runs its cleanup, and unsubscribes it from
// all sources. Idempotent.
func (e *Effect) Dispose() {
	if e.disposed.Swap(true) {
		return
	}

	if e.cleanup != nil {
		e.cleanup()
		e.cleanup = nil
	}

	e.sourcesMu.Lock()
	for _, s := range e.sources {
		s.unsubscribe(e)
	}
	e.sources = nil
	e.sourcesMu.Unlock()
}

var _ sourceTracker = (*Effect)(nil)
