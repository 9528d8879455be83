package reactive

import (
	"sync"
	"sync/atomic"
)

// Memo is a lazily cached derivation. When any dependency changes, the
// cache is invalidated and the next read recomputes. Memos behave as
// signals for their own subscribers, so derivations can be chained.
type Memo[T any] struct {
	src source

	compute func() T

	valueMu sync.RWMutex
	value   T

	// valid reports whether the cached value is current.
	valid atomic.Bool

	// sources this memo read during its last computation.
	sourcesMu sync.Mutex
	sources   []*source

	// computing guards against recursive recomputation on cycles.
	computing atomic.Bool

	equal func(T, T) bool
}

// NewMemo creates a memo from compute. The computation runs lazily on the
// first Get, not at creation.
func NewMemo[T any](compute func() T) *Memo[T] {
	return &Memo[T]{
		src:     source{id: nextID()},
		compute: compute,
	}
}

// Get returns the memo's value, recomputing it if a dependency changed
// since the last read. Subscribes the current listener.
func (m *Memo[T]) Get() T {
	m.src.track()

	if !m.valid.Load() {
		m.recompute()
	}

	m.valueMu.RLock()
	value := m.value
	m.valueMu.RUnlock()
	return value
}

// Peek returns the value without subscribing. Still recomputes when stale.
func (m *Memo[T]) Peek() T {
	if !m.valid.Load() {
		m.recompute()
	}
	m.valueMu.RLock()
	value := m.value
	m.valueMu.RUnlock()
	return value
}

// MarkDirty invalidates the cache and propagates to subscribers.
// Implements Listener.
func (m *Memo[T]) MarkDirty() {
	// CAS keeps invalidation idempotent until the next recompute.
	if m.valid.CompareAndSwap(true, false) {
		m.src.notify()
	}
}

// ID implements Listener.
func (m *Memo[T]) ID() uint64 { return m.src.id }

// addSource implements sourceTracker.
func (m *Memo[T]) addSource(s *source) {
	m.sourcesMu.Lock()
	defer m.sourcesMu.Unlock()
	for _, existing := range m.sources {
		if existing == s {
			return
		}
	}
	m.sources = append(m.sources, s)
}

// WithEquals configures a custom equality function.
func (m *Memo[T]) WithEquals(fn func(T, T) bool) *Memo[T] {
	m.equal = fn
	return m
}

func (m *Memo[T]) recompute() {
	if m.computing.Swap(true) {
		// Circular dependency; keep the stale value.
		return
	}
	defer m.computing.Store(false)

	// Drop the old dependency set; the computation re-tracks what it reads.
	m.sourcesMu.Lock()
	for _, s := range m.sources {
		s.unsubscribe(m)
	}
	m.sources = m.sources[:0]
	m.sourcesMu.Unlock()

	old := swapListener(m)
	next := m.compute()
	swapListener(old)

	m.valueMu.Lock()
	m.value = next
	m.valueMu.Unlock()

	m.valid.Store(true)
}

var _ sourceTracker = (*Memo[int])(nil)
