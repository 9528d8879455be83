package reactive

import (
	"reflect"
	"sync"
)

// source provides type-erased subscriber management. It is embedded in
// Signal and Memo to share subscription bookkeeping.
type source struct {
	id uint64

	subMu sync.RWMutex
	subs  []Listener
}

// subscribe adds a listener, deduplicating by listener ID.
func (s *source) subscribe(l Listener) {
	if l == nil {
		return
	}

	s.subMu.Lock()
	defer s.subMu.Unlock()

	lid := l.ID()
	for _, existing := range s.subs {
		if existing.ID() == lid {
			return
		}
	}
	s.subs = append(s.subs, l)
}

func (s *source) unsubscribe(l Listener) {
	if l == nil {
		return
	}

	s.subMu.Lock()
	defer s.subMu.Unlock()

	lid := l.ID()
	for i, existing := range s.subs {
		if existing.ID() == lid {
			s.subs[i] = s.subs[len(s.subs)-1]
			s.subs = s.subs[:len(s.subs)-1]
			return
		}
	}
}

// notify informs subscribers of a change. Subscribers are copied out under
// the lock and notified without it. Inside a batch, notifications are
// queued and delivered once when the outermost batch completes.
func (s *source) notify() {
	s.subMu.RLock()
	subs := make([]Listener, len(s.subs))
	copy(subs, s.subs)
	s.subMu.RUnlock()

	if batchDepth() > 0 {
		for _, sub := range subs {
			queueNotification(sub)
		}
		return
	}
	for _, sub := range subs {
		sub.MarkDirty()
	}
}

// track subscribes the current listener, if any, and records this source
// as a dependency for listeners that do dynamic source tracking.
func (s *source) track() {
	l := currentListener()
	if l == nil {
		return
	}
	s.subscribe(l)
	if st, ok := l.(sourceTracker); ok {
		st.addSource(s)
	}
}

// sourceTracker is implemented by listeners (memos, effects) that retrack
// their dependency set on every run.
type sourceTracker interface {
	Listener
	addSource(*source)
}

// Signal is a reactive value cell. Reading it during a tracked context
// (memo computation or effect run) subscribes the current listener; writes
// notify subscribers when the value actually changed.
type Signal[T any] struct {
	src source

	mu    sync.RWMutex
	value T

	// equal decides whether a write changed the value. nil means
	// defaultEquals.
	equal func(T, T) bool
}

// NewSignal creates a signal holding initial.
func NewSignal[T any](initial T) *Signal[T] {
	return &Signal[T]{
		src:   source{id: nextID()},
		value: initial,
	}
}

// Get returns the current value and subscribes the current listener.
func (s *Signal[T]) Get() T {
	s.mu.RLock()
	value := s.value
	s.mu.RUnlock()

	// Track after releasing the value lock to avoid lock ordering issues.
	s.src.track()
	return value
}

// Peek returns the current value without subscribing.
func (s *Signal[T]) Peek() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Set stores value and notifies subscribers if it differs from the current
// value under the signal's equality function.
func (s *Signal[T]) Set(value T) {
	s.mu.Lock()
	changed := !s.equals(s.value, value)
	if changed {
		s.value = value
	}
	s.mu.Unlock()

	if changed {
		s.src.notify()
	}
}

// Update atomically transforms the current value through fn.
func (s *Signal[T]) Update(fn func(T) T) {
	s.mu.Lock()
	next := fn(s.value)
	changed := !s.equals(s.value, next)
	if changed {
		s.value = next
	}
	s.mu.Unlock()

	if changed {
		s.src.notify()
	}
}

// WithEquals configures a custom equality function. Use AlwaysNotify to
// force notification on every write.
func (s *Signal[T]) WithEquals(fn func(T, T) bool) *Signal[T] {
	s.equal = fn
	return s
}

// ID returns the signal's unique identifier.
func (s *Signal[T]) ID() uint64 { return s.src.id }

func (s *Signal[T]) equals(a, b T) bool {
	if s.equal != nil {
		return s.equal(a, b)
	}
	return defaultEquals(a, b)
}

// AlwaysNotify is an equality function that treats every write as a
// change, so subscribers are notified unconditionally.
func AlwaysNotify[T any](T, T) bool { return false }

// defaultEquals uses == for common comparable types and falls back to
// reflect.DeepEqual for composites.
func defaultEquals[T any](a, b T) bool {
	switch av := any(a).(type) {
	case int:
		return av == any(b).(int)
	case int64:
		return av == any(b).(int64)
	case uint64:
		return av == any(b).(uint64)
	case float64:
		return av == any(b).(float64)
	case string:
		return av == any(b).(string)
	case bool:
		return av == any(b).(bool)
	default:
		return reflect.DeepEqual(a, b)
	}
}
