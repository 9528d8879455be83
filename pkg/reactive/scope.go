package reactive

import (
	"sync"
	"sync/atomic"
)

// Scope owns reactive primitives. Disposing a scope disposes its child
// scopes (in reverse creation order), then its effects, then runs any
// registered cleanup functions. Scopes form a tree mirroring the lifetime
// structure of the program: a registry owns a root scope, stores own
// children of it.
type Scope struct {
	id uint64

	parent *Scope

	childrenMu sync.Mutex
	children   []*Scope

	effectsMu sync.Mutex
	effects   []*Effect

	cleanupsMu sync.Mutex
	cleanups   []func()

	disposed atomic.Bool
}

// NewScope creates a scope under parent. A nil parent creates a root.
func NewScope(parent *Scope) *Scope {
	s := &Scope{
		id:     nextID(),
		parent: parent,
	}
	if parent != nil {
		parent.addChild(s)
	}
	return s
}

// ID returns the scope's unique identifier.
func (s *Scope) ID() uint64 { return s.id }

// Parent returns the parent scope, nil for a root.
func (s *Scope) Parent() *Scope { return s.parent }

// IsDisposed reports whether Dispose has run.
func (s *Scope) IsDisposed() bool { return s.disposed.Load() }

func (s *Scope) addChild(child *Scope) {
	s.childrenMu.Lock()
	defer s.childrenMu.Unlock()
	s.children = append(s.children, child)
}

func (s *Scope) removeChild(child *Scope) {
	s.childrenMu.Lock()
	defer s.childrenMu.Unlock()
	for i, c := range s.children {
		if c == child {
			s.children = append(s.children[:i], s.children[i+1:]...)
			return
		}
	}
}

// adopt registers an effect for disposal with this scope.
func (s *Scope) adopt(e *Effect) {
	if s.disposed.Load() {
		return
	}
	s.effectsMu.Lock()
	defer s.effectsMu.Unlock()
	s.effects = append(s.effects, e)
}

// OnCleanup registers fn to run when the scope is disposed. If the scope
// is already disposed, fn runs immediately.
func (s *Scope) OnCleanup(fn func()) {
	if s.disposed.Load() {
		fn()
		return
	}
	s.cleanupsMu.Lock()
	defer s.cleanupsMu.Unlock()
	s.cleanups = append(s.cleanups, fn)
}

// Run executes fn with this scope current, so effects created inside are
// owned by it.
func (s *Scope) Run(fn func()) {
	WithScope(s, fn)
}

// Dispose tears down the scope. Idempotent.
func (s *Scope) Dispose() {
	if s.disposed.Swap(true) {
		return
	}

	if s.parent != nil {
		s.parent.removeChild(s)
	}

	s.childrenMu.Lock()
	children := make([]*Scope, len(s.children))
	copy(children, s.children)
	s.children = nil
	s.childrenMu.Unlock()

	for i := len(children) - 1; i >= 0; i-- {
		children[i].Dispose()
	}

	s.effectsMu.Lock()
	effects := s.effects
	s.effects = nil
	s.effectsMu.Unlock()

	for _, e := range effects {
		e.Dispose()
	}

	s.cleanupsMu.Lock()
	cleanups := s.cleanups
	s.cleanups = nil
	s.cleanupsMu.Unlock()

	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}
}
