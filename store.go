package strata

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/strata-dev/strata/pkg/reactive"
)

// Definition declares a store: an id plus a function producing its
// initial state. Definitions are inert; binding one to a registry with
// Use creates (or returns) the live store instance.
//
// A definition may be bound to several registries, yielding one instance
// per registry. Two different definitions cannot share an id within a
// registry.
type Definition[S any] struct {
	id      string
	initial func() S
}

// DefineStore declares a store with the given id and initial state
// function. The function is invoked at bind time and again on Reset.
func DefineStore[S any](id string, initial func() S) *Definition[S] {
	if id == "" {
		panic("strata: store id must not be empty")
	}
	if initial == nil {
		initial = func() S {
			var zero S
			return zero
		}
	}
	return &Definition[S]{id: id, initial: initial}
}

// ID returns the store identifier this definition claims.
func (d *Definition[S]) ID() string { return d.id }

// Use binds the definition to a registry, creating the store on first
// use and returning the same instance afterwards. Staged hydration state
// for this id is deep-merged over the initial state before the store
// becomes visible.
func (d *Definition[S]) Use(reg *Registry) (*Store[S], error) {
	if reg == nil {
		return nil, ErrNoRegistry
	}

	reg.mu.Lock()
	if reg.closed {
		reg.mu.Unlock()
		return nil, ErrRegistryClosed
	}

	if rec, ok := reg.stores[d.id]; ok {
		if rec.def != any(d) {
			reg.mu.Unlock()
			return nil, fmt.Errorf("%w: %q is already claimed by another definition", ErrStoreConflict, d.id)
		}
		reg.mu.Unlock()
		return rec.handle.(*Store[S]), nil
	}

	initial := d.initial()
	staged, hadStaged := reg.staged[d.id]
	if hadStaged {
		delete(reg.staged, d.id)
		if err := json.Unmarshal(staged, &initial); err != nil {
			reg.logger.Warn("ignoring hydration state", "store", d.id, "error", err)
		}
	}

	s := &Store[S]{
		id:    d.id,
		reg:   reg,
		def:   d,
		scope: reactive.NewScope(reg.scope),
		// Mutations are published unconditionally; equality gating would
		// swallow pointer-field updates that compare equal.
		sig: reactive.NewSignal(initial).WithEquals(reactive.AlwaysNotify[S]),
	}
	reg.stores[d.id] = storeRecord{handle: s, def: d}
	plugins := append([]Plugin(nil), reg.plugins...)
	reg.mu.Unlock()

	for _, p := range plugins {
		if err := p.Install(PluginContext{Registry: reg, Store: s, Logger: reg.logger}); err != nil {
			// A half-installed store must not stay visible; a retried Use
			// starts from scratch and runs every install again, so staged
			// hydration state goes back too.
			s.Dispose()
			if hadStaged {
				reg.mu.Lock()
				if !reg.closed {
					reg.staged[d.id] = staged
				}
				reg.mu.Unlock()
			}
			return nil, fmt.Errorf("strata: plugin install on store %q: %w", d.id, err)
		}
	}
	return s, nil
}

// MustUse is Use, panicking on error. Intended for program setup where a
// failure is unrecoverable.
func (d *Definition[S]) MustUse(reg *Registry) *Store[S] {
	s, err := d.Use(reg)
	if err != nil {
		panic(err)
	}
	return s
}

// Store is a named bundle of reactive state. All mutations go through
// Update, Patch, PatchJSON, Replace, or Reset; each publishes exactly one
// Mutation to subscribers after the state is committed.
//
// State values are owned by the store: callers get copies from Get/Peek
// and must not retain pointers into previous copies across mutations.
type Store[S any] struct {
	id  string
	reg *Registry
	def *Definition[S]

	scope   *reactive.Scope
	sig     *reactive.Signal[S]
	version atomic.Uint64

	subMu sync.RWMutex
	subs  []*stateSub[S]
	msubs []*mutationSub
	dsubs []*disposeSub

	actMu   sync.RWMutex
	actSubs []*actionSub

	disposed atomic.Bool
}

type stateSub[S any] struct {
	id uint64
	fn func(Mutation, S)
}

type mutationSub struct {
	id uint64
	fn func(Mutation)
}

type actionSub struct {
	id uint64
	fn ActionListener
}

type disposeSub struct {
	id uint64
	fn func()
}

// ID returns the store identifier.
func (s *Store[S]) ID() string { return s.id }

// Get returns the current state and, inside a tracked context, subscribes
// the current reactive listener.
func (s *Store[S]) Get() S { return s.sig.Get() }

// Peek returns the current state without subscribing.
func (s *Store[S]) Peek() S { return s.sig.Peek() }

// Signal exposes the underlying reactive cell, for composing with memos
// and effects directly.
func (s *Store[S]) Signal() *reactive.Signal[S] { return s.sig }

// Update mutates the state through fn and publishes a direct mutation.
func (s *Store[S]) Update(fn func(*S)) error {
	return s.mutate(MutationDirect, fn)
}

// Patch applies a grouped partial update: fn runs inside a reactive
// batch, so derived values and effects settle once, and a single
// patch.function mutation is published.
func (s *Store[S]) Patch(fn func(*S)) error {
	if s.disposed.Load() {
		return ErrStoreDisposed
	}
	var err error
	reactive.Batch(func() {
		err = s.mutate(MutationPatchFunc, fn)
	})
	return err
}

// PatchJSON deep-merges a partial JSON object into the state: absent
// fields keep their current values at every nesting level, maps merge
// per key, slices and scalars are replaced. Invalid payloads leave the
// state untouched.
func (s *Store[S]) PatchJSON(raw []byte) error {
	if s.disposed.Load() {
		return ErrStoreDisposed
	}

	// Merge-by-unmarshal requires the single-writer discipline stated in
	// the Store doc; a concurrent Update between Peek and Set would be
	// lost.
	next := s.sig.Peek()
	if err := json.Unmarshal(raw, &next); err != nil {
		return fmt.Errorf("strata: patch store %q: %w", s.id, err)
	}
	s.sig.Set(next)
	s.publish(MutationPatchJSON, next)
	return nil
}

// Replace swaps in a whole new state value.
func (s *Store[S]) Replace(state S) error {
	if s.disposed.Load() {
		return ErrStoreDisposed
	}
	s.sig.Set(state)
	s.publish(MutationReplace, state)
	return nil
}

// Reset restores the definition's initial state. Hydrated state is not
// reapplied; reset means the declared initial value.
func (s *Store[S]) Reset() error {
	if s.disposed.Load() {
		return ErrStoreDisposed
	}
	state := s.def.initial()
	s.sig.Set(state)
	s.publish(MutationReset, state)
	return nil
}

// StateJSON implements Handle.
func (s *Store[S]) StateJSON() ([]byte, error) {
	return json.Marshal(s.sig.Peek())
}

// Subscribe registers a callback invoked after every mutation with the
// mutation metadata and the new state. The returned function removes the
// subscription. Unless Detached is given, a subscription made while a
// reactive scope is current is removed when that scope is disposed.
func (s *Store[S]) Subscribe(fn func(Mutation, S), opts ...SubscribeOption) func() {
	var cfg subscribeConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	sub := &stateSub[S]{id: nextSubID(), fn: fn}
	s.subMu.Lock()
	s.subs = append(s.subs, sub)
	s.subMu.Unlock()

	unsub := func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		for i, existing := range s.subs {
			if existing.id == sub.id {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				return
			}
		}
	}
	s.bindToScope(unsub, cfg.detached)
	return unsub
}

// OnMutation implements Handle: like Subscribe but without the typed
// state, for plugins and devtools.
func (s *Store[S]) OnMutation(fn func(Mutation)) func() {
	sub := &mutationSub{id: nextSubID(), fn: fn}
	s.subMu.Lock()
	s.msubs = append(s.msubs, sub)
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		for i, existing := range s.msubs {
			if existing.id == sub.id {
				s.msubs = append(s.msubs[:i], s.msubs[i+1:]...)
				return
			}
		}
	}
}

// OnAction registers an action observer. Observers run before the action
// body and may register After and OnError callbacks on the event.
func (s *Store[S]) OnAction(fn ActionListener) func() {
	sub := &actionSub{id: nextSubID(), fn: fn}
	s.actMu.Lock()
	s.actSubs = append(s.actSubs, sub)
	s.actMu.Unlock()

	return func() {
		s.actMu.Lock()
		defer s.actMu.Unlock()
		for i, existing := range s.actSubs {
			if existing.id == sub.id {
				s.actSubs = append(s.actSubs[:i], s.actSubs[i+1:]...)
				return
			}
		}
	}
}

// OnDispose implements Handle: fn runs once when the store is disposed.
// Registering on an already-disposed store runs fn immediately, matching
// reactive.Scope.OnCleanup.
func (s *Store[S]) OnDispose(fn func()) func() {
	s.subMu.Lock()
	if s.disposed.Load() {
		s.subMu.Unlock()
		fn()
		return func() {}
	}
	sub := &disposeSub{id: nextSubID(), fn: fn}
	s.dsubs = append(s.dsubs, sub)
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		for i, existing := range s.dsubs {
			if existing.id == sub.id {
				s.dsubs = append(s.dsubs[:i], s.dsubs[i+1:]...)
				return
			}
		}
	}
}

// Dispose removes the store from its registry, disposes its scope, and
// drops all subscriptions. Idempotent.
func (s *Store[S]) Dispose() {
	if s.disposed.Swap(true) {
		return
	}

	s.scope.Dispose()

	s.subMu.Lock()
	dsubs := s.dsubs
	s.subs = nil
	s.msubs = nil
	s.dsubs = nil
	s.subMu.Unlock()

	s.actMu.Lock()
	s.actSubs = nil
	s.actMu.Unlock()

	s.reg.remove(s.id, s)

	for _, sub := range dsubs {
		sub.fn()
	}
}

// mutate commits a state change and publishes it.
func (s *Store[S]) mutate(typ MutationType, fn func(*S)) error {
	if s.disposed.Load() {
		return ErrStoreDisposed
	}

	var next S
	s.sig.Update(func(cur S) S {
		fn(&cur)
		next = cur
		return cur
	})
	s.publish(typ, next)
	return nil
}

// publish fans a mutation out to subscribers. Subscriber slices are
// copied before invocation so callbacks may unsubscribe themselves.
func (s *Store[S]) publish(typ MutationType, state S) {
	m := Mutation{
		StoreID: s.id,
		Type:    typ,
		Version: s.version.Add(1),
		Time:    time.Now(),
	}

	s.subMu.RLock()
	subs := make([]*stateSub[S], len(s.subs))
	copy(subs, s.subs)
	msubs := make([]*mutationSub, len(s.msubs))
	copy(msubs, s.msubs)
	s.subMu.RUnlock()

	for _, sub := range subs {
		sub.fn(m, state)
	}
	for _, sub := range msubs {
		sub.fn(m)
	}
}

// bindToScope ties a subscription's lifetime to the caller's current
// reactive scope, unless the subscription is detached.
func (s *Store[S]) bindToScope(unsub func(), detached bool) {
	if detached {
		return
	}
	if scope := reactive.CurrentScope(); scope != nil {
		scope.OnCleanup(unsub)
	}
}

// SubscribeOption configures Subscribe.
type SubscribeOption func(*subscribeConfig)

type subscribeConfig struct {
	detached bool
}

// Detached keeps a subscription alive past the disposal of the scope it
// was created in. Detached subscriptions last until explicitly removed or
// the store is disposed.
func Detached() SubscribeOption {
	return func(cfg *subscribeConfig) {
		cfg.detached = true
	}
}

// subIDCounter feeds subscription identifiers for removal.
var subIDCounter uint64

func nextSubID() uint64 {
	return atomic.AddUint64(&subIDCounter, 1)
}
