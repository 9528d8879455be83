package strata

import (
	"fmt"
	"time"
)

// ActionListener observes actions on a store. It runs synchronously
// before the action body and may register After and OnError callbacks on
// the event.
type ActionListener func(ev *ActionEvent)

// ActionEvent describes one invocation of a named action.
type ActionEvent struct {
	// StoreID is the store the action belongs to.
	StoreID string

	// Name is the action name given to Action.
	Name string

	// Args are the invocation arguments, empty for nullary actions.
	Args []any

	// Start is when the action body began.
	Start time.Time

	afterFns []func()
	errorFns []func(error)
}

// After registers a callback that runs when the action body returns
// without error.
func (ev *ActionEvent) After(fn func()) {
	ev.afterFns = append(ev.afterFns, fn)
}

// OnError registers a callback that runs when the action body returns an
// error or panics. For panics the callback sees a wrapping error and the
// panic is then re-raised.
func (ev *ActionEvent) OnError(fn func(error)) {
	ev.errorFns = append(ev.errorFns, fn)
}

// Action wraps a nullary action body. Calling the returned function runs
// the observers' before phase, the body, and then the after or error
// callbacks.
func (s *Store[S]) Action(name string, fn func() error) func() error {
	return func() (err error) {
		ev := s.beginAction(name, nil)
		defer s.endAction(ev, &err)
		err = fn()
		return err
	}
}

// ActionWith wraps an action body taking one argument. It is a free
// function because methods cannot introduce type parameters.
func ActionWith[S, A any](s *Store[S], name string, fn func(A) error) func(A) error {
	return func(arg A) (err error) {
		ev := s.beginAction(name, []any{arg})
		defer s.endAction(ev, &err)
		err = fn(arg)
		return err
	}
}

func (s *Store[S]) beginAction(name string, args []any) *ActionEvent {
	ev := &ActionEvent{
		StoreID: s.id,
		Name:    name,
		Args:    args,
		Start:   time.Now(),
	}

	s.actMu.RLock()
	subs := make([]*actionSub, len(s.actSubs))
	copy(subs, s.actSubs)
	s.actMu.RUnlock()

	for _, sub := range subs {
		sub.fn(ev)
	}
	return ev
}

// endAction runs the event's completion callbacks. A panicking action
// body reaches the error callbacks as a wrapping error before the panic
// propagates.
func (s *Store[S]) endAction(ev *ActionEvent, errp *error) {
	if r := recover(); r != nil {
		perr := fmt.Errorf("strata: action %q on store %q panicked: %v", ev.Name, ev.StoreID, r)
		for _, fn := range ev.errorFns {
			fn(perr)
		}
		panic(r)
	}

	if err := *errp; err != nil {
		for _, fn := range ev.errorFns {
			fn(err)
		}
		return
	}
	for _, fn := range ev.afterFns {
		fn()
	}
}
