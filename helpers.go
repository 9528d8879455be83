package strata

import "github.com/strata-dev/strata/pkg/reactive"

// Getter derives a cached value from a store's state. The memo
// recomputes lazily after any mutation of the store.
//
//	double := strata.Getter(counter, func(s CounterState) int {
//	    return s.Count * 2
//	})
func Getter[S, T any](s *Store[S], fn func(S) T) *reactive.Memo[T] {
	return reactive.NewMemo(func() T {
		return fn(s.Get())
	})
}

// Watch runs fn with the current state now and after every mutation. The
// returned function stops watching.
func Watch[S any](s *Store[S], fn func(S)) func() {
	e := reactive.NewEffect(func() reactive.Cleanup {
		fn(s.Get())
		return nil
	})
	return e.Dispose
}
