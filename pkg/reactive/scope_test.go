package reactive

import "testing"

func TestScopeDisposesEffects(t *testing.T) {
	count := NewSignal(0)
	runs := 0

	scope := NewScope(nil)
	scope.Run(func() {
		NewEffect(func() Cleanup {
			_ = count.Get()
			runs++
			return nil
		})
	})

	count.Set(1)
	if runs != 2 {
		t.Fatalf("expected 2 runs, got %d", runs)
	}

	scope.Dispose()
	count.Set(2)
	if runs != 2 {
		t.Errorf("effect ran after scope dispose: %d runs", runs)
	}
}

func TestScopeDisposesChildren(t *testing.T) {
	var order []string

	parent := NewScope(nil)
	childA := NewScope(parent)
	childB := NewScope(parent)

	childA.OnCleanup(func() { order = append(order, "a") })
	childB.OnCleanup(func() { order = append(order, "b") })
	parent.OnCleanup(func() { order = append(order, "parent") })

	parent.Dispose()

	// Children in reverse creation order, then the parent's own cleanups.
	want := []string{"b", "a", "parent"}
	if len(order) != len(want) {
		t.Fatalf("expected %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("position %d: expected %q, got %q", i, want[i], order[i])
		}
	}
}

func TestScopeDisposeIdempotent(t *testing.T) {
	cleanups := 0

	scope := NewScope(nil)
	scope.OnCleanup(func() { cleanups++ })

	scope.Dispose()
	scope.Dispose()

	if cleanups != 1 {
		t.Errorf("expected 1 cleanup, got %d", cleanups)
	}
	if !scope.IsDisposed() {
		t.Error("scope not marked disposed")
	}
}

func TestOnCleanupAfterDisposeRunsImmediately(t *testing.T) {
	scope := NewScope(nil)
	scope.Dispose()

	ran := false
	scope.OnCleanup(func() { ran = true })
	if !ran {
		t.Error("cleanup registered after dispose did not run")
	}
}

func TestDisposedChildRemovedFromParent(t *testing.T) {
	parent := NewScope(nil)
	child := NewScope(parent)

	childCleanups := 0
	child.OnCleanup(func() { childCleanups++ })

	child.Dispose()
	parent.Dispose()

	if childCleanups != 1 {
		t.Errorf("child disposed twice: %d cleanups", childCleanups)
	}
}
