package strata

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/strata-dev/strata/pkg/reactive"
)

type counterState struct {
	Count int    `json:"count"`
	Name  string `json:"name"`
}

func counterDef() *Definition[counterState] {
	return DefineStore("counter", func() counterState {
		return counterState{Name: "eduardo"}
	})
}

func TestUseReturnsSameInstance(t *testing.T) {
	reg := New()
	defer reg.Close()
	def := counterDef()

	a := def.MustUse(reg)
	b := def.MustUse(reg)
	if a != b {
		t.Error("same definition and registry returned different instances")
	}
}

func TestUsePerRegistryInstances(t *testing.T) {
	regA := New()
	defer regA.Close()
	regB := New()
	defer regB.Close()
	def := counterDef()

	a := def.MustUse(regA)
	b := def.MustUse(regB)
	if a == b {
		t.Error("different registries shared a store instance")
	}

	a.Update(func(s *counterState) { s.Count = 5 })
	if b.Peek().Count != 0 {
		t.Error("mutation leaked across registries")
	}
}

func TestUseConflictingDefinition(t *testing.T) {
	reg := New()
	defer reg.Close()

	counterDef().MustUse(reg)

	other := DefineStore("counter", func() string { return "" })
	if _, err := other.Use(reg); !errors.Is(err, ErrStoreConflict) {
		t.Errorf("expected ErrStoreConflict, got %v", err)
	}
}

func TestUseNilRegistry(t *testing.T) {
	if _, err := counterDef().Use(nil); !errors.Is(err, ErrNoRegistry) {
		t.Errorf("expected ErrNoRegistry, got %v", err)
	}
}

func TestUseClosedRegistry(t *testing.T) {
	reg := New()
	reg.Close()
	if _, err := counterDef().Use(reg); !errors.Is(err, ErrRegistryClosed) {
		t.Errorf("expected ErrRegistryClosed, got %v", err)
	}
}

func TestUpdatePublishesMutation(t *testing.T) {
	reg := New()
	defer reg.Close()
	store := counterDef().MustUse(reg)

	var got []Mutation
	var last counterState
	store.Subscribe(func(m Mutation, s counterState) {
		got = append(got, m)
		last = s
	})

	if err := store.Update(func(s *counterState) { s.Count++ }); err != nil {
		t.Fatalf("update: %v", err)
	}

	if len(got) != 1 {
		t.Fatalf("expected 1 mutation, got %d", len(got))
	}
	m := got[0]
	if m.StoreID != "counter" || m.Type != MutationDirect || m.Version != 1 {
		t.Errorf("unexpected mutation %+v", m)
	}
	want := counterState{Count: 1, Name: "eduardo"}
	if diff := cmp.Diff(want, last); diff != "" {
		t.Errorf("state mismatch (-want +got):\n%s", diff)
	}
}

func TestPatchPublishesOnce(t *testing.T) {
	reg := New()
	defer reg.Close()
	store := counterDef().MustUse(reg)

	mutations := 0
	store.Subscribe(func(m Mutation, _ counterState) {
		mutations++
		if m.Type != MutationPatchFunc {
			t.Errorf("expected patch.function, got %s", m.Type)
		}
	})

	if err := store.Patch(func(s *counterState) {
		s.Count = 7
		s.Name = "ada"
	}); err != nil {
		t.Fatalf("patch: %v", err)
	}

	if mutations != 1 {
		t.Errorf("expected 1 publish for grouped patch, got %d", mutations)
	}
	if got := store.Peek(); got.Count != 7 || got.Name != "ada" {
		t.Errorf("unexpected state %+v", got)
	}
}

func TestPatchBatchesReactiveNotifications(t *testing.T) {
	reg := New()
	defer reg.Close()
	store := counterDef().MustUse(reg)

	runs := 0
	reactive.NewEffect(func() reactive.Cleanup {
		_ = store.Get()
		runs++
		return nil
	})

	store.Patch(func(s *counterState) {
		s.Count = 1
		s.Name = "x"
	})

	if runs != 2 {
		t.Errorf("expected 1 initial + 1 batched run, got %d", runs)
	}
}

func TestPatchJSONDeepMerge(t *testing.T) {
	type prefs struct {
		Theme  string `json:"theme"`
		Locale string `json:"locale"`
	}
	type profileState struct {
		Name  string         `json:"name"`
		Prefs prefs          `json:"prefs"`
		Tags  map[string]int `json:"tags"`
	}

	reg := New()
	defer reg.Close()
	store := DefineStore("profile", func() profileState {
		return profileState{
			Name:  "ada",
			Prefs: prefs{Theme: "dark", Locale: "en"},
			Tags:  map[string]int{"a": 1},
		}
	}).MustUse(reg)

	var m Mutation
	store.Subscribe(func(got Mutation, _ profileState) { m = got })

	if err := store.PatchJSON([]byte(`{"prefs":{"theme":"light"},"tags":{"b":2}}`)); err != nil {
		t.Fatalf("patch json: %v", err)
	}

	want := profileState{
		Name:  "ada",
		Prefs: prefs{Theme: "light", Locale: "en"},
		Tags:  map[string]int{"a": 1, "b": 2},
	}
	if diff := cmp.Diff(want, store.Peek()); diff != "" {
		t.Errorf("merge mismatch (-want +got):\n%s", diff)
	}
	if m.Type != MutationPatchJSON {
		t.Errorf("expected patch.json mutation, got %s", m.Type)
	}
}

func TestPatchJSONInvalidLeavesState(t *testing.T) {
	reg := New()
	defer reg.Close()
	store := counterDef().MustUse(reg)
	store.Update(func(s *counterState) { s.Count = 3 })

	if err := store.PatchJSON([]byte(`{"count":`)); err == nil {
		t.Fatal("expected error for truncated JSON")
	}
	if got := store.Peek().Count; got != 3 {
		t.Errorf("state changed by invalid patch: %d", got)
	}
}

func TestResetRestoresInitial(t *testing.T) {
	reg := New()
	defer reg.Close()
	store := counterDef().MustUse(reg)

	store.Update(func(s *counterState) { s.Count = 42; s.Name = "x" })

	var m Mutation
	store.Subscribe(func(got Mutation, _ counterState) { m = got })

	if err := store.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	want := counterState{Name: "eduardo"}
	if diff := cmp.Diff(want, store.Peek()); diff != "" {
		t.Errorf("reset mismatch (-want +got):\n%s", diff)
	}
	if m.Type != MutationReset {
		t.Errorf("expected reset mutation, got %s", m.Type)
	}
}

func TestVersionIncrementsPerMutation(t *testing.T) {
	reg := New()
	defer reg.Close()
	store := counterDef().MustUse(reg)

	var versions []uint64
	store.Subscribe(func(m Mutation, _ counterState) {
		versions = append(versions, m.Version)
	})

	store.Update(func(s *counterState) { s.Count++ })
	store.Patch(func(s *counterState) { s.Count++; s.Name = "n" })
	store.Replace(counterState{})
	store.Reset()

	want := []uint64{1, 2, 3, 4}
	if diff := cmp.Diff(want, versions); diff != "" {
		t.Errorf("versions (-want +got):\n%s", diff)
	}
}

func TestUnsubscribe(t *testing.T) {
	reg := New()
	defer reg.Close()
	store := counterDef().MustUse(reg)

	calls := 0
	unsub := store.Subscribe(func(Mutation, counterState) { calls++ })

	store.Update(func(s *counterState) { s.Count++ })
	unsub()
	store.Update(func(s *counterState) { s.Count++ })

	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestSubscriptionBoundToScope(t *testing.T) {
	reg := New()
	defer reg.Close()
	store := counterDef().MustUse(reg)

	scoped := 0
	detached := 0

	scope := reactive.NewScope(nil)
	scope.Run(func() {
		store.Subscribe(func(Mutation, counterState) { scoped++ })
		store.Subscribe(func(Mutation, counterState) { detached++ }, Detached())
	})

	store.Update(func(s *counterState) { s.Count++ })
	scope.Dispose()
	store.Update(func(s *counterState) { s.Count++ })

	if scoped != 1 {
		t.Errorf("scoped subscription survived dispose: %d calls", scoped)
	}
	if detached != 2 {
		t.Errorf("detached subscription removed: %d calls", detached)
	}
}

func TestDisposedStore(t *testing.T) {
	reg := New()
	defer reg.Close()
	store := counterDef().MustUse(reg)

	calls := 0
	store.Subscribe(func(Mutation, counterState) { calls++ })

	store.Dispose()

	if err := store.Update(func(s *counterState) { s.Count++ }); !errors.Is(err, ErrStoreDisposed) {
		t.Errorf("expected ErrStoreDisposed, got %v", err)
	}
	if err := store.Reset(); !errors.Is(err, ErrStoreDisposed) {
		t.Errorf("expected ErrStoreDisposed, got %v", err)
	}
	if calls != 0 {
		t.Errorf("disposed store published: %d calls", calls)
	}

	if _, ok := reg.Handle("counter"); ok {
		t.Error("disposed store still registered")
	}
}

func TestOnDispose(t *testing.T) {
	reg := New()
	defer reg.Close()
	store := counterDef().MustUse(reg)

	ran := 0
	store.OnDispose(func() { ran++ })
	removed := 0
	cancel := store.OnDispose(func() { removed++ })
	cancel()

	store.Dispose()
	store.Dispose()

	if ran != 1 {
		t.Errorf("dispose callback ran %d times, want 1", ran)
	}
	if removed != 0 {
		t.Errorf("removed callback still ran %d times", removed)
	}

	// Registering after disposal runs immediately.
	late := 0
	store.OnDispose(func() { late++ })
	if late != 1 {
		t.Errorf("late callback ran %d times, want 1", late)
	}
}

func TestGetter(t *testing.T) {
	reg := New()
	defer reg.Close()
	store := counterDef().MustUse(reg)

	double := Getter(store, func(s counterState) int { return s.Count * 2 })

	if v := double.Get(); v != 0 {
		t.Errorf("expected 0, got %d", v)
	}
	store.Update(func(s *counterState) { s.Count = 4 })
	if v := double.Get(); v != 8 {
		t.Errorf("expected 8, got %d", v)
	}
}

func TestWatch(t *testing.T) {
	reg := New()
	defer reg.Close()
	store := counterDef().MustUse(reg)

	var seen []int
	stop := Watch(store, func(s counterState) {
		seen = append(seen, s.Count)
	})

	store.Update(func(s *counterState) { s.Count = 1 })
	stop()
	store.Update(func(s *counterState) { s.Count = 2 })

	want := []int{0, 1}
	if diff := cmp.Diff(want, seen); diff != "" {
		t.Errorf("watch values (-want +got):\n%s", diff)
	}
}
