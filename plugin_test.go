package strata

import (
	"errors"
	"strings"
	"testing"
)

func TestPluginInstallsOnFutureStores(t *testing.T) {
	var installed []string
	reg := New(WithPlugin(PluginFunc(func(pc PluginContext) error {
		installed = append(installed, pc.Store.ID())
		return nil
	})))
	defer reg.Close()

	counterDef().MustUse(reg)
	DefineStore("other", func() int { return 0 }).MustUse(reg)

	want := []string{"counter", "other"}
	if len(installed) != len(want) {
		t.Fatalf("expected %v, got %v", want, installed)
	}
	for i := range want {
		if installed[i] != want[i] {
			t.Errorf("install %d: expected %q, got %q", i, want[i], installed[i])
		}
	}
}

func TestPluginInstallsOnExistingStores(t *testing.T) {
	reg := New()
	defer reg.Close()
	counterDef().MustUse(reg)

	var installed []string
	err := reg.UsePlugin(PluginFunc(func(pc PluginContext) error {
		installed = append(installed, pc.Store.ID())
		return nil
	}))
	if err != nil {
		t.Fatalf("use plugin: %v", err)
	}
	if len(installed) != 1 || installed[0] != "counter" {
		t.Errorf("expected install on existing store, got %v", installed)
	}
}

func TestPluginInstallError(t *testing.T) {
	boom := errors.New("boom")
	reg := New(WithPlugin(PluginFunc(func(PluginContext) error {
		return boom
	})))
	defer reg.Close()

	_, err := counterDef().Use(reg)
	if !errors.Is(err, boom) {
		t.Fatalf("expected install error, got %v", err)
	}
	if !strings.Contains(err.Error(), "counter") {
		t.Errorf("error does not name the store: %v", err)
	}
}

func TestFailedInstallUnbindsStore(t *testing.T) {
	installs := 0
	reg := New(WithPlugin(PluginFunc(func(PluginContext) error {
		installs++
		if installs == 1 {
			return errors.New("boom")
		}
		return nil
	})))
	defer reg.Close()
	def := counterDef()

	if _, err := def.Use(reg); err == nil {
		t.Fatal("expected install error")
	}
	if _, ok := reg.Handle("counter"); ok {
		t.Error("store stayed bound after a failed install")
	}

	// A retried Use builds the store fresh and re-runs every install.
	store, err := def.Use(reg)
	if err != nil {
		t.Fatalf("retried use: %v", err)
	}
	if installs != 2 {
		t.Errorf("expected 2 install attempts, got %d", installs)
	}
	if h, ok := reg.Handle("counter"); !ok || h != Handle(store) {
		t.Error("retried store not bound in the registry")
	}
}

func TestFailedInstallKeepsStagedState(t *testing.T) {
	installs := 0
	reg := New(WithPlugin(PluginFunc(func(PluginContext) error {
		installs++
		if installs == 1 {
			return errors.New("boom")
		}
		return nil
	})))
	defer reg.Close()

	if err := reg.Hydrate([]byte(`{"counter":{"count":5}}`)); err != nil {
		t.Fatalf("hydrate: %v", err)
	}
	def := counterDef()

	if _, err := def.Use(reg); err == nil {
		t.Fatal("expected install error")
	}

	store, err := def.Use(reg)
	if err != nil {
		t.Fatalf("retried use: %v", err)
	}
	if got := store.Peek(); got.Count != 5 {
		t.Errorf("hydration state lost across failed install: %+v", got)
	}
}

func TestFailedUsePluginNotRetained(t *testing.T) {
	reg := New()
	defer reg.Close()
	counterDef().MustUse(reg)

	installs := 0
	err := reg.UsePlugin(PluginFunc(func(PluginContext) error {
		installs++
		return errors.New("boom")
	}))
	if err == nil {
		t.Fatal("expected install error")
	}

	// The failed plugin must not apply to stores bound afterwards.
	DefineStore("other", func() int { return 0 }).MustUse(reg)
	if installs != 1 {
		t.Errorf("failed plugin installed again on a later store: %d installs", installs)
	}
}

func TestPluginObservesMutations(t *testing.T) {
	var seen []Mutation
	reg := New(WithPlugin(PluginFunc(func(pc PluginContext) error {
		pc.Store.OnMutation(func(m Mutation) { seen = append(seen, m) })
		return nil
	})))
	defer reg.Close()

	store := counterDef().MustUse(reg)
	store.Update(func(s *counterState) { s.Count++ })
	store.Reset()

	if len(seen) != 2 {
		t.Fatalf("expected 2 mutations, got %d", len(seen))
	}
	if seen[0].Type != MutationDirect || seen[1].Type != MutationReset {
		t.Errorf("unexpected mutation types %v %v", seen[0].Type, seen[1].Type)
	}
}

func TestHandlePatchAndReset(t *testing.T) {
	reg := New()
	defer reg.Close()
	store := counterDef().MustUse(reg)

	h, ok := reg.Handle("counter")
	if !ok {
		t.Fatal("handle not found")
	}

	if err := h.PatchJSON([]byte(`{"count":5}`)); err != nil {
		t.Fatalf("patch: %v", err)
	}
	if store.Peek().Count != 5 {
		t.Errorf("patch through handle did not apply")
	}

	if err := h.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if store.Peek().Count != 0 {
		t.Errorf("reset through handle did not apply")
	}

	raw, err := h.StateJSON()
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if !strings.Contains(string(raw), `"eduardo"`) {
		t.Errorf("unexpected state json %s", raw)
	}
}
