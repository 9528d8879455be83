package main

import (
	"testing"

	"github.com/strata-dev/strata/pkg/devtools"
)

func TestFilterFrame(t *testing.T) {
	init := devtools.Frame{
		Type: devtools.FrameInit,
		Stores: []devtools.StoreState{
			{ID: "counter"},
			{ID: "cart"},
		},
	}
	mutation := devtools.Frame{Type: devtools.FrameMutation, Store: "cart"}

	t.Run("no filter passes everything", func(t *testing.T) {
		got, ok := filterFrame(init, "")
		if !ok || len(got.Stores) != 2 {
			t.Errorf("unfiltered init frame altered: ok=%v stores=%d", ok, len(got.Stores))
		}
	})

	t.Run("init frame narrowed to requested store", func(t *testing.T) {
		got, ok := filterFrame(init, "cart")
		if !ok {
			t.Fatal("init frame dropped")
		}
		if len(got.Stores) != 1 || got.Stores[0].ID != "cart" {
			t.Errorf("init frame not narrowed: %+v", got.Stores)
		}
	})

	t.Run("matching mutation passes", func(t *testing.T) {
		if _, ok := filterFrame(mutation, "cart"); !ok {
			t.Error("matching mutation frame dropped")
		}
	})

	t.Run("other store's mutation dropped", func(t *testing.T) {
		if _, ok := filterFrame(mutation, "counter"); ok {
			t.Error("mutation for another store passed the filter")
		}
	})
}
