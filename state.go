package strata

import (
	"encoding/json"
	"fmt"
	"io"
)

// Dehydrate serializes every bound store's state into a single JSON
// object keyed by store id, suitable for embedding in server-rendered
// output. Stores whose state fails to marshal are skipped with a warning
// rather than failing the whole snapshot.
func (r *Registry) Dehydrate() ([]byte, error) {
	handles := r.Handles()
	out := make(map[string]json.RawMessage, len(handles))
	for _, h := range handles {
		raw, err := h.StateJSON()
		if err != nil {
			r.logger.Warn("dehydrate: skipping store", "store", h.ID(), "error", err)
			continue
		}
		out[h.ID()] = raw
	}
	return json.Marshal(out)
}

// Hydrate loads a Dehydrate payload. State for stores already bound is
// deep-merged immediately; state for unknown ids is staged and merged
// over the initial state when the matching definition is bound. Staged
// state that never finds a store is dropped at Close.
func (r *Registry) Hydrate(raw []byte) error {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("%w: %v", ErrHydrate, err)
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrRegistryClosed
	}
	live := make(map[string]Handle)
	for id, state := range payload {
		if rec, ok := r.stores[id]; ok {
			live[id] = rec.handle
			continue
		}
		r.staged[id] = state
	}
	r.mu.Unlock()

	for id, h := range live {
		if err := h.PatchJSON(payload[id]); err != nil {
			return fmt.Errorf("%w: store %q: %v", ErrHydrate, id, err)
		}
	}
	return nil
}

// DehydrateInto writes a single store's state to w, in the keyed format
// Hydrate consumes, for transferring one store instead of the whole
// registry.
func (r *Registry) DehydrateInto(w io.Writer, id string) error {
	h, ok := r.Handle(id)
	if !ok {
		return fmt.Errorf("%w: %q", ErrStoreUnknown, id)
	}
	raw, err := h.StateJSON()
	if err != nil {
		return fmt.Errorf("strata: dehydrate store %q: %w", id, err)
	}
	return json.NewEncoder(w).Encode(map[string]json.RawMessage{id: raw})
}

// HydrateStore loads one store's raw state: deep-merged immediately when
// the store is bound, staged for bind time otherwise.
func (r *Registry) HydrateStore(id string, raw []byte) error {
	if !json.Valid(raw) {
		return fmt.Errorf("%w: store %q", ErrHydrate, id)
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrRegistryClosed
	}
	rec, bound := r.stores[id]
	if !bound {
		r.staged[id] = raw
	}
	r.mu.Unlock()

	if !bound {
		return nil
	}
	if err := rec.handle.PatchJSON(raw); err != nil {
		return fmt.Errorf("%w: store %q: %v", ErrHydrate, id, err)
	}
	return nil
}
