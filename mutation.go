package strata

import "time"

// MutationType classifies how a store's state changed.
type MutationType string

const (
	// MutationDirect is a single Update call.
	MutationDirect MutationType = "direct"

	// MutationPatchFunc is a grouped partial update via Patch.
	MutationPatchFunc MutationType = "patch.function"

	// MutationPatchJSON is a deep partial merge via PatchJSON.
	MutationPatchJSON MutationType = "patch.json"

	// MutationReplace is a wholesale state replacement.
	MutationReplace MutationType = "replace"

	// MutationReset restored the definition's initial state.
	MutationReset MutationType = "reset"
)

// Mutation describes one published state change. Versions increase by
// exactly one per mutation within a store, regardless of how many fields
// the mutation touched.
type Mutation struct {
	StoreID string       `json:"storeId"`
	Type    MutationType `json:"type"`
	Version uint64       `json:"version"`
	Time    time.Time    `json:"time"`
}
