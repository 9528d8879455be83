package devtools

import (
	"encoding/json"

	"github.com/strata-dev/strata"
)

// Frame types sent to inspector clients.
const (
	FrameInit     = "init"
	FrameMutation = "mutation"
	FrameAction   = "action"
)

// Frame is one message on the inspector stream.
type Frame struct {
	Type string `json:"type"`

	// Store is the store id for mutation and action frames.
	Store string `json:"store,omitempty"`

	// Mutation metadata, for mutation frames.
	Mutation *strata.Mutation `json:"mutation,omitempty"`

	// Action describes a completed action, for action frames.
	Action *ActionInfo `json:"action,omitempty"`

	// State is the store state after a mutation.
	State json.RawMessage `json:"state,omitempty"`

	// Stores is the full snapshot sent in the init frame.
	Stores []StoreState `json:"stores,omitempty"`
}

// StoreState is one store's snapshot.
type StoreState struct {
	ID    string          `json:"id"`
	State json.RawMessage `json:"state"`
}

// ActionInfo describes a finished action invocation.
type ActionInfo struct {
	Name       string  `json:"name"`
	Status     string  `json:"status"` // "success" or "error"
	Error      string  `json:"error,omitempty"`
	DurationMS float64 `json:"durationMs"`
}

// Command is an instruction from an inspector client.
type Command struct {
	Cmd   string          `json:"cmd"` // "patch", "reset", "snapshot"
	Store string          `json:"store,omitempty"`
	State json.RawMessage `json:"state,omitempty"`
}
