package strata

import (
	"log/slog"
)

// Handle is the untyped view of a store that plugins and devtools operate
// on: identity, JSON state access, patching, and event hooks, without
// knowledge of the state type.
type Handle interface {
	// ID returns the store identifier.
	ID() string

	// StateJSON returns the current state marshalled to JSON.
	StateJSON() ([]byte, error)

	// PatchJSON deep-merges a partial JSON object into the state.
	PatchJSON(raw []byte) error

	// Reset restores the definition's initial state.
	Reset() error

	// OnMutation registers a mutation observer. The returned function
	// unsubscribes it.
	OnMutation(fn func(Mutation)) func()

	// OnAction registers an action observer. The returned function
	// unsubscribes it.
	OnAction(fn ActionListener) func()

	// OnDispose registers a callback run when the store is disposed,
	// immediately if it already was. The returned function removes the
	// registration.
	OnDispose(fn func()) func()

	// Dispose removes the store from its registry and releases all
	// subscriptions.
	Dispose()
}

// Plugin extends stores. Install is called once per store: for every
// store already bound when the plugin is registered, and for every store
// bound afterwards.
type Plugin interface {
	Install(pc PluginContext) error
}

// PluginFunc adapts a function to the Plugin interface.
type PluginFunc func(pc PluginContext) error

// Install implements Plugin.
func (f PluginFunc) Install(pc PluginContext) error { return f(pc) }

// PluginContext is what a plugin receives for each store it is installed
// on.
type PluginContext struct {
	// Registry owning the store.
	Registry *Registry

	// Store is the untyped handle of the store being extended.
	Store Handle

	// Logger is the registry logger.
	Logger *slog.Logger
}
