package reactive

// Listener is anything that can be notified when a dependency changes.
// Memos implement it to invalidate their cache; effects implement it to
// re-run.
type Listener interface {
	// MarkDirty notifies the listener that one of its dependencies changed.
	MarkDirty()

	// ID returns a unique identifier, used to deduplicate notifications
	// delivered at the end of a batch.
	ID() uint64
}

// Cleanup is returned by effect functions to release resources. It runs
// before the effect re-runs and when the effect is disposed.
type Cleanup func()
