package reactive

// Batch groups multiple signal writes into a single notification phase.
// Notifications raised inside fn are queued, deduplicated by listener ID,
// and delivered when the outermost batch completes. Batches nest.
//
//	reactive.Batch(func() {
//	    first.Set("Ada")
//	    last.Set("Lovelace")
//	})
//	// dependents notified once
func Batch(fn func()) {
	enterBatch()
	defer func() {
		if leaveBatch() {
			flushNotifications()
		}
	}()
	fn()
}

// flushNotifications delivers queued notifications, each distinct listener
// at most once.
func flushNotifications() {
	pending := drainNotifications()
	if len(pending) == 0 {
		return
	}

	seen := make(map[uint64]bool, len(pending))
	for _, l := range pending {
		id := l.ID()
		if seen[id] {
			continue
		}
		seen[id] = true
		l.MarkDirty()
	}
}

// Untracked runs fn without dependency capture: signal reads inside do
// not subscribe the current listener. For a single read prefer Peek.
func Untracked(fn func()) {
	old := swapListener(nil)
	defer swapListener(old)
	fn()
}
