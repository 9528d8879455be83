package reactive

import (
	"runtime"
	"sync"
)

// trackingState holds the reactive bookkeeping for one goroutine: what is
// currently tracking dependencies, which scope owns new primitives, and
// the pending notification queue while a batch is open.
type trackingState struct {
	listener Listener
	scope    *Scope

	batchDepth int
	pending    []Listener
}

// trackingStates maps goroutine ID to its tracking state.
var trackingStates sync.Map

// goroutineID extracts the current goroutine's ID from the runtime stack
// header ("goroutine <id> ..."). Implementation detail; never exposed.
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)

	var id uint64
	for i := len("goroutine "); i < n; i++ {
		if buf[i] < '0' || buf[i] > '9' {
			break
		}
		id = id*10 + uint64(buf[i]-'0')
	}
	return id
}

func currentState() *trackingState {
	gid := goroutineID()
	if st, ok := trackingStates.Load(gid); ok {
		return st.(*trackingState)
	}
	st := &trackingState{}
	trackingStates.Store(gid, st)
	return st
}

// peekState looks up the goroutine's entry without creating one. Read
// paths go through here so a bare signal read never allocates tracking
// state.
func peekState() *trackingState {
	if st, ok := trackingStates.Load(goroutineID()); ok {
		return st.(*trackingState)
	}
	return nil
}

// release drops the goroutine's entry once nothing references it, so
// short-lived goroutines that touched a signal do not accumulate state.
// The state is rebuilt lazily if the goroutine comes back.
func release(st *trackingState) {
	if st.listener == nil && st.scope == nil && st.batchDepth == 0 && len(st.pending) == 0 {
		trackingStates.Delete(goroutineID())
	}
}

func currentListener() Listener {
	if st := peekState(); st != nil {
		return st.listener
	}
	return nil
}

// swapListener installs l as the current listener and returns the previous
// one so callers can restore it.
func swapListener(l Listener) Listener {
	st := currentState()
	old := st.listener
	st.listener = l
	release(st)
	return old
}

func currentScope() *Scope {
	if st := peekState(); st != nil {
		return st.scope
	}
	return nil
}

// CurrentScope returns the scope installed for the calling goroutine, or
// nil when none is active.
func CurrentScope() *Scope {
	return currentScope()
}

func swapScope(s *Scope) *Scope {
	st := currentState()
	old := st.scope
	st.scope = s
	release(st)
	return old
}

func batchDepth() int {
	if st := peekState(); st != nil {
		return st.batchDepth
	}
	return 0
}

func enterBatch() {
	currentState().batchDepth++
}

// leaveBatch reports whether the outermost batch just completed.
func leaveBatch() bool {
	st := currentState()
	st.batchDepth--
	done := st.batchDepth == 0
	release(st)
	return done
}

func queueNotification(l Listener) {
	st := currentState()
	st.pending = append(st.pending, l)
}

func drainNotifications() []Listener {
	st := currentState()
	pending := st.pending
	st.pending = nil
	release(st)
	return pending
}

// WithListener runs fn with l installed as the tracking listener. Signal
// and memo reads inside fn subscribe l.
func WithListener(l Listener, fn func()) {
	old := swapListener(l)
	defer swapListener(old)
	fn()
}

// WithScope runs fn with s as the current scope. Effects created inside fn
// are owned by s and disposed with it.
func WithScope(s *Scope, fn func()) {
	old := swapScope(s)
	defer swapScope(old)
	fn()
}
