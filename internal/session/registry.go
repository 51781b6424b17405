package session

import (
	"context"
	"errors"
	"sync"
)

// ErrAlreadyStreaming is returned when a thread already has a non-terminal
// session. A second message to a busy thread is rejected, never interleaved;
// queueing is the caller's decision.
var ErrAlreadyStreaming = errors.New("thread already has an active session")

// ErrNoActiveSession is returned by Cancel when nothing is streaming.
var ErrNoActiveSession = errors.New("no active session for thread")

type activeSession struct {
	machine *Machine
	cancel  context.CancelFunc
	// done is closed by the turn once the transport reader has fully shut
	// down. Cancel waits on it so no dangling reader can keep writing into a
	// session the registry already discarded.
	done chan struct{}
}

// Turn is the registry's handle for one running session.
type Turn struct {
	Machine *Machine
	// Ctx is cancelled when the session is cancelled; the transport read for
	// this turn must be bound to it.
	Ctx context.Context

	reg      *Registry
	threadID string
	done     chan struct{}
	once     sync.Once
}

// Release records the terminal outcome and confirms the transport connection
// is closed. It must be called exactly once, after the reader goroutine has
// stopped touching the session; it is safe against duplicate calls.
func (t *Turn) Release(status Status) {
	t.once.Do(func() {
		t.Machine.Finish(status) // no-op when a cancel already made it terminal
		close(t.done)
		t.reg.retire(t.threadID, t.done)
	})
}

// Registry maps thread ids to at most one active session each. It is the
// only shared mutable structure of the engine; all map mutations are atomic
// with respect to concurrent Start calls for the same thread.
type Registry struct {
	mu        sync.Mutex
	active    map[string]*activeSession
	snapshots map[string]*Machine
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		active:    make(map[string]*activeSession),
		snapshots: make(map[string]*Machine),
	}
}

// Start creates and starts a session for threadID. It fails with
// ErrAlreadyStreaming while a non-terminal session exists for the thread.
// Starting a thread drops its previous terminal snapshot.
func (r *Registry) Start(ctx context.Context, threadID string) (*Turn, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if as, ok := r.active[threadID]; ok && !as.machine.Status().Terminal() {
		return nil, ErrAlreadyStreaming
	}
	delete(r.snapshots, threadID)

	m := NewMachine(threadID)
	if err := m.Start(); err != nil {
		return nil, err
	}

	cctx, cancel := context.WithCancel(ctx)
	as := &activeSession{machine: m, cancel: cancel, done: make(chan struct{})}
	r.active[threadID] = as

	return &Turn{
		Machine:  m,
		Ctx:      cctx,
		reg:      r,
		threadID: threadID,
		done:     as.done,
	}, nil
}

// Get returns the session for threadID: the active machine if one is
// streaming, otherwise the retained terminal snapshot, otherwise nil.
func (r *Registry) Get(threadID string) *Machine {
	r.mu.Lock()
	defer r.mu.Unlock()

	if as, ok := r.active[threadID]; ok {
		return as.machine
	}
	return r.snapshots[threadID]
}

// Cancel aborts the active session for threadID: it moves the machine to
// Cancelled, unblocks the in-progress transport read, and returns only after
// the reader has confirmed the underlying connection is closed.
func (r *Registry) Cancel(threadID string) error {
	r.mu.Lock()
	as, ok := r.active[threadID]
	r.mu.Unlock()
	if !ok {
		return ErrNoActiveSession
	}

	as.machine.Cancel()
	as.cancel()
	<-as.done
	return nil
}

// Drop discards the terminal snapshot for threadID, if any.
func (r *Registry) Drop(threadID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.snapshots, threadID)
}

// Active reports how many sessions are currently registered as active.
func (r *Registry) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active)
}

// retire moves a finished session out of the active index and keeps its
// machine queryable as a terminal snapshot until Drop or the next Start.
func (r *Registry) retire(threadID string, done chan struct{}) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if as, ok := r.active[threadID]; ok && as.done == done {
		delete(r.active, threadID)
		r.snapshots[threadID] = as.machine
	}
}
