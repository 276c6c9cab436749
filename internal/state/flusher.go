// Package state holds the in-memory collections of the app and persists
// them in the background after each change.
package state

import (
	"sync"
	"time"
)

// FlushState is the persistence state of a container.
type FlushState int

// Flush states.
const (
	Clean FlushState = iota
	DirtyPending
	Flushing
)

func (s FlushState) String() string {
	switch s {
	case DirtyPending:
		return "dirty-pending"
	case Flushing:
		return "flushing"
	default:
		return "clean"
	}
}

// Debounce delays per container.
const (
	RecordsDelay    = 300 * time.Millisecond
	ExamsDelay      = 300 * time.Millisecond
	SettingsDelay   = 400 * time.Millisecond
	TopicsDelay     = 300 * time.Millisecond
	OnboardingDelay = 300 * time.Millisecond
)

// Flusher coalesces changes and runs save once the container has been
// quiet for the delay. Saves never overlap.
type Flusher struct {
	mu      sync.Mutex
	run     sync.Mutex
	delay   time.Duration
	save    func()
	timer   *time.Timer
	state   FlushState
	redirty bool
	closed  bool
}

// NewFlusher returns a clean flusher calling save.
func NewFlusher(delay time.Duration, save func()) *Flusher {
	return &Flusher{delay: delay, save: save}
}

// Mark records a change and re-arms the timer.
func (f *Flusher) Mark() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == Flushing {
		f.redirty = true
		return
	}
	f.state = DirtyPending
	if !f.closed {
		f.arm()
	}
}

func (f *Flusher) arm() {
	if f.timer == nil {
		f.timer = time.AfterFunc(f.delay, func() { f.flush() })
		return
	}
	f.timer.Reset(f.delay)
}

// State returns the current state.
func (f *Flusher) State() FlushState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// flush saves when dirty and reports whether it did.
func (f *Flusher) flush() bool {
	f.run.Lock()
	defer f.run.Unlock()

	f.mu.Lock()
	if f.state != DirtyPending {
		f.mu.Unlock()
		return false
	}
	f.state = Flushing
	f.mu.Unlock()

	f.save()

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.redirty {
		f.redirty = false
		f.state = DirtyPending
		if !f.closed {
			f.arm()
		}
		return true
	}
	f.state = Clean
	return true
}

// Flush saves pending changes now.
func (f *Flusher) Flush() {
	for f.flush() {
		f.mu.Lock()
		again := f.state == DirtyPending
		f.mu.Unlock()
		if !again {
			return
		}
	}
}

// Close stops the timer and saves pending changes synchronously.
func (f *Flusher) Close() {
	f.mu.Lock()
	f.closed = true
	if f.timer != nil {
		f.timer.Stop()
	}
	f.mu.Unlock()
	f.Flush()
}
