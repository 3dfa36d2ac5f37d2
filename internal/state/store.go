// internal/state/store.go
package state

import (
	"sync"

	"github.com/awagner/quizparty/internal/models"
)

// Store owns the single GameState root. Every other component borrows the
// state through read-modify-replace; nothing holds a long-lived copy. The
// store's mutex is the single-writer discipline for the whole process:
// inbound actions, countdown ticks and grace-timer callbacks all mutate
// through it, so they interleave but never run concurrently against the
// shared state.
type Store struct {
	mu        sync.Mutex
	state     *models.GameState
	onReplace []func(*models.GameState)
}

// New creates a store rooted at the given initial state.
func New(initial *models.GameState) *Store {
	if initial == nil {
		initial = models.DefaultGameState()
	}
	return &Store{state: initial}
}

// OnReplace registers a hook invoked after every swap, while the store
// lock is still held. Hooks must not mutate the state and must not block;
// the broadcast router and persistence gateway both serialize the snapshot
// synchronously and hand off to channels/timers.
func (s *Store) OnReplace(fn func(*models.GameState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onReplace = append(s.onReplace, fn)
}

// Get returns the current state root.
func (s *Store) Get() *models.GameState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// View runs fn against the current root under the store lock. Read paths
// on other goroutines (the transport's team lookup, the connect-time
// snapshot) go through here so they never observe the state mid-mutation.
// fn must not mutate the state.
func (s *Store) View(fn func(*models.GameState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.state)
}

// Replace swaps the root and fires the replace hooks: every swap is
// broadcast to all connections and scheduled for a debounced save. There
// is no change detection; the protocol is snapshot-based on purpose.
func (s *Store) Replace(next *models.GameState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = next
	s.fireLocked()
}

// Mutate runs fn against the current root under the store lock, then
// fires the replace hooks. It is the read-modify-replace primitive every
// action handler and timer callback goes through.
func (s *Store) Mutate(fn func(*models.GameState)) {
	s.MutateIf(func(st *models.GameState) bool {
		fn(st)
		return true
	})
}

// MutateIf is Mutate for handlers whose action may be a no-op for the
// current phase: fn reports whether it changed anything, and hooks only
// fire when it did. Invalid-phase actions stay silent instead of pushing
// an identical snapshot to every client.
func (s *Store) MutateIf(fn func(*models.GameState) bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fn(s.state) {
		s.fireLocked()
	}
}

func (s *Store) fireLocked() {
	for _, fn := range s.onReplace {
		fn(s.state)
	}
}
