// internal/registry/registry.go
package registry

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"github.com/awagner/quizparty/internal/models"
	"github.com/awagner/quizparty/internal/state"
)

// DefaultGracePeriod is how long a disconnected team survives before it is
// removed for good. A page reload or brief network blip reconnects well
// inside this window and keeps the team's score and identity.
const DefaultGracePeriod = 10 * time.Second

// Registry resolves inbound connections to stable team identities and
// arbitrates the disconnect/reconnect race. Game logic looks teams up by
// stable id; the transport dispatches by ephemeral connection id. Grace
// timers are keyed by stable id only, never by connection id.
type Registry struct {
	store *state.Store
	clock clockwork.Clock
	grace time.Duration
	log   *logrus.Logger

	mu     sync.Mutex
	timers map[string]clockwork.Timer // stable id -> pending removal
	rng    *rand.Rand
}

// New creates a registry bound to the store. The clock is injectable so
// grace-period behavior is testable with a fake clock.
func New(store *state.Store, clock clockwork.Clock, grace time.Duration, log *logrus.Logger) *Registry {
	if grace <= 0 {
		grace = DefaultGracePeriod
	}
	return &Registry{
		store:  store,
		clock:  clock,
		grace:  grace,
		log:    log,
		timers: make(map[string]clockwork.Timer),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Join binds a stable team id to a live connection. An id already present
// among the teams is a reconnection: its connection id and name are
// updated and any pending removal is cancelled. A new id creates a fresh
// team with a generated color and zero score, appended in join order.
func (r *Registry) Join(stableID, name, connID string) {
	if stableID == "" {
		r.log.Warn("join rejected: empty stable id")
		return
	}
	r.cancelRemoval(stableID)

	r.store.Mutate(func(st *models.GameState) {
		if team := st.TeamByID(stableID); team != nil {
			team.ConnectionID = connID
			if name != "" {
				team.Name = name
			}
			r.log.Infof("team %s (%s) reconnected on %s", team.Name, stableID, connID)
			return
		}
		team := &models.Team{
			ID:           stableID,
			ConnectionID: connID,
			Name:         name,
			Color:        r.randomColor(),
		}
		st.Teams = append(st.Teams, team)
		r.log.Infof("team %s (%s) joined on %s", name, stableID, connID)
	})
}

// Disconnect resolves the closing connection to a team, marks the team
// connectionless, and schedules its removal after the grace period. A
// connection with no team attached is a spectator and needs no bookkeeping.
func (r *Registry) Disconnect(connID string) {
	var stableID string
	r.store.MutateIf(func(st *models.GameState) bool {
		team := st.TeamByConnection(connID)
		if team == nil {
			return false
		}
		team.ConnectionID = ""
		stableID = team.ID
		return true
	})
	if stableID == "" {
		return
	}
	r.log.Infof("team %s disconnected, removal in %s unless it rejoins", stableID, r.grace)
	r.scheduleRemoval(stableID)
}

// scheduleRemoval arms the grace timer for a stable id, replacing any
// timer already pending for it.
func (r *Registry) scheduleRemoval(stableID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.timers[stableID]; ok {
		old.Stop()
	}
	var timer clockwork.Timer
	timer = r.clock.AfterFunc(r.grace, func() {
		// A reconnect that lands strictly before this fires cancels the
		// timer; a stale timer that raced its own cancellation must not
		// remove the team.
		r.mu.Lock()
		if r.timers[stableID] != timer {
			r.mu.Unlock()
			return
		}
		delete(r.timers, stableID)
		r.mu.Unlock()
		r.removeAfterGrace(stableID)
	})
	r.timers[stableID] = timer
}

// cancelRemoval stops a pending removal for a stable id, if any.
func (r *Registry) cancelRemoval(stableID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if timer, ok := r.timers[stableID]; ok {
		timer.Stop()
		delete(r.timers, stableID)
		r.log.Debugf("cancelled pending removal for team %s", stableID)
	}
}

// removeAfterGrace removes the team for good. The mutation broadcasts and
// persists through the store like every other state change. A team that
// rejoined in the meantime (fresh connection id) is left alone.
func (r *Registry) removeAfterGrace(stableID string) {
	r.store.MutateIf(func(st *models.GameState) bool {
		team := st.TeamByID(stableID)
		if team == nil {
			return false
		}
		if team.ConnectionID != "" {
			return false
		}
		st.RemoveTeam(stableID)
		r.log.Infof("team %s removed after grace period", stableID)
		return true
	})
}

// PendingRemovals reports how many grace timers are armed. Used by tests
// and diagnostics.
func (r *Registry) PendingRemovals() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.timers)
}

func (r *Registry) randomColor() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fmt.Sprintf("#%06x", r.rng.Intn(0x1000000))
}
