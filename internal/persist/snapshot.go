// internal/persist/snapshot.go
package persist

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/awagner/quizparty/internal/models"
)

// DefaultSnapshotKey is the fixed document key the full state lives under.
const DefaultSnapshotKey = "quizparty:game_state"

// DefaultDebounce coalesces bursts of mutations into at most one write
// per interval.
const DefaultDebounce = time.Second

// SnapshotSaver is the durable store behind the gateway. Load returns
// (nil, nil) when no snapshot exists yet.
type SnapshotSaver interface {
	Save(ctx context.Context, data []byte) error
	Load(ctx context.Context) ([]byte, error)
}

// RedisSaver stores the snapshot as a single JSON document under a fixed
// key.
type RedisSaver struct {
	Client *redis.Client
	Key    string
}

// Save writes the document.
func (s *RedisSaver) Save(ctx context.Context, data []byte) error {
	return s.Client.Set(ctx, s.Key, data, 0).Err()
}

// Load reads the document. A missing key is not an error.
func (s *RedisSaver) Load(ctx context.Context) ([]byte, error) {
	data, err := s.Client.Get(ctx, s.Key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	return data, err
}

// Gateway is the debounced, best-effort persistence layer. RequestSave
// never blocks the mutation path: the snapshot is serialized on the spot
// and written by a timer callback at most once per debounce interval.
// The first failed save disables persistence for the rest of the process
// lifetime; the game keeps running in memory.
type Gateway struct {
	saver    SnapshotSaver
	clock    clockwork.Clock
	debounce time.Duration
	log      *logrus.Logger

	mu       sync.Mutex
	timer    clockwork.Timer
	pending  []byte
	disabled bool
}

// NewGateway builds a gateway over the given saver. A nil saver starts
// disabled (in-memory only).
func NewGateway(saver SnapshotSaver, clock clockwork.Clock, debounce time.Duration, log *logrus.Logger) *Gateway {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Gateway{
		saver:    saver,
		clock:    clock,
		debounce: debounce,
		log:      log,
		disabled: saver == nil,
	}
}

// RequestSave restarts the debounce timer with the latest snapshot. It is
// called from the store's replace hook, so the marshal happens while the
// state is quiescent.
func (g *Gateway) RequestSave(st *models.GameState) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.disabled {
		return
	}
	data, err := json.Marshal(st)
	if err != nil {
		g.log.Errorf("marshal snapshot: %v", err)
		return
	}
	g.pending = data
	if g.timer != nil {
		g.timer.Stop()
	}
	g.timer = g.clock.AfterFunc(g.debounce, g.flush)
}

// flush writes the pending snapshot once. Runs on the timer goroutine.
func (g *Gateway) flush() {
	g.mu.Lock()
	data := g.pending
	g.pending = nil
	disabled := g.disabled
	g.mu.Unlock()
	if disabled || data == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := g.saver.Save(ctx, data); err != nil {
		g.log.Errorf("snapshot save failed, persistence disabled for this process: %v", err)
		g.mu.Lock()
		g.disabled = true
		g.mu.Unlock()
		return
	}
	g.log.Debug("snapshot saved")
}

// Load fetches the persisted snapshot and merges it over the defaults:
// top-level fields present in the document win, fields added since the
// snapshot was written keep their defaults. A read error degrades to
// defaults and disables future saves; an absent document just means a
// fresh start.
func (g *Gateway) Load(ctx context.Context, defaults *models.GameState) *models.GameState {
	if g.saver == nil {
		return defaults
	}
	data, err := g.saver.Load(ctx)
	if err != nil {
		g.log.Errorf("snapshot load failed, continuing with defaults, persistence disabled: %v", err)
		g.mu.Lock()
		g.disabled = true
		g.mu.Unlock()
		return defaults
	}
	if data == nil {
		g.log.Info("no persisted snapshot, starting from defaults")
		return defaults
	}
	merged := *defaults
	if err := json.Unmarshal(data, &merged); err != nil {
		g.log.Errorf("snapshot unmarshal failed, continuing with defaults: %v", err)
		return defaults
	}
	if merged.Quiz.Answers == nil {
		merged.Quiz.Answers = map[string]*models.QuizAnswer{}
	}
	if merged.Quiz.GameScores == nil {
		merged.Quiz.GameScores = map[string]int{}
	}
	// Connection ids in the snapshot belong to a previous process; every
	// restored team starts disconnected and rebinds on its next join.
	for _, team := range merged.Teams {
		team.ConnectionID = ""
	}
	g.log.Info("game state restored from snapshot")
	return &merged
}

// Disabled reports whether persistence has been switched off.
func (g *Gateway) Disabled() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.disabled
}
