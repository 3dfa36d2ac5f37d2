// internal/handlers/handlers_test.go
package handlers

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/awagner/quizparty/internal/broadcast"
	"github.com/awagner/quizparty/internal/models"
	"github.com/awagner/quizparty/internal/questions"
	"github.com/awagner/quizparty/internal/quiz"
	"github.com/awagner/quizparty/internal/registry"
	"github.com/awagner/quizparty/internal/state"
)

// setupTestServer wires the full component stack over a fake clock, plus
// a watcher connection that observes everything the server broadcasts.
func setupTestServer(t *testing.T) (*Server, *broadcast.Connection) {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	clock := clockwork.NewFakeClock()
	store := state.New(models.DefaultGameState())
	router := broadcast.NewRouter(logger)
	store.OnReplace(router.BroadcastState)

	reg := registry.New(store, clock, 10*time.Second, logger)
	engine := quiz.New(store, questions.Defaults(), clock, logger, nil)

	watcher := router.Register("watcher")
	return NewServer(logger, store, router, reg, engine), watcher
}

func env(t *testing.T, event string, payload interface{}) inboundEnvelope {
	t.Helper()
	if payload == nil {
		return inboundEnvelope{Event: event}
	}
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return inboundEnvelope{Event: event, Data: data}
}

func drainEvents(conn *broadcast.Connection) []broadcast.Envelope {
	var out []broadcast.Envelope
	for {
		select {
		case frame := <-conn.Out():
			var e broadcast.Envelope
			if json.Unmarshal(frame, &e) == nil {
				out = append(out, e)
			}
		default:
			return out
		}
	}
}

func TestJoinTeamCreatesTeamBoundToConnection(t *testing.T) {
	s, watcher := setupTestServer(t)

	s.dispatch("conn-1", env(t, "joinTeam", map[string]string{"teamId": "stable-a", "name": "Alphas"}))

	st := s.Store.Get()
	require.Len(t, st.Teams, 1)
	assert.Equal(t, "stable-a", st.Teams[0].ID)
	assert.Equal(t, "conn-1", st.Teams[0].ConnectionID)

	events := drainEvents(watcher)
	require.NotEmpty(t, events)
	assert.Equal(t, "gameStateUpdate", events[len(events)-1].Event)
}

func TestAnswerAndLockResolveTeamByConnection(t *testing.T) {
	s, _ := setupTestServer(t)
	s.dispatch("conn-1", env(t, "joinTeam", map[string]string{"teamId": "stable-a", "name": "Alphas"}))
	s.dispatch("admin", env(t, "quizAdminAction", map[string]interface{}{"type": "SETUP"}))
	s.dispatch("admin", env(t, "quizAdminAction", map[string]interface{}{
		"type":    "START",
		"payload": map[string]int{"timePerQuestion": 30, "totalQuestions": 3},
	}))

	s.dispatch("conn-1", env(t, "quizAnswer", map[string]int{"optionIndex": 2}))
	s.dispatch("conn-1", env(t, "quizLock", nil))

	ans := s.Store.Get().Quiz.Answers["stable-a"]
	require.NotNil(t, ans)
	assert.Equal(t, 2, ans.OptionIndex)
	assert.True(t, ans.Locked)
}

func TestAnswerFromSpectatorConnectionIsDropped(t *testing.T) {
	s, _ := setupTestServer(t)
	s.dispatch("admin", env(t, "quizAdminAction", map[string]interface{}{"type": "SETUP"}))
	s.dispatch("admin", env(t, "quizAdminAction", map[string]interface{}{"type": "START"}))

	s.dispatch("lurker", env(t, "quizAnswer", map[string]int{"optionIndex": 1}))

	assert.Empty(t, s.Store.Get().Quiz.Answers)
}

func TestToggleLeaderboard(t *testing.T) {
	s, _ := setupTestServer(t)

	s.dispatch("admin", env(t, "toggleLeaderboard", map[string]bool{"show": true}))
	assert.True(t, s.Store.Get().ShowLeaderboard)

	s.dispatch("admin", env(t, "toggleLeaderboard", map[string]bool{"show": false}))
	assert.False(t, s.Store.Get().ShowLeaderboard)
}

func TestAdminUpdateScoreAppliesDelta(t *testing.T) {
	s, watcher := setupTestServer(t)
	s.dispatch("conn-1", env(t, "joinTeam", map[string]string{"teamId": "stable-a", "name": "Alphas"}))
	drainEvents(watcher)

	s.dispatch("admin", env(t, "adminUpdateScore", map[string]interface{}{"teamId": "stable-a", "delta": 5}))
	assert.Equal(t, 5, s.Store.Get().TeamByID("stable-a").Score)

	s.dispatch("admin", env(t, "adminUpdateScore", map[string]interface{}{"teamId": "stable-a", "delta": -3}))
	assert.Equal(t, 2, s.Store.Get().TeamByID("stable-a").Score)

	// Unknown team: silent no-op, no broadcast.
	drainEvents(watcher)
	s.dispatch("admin", env(t, "adminUpdateScore", map[string]interface{}{"teamId": "ghost", "delta": 5}))
	assert.Empty(t, drainEvents(watcher))
}

func TestChatMessageCarriesTeamIdentity(t *testing.T) {
	s, watcher := setupTestServer(t)
	s.dispatch("conn-1", env(t, "joinTeam", map[string]string{"teamId": "stable-a", "name": "Alphas"}))
	drainEvents(watcher)

	s.dispatch("conn-1", env(t, "sendChatMessage", map[string]string{"text": "hello"}))

	events := drainEvents(watcher)
	require.Len(t, events, 1)
	assert.Equal(t, "chatMessage", events[0].Event)
	payload := events[0].Data.(map[string]interface{})
	assert.Equal(t, "hello", payload["text"])
	assert.Equal(t, "Alphas", payload["teamName"])
	assert.NotEmpty(t, payload["id"])
}

func TestChatFromSpectatorIsDropped(t *testing.T) {
	s, watcher := setupTestServer(t)
	drainEvents(watcher)

	s.dispatch("lurker", env(t, "sendChatMessage", map[string]string{"text": "hello"}))
	assert.Empty(t, drainEvents(watcher))
}

func TestReactionIncludesTeamColor(t *testing.T) {
	s, watcher := setupTestServer(t)
	s.dispatch("conn-1", env(t, "joinTeam", map[string]string{"teamId": "stable-a", "name": "Alphas"}))
	drainEvents(watcher)

	s.dispatch("conn-1", env(t, "playerReaction", map[string]string{"type": "clap"}))

	events := drainEvents(watcher)
	require.Len(t, events, 1)
	assert.Equal(t, "reactionTriggered", events[0].Event)
	payload := events[0].Data.(map[string]interface{})
	assert.Equal(t, "clap", payload["type"])
	assert.Equal(t, "stable-a", payload["teamId"])
	assert.NotEmpty(t, payload["teamColor"])
}

func TestPlayMediaFansOut(t *testing.T) {
	s, watcher := setupTestServer(t)
	drainEvents(watcher)

	s.dispatch("admin", env(t, "adminPlayMedia", map[string]interface{}{
		"type": "video", "url": "https://example.com/clip.mp4", "duration": 15,
	}))

	events := drainEvents(watcher)
	require.Len(t, events, 1)
	assert.Equal(t, "playMedia", events[0].Event)
}

// Each WebSocket read loop dispatches on its own goroutine, so team
// lookups and the connect-time snapshot must hold the store lock while
// joins mutate the team list. Run with -race.
func TestConcurrentDispatchSharesStateSafely(t *testing.T) {
	s, _ := setupTestServer(t)
	s.dispatch("conn-0", env(t, "joinTeam", map[string]string{"teamId": "stable-0", "name": "Zero"}))
	s.dispatch("admin", env(t, "quizAdminAction", map[string]interface{}{"type": "SETUP"}))
	s.dispatch("admin", env(t, "quizAdminAction", map[string]interface{}{"type": "START"}))

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		for i := 1; i <= 50; i++ {
			data := json.RawMessage(fmt.Sprintf(`{"teamId":"stable-%d","name":"Team %d"}`, i, i))
			s.dispatch(fmt.Sprintf("conn-%d", i), inboundEnvelope{Event: "joinTeam", Data: data})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			data := json.RawMessage(fmt.Sprintf(`{"optionIndex":%d}`, i%4))
			s.dispatch("conn-0", inboundEnvelope{Event: "quizAnswer", Data: data})
			s.dispatch("conn-0", inboundEnvelope{Event: "sendChatMessage", Data: json.RawMessage(`{"text":"go"}`)})
		}
	}()
	go func() {
		defer wg.Done()
		// The connect-time snapshot path: marshal the state under a
		// locked view, as the handler does for every new connection.
		for i := 0; i < 50; i++ {
			s.Store.View(func(st *models.GameState) {
				s.Router.SendState("watcher", st)
			})
		}
	}()
	wg.Wait()

	st := s.Store.Get()
	assert.Len(t, st.Teams, 51)
	ans := st.Quiz.Answers["stable-0"]
	require.NotNil(t, ans)
}

func TestMalformedPayloadIsIgnored(t *testing.T) {
	s, watcher := setupTestServer(t)
	drainEvents(watcher)

	s.dispatch("conn-1", inboundEnvelope{Event: "joinTeam", Data: json.RawMessage(`"not an object"`)})

	assert.Empty(t, s.Store.Get().Teams)
	assert.Empty(t, drainEvents(watcher))
}

func TestUnknownEventIsIgnored(t *testing.T) {
	s, watcher := setupTestServer(t)
	drainEvents(watcher)

	s.dispatch("conn-1", env(t, "doTheImpossible", map[string]string{"x": "y"}))
	assert.Empty(t, drainEvents(watcher))
}
