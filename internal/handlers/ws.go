// internal/handlers/ws.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/awagner/quizparty/internal/broadcast"
	"github.com/awagner/quizparty/internal/models"
	"github.com/awagner/quizparty/internal/quiz"
)

// inboundEnvelope is the wire frame for every client-to-server message.
type inboundEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// WSHandler upgrades the connection, registers it with the broadcast
// router, pushes the current snapshot, and runs the read loop until the
// client goes away. Every connection gets a fresh ephemeral id; the
// stable team identity only enters the picture through joinTeam.
func (s *Server) WSHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: []string{"*"}, // Adjust for production security.
		})
		if err != nil {
			s.Log.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		connID := uuid.New().String()
		conn := s.Router.Register(connID)
		s.Log.Infof("connection %s established from %s", connID, r.RemoteAddr)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		go writePump(ctx, c, conn, s.Log)

		// New connections get the snapshot immediately, before any action.
		// The marshal happens under the store lock so it never races a
		// mutation on another connection's goroutine.
		s.Store.View(func(st *models.GameState) {
			s.Router.SendState(connID, st)
		})

		s.readPump(ctx, c, connID)

		// Cleanup after the read loop exits for any reason.
		s.Router.Unregister(connID)
		s.Registry.Disconnect(connID)
		s.Log.Infof("connection %s closed", connID)
	}
}

// writePump drains the connection's out channel onto the socket. Exits
// when the channel closes (unregister) or the context ends.
func writePump(ctx context.Context, c *websocket.Conn, conn *broadcast.Connection, log *logrus.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-conn.Out():
			if !ok {
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err := c.Write(writeCtx, websocket.MessageText, frame)
			cancel()
			if err != nil {
				log.Warnf("connection %s: write failed: %v", conn.ID, err)
				return
			}
		}
	}
}

// readPump decodes inbound envelopes and dispatches them until the
// connection errors out or the context is cancelled.
func (s *Server) readPump(ctx context.Context, c *websocket.Conn, connID string) {
	for {
		typ, data, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				s.Log.Infof("connection %s: closed normally", connID)
			} else if strings.Contains(err.Error(), "context canceled") {
				s.Log.Infof("connection %s: context canceled", connID)
			} else {
				s.Log.Warnf("connection %s: read error: %v", connID, err)
			}
			return
		}
		if typ != websocket.MessageText {
			s.Log.Warnf("connection %s: ignoring non-text message", connID)
			continue
		}

		var env inboundEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			s.Log.Warnf("connection %s: invalid JSON: %v", connID, err)
			continue
		}
		s.dispatch(connID, env)
	}
}

// dispatch routes one inbound event. Payload decoding happens here at the
// boundary; the core assumes well-formed input. Malformed payloads are
// logged and dropped.
func (s *Server) dispatch(connID string, env inboundEnvelope) {
	switch env.Event {
	case "joinTeam":
		var p struct {
			TeamID string `json:"teamId"`
			Name   string `json:"name"`
		}
		if !s.decode(connID, env, &p) {
			return
		}
		s.Registry.Join(p.TeamID, p.Name, connID)

	case "quizAdminAction":
		var p struct {
			Type    string             `json:"type"`
			Payload *models.QuizConfig `json:"payload"`
		}
		if !s.decode(connID, env, &p) {
			return
		}
		s.Quiz.HandleAdminAction(quiz.AdminAction{Type: p.Type, Config: p.Payload})

	case "quizAnswer":
		var p struct {
			OptionIndex int `json:"optionIndex"`
		}
		if !s.decode(connID, env, &p) {
			return
		}
		if team, ok := s.teamFor(connID); ok {
			s.Quiz.HandleAnswer(team.ID, p.OptionIndex)
		}

	case "quizLock":
		if team, ok := s.teamFor(connID); ok {
			s.Quiz.HandleLock(team.ID)
		}

	case "playerReaction":
		var p struct {
			Type string `json:"type"`
		}
		if !s.decode(connID, env, &p) {
			return
		}
		team, ok := s.teamFor(connID)
		if !ok {
			return
		}
		s.Router.BroadcastEvent("reactionTriggered", models.Reaction{
			Type:      p.Type,
			TeamID:    team.ID,
			TeamName:  team.Name,
			TeamColor: team.Color,
		})

	case "triggerAnimation":
		var p struct {
			Type string `json:"type"`
		}
		if !s.decode(connID, env, &p) {
			return
		}
		s.Router.BroadcastEvent("triggerAnimation", p.Type)

	case "toggleLeaderboard":
		var p struct {
			Show bool `json:"show"`
		}
		if !s.decode(connID, env, &p) {
			return
		}
		s.Store.Mutate(func(st *models.GameState) {
			st.ShowLeaderboard = p.Show
		})

	case "sendChatMessage":
		var p struct {
			Text string `json:"text"`
		}
		if !s.decode(connID, env, &p) {
			return
		}
		team, ok := s.teamFor(connID)
		if !ok || p.Text == "" {
			return
		}
		s.Router.BroadcastEvent("chatMessage", models.ChatMessage{
			ID:        uuid.NewString(),
			TeamID:    team.ID,
			TeamName:  team.Name,
			Text:      p.Text,
			Timestamp: time.Now().UnixMilli(),
			TeamColor: team.Color,
		})

	case "adminPlayMedia":
		var p models.MediaCue
		if !s.decode(connID, env, &p) {
			return
		}
		s.Router.BroadcastEvent("playMedia", p)

	case "adminUpdateScore":
		var p struct {
			TeamID string `json:"teamId"`
			Delta  int    `json:"delta"`
		}
		if !s.decode(connID, env, &p) {
			return
		}
		s.Store.MutateIf(func(st *models.GameState) bool {
			team := st.TeamByID(p.TeamID)
			if team == nil {
				return false
			}
			team.Score += p.Delta
			return true
		})

	default:
		s.Log.Warnf("connection %s: unknown event %q", connID, env.Event)
	}
}

// decode unmarshals an event payload, logging and rejecting bad input.
func (s *Server) decode(connID string, env inboundEnvelope, into interface{}) bool {
	if len(env.Data) == 0 {
		// Events like quizLock carry no payload; an empty body decodes to
		// zero values for those that do.
		return true
	}
	if err := json.Unmarshal(env.Data, into); err != nil {
		s.Log.Warnf("connection %s: bad %s payload: %v", connID, env.Event, err)
		return false
	}
	return true
}

// teamFor resolves the sender's team by its live connection id. The
// lookup copies the team under the store lock; each connection's read
// loop runs on its own goroutine, so an unlocked walk of the team list
// would race a concurrent join.
func (s *Server) teamFor(connID string) (models.Team, bool) {
	var team models.Team
	found := false
	s.Store.View(func(st *models.GameState) {
		if t := st.TeamByConnection(connID); t != nil {
			team = *t
			found = true
		}
	})
	return team, found
}
