// internal/broadcast/router.go
package broadcast

import (
	"encoding/json"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/awagner/quizparty/internal/models"
)

// Envelope is the wire frame for every server-to-client message.
type Envelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

// Connection is a single client's presence on the router. Writes go
// through a buffered out channel drained by the transport's write pump;
// Send never blocks the mutation path.
type Connection struct {
	ID  string
	out chan []byte
	log *logrus.Logger

	mu     sync.Mutex
	closed bool
}

// Out exposes the outbound frame channel for the transport write pump.
func (c *Connection) Out() <-chan []byte {
	return c.out
}

// Send pushes a frame onto the out channel non-blockingly. Frames are
// dropped with a warning when the client cannot keep up; the next state
// broadcast supersedes anything dropped. Sends racing a close are
// dropped too.
func (c *Connection) Send(frame []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.out <- frame:
	default:
		c.log.Warnf("connection %s: out channel full, dropping frame", c.ID)
	}
}

// Close closes the out channel, stopping the write pump. Safe to call
// more than once.
func (c *Connection) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.out)
}

// Router fans events out to every registered connection. Two categories
// pass through it: full-state snapshots on every mutation, and ephemeral
// fire-and-forget events (reactions, chat, media cues, animations) that
// are never persisted nor replayed.
type Router struct {
	mu    sync.Mutex
	conns map[string]*Connection
	log   *logrus.Logger
}

// NewRouter creates an empty router.
func NewRouter(log *logrus.Logger) *Router {
	return &Router{
		conns: make(map[string]*Connection),
		log:   log,
	}
}

// Register adds a connection and returns its wrapper. The caller is
// responsible for sending the initial snapshot right after registration.
func (r *Router) Register(connID string) *Connection {
	conn := &Connection{
		ID:  connID,
		out: make(chan []byte, 32),
		log: r.log,
	}
	r.mu.Lock()
	r.conns[connID] = conn
	r.mu.Unlock()
	return conn
}

// Unregister drops a connection and closes its out channel.
func (r *Router) Unregister(connID string) {
	r.mu.Lock()
	conn, ok := r.conns[connID]
	delete(r.conns, connID)
	r.mu.Unlock()
	if ok {
		conn.Close()
	}
}

// BroadcastState sends the full snapshot to every connection. Called from
// the store's replace hook while the store lock is held, so the marshal
// here sees a quiescent state and frames are enqueued in mutation order.
func (r *Router) BroadcastState(st *models.GameState) {
	r.broadcast("gameStateUpdate", st)
}

// BroadcastEvent fans an ephemeral event out to every connection.
func (r *Router) BroadcastEvent(event string, payload interface{}) {
	r.broadcast(event, payload)
}

// SendState sends the snapshot to a single connection, used once right
// after a connection is established.
func (r *Router) SendState(connID string, st *models.GameState) {
	frame, err := json.Marshal(Envelope{Event: "gameStateUpdate", Data: st})
	if err != nil {
		r.log.Errorf("marshal state for %s: %v", connID, err)
		return
	}
	r.mu.Lock()
	conn, ok := r.conns[connID]
	r.mu.Unlock()
	if ok {
		conn.Send(frame)
	}
}

func (r *Router) broadcast(event string, payload interface{}) {
	frame, err := json.Marshal(Envelope{Event: event, Data: payload})
	if err != nil {
		r.log.Errorf("marshal %s event: %v", event, err)
		return
	}

	r.mu.Lock()
	conns := make([]*Connection, 0, len(r.conns))
	for _, conn := range r.conns {
		conns = append(conns, conn)
	}
	r.mu.Unlock()

	for _, conn := range conns {
		conn.Send(frame)
	}
}
