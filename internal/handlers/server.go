// internal/handlers/server.go
package handlers

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/awagner/quizparty/internal/broadcast"
	"github.com/awagner/quizparty/internal/quiz"
	"github.com/awagner/quizparty/internal/registry"
	"github.com/awagner/quizparty/internal/state"
)

// Server bundles the components the WebSocket handler dispatches into.
type Server struct {
	Log      *logrus.Logger
	Store    *state.Store
	Router   *broadcast.Router
	Registry *registry.Registry
	Quiz     *quiz.Engine
}

// NewServer wires the handler layer over the core components.
func NewServer(log *logrus.Logger, store *state.Store, router *broadcast.Router, reg *registry.Registry, engine *quiz.Engine) *Server {
	return &Server{
		Log:      log,
		Store:    store,
		Router:   router,
		Registry: reg,
		Quiz:     engine,
	}
}

// HealthHandler reports liveness.
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
