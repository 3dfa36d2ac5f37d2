// cmd/server/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/joho/godotenv/autoload"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/awagner/quizparty/internal/broadcast"
	"github.com/awagner/quizparty/internal/config"
	"github.com/awagner/quizparty/internal/handlers"
	"github.com/awagner/quizparty/internal/middleware"
	"github.com/awagner/quizparty/internal/models"
	"github.com/awagner/quizparty/internal/persist"
	"github.com/awagner/quizparty/internal/questions"
	"github.com/awagner/quizparty/internal/quiz"
	"github.com/awagner/quizparty/internal/registry"
	"github.com/awagner/quizparty/internal/state"
)

func main() {
	cfg := config.FromEnv()

	logger := logrus.New()
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	clock := clockwork.NewRealClock()

	bank, err := questions.Load(cfg.QuestionsFile)
	if err != nil {
		log.Fatalf("question bank: %v", err)
	}
	logger.Infof("question bank loaded: %d questions", len(bank))

	// Persistence is best-effort: an unreachable Redis means the game runs
	// in memory only, it never stops the server from starting.
	var saver persist.SnapshotSaver
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Warnf("redis unreachable at %s, running in-memory only: %v", cfg.RedisAddr, err)
	} else {
		saver = &persist.RedisSaver{Client: rdb, Key: cfg.SnapshotKey}
	}
	cancel()

	gateway := persist.NewGateway(saver, clock, persist.DefaultDebounce, logger)

	loadCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	initial := gateway.Load(loadCtx, models.DefaultGameState())
	cancel()

	store := state.New(initial)
	router := broadcast.NewRouter(logger)
	store.OnReplace(router.BroadcastState)
	store.OnReplace(gateway.RequestSave)

	var archive *persist.HistoryArchive
	if cfg.PostgresURL != "" {
		pool, err := pgxpool.New(context.Background(), cfg.PostgresURL)
		if err != nil {
			logger.Warnf("postgres unavailable, history archive disabled: %v", err)
		} else {
			archive = persist.NewHistoryArchive(pool, logger)
			logger.Info("history archive enabled")
		}
	}

	reg := registry.New(store, clock, cfg.GracePeriod, logger)
	engine := quiz.New(store, bank, clock, logger, archive)
	srv := handlers.NewServer(logger, store, router, reg, engine)

	mux := http.NewServeMux()
	mux.Handle("/ws", middleware.LogMiddleware(logger)(srv.WSHandler()))
	mux.Handle("/health", middleware.LogMiddleware(logger)(http.HandlerFunc(handlers.HealthHandler)))

	addr := ":" + cfg.Port
	logger.Infof("Running on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
