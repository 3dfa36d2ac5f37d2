// internal/persist/history.go
package persist

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/awagner/quizparty/internal/models"
)

// HistoryArchive writes committed round results to Postgres, off the
// snapshot path. It is strictly best-effort: a failed insert is logged
// and the round outcome lives on in the in-memory history and snapshot.
type HistoryArchive struct {
	pool *pgxpool.Pool
	log  *logrus.Logger
}

// NewHistoryArchive wraps a pgx pool. pool may be nil when Postgres is
// not configured; Record is then a no-op.
func NewHistoryArchive(pool *pgxpool.Pool, log *logrus.Logger) *HistoryArchive {
	return &HistoryArchive{pool: pool, log: log}
}

// Record inserts one history entry. Scores are stored as a JSON document
// in team join order, same as the in-memory entry.
func (a *HistoryArchive) Record(ctx context.Context, entry models.GameHistoryEntry) {
	if a == nil || a.pool == nil {
		return
	}
	scores, err := json.Marshal(entry.Scores)
	if err != nil {
		a.log.Errorf("history archive: marshal scores for %s: %v", entry.ID, err)
		return
	}
	_, err = a.pool.Exec(ctx,
		`INSERT INTO game_history (id, game_type, recorded_at, scores)
		 VALUES ($1, $2, to_timestamp($3 / 1000.0), $4)
		 ON CONFLICT (id) DO NOTHING`,
		entry.ID, entry.GameType, entry.Timestamp, scores,
	)
	if err != nil {
		a.log.Errorf("history archive: insert %s: %v", entry.ID, err)
		return
	}
	a.log.Debugf("history archive: recorded round %s", entry.ID)
}
