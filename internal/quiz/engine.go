// internal/quiz/engine.go
package quiz

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"github.com/awagner/quizparty/internal/models"
	"github.com/awagner/quizparty/internal/state"
)

// PointsPerCorrect is the flat award for a locked correct answer.
const PointsPerCorrect = 10

// Admin action types accepted by HandleAdminAction.
const (
	ActionSetup     = "SETUP"
	ActionStart     = "START"
	ActionNext      = "NEXT"
	ActionReveal    = "REVEAL"
	ActionSkipToEnd = "SKIP_TO_END"
	ActionCancel    = "CANCEL"
)

// AdminAction is a host-issued quiz action. Config is only read for START.
type AdminAction struct {
	Type   string
	Config *models.QuizConfig
}

// HistoryRecorder archives committed round results outside the snapshot
// path. Implementations must be best-effort and never block game flow.
type HistoryRecorder interface {
	Record(ctx context.Context, entry models.GameHistoryEntry)
}

// Engine drives one quiz round: phase transitions, the countdown, answer
// and lock handling, scoring and history. All state mutation goes through
// the store; the engine itself only owns the countdown handle. Actions
// that are invalid for the current phase are silent no-ops by design.
type Engine struct {
	store    *state.Store
	bank     []models.QuizQuestion
	clock    clockwork.Clock
	log      *logrus.Logger
	recorder HistoryRecorder

	mu       sync.Mutex
	stopTick chan struct{}
	tickDone chan struct{}
}

// New creates an engine over the given question bank. recorder may be nil.
func New(store *state.Store, bank []models.QuizQuestion, clock clockwork.Clock, log *logrus.Logger, recorder HistoryRecorder) *Engine {
	return &Engine{
		store:    store,
		bank:     bank,
		clock:    clock,
		log:      log,
		recorder: recorder,
	}
}

// HandleAdminAction dispatches a host action onto the state machine.
func (e *Engine) HandleAdminAction(action AdminAction) {
	switch action.Type {
	case ActionSetup:
		e.setup()
	case ActionStart:
		e.start(action.Config)
	case ActionNext:
		e.next()
	case ActionReveal:
		e.reveal()
	case ActionSkipToEnd:
		e.skipToEnd()
	case ActionCancel:
		e.cancel()
	default:
		e.log.Warnf("unknown quiz admin action %q ignored", action.Type)
	}
}

// HandleAnswer records a team's option pick for the current question.
// Ignored outside the QUESTION phase and after the team has locked; the
// last pick before lock wins. The timestamp is the wall clock at pick
// time, later overwritten at lock.
func (e *Engine) HandleAnswer(teamID string, optionIndex int) {
	e.store.MutateIf(func(st *models.GameState) bool {
		if !st.Quiz.IsActive || st.Quiz.Phase != models.QuizPhaseQuestion {
			return false
		}
		if st.TeamByID(teamID) == nil {
			return false
		}
		if ans, ok := st.Quiz.Answers[teamID]; ok && ans.Locked {
			return false
		}
		st.Quiz.Answers[teamID] = &models.QuizAnswer{
			OptionIndex: optionIndex,
			Locked:      false,
			Timestamp:   e.clock.Now().UnixMilli(),
		}
		return true
	})
}

// HandleLock locks a team's pending answer. The timestamp is overwritten
// with the countdown's remaining seconds as a speed tiebreaker (recorded
// but not consumed by scoring). When every team is locked the countdown
// stops early; that is a traffic optimization, not a phase change.
func (e *Engine) HandleLock(teamID string) {
	allLocked := false
	e.store.MutateIf(func(st *models.GameState) bool {
		if !st.Quiz.IsActive || st.Quiz.Phase != models.QuizPhaseQuestion {
			return false
		}
		ans, ok := st.Quiz.Answers[teamID]
		if !ok || ans.Locked {
			return false
		}
		ans.Locked = true
		ans.Timestamp = int64(st.Quiz.Timer)
		allLocked = everyTeamLocked(st)
		return true
	})
	if allLocked {
		e.stopCountdown()
	}
}

// setup resets the quiz sub-state for a fresh round: IDLE, index -1,
// round-local scores zeroed for every currently joined team.
func (e *Engine) setup() {
	e.stopCountdown()
	e.store.Mutate(func(st *models.GameState) {
		st.Phase = models.GamePhaseGame
		st.ActiveRound = models.RoundQuiz
		st.Quiz = models.QuizState{
			IsActive:             true,
			Config:               models.QuizConfig{TimePerQuestion: 30, TotalQuestions: len(e.bank)},
			CurrentQuestionIndex: -1,
			Phase:                models.QuizPhaseIdle,
			Answers:              map[string]*models.QuizAnswer{},
			GameScores:           map[string]int{},
		}
		for _, team := range st.Teams {
			st.Quiz.GameScores[team.ID] = 0
		}
	})
}

// start applies the host's config and immediately loads question 0.
func (e *Engine) start(cfg *models.QuizConfig) {
	fromIdle := false
	e.store.MutateIf(func(st *models.GameState) bool {
		if !st.Quiz.IsActive || st.Quiz.Phase != models.QuizPhaseIdle {
			return false
		}
		fromIdle = true
		if cfg != nil {
			st.Quiz.Config = *cfg
		}
		// No broadcast here: next() pushes the loaded question right away.
		return false
	})
	if fromIdle {
		e.next()
	}
}

// next advances to the following question. Exhausting the bank commits
// the round and enters END, same as SKIP_TO_END.
func (e *Engine) next() {
	endOfBank := false
	loaded := false
	e.store.MutateIf(func(st *models.GameState) bool {
		if !st.Quiz.IsActive {
			return false
		}
		if st.Quiz.Phase != models.QuizPhaseIdle && st.Quiz.Phase != models.QuizPhaseReveal {
			return false
		}
		nextIndex := st.Quiz.CurrentQuestionIndex + 1
		if nextIndex >= len(e.bank) {
			endOfBank = true
			return false
		}
		q := e.bank[nextIndex]
		st.Quiz.CurrentQuestionIndex = nextIndex
		st.Quiz.CurrentQuestion = &q
		st.Quiz.Phase = models.QuizPhaseQuestion
		st.Quiz.Timer = st.Quiz.Config.TimePerQuestion
		st.Quiz.Answers = map[string]*models.QuizAnswer{}
		loaded = true
		return true
	})
	if endOfBank {
		e.skipToEnd()
		return
	}
	if loaded {
		e.startCountdown()
	}
}

// reveal stops the countdown, force-locks every answer so a host reveal
// before the natural timeout still scores fairly, and awards round points
// for locked correct answers. Idempotent: a second REVEAL never double-
// awards.
func (e *Engine) reveal() {
	e.stopCountdown()
	e.store.MutateIf(func(st *models.GameState) bool {
		if !st.Quiz.IsActive || st.Quiz.Phase != models.QuizPhaseQuestion {
			return false
		}
		for _, ans := range st.Quiz.Answers {
			ans.Locked = true
		}
		st.Quiz.Phase = models.QuizPhaseReveal
		if st.Quiz.CurrentQuestion == nil {
			return true
		}
		correct := st.Quiz.CurrentQuestion.CorrectOptionIndex
		for _, team := range st.Teams {
			ans, ok := st.Quiz.Answers[team.ID]
			if ok && ans.Locked && ans.OptionIndex == correct {
				st.Quiz.GameScores[team.ID] += PointsPerCorrect
			}
		}
		return true
	})
}

// skipToEnd commits round-local scores into each team's cumulative score
// and records a history entry when at least one team scored this round.
// The round ends regardless of which question it was on. A cancelled
// round is no longer active and must never commit the scores the cancel
// discarded.
func (e *Engine) skipToEnd() {
	e.stopCountdown()
	var recorded *models.GameHistoryEntry
	e.store.MutateIf(func(st *models.GameState) bool {
		if !st.Quiz.IsActive || st.Quiz.Phase == models.QuizPhaseEnd {
			return false
		}
		anyScored := false
		scores := make([]models.TeamScore, 0, len(st.Teams))
		for _, team := range st.Teams {
			roundScore := st.Quiz.GameScores[team.ID]
			team.Score += roundScore
			if roundScore > 0 {
				anyScored = true
			}
			scores = append(scores, models.TeamScore{
				TeamID:   team.ID,
				TeamName: team.Name,
				Score:    roundScore,
			})
		}
		if anyScored {
			entry := models.GameHistoryEntry{
				ID:        uuid.NewString(),
				GameType:  models.RoundQuiz,
				Timestamp: e.clock.Now().UnixMilli(),
				Scores:    scores,
			}
			st.History = append(st.History, entry)
			recorded = &entry
		}
		st.Quiz.Phase = models.QuizPhaseEnd
		return true
	})
	if recorded != nil && e.recorder != nil {
		entry := *recorded
		go func() {
			ctx, cancelFn := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancelFn()
			e.recorder.Record(ctx, entry)
		}()
	}
}

// cancel aborts the round and returns to the lobby. Round-local progress
// is discarded: an admin cancel never touches cumulative scores.
func (e *Engine) cancel() {
	e.stopCountdown()
	e.store.Mutate(func(st *models.GameState) {
		st.Phase = models.GamePhaseLobby
		st.ActiveRound = ""
		st.Quiz.IsActive = false
	})
}

// startCountdown launches the 1 Hz countdown goroutine, replacing any
// running one. Ticks decrement the timer while the phase is QUESTION; the
// tick that reaches zero force-locks still-unlocked answers and stops the
// loop. Reaching zero does not reveal; the host still has to.
func (e *Engine) startCountdown() {
	e.stopCountdown()

	e.mu.Lock()
	stop := make(chan struct{})
	done := make(chan struct{})
	e.stopTick = stop
	e.tickDone = done
	e.mu.Unlock()

	ticker := e.clock.NewTicker(time.Second)
	go func() {
		defer close(done)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.Chan():
				if !e.tick() {
					return
				}
			}
		}
	}()
}

// tick applies one countdown second. Returns false when the loop should
// stop. The phase check inside the mutation makes a tick that raced a
// phase transition a no-op.
func (e *Engine) tick() bool {
	keepGoing := true
	e.store.MutateIf(func(st *models.GameState) bool {
		if !st.Quiz.IsActive || st.Quiz.Phase != models.QuizPhaseQuestion {
			keepGoing = false
			return false
		}
		changed := false
		if st.Quiz.Timer > 0 {
			st.Quiz.Timer--
			changed = true
		}
		if st.Quiz.Timer <= 0 {
			keepGoing = false
			for _, team := range st.Teams {
				if ans, ok := st.Quiz.Answers[team.ID]; ok && !ans.Locked {
					ans.Locked = true
					changed = true
				}
			}
		}
		return changed
	})
	return keepGoing
}

// stopCountdown cancels the running countdown, if any, and waits for the
// loop to exit so a cancelled countdown can never tick afterwards.
func (e *Engine) stopCountdown() {
	e.mu.Lock()
	stop := e.stopTick
	done := e.tickDone
	e.stopTick = nil
	e.tickDone = nil
	e.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	<-done
}

// CountdownRunning reports whether the countdown goroutine is live. Used
// by tests.
func (e *Engine) CountdownRunning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stopTick != nil
}

func everyTeamLocked(st *models.GameState) bool {
	if len(st.Teams) == 0 {
		return false
	}
	for _, team := range st.Teams {
		ans, ok := st.Quiz.Answers[team.ID]
		if !ok || !ans.Locked {
			return false
		}
	}
	return true
}
