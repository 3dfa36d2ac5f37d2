// internal/models/game.go
package models

// GamePhase is the coarse session phase shown to every screen.
type GamePhase string

const (
	GamePhaseLobby   GamePhase = "LOBBY"
	GamePhaseGame    GamePhase = "GAME"
	GamePhaseResults GamePhase = "RESULTS"
)

// RoundQuiz is the identifier for the quiz game module.
const RoundQuiz = "QUIZ"

// Team is a joined party team. ID is the stable identity supplied by the
// client (persisted client-side), ConnectionID is the transient transport
// identity and is empty while the team is disconnected.
type Team struct {
	ID           string `json:"id"`
	ConnectionID string `json:"connectionId,omitempty"`
	Name         string `json:"name"`
	Score        int    `json:"score"`
	Color        string `json:"color"`
}

// GameState is the single authoritative state root. Exactly one instance
// exists per server process; all mutation is serialized through the store.
type GameState struct {
	Phase           GamePhase          `json:"phase"`
	Teams           []*Team            `json:"teams"`
	ActiveRound     string             `json:"activeRound,omitempty"`
	Quiz            QuizState          `json:"quiz"`
	History         []GameHistoryEntry `json:"history"`
	ShowLeaderboard bool               `json:"showLeaderboard"`
}

// DefaultGameState returns the state a fresh process starts with before any
// persisted snapshot is merged over it.
func DefaultGameState() *GameState {
	return &GameState{
		Phase:   GamePhaseLobby,
		Teams:   []*Team{},
		History: []GameHistoryEntry{},
		Quiz: QuizState{
			Config:               QuizConfig{TimePerQuestion: 30},
			CurrentQuestionIndex: -1,
			Phase:                QuizPhaseIdle,
			Answers:              map[string]*QuizAnswer{},
			GameScores:           map[string]int{},
		},
	}
}

// TeamByID returns the team with the given stable id, or nil.
func (s *GameState) TeamByID(id string) *Team {
	for _, t := range s.Teams {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// TeamByConnection returns the team currently bound to the given transport
// connection id, or nil.
func (s *GameState) TeamByConnection(connID string) *Team {
	if connID == "" {
		return nil
	}
	for _, t := range s.Teams {
		if t.ConnectionID == connID {
			return t
		}
	}
	return nil
}

// RemoveTeam deletes the team with the given stable id, preserving join
// order of the rest. Round-local quiz entries for the team are dropped too
// so answers and gameScores never reference a missing team.
func (s *GameState) RemoveTeam(id string) bool {
	for i, t := range s.Teams {
		if t.ID == id {
			s.Teams = append(s.Teams[:i], s.Teams[i+1:]...)
			delete(s.Quiz.Answers, id)
			delete(s.Quiz.GameScores, id)
			return true
		}
	}
	return false
}
