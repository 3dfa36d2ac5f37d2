// internal/models/quiz.go
package models

// QuizPhase is the per-round phase of the quiz state machine.
type QuizPhase string

const (
	QuizPhaseIdle     QuizPhase = "IDLE"
	QuizPhaseQuestion QuizPhase = "QUESTION"
	QuizPhaseReveal   QuizPhase = "REVEAL"
	QuizPhaseEnd      QuizPhase = "END"
)

// QuizQuestion is one entry of the fixed question bank.
type QuizQuestion struct {
	ID                 string   `json:"id" yaml:"id"`
	Text               string   `json:"text" yaml:"text"`
	Options            []string `json:"options" yaml:"options"`
	CorrectOptionIndex int      `json:"correctOptionIndex" yaml:"correct"`
}

// QuizConfig holds the round configuration supplied by the host on START.
type QuizConfig struct {
	TimePerQuestion int `json:"timePerQuestion"`
	TotalQuestions  int `json:"totalQuestions"`
}

// QuizAnswer is a team's answer for the current question. Locked is a
// one-way transition per question. Timestamp holds wall-clock millis when
// the option was picked and is overwritten with the countdown's remaining
// seconds at lock time; it is informational only and never scored.
type QuizAnswer struct {
	OptionIndex int   `json:"optionIndex"`
	Locked      bool  `json:"locked"`
	Timestamp   int64 `json:"timestamp"`
}

// QuizState is the quiz round sub-state embedded in GameState. GameScores
// accumulates round-local points, separate from each team's cumulative
// score until committed at round end.
type QuizState struct {
	IsActive             bool                   `json:"isActive"`
	Config               QuizConfig             `json:"config"`
	CurrentQuestion      *QuizQuestion          `json:"currentQuestion"`
	CurrentQuestionIndex int                    `json:"currentQuestionIndex"`
	Timer                int                    `json:"timer"`
	Phase                QuizPhase              `json:"phase"`
	Answers              map[string]*QuizAnswer `json:"answers"`
	GameScores           map[string]int         `json:"gameScores"`
}
