// internal/questions/bank.go
package questions

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/awagner/quizparty/internal/models"
)

// bankFile is the on-disk shape of a question bank.
type bankFile struct {
	Questions []models.QuizQuestion `yaml:"questions"`
}

// Load reads a question bank from a YAML file. An empty path returns the
// built-in defaults so the server is playable out of the box.
func Load(path string) ([]models.QuizQuestion, error) {
	if path == "" {
		return Defaults(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read question bank: %w", err)
	}
	var f bankFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse question bank: %w", err)
	}
	if len(f.Questions) == 0 {
		return nil, fmt.Errorf("question bank %s contains no questions", path)
	}
	for i, q := range f.Questions {
		if len(q.Options) < 2 {
			return nil, fmt.Errorf("question %d (%s) needs at least two options", i, q.ID)
		}
		if q.CorrectOptionIndex < 0 || q.CorrectOptionIndex >= len(q.Options) {
			return nil, fmt.Errorf("question %d (%s) has correct index %d out of range", i, q.ID, q.CorrectOptionIndex)
		}
	}
	return f.Questions, nil
}

// Defaults is a small sample bank used when no file is configured.
func Defaults() []models.QuizQuestion {
	return []models.QuizQuestion{
		{
			ID:                 "1",
			Text:               "Which planet has the most moons?",
			Options:            []string{"Earth", "Mars", "Saturn", "Venus"},
			CorrectOptionIndex: 2,
		},
		{
			ID:                 "2",
			Text:               "What is the largest ocean on Earth?",
			Options:            []string{"Pacific", "Atlantic", "Indian", "Arctic"},
			CorrectOptionIndex: 0,
		},
		{
			ID:                 "3",
			Text:               "How many keys does a standard piano have?",
			Options:            []string{"66", "76", "88", "96"},
			CorrectOptionIndex: 2,
		},
	}
}
