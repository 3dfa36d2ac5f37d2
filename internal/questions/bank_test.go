// internal/questions/bank_test.go
package questions

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeBank(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "questions.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadParsesYAMLBank(t *testing.T) {
	path := writeBank(t, `
questions:
  - id: "1"
    text: "Which year did the first moon landing happen?"
    options: ["1965", "1969", "1972", "1975"]
    correct: 1
  - id: "2"
    text: "Largest desert?"
    options: ["Sahara", "Antarctica"]
    correct: 1
`)

	bank, err := Load(path)
	require.NoError(t, err)
	require.Len(t, bank, 2)
	assert.Equal(t, "1", bank[0].ID)
	assert.Equal(t, 1, bank[0].CorrectOptionIndex)
	assert.Len(t, bank[0].Options, 4)
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	bank, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Defaults(), bank)
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadRejectsEmptyBank(t *testing.T) {
	path := writeBank(t, `questions: []`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsOutOfRangeCorrectIndex(t *testing.T) {
	path := writeBank(t, `
questions:
  - id: "1"
    text: "broken"
    options: ["a", "b"]
    correct: 5
`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsTooFewOptions(t *testing.T) {
	path := writeBank(t, `
questions:
  - id: "1"
    text: "broken"
    options: ["only"]
    correct: 0
`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestDefaultsAreValid(t *testing.T) {
	for _, q := range Defaults() {
		assert.GreaterOrEqual(t, len(q.Options), 2)
		assert.GreaterOrEqual(t, q.CorrectOptionIndex, 0)
		assert.Less(t, q.CorrectOptionIndex, len(q.Options))
	}
}
