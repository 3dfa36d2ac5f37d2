// internal/state/store_test.go
package state

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/awagner/quizparty/internal/models"
)

func TestGetReturnsCurrentRoot(t *testing.T) {
	store := New(nil)
	st := store.Get()
	require.NotNil(t, st)
	assert.Equal(t, models.GamePhaseLobby, st.Phase)
}

func TestReplaceSwapsRootAndFiresHooks(t *testing.T) {
	store := New(models.DefaultGameState())

	var seen []*models.GameState
	store.OnReplace(func(st *models.GameState) { seen = append(seen, st) })

	next := models.DefaultGameState()
	next.Phase = models.GamePhaseGame
	store.Replace(next)

	assert.Same(t, next, store.Get())
	require.Len(t, seen, 1)
	assert.Same(t, next, seen[0])
}

func TestMutateFiresHooksInOrder(t *testing.T) {
	store := New(models.DefaultGameState())

	var order []string
	store.OnReplace(func(*models.GameState) { order = append(order, "broadcast") })
	store.OnReplace(func(*models.GameState) { order = append(order, "save") })

	store.Mutate(func(st *models.GameState) { st.ShowLeaderboard = true })

	assert.True(t, store.Get().ShowLeaderboard)
	assert.Equal(t, []string{"broadcast", "save"}, order)
}

func TestEveryMutationGetsItsOwnHookFiring(t *testing.T) {
	store := New(models.DefaultGameState())

	count := 0
	store.OnReplace(func(*models.GameState) { count++ })

	for i := 0; i < 5; i++ {
		store.Mutate(func(st *models.GameState) { st.ShowLeaderboard = !st.ShowLeaderboard })
	}
	assert.Equal(t, 5, count, "no coalescing of intermediate states")
}

func TestViewObservesCurrentRoot(t *testing.T) {
	store := New(models.DefaultGameState())
	store.Mutate(func(st *models.GameState) { st.ShowLeaderboard = true })

	seen := false
	store.View(func(st *models.GameState) { seen = st.ShowLeaderboard })
	assert.True(t, seen)
}

// Run with -race: View and Mutate on separate goroutines must serialize
// on the store lock.
func TestViewAndMutateSerialize(t *testing.T) {
	store := New(models.DefaultGameState())

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			store.Mutate(func(st *models.GameState) {
				st.Teams = append(st.Teams, &models.Team{ID: "a"})
			})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			store.View(func(st *models.GameState) {
				_ = st.TeamByConnection("none")
			})
		}
	}()
	wg.Wait()

	assert.Len(t, store.Get().Teams, 200)
}

func TestMutateIfSuppressesHooksOnNoop(t *testing.T) {
	store := New(models.DefaultGameState())

	count := 0
	store.OnReplace(func(*models.GameState) { count++ })

	store.MutateIf(func(st *models.GameState) bool { return false })
	assert.Equal(t, 0, count)

	store.MutateIf(func(st *models.GameState) bool {
		st.ShowLeaderboard = true
		return true
	})
	assert.Equal(t, 1, count)
}
