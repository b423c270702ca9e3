package streaks

import (
	"fmt"
	"testing"
	"time"

	"crawlstats/pkg/database/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// history builds a chronological game list out of outcome flags.
// Every game gets its own character combo unless combos are passed.
func history(outcomes []bool, combos ...string) []models.Game {
	games := make([]models.Game, 0, len(outcomes))
	base := time.Date(2023, 8, 1, 12, 0, 0, 0, time.UTC)

	for i, win := range outcomes {
		combo := fmt.Sprintf("C%02d", i)
		if len(combos) > 0 {
			combo = combos[i]
		}

		games = append(games, models.Game{
			GameKey:      fmt.Sprintf("key-%d", i),
			Win:          win,
			CharCodeNorm: combo,
			StartedAt:    base.Add(time.Duration(i) * time.Hour),
			EndedAt:      base.Add(time.Duration(i)*time.Hour + 30*time.Minute),
		})
	}

	return games
}

func TestDeriveBrokenThenOpenEpisode(t *testing.T) {
	// W W L W W W
	episodes := Derive(history([]bool{true, true, false, true, true, true}))
	require.Len(t, episodes, 2)

	first := episodes[0]
	assert.Equal(t, 2, first.Length)
	assert.True(t, first.Broken)
	require.NotNil(t, first.EndedAt)
	// The breaking loss belongs to the episode but not to its length.
	assert.Equal(t, []string{"key-0", "key-1", "key-2"}, first.GameKeys)

	second := episodes[1]
	assert.Equal(t, 3, second.Length)
	assert.False(t, second.Broken)
	assert.Nil(t, second.EndedAt)
	assert.Equal(t, []string{"key-3", "key-4", "key-5"}, second.GameKeys)
}

func TestDeriveAllLosses(t *testing.T) {
	episodes := Derive(history([]bool{false, false, false}))
	assert.Empty(t, episodes)
}

func TestDeriveSingleWin(t *testing.T) {
	episodes := Derive(history([]bool{true}))
	require.Len(t, episodes, 1)

	assert.Equal(t, 1, episodes[0].Length)
	assert.False(t, episodes[0].Broken)
	assert.Nil(t, episodes[0].EndedAt)
}

func TestDeriveIsolatedWinBeforeLossExcluded(t *testing.T) {
	// A lone win followed by a loss qualifies for nothing, the loss
	// has no two preceding wins either.
	episodes := Derive(history([]bool{true, false}))
	assert.Empty(t, episodes)
}

func TestDeriveEpisodeTimestamps(t *testing.T) {
	games := history([]bool{true, true, false})
	episodes := Derive(games)
	require.Len(t, episodes, 1)

	require.NotNil(t, episodes[0].StartedAt)
	assert.Equal(t, games[0].StartedAt, *episodes[0].StartedAt)
	require.NotNil(t, episodes[0].EndedAt)
	assert.Equal(t, games[2].EndedAt, *episodes[0].EndedAt)
}

func TestClassification(t *testing.T) {
	tests := []struct {
		name     string
		outcomes []bool
		combos   []string
		expected string
	}{
		{
			name:     "uniform",
			outcomes: []bool{true, true, true},
			combos:   []string{"MiBe", "MiBe", "MiBe"},
			expected: ClassUniform,
		},
		{
			name:     "distinct",
			outcomes: []bool{true, true, true},
			combos:   []string{"MiBe", "TeSh", "DrBe"},
			expected: ClassDistinct,
		},
		{
			name:     "mixed",
			outcomes: []bool{true, true, true},
			combos:   []string{"MiBe", "MiBe", "DrBe"},
			expected: ClassMixed,
		},
		{
			name:     "breakingLossComboIgnored",
			outcomes: []bool{true, true, false},
			combos:   []string{"MiBe", "MiBe", "DrBe"},
			expected: ClassUniform,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			episodes := Derive(history(tt.outcomes, tt.combos...))
			require.Len(t, episodes, 1)
			assert.Equal(t, tt.expected, episodes[0].Classification)
		})
	}
}

func TestPlaceholder(t *testing.T) {
	placeholder := Placeholder()

	assert.Zero(t, placeholder.Length)
	assert.True(t, placeholder.Broken)
	assert.Equal(t, ClassEmpty, placeholder.Classification)
	assert.Empty(t, placeholder.GameKeys)
}
