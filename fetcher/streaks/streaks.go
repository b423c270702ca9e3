// Package streaks derives win-streak episodes from a player's
// chronological game history. Everything here is pure computation.
package streaks

import (
	"crawlstats/pkg/database/models"
	"time"
)

// Episode classifications, matching the streak_classification enum.
const (
	ClassUniform  = "uniform"
	ClassDistinct = "distinct"
	ClassMixed    = "mixed"
	ClassEmpty    = "empty"
)

// Episode is one derived streak before persistence.
type Episode struct {
	Length         int
	Broken         bool
	Classification string
	StartedAt      *time.Time
	EndedAt        *time.Time

	// Constituent game keys in order, breaking loss included.
	GameKeys []string
}

// Derive computes the episodes of one player. The input must already
// be ordered chronologically by start time.
func Derive(games []models.Game) []Episode {
	qualifying := filter(games)

	var episodes []Episode
	var group []models.Game

	for _, game := range qualifying {
		group = append(group, game)

		// Every loss surviving the filter is a streak breaker.
		if !game.Win {
			episodes = append(episodes, closeGroup(group, true))
			group = nil
		}
	}

	// A trailing group ends on a win, the episode is still open.
	if len(group) > 0 {
		episodes = append(episodes, closeGroup(group, false))
	}

	return episodes
}

// Placeholder marks a computed-and-empty result, distinguishing it
// from a player never computed at all.
func Placeholder() Episode {
	return Episode{
		Length:         0,
		Broken:         true,
		Classification: ClassEmpty,
	}
}

// filter classifies each game with a two step look-back and one step
// look-ahead. A win qualifies next to another win, or as the trailing
// game of the history. A loss qualifies only as the breaker of two
// preceding wins.
func filter(games []models.Game) []models.Game {
	var qualifying []models.Game

	for i, game := range games {
		if game.Win {
			prevWin := i > 0 && games[i-1].Win
			nextWin := i+1 < len(games) && games[i+1].Win
			trailing := i == len(games)-1

			if prevWin || nextWin || trailing {
				qualifying = append(qualifying, game)
			}
			continue
		}

		if i >= 2 && games[i-1].Win && games[i-2].Win {
			qualifying = append(qualifying, game)
		}
	}

	return qualifying
}

// closeGroup turns one maximal run into an episode.
func closeGroup(group []models.Game, broken bool) Episode {
	episode := Episode{
		Broken: broken,
	}

	var wins []models.Game
	for _, game := range group {
		episode.GameKeys = append(episode.GameKeys, game.GameKey)
		if game.Win {
			wins = append(wins, game)
		}
	}
	episode.Length = len(wins)
	episode.Classification = classify(wins)

	startedAt := group[0].StartedAt
	episode.StartedAt = &startedAt

	// The end stays open for an unbroken trailing episode.
	if broken {
		endedAt := group[len(group)-1].EndedAt
		episode.EndedAt = &endedAt
	}

	return episode
}

// classify looks at the character combos of the wins: all the same
// combo, all different combos, or a mix of both.
func classify(wins []models.Game) string {
	if len(wins) == 0 {
		return ClassEmpty
	}

	combos := make(map[string]bool, len(wins))
	for _, win := range wins {
		combos[win.CharCodeNorm] = true
	}

	switch {
	case len(combos) == 1:
		return ClassUniform
	case len(combos) == len(wins):
		return ClassDistinct
	default:
		return ClassMixed
	}
}
