// Package backfill keeps every eligible player's streak episodes
// reasonably current.
package backfill

import (
	"context"
	"crawlstats/fetcher/streaks"
	"crawlstats/pkg/database/models"
	"crawlstats/pkg/logger"
	"crawlstats/pkg/messages"
	"fmt"
	"time"
)

// How far back the daily sweep looks for fresh activity.
const sweepLookback = 25 * time.Hour

// GameRepository is the game persistence used by the coordinator.
type GameRepository interface {
	GetPlayerHistory(ctx context.Context, playerID uint) ([]models.Game, error)
}

// StreakRepository is the streak persistence used by the coordinator.
type StreakRepository interface {
	ReplaceForPlayer(ctx context.Context, playerID uint, streaks []*models.Streak) error
	GetInconsistentPlayers() ([]uint, error)
}

// PlayerRepository selects the recomputation candidates.
type PlayerRepository interface {
	GetPlayersWithRecentGames(since time.Time) ([]uint, error)
	GetPlayersWithoutStreaks(limit int) ([]uint, error)
}

// The configuration for the backfill coordinator.
type CoordinatorConfig struct {
	// Hard timeout of one player recomputation.
	RecomputeTimeout time.Duration

	// Batch size of the perpetual backfill loop.
	BackfillBatch int

	// Wait between drain checks of the backfill loop.
	DrainWait time.Duration
}

// Coordinator recomputes streak episodes one player at a time.
type Coordinator struct {
	config  CoordinatorConfig
	games   GameRepository
	streaks StreakRepository
	players PlayerRepository
	logger  *logger.Logger

	work chan uint
}

// Create the backfill coordinator.
func CreateCoordinator(
	config CoordinatorConfig,
	games GameRepository,
	streaks StreakRepository,
	players PlayerRepository,
	logger *logger.Logger,
) *Coordinator {
	if config.DrainWait == 0 {
		config.DrainWait = 5 * time.Second
	}

	return &Coordinator{
		config:  config,
		games:   games,
		streaks: streaks,
		players: players,
		logger:  logger,
		work:    make(chan uint, config.BackfillBatch*2),
	}
}

// Enqueue adds players to the recomputation queue, dropping items the
// buffer can't hold. Dropped players are picked up again by the next
// sweep or backfill pass.
func (c *Coordinator) Enqueue(playerIDs ...uint) {
	dropped := 0
	for _, playerID := range playerIDs {
		select {
		case c.work <- playerID:
		default:
			dropped++
		}
	}

	if dropped > 0 {
		c.logger.Errorf("backfill queue full, dropped %d of %d players", dropped, len(playerIDs))
	}
}

// Run is the single worker draining the queue. A failed or timed-out
// recomputation never blocks the following players.
func (c *Coordinator) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case playerID := <-c.work:
			if err := c.Recompute(ctx, playerID); err != nil {
				c.logger.Errorf("streak recomputation for player %d failed: %v", playerID, err)
			}
		}
	}
}

// Recompute rebuilds the full episode set of one player, always
// delete-then-recreate since the classification can retroactively
// change open episodes.
func (c *Coordinator) Recompute(ctx context.Context, playerID uint) error {
	recomputeCtx, cancel := context.WithTimeout(ctx, c.config.RecomputeTimeout)
	defer cancel()

	// The timed-out context cancels the abandoned unit's storage
	// operations, it can't write after the worker moved on.
	done := make(chan error, 1)
	go func() {
		done <- c.recompute(recomputeCtx, playerID)
	}()

	select {
	case <-recomputeCtx.Done():
		return fmt.Errorf(messages.RecomputeTimeoutMsg, playerID)
	case err := <-done:
		return err
	}
}

func (c *Coordinator) recompute(ctx context.Context, playerID uint) error {
	history, err := c.games.GetPlayerHistory(ctx, playerID)
	if err != nil {
		return err
	}

	episodes := streaks.Derive(history)
	if len(episodes) == 0 {
		// Distinguish "computed and empty" from "never computed".
		episodes = []streaks.Episode{streaks.Placeholder()}
	}

	rows := make([]*models.Streak, 0, len(episodes))
	for _, episode := range episodes {
		// A positive length with no constituent games means the
		// derivation itself is defective. Surface it loudly.
		if episode.Length > 0 && len(episode.GameKeys) == 0 {
			return fmt.Errorf(messages.InconsistentStreak, playerID)
		}

		row := &models.Streak{
			PlayerID:       playerID,
			Length:         episode.Length,
			Broken:         episode.Broken,
			Classification: episode.Classification,
			StartedAt:      episode.StartedAt,
			EndedAt:        episode.EndedAt,
		}
		for seq, key := range episode.GameKeys {
			row.Games = append(row.Games, models.StreakGame{Seq: seq, GameKey: key})
		}
		rows = append(rows, row)
	}

	return c.streaks.ReplaceForPlayer(ctx, playerID, rows)
}

// DailySweep enqueues every non-bot player with fresh activity plus
// the players whose persisted episodes look inconsistent. Registered
// as the daily scheduled job.
func (c *Coordinator) DailySweep() error {
	c.logger.Infof("starting the daily streak sweep")

	if err := c.enqueueFrom("recent activity", func() ([]uint, error) {
		return c.players.GetPlayersWithRecentGames(time.Now().UTC().Add(-sweepLookback))
	}); err != nil {
		return err
	}

	return c.enqueueFrom("inconsistent episodes", c.streaks.GetInconsistentPlayers)
}

// RunBackfill is the perpetual low-priority loop. It enqueues bounded
// batches of players with no persisted episodes, waits for the queue
// to drain, and stops once a full pass finds no candidates.
func (c *Coordinator) RunBackfill(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		batch, err := c.players.GetPlayersWithoutStreaks(c.config.BackfillBatch)
		if err != nil {
			// Transient storage failures only delay the pass.
			c.logger.Errorf("backfill candidate query failed: %v", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.config.DrainWait):
			}
			continue
		}

		if len(batch) == 0 {
			c.logger.Infof("backfill pass complete, no players left")
			return
		}

		c.logger.Infof("backfill enqueuing %d players", len(batch))
		c.Enqueue(batch...)

		// Re-trigger only once the queue drained.
		for len(c.work) > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.config.DrainWait):
			}
		}
	}
}

// enqueueFrom runs one candidate selection query and queues the result.
func (c *Coordinator) enqueueFrom(name string, selectCandidates func() ([]uint, error)) error {
	candidates, err := selectCandidates()
	if err != nil {
		return fmt.Errorf("couldn't select the %s candidates: %v", name, err)
	}

	c.logger.Infof("sweep enqueuing %d players from %s", len(candidates), name)
	c.Enqueue(candidates...)
	return nil
}
