package models

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Streak is one derived win-streak episode of a player.
// The whole set of a player is a materialized view, recomputation
// always deletes and recreates it.
type Streak struct {
	ID       uint64 `gorm:"primaryKey"`
	PlayerID uint   `gorm:"not null;index"`
	Player   Player

	// Count of consecutive wins, the breaking loss doesn't count.
	Length int

	// False only for a trailing episode whose last game is a win.
	Broken bool

	Classification string `gorm:"type:streak_classification"`

	StartedAt *time.Time
	// Nil while the episode is still open.
	EndedAt *time.Time

	Games []StreakGame `gorm:"constraint:OnDelete:CASCADE"`
}

// StreakGame links one constituent game to its episode, in order.
type StreakGame struct {
	ID       uint64 `gorm:"primaryKey"`
	StreakID uint64 `gorm:"not null;index"`
	Seq      int    `gorm:"not null"`
	GameKey  string `gorm:"type:char(40);index"`
}

// Streak service structure.
type StreakService struct {
	db *gorm.DB
}

// Create a streak service.
func CreateStreakService(db *gorm.DB) *StreakService {
	return &StreakService{db: db}
}

// ReplaceForPlayer swaps the player's full episode set in one transaction.
// The context bounds the whole transaction so an abandoned recomputation
// can't write after its deadline.
func (ss *StreakService) ReplaceForPlayer(ctx context.Context, playerID uint, streaks []*Streak) error {
	return ss.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where(
			"streak_id IN (SELECT id FROM streaks WHERE player_id = ?)", playerID,
		).Delete(&StreakGame{}).Error
		if err != nil {
			return fmt.Errorf("couldn't delete the streak games of player %d: %v", playerID, err)
		}

		if err := tx.Where("player_id = ?", playerID).Delete(&Streak{}).Error; err != nil {
			return fmt.Errorf("couldn't delete the streaks of player %d: %v", playerID, err)
		}

		if len(streaks) == 0 {
			return nil
		}

		if err := tx.Create(&streaks).Error; err != nil {
			return fmt.Errorf("couldn't insert the streaks of player %d: %v", playerID, err)
		}

		return nil
	})
}

// GetPlayerStreaks returns the episode set of the player, oldest first.
func (ss *StreakService) GetPlayerStreaks(playerID uint) ([]Streak, error) {
	var streaks []Streak
	err := ss.db.
		Where("player_id = ?", playerID).
		Preload("Games").
		Order("started_at ASC NULLS FIRST").
		Find(&streaks).Error
	if err != nil {
		return nil, fmt.Errorf("couldn't get the streaks of player %d: %v", playerID, err)
	}

	return streaks, nil
}

// GetInconsistentPlayers returns players owning an episode with positive
// length but no linked games, a sign of a prior partial failure.
func (ss *StreakService) GetInconsistentPlayers() ([]uint, error) {
	var ids []uint
	err := ss.db.Raw(`
		SELECT DISTINCT s.player_id
		FROM streaks s
		LEFT JOIN streak_games sg ON sg.streak_id = s.id
		WHERE s.length > 0 AND sg.id IS NULL
	`).Scan(&ids).Error
	if err != nil {
		return nil, fmt.Errorf("couldn't get the inconsistent streak players: %v", err)
	}

	return ids, nil
}
