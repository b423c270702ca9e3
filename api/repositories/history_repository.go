package repositories

import (
	"context"
	"strings"

	"crawlstats/pkg/database/models"

	"gorm.io/gorm"
)

// HistoryRepository is the read-only query surface handed to the
// aggregation and display layers.
type HistoryRepository interface {
	GetPlayerGames(ctx context.Context, playerName string) ([]models.Game, error)
	GetPlayerStreaks(ctx context.Context, playerName string) ([]models.Streak, error)
}

// historyRepository repository structure.
type historyRepository struct {
	db *gorm.DB
}

// NewHistoryRepository creates a historyRepository.
func NewHistoryRepository(db *gorm.DB) HistoryRepository {
	return &historyRepository{db: db}
}

// GetPlayerGames returns the full game history of the player in
// chronological order.
func (hr *historyRepository) GetPlayerGames(ctx context.Context, playerName string) ([]models.Game, error) {
	var games []models.Game
	err := hr.db.WithContext(ctx).
		Joins("JOIN players ON players.id = games.player_id").
		Where("players.name = ?", strings.ToLower(playerName)).
		Order("games.started_at ASC").
		Find(&games).Error
	if err != nil {
		return nil, err
	}

	return games, nil
}

// GetPlayerStreaks returns the current episode set of the player.
func (hr *historyRepository) GetPlayerStreaks(ctx context.Context, playerName string) ([]models.Streak, error) {
	var streaks []models.Streak
	err := hr.db.WithContext(ctx).
		Joins("JOIN players ON players.id = streaks.player_id").
		Where("players.name = ?", strings.ToLower(playerName)).
		Preload("Games").
		Order("streaks.started_at ASC NULLS FIRST").
		Find(&streaks).Error
	if err != nil {
		return nil, err
	}

	return streaks, nil
}
