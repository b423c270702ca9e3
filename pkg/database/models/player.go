package models

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Player identity. The name is always stored lowercased.
type Player struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"type:varchar(30);uniqueIndex"`
	Bot  bool   `gorm:"default:false"`
}

// Player service structure.
type PlayerService struct {
	db *gorm.DB
}

// Create a player service.
func CreatePlayerService(db *gorm.DB) *PlayerService {
	return &PlayerService{db: db}
}

// UpsertPlayersBatch creates every missing player and returns the
// name to id mapping for the whole batch. Existing players are left
// untouched, so a bot flag set by an operator is never overwritten.
func (ps *PlayerService) UpsertPlayersBatch(names []string) (map[string]uint, error) {
	if len(names) == 0 {
		return map[string]uint{}, nil
	}

	// Deduplicate on the lowercased identity.
	seen := make(map[string]bool, len(names))
	inserts := make([]*Player, 0, len(names))
	lowered := make([]string, 0, len(names))
	for _, name := range names {
		key := strings.ToLower(name)
		if seen[key] {
			continue
		}
		seen[key] = true
		lowered = append(lowered, key)
		inserts = append(inserts, &Player{Name: key})
	}

	err := ps.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).CreateInBatches(&inserts, 1000).Error
	if err != nil {
		return nil, fmt.Errorf("couldn't create the players batch: %v", err)
	}

	// Fetch everything back, the conflict-skipped rows have no id set.
	var players []Player
	if err := ps.db.Where("name IN ?", lowered).Find(&players).Error; err != nil {
		return nil, fmt.Errorf("couldn't get the players batch: %v", err)
	}

	playersMap := make(map[string]uint, len(players))
	for i := range players {
		playersMap[players[i].Name] = players[i].ID
	}

	return playersMap, nil
}

// GetPlayersWithRecentGames returns the non-bot players having at least
// one game that ended after the given time.
func (ps *PlayerService) GetPlayersWithRecentGames(since time.Time) ([]uint, error) {
	var ids []uint
	err := ps.db.Raw(`
		SELECT DISTINCT p.id
		FROM players p
		JOIN games g ON g.player_id = p.id
		WHERE p.bot = false AND g.ended_at >= ?
	`, since).Scan(&ids).Error
	if err != nil {
		return nil, fmt.Errorf("couldn't get the players with recent games: %v", err)
	}

	return ids, nil
}

// GetPlayersWithoutStreaks returns a bounded batch of non-bot players
// that have no persisted streak state at all.
func (ps *PlayerService) GetPlayersWithoutStreaks(limit int) ([]uint, error) {
	var ids []uint
	err := ps.db.Raw(`
		SELECT p.id
		FROM players p
		LEFT JOIN streaks s ON s.player_id = p.id
		WHERE p.bot = false AND s.id IS NULL
		ORDER BY p.id
		LIMIT ?
	`, limit).Scan(&ids).Error
	if err != nil {
		return nil, fmt.Errorf("couldn't get the players without streaks: %v", err)
	}

	return ids, nil
}
