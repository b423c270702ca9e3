package models

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Game is one ingested game result.
// Rows are immutable, re-ingestion recreates them under the same key.
type Game struct {
	ID uint64 `gorm:"primaryKey"`

	// Content-derived identity, see GameKey.
	GameKey string `gorm:"type:char(40);uniqueIndex"`

	PlayerID uint `gorm:"not null;index"`
	Player   Player

	LogfileID uint `gorm:"not null;index"`
	Logfile   Logfile

	Win         bool
	Score       int64
	Turns       int
	DurationSec int
	Level       int

	// Stat block, nullable to distinguish "not recorded" from zero.
	Str *int
	Int *int
	Dex *int

	// Raw values as found in the logfile.
	RaceRaw  string `gorm:"type:varchar(30)"`
	ClassRaw string `gorm:"type:varchar(30)"`

	// Normalized to the current canonical names.
	Race  string `gorm:"type:varchar(30);index"`
	Class string `gorm:"type:varchar(30);index"`

	// Character combo, always built from the raw abbreviations.
	CharCode string `gorm:"type:char(4)"`

	// Character combo with historical abbreviations translated.
	CharCodeNorm string `gorm:"type:char(4);index"`

	God        *string `gorm:"type:varchar(30)"`
	RunesFound int
	RunesUsed  int

	GameVersion string `gorm:"type:varchar(10)"`

	StartedAt time.Time `gorm:"index"`
	EndedAt   time.Time `gorm:"index"`
}

// InvalidGame pairs a rejected raw line with its missing required fields.
// Append-only, kept for operability.
type InvalidGame struct {
	ID            uint64 `gorm:"primaryKey"`
	LogfileID     uint   `gorm:"not null;index"`
	RawLine       string `gorm:"type:text"`
	MissingFields string `gorm:"type:varchar(255)"`
	CreatedAt     time.Time
}

// GameKey derives the stable identity of a game from the player name,
// the owning server name and the start timestamp. Re-ingesting the same
// line always yields the same key.
func GameKey(playerName, serverName string, startedAt time.Time) string {
	payload := strings.ToLower(playerName) + ":" + serverName + ":" + startedAt.UTC().Format(time.RFC3339)
	sum := sha1.Sum([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// Game service structure.
type GameService struct {
	db *gorm.DB
}

// Create a game service.
func CreateGameService(db *gorm.DB) *GameService {
	return &GameService{db: db}
}

// ReplaceGames removes any stored games sharing a key with the given
// chunk and inserts the chunk, all inside one transaction. The storage
// has no native upsert on the composite identity, so the chunk either
// fully replaces its identity set or fails entirely.
func (gs *GameService) ReplaceGames(games []*Game) error {
	if len(games) == 0 {
		return nil
	}

	keys := make([]string, 0, len(games))
	for _, game := range games {
		keys = append(keys, game.GameKey)
	}

	return gs.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("game_key IN ?", keys).Delete(&Game{}).Error; err != nil {
			return fmt.Errorf("couldn't delete the replaced games: %v", err)
		}

		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "game_key"}},
			DoNothing: true,
		}).Create(&games).Error
		if err != nil {
			return fmt.Errorf("couldn't insert the games chunk: %v", err)
		}

		return nil
	})
}

// CreateInvalidBatch appends the rejected lines of a pass.
func (gs *GameService) CreateInvalidBatch(invalid []*InvalidGame) error {
	if len(invalid) == 0 {
		return nil
	}

	return gs.db.CreateInBatches(&invalid, 1000).Error
}

// GetPlayerHistory returns every game of the player ordered by start time.
func (gs *GameService) GetPlayerHistory(ctx context.Context, playerID uint) ([]Game, error) {
	var games []Game
	err := gs.db.WithContext(ctx).
		Where("player_id = ?", playerID).
		Order("started_at ASC").
		Find(&games).Error
	if err != nil {
		return nil, fmt.Errorf("couldn't get the history of player %d: %v", playerID, err)
	}

	return games, nil
}
