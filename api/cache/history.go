package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"crawlstats/api/repositories"
	"crawlstats/pkg/database/models"
	"crawlstats/pkg/redis"
)

const (
	memoryTTL = 30 * time.Second
	redisTTL  = 10 * time.Minute
)

// CachedHistory layers the memory cache and Redis in front of the
// history repository. Ingestion never writes through here, staleness
// is bounded by the TTLs.
type CachedHistory struct {
	repo   repositories.HistoryRepository
	redis  *redis.RedisClient
	memory *SimpleCache
}

// NewCachedHistory creates the cached query surface.
func NewCachedHistory(repo repositories.HistoryRepository, redisClient *redis.RedisClient) *CachedHistory {
	return &CachedHistory{
		repo:   repo,
		redis:  redisClient,
		memory: NewSimpleCache(),
	}
}

// GetPlayerGames returns the cached game history of the player.
func (ch *CachedHistory) GetPlayerGames(ctx context.Context, playerName string) ([]models.Game, error) {
	key := fmt.Sprintf("history:games:%s", playerName)

	var games []models.Game
	if ch.lookup(ctx, key, &games) {
		return games, nil
	}

	games, err := ch.repo.GetPlayerGames(ctx, playerName)
	if err != nil {
		return nil, err
	}

	ch.store(ctx, key, games)
	return games, nil
}

// GetPlayerStreaks returns the cached episode set of the player.
func (ch *CachedHistory) GetPlayerStreaks(ctx context.Context, playerName string) ([]models.Streak, error) {
	key := fmt.Sprintf("history:streaks:%s", playerName)

	var streaks []models.Streak
	if ch.lookup(ctx, key, &streaks) {
		return streaks, nil
	}

	streaks, err := ch.repo.GetPlayerStreaks(ctx, playerName)
	if err != nil {
		return nil, err
	}

	ch.store(ctx, key, streaks)
	return streaks, nil
}

// lookup checks the memory cache first, then Redis.
func (ch *CachedHistory) lookup(ctx context.Context, key string, target any) bool {
	if cached := ch.memory.Get(key); cached != nil {
		if raw, ok := cached.(string); ok {
			if err := json.Unmarshal([]byte(raw), target); err == nil {
				return true
			}
		}
	}

	if ch.redis == nil {
		return false
	}

	raw, err := ch.redis.Get(ctx, key)
	if err != nil {
		return false
	}

	if err := json.Unmarshal([]byte(raw), target); err != nil {
		return false
	}

	ch.memory.Set(key, raw, memoryTTL)
	return true
}

// store writes the serialized value to both cache layers.
func (ch *CachedHistory) store(ctx context.Context, key string, value any) {
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}

	ch.memory.Set(key, string(raw), memoryTTL)

	if ch.redis != nil {
		// Best effort, a cache write failure is not an error.
		ch.redis.Set(ctx, key, string(raw), redisTTL)
	}
}
