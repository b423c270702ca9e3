// Package writer persists parsed candidates as game records without
// ever duplicating a game across overlapping ingestion passes.
package writer

import (
	"crawlstats/fetcher/xlog"
	"crawlstats/pkg/database/models"
	"fmt"
	"strings"
)

// Games per delete-then-insert chunk.
const defaultChunkSize = 500

// PlayerRepository is the player persistence used by the writer.
type PlayerRepository interface {
	UpsertPlayersBatch(names []string) (map[string]uint, error)
}

// GameRepository is the game persistence used by the writer.
type GameRepository interface {
	ReplaceGames(games []*models.Game) error
	CreateInvalidBatch(invalid []*models.InvalidGame) error
}

// Writer converts candidate batches into durable records.
type Writer struct {
	players   PlayerRepository
	games     GameRepository
	chunkSize int
}

// Create the ingestion writer.
func CreateWriter(players PlayerRepository, games GameRepository) *Writer {
	return &Writer{
		players:   players,
		games:     games,
		chunkSize: defaultChunkSize,
	}
}

// WriteBatch persists one pass worth of candidates for a logfile.
// Players are created before any game referencing them. Rejected
// candidates are recorded as invalid games for diagnosis.
func (w *Writer) WriteBatch(logfile *models.Logfile, candidates []*xlog.Candidate) error {
	var invalid []*models.InvalidGame
	var valid []*xlog.Candidate

	for _, candidate := range candidates {
		if candidate.Valid {
			valid = append(valid, candidate)
			continue
		}
		invalid = append(invalid, &models.InvalidGame{
			LogfileID:     logfile.ID,
			RawLine:       candidate.Line,
			MissingFields: strings.Join(candidate.Missing, ","),
		})
	}

	if len(invalid) > 0 {
		if err := w.games.CreateInvalidBatch(invalid); err != nil {
			return fmt.Errorf("couldn't persist the invalid lines: %v", err)
		}
	}

	if len(valid) == 0 {
		return nil
	}

	// Every distinct player must exist before the games are written.
	names := make([]string, 0, len(valid))
	for _, candidate := range valid {
		names = append(names, candidate.Fields["name"])
	}

	playersMap, err := w.players.UpsertPlayersBatch(names)
	if err != nil {
		return fmt.Errorf("couldn't upsert the players of the batch: %v", err)
	}

	games := make([]*models.Game, 0, len(valid))
	for _, candidate := range valid {
		game, err := candidate.ToGame()
		if err != nil {
			// Presence checks passed but a value didn't parse, keep the
			// line for diagnosis instead of failing the batch.
			invalidGame := &models.InvalidGame{
				LogfileID:     logfile.ID,
				RawLine:       candidate.Line,
				MissingFields: err.Error(),
			}
			if err := w.games.CreateInvalidBatch([]*models.InvalidGame{invalidGame}); err != nil {
				return fmt.Errorf("couldn't persist a malformed line: %v", err)
			}
			continue
		}

		name := strings.ToLower(candidate.Fields["name"])
		playerID, ok := playersMap[name]
		if !ok {
			return fmt.Errorf("player %s missing after the batch upsert", name)
		}

		game.PlayerID = playerID
		game.LogfileID = logfile.ID
		game.GameKey = models.GameKey(name, logfile.Server.Name, game.StartedAt)
		games = append(games, game)
	}

	// Chunks never overlap in identity space within one batch, their
	// processing order is insignificant.
	for start := 0; start < len(games); start += w.chunkSize {
		end := start + w.chunkSize
		if end > len(games) {
			end = len(games)
		}

		if err := w.games.ReplaceGames(games[start:end]); err != nil {
			return fmt.Errorf("couldn't replace a games chunk: %v", err)
		}
	}

	return nil
}
