package writer

import (
	"fmt"
	"testing"

	"crawlstats/fetcher/xlog"
	"crawlstats/pkg/database/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockPlayerRepository struct {
	mock.Mock
}

func (m *MockPlayerRepository) UpsertPlayersBatch(names []string) (map[string]uint, error) {
	args := m.Called(names)
	return args.Get(0).(map[string]uint), args.Error(1)
}

type MockGameRepository struct {
	mock.Mock

	// Order of the repository calls, to assert players-before-games.
	calls *[]string
}

func (m *MockGameRepository) ReplaceGames(games []*models.Game) error {
	if m.calls != nil {
		*m.calls = append(*m.calls, "games")
	}
	args := m.Called(games)
	return args.Error(0)
}

func (m *MockGameRepository) CreateInvalidBatch(invalid []*models.InvalidGame) error {
	if m.calls != nil {
		*m.calls = append(*m.calls, "invalid")
	}
	args := m.Called(invalid)
	return args.Error(0)
}

func testLogfile() *models.Logfile {
	return &models.Logfile{
		ID:     7,
		Server: models.Server{ID: 1, Name: "cao"},
	}
}

func validCandidate(name string, start string) *xlog.Candidate {
	line := fmt.Sprintf(
		"v=0.31:name=%s:race=Minotaur:cls=Berserker:char=MiBe:xl=27:sc=1000:turn=5000:dur=3600:start=%s:end=20230801130000S:ktyp=winning",
		name, start,
	)
	return xlog.ParseLine(line)
}

func TestWriteBatchPlayersBeforeGames(t *testing.T) {
	var calls []string
	players := new(MockPlayerRepository)
	games := &MockGameRepository{calls: &calls}

	players.On("UpsertPlayersBatch", []string{"Alice"}).
		Run(func(args mock.Arguments) { calls = append(calls, "players") }).
		Return(map[string]uint{"alice": 10}, nil)
	games.On("ReplaceGames", mock.Anything).Return(nil)

	w := CreateWriter(players, games)
	err := w.WriteBatch(testLogfile(), []*xlog.Candidate{validCandidate("Alice", "20230801120000S")})
	require.NoError(t, err)

	require.Contains(t, calls, "players")
	require.Contains(t, calls, "games")
	assert.Less(t, indexOf(calls, "players"), indexOf(calls, "games"))

	players.AssertExpectations(t)
	games.AssertExpectations(t)
}

func TestWriteBatchIdempotentKeys(t *testing.T) {
	players := new(MockPlayerRepository)
	games := new(MockGameRepository)

	players.On("UpsertPlayersBatch", mock.Anything).Return(map[string]uint{"alice": 10}, nil)

	var seenKeys [][]string
	games.On("ReplaceGames", mock.Anything).Run(func(args mock.Arguments) {
		chunk := args.Get(0).([]*models.Game)
		keys := make([]string, 0, len(chunk))
		for _, game := range chunk {
			keys = append(keys, game.GameKey)
		}
		seenKeys = append(seenKeys, keys)
	}).Return(nil)

	w := CreateWriter(players, games)

	// Ingest the same byte range twice, simulating a retried read.
	for range 2 {
		err := w.WriteBatch(testLogfile(), []*xlog.Candidate{validCandidate("Alice", "20230801120000S")})
		require.NoError(t, err)
	}

	require.Len(t, seenKeys, 2)
	assert.Equal(t, seenKeys[0], seenKeys[1])
}

func TestWriteBatchChunksGames(t *testing.T) {
	players := new(MockPlayerRepository)
	games := new(MockGameRepository)

	players.On("UpsertPlayersBatch", mock.Anything).Return(map[string]uint{"alice": 10}, nil)

	var chunkSizes []int
	games.On("ReplaceGames", mock.Anything).Run(func(args mock.Arguments) {
		chunkSizes = append(chunkSizes, len(args.Get(0).([]*models.Game)))
	}).Return(nil)

	w := CreateWriter(players, games)
	w.chunkSize = 2

	var candidates []*xlog.Candidate
	for i := range 5 {
		candidates = append(candidates, validCandidate("Alice", fmt.Sprintf("2023080112%02d00S", i)))
	}

	require.NoError(t, w.WriteBatch(testLogfile(), candidates))
	assert.Equal(t, []int{2, 2, 1}, chunkSizes)
}

func TestWriteBatchPersistsInvalidLines(t *testing.T) {
	players := new(MockPlayerRepository)
	games := new(MockGameRepository)

	invalid := xlog.ParseLine("v=0.31:name=Broken")

	games.On("CreateInvalidBatch", mock.MatchedBy(func(rows []*models.InvalidGame) bool {
		return len(rows) == 1 && rows[0].RawLine == invalid.Line && rows[0].LogfileID == uint(7)
	})).Return(nil)

	w := CreateWriter(players, games)
	require.NoError(t, w.WriteBatch(testLogfile(), []*xlog.Candidate{invalid}))

	// No players or games are written for an all-invalid batch.
	players.AssertNotCalled(t, "UpsertPlayersBatch", mock.Anything)
	games.AssertNotCalled(t, "ReplaceGames", mock.Anything)
	games.AssertExpectations(t)
}

func indexOf(values []string, target string) int {
	for i, value := range values {
		if value == target {
			return i
		}
	}
	return -1
}
