package xlog

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A complete valid line used as the base of most cases.
const validLine = "v=0.31:name=Player:race=Minotaur:cls=Berserker:char=MiBe:xl=27:sc=1000:turn=5000:dur=3600:start=20230801120000S:end=20230801130000S:ktyp=winning:god=Trog:str=30:int=8:dex=14:urune=3:nrune=3"

func TestParseLineValid(t *testing.T) {
	candidate := ParseLine(validLine)

	assert.True(t, candidate.Valid)
	assert.Empty(t, candidate.Missing)
	assert.Equal(t, "Minotaur", candidate.Fields["race"])
	assert.Equal(t, validLine, candidate.Line)
}

func TestParseLineEscapedColon(t *testing.T) {
	line := strings.Replace(validLine, "god=Trog", "god=The Shining One:tmsg=blasted by an orc (a.m. 10::30)", 1)
	candidate := ParseLine(line)

	assert.True(t, candidate.Valid)
	assert.Equal(t, "The Shining One", candidate.Fields["god"])
	// The doubled colon must come back as a single literal colon.
	assert.Equal(t, "blasted by an orc (a.m. 10:30)", candidate.Fields["tmsg"])
}

func TestParseLineMissingSingleField(t *testing.T) {
	line := strings.Replace(validLine, "ktyp=winning:", "", 1)
	candidate := ParseLine(line)

	assert.False(t, candidate.Valid)
	assert.Equal(t, []string{"ktyp"}, candidate.Missing)
}

func TestParseLineEmptyValuesAreInvalid(t *testing.T) {
	var fields []string
	for _, required := range requiredFields {
		fields = append(fields, required+"=")
	}
	candidate := ParseLine(strings.Join(fields, ":"))

	assert.False(t, candidate.Valid)
	assert.Equal(t, requiredFields, candidate.Missing)
}

func TestRuneCountDefaults(t *testing.T) {
	tests := []struct {
		name          string
		line          string
		expectedFound int
		expectedUsed  int
	}{
		{
			name:          "bothPresent",
			line:          validLine,
			expectedFound: 3,
			expectedUsed:  3,
		},
		{
			name:          "onlyFound",
			line:          strings.Replace(validLine, ":urune=3", "", 1),
			expectedFound: 3,
			expectedUsed:  3,
		},
		{
			name:          "onlyUsed",
			line:          strings.Replace(validLine, ":nrune=3", "", 1),
			expectedFound: 3,
			expectedUsed:  3,
		},
		{
			name:          "bothAbsent",
			line:          strings.Replace(validLine, ":urune=3:nrune=3", "", 1),
			expectedFound: 0,
			expectedUsed:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			game, err := ParseLine(tt.line).ToGame()
			require.NoError(t, err)

			assert.Equal(t, tt.expectedFound, game.RunesFound)
			assert.Equal(t, tt.expectedUsed, game.RunesUsed)
		})
	}
}

func TestToGameOptionalFieldsStayNil(t *testing.T) {
	line := strings.Replace(validLine, ":god=Trog:str=30:int=8:dex=14", "", 1)
	game, err := ParseLine(line).ToGame()
	require.NoError(t, err)

	assert.Nil(t, game.God)
	assert.Nil(t, game.Str)
	assert.Nil(t, game.Int)
	assert.Nil(t, game.Dex)
}

func TestToGameOutcomeAndStats(t *testing.T) {
	game, err := ParseLine(validLine).ToGame()
	require.NoError(t, err)

	assert.True(t, game.Win)
	assert.Equal(t, int64(1000), game.Score)
	assert.Equal(t, 5000, game.Turns)
	assert.Equal(t, 27, game.Level)
	require.NotNil(t, game.Str)
	assert.Equal(t, 30, *game.Str)
	assert.Equal(t, "0.31", game.GameVersion)
	assert.Equal(t, "2023-08-01T12:00:00Z", game.StartedAt.Format(time.RFC3339))

	lost, err := ParseLine(strings.Replace(validLine, "ktyp=winning", "ktyp=mon", 1)).ToGame()
	require.NoError(t, err)
	assert.False(t, lost.Win)
}

func TestNormalizationRoundTrip(t *testing.T) {
	oldLine := strings.NewReplacer(
		"race=Minotaur", "race=Kenku",
		"cls=Berserker", "cls=Transmuter",
		"char=MiBe", "char=KeTm",
	).Replace(validLine)
	newLine := strings.NewReplacer(
		"race=Minotaur", "race=Tengu",
		"cls=Berserker", "cls=Shapeshifter",
		"char=MiBe", "char=TeSh",
	).Replace(validLine)

	oldGame, err := ParseLine(oldLine).ToGame()
	require.NoError(t, err)
	newGame, err := ParseLine(newLine).ToGame()
	require.NoError(t, err)

	// Normalized fields agree across the rename.
	assert.Equal(t, newGame.Race, oldGame.Race)
	assert.Equal(t, newGame.Class, oldGame.Class)
	assert.Equal(t, newGame.CharCodeNorm, oldGame.CharCodeNorm)

	// Raw fields stay faithful to the input.
	assert.Equal(t, "Kenku", oldGame.RaceRaw)
	assert.Equal(t, "Transmuter", oldGame.ClassRaw)
	assert.Equal(t, "KeTm", oldGame.CharCode)
	assert.Equal(t, "Tengu", newGame.RaceRaw)
}

func TestDraconianCollapse(t *testing.T) {
	line := strings.NewReplacer(
		"race=Minotaur", "race=Red Draconian",
		"char=MiBe", "char=DrBe",
	).Replace(validLine)

	game, err := ParseLine(line).ToGame()
	require.NoError(t, err)

	assert.Equal(t, "Draconian", game.Race)
	assert.Equal(t, "Red Draconian", game.RaceRaw)
	assert.Equal(t, "DrBe", game.CharCode)
}
