// Package xlog parses the colon-delimited key=value format game
// servers publish their results in.
package xlog

import (
	"crawlstats/pkg/database/models"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Required fields of a candidate. A line missing any of them, or
// carrying one with an empty value, is rejected.
var requiredFields = []string{
	"v", "name", "race", "cls", "char", "xl", "sc", "turn", "dur", "start", "end", "ktyp",
}

// Candidate is the parsed form of one raw line.
type Candidate struct {
	Fields map[string]string
	Line   string

	// Names of the required fields found missing or empty.
	Missing []string
	Valid   bool
}

// ParseLine tokenizes one raw line and checks the required fields.
// Validity is a field on the result, never an error.
func ParseLine(line string) *Candidate {
	candidate := &Candidate{
		Fields: make(map[string]string),
		Line:   line,
	}

	for _, field := range splitFields(line) {
		key, value, found := strings.Cut(field, "=")
		if !found || key == "" {
			continue
		}
		candidate.Fields[key] = value
	}

	for _, required := range requiredFields {
		if candidate.Fields[required] == "" {
			candidate.Missing = append(candidate.Missing, required)
		}
	}
	candidate.Valid = len(candidate.Missing) == 0

	return candidate
}

// splitFields splits on single colons. A doubled colon is an escaped
// literal colon inside a value and is unescaped to a single one.
func splitFields(line string) []string {
	var fields []string
	var current strings.Builder

	for i := 0; i < len(line); i++ {
		if line[i] != ':' {
			current.WriteByte(line[i])
			continue
		}

		// Escaped colon.
		if i+1 < len(line) && line[i+1] == ':' {
			current.WriteByte(':')
			i++
			continue
		}

		fields = append(fields, current.String())
		current.Reset()
	}
	fields = append(fields, current.String())

	return fields
}

// ToGame converts a valid candidate into a game record shape.
// The caller still owns the player and logfile references and the key.
func (c *Candidate) ToGame() (*models.Game, error) {
	if !c.Valid {
		return nil, fmt.Errorf("candidate is invalid, missing %s", strings.Join(c.Missing, ", "))
	}

	score, err := strconv.ParseInt(c.Fields["sc"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("malformed score %q: %v", c.Fields["sc"], err)
	}

	turns, err := strconv.Atoi(c.Fields["turn"])
	if err != nil {
		return nil, fmt.Errorf("malformed turn count %q: %v", c.Fields["turn"], err)
	}

	duration, err := strconv.Atoi(c.Fields["dur"])
	if err != nil {
		return nil, fmt.Errorf("malformed duration %q: %v", c.Fields["dur"], err)
	}

	level, err := strconv.Atoi(c.Fields["xl"])
	if err != nil {
		return nil, fmt.Errorf("malformed experience level %q: %v", c.Fields["xl"], err)
	}

	startedAt, err := parseTimestamp(c.Fields["start"])
	if err != nil {
		return nil, err
	}

	endedAt, err := parseTimestamp(c.Fields["end"])
	if err != nil {
		return nil, err
	}

	runesFound, runesUsed := runeCounts(c.Fields)

	raceRaw := c.Fields["race"]
	classRaw := c.Fields["cls"]
	charCode := c.Fields["char"]

	game := &models.Game{
		Win:          c.Fields["ktyp"] == "winning",
		Score:        score,
		Turns:        turns,
		DurationSec:  duration,
		Level:        level,
		Str:          optionalInt(c.Fields, "str"),
		Int:          optionalInt(c.Fields, "int"),
		Dex:          optionalInt(c.Fields, "dex"),
		RaceRaw:      raceRaw,
		ClassRaw:     classRaw,
		Race:         NormalizeRace(raceRaw),
		Class:        NormalizeClass(classRaw),
		CharCode:     charCode,
		CharCodeNorm: NormalizeCharCode(charCode),
		God:          optionalString(c.Fields, "god"),
		RunesFound:   runesFound,
		RunesUsed:    runesUsed,
		GameVersion:  c.Fields["v"],
		StartedAt:    startedAt,
		EndedAt:      endedAt,
	}

	return game, nil
}

// parseTimestamp reads the 14 digit xlog timestamp, ignoring the
// trailing daylight marker some servers append.
func parseTimestamp(value string) (time.Time, error) {
	if len(value) < 14 {
		return time.Time{}, fmt.Errorf("malformed timestamp %q", value)
	}

	parsed, err := time.ParseInLocation("20060102150405", value[:14], time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed timestamp %q: %v", value, err)
	}

	return parsed, nil
}

// runeCounts resolves the runes found / runes used pair. When only one
// of them is present each defaults to the other, then to zero.
func runeCounts(fields map[string]string) (found int, used int) {
	foundValue, hasFound := intField(fields, "nrune")
	usedValue, hasUsed := intField(fields, "urune")

	switch {
	case hasFound && hasUsed:
		return foundValue, usedValue
	case hasFound:
		return foundValue, foundValue
	case hasUsed:
		return usedValue, usedValue
	default:
		return 0, 0
	}
}

func intField(fields map[string]string, key string) (int, bool) {
	value, ok := fields[key]
	if !ok || value == "" {
		return 0, false
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, false
	}
	return parsed, true
}

// optionalInt keeps absent numeric fields as nil instead of zero.
func optionalInt(fields map[string]string, key string) *int {
	parsed, ok := intField(fields, key)
	if !ok {
		return nil
	}
	return &parsed
}

func optionalString(fields map[string]string, key string) *string {
	value, ok := fields[key]
	if !ok || value == "" {
		return nil
	}
	return &value
}
