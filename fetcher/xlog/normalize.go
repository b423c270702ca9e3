package xlog

import "strings"

// Historical race renames, old display name to current canonical one.
var raceRenames = map[string]string{
	"Kenku": "Tengu",
}

// Historical class renames.
var classRenames = map[string]string{
	"Assassin":   "Brigand",
	"Wizard":     "Hedge Wizard",
	"Transmuter": "Shapeshifter",
}

// Two letter abbreviation renames matching the tables above.
var raceAbbrRenames = map[string]string{
	"Ke": "Te",
}

var classAbbrRenames = map[string]string{
	"As": "Br",
	"Wz": "HW",
	"Tm": "Sh",
}

// NormalizeRace maps a raw race display name to its canonical name.
// Sub-variants of the draconian group collapse to the parent race.
func NormalizeRace(raw string) string {
	if strings.HasSuffix(raw, "Draconian") {
		return "Draconian"
	}

	if canonical, ok := raceRenames[raw]; ok {
		return canonical
	}
	return raw
}

// NormalizeClass maps a raw class display name to its canonical name.
func NormalizeClass(raw string) string {
	if canonical, ok := classRenames[raw]; ok {
		return canonical
	}
	return raw
}

// NormalizeRaceAbbr maps a historical race abbreviation to the current one.
func NormalizeRaceAbbr(raw string) string {
	if canonical, ok := raceAbbrRenames[raw]; ok {
		return canonical
	}
	return raw
}

// NormalizeClassAbbr maps a historical class abbreviation to the current one.
func NormalizeClassAbbr(raw string) string {
	if canonical, ok := classAbbrRenames[raw]; ok {
		return canonical
	}
	return raw
}

// NormalizeCharCode translates both halves of a four letter character
// combo. The raw combo itself is always preserved separately.
func NormalizeCharCode(raw string) string {
	if len(raw) != 4 {
		return raw
	}
	return NormalizeRaceAbbr(raw[:2]) + NormalizeClassAbbr(raw[2:])
}
