// Package versions handles crawl version labels like "0.31".
package versions

import (
	"fmt"
	"strconv"
	"strings"
)

// Parse splits a version label into its major and minor numbers.
func Parse(label string) (major int, minor int, err error) {
	parts := strings.SplitN(label, ".", 3)
	if len(parts) < 2 {
		return 0, 0, fmt.Errorf("malformed version label %q", label)
	}

	major, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("malformed version label %q", label)
	}

	minor, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("malformed version label %q", label)
	}

	return major, minor, nil
}

// Less reports whether a sorts before b. Unparseable labels sort first.
func Less(a, b string) bool {
	aMajor, aMinor, aErr := Parse(a)
	bMajor, bMinor, bErr := Parse(b)
	if aErr != nil {
		return bErr == nil
	}
	if bErr != nil {
		return false
	}

	if aMajor != bMajor {
		return aMajor < bMajor
	}
	return aMinor < bMinor
}

// NextMinor returns the label with the minor release incremented.
// Returns the input unchanged when it can't be parsed.
func NextMinor(label string) string {
	major, minor, err := Parse(label)
	if err != nil {
		return label
	}
	return fmt.Sprintf("%d.%d", major, minor+1)
}

// Latest returns the highest version among the given labels, nil when
// no label is usable.
func Latest(labels []*string) *string {
	var latest *string
	for _, label := range labels {
		if label == nil {
			continue
		}
		if _, _, err := Parse(*label); err != nil {
			continue
		}
		if latest == nil || Less(*latest, *label) {
			latest = label
		}
	}
	return latest
}
