package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string {
	return &s
}

func TestFetchTimeoutSelection(t *testing.T) {
	short := 15 * time.Minute
	long := 24 * time.Hour

	tests := []struct {
		name        string
		latest      *string
		fileVersion *string
		expected    time.Duration
	}{
		{name: "fileAtLatest", latest: strPtr("0.31"), fileVersion: strPtr("0.31"), expected: short},
		{name: "fileOneMinorBehind", latest: strPtr("0.31"), fileVersion: strPtr("0.30"), expected: short},
		{name: "fileTwoMinorsBehind", latest: strPtr("0.32"), fileVersion: strPtr("0.30"), expected: long},
		{name: "fileAheadOfLatest", latest: strPtr("0.30"), fileVersion: strPtr("0.31"), expected: long},
		{name: "nilLatest", latest: nil, fileVersion: strPtr("0.31"), expected: long},
		{name: "bothNil", latest: nil, fileVersion: nil, expected: long},
		{name: "nilFileVersion", latest: strPtr("0.31"), fileVersion: nil, expected: long},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FetchTimeout(tt.fileVersion, tt.latest, short, long))
		})
	}
}
