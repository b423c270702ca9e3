package queue

import (
	"crawlstats/pkg/versions"
	"time"
)

// FetchTimeout selects the refetch timeout for a logfile version.
// Files at the latest known version, or one minor release behind it,
// change fast and get the short timeout. Everything else, including
// files with no usable version, gets the long one.
func FetchTimeout(fileVersion, latest *string, short, long time.Duration) time.Duration {
	if fileVersion == nil || latest == nil {
		return long
	}

	if *fileVersion == *latest {
		return short
	}

	if versions.NextMinor(*fileVersion) == *latest {
		return short
	}

	return long
}
