// Package queue schedules the remote logfile fetches.
package queue

import (
	"context"
	"crawlstats/pkg/database/models"
	"crawlstats/pkg/logger"
	"crawlstats/pkg/messages"
	"crawlstats/pkg/versions"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"
)

// The configuration for the fetch queue.
type FetchQueueConfig struct {
	// Window over which every tracked file should get an opportunity.
	ScheduleWindow time.Duration

	// Adaptive timeouts, see FetchTimeout.
	ShortTimeout time.Duration
	LongTimeout  time.Duration

	// Hard timeout of one fetch plus its processing pass.
	HardTimeout time.Duration

	// Wait before re-evaluating when nothing is due.
	IdleWait time.Duration
}

// LogfileRepository is the logfile persistence used by the queue.
type LogfileRepository interface {
	GetActiveLogfiles() ([]*models.Logfile, error)
	SetLastFetched(logfileID uint, fetchedAt time.Time) error
}

// Downloader mirrors one remote resource locally.
type Downloader interface {
	Download(ctx context.Context, url, dest string) (int64, error)
}

// ProcessFunc handles the updated mirror of a fetched logfile.
type ProcessFunc func(ctx context.Context, logfile *models.Logfile) error

// FetchQueue is the perpetual single-worker fetch scheduler.
// Exactly one remote transfer is in flight at any time.
type FetchQueue struct {
	config   FetchQueueConfig
	logfiles LogfileRepository
	download Downloader
	process  ProcessFunc
	logger   *logger.Logger

	// Deduplicates concurrent requests for the same mirror path.
	inflight singleflight.Group
}

// Create the fetch queue.
func CreateFetchQueue(
	config FetchQueueConfig,
	logfiles LogfileRepository,
	download Downloader,
	process ProcessFunc,
	logger *logger.Logger,
) *FetchQueue {
	if config.IdleWait == 0 {
		config.IdleWait = time.Minute
	}

	return &FetchQueue{
		config:   config,
		logfiles: logfiles,
		download: download,
		process:  process,
		logger:   logger,
	}
}

// Run loops forever, re-evaluating the tracked files from storage
// whenever the queue drains. It returns only on context cancellation.
func (q *FetchQueue) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		dispatched, err := q.runPass(ctx)
		if err != nil {
			q.logger.Errorf("fetch pass failed: %v", err)
		}

		if !dispatched {
			q.logger.Infof(messages.SchedulerIdleMsg, q.config.IdleWait)
			select {
			case <-ctx.Done():
				return
			case <-time.After(q.config.IdleWait):
			}
		}
	}
}

// runPass walks every active logfile once, fetching the due ones.
func (q *FetchQueue) runPass(ctx context.Context) (bool, error) {
	logfiles, err := q.logfiles.GetActiveLogfiles()
	if err != nil {
		return false, fmt.Errorf("couldn't re-evaluate the tracked files: %v", err)
	}

	if len(logfiles) == 0 {
		return false, nil
	}

	labels := make([]*string, 0, len(logfiles))
	for _, logfile := range logfiles {
		labels = append(labels, logfile.GameVersion)
	}
	latest := versions.Latest(labels)

	// On average every file gets an opportunity within the window.
	spacing := q.config.ScheduleWindow / time.Duration(len(logfiles))

	dispatched := false
	for _, logfile := range logfiles {
		if ctx.Err() != nil {
			return dispatched, nil
		}

		if !q.due(logfile, latest) {
			continue
		}

		dispatched = true
		started := time.Now()

		// One failing file must never cancel its siblings.
		if err := q.FetchOne(ctx, logfile); err != nil {
			q.logger.Errorf("%v", err)
		}

		if wait := spacing - time.Since(started); wait > 0 {
			select {
			case <-ctx.Done():
				return dispatched, nil
			case <-time.After(wait):
			}
		}
	}

	return dispatched, nil
}

// due reports whether the logfile needs a refetch. A file never
// fetched before is always due.
func (q *FetchQueue) due(logfile *models.Logfile, latest *string) bool {
	if logfile.LastFetched == nil {
		return true
	}

	timeout := FetchTimeout(logfile.GameVersion, latest, q.config.ShortTimeout, q.config.LongTimeout)
	return time.Since(*logfile.LastFetched) >= timeout
}

// FetchOne downloads the logfile under its hard timeout and hands the
// grown mirror to the processing pass. Concurrent callers for the same
// mirror path join the same in-flight operation.
func (q *FetchQueue) FetchOne(ctx context.Context, logfile *models.Logfile) error {
	_, err, _ := q.inflight.Do(logfile.LocalPath, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(ctx, q.config.HardTimeout)
		defer cancel()

		url := logfile.Server.BaseURL + logfile.RemotePath
		if _, err := q.download.Download(fetchCtx, url, logfile.LocalPath); err != nil {
			return nil, q.annotate(logfile, fmt.Errorf("fetch failed: %w", err))
		}

		if err := q.logfiles.SetLastFetched(logfile.ID, time.Now().UTC()); err != nil {
			return nil, q.annotate(logfile, fmt.Errorf("couldn't store the fetch time: %w", err))
		}

		if err := q.process(fetchCtx, logfile); err != nil {
			return nil, q.annotate(logfile, fmt.Errorf("processing failed: %w", err))
		}

		return nil, nil
	})

	return err
}

// annotate tags an error with the originating server and version.
func (q *FetchQueue) annotate(logfile *models.Logfile, err error) error {
	version := "unknown"
	if logfile.GameVersion != nil {
		version = *logfile.GameVersion
	}
	return fmt.Errorf("server %s version %s: %w", logfile.Server.Name, version, err)
}
