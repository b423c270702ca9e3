// Package processors runs the per-logfile ingestion pass.
package processors

import (
	"context"
	"crawlstats/fetcher/reader"
	"crawlstats/fetcher/writer"
	"crawlstats/fetcher/xlog"
	"crawlstats/pkg/database/models"
	"crawlstats/pkg/logger"
	"fmt"
)

// CursorStore persists the advancing read offset of a logfile.
type CursorStore interface {
	AdvanceCursor(logfileID uint, offset int64) error
}

// LogfileProcessor turns a grown mirror into persisted game records.
type LogfileProcessor struct {
	cursors CursorStore
	writer  *writer.Writer
	logger  *logger.Logger

	// Maximum bytes consumed per read pass.
	maxReadSpan int64
}

// Create the logfile processor.
func CreateLogfileProcessor(cursors CursorStore, writer *writer.Writer, logger *logger.Logger, maxReadSpan int64) *LogfileProcessor {
	return &LogfileProcessor{
		cursors:     cursors,
		writer:      writer,
		logger:      logger,
		maxReadSpan: maxReadSpan,
	}
}

// Process consumes every complete newly appended line of the mirror.
// Each bounded pass is parsed, written and only then has its cursor
// persisted, so a crash re-reads instead of skipping.
func (p *LogfileProcessor) Process(ctx context.Context, logfile *models.Logfile) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		batch, err := reader.ReadNewLines(logfile.LocalPath, logfile.BytesRead, p.maxReadSpan)
		if err != nil {
			return fmt.Errorf("incremental read failed: %w", err)
		}

		if len(batch.Lines) == 0 {
			return nil
		}

		candidates := make([]*xlog.Candidate, 0, len(batch.Lines))
		for _, line := range batch.Lines {
			candidates = append(candidates, xlog.ParseLine(line))
		}

		if err := p.writer.WriteBatch(logfile, candidates); err != nil {
			return fmt.Errorf("batch write failed: %w", err)
		}

		// Advance by the consumed byte length only, a trailing partial
		// line stays before the cursor and is re-read next pass.
		newOffset := logfile.BytesRead + batch.Advance
		if err := p.cursors.AdvanceCursor(logfile.ID, newOffset); err != nil {
			return fmt.Errorf("cursor update failed: %w", err)
		}
		logfile.BytesRead = newOffset

		p.logger.Infof("logfile %s consumed %d lines (%d bytes)",
			logfile.LocalPath, len(batch.Lines), batch.Advance)
	}
}
