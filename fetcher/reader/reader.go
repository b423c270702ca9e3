// Package reader streams newly appended lines out of a local logfile
// mirror, tracking a persisted byte cursor.
package reader

import (
	"bytes"
	"fmt"
	"io"
	"os"
)

// LineBatch is the result of one incremental read pass.
type LineBatch struct {
	Lines []string

	// Bytes consumed, separators included. A trailing partial line is
	// never consumed, so this can be smaller than the bytes read.
	Advance int64
}

// ReadNewLines reads at most maxSpan newly appended bytes starting at
// offset and splits them into complete lines. A missing mirror or one
// that hasn't grown is a no-op returning an empty batch.
func ReadNewLines(path string, offset int64, maxSpan int64) (*LineBatch, error) {
	batch := &LineBatch{}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return batch, nil
	}
	if err != nil {
		return nil, fmt.Errorf("couldn't stat the mirror %s: %v", path, err)
	}

	if info.Size() <= offset {
		return batch, nil
	}

	span := info.Size() - offset
	if span > maxSpan {
		span = maxSpan
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("couldn't open the mirror %s: %v", path, err)
	}
	defer file.Close()

	buffer := make([]byte, span)
	if _, err := io.ReadFull(io.NewSectionReader(file, offset, span), buffer); err != nil {
		return nil, fmt.Errorf("couldn't read the mirror %s: %v", path, err)
	}

	// Split on line feeds, dropping the trailing partial line. The
	// advance is counted in bytes, lines may hold multi-byte runes.
	for len(buffer) > 0 {
		newline := bytes.IndexByte(buffer, '\n')
		if newline < 0 {
			break
		}

		batch.Lines = append(batch.Lines, string(buffer[:newline]))
		batch.Advance += int64(newline) + 1
		buffer = buffer[newline+1:]
	}

	// A full span without a single separator is a line the cursor can
	// never pass, not a partial tail that will complete later.
	if len(batch.Lines) == 0 && span == maxSpan {
		return nil, fmt.Errorf("line at offset %d of %s exceeds the %d byte read span", offset, path, maxSpan)
	}

	return batch, nil
}
