// Package logger keeps session log files bounded to a number of lines.
package logger

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// LogRotator is an io.Writer that keeps the last maxLines lines of a file.
// Once twice that many lines have been written, the file is rewritten with
// only the most recent maxLines.
type LogRotator struct {
	mu       sync.Mutex
	writer   io.Writer
	filePath string
	maxLines int
	tail     [][]byte
	written  int
}

// NewLogRotator wraps writer, which must be the open file at filePath.
// A non-positive maxLines disables rotation.
func NewLogRotator(writer io.Writer, maxLines int, filePath string) *LogRotator {
	return &LogRotator{
		writer:   writer,
		filePath: filePath,
		maxLines: maxLines,
	}
}

// Write implements io.Writer.
func (w *LogRotator) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	n, err := w.writer.Write(p)
	if err != nil || w.maxLines <= 0 {
		return n, err
	}

	for line := range bytes.SplitSeq(bytes.TrimRight(p, "\n"), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		w.remember(line)
	}

	if w.written >= w.maxLines*2 {
		if err := w.rotate(); err != nil {
			return n, fmt.Errorf("failed to rotate log file: %w", err)
		}
		w.written = len(w.tail)
	}

	return n, nil
}

// remember appends a copy of line and drops lines beyond maxLines.
func (w *LogRotator) remember(line []byte) {
	w.tail = append(w.tail, bytes.Clone(line))
	if len(w.tail) > w.maxLines {
		w.tail = w.tail[len(w.tail)-w.maxLines:]
	}
	w.written++
}

// rotate replaces the file with the remembered tail and reopens it.
func (w *LogRotator) rotate() error {
	if len(w.tail) == 0 {
		return nil
	}

	temp, err := os.CreateTemp(filepath.Dir(w.filePath), "temp-log-")
	if err != nil {
		return err
	}
	tempPath := temp.Name()

	content := append(bytes.Join(w.tail, []byte("\n")), '\n')
	if _, err := temp.Write(content); err != nil {
		temp.Close()
		os.Remove(tempPath)
		return err
	}
	if err := temp.Close(); err != nil {
		os.Remove(tempPath)
		return err
	}

	if closer, ok := w.writer.(io.Closer); ok {
		closer.Close()
	}

	// Windows cannot rename over an existing file.
	os.Remove(w.filePath)

	if err := os.Rename(tempPath, w.filePath); err != nil {
		return err
	}

	file, err := os.OpenFile(w.filePath, os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	w.writer = file

	return nil
}
