package trace

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// Writer appends events to a trace stream. Safe for concurrent use.
// Recording is best effort: callers must never fail a collective because
// a trace write failed.
type Writer struct {
	mu   sync.Mutex
	w    io.Writer
	enc  *json.Encoder
	file *os.File
}

// NewWriter wraps an io.Writer with event encoding.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w, enc: json.NewEncoder(w)}
}

// NewFileWriter opens (or creates) the per-rank trace file under dir,
// appending to an existing file so restarted workloads keep one stream.
func NewFileWriter(dir string, rank int) (*Writer, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create trace directory %s: %w", dir, err)
	}
	path := filepath.Join(dir, RankFileName(rank))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace file %s: %w", path, err)
	}
	return &Writer{w: f, enc: json.NewEncoder(f), file: f}, nil
}

// RankFileName returns the trace file name for a rank.
func RankFileName(rank int) string {
	return fmt.Sprintf("rank-%d.trace.jsonl", rank)
}

// Record appends one event.
func (w *Writer) Record(ev Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.enc.Encode(ev)
}

// Close closes the underlying file, if any.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file != nil {
		return w.file.Close()
	}
	return nil
}
