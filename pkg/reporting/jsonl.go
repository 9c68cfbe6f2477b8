package reporting

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// JSONLWriter appends one JSON object per line to a file. It is used for
// durable execution and risk event logs that downstream tools can tail.
type JSONLWriter struct {
	mu   sync.Mutex
	file *os.File
}

// NewJSONLWriter opens the file for appending, creating parent directories
// as needed.
func NewJSONLWriter(path string) (*JSONLWriter, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return &JSONLWriter{file: file}, nil
}

// Write marshals v and appends it as one line.
func (w *JSONLWriter) Write(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying file.
func (w *JSONLWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}
