package adapters

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"pricewatch/internal/logging/types"
)

// FileAdapter implements the LogAdapter interface for file output with
// size-based rotation.
type FileAdapter struct {
	name    string
	config  FileConfig
	file    *os.File
	written int64
	mu      sync.Mutex
}

// FileConfig represents configuration for the file adapter
type FileConfig struct {
	FilePath   string `yaml:"file_path"`
	MaxSize    int64  `yaml:"max_size"` // bytes, 0 disables rotation
	CreateDirs bool   `yaml:"create_dirs"`
}

// NewFileAdapter creates a new file adapter
func NewFileAdapter(name string, config FileConfig) (*FileAdapter, error) {
	if config.FilePath == "" {
		return nil, fmt.Errorf("file_path is required for file adapter")
	}

	if config.CreateDirs {
		if err := os.MkdirAll(filepath.Dir(config.FilePath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
	}

	a := &FileAdapter{name: name, config: config}
	if err := a.open(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *FileAdapter) open() error {
	file, err := os.OpenFile(a.config.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return fmt.Errorf("failed to stat log file: %w", err)
	}
	a.file = file
	a.written = info.Size()
	return nil
}

// Write writes a log entry to the file
func (a *FileAdapter) Write(entry *types.LogEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.file == nil {
		return fmt.Errorf("file adapter %s is closed", a.name)
	}

	logData := map[string]interface{}{
		"level":   entry.Level.String(),
		"message": entry.Message,
		"time":    entry.Timestamp.Format(time.RFC3339),
	}
	for k, v := range entry.Fields {
		logData[k] = v
	}

	data, err := json.Marshal(logData)
	if err != nil {
		return fmt.Errorf("failed to marshal log entry: %w", err)
	}
	data = append(data, '\n')

	n, err := a.file.Write(data)
	a.written += int64(n)
	if err != nil {
		return err
	}

	if a.config.MaxSize > 0 && a.written >= a.config.MaxSize {
		return a.rotate()
	}
	return nil
}

// rotate renames the current file with a timestamp suffix and reopens.
func (a *FileAdapter) rotate() error {
	if err := a.file.Close(); err != nil {
		return err
	}
	rotated := fmt.Sprintf("%s.%s", a.config.FilePath, time.Now().Format("20060102T150405"))
	if err := os.Rename(a.config.FilePath, rotated); err != nil {
		return fmt.Errorf("failed to rotate log file: %w", err)
	}
	return a.open()
}

// Close closes the underlying file
func (a *FileAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.file == nil {
		return nil
	}
	err := a.file.Close()
	a.file = nil
	return err
}

// Health returns the health status of the adapter
func (a *FileAdapter) Health() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.file == nil {
		return fmt.Errorf("file adapter %s is closed", a.name)
	}
	return nil
}

// Name returns the name of the adapter
func (a *FileAdapter) Name() string {
	return a.name
}
