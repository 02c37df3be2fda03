package audit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileAppender пишет записи в файл по одной JSON-строке.
// При превышении MaxSize файл переименовывается в <path>.1 (старые
// копии сдвигаются до MaxBackups) и открывается заново.
type FileAppender struct {
	mu          sync.Mutex
	file        *os.File
	path        string
	maxSize     int64
	maxBackups  int
	currentSize int64
}

// FileAppenderConfig - конфигурация file appender
type FileAppenderConfig struct {
	Path       string
	MaxSize    int64 // в байтах, 0 = 100 MB
	MaxBackups int   // 0 = 5
}

// NewFileAppender открывает (или создает) файл для дописывания
func NewFileAppender(cfg FileAppenderConfig) (*FileAppender, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	fa := &FileAppender{
		path:       cfg.Path,
		maxSize:    cfg.MaxSize,
		maxBackups: cfg.MaxBackups,
	}
	if fa.maxSize <= 0 {
		fa.maxSize = 100 << 20
	}
	if fa.maxBackups <= 0 {
		fa.maxBackups = 5
	}

	if err := fa.open(); err != nil {
		return nil, err
	}
	return fa, nil
}

func (fa *FileAppender) open() error {
	file, err := os.OpenFile(fa.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open audit file: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return fmt.Errorf("failed to stat audit file: %w", err)
	}

	fa.file = file
	fa.currentSize = info.Size()
	return nil
}

// Append - записать entry в файл
func (fa *FileAppender) Append(ctx context.Context, entry *Entry) error {
	data, err := entry.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}
	data = append(data, '\n')

	fa.mu.Lock()
	defer fa.mu.Unlock()

	if fa.file == nil {
		return fmt.Errorf("audit file is closed")
	}

	if fa.currentSize > 0 && fa.currentSize+int64(len(data)) > fa.maxSize {
		if err := fa.rotate(); err != nil {
			return fmt.Errorf("failed to rotate file: %w", err)
		}
	}

	n, err := fa.file.Write(data)
	fa.currentSize += int64(n)
	if err != nil {
		return fmt.Errorf("failed to write entry: %w", err)
	}
	return nil
}

// rotate: path.(n-1) → path.n, ..., path → path.1
func (fa *FileAppender) rotate() error {
	if err := fa.file.Close(); err != nil {
		return err
	}
	fa.file = nil

	os.Remove(backupPath(fa.path, fa.maxBackups))
	for i := fa.maxBackups - 1; i > 0; i-- {
		if _, err := os.Stat(backupPath(fa.path, i)); err == nil {
			if err := os.Rename(backupPath(fa.path, i), backupPath(fa.path, i+1)); err != nil {
				return err
			}
		}
	}

	if err := os.Rename(fa.path, backupPath(fa.path, 1)); err != nil {
		return err
	}

	return fa.open()
}

func backupPath(path string, n int) string {
	return fmt.Sprintf("%s.%d", path, n)
}

// Close - закрыть файл
func (fa *FileAppender) Close() error {
	fa.mu.Lock()
	defer fa.mu.Unlock()

	if fa.file == nil {
		return nil
	}
	err := fa.file.Close()
	fa.file = nil
	return err
}

// Path - путь к файлу
func (fa *FileAppender) Path() string {
	return fa.path
}
