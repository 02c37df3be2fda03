package retry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"
)

// DLQEntry - запись Dead Letter Queue
type DLQEntry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Attempts  int       `json:"attempts"`
	LastError string    `json:"last_error"`
	Reason    string    `json:"reason"` // max_attempts_exceeded, circuit_open, failed
	Data      any       `json:"data,omitempty"`
}

// DLQConfig - файл очереди и ее предельный размер
type DLQConfig struct {
	Path    string `yaml:"path"`
	MaxSize int    `yaml:"max_size"` // 0 = без ограничения; старые записи вытесняются
}

// DLQ хранит записи в памяти и после каждого изменения переписывает файл
// (JSON-массив)
type DLQ struct {
	mu      sync.Mutex
	config  DLQConfig
	entries []DLQEntry
	counter int
}

// NewDLQ открывает очередь, загружая записи из существующего файла
func NewDLQ(config DLQConfig) (*DLQ, error) {
	if config.Path == "" {
		return nil, fmt.Errorf("dlq path is required")
	}

	d := &DLQ{config: config}

	data, err := os.ReadFile(config.Path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read DLQ file: %w", err)
	case len(data) > 0:
		if err := json.Unmarshal(data, &d.entries); err != nil {
			return nil, fmt.Errorf("failed to unmarshal DLQ: %w", err)
		}
	}

	return d, nil
}

// Add добавляет запись, назначая ID и время, если они не заданы
func (d *DLQ) Add(entry DLQEntry) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.counter++
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	if entry.ID == "" {
		entry.ID = fmt.Sprintf("dlq-%d-%d", entry.Timestamp.Unix(), d.counter)
	}

	d.entries = append(d.entries, entry)
	if d.config.MaxSize > 0 && len(d.entries) > d.config.MaxSize {
		d.entries = d.entries[len(d.entries)-d.config.MaxSize:]
	}

	return d.save()
}

// Entries возвращает копию записей
func (d *DLQ) Entries() []DLQEntry {
	d.mu.Lock()
	defer d.mu.Unlock()

	result := make([]DLQEntry, len(d.entries))
	copy(result, d.entries)
	return result
}

// Remove удаляет запись по ID
func (d *DLQ) Remove(id string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i, entry := range d.entries {
		if entry.ID == id {
			d.entries = append(d.entries[:i], d.entries[i+1:]...)
			return true, d.save()
		}
	}
	return false, nil
}

// Size - количество записей
func (d *DLQ) Size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.entries)
}

// save вызывается под d.mu
func (d *DLQ) save() error {
	data, err := json.MarshalIndent(d.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal DLQ: %w", err)
	}
	if err := os.WriteFile(d.config.Path, data, 0644); err != nil {
		return fmt.Errorf("failed to write DLQ file: %w", err)
	}
	return nil
}
