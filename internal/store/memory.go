package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/voyagen/m3ucatalog/internal/models"
)

// Memory is an in-process Store. Records are kept serialized so callers
// never share slices with the stored copy.
type Memory struct {
	mu      sync.Mutex
	entries map[string][]byte
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, key string) (*models.CacheRecord, error) {
	m.mu.Lock()
	data, ok := m.entries[key]
	m.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}
	return decodeRecord(key, data)
}

func (m *Memory) Put(_ context.Context, rec *models.CacheRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("memory put %s: %w", rec.Key, err)
	}
	m.mu.Lock()
	m.entries[rec.Key] = data
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Close() error { return nil }

// decodeRecord unmarshals a stored record payload.
func decodeRecord(key string, data []byte) (*models.CacheRecord, error) {
	var rec models.CacheRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode record %s: %w", key, err)
	}
	if rec.Key == "" {
		rec.Key = key
	}
	if rec.Categories == nil {
		rec.Categories = map[string][]int{}
	}
	return &rec, nil
}
