package session

import (
	"context"
	"sync"
)

// Memory is a process-local Storage for single-instance deployments and tests.
type Memory struct {
	mu   sync.RWMutex
	data map[string]map[string]string
}

// NewMemory returns an empty Memory storage.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]map[string]string)}
}

// Get implements Storage.
func (m *Memory) Get(_ context.Context, sid, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.data[sid][key]
	return v, ok, nil
}

// Set implements Storage.
func (m *Memory) Set(_ context.Context, sid, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.data[sid] == nil {
		m.data[sid] = make(map[string]string)
	}
	m.data[sid][key] = value
	return nil
}

// Remove implements Storage.
func (m *Memory) Remove(_ context.Context, sid string, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, k := range keys {
		delete(m.data[sid], k)
	}
	return nil
}

// Clear implements Storage.
func (m *Memory) Clear(_ context.Context, sid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, sid)
	return nil
}
