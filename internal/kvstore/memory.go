package kvstore

import (
	"context"
	"sync"
)

// DefaultQuota bounds the in-memory store to roughly what a browser-profile
// local storage area would allow.
const DefaultQuota = 5 << 20

// Memory is a quota-accounted in-process Store. Safe for concurrent use.
type Memory struct {
	mu    sync.RWMutex
	data  map[string]string
	used  int64
	quota int64
}

// NewMemory creates a Memory store with the given byte quota; zero or
// negative quota falls back to DefaultQuota.
func NewMemory(quota int64) *Memory {
	if quota <= 0 {
		quota = DefaultQuota
	}
	return &Memory{
		data:  make(map[string]string),
		quota: quota,
	}
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.data[key]

	return v, ok, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.used + entrySize(key, value)
	if prev, ok := m.data[key]; ok {
		next -= entrySize(key, prev)
	}
	if next > m.quota {
		return ErrQuotaExceeded
	}

	m.data[key] = value
	m.used = next

	return nil
}

func (m *Memory) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if prev, ok := m.data[key]; ok {
		m.used -= entrySize(key, prev)
		delete(m.data, key)
	}

	return nil
}

func (m *Memory) Usage(_ context.Context) (Usage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return Usage{Used: m.used, Quota: m.quota}, nil
}

func entrySize(key, value string) int64 {
	return int64(len(key) + len(value))
}
