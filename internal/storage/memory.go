package storage

import (
	"context"
	"sync"
	"time"
)

// MemoryStorage is an in-memory Storage backend for tests and single-process
// deployments that do not need persistence across restarts.
type MemoryStorage struct {
	mu        sync.RWMutex
	snapshots map[string]CatalogSnapshot
	settings  map[string]string
	jobs      map[string]ScheduledJob
}

func NewMemory() *MemoryStorage {
	return &MemoryStorage{
		snapshots: make(map[string]CatalogSnapshot),
		settings:  make(map[string]string),
		jobs:      make(map[string]ScheduledJob),
	}
}

func (m *MemoryStorage) GetCatalogSnapshot(ctx context.Context, source string) (*CatalogSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap, ok := m.snapshots[source]
	if !ok {
		return nil, nil
	}
	cp := snap
	cp.Payload = append([]byte(nil), snap.Payload...)
	return &cp, nil
}

func (m *MemoryStorage) SaveCatalogSnapshot(ctx context.Context, snap CatalogSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if snap.FetchedAt.IsZero() {
		snap.FetchedAt = time.Now()
	}
	snap.Payload = append([]byte(nil), snap.Payload...)
	m.snapshots[snap.Source] = snap
	return nil
}

func (m *MemoryStorage) GetSetting(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings[key], nil
}

func (m *MemoryStorage) SetSetting(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[key] = value
	return nil
}

func (m *MemoryStorage) UpdateScheduledJob(ctx context.Context, job ScheduledJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.Name] = job
	return nil
}

func (m *MemoryStorage) GetScheduledJob(ctx context.Context, name string) (*ScheduledJob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[name]
	if !ok {
		return nil, nil
	}
	cp := job
	return &cp, nil
}

func (m *MemoryStorage) Ping(ctx context.Context) error { return nil }

func (m *MemoryStorage) Close() error { return nil }

// AcquireAdvisoryLock always succeeds for the in-memory backend.
func (m *MemoryStorage) AcquireAdvisoryLock(ctx context.Context, key int64) (bool, error) {
	return true, nil
}

func (m *MemoryStorage) ReleaseAdvisoryLock(ctx context.Context, key int64) (bool, error) {
	return true, nil
}
