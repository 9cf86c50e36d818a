package storage

import "context"

// Storage abstracts persistence for catalog snapshots and worker state.
type Storage interface {
	// Catalog snapshots
	GetCatalogSnapshot(ctx context.Context, source string) (*CatalogSnapshot, error)
	SaveCatalogSnapshot(ctx context.Context, snap CatalogSnapshot) error

	// Settings
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error

	// Scheduled jobs
	UpdateScheduledJob(ctx context.Context, job ScheduledJob) error
	GetScheduledJob(ctx context.Context, name string) (*ScheduledJob, error)

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases any resources (no-op for in-memory).
	Close() error
}

// Locker is implemented by backends that support cross-instance locks.
// The GORM backend maps this onto Postgres advisory locks; other backends
// grant the lock unconditionally (single-instance assumption).
type Locker interface {
	AcquireAdvisoryLock(ctx context.Context, key int64) (bool, error)
	ReleaseAdvisoryLock(ctx context.Context, key int64) (bool, error)
}
