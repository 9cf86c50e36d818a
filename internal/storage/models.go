package storage

import "time"

// CatalogSnapshot stores a previously loaded plan catalog document for a source.
type CatalogSnapshot struct {
	ID        uint      `json:"-" gorm:"primaryKey;column:id"`
	Source    string    `json:"source" gorm:"column:source"`
	Version   string    `json:"version" gorm:"column:version"`
	Payload   []byte    `json:"payload" gorm:"column:payload"`
	FetchedAt time.Time `json:"fetched_at" gorm:"column:fetched_at"`
}

// Setting is a single key/value row used for worker configuration overrides.
type Setting struct {
	Key       string    `gorm:"primaryKey;column:key"`
	Value     string    `gorm:"column:value"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

// ScheduledJob records the outcome of the most recent run of a background job.
type ScheduledJob struct {
	Name           string    `gorm:"primaryKey;column:name"`
	LastRunAt      time.Time `gorm:"column:last_run_at"`
	LastDurationMs int64     `gorm:"column:last_duration_ms"`
	LastSuccess    int       `gorm:"column:last_success"`
	LastError      string    `gorm:"column:last_error"`
}
