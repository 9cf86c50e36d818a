package cron

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/whsiao/tariffcompare/internal/catalog"
	"github.com/whsiao/tariffcompare/internal/config"
	"github.com/whsiao/tariffcompare/internal/metrics"
	"github.com/whsiao/tariffcompare/internal/storage"
)

const (
	jobName                      = "catalog_refresh"
	lockKey                int64 = 7301
	defaultIntervalSetting       = "3600"
)

// catalogSource picks the document source from the configuration: a file
// path when one is set, otherwise the embedded catalog.
func catalogSource(cfg config.Config) catalog.Source {
	if cfg.CatalogPath != "" {
		return catalog.FileSource{Path: cfg.CatalogPath}
	}
	return catalog.EmbeddedSource{}
}

// Run starts the refresh worker: it periodically re-fetches and re-validates
// the catalog document and writes the fresh snapshot to storage. An advisory
// lock keeps multi-instance deployments down to one active run per interval;
// backends without real locks grant it unconditionally.
func Run(ctx context.Context, cfg config.Config) error {
	st, err := storage.Open(ctx, storage.Config{Driver: cfg.DBDriver, DSN: cfg.DBDSN})
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer st.Close()

	locker, ok := st.(storage.Locker)
	if !ok {
		return fmt.Errorf("storage driver %q does not support advisory locks", cfg.DBDriver)
	}

	loader := catalog.NewLoader(catalogSource(cfg), catalog.WithStorage(st))

	// The interval setting is integer seconds or a cron expression. The
	// environment value seeds it and the settings table can override it at
	// runtime.
	intervalSetting := defaultIntervalSetting
	if val, err := st.GetSetting(ctx, "refresh_interval"); err == nil && val != "" {
		intervalSetting = val
	}

	getNextRun := func(setting string, lastRun time.Time) time.Time {
		if v, err := strconv.Atoi(setting); err == nil && v > 0 {
			return lastRun.Add(time.Duration(v) * time.Second)
		}
		if sched, err := cron.ParseStandard(setting); err == nil {
			return sched.Next(lastRun)
		}
		return lastRun.Add(time.Hour)
	}

	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	// Run once immediately, then follow the schedule.
	nextRun := time.Now()

	log.Printf("cron worker starting, interval=%q driver=%s", intervalSetting, cfg.DBDriver)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if val, err := st.GetSetting(ctx, "refresh_interval"); err == nil && val != "" && val != intervalSetting {
				log.Printf("cron: interval updated from %q to %q", intervalSetting, val)
				intervalSetting = val
				nextRun = getNextRun(intervalSetting, time.Now())
			}

			if time.Now().Before(nextRun) {
				continue
			}

			started := time.Now()

			ok, err := locker.AcquireAdvisoryLock(ctx, lockKey)
			if err != nil {
				log.Printf("cron: acquire advisory lock failed: %v", err)
				metrics.UpdateJobMetrics(jobName, started, err)
				nextRun = getNextRun(intervalSetting, time.Now())
				continue
			}
			if !ok {
				log.Printf("cron: advisory lock held by another worker, skipping run")
				nextRun = getNextRun(intervalSetting, time.Now())
				continue
			}

			var runErr error
			func() {
				defer func() {
					if _, err := locker.ReleaseAdvisoryLock(ctx, lockKey); err != nil {
						log.Printf("cron: release advisory lock failed: %v", err)
					}
				}()
				_, runErr = loader.Refresh(ctx)
			}()

			if runErr != nil {
				metrics.CatalogReloadsTotal.WithLabelValues("error").Inc()
			} else {
				metrics.CatalogReloadsTotal.WithLabelValues("ok").Inc()
			}
			metrics.UpdateJobMetrics(jobName, started, runErr)

			dur := time.Since(started)
			job := storage.ScheduledJob{
				Name:           jobName,
				LastRunAt:      started,
				LastDurationMs: dur.Milliseconds(),
				LastError:      "",
			}
			if runErr == nil {
				job.LastSuccess = 1
			} else {
				job.LastError = runErr.Error()
			}
			if err := st.UpdateScheduledJob(ctx, job); err != nil {
				log.Printf("cron: update scheduled_jobs failed: %v", err)
			}

			if runErr != nil {
				log.Printf("cron: job %s completed with error: %v (duration=%s)", jobName, runErr, dur)
			} else {
				log.Printf("cron: job %s completed successfully (duration=%s)", jobName, dur)
			}

			nextRun = getNextRun(intervalSetting, time.Now())
		}
	}
}
