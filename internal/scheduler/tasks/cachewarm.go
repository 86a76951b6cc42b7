package tasks

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/eduwatcheru/eduwatcheru/internal/config"
	"github.com/eduwatcheru/eduwatcheru/internal/scheduler"
)

// CacheWarmTaskID identifies the cache warm-up task.
const CacheWarmTaskID = "cache-warm"

// Warmer preloads the preset category rows.
type Warmer interface {
	Warm(ctx context.Context) error
}

// CacheWarmTask keeps the home, movies and TV rows cached.
type CacheWarmTask struct {
	warmer Warmer
	logger zerolog.Logger
}

// NewCacheWarmTask creates a new cache warm-up task.
func NewCacheWarmTask(warmer Warmer, logger zerolog.Logger) *CacheWarmTask {
	return &CacheWarmTask{
		warmer: warmer,
		logger: logger.With().Str("task", CacheWarmTaskID).Logger(),
	}
}

// Run loads every preset row once.
func (t *CacheWarmTask) Run(ctx context.Context) error {
	start := time.Now()
	if err := t.warmer.Warm(ctx); err != nil {
		t.logger.Warn().Err(err).Msg("Cache warm-up failed")
		return err
	}
	t.logger.Debug().Dur("duration", time.Since(start)).Msg("Cache warmed")
	return nil
}

// RegisterCacheWarmTask registers the task when enabled in config.
func RegisterCacheWarmTask(s *scheduler.Scheduler, warmer Warmer, cfg config.SchedulerConfig, logger zerolog.Logger) error {
	if !cfg.WarmCache {
		return nil
	}
	task := NewCacheWarmTask(warmer, logger)
	return s.RegisterTask(scheduler.TaskConfig{
		ID:          CacheWarmTaskID,
		Name:        "Cache Warm-up",
		Description: "Preloads the movie and TV category rows into the response cache",
		Cron:        cfg.WarmCacheCron,
		Func:        task.Run,
		RunOnStart:  true,
		Timeout:     time.Minute,
	})
}
