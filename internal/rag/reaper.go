package rag

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
)

// Reaper periodically evicts idle indexes from a Registry.
type Reaper struct {
	scheduler *gocron.Scheduler
	registry  *Registry
	maxIdle   time.Duration
	interval  time.Duration
}

// NewReaper creates a Reaper; call Start to schedule it.
func NewReaper(registry *Registry, cfg Config) *Reaper {
	return &Reaper{
		scheduler: gocron.NewScheduler(time.UTC),
		registry:  registry,
		maxIdle:   cfg.IndexMaxIdle,
		interval:  cfg.ReapInterval,
	}
}

// Start schedules eviction without blocking.
func (r *Reaper) Start() error {
	if r.interval <= 0 || r.maxIdle <= 0 {
		return fmt.Errorf("reaper needs positive interval and max idle, got %s and %s", r.interval, r.maxIdle)
	}
	if _, err := r.scheduler.Every(r.interval).Do(r.Reap); err != nil {
		return fmt.Errorf("schedule index reaper: %w", err)
	}
	r.scheduler.StartAsync()
	return nil
}

// Stop cancels scheduled runs.
func (r *Reaper) Stop() {
	r.scheduler.Stop()
}

// Reap runs one eviction pass.
func (r *Reaper) Reap() {
	evicted := r.registry.EvictIdle(r.maxIdle)
	if len(evicted) > 0 {
		slog.Info("evicted idle indexes", "count", len(evicted), "remaining", r.registry.Len())
	}
}
