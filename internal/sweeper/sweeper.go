// Package sweeper removes applications past the retention window on a
// cron schedule.
package sweeper

import (
	"context"
	"fmt"
	"log"
	"time"
)

// lockKey is the advisory lock key shared by all sweeper instances so only
// one replica sweeps at a time.
const lockKey int64 = 7201

type Store interface {
	DeleteApplicationsBefore(ctx context.Context, cutoff time.Time) (int64, error)
	TryAdvisoryLock(ctx context.Context, key int64) (bool, error)
	AdvisoryUnlock(ctx context.Context, key int64) error
}

type CronParser interface {
	Parse(expression string, timezone string) (CronSchedule, error)
}

type CronSchedule interface {
	Next(after time.Time) time.Time
}

// MetricsSink records sweep outcomes.
type MetricsSink interface {
	SweepCompleted(duration time.Duration, removed int64, err error)
}

type Config struct {
	Schedule string
	Timezone string
	MaxAge   time.Duration
}

type Sweeper struct {
	config  Config
	store   Store
	parser  CronParser
	metrics MetricsSink // optional, nil = disabled
	clock   func() time.Time
}

func New(config Config, store Store, parser CronParser) *Sweeper {
	return &Sweeper{
		config: config,
		store:  store,
		parser: parser,
		clock:  time.Now,
	}
}

func (s *Sweeper) WithMetrics(sink MetricsSink) *Sweeper {
	s.metrics = sink
	return s
}

// Run sleeps until the next scheduled sweep and repeats until context is
// cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	tz := s.config.Timezone
	if tz == "" {
		tz = "UTC"
	}

	sched, err := s.parser.Parse(s.config.Schedule, tz)
	if err != nil {
		return fmt.Errorf("parse schedule %q: %w", s.config.Schedule, err)
	}

	log.Printf("sweeper: started, schedule=%q max_age=%s", s.config.Schedule, s.config.MaxAge)

	for {
		now := s.clock()
		next := sched.Next(now)

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			log.Println("sweeper: stopped")
			return ctx.Err()
		case <-timer.C:
		}

		if err := s.Sweep(ctx); err != nil {
			log.Printf("sweeper: sweep error: %v", err)
		}
	}
}

// Sweep deletes applications older than MaxAge. It takes an advisory lock
// first so concurrent replicas skip instead of double-sweeping.
func (s *Sweeper) Sweep(ctx context.Context) error {
	start := s.clock()

	locked, err := s.store.TryAdvisoryLock(ctx, lockKey)
	if err != nil {
		s.recordSweep(start, 0, err)
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !locked {
		log.Println("sweeper: lock held elsewhere, skipping")
		return nil
	}
	defer func() {
		if err := s.store.AdvisoryUnlock(ctx, lockKey); err != nil {
			log.Printf("sweeper: release lock: %v", err)
		}
	}()

	cutoff := start.Add(-s.config.MaxAge)

	removed, err := s.store.DeleteApplicationsBefore(ctx, cutoff)
	if err != nil {
		s.recordSweep(start, removed, err)
		return fmt.Errorf("delete applications: %w", err)
	}

	s.recordSweep(start, removed, nil)
	log.Printf("sweeper: removed %d applications older than %s", removed, cutoff.UTC().Format(time.RFC3339))
	return nil
}

func (s *Sweeper) recordSweep(start time.Time, removed int64, err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.SweepCompleted(s.clock().Sub(start), removed, err)
}
