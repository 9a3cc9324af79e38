// Package analytics records view and submission counters in Redis.
package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisSink increments hourly-bucketed counters per job listing. Counters
// expire after the configured retention so the keyspace stays bounded.
type RedisSink struct {
	client    *redis.Client
	retention time.Duration
}

func NewRedisSink(client *redis.Client, retention time.Duration) *RedisSink {
	return &RedisSink{client: client, retention: retention}
}

// RecordView increments the view counter for a job listing.
func (s *RedisSink) RecordView(ctx context.Context, jobID int64, at time.Time) error {
	return s.incr(ctx, buildKey(jobID, "views", at))
}

// RecordApplication increments the application counter for a job listing.
func (s *RedisSink) RecordApplication(ctx context.Context, jobID int64, at time.Time) error {
	return s.incr(ctx, buildKey(jobID, "applications", at))
}

func (s *RedisSink) incr(ctx context.Context, key string) error {
	pipe := s.client.Pipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, s.retention)

	_, err := pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("redis pipeline: %w", err)
	}

	return nil
}

func buildKey(jobID int64, kind string, t time.Time) string {
	return fmt.Sprintf("job:%d:%s:%s", jobID, kind, t.UTC().Format("2006010215"))
}
