// Package redissink mirrors batch job progress into Redis so any instance
// can serve job status.
package redissink

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-engine/internal/model"
)

// KeyPrefix namespaces job keys.
const KeyPrefix = "batch:job:"

// KV is the subset of the go-redis client the sink uses.
type KV interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

// Sink stores the latest snapshot of each job with a TTL.
type Sink struct {
	kv    KV
	ttl   time.Duration
	close func() error
}

// New wraps an existing client. ttl should match the job retention window.
func New(kv KV, ttl time.Duration) *Sink {
	return &Sink{kv: kv, ttl: ttl}
}

// Connect creates a client, checks connectivity and returns a sink that
// owns it.
func Connect(ctx context.Context, addr, password string, db int, ttl time.Duration) (*Sink, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close() //nolint:errcheck
		return nil, eris.Wrapf(err, "redissink: ping %s", addr)
	}
	s := New(client, ttl)
	s.close = client.Close
	return s, nil
}

// Key returns the Redis key of a job.
func Key(jobID string) string {
	return KeyPrefix + jobID
}

// Publish implements batch.Sink.
func (s *Sink) Publish(ctx context.Context, p model.BatchJobProgress) error {
	data, err := json.Marshal(p)
	if err != nil {
		return eris.Wrap(err, "redissink: marshal progress")
	}
	if err := s.kv.Set(ctx, Key(p.JobID), data, s.ttl).Err(); err != nil {
		return eris.Wrapf(err, "redissink: set %s", p.JobID)
	}
	return nil
}

// Get returns the last mirrored snapshot of a job. ok is false when the key
// is absent or expired.
func (s *Sink) Get(ctx context.Context, jobID string) (p model.BatchJobProgress, ok bool, err error) {
	data, err := s.kv.Get(ctx, Key(jobID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return p, false, nil
	}
	if err != nil {
		return p, false, eris.Wrapf(err, "redissink: get %s", jobID)
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return p, false, eris.Wrap(err, "redissink: unmarshal progress")
	}
	return p, true, nil
}

// Close closes the owned client, if any.
func (s *Sink) Close() error {
	if s.close != nil {
		return s.close()
	}
	return nil
}
