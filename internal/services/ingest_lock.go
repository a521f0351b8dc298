package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// IngestLock serializes profile ingestion per seller. Profile updates are a
// read-modify-write with no compare-and-swap at the store, so two concurrent
// completions for the same seller could otherwise drop one update.
type IngestLock interface {
	// Acquire blocks until the seller's lock is held or ctx is done.
	// The returned release function must be called exactly once.
	Acquire(ctx context.Context, sellerID string) (release func(), err error)
}

// LocalIngestLock is the single-process implementation, used when Redis is
// not configured. Correct only when one server instance writes profiles.
type LocalIngestLock struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewLocalIngestLock creates an in-process ingest lock
func NewLocalIngestLock() *LocalIngestLock {
	return &LocalIngestLock{locks: make(map[string]*sync.Mutex)}
}

// Acquire locks the seller's mutex
func (l *LocalIngestLock) Acquire(ctx context.Context, sellerID string) (func(), error) {
	l.mu.Lock()
	m, ok := l.locks[sellerID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[sellerID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock, nil
}

// RedisIngestLock serializes ingestion across server instances with a
// SETNX lease. The lease TTL bounds lock leakage if a holder crashes.
type RedisIngestLock struct {
	client   *redis.Client
	leaseTTL time.Duration
	retry    time.Duration
}

// NewRedisIngestLock creates a Redis-backed ingest lock
func NewRedisIngestLock(client *redis.Client) *RedisIngestLock {
	return &RedisIngestLock{
		client:   client,
		leaseTTL: 10 * time.Second,
		retry:    50 * time.Millisecond,
	}
}

// Acquire polls SETNX until the lease is obtained or ctx is done
func (l *RedisIngestLock) Acquire(ctx context.Context, sellerID string) (func(), error) {
	key := fmt.Sprintf("dealflow:ingest-lock:%s", sellerID)

	for {
		ok, err := l.client.SetNX(ctx, key, "1", l.leaseTTL).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire ingest lock: %w", err)
		}
		if ok {
			release := func() {
				delCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				l.client.Del(delCtx, key)
			}
			return release, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retry):
		}
	}
}
