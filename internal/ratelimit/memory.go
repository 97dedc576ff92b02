package ratelimit

import (
	"context"
	"sync"
	"time"
)

// DefaultSweepInterval is how often expired records are removed from the
// in-memory store, independent of request traffic.
const DefaultSweepInterval = 5 * time.Minute

type record struct {
	count     int
	resetTime time.Time
}

// Memory is a process-local fixed-window limiter. It is correct within one
// instance only; use Dynamo when a shared view across instances is required.
type Memory struct {
	mu      sync.Mutex
	records map[string]*record

	sweepInterval time.Duration
	now           func() time.Time

	stopOnce sync.Once
	stop     chan struct{}
}

// NewMemory creates a Memory limiter. A non-positive sweepInterval falls back
// to DefaultSweepInterval. Call Start to begin the background sweep and Stop
// to end it.
func NewMemory(sweepInterval time.Duration) *Memory {
	if sweepInterval <= 0 {
		sweepInterval = DefaultSweepInterval
	}
	return &Memory{
		records:       make(map[string]*record),
		sweepInterval: sweepInterval,
		now:           time.Now,
		stop:          make(chan struct{}),
	}
}

// Check applies the fixed-window policy for identifier. It never returns an
// error; the error is part of the Limiter contract for store-backed
// implementations.
func (m *Memory) Check(_ context.Context, identifier string, maxRequests int, window time.Duration) (Result, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[identifier]
	if !ok || !rec.resetTime.After(now) {
		reset := now.Add(window)
		m.records[identifier] = &record{count: 1, resetTime: reset}
		return Result{Allowed: true, Limit: maxRequests, Remaining: maxRequests - 1, ResetTime: reset}, nil
	}

	if rec.count >= maxRequests {
		// The stored record is left untouched while over the limit.
		return Result{
			Allowed:    false,
			Limit:      maxRequests,
			Remaining:  0,
			ResetTime:  rec.resetTime,
			RetryAfter: retryAfterSeconds(rec.resetTime.Sub(now)),
		}, nil
	}

	rec.count++
	return Result{Allowed: true, Limit: maxRequests, Remaining: maxRequests - rec.count, ResetTime: rec.resetTime}, nil
}

// Start launches the background sweep that bounds memory by dropping expired
// records.
func (m *Memory) Start() {
	go func() {
		ticker := time.NewTicker(m.sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-m.stop:
				return
			case <-ticker.C:
				m.sweep()
			}
		}
	}()
}

// Stop terminates the background sweep. Safe to call more than once.
func (m *Memory) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
}

func (m *Memory) sweep() {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, rec := range m.records {
		if !rec.resetTime.After(now) {
			delete(m.records, id)
		}
	}
}
