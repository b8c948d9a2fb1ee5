// Package crontest provides test doubles for the cron package.
package crontest

import (
	"context"
	"sync"
	"time"

	"github.com/flemzord/telega-server/internal/cron"
	"github.com/flemzord/telega-server/internal/metrics"
)

// MockJob is a configurable test double for cron.Job.
type MockJob struct {
	NameVal     string
	ScheduleVal string
	RunFunc     func(ctx context.Context) error

	mu       sync.Mutex
	calls    int
	lastCall time.Time
}

// Compile-time interface check.
var _ cron.Job = (*MockJob)(nil)

// Name implements cron.Job.
func (m *MockJob) Name() string { return m.NameVal }

// Schedule implements cron.Job.
func (m *MockJob) Schedule() string { return m.ScheduleVal }

// Run implements cron.Job and increments the call counter.
func (m *MockJob) Run(ctx context.Context) error {
	m.mu.Lock()
	m.calls++
	m.lastCall = time.Now()
	m.mu.Unlock()

	if m.RunFunc != nil {
		return m.RunFunc(ctx)
	}
	return nil
}

// CallCount returns the number of times Run was called.
func (m *MockJob) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// LastCall returns the time of the last Run call.
func (m *MockJob) LastCall() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastCall
}

// StatsSource is a cron.StatsSource returning whatever snapshot was last set.
type StatsSource struct {
	mu   sync.Mutex
	snap metrics.Snapshot
}

// Compile-time interface check.
var _ cron.StatsSource = (*StatsSource)(nil)

// Set replaces the snapshot returned by Snapshot.
func (s *StatsSource) Set(snap metrics.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = snap
}

// Snapshot implements cron.StatsSource.
func (s *StatsSource) Snapshot() metrics.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}
