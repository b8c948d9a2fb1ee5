package cron

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// parser accepts the standard 5-field expressions and descriptors such as
// "@hourly" or "@every 30s".
var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ParseSchedule reports whether expr is a schedule the Scheduler accepts.
func ParseSchedule(expr string) error {
	if _, err := parser.Parse(expr); err != nil {
		return fmt.Errorf("cron: invalid schedule %q: %w", expr, err)
	}
	return nil
}

// Scheduler manages periodic job execution using cron expressions.
// Each job is protected by a per-job mutex to prevent parallel execution
// of the same job (uses TryLock, so a tick never waits on the previous one).
type Scheduler struct {
	mu     sync.Mutex
	cron   *cron.Cron
	jobs   []Job
	names  map[string]struct{}
	locks  map[string]*sync.Mutex
	logger *slog.Logger
	cancel context.CancelFunc
}

// NewScheduler creates a scheduler. Jobs must be registered before Start().
func NewScheduler(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		names:  make(map[string]struct{}),
		locks:  make(map[string]*sync.Mutex),
		logger: logger,
	}
}

// RegisterJob adds a job to the scheduler. Must be called before Start().
// Returns an error if a job with the same name is already registered.
func (s *Scheduler) RegisterJob(j Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := j.Name()
	if _, exists := s.names[name]; exists {
		return fmt.Errorf("cron: duplicate job name %q", name)
	}

	s.names[name] = struct{}{}
	s.locks[name] = &sync.Mutex{}
	s.jobs = append(s.jobs, j)
	return nil
}

// Start initializes the cron scheduler and begins executing registered jobs.
// Returns an error if any job has an invalid schedule expression.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.cron = cron.New(cron.WithParser(parser))

	for _, job := range s.jobs {
		lock := s.locks[job.Name()]
		_, err := s.cron.AddFunc(job.Schedule(), func() {
			// If the previous tick is still running, skip this one.
			if !lock.TryLock() {
				s.logger.Warn("cron: job still running, skipping tick", "job", job.Name())
				return
			}
			defer lock.Unlock()
			s.run(ctx, job)
		})
		if err != nil {
			cancel()
			return fmt.Errorf("cron: invalid schedule for job %q: %w", job.Name(), err)
		}
	}

	s.cron.Start()
	s.logger.Info("cron: scheduler started", "jobs", len(s.jobs))
	return nil
}

// RunNow runs the named job immediately on the calling goroutine, waiting
// for a scheduled run of the same job to finish first.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	lock, ok := s.locks[name]
	var job Job
	for _, j := range s.jobs {
		if j.Name() == name {
			job = j
		}
	}
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("cron: unknown job %q", name)
	}

	lock.Lock()
	defer lock.Unlock()
	return s.run(ctx, job)
}

func (s *Scheduler) run(ctx context.Context, job Job) error {
	start := time.Now()
	s.logger.Debug("cron: job started", "job", job.Name())
	err := job.Run(ctx)
	if err != nil {
		s.logger.Error("cron: job failed",
			"job", job.Name(),
			"error", err,
		)
		return err
	}
	s.logger.Debug("cron: job completed", "job", job.Name(), "took", time.Since(start))
	return nil
}

// Stop gracefully shuts down the scheduler, waiting for in-flight jobs
// until ctx expires.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	if s.cron == nil {
		return nil
	}
	select {
	case <-s.cron.Stop().Done():
		s.logger.Info("cron: scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("cron: waiting for running jobs: %w", ctx.Err())
	}
}
