package cron

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/flemzord/telega-server/internal/metrics"
)

// StatsSource is the subset of *metrics.Registry the stats job reads.
type StatsSource interface {
	Snapshot() metrics.Snapshot
}

// StatsJob logs bridge counters and how much they moved since its last run.
// Quiet intervals are logged at Debug so an idle editor does not fill the
// log.
type StatsJob struct {
	Source       StatsSource
	Logger       *slog.Logger
	ScheduleExpr string // empty = default "*/5 * * * *"

	mu   sync.Mutex
	prev metrics.Snapshot
}

// Compile-time interface check.
var _ Job = (*StatsJob)(nil)

// Name implements Job.
func (j *StatsJob) Name() string { return "bridge_stats" }

// Schedule implements Job.
func (j *StatsJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return "*/5 * * * *"
}

// Run logs one statistics line.
func (j *StatsJob) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	snap := j.Source.Snapshot()

	j.mu.Lock()
	prev := j.prev
	j.prev = snap
	j.mu.Unlock()

	commands := snap.Commands - prev.Commands
	events := snap.Events - prev.Events
	failures := snap.Failures - prev.Failures
	frameErrors := snap.FrameErrors - prev.FrameErrors

	level := slog.LevelInfo
	if commands == 0 && events == 0 && failures == 0 && frameErrors == 0 {
		level = slog.LevelDebug
	}
	j.Logger.Log(ctx, level, "bridge stats",
		"commands", commands,
		"events", events,
		"failures", failures,
		"frame_errors", frameErrors,
		"bytes_in", snap.BytesIn-prev.BytesIn,
		"bytes_out", snap.BytesOut-prev.BytesOut,
		"total_commands", snap.Commands,
		"total_events", snap.Events,
		"uptime", snap.Uptime.Round(time.Second),
	)
	return nil
}
