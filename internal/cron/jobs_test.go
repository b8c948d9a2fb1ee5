package cron

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/flemzord/telega-server/internal/metrics"
)

type fixedStats struct{ snap metrics.Snapshot }

func (s *fixedStats) Snapshot() metrics.Snapshot { return s.snap }

func TestStatsJob_Name(t *testing.T) {
	t.Parallel()
	j := &StatsJob{}
	if j.Name() != "bridge_stats" {
		t.Errorf("name = %q, want %q", j.Name(), "bridge_stats")
	}
}

func TestStatsJob_Schedule(t *testing.T) {
	t.Parallel()

	j := &StatsJob{}
	if j.Schedule() != "*/5 * * * *" {
		t.Errorf("schedule = %q, want %q", j.Schedule(), "*/5 * * * *")
	}
	j.ScheduleExpr = "@hourly"
	if j.Schedule() != "@hourly" {
		t.Errorf("schedule = %q, want @hourly", j.Schedule())
	}
}

func TestStatsJob_RunLogsDeltas(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	src := &fixedStats{snap: metrics.Snapshot{Commands: 3, Events: 10, BytesIn: 100, Uptime: time.Minute}}
	j := &StatsJob{
		Source: src,
		Logger: slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug})),
	}

	if err := j.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	first := logs.String()
	for _, want := range []string{"level=INFO", "bridge stats", "commands=3", "events=10", "bytes_in=100"} {
		if !strings.Contains(first, want) {
			t.Errorf("first run log %q missing %q", first, want)
		}
	}

	logs.Reset()
	src.snap = metrics.Snapshot{Commands: 5, Events: 10, BytesIn: 140, Uptime: 2 * time.Minute}
	if err := j.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	second := logs.String()
	for _, want := range []string{"commands=2", "events=0", "bytes_in=40", "total_commands=5"} {
		if !strings.Contains(second, want) {
			t.Errorf("second run log %q missing %q", second, want)
		}
	}
}

func TestStatsJob_QuietIntervalAtDebug(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	src := &fixedStats{snap: metrics.Snapshot{Commands: 1}}
	j := &StatsJob{
		Source: src,
		Logger: slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug})),
	}

	_ = j.Run(context.Background())
	logs.Reset()
	_ = j.Run(context.Background())
	if !strings.Contains(logs.String(), "level=DEBUG") {
		t.Errorf("quiet interval logged %q, want DEBUG", logs.String())
	}
}

func TestStatsJob_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	j := &StatsJob{Source: &fixedStats{}, Logger: slog.Default()}
	if err := j.Run(ctx); err == nil {
		t.Error("expected error for cancelled context")
	}
}
