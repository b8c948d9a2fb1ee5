package cron

import (
	"context"
	"errors"
	"log/slog"

	"github.com/flemzord/telega-server/internal/core"
	"github.com/flemzord/telega-server/internal/metrics"
	"gopkg.in/yaml.v3"
)

func init() {
	core.RegisterModule(&Stats{})
}

// StatsConfig holds cron.stats configuration.
type StatsConfig struct {
	Schedule string `yaml:"schedule"`

	// FinalReport logs one last statistics line on shutdown. Nil means true.
	FinalReport *bool `yaml:"final_report"`
}

func (c *StatsConfig) defaults() {
	if c.Schedule == "" {
		c.Schedule = "*/5 * * * *"
	}
	if c.FinalReport == nil {
		v := true
		c.FinalReport = &v
	}
}

// Stats is the cron.stats module. It periodically logs the bridge metrics
// registered under core.ServiceMetrics.
type Stats struct {
	config    StatsConfig
	appCtx    *core.AppContext
	logger    *slog.Logger
	scheduler *Scheduler
	job       *StatsJob
}

// ModuleInfo implements core.Module.
func (m *Stats) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "cron.stats",
		New: func() core.Module { return &Stats{} },
	}
}

// Configure implements core.Configurable.
func (m *Stats) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return err
	}
	m.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (m *Stats) Provision(ctx *core.AppContext) error {
	m.appCtx = ctx
	m.logger = ctx.Logger
	m.config.defaults()
	m.scheduler = NewScheduler(m.logger)
	return nil
}

// Validate implements core.Validator.
func (m *Stats) Validate() error {
	return ParseSchedule(m.config.Schedule)
}

// Start implements core.Starter. Without a metrics registry there is nothing
// to report and the scheduler is not started.
func (m *Stats) Start() error {
	reg, ok := core.ServiceAs[*metrics.Registry](m.appCtx, core.ServiceMetrics)
	if !ok {
		m.logger.Warn("no metrics registry, stats reporting disabled")
		return nil
	}

	m.job = &StatsJob{
		Source:       reg,
		Logger:       m.logger,
		ScheduleExpr: m.config.Schedule,
	}
	if err := m.scheduler.RegisterJob(m.job); err != nil {
		return err
	}
	return m.scheduler.Start()
}

// Stop implements core.Stopper.
func (m *Stats) Stop(ctx context.Context) error {
	if m.job == nil {
		return nil
	}
	err := m.scheduler.Stop(ctx)
	if *m.config.FinalReport {
		err = errors.Join(err, m.scheduler.RunNow(ctx, m.job.Name()))
	}
	return err
}
