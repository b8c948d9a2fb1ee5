package core

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"
)

const shutdownTimeout = 30 * time.Second

// App manages the lifecycle of a set of modules.
type App struct {
	ctx     *AppContext
	modules []moduleInstance
	logger  *slog.Logger
}

type moduleInstance struct {
	id      ModuleID
	module  Module
	started bool
}

// NewApp creates a new App with the given context.
func NewApp(ctx *AppContext) *App {
	return &App{
		ctx:    ctx,
		logger: ctx.Logger.With("component", "core"),
	}
}

// LoadModules instantiates, provisions, and validates all modules for the
// given IDs in order. If any step fails, already-loaded modules are cleaned up.
func (a *App) LoadModules(ids []string) error {
	for _, id := range ids {
		mod, err := a.ctx.LoadModule(id)
		if err != nil {
			a.cleanup()
			return fmt.Errorf("loading module %s: %w", id, err)
		}
		info := mod.ModuleInfo()
		a.modules = append(a.modules, moduleInstance{
			id:     info.ID,
			module: mod,
		})
		a.logger.Debug("module loaded", "module", string(info.ID))
	}
	return nil
}

// Start starts all loaded modules that implement Starter, in order.
// If any Start() fails, already-started modules are stopped in reverse order.
func (a *App) Start() error {
	for i := range a.modules {
		mi := &a.modules[i]
		s, ok := mi.module.(Starter)
		if !ok {
			continue
		}
		a.logger.Debug("starting module", "module", string(mi.id))
		if err := s.Start(); err != nil {
			a.logger.Error("module start failed", "module", string(mi.id), "error", err)
			a.stopModules(i - 1)
			return fmt.Errorf("starting module %s: %w", mi.id, err)
		}
		mi.started = true
	}
	a.logger.Info("all modules started", "count", len(a.modules))
	return nil
}

// Stop stops all started modules in reverse order with a timeout.
func (a *App) Stop() {
	a.stopModules(len(a.modules) - 1)
}

func (a *App) stopModules(fromIndex int) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	for i := fromIndex; i >= 0; i-- {
		mi := &a.modules[i]
		if !mi.started {
			continue
		}
		if s, ok := mi.module.(Stopper); ok {
			a.logger.Debug("stopping module", "module", string(mi.id))
			if err := s.Stop(ctx); err != nil {
				a.logger.Error("module stop error", "module", string(mi.id), "error", err)
			}
		}
		mi.started = false
	}
}

func (a *App) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	for i := len(a.modules) - 1; i >= 0; i-- {
		mi := &a.modules[i]
		if s, ok := mi.module.(Stopper); ok {
			_ = s.Stop(ctx)
		}
	}
	a.modules = nil
}

// Run starts all modules and blocks until ctx is cancelled, SIGINT or
// SIGTERM arrives, or a started Finisher reports completion. Every module
// is stopped before Run returns. The error is the Finisher's, if any.
func (a *App) Run(ctx context.Context) error {
	if err := a.Start(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown requested", "cause", context.Cause(ctx))
	case f := <-a.finished(ctx):
		runErr = f.Err()
		a.logger.Info("module finished, shutting down", "error", runErr)
	}

	a.Stop()
	a.logger.Info("shutdown complete")
	return runErr
}

// finished delivers the first started Finisher whose Done channel closes.
func (a *App) finished(ctx context.Context) <-chan Finisher {
	out := make(chan Finisher, 1)
	for i := range a.modules {
		f, ok := a.modules[i].module.(Finisher)
		if !ok || !a.modules[i].started {
			continue
		}
		go func() {
			select {
			case <-f.Done():
				select {
				case out <- f:
				default:
				}
			case <-ctx.Done():
			}
		}()
	}
	return out
}
