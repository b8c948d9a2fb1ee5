// Package core provides the module system telega-server is assembled from.
package core

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// AppContext carries shared resources available to modules during provisioning
// and at runtime.
type AppContext struct {
	// Logger for the current module scope.
	Logger *slog.Logger

	// Stdin and Stdout are the process streams. The bridge owns them: the
	// editor writes commands to Stdin and reads events from Stdout, so no
	// other module may touch either.
	Stdin  io.Reader
	Stdout io.Writer

	parentLogger  *slog.Logger
	moduleConfigs map[string]yaml.Node
	services      *services
}

// NewAppContext creates a new AppContext over the given logger and streams.
// Nil arguments fall back to slog.Default, os.Stdin and os.Stdout.
func NewAppContext(logger *slog.Logger, stdin io.Reader, stdout io.Writer) *AppContext {
	if logger == nil {
		logger = slog.Default()
	}
	if stdin == nil {
		stdin = os.Stdin
	}
	if stdout == nil {
		stdout = os.Stdout
	}
	return &AppContext{
		Logger:       logger,
		Stdin:        stdin,
		Stdout:       stdout,
		parentLogger: logger,
		services:     newServices(),
	}
}

// WithModuleConfigs returns a copy of the AppContext with module configurations set.
// Each key is a module ID mapping to its raw YAML configuration node.
func (ctx *AppContext) WithModuleConfigs(configs map[string]yaml.Node) *AppContext {
	cp := *ctx
	cp.moduleConfigs = configs
	return &cp
}

// ForModule returns a new AppContext scoped to the given module ID,
// with a child logger that includes the module ID. The service registry
// is shared with the parent.
func (ctx *AppContext) ForModule(id ModuleID) *AppContext {
	return &AppContext{
		Logger:        ctx.parentLogger.With("module", string(id)),
		Stdin:         ctx.Stdin,
		Stdout:        ctx.Stdout,
		parentLogger:  ctx.parentLogger,
		moduleConfigs: ctx.moduleConfigs,
		services:      ctx.services,
	}
}

// LoadModule instantiates and provisions a module by its ID.
// It calls Configure, Provision and Validate if the module implements
// those interfaces. The lifecycle order is:
//
//	New() → Configure() → Provision() → Validate()
//
// Returns the provisioned module instance ready for use.
func (ctx *AppContext) LoadModule(id string) (Module, error) {
	info, ok := GetModule(id)
	if !ok {
		return nil, fmt.Errorf("unknown module: %s", id)
	}

	mod := info.New()

	if c, ok := mod.(Configurable); ok {
		if node, exists := ctx.moduleConfigs[id]; exists {
			if err := c.Configure(&node); err != nil {
				return nil, fmt.Errorf("configuring module %s: %w", id, err)
			}
		}
	}

	if p, ok := mod.(Provisioner); ok {
		if err := p.Provision(ctx.ForModule(info.ID)); err != nil {
			return nil, fmt.Errorf("provisioning module %s: %w", id, err)
		}
	}

	if v, ok := mod.(Validator); ok {
		if err := v.Validate(); err != nil {
			return nil, fmt.Errorf("validating module %s: %w", id, err)
		}
	}

	return mod, nil
}
