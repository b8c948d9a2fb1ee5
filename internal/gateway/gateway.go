package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/flemzord/telega-server/internal/config"
	"github.com/flemzord/telega-server/internal/core"
	"github.com/flemzord/telega-server/internal/metrics"
	"github.com/flemzord/telega-server/internal/security"
	"gopkg.in/yaml.v3"
)

func init() {
	core.RegisterModule(&Gateway{})
}

// Gateway is the HTTP gateway module. It exposes health, Prometheus metrics
// and, when auth is configured, status and admin endpoints. It is a leaf
// module: nothing imports it.
type Gateway struct {
	config    Config
	appCtx    *core.AppContext
	logger    *slog.Logger
	server    *http.Server
	startedAt time.Time

	// Resolved lazily at Start() via service registry.
	metrics *metrics.Registry
	bridge  core.Finisher
	loaded  *config.Config

	redactor *security.Redactor
}

// ModuleInfo implements core.Module.
func (g *Gateway) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "gateway.http",
		New: func() core.Module { return &Gateway{} },
	}
}

// Configure implements core.Configurable.
func (g *Gateway) Configure(node *yaml.Node) error {
	if err := node.Decode(&g.config); err != nil {
		return err
	}
	g.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (g *Gateway) Provision(ctx *core.AppContext) error {
	g.appCtx = ctx
	g.logger = ctx.Logger
	g.config.defaults()
	g.redactor = security.NewRedactor()
	return nil
}

// Validate implements core.Validator.
func (g *Gateway) Validate() error {
	if _, err := net.ResolveTCPAddr("tcp", g.config.Bind); err != nil {
		return errors.New("gateway: invalid bind address: " + g.config.Bind)
	}
	return nil
}

// Start implements core.Starter. It resolves dependencies from the service
// registry (lazy binding) and starts the HTTP server.
func (g *Gateway) Start() error {
	// Resolve optional services. Missing ones degrade the matching endpoint.
	if m, ok := core.ServiceAs[*metrics.Registry](g.appCtx, core.ServiceMetrics); ok {
		g.metrics = m
	}
	if b, ok := core.ServiceAs[core.Finisher](g.appCtx, core.ServiceBridge); ok {
		g.bridge = b
	}
	if cfg, ok := core.ServiceAs[*config.Config](g.appCtx, core.ServiceConfig); ok {
		g.loaded = cfg
	}
	if r, ok := core.ServiceAs[*security.Redactor](g.appCtx, core.ServiceRedactor); ok {
		g.redactor = r
	}
	g.redactor.AddLiteral(g.config.Auth.BearerToken)
	g.redactor.AddLiteral(g.config.Auth.BasicPass)

	g.startedAt = time.Now()

	mux := g.buildRouter()

	g.server = &http.Server{
		Addr:         g.config.Bind,
		Handler:      mux,
		ReadTimeout:  g.config.ReadTimeout,
		WriteTimeout: g.config.WriteTimeout,
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", g.config.Bind)
	if err != nil {
		return errors.New("gateway: listen failed: " + err.Error())
	}

	go func() {
		g.logger.Info("gateway listening", "addr", g.config.Bind)
		if err := g.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Error("gateway serve error", "error", err)
		}
	}()

	return nil
}

// Stop implements core.Stopper. Graceful shutdown with configured timeout.
func (g *Gateway) Stop(ctx context.Context) error {
	if g.server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, g.config.ShutdownTimeout)
	defer cancel()

	g.logger.Info("gateway shutting down")
	return g.server.Shutdown(shutdownCtx)
}
