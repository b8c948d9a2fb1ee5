// Package telemetry provides the telemetry.otlp module, which installs the
// tracer provider the bridge opens its per-message spans on.
package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/flemzord/telega-server/internal/core"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"gopkg.in/yaml.v3"
)

func init() {
	core.RegisterModule(&Telemetry{})
}

// Config holds telemetry.otlp configuration.
type Config struct {
	// Endpoint is the OTLP/HTTP collector URL, for example
	// http://localhost:4318. Empty disables export.
	Endpoint        string        `yaml:"endpoint"`
	ServiceName     string        `yaml:"service_name"`
	SampleRatio     float64       `yaml:"sample_ratio"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

func (c *Config) defaults() {
	if c.ServiceName == "" {
		c.ServiceName = "telega-server"
	}
	if c.SampleRatio <= 0 {
		c.SampleRatio = 1
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 5 * time.Second
	}
}

// Telemetry is the telemetry.otlp module.
type Telemetry struct {
	config   Config
	logger   *slog.Logger
	provider trace.TracerProvider
	sdk      *sdktrace.TracerProvider
}

// ModuleInfo implements core.Module.
func (m *Telemetry) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "telemetry.otlp",
		New: func() core.Module { return &Telemetry{} },
	}
}

// Configure implements core.Configurable.
func (m *Telemetry) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return err
	}
	m.config.defaults()
	return nil
}

// Provision implements core.Provisioner. Without an endpoint the registered
// provider is a no-op one, so spans cost nothing.
func (m *Telemetry) Provision(ctx *core.AppContext) error {
	m.logger = ctx.Logger
	m.config.defaults()

	if m.config.Endpoint == "" {
		m.provider = noop.NewTracerProvider()
		ctx.RegisterService(core.ServiceTracer, m.provider)
		return nil
	}

	exporter, err := otlptracehttp.New(context.Background(),
		otlptracehttp.WithEndpointURL(m.config.Endpoint))
	if err != nil {
		return fmt.Errorf("telemetry: creating exporter: %w", err)
	}
	m.sdk = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", m.config.ServiceName),
		)),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(m.config.SampleRatio))),
	)
	m.provider = m.sdk
	ctx.RegisterService(core.ServiceTracer, m.provider)
	return nil
}

// Validate implements core.Validator.
func (m *Telemetry) Validate() error {
	if m.config.SampleRatio > 1 {
		return fmt.Errorf("telemetry: sample_ratio %g is above 1", m.config.SampleRatio)
	}
	if m.config.Endpoint == "" {
		return nil
	}
	u, err := url.Parse(m.config.Endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("telemetry: invalid endpoint %q", m.config.Endpoint)
	}
	return nil
}

// Start implements core.Starter.
func (m *Telemetry) Start() error {
	if m.sdk != nil {
		m.logger.Info("exporting traces", "endpoint", m.config.Endpoint, "service", m.config.ServiceName)
	}
	return nil
}

// Stop implements core.Stopper. Buffered spans are flushed before the
// exporter shuts down.
func (m *Telemetry) Stop(ctx context.Context) error {
	if m.sdk == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, m.config.ShutdownTimeout)
	defer cancel()
	if err := m.sdk.Shutdown(ctx); err != nil {
		return fmt.Errorf("telemetry: shutting down tracer provider: %w", err)
	}
	return nil
}

// TracerProvider returns the provider registered during Provision.
func (m *Telemetry) TracerProvider() trace.TracerProvider {
	return m.provider
}
