package core

import "sync"

// Well-known service names.
const (
	// ServiceMetrics is the *metrics.Registry shared by every module.
	ServiceMetrics = "metrics"

	// ServiceTracer is the trace.TracerProvider installed by telemetry.
	ServiceTracer = "telemetry.tracer"

	// ServiceBridge is the running bridge, as a Finisher, so other modules
	// can report whether the editor is still connected.
	ServiceBridge = "bridge"

	// ServiceConfig is the loaded *config.Config.
	ServiceConfig = "config"

	// ServiceTDLib lets tests and embedders hand the bridge a ready
	// tdlib.Client instead of opening libtdjson.
	ServiceTDLib = "tdlib.client"

	// ServiceRedactor is the *security.Redactor behind the root logger.
	ServiceRedactor = "security.redactor"
)

type services struct {
	mu    sync.RWMutex
	items map[string]any
}

func newServices() *services {
	return &services{items: make(map[string]any)}
}

// RegisterService publishes svc under name for modules provisioned or
// started later. A second registration under the same name replaces the
// first.
func (ctx *AppContext) RegisterService(name string, svc any) {
	if ctx.services == nil {
		ctx.services = newServices()
	}
	ctx.services.mu.Lock()
	defer ctx.services.mu.Unlock()
	ctx.services.items[name] = svc
}

// Service returns the service registered under name.
func (ctx *AppContext) Service(name string) (any, bool) {
	if ctx.services == nil {
		return nil, false
	}
	ctx.services.mu.RLock()
	defer ctx.services.mu.RUnlock()
	svc, ok := ctx.services.items[name]
	return svc, ok
}

// ServiceAs looks up name and asserts it to T. It reports false when the
// service is missing or has another type.
func ServiceAs[T any](ctx *AppContext, name string) (T, bool) {
	var zero T
	svc, ok := ctx.Service(name)
	if !ok {
		return zero, false
	}
	typed, ok := svc.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}
