package bridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/flemzord/telega-server/internal/core"
	"github.com/flemzord/telega-server/internal/metrics"
	"github.com/flemzord/telega-server/internal/tdlib"
	"go.opentelemetry.io/otel/trace"
	"gopkg.in/yaml.v3"
)

func init() {
	core.RegisterModule(&Bridge{})
}

// Bridge is the bridge.stdio module. It connects the editor, speaking
// framed plist on the process streams, to a TDLib client. It finishes when
// the editor closes its end of stdin or sends SIGHUP.
type Bridge struct {
	config  Config
	appCtx  *core.AppContext
	logger  *slog.Logger
	metrics *metrics.Registry

	client     tdlib.Client
	ownsClient bool
	server     atomic.Pointer[Server]

	cancel    context.CancelFunc
	commands  chan struct{}
	events    chan struct{}
	hup       chan os.Signal
	closeOnce sync.Once

	done     chan struct{}
	doneOnce sync.Once
	mu       sync.Mutex
	err      error
}

// ModuleInfo implements core.Module.
func (b *Bridge) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "bridge.stdio",
		New: func() core.Module { return &Bridge{} },
	}
}

// Configure implements core.Configurable.
func (b *Bridge) Configure(node *yaml.Node) error {
	if err := node.Decode(&b.config); err != nil {
		return err
	}
	b.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (b *Bridge) Provision(ctx *core.AppContext) error {
	b.appCtx = ctx
	b.logger = ctx.Logger
	b.config.defaults()
	b.done = make(chan struct{})

	if m, ok := core.ServiceAs[*metrics.Registry](ctx, core.ServiceMetrics); ok {
		b.metrics = m
	}
	ctx.RegisterService(core.ServiceBridge, core.Finisher(b))
	return nil
}

// Validate implements core.Validator.
func (b *Bridge) Validate() error {
	return b.config.validate()
}

// Start implements core.Starter. It opens TDLib unless a client was
// registered as a service, then starts the command and event workers.
func (b *Bridge) Start() error {
	if client, ok := core.ServiceAs[tdlib.Client](b.appCtx, core.ServiceTDLib); ok {
		b.client = client
	} else {
		client, err := tdlib.Open(tdlib.Options{
			Verbosity: b.config.Verbosity(),
			LogFile:   b.config.TDLibLogFile,
			OnFatal:   b.reportFatal,
		})
		if err != nil {
			return fmt.Errorf("bridge: opening tdlib: %w", err)
		}
		b.client = client
		b.ownsClient = true
	}

	opts := []Option{WithLogger(b.logger), WithMetrics(b.metrics)}
	if tp, ok := core.ServiceAs[trace.TracerProvider](b.appCtx, core.ServiceTracer); ok {
		opts = append(opts, WithTracerProvider(tp))
	}
	server := NewServer(b.config, b.client, b.appCtx.Stdin, b.appCtx.Stdout, opts...)
	b.server.Store(server)

	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	b.commands = make(chan struct{})
	b.events = make(chan struct{})

	go func() {
		defer close(b.commands)
		b.finish(server.RunCommands(ctx))
	}()
	go func() {
		defer close(b.events)
		if err := server.RunEvents(ctx); err != nil {
			b.finish(err)
		}
	}()

	b.hup = make(chan os.Signal, 1)
	signal.Notify(b.hup, syscall.SIGHUP)
	go b.watchHangup(ctx)

	b.logger.Info("bridge started",
		"tdlib_verbosity", b.config.Verbosity(),
		"max_payload", b.config.MaxPayload)
	return nil
}

// watchHangup closes the input on SIGHUP. A read blocked on a terminal may
// not return on close, so the module is marked finished as well.
func (b *Bridge) watchHangup(ctx context.Context) {
	select {
	case <-b.hup:
		b.logger.Info("SIGHUP received, closing input")
		b.closeInput()
		b.finish(nil)
	case <-ctx.Done():
	}
}

// Stop implements core.Stopper. The event worker exits within one receive
// timeout; the client is closed only after it has.
func (b *Bridge) Stop(ctx context.Context) error {
	if b.cancel == nil {
		return nil
	}
	signal.Stop(b.hup)
	b.cancel()
	b.closeInput()

	var errs []error
	if err := waitFor(ctx, b.events); err != nil {
		errs = append(errs, fmt.Errorf("bridge: event worker: %w", err))
	}
	if b.ownsClient {
		if err := b.client.Close(); err != nil && !errors.Is(err, tdlib.ErrClosed) {
			errs = append(errs, fmt.Errorf("bridge: closing tdlib: %w", err))
		}
	}

	grace, cancel := context.WithTimeout(ctx, b.config.ReceiveTimeout)
	defer cancel()
	if err := waitFor(grace, b.commands); err != nil {
		b.logger.Debug("command reader still blocked on input")
	}

	b.finish(nil)
	b.logger.Info("bridge stopped")
	return errors.Join(errs...)
}

// Done implements core.Finisher.
func (b *Bridge) Done() <-chan struct{} {
	return b.done
}

// Err implements core.Finisher.
func (b *Bridge) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

func (b *Bridge) finish(err error) {
	b.doneOnce.Do(func() {
		b.mu.Lock()
		b.err = err
		b.mu.Unlock()
		if err != nil {
			b.logger.Error("bridge failed", "error", err)
		} else {
			b.logger.Info("bridge finished")
		}
		close(b.done)
	})
}

func (b *Bridge) closeInput() {
	b.closeOnce.Do(func() {
		if c, ok := b.appCtx.Stdin.(io.Closer); ok {
			_ = c.Close()
		}
	})
}

// reportFatal is TDLib's fatal callback. It may run before the server
// exists while the client is being opened.
func (b *Bridge) reportFatal(msg string) {
	if s := b.server.Load(); s != nil {
		s.ReportFatal(msg)
		return
	}
	b.logger.Error("tdlib fatal error", "message", msg)
}

func waitFor(ctx context.Context, ch <-chan struct{}) error {
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
