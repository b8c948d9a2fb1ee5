package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/flemzord/telega-server/internal/frame"
	"github.com/flemzord/telega-server/internal/metrics"
	"github.com/flemzord/telega-server/internal/tdlib"
	"github.com/flemzord/telega-server/pkg/plist"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const tracerName = "github.com/flemzord/telega-server/internal/bridge"

// Server moves messages between the editor's framed streams and a TDLib
// client. RunCommands and RunEvents are meant to run on two goroutines,
// each converting through its own plist.Pair.
type Server struct {
	cfg     Config
	client  tdlib.Client
	in      *frame.Reader
	out     *frame.Writer
	logger  *slog.Logger
	metrics *metrics.Registry
	tracer  trace.Tracer
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger. The default is slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithMetrics records every conversion and framing error in m.
func WithMetrics(m *metrics.Registry) Option {
	return func(s *Server) { s.metrics = m }
}

// WithTracerProvider opens one span per bridged message.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Server) { s.tracer = tp.Tracer(tracerName) }
}

// NewServer returns a Server reading commands from in and writing events to
// out. cfg must already have its defaults applied.
func NewServer(cfg Config, client tdlib.Client, in io.Reader, out io.Writer, opts ...Option) *Server {
	s := &Server{
		cfg:    cfg,
		client: client,
		in:     frame.NewReader(in, cfg.MaxPayload),
		out:    frame.NewWriter(out),
		logger: slog.Default(),
		tracer: noop.NewTracerProvider().Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunCommands reads send frames until the input ends, converts each plist
// payload to JSON and hands it to TDLib. A bad frame or payload is logged
// and skipped. It returns nil when the input ends cleanly or the client is
// closed, and an error for any other read failure.
func (s *Server) RunCommands(ctx context.Context) error {
	srcLimit, dstLimit := s.cfg.commandLimits()
	pair := plist.NewPair(srcLimit, dstLimit)
	defer pair.Release()

	for ctx.Err() == nil {
		cmd, err := s.in.Next(&pair.Src)
		if err != nil {
			if frame.Recoverable(err) {
				s.metrics.RecordFrameError(frameErrorReason(err))
				s.logger.Error("skipping frame", "error", err)
				continue
			}
			if endOfInput(err) {
				if errors.Is(err, io.ErrUnexpectedEOF) {
					s.logger.Warn("input ended inside a frame", "error", err)
				}
				s.logger.Debug("command input closed")
				return nil
			}
			return fmt.Errorf("bridge: reading command: %w", err)
		}

		if cmd != frame.Send {
			s.metrics.RecordFrameError("unknown_command")
			s.logger.Error("unknown command", "command", string(cmd), "length", pair.Src.Len())
			continue
		}

		if err := s.command(ctx, pair); err != nil {
			if errors.Is(err, tdlib.ErrClosed) {
				s.logger.Debug("tdlib client closed, dropping commands")
				return nil
			}
			s.logger.Error("command dropped", "length", pair.Src.Len(), logError(err))
		}
	}
	return nil
}

// command converts the payload in pair.Src and sends it to TDLib.
func (s *Server) command(ctx context.Context, pair *plist.Pair) error {
	_, span := s.tracer.Start(ctx, "bridge.command",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(attribute.Int("telega.payload.bytes", pair.Src.Len())))
	defer span.End()

	pair.Dst.Reset()
	start := time.Now()
	err := plist.ToJSON(&pair.Dst, pair.Src.Bytes())
	s.metrics.RecordConversion(metrics.Command, pair.Src.Len(), pair.Dst.Len(), time.Since(start), err)
	if err != nil {
		return spanError(span, err)
	}
	s.logger.Debug("command", "length", pair.Src.Len(), "json", pair.Dst.String())

	request, err := pair.Dst.Terminated()
	if err != nil {
		return spanError(span, err)
	}
	if err := s.client.Send(request); err != nil {
		return spanError(span, err)
	}
	span.SetAttributes(attribute.Int("telega.request.bytes", pair.Dst.Len()))
	return nil
}

// RunEvents polls TDLib until ctx is done or the client is closed, and
// writes every update as an event frame. An update that fails to convert is
// logged and dropped. It returns an error only when the output fails.
func (s *Server) RunEvents(ctx context.Context) error {
	srcLimit, dstLimit := s.cfg.eventLimits()
	pair := plist.NewPair(srcLimit, dstLimit)
	defer pair.Release()

	for ctx.Err() == nil {
		update, err := s.client.Receive(s.cfg.ReceiveTimeout)
		if err != nil {
			if errors.Is(err, tdlib.ErrClosed) {
				s.logger.Debug("tdlib client closed, stopping events")
				return nil
			}
			return fmt.Errorf("bridge: receiving update: %w", err)
		}
		if update == nil {
			continue
		}

		pair.Reset()
		// The client may reuse update's storage on the next Receive.
		if _, err := pair.Src.Write(update); err != nil {
			s.metrics.RecordConversion(metrics.Event, len(update), 0, 0, err)
			s.logger.Error("update dropped", "length", len(update), logError(err))
			continue
		}

		if err := s.event(ctx, pair); err != nil {
			var convErr *conversionError
			if errors.As(err, &convErr) {
				s.logger.Error("update dropped", "length", pair.Src.Len(), logError(convErr.err))
				continue
			}
			return err
		}
	}
	return nil
}

// conversionError marks an event failure that only drops the update.
type conversionError struct{ err error }

func (e *conversionError) Error() string { return e.err.Error() }
func (e *conversionError) Unwrap() error { return e.err }

func (s *Server) event(ctx context.Context, pair *plist.Pair) error {
	_, span := s.tracer.Start(ctx, "bridge.event",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(attribute.Int("telega.update.bytes", pair.Src.Len())))
	defer span.End()

	start := time.Now()
	err := plist.FromJSON(&pair.Dst, pair.Src.Bytes())
	s.metrics.RecordConversion(metrics.Event, pair.Src.Len(), pair.Dst.Len(), time.Since(start), err)
	if err != nil {
		return &conversionError{err: spanError(span, err)}
	}
	s.logger.Debug("event", "length", pair.Dst.Len())

	if err := s.out.WriteFrame(frame.Event, pair.Dst.Bytes()); err != nil {
		return spanError(span, fmt.Errorf("bridge: writing event: %w", err))
	}
	span.SetAttributes(attribute.Int("telega.payload.bytes", pair.Dst.Len()))
	return nil
}

// ReportFatal writes msg to the editor as an error frame holding a plist
// string. It is safe to call from any goroutine, including TDLib's own
// threads.
func (s *Server) ReportFatal(msg string) {
	s.metrics.RecordFatal()
	s.logger.Error("tdlib fatal error", "message", msg)

	quoted, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error("encoding fatal error", "error", err)
		return
	}
	var buf plist.Buffer
	if err := plist.FromJSON(&buf, quoted); err != nil {
		s.logger.Error("converting fatal error", logError(err))
		return
	}
	if err := s.out.WriteFrame(frame.Error, buf.Bytes()); err != nil {
		s.logger.Error("writing fatal error", "error", err)
	}
}

// endOfInput reports whether err means the command stream is gone for good
// rather than broken.
func endOfInput(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, os.ErrClosed)
}

func frameErrorReason(err error) string {
	switch {
	case errors.Is(err, frame.ErrPayloadTooLarge):
		return "too_large"
	case errors.Is(err, frame.ErrMissingNewline):
		return "missing_newline"
	default:
		return "malformed_header"
	}
}

// logError expands a conversion error into structured attributes.
func logError(err error) slog.Attr {
	var syntaxErr *plist.SyntaxError
	if errors.As(err, &syntaxErr) {
		return slog.Group("error",
			"syntax", string(syntaxErr.Syntax),
			"offset", syntaxErr.Offset,
			"reason", syntaxErr.Reason,
			"found", syntaxErr.Found,
			"kind", metrics.Classify(err))
	}
	return slog.Any("error", err)
}

func spanError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, metrics.Classify(err))
	return err
}
