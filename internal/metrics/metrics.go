// Package metrics counts bridged messages. Counters are exported to
// Prometheus and mirrored in atomics so the stats job can log a snapshot
// without scraping.
package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/flemzord/telega-server/pkg/plist"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Direction says which way a message travelled through the bridge.
type Direction string

const (
	// Command is a plist frame from the editor converted to a JSON request.
	Command Direction = "command"

	// Event is a JSON update from TDLib converted to a plist frame.
	Event Direction = "event"
)

// Outcome labels, derived from the conversion error.
const (
	OutcomeOK        = "ok"
	OutcomeSyntax    = "syntax"
	OutcomeEncoding  = "encoding"
	OutcomeExhausted = "exhausted"
	OutcomeError     = "error"
)

// Registry holds the bridge metrics. All methods are safe for concurrent
// use and do nothing on a nil *Registry.
type Registry struct {
	reg *prometheus.Registry

	messages    *prometheus.CounterVec
	bytes       *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	frameErrors *prometheus.CounterVec
	fatal       prometheus.Counter

	commands    atomic.Int64
	events      atomic.Int64
	failures    atomic.Int64
	bytesIn     atomic.Int64
	bytesOut    atomic.Int64
	frameErrs   atomic.Int64
	fatalErrors atomic.Int64
	startedAt   time.Time
}

// New creates a Registry with its own Prometheus registry, including the Go
// runtime and process collectors.
func New() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "telega",
			Name:      "messages_total",
			Help:      "Messages converted by the bridge, by direction and outcome.",
		}, []string{"direction", "outcome"}),
		bytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "telega",
			Name:      "bytes_total",
			Help:      "Bytes read and written by conversions, by direction and side.",
		}, []string{"direction", "side"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "telega",
			Name:      "conversion_duration_seconds",
			Help:      "Time spent converting one message.",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
		}, []string{"direction"}),
		frameErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "telega",
			Name:      "frame_errors_total",
			Help:      "Frames from the editor rejected before conversion.",
		}, []string{"reason"}),
		fatal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "telega",
			Name:      "tdlib_fatal_errors_total",
			Help:      "Fatal TDLib log messages forwarded as error frames.",
		}),
		startedAt: time.Now(),
	}
	r.reg.MustRegister(
		r.messages, r.bytes, r.duration, r.frameErrors, r.fatal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// RecordConversion records one conversion of in source bytes into out
// destination bytes. err is the conversion error, nil on success.
func (r *Registry) RecordConversion(dir Direction, in, out int, took time.Duration, err error) {
	if r == nil {
		return
	}
	outcome := Classify(err)
	r.messages.WithLabelValues(string(dir), outcome).Inc()
	r.bytes.WithLabelValues(string(dir), "in").Add(float64(in))
	r.duration.WithLabelValues(string(dir)).Observe(took.Seconds())
	r.bytesIn.Add(int64(in))

	if err != nil {
		r.failures.Add(1)
		return
	}
	r.bytes.WithLabelValues(string(dir), "out").Add(float64(out))
	r.bytesOut.Add(int64(out))
	switch dir {
	case Command:
		r.commands.Add(1)
	case Event:
		r.events.Add(1)
	}
}

// RecordFrameError records a frame rejected by the reader.
func (r *Registry) RecordFrameError(reason string) {
	if r == nil {
		return
	}
	r.frameErrors.WithLabelValues(reason).Inc()
	r.frameErrs.Add(1)
}

// RecordFatal records a fatal TDLib message.
func (r *Registry) RecordFatal() {
	if r == nil {
		return
	}
	r.fatal.Inc()
	r.fatalErrors.Add(1)
}

// Handler serves the registry in the Prometheus text format.
func (r *Registry) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// Snapshot returns a point-in-time view of the counters.
func (r *Registry) Snapshot() Snapshot {
	if r == nil {
		return Snapshot{}
	}
	return Snapshot{
		Commands:    r.commands.Load(),
		Events:      r.events.Load(),
		Failures:    r.failures.Load(),
		BytesIn:     r.bytesIn.Load(),
		BytesOut:    r.bytesOut.Load(),
		FrameErrors: r.frameErrs.Load(),
		Fatal:       r.fatalErrors.Load(),
		Uptime:      time.Since(r.startedAt),
	}
}

// Snapshot is a serializable point-in-time metrics view.
type Snapshot struct {
	Commands    int64         `json:"commands"`
	Events      int64         `json:"events"`
	Failures    int64         `json:"failures"`
	BytesIn     int64         `json:"bytes_in"`
	BytesOut    int64         `json:"bytes_out"`
	FrameErrors int64         `json:"frame_errors"`
	Fatal       int64         `json:"fatal"`
	Uptime      time.Duration `json:"uptime_ns"`
}

// Classify maps a conversion error to an outcome label.
func Classify(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, plist.ErrExhausted):
		return OutcomeExhausted
	case errors.Is(err, plist.ErrEncoding):
		return OutcomeEncoding
	case errors.Is(err, plist.ErrSyntax):
		return OutcomeSyntax
	default:
		return OutcomeError
	}
}
