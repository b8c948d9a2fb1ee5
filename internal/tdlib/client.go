// Package tdlib is the boundary to TDLib's JSON interface. The real client
// links libtdjson through cgo and is only compiled with the tdjson build
// tag; without it Open reports ErrUnavailable and tests use tdlibtest.
package tdlib

import (
	"errors"
	"sync/atomic"
	"time"
)

var (
	// ErrUnavailable is returned by Open when the binary was built without
	// the tdjson tag.
	ErrUnavailable = errors.New("tdlib: not available, rebuild with -tags tdjson")

	// ErrClosed is returned by calls made after Close.
	ErrClosed = errors.New("tdlib: client closed")

	// ErrNotTerminated is returned by Send for a request without a
	// trailing NUL byte.
	ErrNotTerminated = errors.New("tdlib: request is not NUL-terminated")
)

// Client is a TDLib JSON client instance. Send and Receive may be called
// from different goroutines; Receive must only be called from one.
type Client interface {
	// Send queues a request. The request is JSON text followed by a NUL
	// byte, as produced by plist.Buffer.Terminated.
	Send(request []byte) error

	// Receive waits up to timeout for the next update or response. It
	// returns nil and no error on timeout. The returned slice is only
	// valid until the next call to Receive.
	Receive(timeout time.Duration) ([]byte, error)

	// Execute runs a synchronous request and returns its JSON result.
	Execute(request []byte) ([]byte, error)

	// Close destroys the instance. It blocks until a Receive in progress
	// has returned.
	Close() error
}

// Options configures TDLib logging for a new client.
type Options struct {
	// Verbosity is TDLib's log verbosity level, 0 (fatal only) to 1023.
	Verbosity int

	// LogFile redirects TDLib's log to a file. Empty keeps stderr.
	LogFile string

	// LogMaxSize is the size at which TDLib rotates LogFile.
	LogMaxSize int64

	// OnFatal is called with the text of every fatal TDLib log message,
	// right before TDLib aborts the process.
	OnFatal func(message string)
}

// DefaultLogMaxSize is the rotation size TDLib itself defaults to.
const DefaultLogMaxSize = 10 << 20

func (o *Options) defaults() {
	if o.LogMaxSize <= 0 {
		o.LogMaxSize = DefaultLogMaxSize
	}
}

var fatalHandler atomic.Pointer[func(string)]

// setFatalHandler installs fn as the process-wide receiver of fatal TDLib
// messages. TDLib only supports one log callback per process.
func setFatalHandler(fn func(string)) {
	if fn == nil {
		fatalHandler.Store(nil)
		return
	}
	fatalHandler.Store(&fn)
}

func dispatchFatal(message string) {
	if fn := fatalHandler.Load(); fn != nil {
		(*fn)(message)
	}
}
