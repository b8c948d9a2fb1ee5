// Package tdlibtest provides an in-memory tdlib.Client for tests.
package tdlibtest

import (
	"bytes"
	"sync"
	"time"

	"github.com/flemzord/telega-server/internal/tdlib"
)

// Fake is a tdlib.Client that records sent requests and replays pushed
// updates. The zero value is not usable; call New.
type Fake struct {
	// ExecuteFunc answers Execute. When nil, Execute returns {"@type":"ok"}.
	ExecuteFunc func(request []byte) []byte

	updates chan []byte
	done    chan struct{}

	mu      sync.Mutex
	sent    []string
	notify  chan struct{}
	closed  bool
	current []byte
}

// Compile-time interface check.
var _ tdlib.Client = (*Fake)(nil)

// New returns a Fake with room for buffered updates.
func New() *Fake {
	return &Fake{
		updates: make(chan []byte, 64),
		done:    make(chan struct{}),
		notify:  make(chan struct{}),
	}
}

// Push queues an update for Receive.
func (f *Fake) Push(update string) {
	f.updates <- []byte(update)
}

// Send implements tdlib.Client. The request is recorded without its NUL.
func (f *Fake) Send(request []byte) error {
	if len(request) == 0 || request[len(request)-1] != 0 {
		return tdlib.ErrNotTerminated
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return tdlib.ErrClosed
	}
	f.sent = append(f.sent, string(request[:len(request)-1]))
	close(f.notify)
	f.notify = make(chan struct{})
	return nil
}

// Receive implements tdlib.Client.
func (f *Fake) Receive(timeout time.Duration) ([]byte, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case u := <-f.updates:
		// Reuse one slice, as libtdjson does, so callers that hold on to
		// a result past the next Receive see it change.
		f.current = append(f.current[:0], u...)
		return f.current, nil
	case <-timer.C:
		return nil, nil
	case <-f.done:
		return nil, tdlib.ErrClosed
	}
}

// Execute implements tdlib.Client.
func (f *Fake) Execute(request []byte) ([]byte, error) {
	if f.ExecuteFunc != nil {
		return f.ExecuteFunc(bytes.TrimSuffix(request, []byte{0})), nil
	}
	return []byte(`{"@type":"ok"}`), nil
}

// Close implements tdlib.Client.
func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return tdlib.ErrClosed
	}
	f.closed = true
	close(f.done)
	return nil
}

// Closed reports whether Close was called.
func (f *Fake) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Sent returns the requests sent so far.
func (f *Fake) Sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

// WaitSent waits until at least n requests were sent or timeout passes,
// and returns the requests sent so far.
func (f *Fake) WaitSent(n int, timeout time.Duration) []string {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		f.mu.Lock()
		if len(f.sent) >= n {
			sent := append([]string(nil), f.sent...)
			f.mu.Unlock()
			return sent
		}
		notify := f.notify
		f.mu.Unlock()

		select {
		case <-notify:
		case <-deadline.C:
			return f.Sent()
		}
	}
}
