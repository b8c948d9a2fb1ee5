package gateway

import (
	"io"
	"log/slog"
	"strings"

	"github.com/flemzord/telega-server/internal/core"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testAppContext() *core.AppContext {
	return core.NewAppContext(discardLogger(), strings.NewReader(""), io.Discard)
}

// fakeBridge is a core.Finisher whose completion the test controls.
type fakeBridge struct {
	done chan struct{}
	err  error
}

func newFakeBridge() *fakeBridge {
	return &fakeBridge{done: make(chan struct{})}
}

func (b *fakeBridge) Done() <-chan struct{} { return b.done }
func (b *fakeBridge) Err() error            { return b.err }

func (b *fakeBridge) finish(err error) {
	b.err = err
	close(b.done)
}
