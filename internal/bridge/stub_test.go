//go:build !tdjson

package bridge

import (
	"errors"
	"strings"
	"testing"

	"github.com/flemzord/telega-server/internal/core"
	"github.com/flemzord/telega-server/internal/tdlib"
)

func TestBridge_StartWithoutTDLib(t *testing.T) {
	t.Parallel()

	appCtx := core.NewAppContext(discardLogger(), strings.NewReader(""), &syncBuffer{})
	b := &Bridge{}
	if err := b.Provision(appCtx.ForModule("bridge.stdio")); err != nil {
		t.Fatalf("Provision: %v", err)
	}
	if err := b.Start(); !errors.Is(err, tdlib.ErrUnavailable) {
		t.Errorf("Start() = %v, want ErrUnavailable", err)
	}
}
