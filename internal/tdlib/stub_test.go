//go:build !tdjson

package tdlib

import (
	"errors"
	"testing"
)

func TestOpen_Unavailable(t *testing.T) {
	t.Parallel()

	client, err := Open(Options{Verbosity: 1})
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("Open() error = %v, want ErrUnavailable", err)
	}
	if client != nil {
		t.Error("Open() returned a client without libtdjson")
	}
}
