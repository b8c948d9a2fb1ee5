package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/flemzord/telega-server/internal/security"
	"golang.org/x/term"
)

// newLogger uses a text handler when w is a terminal and JSON otherwise, so
// logs captured by the editor stay machine-readable. Credentials in
// payloads are redacted before either handler sees them.
func newLogger(w io.Writer, level slog.Level, redactor *security.Redactor) *slog.Logger {
	var handler slog.Handler
	options := &slog.HandlerOptions{Level: level}
	if isTerminal(w) {
		handler = slog.NewTextHandler(w, options)
	} else {
		handler = slog.NewJSONHandler(w, options)
	}
	return slog.New(security.NewRedactingHandler(handler, redactor))
}

func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
