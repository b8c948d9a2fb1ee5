// Package frame implements the length-prefixed framing used on the bridge's
// standard streams:
//
//	<command> <length>\n<payload>\n
//
// length is the payload size in bytes, not counting the trailing newline.
package frame

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
)

// Command names the kind of a frame.
type Command string

const (
	// Send carries a plist request from the editor for TDLib.
	Send Command = "send"

	// Event carries a plist update from TDLib for the editor.
	Event Command = "event"

	// Error carries a plist string describing a fatal TDLib error.
	Error Command = "error"
)

// MaxHeader is the longest header line accepted, excluding its newline.
const MaxHeader = 64

var (
	// ErrMalformedHeader is returned for a header line that does not parse.
	// The line has been consumed and the next call to Next reads the
	// following line.
	ErrMalformedHeader = errors.New("frame: malformed header")

	// ErrPayloadTooLarge is returned for a payload above the reader's limit.
	// The payload has been discarded and the stream stays aligned.
	ErrPayloadTooLarge = errors.New("frame: payload too large")

	// ErrMissingNewline is returned when the byte after a payload is not a
	// newline. That byte is left unread.
	ErrMissingNewline = errors.New("frame: payload not followed by newline")
)

// Recoverable reports whether err affects only the current frame, so the
// caller may skip it and keep reading.
func Recoverable(err error) bool {
	return errors.Is(err, ErrMalformedHeader) ||
		errors.Is(err, ErrPayloadTooLarge) ||
		errors.Is(err, ErrMissingNewline)
}

// parseHeader splits a header line into its command and payload length.
func parseHeader(line []byte) (Command, int, error) {
	name, size, ok := bytes.Cut(line, []byte{' '})
	if !ok || len(name) == 0 || len(size) == 0 {
		return "", 0, fmt.Errorf("%w: %q", ErrMalformedHeader, line)
	}
	for _, c := range name {
		if c < 'a' || c > 'z' {
			return "", 0, fmt.Errorf("%w: bad command %q", ErrMalformedHeader, name)
		}
	}
	for _, c := range size {
		if c < '0' || c > '9' {
			return "", 0, fmt.Errorf("%w: bad length %q", ErrMalformedHeader, size)
		}
	}
	n, err := strconv.Atoi(string(size))
	if err != nil {
		return "", 0, fmt.Errorf("%w: bad length %q", ErrMalformedHeader, size)
	}
	return Command(name), n, nil
}

// appendHeader appends "<cmd> <n>\n" to dst.
func appendHeader(dst []byte, cmd Command, n int) []byte {
	dst = append(dst, cmd...)
	dst = append(dst, ' ')
	dst = strconv.AppendInt(dst, int64(n), 10)
	return append(dst, '\n')
}
