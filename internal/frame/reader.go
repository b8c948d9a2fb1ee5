package frame

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/flemzord/telega-server/pkg/plist"
)

const readBufferSize = 64 << 10

// Reader reads frames from a stream. It is not safe for concurrent use.
type Reader struct {
	br         *bufio.Reader
	maxPayload int
}

// NewReader returns a Reader over r that rejects payloads larger than
// maxPayload bytes. A maxPayload of zero or less means unlimited.
func NewReader(r io.Reader, maxPayload int) *Reader {
	return &Reader{
		br:         bufio.NewReaderSize(r, readBufferSize),
		maxPayload: maxPayload,
	}
}

// Next reads the next frame. The payload replaces the contents of buf and
// its length is buf.Len().
//
// Errors for which Recoverable reports true concern only this frame; the
// caller should log, skip it and call Next again. io.EOF means the stream
// ended cleanly between frames; any other error is terminal.
func (r *Reader) Next(buf *plist.Buffer) (Command, error) {
	buf.Reset()

	line, err := r.header()
	if err != nil {
		return "", err
	}
	cmd, n, err := parseHeader(line)
	if err != nil {
		return "", err
	}

	if r.maxPayload > 0 && n > r.maxPayload {
		if _, err := io.CopyN(io.Discard, r.br, int64(n)+1); err != nil {
			return cmd, unexpected(err)
		}
		return cmd, fmt.Errorf("%w: %d bytes, limit %d", ErrPayloadTooLarge, n, r.maxPayload)
	}

	if err := buf.ReadN(r.br, n); err != nil {
		if errors.Is(err, plist.ErrExhausted) {
			return cmd, err
		}
		return cmd, unexpected(err)
	}

	c, err := r.br.ReadByte()
	if err != nil {
		return cmd, unexpected(err)
	}
	if c != '\n' {
		_ = r.br.UnreadByte()
		return cmd, fmt.Errorf("%w: found %q", ErrMissingNewline, c)
	}
	return cmd, nil
}

// header returns the next header line without its newline. The slice is
// valid until the next read.
func (r *Reader) header() ([]byte, error) {
	line, err := r.br.ReadSlice('\n')
	switch {
	case err == nil:
	case errors.Is(err, bufio.ErrBufferFull):
		if err := r.skipLine(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: line longer than %d bytes", ErrMalformedHeader, MaxHeader)
	case errors.Is(err, io.EOF):
		if len(line) == 0 {
			return nil, io.EOF
		}
		return nil, io.ErrUnexpectedEOF
	default:
		return nil, err
	}

	line = line[:len(line)-1]
	if len(line) > MaxHeader {
		return nil, fmt.Errorf("%w: line longer than %d bytes", ErrMalformedHeader, MaxHeader)
	}
	return line, nil
}

// skipLine discards input up to and including the next newline.
func (r *Reader) skipLine() error {
	for {
		_, err := r.br.ReadSlice('\n')
		if err == nil {
			return nil
		}
		if !errors.Is(err, bufio.ErrBufferFull) {
			return unexpected(err)
		}
	}
}

// unexpected turns io.EOF inside a frame into io.ErrUnexpectedEOF.
func unexpected(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}
