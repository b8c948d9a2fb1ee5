package frame

import (
	"bufio"
	"io"
	"sync"
)

// Writer writes frames to a stream. It is safe for concurrent use; each
// frame is written and flushed whole, so frames from different goroutines
// never interleave.
type Writer struct {
	mu     sync.Mutex
	bw     *bufio.Writer
	header []byte
}

// NewWriter returns a Writer over w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{bw: bufio.NewWriterSize(w, readBufferSize)}
}

// WriteFrame writes one frame carrying payload and flushes it.
func (w *Writer) WriteFrame(cmd Command, payload []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.header = appendHeader(w.header[:0], cmd, len(payload))
	if _, err := w.bw.Write(w.header); err != nil {
		return err
	}
	if _, err := w.bw.Write(payload); err != nil {
		return err
	}
	if err := w.bw.WriteByte('\n'); err != nil {
		return err
	}
	return w.bw.Flush()
}
