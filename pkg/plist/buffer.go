package plist

import (
	"errors"
	"io"
	"math"
	"unicode/utf8"
)

var (
	// ErrExhausted is returned when a Buffer cannot grow without exceeding
	// its limit. It is the only way a Buffer runs out of resources.
	ErrExhausted = errors.New("plist: buffer limit exceeded")

	// ErrReleased is returned by every growth attempt after Release.
	ErrReleased = errors.New("plist: buffer used after release")
)

// minGrow is the smallest allocation a growing Buffer makes.
const minGrow = 512

// Buffer is a growable byte region owned by exactly one goroutine. It backs
// both the text being scanned and the text being produced by a conversion.
//
// The zero value is an empty, unlimited Buffer ready to use. Len is the
// logical end of the written bytes and Cap the allocated capacity; bytes
// past Len are unspecified. Reset clears the contents but keeps the
// allocation, so a Buffer reused across messages stops allocating once it
// has grown to the largest message seen.
//
// Growth failures are sticky, in the manner of bufio.Writer: once a write
// fails, every later write returns the same error until Reset or Truncate.
type Buffer struct {
	data     []byte
	limit    int
	err      error
	released bool
}

// NewBuffer returns an empty Buffer whose capacity may never exceed limit
// bytes. A limit of zero or less means unlimited.
func NewBuffer(limit int) *Buffer {
	if limit < 0 {
		limit = 0
	}
	return &Buffer{limit: limit}
}

// Ensure guarantees at least n free bytes past the logical end. When the
// current capacity is insufficient the storage is reallocated to the larger
// of twice the current capacity and the size the request needs, and the
// existing bytes are copied over.
func (b *Buffer) Ensure(n int) error {
	if b.released {
		return ErrReleased
	}
	if n <= cap(b.data)-len(b.data) {
		return nil
	}
	if n > math.MaxInt-len(b.data) {
		return ErrExhausted
	}
	need := len(b.data) + n
	if b.limit > 0 && need > b.limit {
		return ErrExhausted
	}

	newCap := 2 * cap(b.data)
	if newCap < need {
		newCap = need
	}
	if newCap < minGrow {
		newCap = minGrow
	}
	if b.limit > 0 && newCap > b.limit {
		newCap = b.limit
	}

	grown := make([]byte, len(b.data), newCap)
	copy(grown, b.data)
	b.data = grown
	return nil
}

// grow is Ensure with the failure recorded as the sticky error.
func (b *Buffer) grow(n int) bool {
	if b.err != nil {
		return false
	}
	if err := b.Ensure(n); err != nil {
		b.err = err
		return false
	}
	return true
}

func (b *Buffer) put(c byte) {
	if b.grow(1) {
		b.data = append(b.data, c)
	}
}

func (b *Buffer) puts(s string) {
	if b.grow(len(s)) {
		b.data = append(b.data, s...)
	}
}

func (b *Buffer) putBytes(p []byte) {
	if b.grow(len(p)) {
		b.data = append(b.data, p...)
	}
}

func (b *Buffer) putRune(r rune) {
	if b.grow(utf8.UTFMax) {
		b.data = utf8.AppendRune(b.data, r)
	}
}

// Write appends p to the buffer. It implements io.Writer.
func (b *Buffer) Write(p []byte) (int, error) {
	b.putBytes(p)
	if b.err != nil {
		return 0, b.err
	}
	return len(p), nil
}

// WriteString appends s to the buffer.
func (b *Buffer) WriteString(s string) (int, error) {
	b.puts(s)
	if b.err != nil {
		return 0, b.err
	}
	return len(s), nil
}

// WriteByte appends c to the buffer. It implements io.ByteWriter.
func (b *Buffer) WriteByte(c byte) error {
	b.put(c)
	return b.err
}

// WriteRune appends the UTF-8 encoding of r to the buffer.
func (b *Buffer) WriteRune(r rune) (int, error) {
	before := len(b.data)
	b.putRune(r)
	if b.err != nil {
		return 0, b.err
	}
	return len(b.data) - before, nil
}

// AppendTerminator stores a NUL byte just past the logical end without
// advancing it. Len keeps reporting the byte-exact content length while
// Terminated exposes the content to consumers that expect a C string.
// Any later write overwrites the terminator.
func (b *Buffer) AppendTerminator() error {
	if !b.grow(1) {
		return b.err
	}
	b.data[:len(b.data)+1][len(b.data)] = 0
	return nil
}

// Terminated returns the contents followed by a NUL byte. The terminator is
// not counted by Len. The slice aliases the buffer and is valid until the
// next write, Reset, or Release.
func (b *Buffer) Terminated() ([]byte, error) {
	if err := b.AppendTerminator(); err != nil {
		return nil, err
	}
	return b.data[:len(b.data)+1], nil
}

// ReadFrom appends everything r produces until EOF. It implements
// io.ReaderFrom.
func (b *Buffer) ReadFrom(r io.Reader) (int64, error) {
	var total int64
	for {
		want := minGrow
		if b.limit > 0 && !b.released {
			want = min(want, b.limit-len(b.data))
		}
		if want == 0 {
			// Full at the limit: fine only if the reader is exhausted too.
			var probe [1]byte
			n, err := r.Read(probe[:])
			switch {
			case n > 0:
				b.err = ErrExhausted
				return total, b.err
			case err == io.EOF:
				return total, nil
			case err != nil:
				return total, err
			}
			continue
		}
		if !b.grow(want) {
			return total, b.err
		}
		free := b.data[len(b.data):cap(b.data)]
		n, err := r.Read(free)
		if n < 0 || n > len(free) {
			return total, errors.New("plist: reader returned invalid count")
		}
		b.data = b.data[:len(b.data)+n]
		total += int64(n)
		if err == io.EOF {
			return total, nil
		}
		if err != nil {
			return total, err
		}
	}
}

// ReadN appends exactly n bytes read from r. If fewer bytes are available
// the logical end is left unchanged and io.ErrUnexpectedEOF (or io.EOF when
// nothing at all could be read) is returned.
func (b *Buffer) ReadN(r io.Reader, n int) error {
	if n <= 0 {
		return nil
	}
	if !b.grow(n) {
		return b.err
	}
	end := len(b.data)
	if _, err := io.ReadFull(r, b.data[end:end+n]); err != nil {
		return err
	}
	b.data = b.data[:end+n]
	return nil
}

// Bytes returns the written contents, excluding any terminator. The slice
// aliases the buffer and is valid until the next write, Reset, or Release.
func (b *Buffer) Bytes() []byte { return b.data }

// String returns a copy of the written contents.
func (b *Buffer) String() string { return string(b.data) }

// Len returns the logical end: the number of bytes written.
func (b *Buffer) Len() int { return len(b.data) }

// Cap returns the allocated capacity.
func (b *Buffer) Cap() int { return cap(b.data) }

// Err returns the sticky growth error, if any.
func (b *Buffer) Err() error { return b.err }

// Truncate discards everything past the first n bytes and clears a sticky
// growth error. It panics if n is out of range.
func (b *Buffer) Truncate(n int) {
	if n < 0 || n > len(b.data) {
		panic("plist: truncation out of range")
	}
	b.data = b.data[:n]
	if !b.released {
		b.err = nil
	}
}

// Reset sets the logical end to zero. Capacity and storage are retained for
// reuse.
func (b *Buffer) Reset() {
	b.Truncate(0)
}

// Release drops the backing storage. The Buffer must not be used afterwards;
// any write returns ErrReleased.
func (b *Buffer) Release() {
	b.data = nil
	b.released = true
	b.err = ErrReleased
}

// Pair is the source and destination Buffer a single goroutine uses for
// its conversions. A Pair must never be shared between goroutines.
type Pair struct {
	Src Buffer
	Dst Buffer
}

// NewPair returns a Pair whose source Buffer is limited to srcLimit bytes
// and whose destination Buffer is limited to dstLimit bytes.
func NewPair(srcLimit, dstLimit int) *Pair {
	return &Pair{
		Src: *NewBuffer(srcLimit),
		Dst: *NewBuffer(dstLimit),
	}
}

// Reset clears both buffers for the next message.
func (p *Pair) Reset() {
	p.Src.Reset()
	p.Dst.Reset()
}

// Release drops the storage of both buffers.
func (p *Pair) Release() {
	p.Src.Release()
	p.Dst.Release()
}
