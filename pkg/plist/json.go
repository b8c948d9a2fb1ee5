package plist

import (
	"unicode/utf16"
	"unicode/utf8"
)

// MaxDepth bounds container nesting in both directions, so hostile input
// fails with an error instead of exhausting the goroutine stack.
const MaxDepth = 10000

// FromJSON converts the single JSON value in src into plist text appended
// to dst.
//
// Objects become keyword property lists, arrays become vectors, true, false
// and null become t, :false and nil. Integers are copied digit for digit and
// floats always carry a decimal point, so 7.0 stays a float on the Lisp
// side. Whitespace, a NUL terminator and anything after that terminator may
// follow the value.
//
// On error dst is rolled back to its length before the call, so a failed
// conversion never leaves partial output behind.
func FromJSON(dst *Buffer, src []byte) error {
	start := dst.Len()
	s := jsonScanner{src: src, dst: dst}
	err := s.document()
	if err == nil {
		err = dst.err
	}
	if err != nil {
		dst.Truncate(start)
		return err
	}
	return nil
}

// jsonScanner walks JSON text once and writes plist text as it goes.
type jsonScanner struct {
	src   []byte
	pos   int
	depth int
	dst   *Buffer
}

func (s *jsonScanner) document() error {
	s.skipSpace()
	if err := s.value(); err != nil {
		return err
	}
	s.skipSpace()
	if s.pos < len(s.src) && s.src[s.pos] != 0 {
		return s.fail("unexpected data after top-level value")
	}
	return nil
}

func (s *jsonScanner) fail(reason string) error {
	return s.failAt(s.pos, reason)
}

func (s *jsonScanner) failAt(offset int, reason string) error {
	return newError(ErrSyntax, SyntaxJSON, s.src, offset, reason)
}

func (s *jsonScanner) peek() int {
	if s.pos >= len(s.src) {
		return -1
	}
	return int(s.src[s.pos])
}

func (s *jsonScanner) skipSpace() {
	for s.pos < len(s.src) {
		switch s.src[s.pos] {
		case ' ', '\t', '\n', '\r':
			s.pos++
		default:
			return
		}
	}
}

func (s *jsonScanner) value() error {
	if s.dst.err != nil {
		return s.dst.err
	}
	switch c := s.peek(); {
	case c == '{':
		return s.object()
	case c == '[':
		return s.array()
	case c == '"':
		s.dst.put('"')
		if err := s.str(plistText{s.dst}); err != nil {
			return err
		}
		s.dst.put('"')
		return nil
	case c == '-' || isDigit(c):
		return s.number()
	case c == 't':
		return s.literal("true", "t")
	case c == 'f':
		return s.literal("false", ":false")
	case c == 'n':
		return s.literal("null", "nil")
	case c < 0:
		return s.fail("unexpected end of input")
	default:
		return s.fail("invalid character looking for beginning of value")
	}
}

func (s *jsonScanner) enter() error {
	s.depth++
	if s.depth > MaxDepth {
		return s.fail("exceeded maximum nesting depth")
	}
	return nil
}

func (s *jsonScanner) object() error {
	if err := s.enter(); err != nil {
		return err
	}
	defer func() { s.depth-- }()

	s.pos++
	s.dst.put('(')
	s.skipSpace()
	if s.peek() == '}' {
		s.pos++
		s.dst.put(')')
		return nil
	}

	for {
		if err := s.member(); err != nil {
			return err
		}
		s.skipSpace()
		switch s.peek() {
		case ',':
			s.pos++
			s.skipSpace()
			s.dst.put(' ')
		case '}':
			s.pos++
			s.dst.put(')')
			return nil
		case -1:
			return s.fail("unterminated object")
		default:
			return s.fail("expected ',' or '}' after object member")
		}
	}
}

// member converts one "key": value pair into ":key value".
func (s *jsonScanner) member() error {
	if s.peek() != '"' {
		if s.peek() < 0 {
			return s.fail("unterminated object")
		}
		return s.fail("expected string for object key")
	}

	keyOffset := s.pos
	s.dst.put(':')
	keyStart := s.dst.Len()
	if err := s.str(rawText{s.dst}); err != nil {
		return err
	}
	if s.dst.err == nil {
		for _, c := range s.dst.data[keyStart:] {
			if !keywordSafe(c) {
				return newError(ErrEncoding, SyntaxJSON, s.src, keyOffset,
					"object key cannot be written as a keyword name")
			}
		}
	}

	s.skipSpace()
	if s.peek() != ':' {
		return s.fail("expected ':' after object key")
	}
	s.pos++
	s.skipSpace()
	s.dst.put(' ')
	return s.value()
}

func (s *jsonScanner) array() error {
	if err := s.enter(); err != nil {
		return err
	}
	defer func() { s.depth-- }()

	s.pos++
	s.dst.put('[')
	s.skipSpace()
	if s.peek() == ']' {
		s.pos++
		s.dst.put(']')
		return nil
	}

	for {
		if err := s.value(); err != nil {
			return err
		}
		s.skipSpace()
		switch s.peek() {
		case ',':
			s.pos++
			s.skipSpace()
			s.dst.put(' ')
		case ']':
			s.pos++
			s.dst.put(']')
			return nil
		case -1:
			return s.fail("unterminated array")
		default:
			return s.fail("expected ',' or ']' after array element")
		}
	}
}

func (s *jsonScanner) literal(word, token string) error {
	end := s.pos + len(word)
	if end > len(s.src) || string(s.src[s.pos:end]) != word {
		return s.fail("invalid literal, expected " + word)
	}
	s.pos = end
	s.dst.puts(token)
	return nil
}

// number validates a JSON number and writes its plist form. Integers are
// copied verbatim. Floats keep their digits and always get a decimal point,
// so "1e5" is written as "1.0e5".
func (s *jsonScanner) number() error {
	start := s.pos
	if s.peek() == '-' {
		s.pos++
	}
	switch c := s.peek(); {
	case c == '0':
		s.pos++
	case isDigit(c):
		s.skipDigits()
	default:
		return s.fail("invalid number, expected digit")
	}

	hasFrac := false
	if s.peek() == '.' {
		s.pos++
		if !isDigit(s.peek()) {
			return s.fail("invalid number, expected digit after decimal point")
		}
		s.skipDigits()
		hasFrac = true
	}
	mantissaEnd := s.pos

	expStart := -1
	if c := s.peek(); c == 'e' || c == 'E' {
		s.pos++
		expStart = s.pos
		if c := s.peek(); c == '+' || c == '-' {
			s.pos++
		}
		if !isDigit(s.peek()) {
			return s.fail("invalid number, expected digit in exponent")
		}
		s.skipDigits()
	}

	s.dst.putBytes(s.src[start:mantissaEnd])
	if expStart < 0 {
		return nil
	}
	if !hasFrac {
		s.dst.puts(".0")
	}
	s.dst.put('e')
	s.dst.putBytes(s.src[expStart:s.pos])
	return nil
}

func (s *jsonScanner) skipDigits() {
	for isDigit(s.peek()) {
		s.pos++
	}
}

// textSink receives the decoded contents of a JSON string. raw gets runs
// copied straight from the input, which are valid UTF-8 and hold no quote,
// backslash or control character; char gets each decoded escape.
type textSink interface {
	raw(seg []byte)
	char(r rune)
}

// str scans a JSON string literal starting at its opening quote and feeds
// the decoded text to sink.
func (s *jsonScanner) str(sink textSink) error {
	open := s.pos
	s.pos++
	seg := s.pos
	flush := func() error {
		if seg == s.pos {
			return nil
		}
		if bad := invalidUTF8(s.src[seg:s.pos]); bad >= 0 {
			return s.failAt(seg+bad, "invalid UTF-8 in string literal")
		}
		sink.raw(s.src[seg:s.pos])
		return nil
	}

	for {
		if s.pos >= len(s.src) {
			return s.failAt(open, "unterminated string")
		}
		switch c := s.src[s.pos]; {
		case c == '"':
			if err := flush(); err != nil {
				return err
			}
			s.pos++
			return nil
		case c == '\\':
			if err := flush(); err != nil {
				return err
			}
			r, err := s.escape()
			if err != nil {
				return err
			}
			sink.char(r)
			seg = s.pos
		case c < 0x20:
			return s.fail("invalid control character in string literal")
		default:
			s.pos++
		}
	}
}

// escape decodes the escape sequence at the current backslash.
func (s *jsonScanner) escape() (rune, error) {
	start := s.pos
	s.pos++
	if s.pos >= len(s.src) {
		return 0, s.failAt(start, "unterminated string")
	}
	c := s.src[s.pos]
	s.pos++
	switch c {
	case '"', '\\', '/':
		return rune(c), nil
	case 'b':
		return '\b', nil
	case 'f':
		return '\f', nil
	case 'n':
		return '\n', nil
	case 'r':
		return '\r', nil
	case 't':
		return '\t', nil
	case 'u':
		r, ok := s.hex4()
		if !ok {
			return 0, s.failAt(start, "invalid \\u escape, expected four hex digits")
		}
		if !utf16.IsSurrogate(r) {
			return r, nil
		}
		// A high surrogate pairs with an immediately following low one;
		// anything unpaired decodes to U+FFFD.
		if r < 0xdc00 && s.pos+1 < len(s.src) && s.src[s.pos] == '\\' && s.src[s.pos+1] == 'u' {
			save := s.pos
			s.pos += 2
			if low, ok := s.hex4(); ok {
				if pair := utf16.DecodeRune(r, low); pair != utf8.RuneError {
					return pair, nil
				}
			}
			s.pos = save
		}
		return utf8.RuneError, nil
	default:
		return 0, s.failAt(start, "invalid escape sequence")
	}
}

func (s *jsonScanner) hex4() (rune, bool) {
	if s.pos+4 > len(s.src) {
		return 0, false
	}
	var r rune
	for _, c := range s.src[s.pos : s.pos+4] {
		v := unhex(c)
		if v < 0 {
			return 0, false
		}
		r = r<<4 | rune(v)
	}
	s.pos += 4
	return r, true
}

// plistText writes string contents as the body of a Lisp string literal.
type plistText struct{ dst *Buffer }

func (t plistText) raw(seg []byte) {
	start := 0
	for i, c := range seg {
		if c == 0x7f {
			t.dst.putBytes(seg[start:i])
			t.dst.puts(`\177`)
			start = i + 1
		}
	}
	t.dst.putBytes(seg[start:])
}

func (t plistText) char(r rune) {
	writePlistRune(t.dst, r)
}

// rawText writes string contents unescaped. Keys go through it and are
// checked afterwards.
type rawText struct{ dst *Buffer }

func (t rawText) raw(seg []byte) { t.dst.putBytes(seg) }
func (t rawText) char(r rune)    { t.dst.putRune(r) }

// writePlistRune writes r escaped for a Lisp string literal. Control
// characters without a mnemonic use three-digit octal escapes, which the
// reader terminates unambiguously.
func writePlistRune(dst *Buffer, r rune) {
	switch r {
	case '"':
		dst.puts(`\"`)
	case '\\':
		dst.puts(`\\`)
	case '\n':
		dst.puts(`\n`)
	case '\t':
		dst.puts(`\t`)
	case '\r':
		dst.puts(`\r`)
	case '\f':
		dst.puts(`\f`)
	case '\b':
		dst.puts(`\b`)
	case '\a':
		dst.puts(`\a`)
	case '\v':
		dst.puts(`\v`)
	case 0x1b:
		dst.puts(`\e`)
	default:
		if r < 0x20 || r == 0x7f {
			dst.put('\\')
			dst.put('0' + byte(r>>6))
			dst.put('0' + byte(r>>3&7))
			dst.put('0' + byte(r&7))
			return
		}
		dst.putRune(r)
	}
}

// keywordSafe reports whether c may appear unescaped in a keyword name.
func keywordSafe(c byte) bool {
	if c <= ' ' || c == 0x7f {
		return false
	}
	switch c {
	case '(', ')', '[', ']', '"', ';', '\'', '`', ',', '\\':
		return false
	}
	return true
}

func isDigit(c int) bool { return c >= '0' && c <= '9' }

func unhex(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10
	}
	return -1
}

// invalidUTF8 returns the index of the first invalid UTF-8 sequence in p,
// or -1.
func invalidUTF8(p []byte) int {
	if utf8.Valid(p) {
		return -1
	}
	for i := 0; i < len(p); {
		r, size := utf8.DecodeRune(p[i:])
		if r == utf8.RuneError && size <= 1 {
			return i
		}
		i += size
	}
	return -1
}
