package plist

import "unicode/utf8"

// ToJSON converts the single plist value in src into JSON text appended to
// dst.
//
// Property lists become objects whose keys are the keyword names with the
// leading colon stripped, in their original order. Vectors become arrays,
// t, :false and nil become true, false and null. Floats are always written
// with a decimal point, so 7.0 never turns into the integer 7. Whitespace,
// ';' comments, a NUL terminator and anything after that terminator may
// follow the value.
//
// On error dst is rolled back to its length before the call.
func ToJSON(dst *Buffer, src []byte) error {
	start := dst.Len()
	s := plistScanner{src: src, dst: dst}
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

// plistScanner walks plist text once and writes JSON text as it goes.
type plistScanner struct {
	src   []byte
	pos   int
	depth int
	dst   *Buffer
}

func (s *plistScanner) document() error {
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

func (s *plistScanner) fail(reason string) error {
	return s.failAt(s.pos, reason)
}

func (s *plistScanner) failAt(offset int, reason string) error {
	return newError(ErrSyntax, SyntaxPlist, s.src, offset, reason)
}

func (s *plistScanner) unrepresentable(offset int, reason string) error {
	return newError(ErrEncoding, SyntaxPlist, s.src, offset, reason)
}

func (s *plistScanner) peek() int {
	if s.pos >= len(s.src) {
		return -1
	}
	return int(s.src[s.pos])
}

func (s *plistScanner) skipSpace() {
	for s.pos < len(s.src) {
		switch s.src[s.pos] {
		case ' ', '\t', '\n', '\r', '\f':
			s.pos++
		case ';':
			for s.pos < len(s.src) && s.src[s.pos] != '\n' {
				s.pos++
			}
		default:
			return
		}
	}
}

func (s *plistScanner) value() error {
	if s.dst.err != nil {
		return s.dst.err
	}
	switch c := s.peek(); c {
	case '(':
		return s.list()
	case '[':
		return s.vector()
	case '"':
		return s.str()
	case ':':
		return s.keywordValue()
	case ')', ']':
		return s.fail("unbalanced closing delimiter")
	case '\'', '`', ',', '#', '?', '\\':
		return s.fail("unsupported reader syntax")
	case -1, 0:
		return s.fail("unexpected end of input")
	default:
		return s.atom()
	}
}

func (s *plistScanner) enter() error {
	s.depth++
	if s.depth > MaxDepth {
		return s.fail("exceeded maximum nesting depth")
	}
	return nil
}

// list converts a keyword property list into a JSON object.
func (s *plistScanner) list() error {
	if err := s.enter(); err != nil {
		return err
	}
	defer func() { s.depth-- }()

	s.pos++
	s.dst.put('{')
	for first := true; ; first = false {
		s.skipSpace()
		switch s.peek() {
		case ')':
			s.pos++
			s.dst.put('}')
			return nil
		case -1, 0:
			return s.fail("unterminated list")
		case ':':
		default:
			return s.fail("expected keyword in property key position")
		}
		if !first {
			s.dst.put(',')
		}
		if err := s.property(); err != nil {
			return err
		}
	}
}

// property converts one ":key value" pair into "key":value.
func (s *plistScanner) property() error {
	s.pos++
	if err := s.keywordName(); err != nil {
		return err
	}
	s.dst.put(':')

	s.skipSpace()
	switch s.peek() {
	case ')':
		return s.fail("property key without value")
	case -1, 0:
		return s.fail("unterminated list")
	}
	return s.value()
}

// keywordName writes the symbol name following a keyword marker as a JSON
// string. Backslash escapes the next character, so ":a\ b" names "a b".
func (s *plistScanner) keywordName() error {
	s.dst.put('"')
	seg := s.pos
	flush := func() error {
		if seg == s.pos {
			return nil
		}
		return s.jsonSegment(seg)
	}
	for s.pos < len(s.src) && !delimiter(s.src[s.pos]) {
		if s.src[s.pos] != '\\' {
			s.pos++
			continue
		}
		if err := flush(); err != nil {
			return err
		}
		s.pos++
		if s.pos >= len(s.src) {
			return s.fail("unexpected end of input after backslash")
		}
		r, size := utf8.DecodeRune(s.src[s.pos:])
		if r == utf8.RuneError && size <= 1 {
			return s.fail("invalid UTF-8 in keyword")
		}
		writeJSONRune(s.dst, r)
		s.pos += size
		seg = s.pos
	}
	if err := flush(); err != nil {
		return err
	}
	s.dst.put('"')
	return nil
}

// keywordValue handles a keyword in value position. Only :false, the
// reserved token for JSON false, is meaningful there.
func (s *plistScanner) keywordValue() error {
	start := s.pos
	end := s.pos + 1
	for end < len(s.src) && !delimiter(s.src[end]) {
		end++
	}
	if string(s.src[start:end]) != ":false" {
		return s.unrepresentable(start, "keyword is only valid in property key position")
	}
	s.pos = end
	s.dst.puts("false")
	return nil
}

func (s *plistScanner) vector() error {
	if err := s.enter(); err != nil {
		return err
	}
	defer func() { s.depth-- }()

	s.pos++
	s.dst.put('[')
	for first := true; ; first = false {
		s.skipSpace()
		switch s.peek() {
		case ']':
			s.pos++
			s.dst.put(']')
			return nil
		case -1, 0:
			return s.fail("unterminated vector")
		}
		if !first {
			s.dst.put(',')
		}
		if err := s.value(); err != nil {
			return err
		}
	}
}

// atom converts a bare token: t, nil or a number.
func (s *plistScanner) atom() error {
	start := s.pos
	for s.pos < len(s.src) && !delimiter(s.src[s.pos]) {
		if s.src[s.pos] == '\\' {
			return s.unrepresentable(start, "symbol has no JSON representation")
		}
		s.pos++
	}
	tok := s.src[start:s.pos]

	switch string(tok) {
	case "t":
		s.dst.puts("true")
		return nil
	case "nil":
		s.dst.puts("null")
		return nil
	}
	if !numeric(tok) {
		return s.unrepresentable(start, "symbol has no JSON representation")
	}
	return s.number(start, tok)
}

// numeric reports whether tok starts like a Lisp number: an optional sign,
// then a digit or a decimal point followed by a digit.
func numeric(tok []byte) bool {
	i := 0
	if i < len(tok) && (tok[i] == '+' || tok[i] == '-') {
		i++
	}
	if i < len(tok) && isDigit(int(tok[i])) {
		return true
	}
	return i+1 < len(tok) && tok[i] == '.' && isDigit(int(tok[i+1]))
}

// number writes the JSON form of a Lisp number token. Integers accept a
// sign, leading zeros and a trailing dot; floats need fraction digits or an
// exponent. JSON output drops '+' and leading zeros and always gives floats
// digits on both sides of the decimal point.
func (s *plistScanner) number(start int, tok []byte) error {
	i := 0
	neg := false
	if tok[i] == '+' || tok[i] == '-' {
		neg = tok[i] == '-'
		i++
	}
	intStart := i
	for i < len(tok) && isDigit(int(tok[i])) {
		i++
	}
	intDigits := tok[intStart:i]

	var frac []byte
	if i < len(tok) && tok[i] == '.' {
		i++
		fracStart := i
		for i < len(tok) && isDigit(int(tok[i])) {
			i++
		}
		frac = tok[fracStart:i]
	}

	var exp []byte
	hasExp := false
	if i < len(tok) && (tok[i] == 'e' || tok[i] == 'E') {
		hasExp = true
		i++
		expStart := i
		if i < len(tok) && (tok[i] == '+' || tok[i] == '-') {
			i++
		}
		digitStart := i
		for i < len(tok) && isDigit(int(tok[i])) {
			i++
		}
		if i == digitStart {
			switch string(tok[i:]) {
			case "INF", "NaN":
				return s.unrepresentable(start, "infinite or NaN float cannot be written as JSON")
			}
			return s.failAt(start+i, "invalid number, expected digit in exponent")
		}
		exp = tok[expStart:i]
	}
	if i != len(tok) {
		return s.failAt(start+i, "invalid number syntax")
	}

	if neg {
		s.dst.put('-')
	}
	s.dst.putBytes(trimZeros(intDigits))
	if len(frac) == 0 && !hasExp {
		return nil
	}
	s.dst.put('.')
	if len(frac) == 0 {
		s.dst.put('0')
	} else {
		s.dst.putBytes(frac)
	}
	if hasExp {
		s.dst.put('e')
		s.dst.putBytes(exp)
	}
	return nil
}

// trimZeros strips leading zeros, keeping at least one digit.
func trimZeros(digits []byte) []byte {
	for len(digits) > 1 && digits[0] == '0' {
		digits = digits[1:]
	}
	if len(digits) == 0 {
		return []byte{'0'}
	}
	return digits
}

// str converts a Lisp string literal into a JSON string.
func (s *plistScanner) str() error {
	open := s.pos
	s.pos++
	s.dst.put('"')
	seg := s.pos
	flush := func() error {
		if seg == s.pos {
			return nil
		}
		return s.jsonSegment(seg)
	}

	for {
		if s.pos >= len(s.src) {
			return s.failAt(open, "unterminated string")
		}
		switch s.src[s.pos] {
		case '"':
			if err := flush(); err != nil {
				return err
			}
			s.pos++
			s.dst.put('"')
			return nil
		case '\\':
			if err := flush(); err != nil {
				return err
			}
			if err := s.escape(open); err != nil {
				return err
			}
			seg = s.pos
		default:
			s.pos++
		}
	}
}

// jsonSegment copies src[seg:s.pos] into a JSON string, escaping control
// characters and checking the bytes are valid UTF-8. The segment holds no
// quote or backslash.
func (s *plistScanner) jsonSegment(seg int) error {
	p := s.src[seg:s.pos]
	if bad := invalidUTF8(p); bad >= 0 {
		return s.failAt(seg+bad, "invalid UTF-8 in string literal")
	}
	start := 0
	for i, c := range p {
		if c < 0x20 {
			s.dst.putBytes(p[start:i])
			writeJSONRune(s.dst, rune(c))
			start = i + 1
		}
	}
	s.dst.putBytes(p[start:])
	return nil
}

// escape decodes the Lisp string escape at the current backslash and writes
// it as JSON.
func (s *plistScanner) escape(open int) error {
	start := s.pos
	s.pos++
	if s.pos >= len(s.src) {
		return s.failAt(open, "unterminated string")
	}
	c := s.src[s.pos]
	s.pos++

	var r rune
	switch c {
	case '"', '\\':
		r = rune(c)
	case 'n':
		r = '\n'
	case 't':
		r = '\t'
	case 'r':
		r = '\r'
	case 'f':
		r = '\f'
	case 'b':
		r = '\b'
	case 'a':
		r = '\a'
	case 'v':
		r = '\v'
	case 'e':
		r = 0x1b
	case 'd':
		r = 0x7f
	case 's':
		r = ' '
	case '\n', ' ':
		// Line continuation and escape terminator; both stand for nothing.
		return nil
	case '0', '1', '2', '3', '4', '5', '6', '7':
		r = rune(c - '0')
		for n := 1; n < 3 && s.pos < len(s.src) && s.src[s.pos] >= '0' && s.src[s.pos] <= '7'; n++ {
			r = r<<3 | rune(s.src[s.pos]-'0')
			s.pos++
		}
	case 'x':
		digits := 0
		for s.pos < len(s.src) && unhex(s.src[s.pos]) >= 0 {
			if r > utf8.MaxRune {
				break
			}
			r = r<<4 | rune(unhex(s.src[s.pos]))
			s.pos++
			digits++
		}
		if digits == 0 {
			return s.failAt(start, "invalid \\x escape, expected hex digits")
		}
	case 'u', 'U':
		width := 4
		if c == 'U' {
			width = 8
		}
		if s.pos+width > len(s.src) {
			return s.failAt(start, "invalid unicode escape, truncated")
		}
		for _, h := range s.src[s.pos : s.pos+width] {
			v := unhex(h)
			if v < 0 {
				return s.failAt(start, "invalid unicode escape, expected hex digits")
			}
			r = r<<4 | rune(v)
		}
		s.pos += width
	default:
		return s.failAt(start, "invalid escape sequence")
	}

	if !utf8.ValidRune(r) {
		return s.failAt(start, "escape does not denote a Unicode scalar value")
	}
	writeJSONRune(s.dst, r)
	return nil
}

// writeJSONRune writes r escaped for a JSON string.
func writeJSONRune(dst *Buffer, r rune) {
	switch r {
	case '"':
		dst.puts(`\"`)
	case '\\':
		dst.puts(`\\`)
	case '\n':
		dst.puts(`\n`)
	case '\r':
		dst.puts(`\r`)
	case '\t':
		dst.puts(`\t`)
	case '\b':
		dst.puts(`\b`)
	case '\f':
		dst.puts(`\f`)
	default:
		if r < 0x20 {
			const hexDigits = "0123456789abcdef"
			dst.puts(`\u00`)
			dst.put(hexDigits[r>>4])
			dst.put(hexDigits[r&0xf])
			return
		}
		dst.putRune(r)
	}
}

// delimiter reports whether c ends a symbol or number token.
func delimiter(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\f', 0,
		'(', ')', '[', ']', '"', ';', '\'', '`', ',':
		return true
	}
	return false
}
