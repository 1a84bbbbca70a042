// Package scanner provides comment-boundary-aware scanning for the mufmt
// directive engine. It tracks block comments (/* */), line comments (//)
// and markup comments (<!-- -->) plus the \ escape marker, so callers can
// ask InComment() instead of re-implementing the comment grammar.
//
// A comment opener only counts at a token boundary: at the start of a line
// or right after whitespace. This keeps URLs (http://host) and attribute
// wildcards (lattr(me/*)) intact. An opener preceded by the escape marker
// is never a comment.
package scanner

import "strings"

type mode byte

const (
	modeCode mode = iota
	modeBlock
	modeLine
	modeMarkup
)

// Scanner iterates byte-by-byte over source text, tracking comment
// boundaries. InComment() returns true for the entire comment span
// including both opening and closing delimiters. The newline that ends a
// line comment is reported as code.
type Scanner struct {
	src     string
	pos     int
	line    int
	mode    mode
	start   int // offset of the current comment opener
	escaped bool
	closing bool // set when a closing delimiter is processed
}

// New creates a Scanner for the given source text.
// Call Next() to advance to the first byte.
func New(src string) *Scanner {
	return &Scanner{src: src, pos: -1, line: 1}
}

// Next advances to the next byte, updating comment/escape state.
// Returns the byte and true, or (0, false) at end of input.
func (s *Scanner) Next() (byte, bool) {
	s.closing = false
	s.pos++
	if s.pos >= len(s.src) {
		return 0, false
	}
	ch := s.src[s.pos]
	if ch == '\n' {
		s.line++
	}

	switch s.mode {
	case modeBlock:
		// "*/" must not reuse the '*' of the opener ("/*/" stays open).
		if ch == '/' && s.pos-1 >= s.start+2 && s.src[s.pos-1] == '*' {
			s.mode = modeCode
			s.closing = true
		}
		return ch, true
	case modeMarkup:
		if ch == '>' && s.pos-2 >= s.start+4 && s.src[s.pos-2:s.pos+1] == "-->" {
			s.mode = modeCode
			s.closing = true
		}
		return ch, true
	case modeLine:
		if ch == '\n' {
			s.mode = modeCode
		}
		return ch, true
	}

	if s.escaped {
		s.escaped = false
		return ch, true
	}
	if ch == '\\' {
		s.escaped = true
		return ch, true
	}
	if !s.atBoundary() {
		return ch, true
	}
	switch {
	case s.LookingAt("/*"):
		s.mode = modeBlock
		s.start = s.pos
	case s.LookingAt("//"):
		s.mode = modeLine
		s.start = s.pos
	case s.LookingAt("<!--"):
		s.mode = modeMarkup
		s.start = s.pos
	}
	return ch, true
}

// atBoundary reports whether the current byte starts a token: it is the
// first byte of the input or of a line, or follows a space or tab.
func (s *Scanner) atBoundary() bool {
	if s.pos == 0 {
		return true
	}
	prev := s.src[s.pos-1]
	return prev == '\n' || prev == ' ' || prev == '\t' || prev == '\r'
}

// InComment reports whether the current position is inside a comment,
// including the opening and closing delimiters.
func (s *Scanner) InComment() bool {
	return s.mode != modeCode || s.closing
}

// InBlockComment reports whether the current position is inside a
// /* */ or <!-- --> comment.
func (s *Scanner) InBlockComment() bool {
	return s.mode == modeBlock || s.mode == modeMarkup || s.closing
}

// InCode reports whether the current position is outside all comments.
func (s *Scanner) InCode() bool { return !s.InComment() }

// Unterminated reports whether the input ended inside a block or markup
// comment. Only meaningful once Next has returned false.
func (s *Scanner) Unterminated() bool {
	return s.mode == modeBlock || s.mode == modeMarkup
}

// Pos returns the current byte offset (the position of the last byte
// returned by Next). Returns -1 before the first call to Next.
func (s *Scanner) Pos() int { return s.pos }

// Line returns the current 1-based line number.
func (s *Scanner) Line() int { return s.line }

// LookingAt checks if src[pos:] starts with the given prefix.
func (s *Scanner) LookingAt(prefix string) bool {
	if s.pos < 0 {
		return false
	}
	return strings.HasPrefix(s.src[s.pos:], prefix)
}

// Strip returns src with every comment removed. Newlines inside block
// comments are kept so line-anchored directives after a multi-line
// comment stay on their own line.
//
// A block or markup opener that is never closed is kept as text and
// stripping resumes after it; line is the 1-based line of that opener,
// or 0 when every comment was closed.
func Strip(src string) (out string, line int) {
	var sb strings.Builder
	sb.Grow(len(src))
	sc := New(src)
	openedAt := 0
	for ch, ok := sc.Next(); ok; ch, ok = sc.Next() {
		if sc.InBlockComment() && !sc.closing && sc.Pos() == sc.start {
			openedAt, line = sb.Len(), sc.Line()
		}
		if sc.InCode() || (ch == '\n' && sc.InBlockComment()) {
			sb.WriteByte(ch)
		}
	}
	if !sc.Unterminated() {
		return sb.String(), 0
	}
	n := len("/*")
	if sc.mode == modeMarkup {
		n = len("<!--")
	}
	rest, _ := Strip(src[sc.start+n:])
	return sb.String()[:openedAt] + src[sc.start:sc.start+n] + rest, line
}
