package preprocess

import "fmt"

// ErrorKind classifies a DirectiveError.
type ErrorKind int

const (
	// UnterminatedDefine is a #def without a matching #enddef.
	UnterminatedDefine ErrorKind = iota
	// MalformedDirective is a directive whose arguments cannot be parsed.
	MalformedDirective
	// UnterminatedComment is a /* or <!-- opener with no closing
	// delimiter. The opener and the rest of the text are kept.
	UnterminatedComment
)

func (k ErrorKind) String() string {
	switch k {
	case UnterminatedDefine:
		return "unterminated define"
	case MalformedDirective:
		return "malformed directive"
	case UnterminatedComment:
		return "unterminated comment"
	default:
		return "unknown directive error"
	}
}

// DirectiveError reports a directive that could not be applied as
// written. It never stops a build.
type DirectiveError struct {
	Kind ErrorKind
	// Line is the one-based line of the directive in the document the
	// failing pass ran over.
	Line int
	// Text is the directive line.
	Text string
	Err  error
}

func (e *DirectiveError) Error() string {
	msg := fmt.Sprintf("line %d: %s: %q", e.Line, e.Kind, e.Text)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DirectiveError) Unwrap() error { return e.Err }

// Is matches another DirectiveError of the same kind.
func (e *DirectiveError) Is(target error) bool {
	t, ok := target.(*DirectiveError)
	return ok && t.Kind == e.Kind
}

func directiveError(kind ErrorKind, d Directive, err error) *DirectiveError {
	return &DirectiveError{Kind: kind, Line: d.Line + 1, Text: d.Raw, Err: err}
}
