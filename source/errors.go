package source

import "fmt"

// ErrorKind classifies a ResolutionError.
type ErrorKind int

const (
	NotFound ErrorKind = iota
	NetworkError
	MalformedLocator
	CycleDetected
)

func (k ErrorKind) String() string {
	switch k {
	case NotFound:
		return "not found"
	case NetworkError:
		return "network error"
	case MalformedLocator:
		return "malformed locator"
	case CycleDetected:
		return "cycle detected"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// ResolutionError reports why a source reference could not be resolved.
type ResolutionError struct {
	Kind ErrorKind
	// Ref is the reference as written (path, locator or identity).
	Ref string
	Err error
}

func (e *ResolutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("resolving %s: %s: %v", e.Ref, e.Kind, e.Err)
	}
	return fmt.Sprintf("resolving %s: %s", e.Ref, e.Kind)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// Is matches another *ResolutionError of the same kind, so callers can
// write errors.Is(err, &source.ResolutionError{Kind: source.CycleDetected}).
func (e *ResolutionError) Is(target error) bool {
	t, ok := target.(*ResolutionError)
	return ok && t.Kind == e.Kind && (t.Ref == "" || t.Ref == e.Ref)
}

func newError(kind ErrorKind, ref string, err error) *ResolutionError {
	return &ResolutionError{Kind: kind, Ref: ref, Err: err}
}
