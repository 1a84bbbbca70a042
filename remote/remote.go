// Package remote parses repository locators (github:owner/repo[/path])
// and fetches file contents through the repository contents API.
package remote

import (
	"fmt"
	"path"
	"regexp"
	"strings"
)

// Scheme is the only locator scheme understood by the contents client.
const Scheme = "github"

// locatorPattern recognizes "<scheme>:<owner>/<repo>..." locators. The
// scheme needs at least two letters so Windows drive paths (C:/x/y) are
// never mistaken for locators.
var locatorPattern = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9+.-]+):([^/\s]+)/([^/\s]+)(/.*)?$`)

// IsLocator returns true if s looks like a repository locator.
func IsLocator(s string) bool {
	return locatorPattern.MatchString(strings.TrimSpace(s))
}

// Repo is the owner/repo context a remote fragment was fetched from.
type Repo struct {
	// Owner is the repository owner (e.g. "lcanady").
	Owner string
	// Name is the repository name (e.g. "mu-format").
	Name string
}

// IsZero reports whether r carries no repository context.
func (r Repo) IsZero() bool { return r.Owner == "" && r.Name == "" }

func (r Repo) String() string { return r.Owner + "/" + r.Name }

// Locator holds the parsed components of a remote reference.
type Locator struct {
	Scheme string
	Repo   Repo
	// Path is the optional file path inside the repository. Empty means
	// the canonical entry file.
	Path string
}

// String renders the locator back to its textual form.
func (l Locator) String() string {
	s := l.Scheme + ":" + l.Repo.String()
	if l.Path != "" {
		s += "/" + l.Path
	}
	return s
}

// ParseLocator parses a remote reference into its components.
//
// Examples:
//
//	"github:lcanady/mu-format"            → lcanady, mu-format, ""
//	"github:lcanady/mu-format/lib/a.mu"   → lcanady, mu-format, "lib/a.mu"
func ParseLocator(s string) (*Locator, error) {
	s = strings.TrimSpace(s)
	m := locatorPattern.FindStringSubmatch(s)
	if m == nil {
		return nil, fmt.Errorf("remote locator must be %s:owner/repo, got %q", Scheme, s)
	}
	scheme := strings.ToLower(m[1])
	if scheme != Scheme {
		return nil, fmt.Errorf("unsupported locator scheme %q in %q", m[1], s)
	}
	l := &Locator{
		Scheme: scheme,
		Repo:   Repo{Owner: m[2], Name: m[3]},
	}
	if m[4] != "" {
		l.Path = CleanPath(m[4])
	}
	return l, nil
}

// CleanPath normalizes a path inside a repository: slash separated,
// without leading slash, "." for the root.
func CleanPath(p string) string {
	p = path.Clean("/" + strings.ReplaceAll(p, `\`, "/"))
	p = strings.TrimPrefix(p, "/")
	if p == "" {
		return "."
	}
	return p
}

// JoinPath resolves ref relative to dir inside a repository. References
// that climb above the repository root are clamped to it.
func JoinPath(dir, ref string) string {
	if strings.HasPrefix(ref, "/") {
		return CleanPath(ref)
	}
	return CleanPath(path.Join(dir, ref))
}
