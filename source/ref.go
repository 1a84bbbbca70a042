// Package source resolves fragment references (files, directories,
// repository locators and literal text) to content, caching every fetch
// for the lifetime of one build.
package source

import (
	"path/filepath"
	"strings"

	"github.com/rubiojr/mufmt/remote"
	"github.com/spf13/afero"
)

// Kind is the kind of a source reference.
type Kind int

const (
	File Kind = iota
	Directory
	Remote
	Text
)

func (k Kind) String() string {
	switch k {
	case File:
		return "file"
	case Directory:
		return "directory"
	case Remote:
		return "remote"
	case Text:
		return "text"
	default:
		return "unknown"
	}
}

// Ref points at a fragment.
type Ref struct {
	Kind Kind
	// Location is a path, a locator, a repository-relative path (when
	// Repo is set) or, for Text, the content itself.
	Location string
	// BaseDir is the directory of the including fragment. For remote
	// references it is a directory inside Repo.
	BaseDir string
	// Repo is the established owner/repo context of a remote fragment.
	Repo remote.Repo
}

func (r Ref) String() string {
	switch {
	case r.Kind == Text:
		return "<text>"
	case r.Kind == Remote && !r.Repo.IsZero() && !remote.IsLocator(r.Location):
		return remote.Locator{Scheme: remote.Scheme, Repo: r.Repo, Path: remote.JoinPath(r.BaseDir, r.Location)}.String()
	case r.BaseDir != "" && r.Kind != Remote && !filepath.IsAbs(r.Location):
		return filepath.Join(r.BaseDir, r.Location)
	default:
		return r.Location
	}
}

// Fragment is a resolved reference.
type Fragment struct {
	// Ref is the reference after directory and locator rewriting.
	Ref Ref
	// ID is the cache identity. Empty for Text.
	ID string
	// Dir is the base directory for references found inside Content.
	Dir string
	// Content is the fragment text.
	Content string
}

// Child returns the reference a directive argument found inside f
// points at. Locators start a new remote context; anything else inherits
// f's context and resolves relative to f.Dir.
func (f *Fragment) Child(fs afero.Fs, arg string) Ref {
	arg = strings.TrimSpace(arg)
	if remote.IsLocator(arg) {
		return Ref{Kind: Remote, Location: arg}
	}
	switch f.Ref.Kind {
	case Remote:
		return Ref{Kind: Remote, Location: arg, BaseDir: f.Dir, Repo: f.Ref.Repo}
	default:
		return LocalRef(fs, arg, f.Dir)
	}
}

// LocalRef builds a File or Directory reference for p relative to base.
func LocalRef(fs afero.Fs, p, base string) Ref {
	full := p
	if !filepath.IsAbs(full) && base != "" {
		full = filepath.Join(base, p)
	}
	if info, err := fs.Stat(full); err == nil && info.IsDir() {
		return Ref{Kind: Directory, Location: p, BaseDir: base}
	}
	return Ref{Kind: File, Location: p, BaseDir: base}
}

// Anchor rewrites a directive argument found inside f to a form that
// resolves the same way from anywhere: an absolute path or a full
// locator. Text fragments anchor relative to their own Dir.
func (f *Fragment) Anchor(fs afero.Fs, arg string) string {
	ref := f.Child(fs, arg)
	switch {
	case ref.Kind == Remote && !ref.Repo.IsZero():
		return remote.Locator{Scheme: remote.Scheme, Repo: ref.Repo, Path: remote.JoinPath(ref.BaseDir, ref.Location)}.String()
	case ref.Kind == Remote:
		return ref.Location
	default:
		return absPath(ref.BaseDir, ref.Location)
	}
}

// Classify decides what kind of reference a root input is: a locator, an
// existing directory or file, something that looks like a path (which
// then fails as NotFound), or literal text.
func Classify(fs afero.Fs, input string) Ref {
	trimmed := strings.TrimSpace(input)
	if remote.IsLocator(trimmed) {
		return Ref{Kind: Remote, Location: trimmed}
	}
	if trimmed != "" && !strings.ContainsAny(trimmed, "\n") {
		if info, err := fs.Stat(trimmed); err == nil {
			if info.IsDir() {
				return Ref{Kind: Directory, Location: trimmed}
			}
			return Ref{Kind: File, Location: trimmed}
		}
		if looksLikePath(trimmed) {
			return Ref{Kind: File, Location: trimmed}
		}
	}
	return Ref{Kind: Text, Location: input}
}

// looksLikePath reports whether s is a single token with a path
// separator or a file extension.
func looksLikePath(s string) bool {
	if strings.ContainsAny(s, " \t") {
		return false
	}
	if strings.ContainsAny(s, `/\`) {
		return true
	}
	ext := filepath.Ext(s)
	return len(ext) > 1 && len(ext) <= 5
}

func absPath(base, p string) string {
	full := p
	if !filepath.IsAbs(full) && base != "" {
		full = filepath.Join(base, p)
	}
	if abs, err := filepath.Abs(full); err == nil {
		return abs
	}
	return filepath.Clean(full)
}
