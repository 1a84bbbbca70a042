package preprocess

import (
	"context"
	"strings"

	"github.com/rubiojr/mufmt/buildlog"
	"github.com/rubiojr/mufmt/scanner"
)

// DefaultRecursionLimit is the number of macro passes when none is set.
const DefaultRecursionLimit = 2

// Document is the text moving through the passes together with the
// metadata and macros they collect.
type Document struct {
	Text    string
	Headers []Meta
	Footers []Meta
	Macros  []*Macro
	// Files lists the identities of the fragments injected with #file.
	Files []string
	// MacroPasses counts the expansion passes that replaced something.
	MacroPasses int
}

// Engine runs the directive passes. The zero value is usable for text
// that has no #file directives.
type Engine struct {
	// Resolver resolves #file references.
	Resolver Resolver
	Log      *buildlog.Log
	// RecursionLimit bounds macro expansion passes.
	RecursionLimit int
	// MetaKeywords are the shorthand header keywords, e.g. "author".
	MetaKeywords []string
	// BaseDir anchors relative #file paths that were not anchored by the
	// include expander.
	BaseDir string
	// Concurrency bounds concurrent file injections.
	Concurrency int
}

// Run applies every pass to text in order and returns the document.
// Directive problems are logged and never returned; the error is non-nil
// only when ctx ends.
func (e *Engine) Run(ctx context.Context, text string) (*Document, error) {
	doc := &Document{}
	text = strings.ReplaceAll(text, "\r\n", "\n")

	e.logf("Registering macros")
	lines, macros := e.registerDefines(splitLines(text))
	doc.Macros = macros

	text, doc.MacroPasses = e.expandDefines(joinLines(lines), macros, e.recursionLimit())

	e.logf("Removing comments")
	text, open := scanner.Strip(text)
	if open > 0 {
		lines := splitLines(text)
		e.warn(&DirectiveError{Kind: UnterminatedComment, Line: open, Text: lines[open-1]})
	}

	e.logf("Grabbing headers")
	lines, doc.Headers, doc.Footers = e.extractMeta(splitLines(text))

	lines, files, err := e.injectFiles(ctx, lines)
	if err != nil {
		return doc, err
	}

	doc.Files = files

	lines = e.expandShorthand(lines)
	lines = e.dropDirectives(lines)

	doc.Text = joinLines(lines)
	return doc, nil
}

// dropDirectives removes directive lines no pass consumed.
func (e *Engine) dropDirectives(lines []string) []string {
	var edits []edit
	for _, d := range Scan(lines, nil) {
		e.logf("Ignoring directive: %s", d.Raw)
		edits = append(edits, drop(d))
	}
	return applyEdits(lines, edits)
}

func (e *Engine) recursionLimit() int {
	if e.RecursionLimit <= 0 {
		return DefaultRecursionLimit
	}
	return e.RecursionLimit
}

func (e *Engine) concurrency() int {
	if e.Concurrency <= 0 {
		return 8
	}
	return e.Concurrency
}

func (e *Engine) metaKeywords() map[string]bool {
	out := make(map[string]bool, len(e.MetaKeywords))
	for _, kw := range e.MetaKeywords {
		out[strings.ToLower(kw)] = true
	}
	return out
}

func (e *Engine) logf(format string, args ...any) {
	if e.Log != nil {
		e.Log.Infof(format, args...)
	}
}

func (e *Engine) warn(err error) {
	if e.Log != nil {
		e.Log.Warn(err)
	}
}

func (e *Engine) fail(err error) {
	if e.Log != nil {
		e.Log.Error(err)
	}
}
