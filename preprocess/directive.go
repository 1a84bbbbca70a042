// Package preprocess runs the directive and macro passes over a flattened
// document: macro definitions and expansion, comment stripping, metadata
// headers and footers, file injection, and the #create/#ufuns shorthands.
//
// Every pass first scans the document for directives without touching it,
// then applies the collected edits in a second step.
package preprocess

import (
	"regexp"
	"strings"
)

// Kind identifies a directive keyword.
type Kind int

const (
	Unknown Kind = iota
	Include
	File
	Header
	Footer
	MetaKeyword
	Define
	EndDefine
	Create
	UFuns
)

var kindNames = map[Kind]string{
	Unknown:     "unknown",
	Include:     "include",
	File:        "file",
	Header:      "header",
	Footer:      "footer",
	MetaKeyword: "meta",
	Define:      "def",
	EndDefine:   "enddef",
	Create:      "create",
	UFuns:       "ufuns",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

var keywords = map[string]Kind{
	"include": Include,
	"file":    File,
	"header":  Header,
	"footer":  Footer,
	"def":     Define,
	"enddef":  EndDefine,
	"create":  Create,
	"ufuns":   UFuns,
}

// directivePattern matches a directive line. The keyword must start with a
// letter so dbrefs such as "#123" are never taken for directives.
var directivePattern = regexp.MustCompile(`^#([A-Za-z][A-Za-z0-9_]*)(?:\s+(.*?))?\s*$`)

// Directive is one directive found by Scan.
type Directive struct {
	Kind Kind
	// Keyword is the lowercased keyword as written.
	Keyword string
	// Line is the zero-based index of the directive line.
	Line int
	// Args is the trimmed text after the keyword.
	Args string
	// Raw is the whole line.
	Raw string
}

// Scan returns every directive in lines, in order. Keywords listed in meta
// that are not built in are reported as MetaKeyword. Scan has no side effects.
func Scan(lines []string, meta map[string]bool) []Directive {
	var out []Directive
	for i, line := range lines {
		d, ok := parseDirective(line, meta)
		if !ok {
			continue
		}
		d.Line = i
		out = append(out, d)
	}
	return out
}

func parseDirective(line string, meta map[string]bool) (Directive, bool) {
	m := directivePattern.FindStringSubmatch(line)
	if m == nil {
		return Directive{}, false
	}
	kw := strings.ToLower(m[1])
	kind, ok := keywords[kw]
	if !ok {
		kind = Unknown
		if meta[kw] {
			kind = MetaKeyword
		}
	}
	return Directive{Kind: kind, Keyword: kw, Args: strings.TrimSpace(m[2]), Raw: line}, true
}

// filter keeps the directives of the given kinds.
func filter(ds []Directive, kinds ...Kind) []Directive {
	var out []Directive
	for _, d := range ds {
		for _, k := range kinds {
			if d.Kind == k {
				out = append(out, d)
				break
			}
		}
	}
	return out
}

// edit replaces lines [start, end) with repl.
type edit struct {
	start, end int
	repl       []string
}

// applyEdits rewrites lines with non-overlapping edits sorted by start.
func applyEdits(lines []string, edits []edit) []string {
	if len(edits) == 0 {
		return lines
	}
	out := make([]string, 0, len(lines))
	pos := 0
	for _, e := range edits {
		out = append(out, lines[pos:e.start]...)
		out = append(out, e.repl...)
		pos = e.end
	}
	return append(out, lines[pos:]...)
}

// drop is an edit that removes the single directive line of d.
func drop(d Directive) edit {
	return edit{start: d.Line, end: d.Line + 1}
}

func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

func joinLines(lines []string) string {
	return strings.Join(lines, "\n")
}
