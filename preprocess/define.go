package preprocess

import (
	"errors"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// Macro is a registered #def block. Pattern is matched against the
// document; each match is replaced by Body with $0..$9 substituted.
type Macro struct {
	Name    string
	Pattern *regexp.Regexp
	Body    string
}

var placeholderPattern = regexp.MustCompile(`\$(\d)`)

// compileMacroPattern compiles name as a regular expression, falling back
// to a literal match when it is not one.
func compileMacroPattern(name string) *regexp.Regexp {
	if re, err := regexp.Compile(name); err == nil {
		return re
	}
	return regexp.MustCompile(regexp.QuoteMeta(name))
}

// render substitutes the trimmed capture groups of one match into the
// macro body. Missing groups render as empty strings.
func (m *Macro) render(groups []string) string {
	return placeholderPattern.ReplaceAllStringFunc(m.Body, func(ph string) string {
		n, _ := strconv.Atoi(ph[1:])
		if n >= len(groups) {
			return ""
		}
		return strings.TrimSpace(groups[n])
	})
}

// registerDefines removes every #def ... #enddef block from lines and
// returns the macros in definition order. A #def without #enddef extends
// to the end of the document.
func (e *Engine) registerDefines(lines []string) ([]string, []*Macro) {
	ds := filter(Scan(lines, nil), Define, EndDefine)

	var (
		macros []*Macro
		edits  []edit
	)
	for i := 0; i < len(ds); i++ {
		d := ds[i]
		if d.Kind == EndDefine {
			e.warn(directiveError(MalformedDirective, d, errors.New("#enddef without #def")))
			edits = append(edits, drop(d))
			continue
		}

		// A #def line inside a body is body text.
		end, stop := len(lines), len(lines)
		if j := nextEndDefine(ds, i+1); j >= 0 {
			end, stop = ds[j].Line, ds[j].Line+1
			i = j
		} else {
			e.warn(directiveError(UnterminatedDefine, d, nil))
			i = len(ds)
		}
		edits = append(edits, edit{start: d.Line, end: stop})

		if d.Args == "" {
			e.warn(directiveError(MalformedDirective, d, errors.New("missing macro pattern")))
			continue
		}
		body := slices.Clone(lines[d.Line+1 : end])
		macros = append(macros, &Macro{
			Name:    d.Args,
			Pattern: compileMacroPattern(d.Args),
			Body:    joinLines(body),
		})
		e.logf("Registered macro: %s", d.Args)
	}
	return applyEdits(lines, edits), macros
}

func nextEndDefine(ds []Directive, from int) int {
	for j := from; j < len(ds); j++ {
		if ds[j].Kind == EndDefine {
			return j
		}
	}
	return -1
}

type macroMatch struct {
	start, end int
	macro      *Macro
	groups     []string
}

// expandOnce applies every macro to text once. Matches are found in the
// input only, so a replacement is never rescanned in the same pass.
// Overlapping matches resolve to the earliest start, then to the macro
// registered first.
func expandOnce(text string, macros []*Macro) (string, int) {
	var matches []macroMatch
	for _, m := range macros {
		for _, loc := range m.Pattern.FindAllStringSubmatchIndex(text, -1) {
			if loc[0] == loc[1] {
				continue
			}
			groups := make([]string, len(loc)/2)
			for g := range groups {
				if loc[2*g] >= 0 {
					groups[g] = text[loc[2*g]:loc[2*g+1]]
				}
			}
			matches = append(matches, macroMatch{start: loc[0], end: loc[1], macro: m, groups: groups})
		}
	}
	if len(matches) == 0 {
		return text, 0
	}
	slices.SortStableFunc(matches, func(a, b macroMatch) int { return a.start - b.start })

	var b strings.Builder
	pos, applied := 0, 0
	for _, mt := range matches {
		if mt.start < pos {
			continue
		}
		b.WriteString(text[pos:mt.start])
		b.WriteString(mt.macro.render(mt.groups))
		pos = mt.end
		applied++
	}
	b.WriteString(text[pos:])
	return b.String(), applied
}

// expandDefines runs up to limit expansion passes and returns the number
// of passes that replaced something.
func (e *Engine) expandDefines(text string, macros []*Macro, limit int) (string, int) {
	if len(macros) == 0 {
		return text, 0
	}
	passes := 0
	for passes < limit {
		out, n := expandOnce(text, macros)
		if n == 0 {
			break
		}
		passes++
		e.logf("Macro pass %d: %d replacements", passes, n)
		text = out
	}
	return text, passes
}
