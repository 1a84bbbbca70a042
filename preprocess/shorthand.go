package preprocess

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// createStatement locates target by name on the executor, reusing it when
// found and creating it otherwise. Either way its dbref lands on &local.
const createStatement = "@if isdbref(setr(0,locate(me,%[2]s,i)))=" +
	"{@pemit me=Reusing %[2]s (%%q0).;&%[1]s me=%%q0}," +
	"{@pemit me=Creating %[2]s.;&%[1]s me=[create(%[2]s)]}"

const aliasStatement = "@alias [v(%s)]=%s"

// ufunsStatements registers every UFUN.* attribute of the owner as a
// global @function, now and on every restart.
var ufunsStatements = []string{
	"&STARTUP.UFUNS %[1]s=@dolist [lattr(me/UFUN.*)]={@function [after(##,UFUN.)]=me,##}",
	"@startup %[1]s=@trigger me/STARTUP.UFUNS",
	"@trigger %[1]s/STARTUP.UFUNS",
}

// rewrite replaces a source name with its alias.
type rewrite struct {
	pattern *regexp.Regexp
	alias   string
}

// newRewrite matches src as a whole word where it starts or ends with a
// word character. Letters and digits outside ASCII count as word
// characters too, which \b does not know about.
func newRewrite(src, alias string) rewrite {
	expr := regexp.QuoteMeta(src)
	if r, _ := utf8.DecodeRuneInString(src); isWord(r) {
		expr = `(?:^|[^\p{L}\p{N}_])(` + expr
	} else {
		expr = `(` + expr
	}
	if r, _ := utf8.DecodeLastRuneInString(src); isWord(r) {
		expr += `)(?:$|[^\p{L}\p{N}_])`
	} else {
		expr += `)`
	}
	return rewrite{pattern: regexp.MustCompile(expr), alias: alias}
}

func isWord(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// apply replaces every whole-word occurrence of the source name. The
// guard characters around a match are part of it, so the scan resumes
// on the guard to catch back-to-back occurrences.
func (rw rewrite) apply(line string) string {
	var b strings.Builder
	for {
		loc := rw.pattern.FindStringSubmatchIndex(line)
		if loc == nil {
			b.WriteString(line)
			return b.String()
		}
		start, end := loc[2], loc[3]
		b.WriteString(line[:start])
		b.WriteString(rw.alias)
		line = line[end:]
		if end == start {
			b.WriteString(line)
			return b.String()
		}
	}
}

// expandShorthand rewrites #create and #ufuns lines. Aliases introduced by
// "#create local = source/alias" apply to every line after the directive.
func (e *Engine) expandShorthand(lines []string) []string {
	ds := filter(Scan(lines, nil), Create, UFuns)
	if len(ds) == 0 {
		return lines
	}

	var (
		out      = make([]string, 0, len(lines))
		rewrites []rewrite
		next     = 0
	)
	for i, line := range lines {
		if next < len(ds) && ds[next].Line == i {
			d := ds[next]
			next++
			for _, rw := range rewrites {
				d.Args = rw.apply(d.Args)
			}
			switch d.Kind {
			case Create:
				stmts, rw, err := expandCreate(d.Args)
				if err != nil {
					e.warn(directiveError(MalformedDirective, d, err))
					continue
				}
				out = append(out, stmts...)
				if rw != nil {
					rewrites = append(rewrites, *rw)
				}
				e.logf("Create: %s", d.Args)
			case UFuns:
				if d.Args == "" {
					e.warn(directiveError(MalformedDirective, d, errors.New("missing owner")))
					continue
				}
				for _, s := range ufunsStatements {
					out = append(out, fmt.Sprintf(s, d.Args))
				}
				e.logf("UFuns: %s", d.Args)
			}
			continue
		}
		for _, rw := range rewrites {
			line = rw.apply(line)
		}
		out = append(out, line)
	}
	return out
}

// expandCreate parses "<local> = <target>" where target is a name or
// "<source>/<alias>".
func expandCreate(args string) ([]string, *rewrite, error) {
	m := assignPattern.FindStringSubmatch(args)
	if m == nil || strings.ContainsAny(m[1], " \t") || m[2] == "" {
		return nil, nil, errors.New("expected <local> = <target>")
	}
	local, target := m[1], strings.TrimSpace(m[2])

	src, alias, hasAlias := strings.Cut(target, "/")
	src, alias = strings.TrimSpace(src), strings.TrimSpace(alias)
	if hasAlias && (src == "" || alias == "") {
		return nil, nil, fmt.Errorf("malformed alias target %q", target)
	}

	stmts := []string{fmt.Sprintf(createStatement, local, src)}
	if !hasAlias {
		return stmts, nil, nil
	}
	stmts = append(stmts, fmt.Sprintf(aliasStatement, local, alias))
	rw := newRewrite(src, alias)
	return stmts, &rw, nil
}
