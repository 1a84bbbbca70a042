package preprocess

import (
	"errors"
	"regexp"
)

// Meta is one header or footer entry.
type Meta struct {
	Name  string
	Value string
}

var assignPattern = regexp.MustCompile(`^(.+?)\s*=\s*(.*)$`)

// extractMeta removes #header, #footer and shorthand metadata lines,
// returning the remaining lines with the headers and footers in document
// order.
func (e *Engine) extractMeta(lines []string) ([]string, []Meta, []Meta) {
	var (
		headers, footers []Meta
		edits            []edit
	)
	for _, d := range filter(Scan(lines, e.metaKeywords()), Header, Footer, MetaKeyword) {
		edits = append(edits, drop(d))
		switch d.Kind {
		case MetaKeyword:
			if d.Args == "" {
				e.warn(directiveError(MalformedDirective, d, errors.New("missing value")))
				continue
			}
			headers = append(headers, Meta{Name: d.Keyword, Value: d.Args})
			e.logf("Header: %s", d.Keyword)
		default:
			m := assignPattern.FindStringSubmatch(d.Args)
			if m == nil {
				e.warn(directiveError(MalformedDirective, d, errors.New("expected <name> = <value>")))
				continue
			}
			entry := Meta{Name: m[1], Value: m[2]}
			if d.Kind == Header {
				headers = append(headers, entry)
				e.logf("Header: %s", entry.Name)
			} else {
				footers = append(footers, entry)
				e.logf("Footer: %s", entry.Name)
			}
		}
	}
	return applyEdits(lines, edits), headers, footers
}
