// Package assemble renders the final script: metadata header, compressed
// body, and footer.
package assemble

import (
	"fmt"
	"strings"

	"github.com/rubiojr/mufmt/preprocess"
)

// NameWidth is the column metadata values are aligned to.
const NameWidth = 20

// Attribution closes every script.
var Attribution = []string{
	"@@",
	"@@ Formatted with mufmt",
	"@@",
}

// Document is what the assembler consumes.
type Document struct {
	Headers []preprocess.Meta
	Footers []preprocess.Meta
	// Body is the compressed script.
	Body string
}

// MetaLine renders one metadata entry as a marked line.
func MetaLine(m preprocess.Meta) string {
	return fmt.Sprintf("@@ %-*s %s", NameWidth, m.Name, m.Value)
}

// Assemble joins the header block, a blank line, the body, a blank line
// and the footer block. Without headers the header block and its blank
// line are left out.
func Assemble(doc Document) string {
	var b strings.Builder
	if len(doc.Headers) > 0 {
		for _, h := range doc.Headers {
			b.WriteString(MetaLine(h))
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}

	b.WriteString(doc.Body)
	b.WriteString("\n\n")

	for _, f := range doc.Footers {
		b.WriteString(MetaLine(f))
		b.WriteByte('\n')
	}
	for _, line := range Attribution {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}
