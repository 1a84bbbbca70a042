package preprocess

import (
	"context"
	"errors"
	"strings"

	"github.com/rubiojr/mufmt/remote"
	"github.com/rubiojr/mufmt/source"
	"golang.org/x/sync/errgroup"
)

const (
	// QuoteMarker prefixes every injected line.
	QuoteMarker = "@@ "
	// BlockMarker follows every injected line and separates blocks.
	BlockMarker = "-"
)

// Resolver resolves #file references.
type Resolver interface {
	Resolve(ctx context.Context, ref source.Ref) (*source.Fragment, error)
}

// fileRef builds the reference for a #file argument. Arguments coming out
// of the include expander are already absolute paths or full locators.
func (e *Engine) fileRef(arg string) source.Ref {
	if remote.IsLocator(arg) {
		return source.Ref{Kind: source.Remote, Location: arg}
	}
	return source.Ref{Kind: source.File, Location: arg, BaseDir: e.BaseDir}
}

// quote renders content as marked lines, one block each. Blank lines are
// kept as empty marked lines.
func quote(content string) []string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.TrimSuffix(content, "\n")
	src := strings.Split(content, "\n")
	out := make([]string, 0, 2*len(src))
	for _, line := range src {
		out = append(out, QuoteMarker+line, BlockMarker)
	}
	return out
}

// injectFiles replaces every #file directive with the quoted content of
// the file it names. Siblings are resolved concurrently and placed by
// position. A failed injection is logged and its line dropped. The
// identities of the injected fragments are returned in document order,
// without duplicates.
func (e *Engine) injectFiles(ctx context.Context, lines []string) ([]string, []string, error) {
	ds := filter(Scan(lines, nil), File)
	if len(ds) == 0 {
		return lines, nil, nil
	}
	if e.Resolver == nil {
		return nil, nil, errors.New("file injection needs a resolver")
	}

	results := make([][]string, len(ds))
	ids := make([]string, len(ds))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency())
	for i, d := range ds {
		if d.Args == "" {
			e.warn(directiveError(MalformedDirective, d, errors.New("missing path")))
			continue
		}
		g.Go(func() error {
			e.logf("Rendering file: %s", d.Args)
			frag, err := e.Resolver.Resolve(gctx, e.fileRef(d.Args))
			if err != nil {
				e.fail(err)
				return nil
			}
			results[i] = quote(frag.Content)
			ids[i] = frag.ID
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	edits := make([]edit, len(ds))
	for i, d := range ds {
		edits[i] = edit{start: d.Line, end: d.Line + 1, repl: results[i]}
	}

	var files []string
	seen := make(map[string]bool)
	for _, id := range ids {
		if id != "" && !seen[id] {
			seen[id] = true
			files = append(files, id)
		}
	}
	return applyEdits(lines, edits), files, nil
}
