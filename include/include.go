// Package include flattens a fragment graph: every "#include <path>" line
// is replaced, in place, by the recursively expanded fragment it names.
//
// Resolution is driven by an explicit worklist. Sibling includes are
// fetched concurrently, but each expansion is placed by the position of
// its directive, so the flattened text never depends on fetch order.
package include

import (
	"context"
	"regexp"
	"strings"

	"github.com/rubiojr/mufmt/buildlog"
	"github.com/rubiojr/mufmt/source"
)

var (
	includePattern = regexp.MustCompile(`(?i)^#include\s+(.+?)\s*$`)
	filePattern    = regexp.MustCompile(`(?i)^(#file\s+)(.+?)\s*$`)
)

// DefaultConcurrency bounds in-flight resolutions when none is set.
const DefaultConcurrency = 8

// Expander flattens includes using a Resolver shared with the rest of
// the build.
type Expander struct {
	Resolver *source.Resolver
	Log      *buildlog.Log
	// Concurrency bounds in-flight resolutions.
	Concurrency int
}

// Result is a flattened document.
type Result struct {
	Text string
	// Root is the resolved root fragment. nil when the root failed.
	Root *source.Fragment
	// Sources lists the identities of every fragment placed in Text, in
	// document order, without duplicates.
	Sources []string
	// Errors holds the per-branch failures. The failed directives were
	// dropped from Text.
	Errors []error
	Stats  Stats
}

// node is one include site. The root node has no parent directive.
type node struct {
	root  bool
	ref   source.Ref
	arg   string
	chain []string
	frag  *source.Fragment
	err   error
	parts []part
}

// part is either a literal line or a nested include.
type part struct {
	line  string
	child *node
}

func (e *Expander) logf(format string, args ...any) {
	if e.Log != nil {
		e.Log.Infof(format, args...)
	}
}

// Expand resolves root and every fragment it includes, transitively, and
// returns the flattened text. Only a failure of root itself is returned
// as an error; nested failures are logged and reported in Result.Errors.
func (e *Expander) Expand(ctx context.Context, root source.Ref) (*Result, error) {
	rootNode := &node{root: true, ref: root, arg: root.String()}
	limit := e.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	s := &scheduler{limit: limit}
	if err := s.run(ctx, rootNode, e.resolve, e.discover); err != nil {
		return &Result{Stats: s.stats}, err
	}

	res := &Result{Root: rootNode.frag, Stats: s.stats}
	if rootNode.err != nil {
		return res, rootNode.err
	}

	var lines []string
	seen := make(map[string]bool)
	e.render(rootNode, &lines, res, seen)
	res.Text = strings.Join(lines, "\n")
	return res, nil
}

// resolve fetches the fragment for n. It runs on a worker goroutine and
// only touches n.
func (e *Expander) resolve(ctx context.Context, n *node) {
	_, id, err := e.Resolver.Identify(n.ref)
	if err != nil {
		n.err = err
		return
	}
	if id != "" {
		for _, ancestor := range n.chain {
			if ancestor == id {
				n.err = &source.ResolutionError{
					Kind: source.CycleDetected,
					Ref:  n.arg,
					Err:  cycleError(append(append([]string(nil), n.chain...), id)),
				}
				return
			}
		}
	}
	n.frag, n.err = e.Resolver.Resolve(ctx, n.ref)
}

// discover scans a resolved fragment for includes and returns the nodes
// to schedule next. It runs on the scheduler goroutine.
func (e *Expander) discover(n *node) []*node {
	if n.err != nil {
		if !n.root && e.Log != nil {
			e.Log.Error(n.err)
		}
		return nil
	}
	content := strings.ReplaceAll(n.frag.Content, "\r\n", "\n")
	content = strings.TrimSuffix(content, "\n")

	chain := n.chain
	if n.frag.ID != "" {
		chain = append(append([]string(nil), n.chain...), n.frag.ID)
	}

	var children []*node
	for _, line := range strings.Split(content, "\n") {
		if m := includePattern.FindStringSubmatch(line); m != nil {
			ref := n.frag.Child(e.Resolver.Fs, m[1])
			e.logf("Including: %s", ref)
			child := &node{ref: ref, arg: m[1], chain: chain}
			children = append(children, child)
			n.parts = append(n.parts, part{child: child})
			continue
		}
		if m := filePattern.FindStringSubmatch(line); m != nil {
			line = m[1] + n.frag.Anchor(e.Resolver.Fs, m[2])
		}
		n.parts = append(n.parts, part{line: line})
	}
	return children
}

// render appends the flattened lines of n. Failed children contribute
// nothing; their directive line is dropped.
func (e *Expander) render(n *node, lines *[]string, res *Result, seen map[string]bool) {
	if n.frag.ID != "" && !seen[n.frag.ID] {
		seen[n.frag.ID] = true
		res.Sources = append(res.Sources, n.frag.ID)
	}
	for _, p := range n.parts {
		if p.child == nil {
			*lines = append(*lines, p.line)
			continue
		}
		if p.child.err != nil {
			res.Errors = append(res.Errors, p.child.err)
			continue
		}
		e.render(p.child, lines, res, seen)
	}
}

type cycleError []string

func (c cycleError) Error() string {
	return "include cycle: " + strings.Join(c, " -> ")
}
