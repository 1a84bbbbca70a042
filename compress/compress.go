// Package compress folds softcode into one line per command so it can be
// pasted into a line-oriented console.
package compress

import (
	"fmt"
	"regexp"
	"strings"
)

// Marker is the line that closes a block without adding content.
const Marker = "-"

var (
	spaceRun     = regexp.MustCompile(`\s+`)
	bracketSpace = regexp.MustCompile(`\]\s+\[`)
	subSpace     = regexp.MustCompile(`(?i)\s*(%[rt])\s*`)
)

// Options tunes Compress.
type Options struct {
	// MaxLineLength reports blocks longer than this many bytes. Zero
	// disables the check.
	MaxLineLength int
}

// CompressionError reports a block that exceeds Options.MaxLineLength.
// The block is still emitted.
type CompressionError struct {
	// Block is the zero-based index of the output line.
	Block  int
	Length int
	Max    int
	// Prefix is the start of the block, for log messages.
	Prefix string
}

func (e *CompressionError) Error() string {
	return fmt.Sprintf("block %d is %d bytes long (limit %d): %s...", e.Block+1, e.Length, e.Max, e.Prefix)
}

// StartsBlock reports whether line begins a new command.
func StartsBlock(line string) bool {
	return strings.HasPrefix(line, "@") || strings.HasPrefix(line, "&")
}

// Blocks splits text into raw blocks. A line starting with @ or & opens a
// block, other non-blank lines continue the open one, and a Marker line
// closes it. Lines before the first command form a block of their own.
func Blocks(text string) []string {
	var (
		blocks []string
		acc    []string
	)
	flush := func() {
		if len(acc) > 0 {
			blocks = append(blocks, strings.Join(acc, " "))
			acc = nil
		}
	}
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		switch {
		case strings.TrimSpace(line) == Marker:
			flush()
		case strings.TrimSpace(line) == "":
		case StartsBlock(line):
			flush()
			acc = append(acc, line)
		default:
			acc = append(acc, line)
		}
	}
	flush()
	return blocks
}

// Normalize collapses whitespace runs, removes whitespace between "]" and
// "[" and around %r and %t, and trims the block.
func Normalize(block string) string {
	block = spaceRun.ReplaceAllString(block, " ")
	block = bracketSpace.ReplaceAllString(block, "][")
	block = subSpace.ReplaceAllString(block, "$1")
	return strings.TrimSpace(block)
}

// Compress returns the normalized, non-empty blocks of text joined by
// newlines, in order of first appearance, together with one
// CompressionError per block over the length limit.
func Compress(text string, opts Options) (string, []error) {
	var (
		out  []string
		errs []error
	)
	for _, b := range Blocks(text) {
		b = Normalize(b)
		if b == "" {
			continue
		}
		if opts.MaxLineLength > 0 && len(b) > opts.MaxLineLength {
			errs = append(errs, &CompressionError{
				Block:  len(out),
				Length: len(b),
				Max:    opts.MaxLineLength,
				Prefix: prefix(b, 40),
			})
		}
		out = append(out, b)
	}
	return strings.Join(out, "\n"), errs
}

func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
