// Package build runs the whole pipeline for one input: resolve and
// flatten includes, apply directives, compress, and assemble.
package build

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rubiojr/mufmt/assemble"
	"github.com/rubiojr/mufmt/buildlog"
	"github.com/rubiojr/mufmt/compress"
	"github.com/rubiojr/mufmt/config"
	"github.com/rubiojr/mufmt/include"
	"github.com/rubiojr/mufmt/preprocess"
	"github.com/rubiojr/mufmt/source"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Result is everything one build produced. A failed build still carries
// its log and whatever text it got to.
type Result struct {
	ID string
	// Text is the assembled script.
	Text string
	// Body is the compressed script without header and footer.
	Body    string
	Headers []preprocess.Meta
	Footers []preprocess.Meta
	Log     []buildlog.Entry
	// Errors are the non-fatal problems, in the order they were logged.
	Errors []error
	// Sources lists the fragments that were included, in document order,
	// followed by the files injected with #file.
	Sources []string
	Stats   include.Stats
}

type options struct {
	fs      afero.Fs
	client  *http.Client
	logger  *zap.Logger
	now     func() time.Time
	workDir string
}

// Option configures a build.
type Option func(*options)

// WithFs reads local fragments from fs instead of the OS filesystem.
func WithFs(fs afero.Fs) Option {
	return func(o *options) { o.fs = fs }
}

// WithHTTPClient fetches remote fragments with c.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.client = c }
}

// WithLogger mirrors the build log to logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithClock sets the time source of log entries.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithWorkDir sets the directory literal text input resolves its
// references from. Defaults to the process working directory.
func WithWorkDir(dir string) Option {
	return func(o *options) { o.workDir = dir }
}

// Build formats input, which is a file, a directory, a repository locator
// or literal text. The error is non-nil only when the root cannot be
// resolved or ctx ends; the returned Result is never nil.
func Build(ctx context.Context, input string, cfg config.Config, opts ...Option) (*Result, error) {
	o := &options{fs: afero.NewOsFs(), logger: zap.NewNop()}
	for _, opt := range opts {
		opt(o)
	}
	if o.workDir == "" {
		o.workDir, _ = os.Getwd()
	}
	cfg = cfg.Normalize()

	res := &Result{ID: uuid.NewString()}
	log := buildlog.New(o.logger.With(zap.String("build", res.ID)))
	if o.now != nil {
		log.WithClock(o.now)
	}
	finish := func(err error) (*Result, error) {
		if err != nil {
			log.Error(err)
		}
		res.Log = log.Entries()
		res.Errors = log.Errors()
		return res, err
	}

	resolver := source.NewResolver(cfg, log)
	resolver.Fs = o.fs
	resolver.Client.HTTP = o.client

	log.Infof("Begin formatting")
	if strings.TrimSpace(input) == "" {
		return finish(&source.ResolutionError{Kind: source.NotFound, Err: errors.New("empty source")})
	}
	root := source.Classify(o.fs, input)
	if root.Kind == source.Text {
		root.BaseDir = o.workDir
	}
	log.Infof("Opening: %s", root)

	expander := &include.Expander{Resolver: resolver, Log: log, Concurrency: cfg.Concurrency}
	flat, err := expander.Expand(ctx, root)
	res.Stats = flat.Stats
	if err != nil {
		return finish(err)
	}
	res.Sources = flat.Sources
	res.Text = flat.Text
	log.Infof("Initial document built")

	engine := &preprocess.Engine{
		Resolver:       resolver,
		Log:            log,
		RecursionLimit: cfg.RecursionLimit,
		MetaKeywords:   cfg.Meta,
		BaseDir:        flat.Root.Dir,
		Concurrency:    cfg.Concurrency,
	}
	doc, err := engine.Run(ctx, flat.Text)
	if err != nil {
		return finish(err)
	}
	res.Headers, res.Footers = doc.Headers, doc.Footers
	res.Sources = mergeSources(res.Sources, doc.Files)

	log.Infof("Compressing document")
	body, cerrs := compress.Compress(doc.Text, compress.Options{MaxLineLength: cfg.MaxLineLength})
	for _, cerr := range cerrs {
		log.Warn(cerr)
	}
	res.Body = body

	log.Infof("Assembling document")
	res.Text = assemble.Assemble(assemble.Document{
		Headers: doc.Headers,
		Footers: doc.Footers,
		Body:    body,
	})
	log.Infof("Done: %d fragments, %d fetches", len(flat.Sources), resolver.Cache.Fetches())
	return finish(nil)
}

func mergeSources(sources, files []string) []string {
	seen := make(map[string]bool, len(sources))
	for _, s := range sources {
		seen[s] = true
	}
	for _, f := range files {
		if !seen[f] {
			seen[f] = true
			sources = append(sources, f)
		}
	}
	return sources
}
