package source

import (
	"context"
	"errors"
	"path"
	"path/filepath"

	"github.com/rubiojr/mufmt/buildlog"
	"github.com/rubiojr/mufmt/config"
	"github.com/rubiojr/mufmt/remote"
	"github.com/spf13/afero"
)

// Resolver turns references into fragments. One Resolver serves one build;
// its Cache is shared by every resolution in that build.
type Resolver struct {
	// Fs is the filesystem local references are read from.
	Fs afero.Fs
	// Client fetches remote references.
	Client *remote.Client
	// Entry is the canonical entry filename of directories and repositories.
	Entry string
	// Cache holds every fetched identity.
	Cache *Cache
	// Log receives one entry per resolution.
	Log *buildlog.Log
}

// NewResolver returns a Resolver configured from cfg reading the OS
// filesystem.
func NewResolver(cfg config.Config, log *buildlog.Log) *Resolver {
	cfg = cfg.Normalize()
	return &Resolver{
		Fs: afero.NewOsFs(),
		Client: &remote.Client{
			APIRoot: cfg.APIRoot,
			User:    cfg.Credentials.User,
			Token:   cfg.Credentials.Token,
			Timeout: cfg.Timeout,
		},
		Entry: cfg.Entry,
		Cache: NewCache(),
		Log:   log,
	}
}

func (r *Resolver) entry() string {
	if r.Entry == "" {
		return config.DefaultEntry
	}
	return r.Entry
}

func (r *Resolver) logf(format string, args ...any) {
	if r.Log != nil {
		r.Log.Infof(format, args...)
	}
}

// Identify rewrites ref to its final form (directories to their entry
// file, locators to a repository path) and returns its cache identity
// without fetching anything. Text references have an empty identity.
func (r *Resolver) Identify(ref Ref) (Ref, string, error) {
	switch ref.Kind {
	case Text:
		return ref, "", nil
	case File:
		return ref, absPath(ref.BaseDir, ref.Location), nil
	case Directory:
		dir := absPath(ref.BaseDir, ref.Location)
		return Ref{Kind: File, Location: filepath.Join(dir, r.entry())}, filepath.Join(dir, r.entry()), nil
	case Remote:
		repo, p := ref.Repo, ""
		if remote.IsLocator(ref.Location) || repo.IsZero() {
			loc, err := remote.ParseLocator(ref.Location)
			if err != nil {
				return ref, "", newError(MalformedLocator, ref.Location, err)
			}
			repo, p = loc.Repo, loc.Path
			if p == "" {
				p = r.entry()
			}
		} else {
			p = remote.JoinPath(ref.BaseDir, ref.Location)
		}
		out := Ref{Kind: Remote, Location: p, Repo: repo}
		return out, r.Client.ContentsURL(repo, p), nil
	default:
		return ref, "", newError(MalformedLocator, ref.Location, errors.New("unknown reference kind"))
	}
}

// Resolve returns the fragment ref points at, fetching it at most once
// per build.
func (r *Resolver) Resolve(ctx context.Context, ref Ref) (*Fragment, error) {
	final, id, err := r.Identify(ref)
	if err != nil {
		return nil, err
	}
	if final.Kind == Text {
		r.logf("Reading text")
		return &Fragment{Ref: final, Dir: ref.BaseDir, Content: final.Location}, nil
	}

	content, hit, err := r.Cache.Load(ctx, id, func(ctx context.Context) (string, error) {
		return r.fetch(ctx, final, id)
	})
	if hit {
		r.logf("Reading (cached): %s", displayID(final, id))
	}
	if err != nil {
		return nil, err
	}

	frag := &Fragment{Ref: final, ID: id, Content: content}
	if final.Kind == Remote {
		frag.Dir = path.Dir(final.Location)
	} else {
		frag.Dir = filepath.Dir(id)
	}
	return frag, nil
}

func (r *Resolver) fetch(ctx context.Context, ref Ref, id string) (string, error) {
	switch ref.Kind {
	case Remote:
		r.logf("Downloading: %s", displayID(ref, id))
		text, err := r.Client.Fetch(ctx, id)
		if err != nil {
			return "", newError(NetworkError, displayID(ref, id), err)
		}
		return text, nil
	default:
		r.logf("Reading: %s", id)
		data, err := afero.ReadFile(r.Fs, id)
		if err != nil {
			return "", newError(NotFound, id, err)
		}
		return string(data), nil
	}
}

// displayID shortens remote identities to their locator form for logs.
func displayID(ref Ref, id string) string {
	if ref.Kind == Remote {
		return remote.Locator{Scheme: remote.Scheme, Repo: ref.Repo, Path: ref.Location}.String()
	}
	return id
}
