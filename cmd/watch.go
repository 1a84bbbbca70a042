package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/fsnotify/fsnotify"
	"github.com/rubiojr/mufmt/build"
	"github.com/rubiojr/mufmt/config"
)

// watcher tracks the directories of the local fragments of the last build.
type watcher struct {
	fsw  *fsnotify.Watcher
	dirs map[string]bool
}

// sync watches dirs and stops watching directories no longer needed.
func (w *watcher) sync(dirs []string) error {
	want := make(map[string]bool, len(dirs))
	for _, d := range dirs {
		want[d] = true
		if w.dirs[d] {
			continue
		}
		if err := w.fsw.Add(d); err != nil {
			return fmt.Errorf("failed to watch directory %s: %w", d, err)
		}
		w.dirs[d] = true
	}
	for d := range w.dirs {
		if !want[d] {
			w.fsw.Remove(d)
			delete(w.dirs, d)
		}
	}
	return nil
}

// watchDirs returns the directories holding the local sources of a build.
// Remote sources are skipped. When the build failed before reading
// anything, the directory of the input itself is watched.
func watchDirs(input string, res *build.Result) []string {
	seen := make(map[string]bool)
	var dirs []string
	add := func(d string) {
		if !seen[d] {
			seen[d] = true
			dirs = append(dirs, d)
		}
	}
	if res != nil {
		for _, s := range res.Sources {
			if strings.Contains(s, "://") {
				continue
			}
			add(filepath.Dir(s))
		}
	}
	if len(dirs) == 0 && !strings.Contains(input, "\n") {
		if abs, err := filepath.Abs(input); err == nil {
			if filepath.Ext(abs) == "" {
				add(abs)
			} else {
				add(filepath.Dir(abs))
			}
		}
	}
	return dirs
}

// relevant filters out events that cannot change the output, including
// writes to the output file itself.
func relevant(ev fsnotify.Event, out string) bool {
	if strings.HasPrefix(filepath.Base(ev.Name), ".") {
		return false
	}
	if out != "" {
		if abs, err := filepath.Abs(ev.Name); err == nil && abs == out {
			return false
		}
	}
	return ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0
}

// watch builds input, then rebuilds it every time one of its local
// sources changes, until ctx ends. Build failures are reported and
// watching goes on.
func (a *app) watch(ctx context.Context, input string, cfg config.Config, out string, verbose bool, opts []build.Option) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fsw.Close()
	w := &watcher{fsw: fsw, dirs: make(map[string]bool)}

	outAbs := ""
	if out != "" {
		outAbs, _ = filepath.Abs(out)
	}

	rebuild := func() error {
		res, err := a.runBuild(ctx, input, cfg, out, verbose, opts)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			fmt.Fprintf(a.stderr, "%s %v\n", a.paint(color.FgRed, "error:"), err)
		}
		if err := w.sync(watchDirs(input, res)); err != nil {
			return err
		}
		fmt.Fprintf(a.stderr, "%s %d director%s\n", a.paint(color.FgCyan, "watching"), len(w.dirs), plural(len(w.dirs)))
		return nil
	}
	if err := rebuild(); err != nil {
		return err
	}

	timer := time.NewTimer(a.debounce)
	timer.Stop()
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if relevant(ev, outAbs) {
				timer.Reset(a.debounce)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(a.stderr, "%s %v\n", a.paint(color.FgYellow, "watch:"), err)
		case <-timer.C:
			if err := rebuild(); err != nil {
				return err
			}
		}
	}
}

func plural(n int) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}
