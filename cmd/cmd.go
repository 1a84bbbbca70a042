package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/rubiojr/mufmt/build"
	"github.com/rubiojr/mufmt/buildlog"
	"github.com/rubiojr/mufmt/compress"
	"github.com/rubiojr/mufmt/config"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.org/x/term"
)

// app carries the streams and settings shared by every command.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	noColor  bool
	debounce time.Duration
	// buildOpts are appended to every build. Tests use it to swap the
	// filesystem and HTTP client.
	buildOpts []build.Option
}

func newApp(stdin io.Reader, stdout, stderr io.Writer) *app {
	return &app{stdin: stdin, stdout: stdout, stderr: stderr, debounce: 200 * time.Millisecond}
}

// Execute runs the mufmt CLI with the given version string.
func Execute(version string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := newApp(os.Stdin, os.Stdout, os.Stderr)
	if err := a.command(version).Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", a.paint(color.FgRed, "error:"), err)
		stop()
		os.Exit(1)
	}
}

func buildFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Write the formatted script to this file instead of stdout",
		},
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Configuration file (default: ./mufmt.yaml when present)",
		},
		&cli.IntFlag{
			Name:  "recursion-limit",
			Usage: "Macro expansion passes",
		},
		&cli.StringFlag{
			Name:    "github-user",
			Usage:   "User for authenticated repository fetches",
			Sources: cli.EnvVars("MUFMT_GITHUB_USER"),
		},
		&cli.StringFlag{
			Name:    "github-token",
			Usage:   "Token for authenticated repository fetches",
			Sources: cli.EnvVars("MUFMT_GITHUB_TOKEN"),
		},
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "Print the build log",
		},
		&cli.BoolFlag{
			Name:  "debug",
			Usage: "Mirror the build log to a structured development logger",
		},
		&cli.BoolFlag{
			Name:    "no-color",
			Aliases: []string{"C"},
			Usage:   "Disable ANSI color output",
		},
		&cli.BoolFlag{
			Name:    "watch",
			Aliases: []string{"w"},
			Usage:   "Rebuild when a local source changes",
		},
	}
}

func (a *app) command(version string) *cli.Command {
	return &cli.Command{
		Name:                   "mufmt",
		Usage:                  "Assemble, expand and compress MUSH softcode",
		ArgsUsage:              "<source>",
		Version:                version,
		UseShortOptionHandling: true,
		Reader:                 a.stdin,
		Writer:                 a.stdout,
		ErrWriter:              a.stderr,
		Flags:                  buildFlags(),
		// Allow `mufmt <source>` as shorthand for `mufmt build <source>`
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() > 0 {
				return a.buildAction(ctx, cmd)
			}
			return cli.DefaultShowRootCommandHelp(cmd)
		},
		Commands: []*cli.Command{
			{
				Name:      "build",
				Usage:     "Format a file, directory, github:owner/repo locator or literal text",
				ArgsUsage: "<source>",
				Flags:     buildFlags(),
				Action:    a.buildAction,
			},
			{
				Name:      "compress",
				Usage:     "Compress raw softcode, one command per line",
				ArgsUsage: "[file]",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "max-line-length",
						Usage: "Warn about lines longer than this (0 disables)",
					},
					&cli.BoolFlag{
						Name:    "no-color",
						Aliases: []string{"C"},
						Usage:   "Disable ANSI color output",
					},
				},
				Action: a.compressAction,
			},
			{
				Name:  "config",
				Usage: "Manage mufmt configuration",
				Commands: []*cli.Command{
					{
						Name:      "init",
						Usage:     "Write the default configuration",
						ArgsUsage: "[path]",
						Flags: []cli.Flag{
							&cli.BoolFlag{
								Name:    "force",
								Aliases: []string{"f"},
								Usage:   "Overwrite an existing file",
							},
						},
						Action: a.configInitAction,
					},
				},
			},
		},
	}
}

// loadConfig reads the configuration file and applies flag overrides.
func (a *app) loadConfig(cmd *cli.Command) (config.Config, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return config.Config{}, err
	}
	if cmd.IsSet("recursion-limit") {
		n := cmd.Int("recursion-limit")
		if n < 1 {
			return config.Config{}, fmt.Errorf("recursion limit must be at least 1, got %d", n)
		}
		cfg.RecursionLimit = n
	}
	if u := cmd.String("github-user"); u != "" {
		cfg.Credentials.User = u
	}
	if t := cmd.String("github-token"); t != "" {
		cfg.Credentials.Token = t
	}
	return *cfg, nil
}

func (a *app) buildAction(ctx context.Context, cmd *cli.Command) error {
	a.noColor = cmd.Bool("no-color")
	if cmd.NArg() < 1 {
		return fmt.Errorf("usage: mufmt build [flags] <source>")
	}
	cfg, err := a.loadConfig(cmd)
	if err != nil {
		return err
	}

	input := cmd.Args().First()
	opts := a.buildOptions(cmd)
	out := cmd.String("output")
	verbose := cmd.Bool("verbose")

	if cmd.Bool("watch") {
		return a.watch(ctx, input, cfg, out, verbose, opts)
	}
	_, err = a.runBuild(ctx, input, cfg, out, verbose, opts)
	return err
}

func (a *app) buildOptions(cmd *cli.Command) []build.Option {
	opts := append([]build.Option(nil), a.buildOpts...)
	if cmd.Bool("debug") {
		if logger, err := zap.NewDevelopment(); err == nil {
			opts = append(opts, build.WithLogger(logger))
		}
	}
	return opts
}

// runBuild builds input once, reports the log and writes the script.
func (a *app) runBuild(ctx context.Context, input string, cfg config.Config, out string, verbose bool, opts []build.Option) (*build.Result, error) {
	res, err := build.Build(ctx, input, cfg, opts...)
	a.report(res, verbose, err)
	if err != nil {
		return res, err
	}
	if out == "" {
		_, err = io.WriteString(a.stdout, res.Text)
		return res, err
	}
	if err := os.WriteFile(out, []byte(res.Text), 0644); err != nil {
		return res, fmt.Errorf("writing %s: %w", out, err)
	}
	fmt.Fprintf(a.stderr, "%s %s\n", a.paint(color.FgGreen, "wrote"), out)
	return res, nil
}

// report prints the whole build log when verbose, otherwise only its
// warnings and errors. fatal is left out; the caller prints it.
func (a *app) report(res *build.Result, verbose bool, fatal error) {
	if res == nil {
		return
	}
	for _, e := range res.Log {
		switch {
		case e.Level == buildlog.LevelError:
			if fatal == nil || e.Err != fatal {
				fmt.Fprintln(a.stderr, a.paint(color.FgRed, e.String()))
			}
		case e.Level == buildlog.LevelWarn:
			fmt.Fprintln(a.stderr, a.paint(color.FgYellow, e.String()))
		case verbose:
			fmt.Fprintln(a.stderr, e.String())
		}
	}
}

func (a *app) compressAction(ctx context.Context, cmd *cli.Command) error {
	a.noColor = cmd.Bool("no-color")
	var (
		data []byte
		err  error
	)
	if cmd.NArg() > 0 {
		data, err = os.ReadFile(cmd.Args().First())
	} else {
		data, err = io.ReadAll(a.stdin)
	}
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	text, errs := compress.Compress(string(data), compress.Options{MaxLineLength: cmd.Int("max-line-length")})
	for _, e := range errs {
		fmt.Fprintf(a.stderr, "%s %v\n", a.paint(color.FgYellow, "warn:"), e)
	}
	if text == "" {
		return nil
	}
	_, err = fmt.Fprintln(a.stdout, text)
	return err
}

func (a *app) configInitAction(ctx context.Context, cmd *cli.Command) error {
	path := "mufmt.yaml"
	if cmd.NArg() > 0 {
		path = cmd.Args().First()
	}
	if _, err := os.Stat(path); err == nil && !cmd.Bool("force") {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if err := config.Write(path, config.Default()); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "wrote %s\n", path)
	return nil
}

// paint colors s when stderr is a terminal and color was not disabled.
func (a *app) paint(attr color.Attribute, s string) string {
	c := color.New(attr)
	if a.useColor() {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c.Sprint(s)
}

func (a *app) useColor() bool {
	if a.noColor || os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := a.stderr.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
