package main

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/Veraticus/colorout/pkg/config"
	"github.com/Veraticus/colorout/pkg/logging"
)

// cli carries the streams and global flags shared by every command
type cli struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer

	configPath string
	verbose    bool
	color      colorFlag

	exitCode int
}

// runOptions holds flags of the default run command
type runOptions struct {
	summary    bool
	summarySet bool
	noWatch    bool
}

// colorFlag is a pflag.Value accepting auto, always or never
type colorFlag string

var _ pflag.Value = (*colorFlag)(nil)

func (c *colorFlag) String() string { return string(*c) }

func (c *colorFlag) Set(v string) error {
	switch v {
	case config.ColorAuto, config.ColorAlways, config.ColorNever:
		*c = colorFlag(v)
		return nil
	}
	return fmt.Errorf("must be one of auto, always, never")
}

func (c *colorFlag) Type() string { return "mode" }

// Execute runs the CLI and returns the process exit code
func Execute(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	c := &cli{in: stdin, out: stdout, errOut: stderr}
	root := newRootCommand(c)
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(context.Background()); err != nil {
		_, _ = fmt.Fprintf(stderr, "colorout: %v\n", err)
		if c.exitCode == 0 {
			return 1
		}
	}
	return c.exitCode
}

func newRootCommand(c *cli) *cobra.Command {
	opts := &runOptions{}
	root := &cobra.Command{
		Use:   "colorout [flags] [--] command [args...]",
		Short: "Colorize build output by classifying each line",
		Long: `colorout runs a build command under a pseudo-terminal and colors each line of
its output by the first matching classification rule: errors red, warnings
yellow, build headers green and so on.

Rules are ordered regular expressions stored in the settings file. Edit them
with "colorout rules"; a running colorout picks up changes immediately.`,
		Example: `  # Run a build
  colorout make -j8

  # Flags for the wrapped command go after --
  colorout -- go test -v ./...

  # Colorize a log file
  colorout classify < build.log`,
		Args: cobra.ArbitraryArgs,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.Setup(c.verbose, c.errOut)
			log.Debug().Str("command", cmd.Name()).Msg("Command started")
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			opts.summarySet = cmd.Flags().Changed("summary")
			return c.run(cmd.Context(), args, opts)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// everything after the command name belongs to the command
	root.Flags().SetInterspersed(false)

	root.PersistentFlags().StringVar(&c.configPath, "config", "", "Path to config file")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "Enable debug logging")
	root.PersistentFlags().Var(&c.color, "color", "Color output: auto, always, never")

	root.Flags().BoolVar(&opts.summary, "summary", false, "Print a summary of errors and warnings on exit")
	root.Flags().BoolVar(&opts.noWatch, "no-watch", false, "Do not reload rules when the settings file changes")

	root.AddCommand(newClassifyCommand(c))
	root.AddCommand(newRulesCommand(c))

	return root
}

// loadConfig loads the configuration and applies global flag overrides
func (c *cli) loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if c.configPath != "" {
		cfg, err = config.LoadFrom(c.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if c.color != "" {
		cfg.Color = string(c.color)
	}
	return cfg, nil
}

// withDependencies builds the dependencies for one command invocation
func (c *cli) withDependencies(fn func(cfg *config.Config, deps *Dependencies) error) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	deps, err := NewDependencies(cfg, c.out, c.errOut)
	if err != nil {
		return fmt.Errorf("error creating dependencies: %w", err)
	}
	defer deps.Close()
	return fn(cfg, deps)
}

func (c *cli) run(ctx context.Context, args []string, opts *runOptions) error {
	return c.withDependencies(func(cfg *config.Config, deps *Dependencies) error {
		if opts.summarySet {
			deps.EnableSummary(opts.summary)
		}
		if opts.noWatch {
			cfg.Watch = false
		}

		log.Debug().Strs("args", args).Str("store", cfg.Store).Msg("Starting command")

		app := NewApplication(deps, c.out)
		code, err := app.Run(ctx, args[0], args[1:])
		c.exitCode = code
		return err
	})
}

func newClassifyCommand(c *cli) *cobra.Command {
	var summary bool
	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Colorize standard input",
		Long: `Read lines from standard input and write them to standard output, colored by
the active rules. Use it to colorize logs or output that is already piped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withDependencies(func(cfg *config.Config, deps *Dependencies) error {
				if cmd.Flags().Changed("summary") {
					deps.EnableSummary(summary)
				}
				return NewApplication(deps, c.out).Classify(c.in)
			})
		},
	}
	cmd.Flags().BoolVar(&summary, "summary", false, "Print a summary of errors and warnings at end of input")
	return cmd
}
