package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/tally/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose   bool
	Format    string // "json" | "text"
	ConfigDir string // screen definitions; empty uses the embedded defaults
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the tally CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "tally",
		Short: "tally - paginated record browser",
		Long: `Browse, edit and serve paginated record collections.

Screens are declared in CUE. Records live in SQLite and can be served
over HTTP so a remote browser pages through the same data.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigDir, "config", "", "directory of CUE screen definitions")

	cmd.AddCommand(NewBrowseCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))

	return cmd
}

// JSONOutput reports whether --format json was given.
func (o *RootOptions) JSONOutput() bool {
	return o.Format == "json"
}

// loadConfig returns the screens from --config, or the embedded ones.
func (o *RootOptions) loadConfig() (*config.Config, error) {
	if o.ConfigDir == "" {
		return config.Default()
	}
	return config.Load(o.ConfigDir)
}

// logger writes text logs to w. Debug level with --verbose.
func (o *RootOptions) logger(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if o.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// screenByName resolves a screen by name, or fails with a command error.
func screenByName(cfg *config.Config, name string) (config.Screen, error) {
	s, ok := cfg.Screen(name)
	if !ok {
		return config.Screen{}, NewExitError(ExitCommandError,
			fmt.Sprintf("unknown screen %q (available: %v)", name, cfg.Names()))
	}
	return s, nil
}
