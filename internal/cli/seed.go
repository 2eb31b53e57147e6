package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// SeedOptions holds flags for the seed command.
type SeedOptions struct {
	*RootOptions
	Database string
	Screens  []string
	Count    int
}

// SeedResult is the JSON payload of seed.
type SeedResult struct {
	Inserted int      `json:"inserted"`
	Tables   []string `json:"tables"`
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SeedOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert demo records",
		Long: `Insert deterministic demo records and categories.

Record ids are derived from the table type and index, so seeding twice
inserts nothing new.

Example:
  tally seed --db ./tally.db --count 200
  tally seed --db ./tally.db --screen sales --count 50`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringSliceVar(&opts.Screens, "screen", nil, "screens to seed (default: all)")
	cmd.Flags().IntVar(&opts.Count, "count", 100, "records per screen")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runSeed(opts *SeedOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	logger := opts.logger(cmd.ErrOrStderr())

	if opts.Count < 0 {
		return NewExitError(ExitCommandError, "--count must not be negative")
	}
	cfg, err := opts.loadConfig()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load screens", err)
	}

	names := opts.Screens
	if len(names) == 0 {
		names = cfg.Names()
	}
	tables := make([]string, 0, len(names))
	for _, name := range names {
		s, err := screenByName(cfg, name)
		if err != nil {
			return err
		}
		tables = append(tables, s.Table)
	}

	st, err := openStore(opts.Database, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("error closing database", "error", err)
		}
	}()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	inserted, err := st.SeedDemo(ctx, opts.Count, tables...)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to seed", err)
	}

	if formatter.JSON() {
		return formatter.Success(SeedResult{Inserted: inserted, Tables: tables})
	}
	fmt.Fprintf(formatter.Writer, "✓ Inserted %d records into %v\n", inserted, tables)
	return nil
}
