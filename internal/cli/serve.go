package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/tally/internal/httpapi"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Database string
	Addr     string
	RPS      float64
	Burst    int
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve records over HTTP",
		Long: `Serve a database's records over HTTP.

Pages are fetched with GET /api/v1/records/{table}, saved with
PUT /api/v1/records and categories resolved with
GET /api/v1/categories/{id}. Requests are rate limited per client;
RATE_LIMIT_RPS and RATE_LIMIT_BURST set the defaults.

Example:
  tally serve --db ./tally.db --addr :8080
  tally serve --db ./tally.db --rps 0   # no rate limit`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	env := httpapi.RateLimitFromEnv()
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.Addr, "addr", ":8080", "listen address")
	cmd.Flags().Float64Var(&opts.RPS, "rps", env.RPS, "requests per second per client (0 disables)")
	cmd.Flags().IntVar(&opts.Burst, "burst", env.Burst, "burst size per client")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	logger := opts.logger(cmd.ErrOrStderr())

	cfg, err := opts.loadConfig()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load screens", err)
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

	srv := httpapi.NewServer(st,
		httpapi.WithServerLogger(logger),
		httpapi.WithRateLimit(httpapi.RateLimit{RPS: opts.RPS, Burst: opts.Burst}),
	)

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("server starting", "addr", opts.Addr, "db", opts.Database, "screens", cfg.Names())
	fmt.Fprintf(cmd.OutOrStdout(), "Serving %s on %s. Press Ctrl-C to stop.\n", opts.Database, opts.Addr)

	if err := srv.ListenAndServe(ctx, opts.Addr); err != nil && !errors.Is(err, context.Canceled) {
		return WrapExitError(ExitFailure, "server error", err)
	}
	logger.Info("server stopped gracefully")
	return nil
}
