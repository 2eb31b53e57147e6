package cli

import (
	"fmt"
	"log/slog"

	"github.com/roach88/tally/internal/config"
	"github.com/roach88/tally/internal/httpapi"
	"github.com/roach88/tally/internal/store"
)

// BackendOptions selects where records come from.
type BackendOptions struct {
	Database string // SQLite path
	Remote   string // base URL of a tally server
}

// openStore opens the database with one layout per configured screen.
func openStore(path string, cfg *config.Config, logger *slog.Logger) (*store.Store, error) {
	if path == "" {
		return nil, NewExitError(ExitCommandError, "--db is required")
	}
	opts := []store.Option{store.WithLogger(logger)}
	for _, s := range cfg.Screens {
		opts = append(opts, store.WithLayout(s.Table, s.Layout(store.DefaultLayout())))
	}
	st, err := store.Open(path, opts...)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

// open returns the remote client when --remote is set, the local
// store otherwise, along with a func that releases it.
func (b BackendOptions) open(cfg *config.Config, logger *slog.Logger) (httpapi.Backend, func(), error) {
	if b.Remote != "" {
		if b.Database != "" {
			return nil, nil, NewExitError(ExitCommandError, "--db and --remote are mutually exclusive")
		}
		client, err := httpapi.NewClient(b.Remote)
		if err != nil {
			return nil, nil, WrapExitError(ExitCommandError, "invalid remote", err)
		}
		return client, func() {}, nil
	}

	st, err := openStore(b.Database, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return st, func() {
		if err := st.Close(); err != nil {
			logger.Error("error closing database", "error", err)
		}
	}, nil
}

func describeBackend(b BackendOptions) string {
	if b.Remote != "" {
		return fmt.Sprintf("remote %s", b.Remote)
	}
	return fmt.Sprintf("database %s", b.Database)
}
