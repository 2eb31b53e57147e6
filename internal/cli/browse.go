package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/tally/internal/activity"
	"github.com/roach88/tally/internal/collection"
	"github.com/roach88/tally/internal/filter"
)

// BrowseOptions holds flags for the browse command.
type BrowseOptions struct {
	*RootOptions
	BackendOptions

	Screen      string
	Search      string
	Toggles     []string // name or name=bool
	From        string
	To          string
	Marketplace string
	Sort        string
	Desc        bool
	Flat        bool
	Pages       int
	Timeout     time.Duration
}

// BrowseResult is the JSON payload of browse.
type BrowseResult struct {
	Screen  string             `json:"screen"`
	State   collection.State   `json:"state"`
	Banners []activity.Message `json:"banners,omitempty"`
}

// NewBrowseCommand creates the browse command.
func NewBrowseCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BrowseOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Page through a screen",
		Long: `Load a screen's collection and print it.

Each additional page is requested the way a list view does when its last
row becomes visible. Records come from a local database or a remote
tally server.

Examples:
  tally browse --db ./tally.db --screen inventory --search lamp
  tally browse --db ./tally.db --screen sales --toggle bulk --pages 3
  tally browse --remote http://localhost:8080 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBrowse(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database")
	cmd.Flags().StringVar(&opts.Remote, "remote", "", "base URL of a tally server")
	cmd.Flags().StringVar(&opts.Screen, "screen", "inventory", "screen to browse")
	cmd.Flags().StringVar(&opts.Search, "search", "", "search text")
	cmd.Flags().StringSliceVar(&opts.Toggles, "toggle", nil, "toggle name, or name=false (repeatable)")
	cmd.Flags().StringVar(&opts.From, "from", "", "period start (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.To, "to", "", "period end (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.Marketplace, "marketplace", "", "marketplace")
	cmd.Flags().StringVar(&opts.Sort, "sort", "", "sort column")
	cmd.Flags().BoolVar(&opts.Desc, "desc", false, "sort descending")
	cmd.Flags().BoolVar(&opts.Flat, "flat", false, "list rows without sections")
	cmd.Flags().IntVar(&opts.Pages, "pages", 1, "number of pages to load")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 30*time.Second, "overall timeout")

	return cmd
}

// partial turns the filter flags into one filter update.
func (o *BrowseOptions) partial() (filter.Partial, error) {
	var p filter.Partial
	if o.Search != "" {
		p.SearchText = &o.Search
	}
	for _, t := range o.Toggles {
		name, raw, found := strings.Cut(t, "=")
		on := true
		if found {
			b, err := strconv.ParseBool(raw)
			if err != nil {
				return p, fmt.Errorf("toggle %q: %w", t, err)
			}
			on = b
		}
		if p.Toggles == nil {
			p.Toggles = make(map[string]bool)
		}
		p.Toggles[name] = on
	}
	if o.From != "" || o.To != "" {
		p.Period = &filter.Period{From: o.From, To: o.To}
	}
	if o.Marketplace != "" {
		p.Marketplace = &o.Marketplace
	}
	if o.Sort != "" {
		p.Sort = &filter.Sort{Field: o.Sort, Descending: o.Desc}
	}
	return p, nil
}

func runBrowse(opts *BrowseOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	logger := opts.logger(cmd.ErrOrStderr())

	if opts.Pages < 1 {
		return NewExitError(ExitCommandError, "--pages must be at least 1")
	}
	cfg, err := opts.loadConfig()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load screens", err)
	}
	screen, err := screenByName(cfg, opts.Screen)
	if err != nil {
		return err
	}
	update, err := opts.partial()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid filter", err)
	}

	backend, closeBackend, err := opts.BackendOptions.open(cfg, logger)
	if err != nil {
		return err
	}
	defer closeBackend()
	formatter.VerboseLog("Browsing %s from %s", screen.Name, describeBackend(opts.BackendOptions))

	filters := filter.NewStore(screen.Filter())
	filters.Set(update)
	ctrlOpts := append(screen.Options(backend),
		collection.WithSaver(backend),
		collection.WithLogger(logger),
		collection.WithFilterStore(filters),
	)
	if opts.Flat {
		ctrlOpts = append(ctrlOpts, collection.WithProjector(collection.Flat()))
	}
	ctrl := collection.New(backend, filters.Current(), ctrlOpts...)

	var mu sync.Mutex
	var banners []activity.Message
	cancelBanner := ctrl.Banner().Subscribe(func(m activity.Message) {
		mu.Lock()
		defer mu.Unlock()
		banners = append(banners, m)
	})
	defer cancelBanner()

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, opts.Timeout)
	defer cancel()

	runDone := make(chan error, 1)
	go func() { runDone <- ctrl.Run(ctx) }()
	defer func() {
		ctrl.Stop()
		<-runDone
	}()

	if err := ctrl.Quiesce(ctx); err != nil {
		return WrapExitError(ExitFailure, "first page did not load", err)
	}
	for page := 1; page < opts.Pages; page++ {
		st := ctrl.Snapshot()
		if st.Exhausted || st.Loaded == 0 {
			break
		}
		ctrl.ReachBottom(st.Loaded - 1)
		if err := ctrl.Quiesce(ctx); err != nil {
			return WrapExitError(ExitFailure, fmt.Sprintf("page %d did not load", page+1), err)
		}
	}

	st := ctrl.Snapshot()
	mu.Lock()
	result := BrowseResult{Screen: screen.Name, State: st, Banners: banners}
	mu.Unlock()

	if formatter.JSON() {
		if err := formatter.Success(result); err != nil {
			return err
		}
	} else {
		writeBrowseText(formatter.Writer, screen.Title, result)
	}

	for _, b := range result.Banners {
		if b.Kind == activity.KindError {
			return bannerExit(b)
		}
	}
	return nil
}

// bannerExit maps an error banner to a command exit status.
func bannerExit(m activity.Message) error {
	if m.Err == nil {
		return NewExitError(ExitFailure, m.Text)
	}
	switch {
	case collection.IsValidationError(m.Err):
		return WrapExitError(ExitCommandError, "invalid edit", m.Err)
	case collection.IsFetchError(m.Err):
		return WrapExitError(ExitFailure, "fetch failed", m.Err)
	case collection.IsSaveError(m.Err):
		return WrapExitError(ExitFailure, "save failed", m.Err)
	default:
		return WrapExitError(ExitFailure, "browse failed", m.Err)
	}
}

func writeBrowseText(w io.Writer, title string, r BrowseResult) {
	fmt.Fprintf(w, "%s\n", title)
	for _, sec := range r.State.Sections {
		if sec.Title != "" {
			fmt.Fprintf(w, "\n[%s]\n", sec.Title)
		}
		for _, row := range sec.Rows {
			fmt.Fprintf(w, "  %-40s %s\n", row.ID, row.Record.Text("name"))
		}
	}
	fmt.Fprintln(w)
	total := "?"
	if r.State.Total >= 0 {
		total = strconv.Itoa(r.State.Total)
	}
	fmt.Fprintf(w, "%d of %s loaded\n", r.State.Loaded, total)
	for _, b := range r.Banners {
		fmt.Fprintf(w, "%s: %s\n", b.Kind, b.Text)
	}
}
