package cli

import (
	"errors"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/tally/internal/config"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid   bool            `json:"valid"`
	Source  string          `json:"source"`
	Screens []ScreenSummary `json:"screens,omitempty"`
}

// ScreenSummary describes one compiled screen.
type ScreenSummary struct {
	Name      string   `json:"name"`
	Table     string   `json:"table"`
	PageSize  int      `json:"page_size"`
	SectionBy string   `json:"section_by,omitempty"`
	Toggles   []string `json:"toggles,omitempty"`
}

// ValidationDetails locates a config error.
type ValidationDetails struct {
	Field  string `json:"field,omitempty"`
	File   string `json:"file,omitempty"`
	Line   int    `json:"line,omitempty"`
	Column int    `json:"column,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [config-dir]",
		Short: "Validate screen definitions",
		Long: `Compile CUE screen definitions and report the first problem.

Without an argument the --config directory is checked, or the embedded
screens when --config is not set.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := rootOpts.ConfigDir
			if len(args) == 1 {
				dir = args[0]
			}
			return runValidate(rootOpts, dir, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	source := dir
	var cfg *config.Config
	var err error
	if dir == "" {
		source = "embedded"
		cfg, err = config.Default()
	} else {
		formatter.VerboseLog("Loading screens from %s", dir)
		cfg, err = config.Load(dir)
	}
	if err != nil {
		return outputConfigError(formatter, err)
	}

	result := ValidationResult{Valid: true, Source: source}
	for _, s := range cfg.Screens {
		sum := ScreenSummary{Name: s.Name, Table: s.Table, PageSize: s.PageSize, SectionBy: s.SectionBy}
		for name := range s.Toggles {
			sum.Toggles = append(sum.Toggles, name)
		}
		slices.Sort(sum.Toggles)
		result.Screens = append(result.Screens, sum)
	}

	if formatter.JSON() {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ %d screen(s) valid (%s)\n", len(result.Screens), source)
	for _, s := range result.Screens {
		fmt.Fprintf(formatter.Writer, "  %-12s table=%s page_size=%d\n", s.Name, s.Table, s.PageSize)
	}
	return nil
}

// outputConfigError reports a config error. Config problems are
// validation failures (exit 1); a missing directory is a command error.
func outputConfigError(formatter *OutputFormatter, err error) error {
	var cfgErr *config.Error
	if !errors.As(err, &cfgErr) {
		_ = formatter.Error(config.ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitFailure, "validation failed", err)
	}

	details := ValidationDetails{Field: cfgErr.Field}
	if cfgErr.Pos.IsValid() {
		details.File = cfgErr.Pos.Filename()
		details.Line = cfgErr.Pos.Line()
		details.Column = cfgErr.Pos.Column()
	}

	if formatter.JSON() {
		_ = formatter.Error(cfgErr.Code, cfgErr.Message, details)
	} else {
		fmt.Fprintln(formatter.Writer, "✗ Validation failed")
		fmt.Fprintln(formatter.Writer)
		if details.Line > 0 {
			fmt.Fprintf(formatter.Writer, "%s line %d\n", details.File, details.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n", cfgErr.Code, cfgErr.Message)
	}

	code := ExitFailure
	switch cfgErr.Code {
	case config.ErrCodeNotFound, config.ErrCodeNoFiles:
		code = ExitCommandError
	}
	return WrapExitError(code, "validation failed", err)
}
