package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"
)

//go:embed screens.cue
var defaultScreens string

// Error codes for config loading.
const (
	ErrCodeGeneric     = "E001"
	ErrCodeNotFound    = "E005"
	ErrCodeNoFiles     = "E003"
	ErrCodeLoadFailed  = "E004"
	ErrCodeBuildFailed = "E006"
	ErrCodeSchema      = "E201" // does not satisfy #Screen
	ErrCodeToggle      = "E202" // invalid toggle rule
	ErrCodeDuplicate   = "E203" // two screens share a table type
	ErrCodeNoScreens   = "E204"
)

// Config is the set of screens, ordered by name.
type Config struct {
	Screens []Screen
}

// Screen returns the screen called name.
func (c *Config) Screen(name string) (Screen, bool) {
	for _, s := range c.Screens {
		if s.Name == name {
			return s, true
		}
	}
	return Screen{}, false
}

// ByTable returns the screen showing tableType.
func (c *Config) ByTable(tableType string) (Screen, bool) {
	for _, s := range c.Screens {
		if s.Table == tableType {
			return s, true
		}
	}
	return Screen{}, false
}

// Names lists the screen names.
func (c *Config) Names() []string {
	names := make([]string, len(c.Screens))
	for i, s := range c.Screens {
		names[i] = s.Name
	}
	return names
}

// Error is a config problem with its source position when known.
type Error struct {
	Code    string
	Field   string
	Message string
	Pos     token.Pos
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Field, e.Message)
	}
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Default compiles the embedded screens.
func Default() (*Config, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(defaultScreens, cue.Filename("screens.cue"))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err, ErrCodeBuildFailed)
	}
	return compile(v, v.LookupPath(cue.ParsePath("#Screen")))
}

// Load compiles every CUE file in dir. The files must form one package
// and declare screens under "screen".
func Load(dir string) (*Config, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, &Error{Code: ErrCodeNotFound, Message: fmt.Sprintf("config directory not found: %s", dir)}
	}
	if err != nil {
		return nil, &Error{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing config directory: %v", err)}
	}
	if !info.IsDir() {
		return nil, &Error{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.cue"))
	if err != nil || len(files) == 0 {
		return nil, &Error{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, &Error{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, &Error{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}
	}

	v := ctx.BuildInstance(inst)
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err, ErrCodeBuildFailed)
	}

	schema := ctx.CompileString(defaultScreens, cue.Filename("screens.cue")).LookupPath(cue.ParsePath("#Screen"))
	return compile(v, schema)
}

func compile(root, schema cue.Value) (*Config, error) {
	screens := root.LookupPath(cue.ParsePath("screen"))
	if !screens.Exists() {
		return nil, &Error{Code: ErrCodeNoScreens, Message: "no screens declared"}
	}
	iter, err := screens.Fields()
	if err != nil {
		return nil, formatCUEError(err, ErrCodeGeneric)
	}

	cfg := &Config{}
	var errs []error
	for iter.Next() {
		s, err := CompileScreen(iter.Label(), schema.Unify(iter.Value()))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		cfg.Screens = append(cfg.Screens, *s)
	}
	if len(cfg.Screens) == 0 && len(errs) == 0 {
		errs = append(errs, &Error{Code: ErrCodeNoScreens, Message: "no screens declared"})
	}

	slices.SortFunc(cfg.Screens, func(a, b Screen) int {
		return strings.Compare(a.Name, b.Name)
	})
	seen := make(map[string]string)
	for _, s := range cfg.Screens {
		if other, ok := seen[s.Table]; ok {
			errs = append(errs, &Error{
				Code:    ErrCodeDuplicate,
				Field:   "screen." + s.Name + ".table",
				Message: fmt.Sprintf("table %q is already shown by screen %q", s.Table, other),
			})
		}
		seen[s.Table] = s.Name
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

// formatCUEError keeps the position of the first CUE error.
func formatCUEError(err error, code string) error {
	if err == nil {
		return nil
	}
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &Error{Code: code, Message: err.Error()}
	}
	first := errs[0]
	e := &Error{Code: code, Message: first.Error()}
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		e.Pos = positions[0]
	}
	return e
}
