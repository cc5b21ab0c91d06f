package templating

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/byte4ever/tokenparser/properties"
)

// ErrBadImport is returned for imports that are not of
// the NAME=FILE form.
var ErrBadImport = errors.New("import must be NAME=FILE")

// Expander expands template files using properties loaded
// from files, the environment and explicit assignments.
type Expander struct {
	// Style selects the delimiters. The zero value means
	// AntStyle.
	Style Style

	// PropertyFiles are YAML or JSON files, merged in
	// order.
	PropertyFiles []string

	// StampInfoFiles are workspace status files with one
	// "KEY VALUE" pair per line.
	StampInfoFiles []string

	// Imports are NAME=FILE pairs. Each file is expanded
	// against the properties and exposed to the template
	// as "imports.NAME".
	Imports []string

	// UseEnv adds environment variables to the base
	// properties. A non-empty EnvPrefix implies UseEnv
	// and keeps only matching variables, prefix removed.
	UseEnv    bool
	EnvPrefix string

	// Strict rejects malformed templates instead of
	// leaving the offending spans as literal text.
	Strict bool

	// Stdin and Stdout replace os.Stdin and os.Stdout
	// when set.
	Stdin  io.Reader
	Stdout io.Writer
}

// Expand reads a template, substitutes tokens, and writes
// the result. If tplPath is empty it reads stdin; if
// outPath is empty it writes to stdout. If executable is
// true the output file receives mode 0777 instead of 0666.
//
// Properties are layered, later layers overriding earlier
// ones:
//  1. environment variables (UseEnv / EnvPrefix),
//  2. stamp info files,
//  3. property files,
//  4. NAME=VALUE variables, whose values may reference
//     the layers above with single-brace {KEY} tags and
//     are also stored as "variables.NAME",
//  5. imports, stored as "imports.NAME".
func (ex *Expander) Expand(
	tplPath string,
	outPath string,
	vars []string,
	executable bool,
) error {
	const errCtx = "expanding template"

	en, err := ex.engine()
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	props, err := ex.LoadProperties(vars)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	imports, err := ex.loadImports(en, props)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	lookup := properties.Chain(imports.Lookup, props.Lookup)

	tplContent, err := ex.readTemplate(tplPath)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	tpl := string(tplContent)

	if ex.Strict {
		if err := en.Validate(tpl); err != nil {
			return fmt.Errorf(
				"%s: %s: %w", errCtx, displayPath(tplPath), err,
			)
		}
	}

	if missing := en.UnresolvedFunc(lookup, tpl); len(missing) > 0 {
		slog.Debug(
			"unresolved tokens left in output",
			"template", displayPath(tplPath),
			"names", missing,
		)
	}

	out, closeOut, err := ex.openOutput(outPath, executable)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	_, writeErr := io.WriteString(out, en.ParseFunc(lookup, tpl))
	closeErr := closeOut()

	if writeErr != nil {
		return fmt.Errorf(
			"%s: writing output: %w", errCtx, writeErr,
		)
	}

	if closeErr != nil {
		return fmt.Errorf(
			"%s: closing output: %w", errCtx, closeErr,
		)
	}

	return nil
}

// LoadProperties merges every configured property source
// and applies vars on top.
func (ex *Expander) LoadProperties(
	vars []string,
) (properties.Properties, error) {
	const errCtx = "loading properties"

	var env properties.Properties
	if ex.UseEnv || ex.EnvPrefix != "" {
		env = properties.FromEnv(ex.EnvPrefix)
	}

	stamps, err := properties.LoadStatusFiles(ex.StampInfoFiles)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	files, err := properties.LoadFiles(ex.PropertyFiles)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	props := properties.Merge(env, stamps, files)

	if err := properties.ApplyAssignments(props, vars); err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	return props, nil
}

// loadImports reads every import file and expands it
// against props. Imports do not see each other.
func (ex *Expander) loadImports(
	en *Engine,
	props properties.Properties,
) (properties.Properties, error) {
	const errCtx = "loading imports"

	imports := make(properties.Properties, len(ex.Imports))

	for _, im := range ex.Imports {
		name, path, ok := strings.Cut(im, "=")
		if !ok || name == "" || path == "" {
			return nil, fmt.Errorf(
				"%s: %w, got %q", errCtx, ErrBadImport, im,
			)
		}

		content, err := os.ReadFile(path) //nolint:gosec // paths from CLI flags
		if err != nil {
			return nil, fmt.Errorf("%s: %w", errCtx, err)
		}

		imports["imports."+name] = en.Parse(props, string(content))
	}

	return imports, nil
}

func (ex *Expander) engine() (*Engine, error) {
	if ex.Style == (Style{}) {
		return NewEngine(AntStyle())
	}

	return NewEngine(ex.Style)
}

func displayPath(tplPath string) string {
	if tplPath == "" {
		return "<stdin>"
	}

	return tplPath
}

// readTemplate reads tplPath, or the expander input when
// tplPath is empty.
func (ex *Expander) readTemplate(tplPath string) ([]byte, error) {
	const errCtx = "reading template"

	var (
		content []byte
		err     error
	)

	if tplPath == "" {
		in := ex.Stdin
		if in == nil {
			in = os.Stdin
		}

		content, err = io.ReadAll(in)
	} else {
		content, err = os.ReadFile(tplPath) //nolint:gosec // paths from CLI flags
	}

	if err != nil {
		return nil, fmt.Errorf(
			"%s: %s: %w", errCtx, displayPath(tplPath), err,
		)
	}

	return content, nil
}

// openOutput returns the destination writer and a close
// function whose error reports a failed flush of the file.
// Writing to the expander output closes nothing.
func (ex *Expander) openOutput(
	outPath string,
	executable bool,
) (io.Writer, func() error, error) {
	const errCtx = "opening output"

	if outPath == "" {
		out := ex.Stdout
		if out == nil {
			out = os.Stdout
		}

		return out, func() error { return nil }, nil
	}

	perm := os.FileMode(0o666)
	if executable {
		perm = 0o777
	}

	fo, err := os.OpenFile( //nolint:gosec // paths from CLI flags
		outPath,
		os.O_WRONLY|os.O_CREATE|os.O_TRUNC,
		perm,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	return fo, fo.Close, nil
}
