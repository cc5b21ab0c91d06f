// Binary tokenparse validates templates and expands their
// tokens using property files, status files, environment
// variables and explicit variable assignments.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	json "github.com/goccy/go-json"
	"github.com/valyala/fasttemplate"

	"github.com/byte4ever/tokenparser/logging"
	"github.com/byte4ever/tokenparser/templating"
)

var errInvalidTemplates = errors.New("invalid templates found")

type arrayFlags []string

func (af *arrayFlags) String() string {
	return ""
}

func (af *arrayFlags) Set(value string) error {
	*af = append(*af, value)
	return nil
}

type options struct {
	propertyFiles arrayFlags
	stampInfoFile arrayFlags
	variable      arrayFlags
	imports       arrayFlags

	style        string
	prefix       string
	suffix       string
	output       string
	tpl          string
	envPrefix    string
	reportFormat string
	logLevel     string
	logFile      string

	useEnv     bool
	strict     bool
	validate   bool
	listTokens bool
	executable bool
}

func parseFlags() *options {
	opts := &options{}

	flag.Var(
		&opts.propertyFiles,
		"properties",
		"YAML or JSON property file (repeatable)",
	)

	flag.Var(
		&opts.stampInfoFile,
		"stamp_info_file",
		"Stamp info file path (repeatable)",
	)

	flag.Var(
		&opts.variable,
		"variable",
		"Variable in NAME=VALUE format (repeatable)",
	)

	flag.Var(
		&opts.imports,
		"imports",
		"Import in NAME=FILE format, exposed as imports.NAME (repeatable)",
	)

	flag.StringVar(
		&opts.style, "style", string(templating.AntStyleName),
		"Preset style: square, ant, expression or curly",
	)

	flag.StringVar(
		&opts.prefix, "prefix", "",
		"Custom token prefix (requires -suffix, overrides -style)",
	)

	flag.StringVar(
		&opts.suffix, "suffix", "",
		"Custom token suffix (requires -prefix)",
	)

	flag.StringVar(
		&opts.output, "output", "",
		"Output file path (stdout if empty)",
	)

	flag.StringVar(
		&opts.tpl, "template", "",
		"Input template file path (stdin if empty)",
	)

	flag.BoolVar(
		&opts.useEnv, "env", false,
		"Add environment variables to the properties",
	)

	flag.StringVar(
		&opts.envPrefix, "env_prefix", "",
		"Only add environment variables with this prefix (stripped)",
	)

	flag.BoolVar(
		&opts.strict, "strict", false,
		"Fail on malformed templates instead of copying them",
	)

	flag.BoolVar(
		&opts.validate, "validate", false,
		"Only validate the templates given as arguments or -template",
	)

	flag.StringVar(
		&opts.reportFormat, "report_format",
		"{file}:{offset}: {reason}",
		"Validation report line; tags: file, offset, reason",
	)

	flag.BoolVar(
		&opts.listTokens, "list_tokens", false,
		"Print the tokens of the template as JSON lines",
	)

	flag.BoolVar(
		&opts.executable, "executable", false,
		"Set executable bit on output file",
	)

	flag.StringVar(
		&opts.logLevel, "log_level", "info",
		"Log level: debug, info, warn or error",
	)

	flag.StringVar(
		&opts.logFile, "log_file", "",
		"Also write JSON logs to this file",
	)

	flag.Parse()

	return opts
}

func (opts *options) resolveStyle() (templating.Style, error) {
	if opts.prefix != "" || opts.suffix != "" {
		return templating.NewStyle(opts.prefix, opts.suffix)
	}

	return templating.StyleByName(opts.style)
}

func run() error {
	const errCtx = "tokenparse"

	opts := parseFlags()

	closer, err := logging.Setup(logging.Options{
		Level: opts.logLevel,
		File:  opts.logFile,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	defer closer()

	style, err := opts.resolveStyle()
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	switch {
	case opts.validate:
		err = validate(opts, style)
	case opts.listTokens:
		err = listTokens(opts, style)
	default:
		ex := templating.Expander{
			Style:          style,
			PropertyFiles:  opts.propertyFiles,
			StampInfoFiles: opts.stampInfoFile,
			Imports:        opts.imports,
			UseEnv:         opts.useEnv,
			EnvPrefix:      opts.envPrefix,
			Strict:         opts.strict,
		}

		err = ex.Expand(
			opts.tpl, opts.output, opts.variable, opts.executable,
		)
	}

	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

// validate checks every template file and prints one
// report line per invalid file.
func validate(opts *options, style templating.Style) error {
	const errCtx = "validating"

	en, err := templating.NewEngine(style)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	paths := flag.Args()
	if opts.tpl != "" {
		paths = append([]string{opts.tpl}, paths...)
	}

	if len(paths) == 0 {
		paths = []string{""}
	}

	report, err := fasttemplate.NewTemplate(
		opts.reportFormat, "{", "}",
	)
	if err != nil {
		return fmt.Errorf("%s: report format: %w", errCtx, err)
	}

	failed := 0

	for _, pa := range paths {
		content, err := readInput(pa)
		if err != nil {
			return fmt.Errorf("%s: %w", errCtx, err)
		}

		var se *templating.SyntaxError
		if err := en.Validate(string(content)); errors.As(err, &se) {
			failed++

			line := report.ExecuteString(map[string]interface{}{
				"file":   displayName(pa),
				"offset": strconv.Itoa(se.Offset),
				"reason": string(se.Reason),
			})

			if _, err := fmt.Fprintln(os.Stdout, line); err != nil {
				return fmt.Errorf("%s: writing report: %w", errCtx, err)
			}

			continue
		}

		slog.Debug("template is valid", "file", displayName(pa))
	}

	if failed > 0 {
		return fmt.Errorf(
			"%s: %w: %d of %d",
			errCtx, errInvalidTemplates, failed, len(paths),
		)
	}

	return nil
}

// listTokens prints the top-level tokens of the template
// as one JSON object per line.
func listTokens(opts *options, style templating.Style) error {
	const errCtx = "listing tokens"

	en, err := templating.NewEngine(style)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	content, err := readInput(opts.tpl)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	enc := json.NewEncoder(os.Stdout)

	for tok := range en.Scan(string(content)) {
		if err := enc.Encode(tokenLine{
			Name:  tok.Name,
			Start: tok.Start,
			End:   tok.End,
		}); err != nil {
			return fmt.Errorf("%s: %w", errCtx, err)
		}
	}

	return nil
}

type tokenLine struct {
	Name  string `json:"name"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

func readInput(pa string) ([]byte, error) {
	if pa == "" {
		return io.ReadAll(os.Stdin)
	}

	return os.ReadFile(pa) //nolint:gosec // paths from CLI flags
}

func displayName(pa string) string {
	if pa == "" {
		return "<stdin>"
	}

	return pa
}

func main() {
	if err := run(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}
