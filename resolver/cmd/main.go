// Package main provides the resolver CLI that reads
// multi-document YAML, substitutes tokens in every string
// scalar using the configured properties, and writes the
// result. With -validate it only reports malformed
// templates.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/byte4ever/tokenparser/logging"
	"github.com/byte4ever/tokenparser/resolver"
	"github.com/byte4ever/tokenparser/templating"
)

var errProblemsFound = errors.New("malformed templates found")

type arrayFlags []string

func (af *arrayFlags) String() string {
	return ""
}

func (af *arrayFlags) Set(value string) error {
	*af = append(*af, value)
	return nil
}

func run() error {
	const errCtx = "resolver"

	var (
		propertyFiles arrayFlags
		stampInfoFile arrayFlags
		variables     arrayFlags
	)

	var (
		inFile           string
		outFile          string
		style            string
		envPrefix        string
		logLevel         string
		validate         bool
		strict           bool
		failOnUnresolved bool
	)

	flag.StringVar(
		&inFile, "infile", "",
		"input YAML file path",
	)

	flag.StringVar(
		&outFile, "outfile", "",
		"output YAML file path",
	)

	flag.StringVar(
		&style, "style", string(templating.AntStyleName),
		"preset style: square, ant, expression or curly",
	)

	flag.Var(
		&propertyFiles, "properties",
		"YAML or JSON property file (repeatable)",
	)

	flag.Var(
		&stampInfoFile, "stamp_info_file",
		"workspace status file (repeatable)",
	)

	flag.Var(
		&variables, "variable",
		"NAME=VALUE (repeatable)",
	)

	flag.StringVar(
		&envPrefix, "env_prefix", "",
		"add environment variables with this prefix (stripped)",
	)

	flag.BoolVar(
		&validate, "validate", false,
		"only report malformed templates",
	)

	flag.BoolVar(
		&strict, "strict", false,
		"fail on malformed templates",
	)

	flag.BoolVar(
		&failOnUnresolved, "fail_on_unresolved", false,
		"fail when tokens remain after substitution",
	)

	flag.StringVar(
		&logLevel, "log_level", "info",
		"log level (debug, info, warn, error)",
	)

	flag.Parse()

	if _, err := logging.Setup(logging.Options{
		Level: logLevel,
	}); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	st, err := templating.StyleByName(style)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	en, err := templating.NewEngine(st)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	var inReader io.Reader = os.Stdin

	if inFile != "" {
		fi, err := os.Open(inFile) //nolint:gosec // path from CLI flag
		if err != nil {
			return fmt.Errorf(
				"%s: opening input: %w",
				errCtx, err,
			)
		}

		defer fi.Close() //nolint:errcheck // best-effort close

		inReader = fi
	}

	if validate {
		problems, err := resolver.ValidateDocuments(inReader, en)
		if err != nil {
			return fmt.Errorf("%s: %w", errCtx, err)
		}

		for _, pr := range problems {
			slog.Warn("malformed template", "problem", pr.String())
		}

		if len(problems) > 0 {
			return fmt.Errorf(
				"%s: %w: %d", errCtx, errProblemsFound, len(problems),
			)
		}

		return nil
	}

	ex := templating.Expander{
		Style:          st,
		PropertyFiles:  propertyFiles,
		StampInfoFiles: stampInfoFile,
		EnvPrefix:      envPrefix,
	}

	props, err := ex.LoadProperties(variables)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	var outWriter io.Writer = os.Stdout

	if outFile != "" {
		fo, err := os.Create(outFile) //nolint:gosec // path from CLI flag
		if err != nil {
			return fmt.Errorf(
				"%s: creating output: %w",
				errCtx, err,
			)
		}

		defer fo.Close() //nolint:errcheck // best-effort close

		outWriter = fo
	}

	rs := resolver.Resolver{
		Engine:           en,
		Props:            props,
		Strict:           strict,
		FailOnUnresolved: failOnUnresolved,
	}

	if err := rs.Resolve(inReader, outWriter); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

func main() {
	if err := run(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}
