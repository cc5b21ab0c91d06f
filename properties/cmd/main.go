// Package main provides the properties CLI that merges
// status files, property files, environment variables and
// NAME=VALUE assignments and prints the result as JSON,
// or renders -format with single-brace {KEY} tags.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	json "github.com/goccy/go-json"

	"github.com/byte4ever/tokenparser/logging"
	"github.com/byte4ever/tokenparser/properties"
)

type arrayFlags []string

func (af *arrayFlags) String() string {
	return ""
}

func (af *arrayFlags) Set(value string) error {
	*af = append(*af, value)
	return nil
}

func run() error {
	const errCtx = "properties"

	var (
		statusFiles   arrayFlags
		propertyFiles arrayFlags
		variables     arrayFlags
	)

	var (
		output    string
		format    string
		envPrefix string
		useEnv    bool
		logLevel  string
	)

	flag.Var(
		&statusFiles,
		"stamp_info_file",
		"path to workspace status file (repeatable)",
	)

	flag.Var(
		&propertyFiles,
		"properties",
		"YAML or JSON property file (repeatable)",
	)

	flag.Var(
		&variables,
		"variable",
		"NAME=VALUE assignment (repeatable)",
	)

	flag.StringVar(
		&output, "output", "",
		"output file path (default: stdout)",
	)

	flag.StringVar(
		&format, "format", "",
		"format string with {KEY} tags (default: JSON dump)",
	)

	flag.BoolVar(
		&useEnv, "env", false,
		"include environment variables",
	)

	flag.StringVar(
		&envPrefix, "env_prefix", "",
		"only include environment variables with this prefix (stripped)",
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

	status, err := properties.LoadStatusFiles(statusFiles)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	files, err := properties.LoadFiles(propertyFiles)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	var env properties.Properties
	if useEnv || envPrefix != "" {
		env = properties.FromEnv(envPrefix)
	}

	props := properties.Merge(env, status, files)

	if err := properties.ApplyAssignments(
		props, variables,
	); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	slog.Debug("merged properties", "names", props.Keys())

	buf, err := render(props, format)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if output != "" {
		err = os.WriteFile( //nolint:gosec // path from CLI flag
			output, buf, 0o666,
		)
		if err != nil {
			return fmt.Errorf(
				"%s: writing output: %w",
				errCtx, err,
			)
		}

		return nil
	}

	if _, err := os.Stdout.Write(buf); err != nil {
		return fmt.Errorf(
			"%s: writing to stdout: %w",
			errCtx, err,
		)
	}

	return nil
}

func render(props properties.Properties, format string) ([]byte, error) {
	if format != "" {
		return []byte(props.Format(format)), nil
	}

	buf, err := json.MarshalIndent(props, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding json: %w", err)
	}

	return append(buf, '\n'), nil
}

func main() {
	if err := run(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}
