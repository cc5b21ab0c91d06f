package properties

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/goccy/go-yaml"
	"github.com/valyala/fasttemplate"
)

// ErrUnsupportedFormat is returned by LoadFile for files
// whose extension is not .yaml, .yml or .json.
var ErrUnsupportedFormat = errors.New("unsupported property file format")

// ErrBadAssignment is returned for assignments that are
// not of the NAME=VALUE form.
var ErrBadAssignment = errors.New("assignment must be NAME=VALUE")

// Properties maps token names to substitution values.
type Properties map[string]string

// Lookup resolves a single token name.
type Lookup func(name string) (string, bool)

// Lookup returns the value stored under name.
func (pr Properties) Lookup(name string) (string, bool) {
	val, ok := pr[name]

	return val, ok
}

// Keys returns the property names in sorted order.
func (pr Properties) Keys() []string {
	keys := make([]string, 0, len(pr))
	for key := range pr {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}

// Chain returns a Lookup that asks each lookup in turn and
// returns the first hit. Nil lookups are skipped.
func Chain(lookups ...Lookup) Lookup {
	return func(name string) (string, bool) {
		for _, lk := range lookups {
			if lk == nil {
				continue
			}

			if val, ok := lk(name); ok {
				return val, true
			}
		}

		return "", false
	}
}

// Merge combines sources into a new mapping. Later sources
// override earlier ones.
func Merge(sources ...Properties) Properties {
	out := make(Properties)

	for _, src := range sources {
		for key, val := range src {
			out[key] = val
		}
	}

	return out
}

// LoadStatusFiles reads workspace status files and merges
// them into a single mapping. Each line is "KEY VALUE"
// with the first space as delimiter. Lines without a space
// are silently skipped.
func LoadStatusFiles(infoFiles []string) (Properties, error) {
	const errCtx = "loading status files"

	props := make(Properties)

	for _, sf := range infoFiles {
		content, err := os.ReadFile(sf) //nolint:gosec // paths from CLI flags
		if err != nil {
			return nil, fmt.Errorf(
				"%s: %w", errCtx, err,
			)
		}

		for _, line := range strings.Split(
			string(content), "\n",
		) {
			parts := strings.SplitN(
				strings.TrimSuffix(line, "\r"), " ", 2,
			)
			if len(parts) == 2 {
				props[parts[0]] = parts[1]
			}
		}
	}

	return props, nil
}

// LoadFile reads a YAML or JSON property file, picking the
// decoder from the extension. Nested mappings and lists
// are flattened to dotted keys ("db.hosts.0").
func LoadFile(path string) (Properties, error) {
	const errCtx = "loading property file"

	data, err := os.ReadFile(path) //nolint:gosec // paths from CLI flags
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	var raw map[string]interface{}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &raw)
	case ".json":
		err = json.Unmarshal(data, &raw)
	default:
		return nil, fmt.Errorf(
			"%s: %w: %q", errCtx, ErrUnsupportedFormat, ext,
		)
	}

	if err != nil {
		return nil, fmt.Errorf(
			"%s: decoding %s: %w", errCtx, path, err,
		)
	}

	props := make(Properties)
	flatten(props, "", raw)

	return props, nil
}

// LoadFiles loads every property file in order and merges
// them; later files override earlier ones.
func LoadFiles(paths []string) (Properties, error) {
	const errCtx = "loading property files"

	out := make(Properties)

	for _, pa := range paths {
		props, err := LoadFile(pa)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", errCtx, err)
		}

		for key, val := range props {
			out[key] = val
		}
	}

	return out, nil
}

// FromEnv returns the environment variables whose names
// start with prefix, with the prefix removed. An empty
// prefix returns the whole environment.
func FromEnv(prefix string) Properties {
	props := make(Properties)

	for _, kv := range os.Environ() {
		name, val, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, prefix) {
			continue
		}

		name = strings.TrimPrefix(name, prefix)
		if name == "" {
			continue
		}

		props[name] = val
	}

	return props
}

// ApplyAssignments stores each NAME=VALUE assignment in
// props under both "NAME" and "variables.NAME". Values are
// first expanded against the properties loaded so far
// using single-brace {KEY} tags; unknown tags are kept.
func ApplyAssignments(props Properties, assignments []string) error {
	const errCtx = "applying assignments"

	for _, as := range assignments {
		name, val, ok := strings.Cut(as, "=")
		if !ok || name == "" {
			return fmt.Errorf(
				"%s: %w, got %q", errCtx, ErrBadAssignment, as,
			)
		}

		val = props.Format(val)

		props[name] = val
		props["variables."+name] = val
	}

	return nil
}

// Format substitutes single-brace {KEY} tags in format
// with the property values. Unknown tags are kept as-is.
func (pr Properties) Format(format string) string {
	return fasttemplate.ExecuteStringStd(
		format, "{", "}", pr.tagMap(),
	)
}

func (pr Properties) tagMap() map[string]interface{} {
	tags := make(map[string]interface{}, len(pr))
	for key, val := range pr {
		tags[key] = val
	}

	return tags
}

// flatten walks decoded YAML/JSON values and records every
// scalar under its dotted path.
func flatten(props Properties, path string, val interface{}) {
	join := func(key string) string {
		if path == "" {
			return key
		}

		return path + "." + key
	}

	switch typedVal := val.(type) {
	case map[string]interface{}:
		for key, item := range typedVal {
			flatten(props, join(key), item)
		}
	case map[interface{}]interface{}:
		for key, item := range typedVal {
			flatten(props, join(fmt.Sprint(key)), item)
		}
	case []interface{}:
		for idx, item := range typedVal {
			flatten(props, join(strconv.Itoa(idx)), item)
		}
	case nil:
		if path != "" {
			props[path] = ""
		}
	case string:
		props[path] = typedVal
	case float64:
		props[path] = strconv.FormatFloat(typedVal, 'f', -1, 64)
	default:
		props[path] = fmt.Sprint(typedVal)
	}
}
