package resolver

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/byte4ever/tokenparser/templating"
)

// ErrUnresolvedToken is returned when FailOnUnresolved is
// set and a string scalar still holds a token after
// substitution.
var ErrUnresolvedToken = errors.New("unresolved token")

// Resolver substitutes tokens in the string scalars of
// multi-document YAML streams.
type Resolver struct {
	Engine *templating.Engine
	Props  map[string]string

	// Strict rejects documents holding malformed
	// templates instead of copying them unchanged.
	Strict bool

	// FailOnUnresolved rejects documents whose tokens
	// are not all defined in Props.
	FailOnUnresolved bool
}

// Problem locates a malformed template inside a YAML
// stream.
type Problem struct {
	// Doc is the zero-based document index.
	Doc int

	// Path is the dotted path of the scalar, with list
	// indexes in brackets ("spec.containers[0].image").
	Path string

	Offset int
	Reason templating.Reason
}

func (pr Problem) String() string {
	return fmt.Sprintf(
		"document %d: %s: %s at offset %d",
		pr.Doc, pr.Path, pr.Reason, pr.Offset,
	)
}

// ResolveDocuments substitutes tokens with props in every
// string scalar of the YAML stream read from in and writes
// the documents to out separated by "---". Mapping keys
// are never substituted.
func ResolveDocuments(
	in io.Reader,
	out io.Writer,
	en *templating.Engine,
	props map[string]string,
) error {
	rs := Resolver{Engine: en, Props: props}

	return rs.Resolve(in, out)
}

// Resolve reads multi-document YAML from in, substitutes
// tokens in every string scalar and writes the result to
// out.
func (rs *Resolver) Resolve(
	in io.Reader,
	out io.Writer,
) error {
	const errCtx = "resolving documents"

	if rs.Engine == nil {
		return fmt.Errorf(
			"%s: %w: nil engine", errCtx, templating.ErrInvalidStyle,
		)
	}

	decoder := yaml.NewDecoder(in)

	firstObj := true

	for idx := 0; ; idx++ {
		var obj interface{}

		err := decoder.Decode(&obj)
		if err == io.EOF {
			break
		}

		if err != nil {
			return fmt.Errorf(
				"%s: decoding yaml: %w",
				errCtx, err,
			)
		}

		if obj == nil {
			continue
		}

		if rs.Strict {
			if problems := collectProblems(
				rs.Engine, idx, obj,
			); len(problems) > 0 {
				return fmt.Errorf(
					"%s: %s: %w",
					errCtx, problems[0], templating.ErrMalformedTemplate,
				)
			}
		}

		obj = rs.substitute(obj)

		if rs.FailOnUnresolved {
			if err := rs.checkResolved(idx, obj); err != nil {
				return fmt.Errorf("%s: %w", errCtx, err)
			}
		}

		buf, err := yaml.Marshal(obj)
		if err != nil {
			return fmt.Errorf(
				"%s: marshaling object: %w",
				errCtx, err,
			)
		}

		if firstObj {
			firstObj = false
		} else {
			if _, err := out.Write(
				[]byte("---\n"),
			); err != nil {
				return fmt.Errorf(
					"%s: writing separator: %w",
					errCtx, err,
				)
			}
		}

		if _, err := out.Write(buf); err != nil {
			return fmt.Errorf(
				"%s: writing output: %w",
				errCtx, err,
			)
		}
	}

	return nil
}

// ValidateDocuments reports every string scalar of the
// YAML stream that is not a well-formed template for en.
func ValidateDocuments(
	in io.Reader,
	en *templating.Engine,
) ([]Problem, error) {
	const errCtx = "validating documents"

	if en == nil {
		return nil, fmt.Errorf(
			"%s: %w: nil engine", errCtx, templating.ErrInvalidStyle,
		)
	}

	decoder := yaml.NewDecoder(in)

	var problems []Problem

	for idx := 0; ; idx++ {
		var obj interface{}

		err := decoder.Decode(&obj)
		if err == io.EOF {
			break
		}

		if err != nil {
			return nil, fmt.Errorf(
				"%s: decoding yaml: %w",
				errCtx, err,
			)
		}

		problems = append(
			problems, collectProblems(en, idx, obj)...,
		)
	}

	return problems, nil
}

// substitute walks maps and slices in place and returns
// the value with every string scalar expanded.
func (rs *Resolver) substitute(val interface{}) interface{} {
	switch typedVal := val.(type) {
	case string:
		return rs.Engine.Parse(rs.Props, typedVal)
	case map[string]interface{}:
		for key, item := range typedVal {
			typedVal[key] = rs.substitute(item)
		}

		return typedVal
	case map[interface{}]interface{}:
		for key, item := range typedVal {
			typedVal[key] = rs.substitute(item)
		}

		return typedVal
	case []interface{}:
		for idx := range typedVal {
			typedVal[idx] = rs.substitute(typedVal[idx])
		}

		return typedVal
	default:
		return val
	}
}

func (rs *Resolver) checkResolved(doc int, obj interface{}) error {
	var err error

	walk(obj, "", func(path string, str string) {
		if err != nil {
			return
		}

		if names := rs.Engine.Unresolved(rs.Props, str); len(names) > 0 {
			err = fmt.Errorf(
				"%w: document %d: %s: %s",
				ErrUnresolvedToken, doc, path, strings.Join(names, ", "),
			)
		}
	})

	return err
}

func collectProblems(
	en *templating.Engine,
	doc int,
	obj interface{},
) []Problem {
	var problems []Problem

	walk(obj, "", func(path string, str string) {
		var se *templating.SyntaxError
		if errors.As(en.Validate(str), &se) {
			problems = append(problems, Problem{
				Doc:    doc,
				Path:   path,
				Offset: se.Offset,
				Reason: se.Reason,
			})
		}
	})

	return problems
}

// walk calls visit for every string scalar below val, in
// sorted key order.
func walk(
	val interface{},
	path string,
	visit func(path string, str string),
) {
	switch typedVal := val.(type) {
	case string:
		visit(path, typedVal)
	case map[string]interface{}:
		keys := make([]string, 0, len(typedVal))
		for key := range typedVal {
			keys = append(keys, key)
		}

		sort.Strings(keys)

		for _, key := range keys {
			walk(typedVal[key], joinKey(path, key), visit)
		}
	case map[interface{}]interface{}:
		keys := make([]string, 0, len(typedVal))
		byName := make(map[string]interface{}, len(typedVal))

		for key, item := range typedVal {
			name := fmt.Sprint(key)
			keys = append(keys, name)
			byName[name] = item
		}

		sort.Strings(keys)

		for _, key := range keys {
			walk(byName[key], joinKey(path, key), visit)
		}
	case []interface{}:
		for idx := range typedVal {
			walk(
				typedVal[idx],
				path+"["+strconv.Itoa(idx)+"]",
				visit,
			)
		}
	}
}

func joinKey(path string, key string) string {
	if path == "" {
		return key
	}

	return path + "." + key
}
