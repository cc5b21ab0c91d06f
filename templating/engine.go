package templating

import (
	"errors"
	"fmt"
	"iter"
	"slices"
	"strings"
)

// ErrUnsupportedInput is returned by ParseAny for input
// shapes other than string, []string and map[string]string.
var ErrUnsupportedInput = errors.New("unsupported template input")

// Engine validates templates and substitutes tokens for
// one style. It holds no mutable state and may be shared
// between goroutines. The zero Engine uses AntStyle.
type Engine struct {
	style Style
}

// NewEngine returns an engine for style. A zero Style is
// rejected with ErrInvalidStyle.
func NewEngine(style Style) (*Engine, error) {
	const errCtx = "creating engine"

	if err := style.check(); err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	return &Engine{style: style}, nil
}

// NewNamedEngine returns an engine for the preset
// registered under name (see StyleByName).
func NewNamedEngine(name string) (*Engine, error) {
	const errCtx = "creating engine"

	st, err := StyleByName(name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	return &Engine{style: st}, nil
}

// Style returns the engine style.
func (en *Engine) Style() Style {
	if en.style == (Style{}) {
		return AntStyle()
	}

	return en.style
}

// IsValid reports whether every token in template is
// closed according to the style nesting rules. It never
// fails.
func (en *Engine) IsValid(template string) bool {
	return en.Validate(template) == nil
}

// Validate returns nil for a well-formed template, or a
// *SyntaxError describing the first violation.
func (en *Engine) Validate(template string) error {
	return newScanner(en.Style(), validating, template).validate()
}

// Scan yields the top-level tokens of template in order.
// Unterminated and embedded openings are skipped as
// literal text.
func (en *Engine) Scan(template string) iter.Seq[Token] {
	return func(yield func(Token) bool) {
		sc := newScanner(en.Style(), substituting, template)

		for tok, ok := sc.next(); ok; tok, ok = sc.next() {
			if !yield(tok) {
				return
			}
		}
	}
}

// Tokens returns the top-level tokens of template.
func (en *Engine) Tokens(template string) []Token {
	return slices.Collect(en.Scan(template))
}

// Parse replaces every token whose name is in props with
// the mapped value. Tokens with unknown names are left as
// they are.
func (en *Engine) Parse(
	props map[string]string,
	template string,
) string {
	if len(props) == 0 {
		return template
	}

	return en.ParseFunc(func(name string) (string, bool) {
		val, ok := props[name]

		return val, ok
	}, template)
}

// ParseFunc is Parse with names resolved by lookup. Empty
// names are never looked up.
func (en *Engine) ParseFunc(
	lookup func(name string) (string, bool),
	template string,
) string {
	if lookup == nil {
		return template
	}

	var sb strings.Builder

	last := 0

	for tok := range en.Scan(template) {
		if tok.Name == "" {
			continue
		}

		val, ok := lookup(tok.Name)
		if !ok {
			continue
		}

		sb.WriteString(template[last:tok.Start])
		sb.WriteString(val)
		last = tok.End
	}

	if last == 0 {
		return template
	}

	sb.WriteString(template[last:])

	return sb.String()
}

// Unresolved returns the distinct non-empty token names of
// template that props does not define, in order of first
// appearance.
func (en *Engine) Unresolved(
	props map[string]string,
	template string,
) []string {
	return en.UnresolvedFunc(func(name string) (string, bool) {
		val, ok := props[name]

		return val, ok
	}, template)
}

// UnresolvedFunc is Unresolved with names resolved by
// lookup. A nil lookup resolves nothing.
func (en *Engine) UnresolvedFunc(
	lookup func(name string) (string, bool),
	template string,
) []string {
	var names []string

	seen := make(map[string]struct{})

	for tok := range en.Scan(template) {
		if tok.Name == "" {
			continue
		}

		if lookup != nil {
			if _, ok := lookup(tok.Name); ok {
				continue
			}
		}

		if _, ok := seen[tok.Name]; ok {
			continue
		}

		seen[tok.Name] = struct{}{}
		names = append(names, tok.Name)
	}

	return names
}

// ParseSlice applies Parse to every element. A nil slice
// yields an empty one.
func (en *Engine) ParseSlice(
	props map[string]string,
	templates []string,
) []string {
	out := make([]string, len(templates))

	for idx, tpl := range templates {
		out[idx] = en.Parse(props, tpl)
	}

	return out
}

// ParseMap applies Parse to every value. Keys are kept
// unchanged. A nil map yields an empty one.
func (en *Engine) ParseMap(
	props map[string]string,
	templates map[string]string,
) map[string]string {
	out := make(map[string]string, len(templates))

	for key, tpl := range templates {
		out[key] = en.Parse(props, tpl)
	}

	return out
}

// ParseAny dispatches on the input shape: string,
// []string or map[string]string. A nil input yields an
// empty string.
func (en *Engine) ParseAny(
	props map[string]string,
	input any,
) (any, error) {
	switch typedVal := input.(type) {
	case nil:
		return "", nil
	case string:
		return en.Parse(props, typedVal), nil
	case []string:
		return en.ParseSlice(props, typedVal), nil
	case map[string]string:
		return en.ParseMap(props, typedVal), nil
	default:
		return nil, fmt.Errorf(
			"%w: %T", ErrUnsupportedInput, input,
		)
	}
}
