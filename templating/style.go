package templating

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrInvalidStyle is returned when a style has an empty
// prefix or suffix, or when the suffix starts with the
// prefix (no token could ever close).
var ErrInvalidStyle = errors.New("invalid style")

// ErrUnknownStyle is returned by StyleByName for names
// that do not match a preset. It wraps ErrInvalidStyle.
var ErrUnknownStyle = fmt.Errorf("%w: unknown style name", ErrInvalidStyle)

// StyleName identifies a preset style.
type StyleName string

// Preset style names accepted by StyleByName.
const (
	SquareBracesName StyleName = "square"
	AntStyleName     StyleName = "ant"
	ExpressionName   StyleName = "expression"
	CurlyBracesName  StyleName = "curly"
)

// Style is an immutable prefix/suffix delimiter pair plus
// the nesting policy used by the scanner.
type Style struct {
	prefix       string
	suffix       string
	bareBrackets bool
}

// NewStyle returns a custom style. Bare brackets are not
// tolerated inside tokens of custom styles.
func NewStyle(prefix string, suffix string) (Style, error) {
	const errCtx = "creating style"

	st := Style{prefix: prefix, suffix: suffix}
	if err := st.check(); err != nil {
		return Style{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	return st, nil
}

// SquareBraces returns the "[" "]" style.
func SquareBraces() Style {
	return Style{prefix: "[", suffix: "]"}
}

// AntStyle returns the "${" "}" style.
func AntStyle() Style {
	return Style{prefix: "${", suffix: "}"}
}

// ExpressionStyle returns the "#[" "]" style. Square
// brackets that are not part of the delimiters are
// allowed inside a token, so "#[foo:blah[4] = 'foo']"
// holds a single token.
func ExpressionStyle() Style {
	return Style{prefix: "#[", suffix: "]", bareBrackets: true}
}

// CurlyBraces returns the "{" "}" style.
func CurlyBraces() Style {
	return Style{prefix: "{", suffix: "}"}
}

// StyleByName returns the preset registered under name.
// Matching is case-insensitive; "mule" and "wiretap" are
// accepted as aliases of the expression style.
func StyleByName(name string) (Style, error) {
	switch StyleName(strings.ToLower(strings.TrimSpace(name))) {
	case SquareBracesName:
		return SquareBraces(), nil
	case AntStyleName:
		return AntStyle(), nil
	case ExpressionName, "mule", "wiretap":
		return ExpressionStyle(), nil
	case CurlyBracesName:
		return CurlyBraces(), nil
	default:
		return Style{}, fmt.Errorf("%w: %q", ErrUnknownStyle, name)
	}
}

// Prefix returns the opening delimiter.
func (st Style) Prefix() string {
	return st.prefix
}

// Suffix returns the closing delimiter.
func (st Style) Suffix() string {
	return st.suffix
}

// BareBrackets reports whether bracket characters that are
// not part of the delimiters may appear inside a token.
func (st Style) BareBrackets() bool {
	return st.bareBrackets
}

// String renders the style as prefix and suffix separated
// by a space.
func (st Style) String() string {
	return st.prefix + " " + st.suffix
}

func (st Style) check() error {
	switch {
	case st.prefix == "":
		return fmt.Errorf("%w: empty prefix", ErrInvalidStyle)
	case st.suffix == "":
		return fmt.Errorf("%w: empty suffix", ErrInvalidStyle)
	case strings.HasPrefix(st.suffix, st.prefix):
		return fmt.Errorf(
			"%w: suffix %q starts with prefix %q",
			ErrInvalidStyle, st.suffix, st.prefix,
		)
	}

	return nil
}

// marker splits a multi-rune prefix into its leading
// marker and trailing bracket ("${" gives "$" and "{").
// ok is false for single-rune prefixes.
func (st Style) marker() (marker string, bracket string, ok bool) {
	_, size := utf8.DecodeLastRuneInString(st.prefix)
	if size == 0 || size == len(st.prefix) {
		return "", "", false
	}

	cut := len(st.prefix) - size

	return st.prefix[:cut], st.prefix[cut:], true
}
