package templating

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ErrMalformedTemplate is wrapped by every SyntaxError.
var ErrMalformedTemplate = errors.New("malformed template")

// Reason describes why a template failed validation.
type Reason string

// Validation failure reasons.
const (
	ReasonUnterminated    Reason = "unterminated token"
	ReasonEmbedded        Reason = "embedded token"
	ReasonUnmatchedSuffix Reason = "unmatched suffix"
	ReasonMarkerSpacing   Reason = "whitespace between marker and bracket"
)

// SyntaxError reports the first violation found while
// validating a template. Offset is a byte offset.
type SyntaxError struct {
	Offset int
	Reason Reason
}

func (se *SyntaxError) Error() string {
	return fmt.Sprintf(
		"%s: %s at offset %d",
		ErrMalformedTemplate, se.Reason, se.Offset,
	)
}

// Unwrap returns ErrMalformedTemplate.
func (se *SyntaxError) Unwrap() error {
	return ErrMalformedTemplate
}

// Token is a delimited span found by the scanner. Start
// and End are byte offsets of the whole span, delimiters
// included; Name is the text between the delimiters.
type Token struct {
	Name  string
	Start int
	End   int
}

type scanMode int

const (
	validating scanMode = iota
	substituting
)

// scanner walks a template once. It is not restartable;
// every call site builds a fresh one.
type scanner struct {
	prefix  string
	suffix  string
	marker  string
	bracket string
	bare    bool

	mode  scanMode
	input string
	pos   int
	err   *SyntaxError
}

func newScanner(st Style, mode scanMode, input string) *scanner {
	sc := &scanner{
		prefix: st.prefix,
		suffix: st.suffix,
		mode:   mode,
		input:  input,
	}

	if marker, bracket, ok := st.marker(); ok {
		sc.marker = marker
		sc.bracket = bracket
		sc.bare = st.bareBrackets
	}

	return sc
}

// next returns the next top-level token. It returns false
// at the end of the input, or on the first violation when
// validating (sc.err is then set).
func (sc *scanner) next() (Token, bool) {
	for sc.pos < len(sc.input) {
		rest := sc.input[sc.pos:]

		switch {
		case strings.HasPrefix(rest, sc.prefix):
			if tok, ok := sc.token(sc.pos); ok {
				return tok, true
			}

			if sc.err != nil {
				return Token{}, false
			}
		case strings.HasPrefix(rest, sc.suffix):
			if sc.mode == validating {
				sc.fail(sc.pos, ReasonUnmatchedSuffix)

				return Token{}, false
			}

			sc.pos += len(sc.suffix)
		case sc.mode == validating && sc.spacedMarker(rest):
			sc.fail(sc.pos, ReasonMarkerSpacing)

			return Token{}, false
		default:
			sc.pos++
		}
	}

	return Token{}, false
}

// token consumes the token opened at start. When the token
// cannot be closed it returns false; in substituting mode
// sc.pos is left where literal scanning resumes.
func (sc *scanner) token(start int) (Token, bool) {
	open := start + len(sc.prefix)
	depth := 0

	for idx := open; idx < len(sc.input); {
		rest := sc.input[idx:]

		switch {
		case strings.HasPrefix(rest, sc.prefix):
			if sc.mode == validating {
				sc.fail(idx, ReasonEmbedded)

				return Token{}, false
			}

			// The outer opening stays literal and the
			// embedded prefix starts a new token.
			sc.pos = idx

			return Token{}, false
		case strings.HasPrefix(rest, sc.suffix):
			if depth > 0 {
				depth--
				idx += len(sc.suffix)

				continue
			}

			sc.pos = idx + len(sc.suffix)

			return Token{
				Name:  sc.input[open:idx],
				Start: start,
				End:   sc.pos,
			}, true
		case sc.bare && strings.HasPrefix(rest, sc.bracket):
			depth++
			idx += len(sc.bracket)
		default:
			idx++
		}
	}

	if sc.mode == validating {
		sc.fail(start, ReasonUnterminated)

		return Token{}, false
	}

	sc.pos = len(sc.input)

	return Token{}, false
}

// spacedMarker reports whether rest starts with the style
// marker, then whitespace, then the bracket ("$ {").
func (sc *scanner) spacedMarker(rest string) bool {
	if sc.marker == "" || !strings.HasPrefix(rest, sc.marker) {
		return false
	}

	rest = rest[len(sc.marker):]
	spaced := false

	for rest != "" {
		ru, size := utf8.DecodeRuneInString(rest)
		if !unicode.IsSpace(ru) {
			break
		}

		spaced = true
		rest = rest[size:]
	}

	return spaced && strings.HasPrefix(rest, sc.bracket)
}

func (sc *scanner) fail(offset int, reason Reason) {
	sc.err = &SyntaxError{Offset: offset, Reason: reason}
}

// validate runs the scanner to the end and returns the
// first violation, if any.
func (sc *scanner) validate() error {
	for {
		if _, ok := sc.next(); !ok {
			break
		}
	}

	if sc.err != nil {
		return sc.err
	}

	return nil
}
