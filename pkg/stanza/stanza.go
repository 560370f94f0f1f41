// Package stanza implements the textual stanza format used by the cset,
// roster, and roster-delta textual encodings (§4.7).
//
// Grounded on _examples/original_source/basic_io.hh and basic_io.cc (the
// basic_io namespace's tokenizer, stanza, printer, and parser), translated
// from the original's symbol/string/hex token model into idiomatic Go.
package stanza

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// TokenKind identifies the lexical class of a token produced by the
// tokenizer.
type TokenKind int

const (
	// TokenNone marks end of input.
	TokenNone TokenKind = iota
	// TokenSymbol is a bare identifier (letters, digits, underscore).
	TokenSymbol
	// TokenString is a double-quoted string with backslash escapes.
	TokenString
	// TokenHex is a square-bracketed run of hex digits.
	TokenHex
)

// Entry is one key/value pair within a Stanza. Hex is true when the value
// was (or should be) rendered as a bracketed hex token rather than a quoted
// string.
type Entry struct {
	Key   string
	Value string
	Hex   bool
}

// Stanza is an ordered sequence of key/value entries, printed as a block of
// "key value" lines separated from neighboring stanzas by a blank line.
type Stanza struct {
	Entries []Entry
}

// PushStringPair appends a STRING-valued entry.
func (s *Stanza) PushStringPair(key, value string) {
	s.Entries = append(s.Entries, Entry{Key: key, Value: value})
}

// PushHexPair appends a HEX-valued entry. value is the already hex-encoded
// digest string.
func (s *Stanza) PushHexPair(key, value string) {
	s.Entries = append(s.Entries, Entry{Key: key, Value: value, Hex: true})
}

// Print renders a list of stanzas in the basic_io textual format: within
// each stanza, keys are right-padded to that stanza's widest key; stanzas
// are separated by a single blank line.
func Print(stanzas []Stanza) string {
	var b strings.Builder
	for i, st := range stanzas {
		if i > 0 {
			b.WriteByte('\n')
		}
		width := 0
		for _, e := range st.Entries {
			if len(e.Key) > width {
				width = len(e.Key)
			}
		}
		for _, e := range st.Entries {
			b.WriteString(e.Key)
			for pad := len(e.Key); pad < width; pad++ {
				b.WriteByte(' ')
			}
			b.WriteByte(' ')
			if e.Hex {
				b.WriteByte('[')
				b.WriteString(e.Value)
				b.WriteByte(']')
			} else {
				writeQuotedString(&b, e.Value)
			}
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// writeQuotedString renders a STRING token's value, escaping only the two
// characters the tokenizer's lexString understands (`\` and `"`) and
// leaving every other byte — including NUL and other control bytes —
// untouched, so that any byte sequence 0x00-0xFF round-trips (§4.7,
// "binary transparency"). This deliberately does not use strconv.Quote,
// whose Go-syntax escapes (\n, \t, \xHH, ...) lexString does not decode.
func writeQuotedString(b *strings.Builder, s string) {
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\\' || c == '"' {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}
	b.WriteByte('"')
}

// tokenizer lexes the basic_io textual format one token at a time.
type tokenizer struct {
	input []byte
	pos   int
	line  int
	col   int
}

func newTokenizer(input string) *tokenizer {
	return &tokenizer{input: []byte(input), line: 1, col: 1}
}

func (t *tokenizer) advance() byte {
	c := t.input[t.pos]
	t.pos++
	if c == '\n' {
		t.line++
		t.col = 1
	} else {
		t.col++
	}
	return c
}

func (t *tokenizer) skipSpace() {
	for t.pos < len(t.input) {
		c := t.input[t.pos]
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			t.advance()
			continue
		}
		break
	}
}

// next returns the next token's kind and decoded value.
func (t *tokenizer) next() (TokenKind, string, error) {
	t.skipSpace()
	if t.pos >= len(t.input) {
		return TokenNone, "", nil
	}
	c := t.input[t.pos]
	switch {
	case c == '"':
		return t.lexString()
	case c == '[':
		return t.lexHex()
	case isSymbolStart(c):
		return t.lexSymbol()
	default:
		return TokenNone, "", errors.Errorf("stanza: unexpected byte %q at line %d column %d", c, t.line, t.col)
	}
}

func isSymbolStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func (t *tokenizer) lexSymbol() (TokenKind, string, error) {
	start := t.pos
	for t.pos < len(t.input) && isSymbolStart(t.input[t.pos]) {
		t.advance()
	}
	return TokenSymbol, string(t.input[start:t.pos]), nil
}

func (t *tokenizer) lexString() (TokenKind, string, error) {
	line, col := t.line, t.col
	t.advance() // opening quote
	var b strings.Builder
	for {
		if t.pos >= len(t.input) {
			return TokenNone, "", errors.Errorf("stanza: unterminated string starting at line %d column %d", line, col)
		}
		c := t.advance()
		if c == '"' {
			return TokenString, b.String(), nil
		}
		if c == '\\' {
			if t.pos >= len(t.input) {
				return TokenNone, "", errors.Errorf("stanza: dangling escape at line %d column %d", t.line, t.col)
			}
			esc := t.advance()
			switch esc {
			case '\\', '"':
				b.WriteByte(esc)
			default:
				return TokenNone, "", errors.Errorf("stanza: invalid escape %q at line %d column %d", esc, t.line, t.col)
			}
			continue
		}
		b.WriteByte(c)
	}
}

func (t *tokenizer) lexHex() (TokenKind, string, error) {
	line, col := t.line, t.col
	t.advance() // '['
	start := t.pos
	for t.pos < len(t.input) && isHexDigit(t.input[t.pos]) {
		t.advance()
	}
	value := string(t.input[start:t.pos])
	if t.pos >= len(t.input) || t.input[t.pos] != ']' {
		return TokenNone, "", errors.Errorf("stanza: unterminated hex token starting at line %d column %d", line, col)
	}
	t.advance() // ']'
	return TokenHex, value, nil
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// Parser consumes a basic_io token stream key-by-key, matching the
// original's advance/eat/sym/str/hex/esym interface.
type Parser struct {
	tok        *tokenizer
	kind       TokenKind
	value      string
	haveLooked bool
}

// NewParser constructs a Parser over the given textual input.
func NewParser(input string) (*Parser, error) {
	p := &Parser{tok: newTokenizer(input)}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Parser) advance() error {
	kind, value, err := p.tok.next()
	if err != nil {
		return err
	}
	p.kind, p.value = kind, value
	p.haveLooked = true
	return nil
}

// Done reports whether the parser has reached end of input.
func (p *Parser) Done() bool {
	return p.kind == TokenNone
}

// Sym consumes a SYMBOL token and returns its text, failing if the current
// token is not a symbol.
func (p *Parser) Sym() (string, error) {
	if p.kind != TokenSymbol {
		return "", errors.Errorf("stanza: expected symbol, got token kind %d", p.kind)
	}
	v := p.value
	return v, p.advance()
}

// ESym consumes a SYMBOL token and fails unless it equals expected (the
// original's "esym", expected-symbol).
func (p *Parser) ESym(expected string) error {
	got, err := p.Sym()
	if err != nil {
		return err
	}
	if got != expected {
		return errors.Errorf("stanza: expected symbol %q, got %q", expected, got)
	}
	return nil
}

// Str consumes a STRING token and returns its decoded value.
func (p *Parser) Str() (string, error) {
	if p.kind != TokenString {
		return "", errors.Errorf("stanza: expected string, got token kind %d", p.kind)
	}
	v := p.value
	return v, p.advance()
}

// Hex consumes a HEX token and returns its raw hex digits.
func (p *Parser) Hex() (string, error) {
	if p.kind != TokenHex {
		return "", errors.Errorf("stanza: expected hex, got token kind %d", p.kind)
	}
	v := p.value
	return v, p.advance()
}

// Peek returns the kind of the next unconsumed token without advancing.
func (p *Parser) Peek() TokenKind {
	return p.kind
}

// PeekSym reports whether the next token is a SYMBOL equal to s, without
// consuming it.
func (p *Parser) PeekSym(s string) bool {
	return p.kind == TokenSymbol && p.value == s
}

// String implements fmt.Stringer for diagnostics.
func (k TokenKind) String() string {
	switch k {
	case TokenNone:
		return "NONE"
	case TokenSymbol:
		return "SYMBOL"
	case TokenString:
		return "STRING"
	case TokenHex:
		return "HEX"
	default:
		return fmt.Sprintf("TokenKind(%d)", int(k))
	}
}
