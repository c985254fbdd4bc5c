package prolog

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

// TokenKind classifies one lexical token (§4.8): name (lowercase or
// symbolic), variable, integer, float, decimal, string, or punctuation.
type TokenKind int

const (
	TokName TokenKind = iota
	TokQuotedAtom
	TokVariable
	TokInteger
	TokFloat
	TokDecimal
	TokString
	TokPunct
	TokEOF
)

// Token is one lexical unit with its source position, used both by the
// parser and for syntax_error reporting (line/column, §4.8).
type Token struct {
	Kind   TokenKind
	Text   string // literal text, unescaped for strings/quoted atoms
	Line   int
	Column int
	// PrecededByLayout marks whether whitespace/comment separated this
	// token from the previous one — needed to distinguish "f(" (a
	// compound functor) from "f (" (atom followed by parenthesized
	// term) per ISO's "no layout before the open paren" rule.
	PrecededByLayout bool
}

// prologLexer is the participle stateful lexer used purely as the
// token-rule engine (§4.8 Design Notes / SPEC_FULL §4.8): regex-based
// classification of raw lexemes. The Pratt parse tree itself is
// hand-written in reader_parser.go because operator priorities mutate
// at load time via op/3 and cannot be expressed in a static grammar.
var prologLexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		{"Whitespace", `[ \t\r\n]+`, nil},
		{"BlockComment", `/\*([^*]|\*[^/])*\*/`, nil},
		{"LineComment", `%[^\n]*`, nil},
		{"Decimal", `[0-9]+\.[0-9]+d`, nil},
		{"Float", `[0-9]+\.[0-9]+([eE][+-]?[0-9]+)?`, nil},
		{"CharCode", `0'(\\.|[^\\])`, nil},
		{"Radix", `0[xX][0-9a-fA-F]+|0[oO][0-7]+|0[bB][01]+`, nil},
		{"Integer", `[0-9]+`, nil},
		{"QuotedAtom", `'(\\.|''|[^'\\])*'`, nil},
		{"String", `"(\\.|""|[^"\\])*"`, nil},
		{"BackQuote", "`(\\\\.|[^`\\\\])*`", nil},
		{"Variable", `[_A-Z][a-zA-Z0-9_]*`, nil},
		{"Name", `[a-z][a-zA-Z0-9_]*`, nil},
		{"Symbolic", `[+\-*/\\^<>=~:.?@#&$]+`, nil},
		{"SoloChar", `[!;]`, nil},
		{"Punct", `[()\[\]{}|,]`, nil},
	},
})

// Tokenizer wraps the participle token stream with the bookkeeping the
// Pratt parser needs: layout tracking and line/column carried through.
type Tokenizer struct {
	env     *Environment
	lex     lexer.Lexer
	pending []Token
	pos     int
}

// NewTokenizer builds a Tokenizer over source text, applying the
// Environment's character-conversion table when the char_conversion
// flag is on (§4.8).
func NewTokenizer(env *Environment, filename, source string) (*Tokenizer, error) {
	lx, err := prologLexer.Lex(filename, strings.NewReader(source))
	if err != nil {
		return nil, SystemError(err, "tokenize")
	}
	t := &Tokenizer{env: env, lex: lx}
	if err := t.tokenizeAll(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Tokenizer) tokenizeAll() error {
	precededByLayout := true
	for {
		raw, err := t.lex.Next()
		if err != nil {
			return SyntaxError(fmt.Sprintf("tokenize: %v", err))
		}
		if raw.EOF() {
			t.pending = append(t.pending, Token{Kind: TokEOF, Line: raw.Pos.Line, Column: raw.Pos.Column})
			return nil
		}
		typeName := prologLexer.Symbols()
		name := symbolName(typeName, raw.Type)
		switch name {
		case "Whitespace", "BlockComment", "LineComment":
			precededByLayout = true
			continue
		}
		tok, convErr := t.classify(name, raw)
		if convErr != nil {
			return convErr
		}
		tok.Line, tok.Column = raw.Pos.Line, raw.Pos.Column
		tok.PrecededByLayout = precededByLayout
		t.pending = append(t.pending, tok)
		precededByLayout = false
	}
}

func symbolName(symbols map[string]lexer.TokenType, tt lexer.TokenType) string {
	for name, id := range symbols {
		if id == tt {
			return name
		}
	}
	return ""
}

func (t *Tokenizer) classify(name string, raw lexer.Token) (Token, error) {
	text := t.applyCharConversion(raw.Value)
	switch name {
	case "Integer", "Radix":
		return Token{Kind: TokInteger, Text: text}, nil
	case "Float":
		return Token{Kind: TokFloat, Text: text}, nil
	case "Decimal":
		return Token{Kind: TokDecimal, Text: strings.TrimSuffix(text, "d")}, nil
	case "CharCode":
		return Token{Kind: TokInteger, Text: text}, nil
	case "QuotedAtom":
		unescaped, err := unescapeQuoted(text, '\'')
		if err != nil {
			return Token{}, err
		}
		return Token{Kind: TokQuotedAtom, Text: unescaped}, nil
	case "String", "BackQuote":
		quote := byte('"')
		if name == "BackQuote" {
			quote = '`'
		}
		unescaped, err := unescapeQuoted(text, rune(quote))
		if err != nil {
			return Token{}, err
		}
		return Token{Kind: TokString, Text: unescaped}, nil
	case "Variable":
		return Token{Kind: TokVariable, Text: text}, nil
	case "Name":
		return Token{Kind: TokName, Text: text}, nil
	case "Symbolic", "SoloChar":
		return Token{Kind: TokName, Text: text}, nil
	case "Punct":
		return Token{Kind: TokPunct, Text: text}, nil
	default:
		return Token{}, SyntaxError("unrecognized token: " + raw.Value)
	}
}

func (t *Tokenizer) applyCharConversion(s string) string {
	if t.env == nil {
		return s
	}
	if v, ok := t.env.Flag("char_conversion"); !ok || !v.Equal(Intern("on")) {
		return s
	}
	var b strings.Builder
	for _, r := range s {
		b.WriteRune(t.env.convertChar(r))
	}
	return b.String()
}

// unescapeQuoted strips the surrounding quote characters and resolves
// backslash escapes and doubled-quote escapes (''/"" /``) inside a
// quoted literal.
func unescapeQuoted(raw string, quote rune) (string, error) {
	inner := raw[1 : len(raw)-1]
	var b strings.Builder
	runes := []rune(inner)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == quote && i+1 < len(runes) && runes[i+1] == quote {
			b.WriteRune(quote)
			i++
			continue
		}
		if r == '\\' && i+1 < len(runes) {
			i++
			switch runes[i] {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case 'a':
				b.WriteByte('\a')
			case 'b':
				b.WriteByte('\b')
			case 'f':
				b.WriteByte('\f')
			case 'v':
				b.WriteByte('\v')
			case '\\', '\'', '"', '`':
				b.WriteRune(runes[i])
			case '\n':
				// backslash-newline is a line continuation: emits nothing.
			default:
				b.WriteRune(runes[i])
			}
			continue
		}
		b.WriteRune(r)
	}
	return b.String(), nil
}

// Peek returns the token n positions ahead without consuming.
func (t *Tokenizer) Peek(n int) Token {
	idx := t.pos + n
	if idx >= len(t.pending) {
		return t.pending[len(t.pending)-1] // EOF
	}
	return t.pending[idx]
}

// Next consumes and returns the next token.
func (t *Tokenizer) Next() Token {
	tok := t.Peek(0)
	if t.pos < len(t.pending)-1 {
		t.pos++
	}
	return tok
}
