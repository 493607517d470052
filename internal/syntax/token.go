package syntax

import "fmt"

// TokenTag classifies a token.
type TokenTag uint8

const (
	TokenInvalid TokenTag = iota
	TokenEOF
	TokenIdentifier
	TokenBuiltin
	TokenStringLiteral
	TokenMultilineStringLine
	TokenCharLiteral
	TokenNumberLiteral
	TokenDocComment
	TokenContainerDocComment

	TokenLBrace
	TokenRBrace
	TokenLParen
	TokenRParen
	TokenLBracket
	TokenRBracket
	TokenSemicolon
	TokenComma
	TokenColon
	TokenPeriod
	TokenEqual
	TokenOperator

	TokenKeywordPub
	TokenKeywordConst
	TokenKeywordVar
	TokenKeywordFn
	TokenKeywordStruct
	TokenKeywordEnum
	TokenKeywordUnion
	TokenKeywordOpaque
	TokenKeywordUsingnamespace
	TokenKeywordTest
	TokenKeywordComptime
	TokenKeywordExtern
	TokenKeywordExport
	TokenKeywordInline
	TokenKeywordNoinline
	TokenKeywordThreadlocal
	TokenKeywordPacked
)

var keywords = map[string]TokenTag{
	"pub":            TokenKeywordPub,
	"const":          TokenKeywordConst,
	"var":            TokenKeywordVar,
	"fn":             TokenKeywordFn,
	"struct":         TokenKeywordStruct,
	"enum":           TokenKeywordEnum,
	"union":          TokenKeywordUnion,
	"opaque":         TokenKeywordOpaque,
	"usingnamespace": TokenKeywordUsingnamespace,
	"test":           TokenKeywordTest,
	"comptime":       TokenKeywordComptime,
	"extern":         TokenKeywordExtern,
	"export":         TokenKeywordExport,
	"inline":         TokenKeywordInline,
	"noinline":       TokenKeywordNoinline,
	"threadlocal":    TokenKeywordThreadlocal,
	"packed":         TokenKeywordPacked,
}

// Token is a tagged byte range of the source.
type Token struct {
	Tag   TokenTag
	Start uint32
	End   uint32
}

// TokenIndex addresses a token in Tree.Tokens.
type TokenIndex uint32

// Error is a syntax error anchored at a token.
type Error struct {
	Token TokenIndex
	Line  int
	Msg   string
}

func (e Error) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

// isComment reports whether the tag is skipped by the parser.
func (t TokenTag) isComment() bool {
	return t == TokenDocComment || t == TokenContainerDocComment
}

type tokenizer struct {
	src  []byte
	pos  int
	toks []Token
	errs []string
	bad  []int
}

// tokenize splits src into tokens. Plain line comments are dropped; doc
// comments are kept so declarations can recover their documentation.
func tokenize(src []byte) ([]Token, []int) {
	z := &tokenizer{src: src}
	for {
		tok, ok := z.next()
		if !ok {
			break
		}
		z.toks = append(z.toks, tok)
	}
	z.toks = append(z.toks, Token{Tag: TokenEOF, Start: uint32(len(src)), End: uint32(len(src))})
	return z.toks, z.bad
}

func (z *tokenizer) peekByte(off int) byte {
	if z.pos+off < len(z.src) {
		return z.src[z.pos+off]
	}
	return 0
}

func (z *tokenizer) emit(tag TokenTag, start int) (Token, bool) {
	return Token{Tag: tag, Start: uint32(start), End: uint32(z.pos)}, true
}

func (z *tokenizer) invalid(start int) (Token, bool) {
	z.bad = append(z.bad, len(z.toks))
	return z.emit(TokenInvalid, start)
}

func (z *tokenizer) next() (Token, bool) {
	for z.pos < len(z.src) {
		c := z.src[z.pos]
		if c == ' ' || c == '\t' || c == '\r' || c == '\n' {
			z.pos++
			continue
		}
		if c == '/' && z.peekByte(1) == '/' {
			start := z.pos
			z.skipLine()
			text := z.src[start:z.pos]
			switch {
			case len(text) >= 3 && text[2] == '/' && (len(text) == 3 || text[3] != '/'):
				return z.emit(TokenDocComment, start)
			case len(text) >= 3 && text[2] == '!':
				return z.emit(TokenContainerDocComment, start)
			}
			continue
		}
		break
	}
	if z.pos >= len(z.src) {
		return Token{}, false
	}

	start := z.pos
	c := z.src[z.pos]
	switch {
	case isIdentStart(c):
		for z.pos < len(z.src) && isIdentChar(z.src[z.pos]) {
			z.pos++
		}
		if tag, ok := keywords[string(z.src[start:z.pos])]; ok {
			return z.emit(tag, start)
		}
		return z.emit(TokenIdentifier, start)
	case isDigit(c):
		z.scanNumber()
		return z.emit(TokenNumberLiteral, start)
	}

	switch c {
	case '@':
		z.pos++
		if z.peekByte(0) == '"' {
			if !z.scanQuoted('"') {
				return z.invalid(start)
			}
			return z.emit(TokenIdentifier, start)
		}
		if !isIdentStart(z.peekByte(0)) {
			return z.invalid(start)
		}
		for z.pos < len(z.src) && isIdentChar(z.src[z.pos]) {
			z.pos++
		}
		return z.emit(TokenBuiltin, start)
	case '"':
		if !z.scanQuoted('"') {
			return z.invalid(start)
		}
		return z.emit(TokenStringLiteral, start)
	case '\'':
		if !z.scanQuoted('\'') {
			return z.invalid(start)
		}
		return z.emit(TokenCharLiteral, start)
	case '\\':
		if z.peekByte(1) != '\\' {
			z.pos++
			return z.invalid(start)
		}
		z.skipLine()
		return z.emit(TokenMultilineStringLine, start)
	case '{':
		z.pos++
		return z.emit(TokenLBrace, start)
	case '}':
		z.pos++
		return z.emit(TokenRBrace, start)
	case '(':
		z.pos++
		return z.emit(TokenLParen, start)
	case ')':
		z.pos++
		return z.emit(TokenRParen, start)
	case '[':
		z.pos++
		return z.emit(TokenLBracket, start)
	case ']':
		z.pos++
		return z.emit(TokenRBracket, start)
	case ';':
		z.pos++
		return z.emit(TokenSemicolon, start)
	case ',':
		z.pos++
		return z.emit(TokenComma, start)
	case ':':
		z.pos++
		return z.emit(TokenColon, start)
	case '.':
		z.pos++
		switch z.peekByte(0) {
		case '.':
			z.pos++
			if z.peekByte(0) == '.' {
				z.pos++
			}
			return z.emit(TokenOperator, start)
		case '*', '?':
			z.pos++
			return z.emit(TokenOperator, start)
		}
		return z.emit(TokenPeriod, start)
	case '=':
		z.pos++
		if n := z.peekByte(0); n == '=' || n == '>' {
			z.pos++
			return z.emit(TokenOperator, start)
		}
		return z.emit(TokenEqual, start)
	case '!', '<', '>', '+', '-', '*', '/', '%', '&', '|', '^', '~', '?':
		z.pos++
		for z.pos < len(z.src) && isOperatorTail(z.src[z.pos]) {
			z.pos++
		}
		return z.emit(TokenOperator, start)
	}

	z.pos++
	return z.invalid(start)
}

func (z *tokenizer) skipLine() {
	for z.pos < len(z.src) && z.src[z.pos] != '\n' {
		z.pos++
	}
}

// scanQuoted consumes a quoted literal starting at the opening quote.
// Literals may not span lines.
func (z *tokenizer) scanQuoted(quote byte) bool {
	z.pos++
	for z.pos < len(z.src) {
		switch z.src[z.pos] {
		case '\\':
			z.pos += 2
		case '\n':
			return false
		case quote:
			z.pos++
			return true
		default:
			z.pos++
		}
	}
	z.pos = len(z.src)
	return false
}

func (z *tokenizer) scanNumber() {
	for z.pos < len(z.src) {
		c := z.src[z.pos]
		switch {
		case isIdentChar(c):
			z.pos++
			if (c == 'e' || c == 'E' || c == 'p' || c == 'P') && (z.peekByte(0) == '+' || z.peekByte(0) == '-') {
				z.pos++
			}
		case c == '.' && isDigit(z.peekByte(1)):
			z.pos++
		default:
			return
		}
	}
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isOperatorTail(c byte) bool {
	switch c {
	case '=', '<', '>', '|', '&', '*', '+', '-', '%':
		return true
	}
	return false
}
