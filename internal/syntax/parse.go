package syntax

import (
	"bytes"
	"fmt"
)

const (
	maxNesting = 256
	maxErrors  = 64
)

// stopSet is a bitmask of token tags that terminate an expression.
type stopSet uint64

func stops(tags ...TokenTag) stopSet {
	var s stopSet
	for _, t := range tags {
		s |= 1 << t
	}
	return s
}

var (
	// Keywords that can only start a member, never continue an expression.
	stopMember = stops(TokenKeywordPub, TokenKeywordUsingnamespace, TokenKeywordTest)

	stopInit  = stopMember | stops(TokenSemicolon, TokenComma, TokenRParen, TokenRBrace, TokenRBracket, TokenEOF)
	stopType  = stopInit | stops(TokenEqual)
	stopField = stopMember | stops(TokenEqual, TokenComma, TokenRBrace, TokenEOF)
	stopValue = stopMember | stops(TokenComma, TokenRBrace, TokenEOF)
)

type parser struct {
	src    []byte
	tokens []Token
	pos    TokenIndex
	last   TokenIndex
	nodes  []Node
	extra  []uint32
	errors []Error
	depth  int
}

// Parse parses src into a Tree. Syntax errors do not abort parsing; they are
// collected on Tree.Errors and callers decide whether the tree is usable.
func Parse(src []byte) *Tree {
	toks, bad := tokenize(src)
	p := &parser{src: src, tokens: toks}
	for _, i := range bad {
		tok := toks[i]
		p.fail(TokenIndex(i), "invalid token %q", src[tok.Start:tok.End])
	}
	p.skipComments()
	p.nodes = append(p.nodes, Node{Tag: NodeRoot})
	members := p.parseMembers(TokenEOF)
	p.nodes[0].Lhs = p.addRun(members)
	p.nodes[0].LastToken = TokenIndex(len(toks) - 1)
	return &Tree{
		source: src,
		tokens: toks,
		nodes:  p.nodes,
		extra:  p.extra,
		errors: p.errors,
	}
}

func (p *parser) fail(tok TokenIndex, format string, args ...any) {
	if len(p.errors) >= maxErrors {
		return
	}
	line := bytes.Count(p.src[:p.tokens[tok].Start], []byte{'\n'}) + 1
	p.errors = append(p.errors, Error{Token: tok, Line: line, Msg: fmt.Sprintf(format, args...)})
}

func (p *parser) skipComments() {
	for p.tokens[p.pos].Tag.isComment() {
		p.pos++
	}
}

func (p *parser) peek() TokenTag {
	return p.tokens[p.pos].Tag
}

// peekAt returns the tag k significant tokens ahead of the current one.
func (p *parser) peekAt(k int) TokenTag {
	i := p.pos
	for k > 0 && p.tokens[i].Tag != TokenEOF {
		i++
		for p.tokens[i].Tag.isComment() {
			i++
		}
		k--
	}
	return p.tokens[i].Tag
}

func (p *parser) advance() TokenIndex {
	tok := p.pos
	if p.tokens[tok].Tag != TokenEOF {
		p.pos++
		p.skipComments()
	}
	p.last = tok
	return tok
}

func (p *parser) text(tok TokenIndex) string {
	t := p.tokens[tok]
	return string(p.src[t.Start:t.End])
}

func (p *parser) atStop(s stopSet) bool {
	return s&(1<<p.peek()) != 0
}

func (p *parser) addNode(n Node) NodeIndex {
	p.nodes = append(p.nodes, n)
	return NodeIndex(len(p.nodes) - 1)
}

func (p *parser) addRun(items []NodeIndex) uint32 {
	offset := uint32(len(p.extra))
	p.extra = append(p.extra, uint32(len(items)))
	for _, n := range items {
		p.extra = append(p.extra, uint32(n))
	}
	return offset
}

func (p *parser) parseMembers(end TokenTag) []NodeIndex {
	var members []NodeIndex
	for {
		tag := p.peek()
		if tag == end {
			return members
		}
		if tag == TokenEOF {
			p.fail(p.pos, "unexpected end of file")
			return members
		}
		start := p.pos
		if n, ok := p.parseMember(end); ok {
			members = append(members, n)
		}
		if p.pos == start {
			p.advance()
		}
	}
}

func (p *parser) parseMember(end TokenTag) (NodeIndex, bool) {
	switch p.peek() {
	case TokenKeywordTest:
		return p.parseTest()
	case TokenKeywordComptime:
		if p.peekAt(1) == TokenLBrace {
			return p.parseComptime()
		}
		return p.parseField(end)
	case TokenKeywordPub:
		p.advance()
		return p.parseDecl()
	case TokenKeywordUsingnamespace:
		return p.parseUsingnamespace()
	case TokenKeywordConst, TokenKeywordVar, TokenKeywordFn, TokenKeywordExtern,
		TokenKeywordExport, TokenKeywordInline, TokenKeywordNoinline, TokenKeywordThreadlocal:
		return p.parseDecl()
	case TokenIdentifier:
		return p.parseField(end)
	}
	p.fail(p.pos, "expected container member, found %q", p.text(p.pos))
	p.recover()
	return NoNode, false
}

func (p *parser) parseDecl() (NodeIndex, bool) {
	first := p.pos
modifiers:
	for {
		switch p.peek() {
		case TokenKeywordExtern:
			p.advance()
			if p.peek() == TokenStringLiteral {
				p.advance()
			}
		case TokenKeywordExport, TokenKeywordInline, TokenKeywordNoinline, TokenKeywordThreadlocal:
			p.advance()
		default:
			break modifiers
		}
	}
	switch p.peek() {
	case TokenKeywordFn:
		return p.parseFn(first)
	case TokenKeywordConst, TokenKeywordVar:
		return p.parseVarDecl(first)
	case TokenKeywordUsingnamespace:
		return p.parseUsingnamespace()
	}
	p.fail(p.pos, "expected declaration, found %q", p.text(p.pos))
	p.recover()
	return NoNode, false
}

func (p *parser) parseVarDecl(first TokenIndex) (NodeIndex, bool) {
	mut := p.advance()
	if p.peek() != TokenIdentifier {
		p.fail(p.pos, "expected identifier after %q", p.text(mut))
		p.recover()
		return NoNode, false
	}
	p.advance()
	var typ, init NodeIndex
	if p.peek() == TokenColon {
		p.advance()
		typ = p.parseExpr(stopType)
	}
	if p.peek() == TokenEqual {
		p.advance()
		init = p.parseExpr(stopInit)
	}
	if p.peek() != TokenSemicolon {
		p.fail(p.pos, "expected ';' after declaration, found %q", p.text(p.pos))
		p.recover()
		return NoNode, false
	}
	last := p.advance()
	return p.addNode(Node{
		Tag:        NodeVarDecl,
		MainToken:  mut,
		FirstToken: first,
		LastToken:  last,
		Lhs:        uint32(typ),
		Rhs:        uint32(init),
	}), true
}

func (p *parser) parseFn(first TokenIndex) (NodeIndex, bool) {
	fnTok := p.advance()
	if p.peek() == TokenIdentifier {
		p.advance()
	}
	if p.peek() != TokenLParen {
		p.fail(p.pos, "expected '(' after fn, found %q", p.text(p.pos))
		p.recover()
		return NoNode, false
	}
	p.skipBalanced()
	for {
		switch p.peek() {
		case TokenLBrace:
			if p.braceOpensType() {
				p.skipBalanced()
				continue
			}
			last := p.skipBalanced()
			return p.addNode(Node{Tag: NodeFnDecl, MainToken: fnTok, FirstToken: first, LastToken: last}), true
		case TokenSemicolon:
			last := p.advance()
			return p.addNode(Node{Tag: NodeFnProto, MainToken: fnTok, FirstToken: first, LastToken: last}), true
		case TokenLParen, TokenLBracket:
			p.skipBalanced()
		case TokenEOF, TokenRBrace, TokenRParen, TokenRBracket:
			p.fail(p.pos, "expected function body or ';', found %q", p.text(p.pos))
			return NoNode, false
		default:
			p.advance()
		}
	}
}

// braceOpensType reports whether a '{' in a return type belongs to the type
// (error set or container literal) rather than opening the function body.
func (p *parser) braceOpensType() bool {
	switch p.tokens[p.last].Tag {
	case TokenKeywordStruct, TokenKeywordEnum, TokenKeywordUnion, TokenKeywordOpaque:
		return true
	case TokenIdentifier:
		return p.text(p.last) == "error"
	}
	return false
}

func (p *parser) parseTest() (NodeIndex, bool) {
	tok := p.advance()
	if p.peek() == TokenStringLiteral || p.peek() == TokenIdentifier {
		p.advance()
	}
	if p.peek() != TokenLBrace {
		p.fail(p.pos, "expected block after test, found %q", p.text(p.pos))
		p.recover()
		return NoNode, false
	}
	last := p.skipBalanced()
	return p.addNode(Node{Tag: NodeTestDecl, MainToken: tok, FirstToken: tok, LastToken: last}), true
}

func (p *parser) parseComptime() (NodeIndex, bool) {
	tok := p.advance()
	last := p.skipBalanced()
	return p.addNode(Node{Tag: NodeComptime, MainToken: tok, FirstToken: tok, LastToken: last}), true
}

func (p *parser) parseUsingnamespace() (NodeIndex, bool) {
	tok := p.advance()
	expr := p.parseExpr(stopInit)
	if p.peek() != TokenSemicolon {
		p.fail(p.pos, "expected ';' after usingnamespace, found %q", p.text(p.pos))
		p.recover()
		return NoNode, false
	}
	last := p.advance()
	return p.addNode(Node{Tag: NodeUsingnamespace, MainToken: tok, FirstToken: tok, LastToken: last, Lhs: uint32(expr)}), true
}

func (p *parser) parseField(end TokenTag) (NodeIndex, bool) {
	first := p.pos
	if p.peek() == TokenKeywordComptime {
		p.advance()
	}
	if p.peek() != TokenIdentifier {
		p.fail(p.pos, "expected field name, found %q", p.text(p.pos))
		p.recover()
		return NoNode, false
	}
	name := p.advance()
	var typ, def NodeIndex
	if p.peek() == TokenColon {
		p.advance()
		typ = p.parseExpr(stopField)
	}
	if p.peek() == TokenEqual {
		p.advance()
		def = p.parseExpr(stopValue)
	}
	last := p.last
	switch p.peek() {
	case TokenComma:
		last = p.advance()
	case end:
	default:
		p.fail(p.pos, "expected ',' after field, found %q", p.text(p.pos))
		p.recover()
		return NoNode, false
	}
	return p.addNode(Node{
		Tag:        NodeContainerField,
		MainToken:  name,
		FirstToken: first,
		LastToken:  last,
		Lhs:        uint32(typ),
		Rhs:        uint32(def),
	}), true
}

// parseExpr parses the expression shapes resolution understands
// (identifiers, field access, builtin calls, calls, literals, container
// declarations) and falls back to an opaque NodeOther span for everything
// else.
func (p *parser) parseExpr(stop stopSet) NodeIndex {
	start, nodeMark, extraMark, errMark := p.pos, len(p.nodes), len(p.extra), len(p.errors)
	if n, ok := p.parsePrimaryChain(); ok && p.atStop(stop) {
		return n
	}
	p.nodes = p.nodes[:nodeMark]
	p.extra = p.extra[:extraMark]
	p.errors = p.errors[:errMark]
	p.pos = start
	return p.parseOther(stop)
}

func (p *parser) parsePrimaryChain() (NodeIndex, bool) {
	var n NodeIndex
	switch p.peek() {
	case TokenIdentifier:
		tok := p.advance()
		n = p.addNode(Node{Tag: NodeIdentifier, MainToken: tok, FirstToken: tok, LastToken: tok})
	case TokenBuiltin:
		var ok bool
		if n, ok = p.parseBuiltinCall(); !ok {
			return NoNode, false
		}
	case TokenStringLiteral:
		tok := p.advance()
		n = p.addNode(Node{Tag: NodeStringLiteral, MainToken: tok, FirstToken: tok, LastToken: tok})
	case TokenNumberLiteral:
		tok := p.advance()
		n = p.addNode(Node{Tag: NodeNumberLiteral, MainToken: tok, FirstToken: tok, LastToken: tok})
	case TokenKeywordStruct, TokenKeywordEnum, TokenKeywordUnion, TokenKeywordOpaque:
		var ok bool
		if n, ok = p.parseContainerDecl(); !ok {
			return NoNode, false
		}
	case TokenKeywordExtern, TokenKeywordPacked:
		switch p.peekAt(1) {
		case TokenKeywordStruct, TokenKeywordUnion, TokenKeywordEnum, TokenKeywordOpaque:
		default:
			return NoNode, false
		}
		var ok bool
		if n, ok = p.parseContainerDecl(); !ok {
			return NoNode, false
		}
	default:
		return NoNode, false
	}

	for {
		switch p.peek() {
		case TokenPeriod:
			if p.peekAt(1) != TokenIdentifier {
				return n, true
			}
			p.advance()
			name := p.advance()
			n = p.addNode(Node{
				Tag:        NodeFieldAccess,
				MainToken:  name,
				FirstToken: p.nodes[n].FirstToken,
				LastToken:  name,
				Lhs:        uint32(n),
			})
		case TokenLParen:
			args, last, ok := p.parseArgs()
			if !ok {
				return NoNode, false
			}
			n = p.addNode(Node{
				Tag:        NodeCall,
				MainToken:  p.nodes[n].MainToken,
				FirstToken: p.nodes[n].FirstToken,
				LastToken:  last,
				Lhs:        uint32(n),
				Rhs:        p.addRun(args),
			})
		default:
			return n, true
		}
	}
}

func (p *parser) parseBuiltinCall() (NodeIndex, bool) {
	tok := p.advance()
	if p.peek() != TokenLParen {
		p.fail(p.pos, "expected '(' after %s", p.text(tok))
		return NoNode, false
	}
	args, last, ok := p.parseArgs()
	if !ok {
		return NoNode, false
	}
	return p.addNode(Node{
		Tag:        NodeBuiltinCall,
		MainToken:  tok,
		FirstToken: tok,
		LastToken:  last,
		Lhs:        p.addRun(args),
	}), true
}

func (p *parser) parseArgs() ([]NodeIndex, TokenIndex, bool) {
	p.advance()
	var args []NodeIndex
	for {
		if p.peek() == TokenRParen {
			return args, p.advance(), true
		}
		arg := p.parseExpr(stopInit)
		if arg == NoNode {
			return nil, p.pos, false
		}
		args = append(args, arg)
		switch p.peek() {
		case TokenComma:
			p.advance()
		case TokenRParen:
		default:
			p.fail(p.pos, "expected ',' or ')' in argument list, found %q", p.text(p.pos))
			return nil, p.pos, false
		}
	}
}

func (p *parser) parseContainerDecl() (NodeIndex, bool) {
	first := p.pos
	if p.peek() == TokenKeywordExtern || p.peek() == TokenKeywordPacked {
		p.advance()
	}
	kind := p.advance()
	if p.peek() == TokenLParen {
		p.skipBalanced()
	}
	if p.peek() != TokenLBrace {
		p.fail(p.pos, "expected '{' after %s, found %q", p.text(kind), p.text(p.pos))
		return NoNode, false
	}
	p.advance()
	p.depth++
	if p.depth > maxNesting {
		p.fail(kind, "containers nested too deeply")
		p.depth--
		return NoNode, false
	}
	members := p.parseMembers(TokenRBrace)
	p.depth--
	if p.peek() != TokenRBrace {
		p.fail(p.pos, "expected '}' to close %s", p.text(kind))
		return NoNode, false
	}
	last := p.advance()
	return p.addNode(Node{
		Tag:        NodeContainerDecl,
		MainToken:  kind,
		FirstToken: first,
		LastToken:  last,
		Lhs:        p.addRun(members),
	}), true
}

func (p *parser) parseOther(stop stopSet) NodeIndex {
	first := p.pos
	if p.atStop(stop) {
		p.fail(p.pos, "expected expression, found %q", p.text(p.pos))
		return NoNode
	}
	last := first
	for !p.atStop(stop) {
		switch p.peek() {
		case TokenLParen, TokenLBrace, TokenLBracket:
			before := p.pos
			last = p.skipBalanced()
			if p.pos == before {
				return p.addNode(Node{Tag: NodeOther, MainToken: first, FirstToken: first, LastToken: last})
			}
		default:
			last = p.advance()
		}
	}
	return p.addNode(Node{Tag: NodeOther, MainToken: first, FirstToken: first, LastToken: last})
}

// skipBalanced consumes a bracketed group starting at the current opener and
// returns the index of its closing token.
func (p *parser) skipBalanced() TokenIndex {
	var want []TokenTag
	for {
		tok := p.pos
		tag := p.peek()
		switch tag {
		case TokenLParen:
			want = append(want, TokenRParen)
		case TokenLBrace:
			want = append(want, TokenRBrace)
		case TokenLBracket:
			want = append(want, TokenRBracket)
		case TokenRParen, TokenRBrace, TokenRBracket:
			if len(want) == 0 || want[len(want)-1] != tag {
				p.fail(tok, "unbalanced %q", p.text(tok))
				return tok
			}
			want = want[:len(want)-1]
			p.advance()
			if len(want) == 0 {
				return tok
			}
			continue
		case TokenEOF:
			p.fail(tok, "unexpected end of file in bracketed group")
			return tok
		}
		p.advance()
		if len(want) == 0 {
			return tok
		}
	}
}

// recover skips to the end of the current member after a syntax error.
func (p *parser) recover() {
	for {
		switch p.peek() {
		case TokenSemicolon, TokenComma:
			p.advance()
			return
		case TokenRBrace, TokenEOF:
			return
		case TokenLParen, TokenLBrace, TokenLBracket:
			before := p.pos
			p.skipBalanced()
			if p.pos == before {
				p.advance()
			}
		default:
			p.advance()
		}
	}
}
