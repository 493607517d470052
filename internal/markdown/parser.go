package markdown

import (
	"strings"
)

// scope is an open block on the parser stack. Child nodes and text of the
// innermost scopes accumulate in the parser's shared scratch buffers from
// childStart and textStart onward.
type scope struct {
	tag        Tag
	childStart int
	textStart  int

	level int

	fenceChar   byte
	fenceLen    int
	fenceIndent int
	lang        string

	ordered    bool
	marker     byte
	start      uint32
	markerCol  int
	contentCol int
	empty      bool
	next       int
	loose      bool
	blankSeen  bool
}

// Parser builds a Document from lines fed one at a time. The zero value is
// not usable; call NewParser.
type Parser struct {
	doc    *Document
	scopes []scope
	nodes  []NodeIndex
	text   []byte
	done   bool
}

// NewParser returns a parser with an open document root.
func NewParser() *Parser {
	return &Parser{
		doc:    newDocument(),
		scopes: []scope{{tag: TagRoot}},
	}
}

// Parse splits text into lines and parses them.
func Parse(text string) *Document {
	p := NewParser()
	for _, line := range strings.Split(text, "\n") {
		p.Feed(line)
	}
	return p.Finish()
}

type matchResult uint8

const (
	matchOK matchResult = iota
	matchFail
	matchClose
)

// Feed consumes one line of input. The line must not contain a newline
// except as its final byte.
func (p *Parser) Feed(line string) {
	if p.done {
		panic("markdown: Feed after Finish")
	}
	line = expandIndent(strings.TrimRight(line, "\r\n"))

	// Match open scopes outermost first; the first failure is the cut point.
	// Blankness is judged on what remains after the outer markers.
	pos := 0
	cut := len(p.scopes)
	fenceClosed := false
	for i := 1; i < len(p.scopes); i++ {
		next, res := p.match(&p.scopes[i], line, pos, isBlank(line[pos:]))
		if res != matchOK {
			cut = i
			fenceClosed = res == matchClose
			break
		}
		pos = next
	}
	blank := isBlank(line[pos:])

	if blank {
		p.markBlank(cut)
	}

	// Open new blocks unless the innermost matched scope is a code block.
	parent := cut - 1
	if p.scopes[parent].tag == TagParagraph {
		parent--
	}
	topIsParagraph := p.scopes[len(p.scopes)-1].tag == TagParagraph
	var opens []scope
	rest := pos
	if !fenceClosed && p.scopes[cut-1].tag != TagCodeBlock {
		for {
			var compat *scope
			if len(opens) == 0 {
				compat = &p.scopes[parent]
			}
			s, ok := p.open(line, rest, compat, topIsParagraph && len(opens) == 0)
			if !ok {
				break
			}
			opens = append(opens, s)
			rest = s.next
			if s.tag == TagHeading || s.tag == TagThematicBreak || s.tag == TagCodeBlock {
				break
			}
		}
	}

	// Lazy paragraph continuation.
	if len(opens) == 0 && !blank && !fenceClosed && topIsParagraph {
		p.appendParagraph(line[pos:])
		return
	}

	// A new block closes an open paragraph it would otherwise nest under.
	if len(opens) > 0 && cut > parent+1 {
		cut = parent + 1
	}
	for len(p.scopes) > cut {
		p.closeTop()
	}
	if fenceClosed {
		return
	}
	if !blank {
		p.markContent()
	}

	for _, s := range opens {
		p.push(s)
	}

	top := &p.scopes[len(p.scopes)-1]
	switch top.tag {
	case TagCodeBlock:
		if len(opens) == 0 || opens[len(opens)-1].tag != TagCodeBlock {
			p.text = append(p.text, line[rest:]...)
			p.text = append(p.text, '\n')
		}
	case TagHeading:
		p.text = append(p.text, headingContent(line[rest:])...)
	case TagThematicBreak:
	default:
		if isBlank(line[rest:]) {
			return
		}
		for p.scopes[len(p.scopes)-1].tag == TagList {
			p.closeTop()
		}
		if p.scopes[len(p.scopes)-1].tag != TagParagraph {
			p.pushScope(scope{tag: TagParagraph})
		}
		p.appendParagraph(line[rest:])
	}
}

// Finish closes every open scope and returns the finished document. The
// parser cannot be used afterwards.
func (p *Parser) Finish() *Document {
	if !p.done {
		for len(p.scopes) > 0 {
			p.closeTop()
		}
		p.done = true
	}
	return p.doc
}

func (p *Parser) match(s *scope, line string, pos int, blank bool) (int, matchResult) {
	switch s.tag {
	case TagParagraph:
		if blank {
			return pos, matchFail
		}
		return pos, matchOK
	case TagBlockquote:
		next, ok := blockquoteMarker(line, pos)
		if !ok {
			return pos, matchFail
		}
		return next, matchOK
	case TagList:
		if blank {
			return pos, matchOK
		}
		if pos+indentAt(line, pos) > s.markerCol {
			return pos, matchOK
		}
		if m, ok := listMarker(line, pos); ok && compatible(s, &m) && !isThematicBreak(line[pos:]) {
			return pos, matchOK
		}
		return pos, matchFail
	case TagListItem:
		if blank {
			return pos, matchOK
		}
		ind := indentAt(line, pos)
		if pos+ind <= s.markerCol {
			return pos, matchFail
		}
		return pos + min(ind, max(s.contentCol-pos, 0)), matchOK
	case TagCodeBlock:
		ind := indentAt(line, pos)
		if ind <= 3 && isClosingFence(line[pos+ind:], s.fenceChar, s.fenceLen) {
			return pos, matchClose
		}
		return pos + min(ind, s.fenceIndent), matchOK
	case TagHeading, TagThematicBreak:
		return pos, matchFail
	case TagRoot:
		return pos, matchOK
	}
	panic("markdown: unexpected scope " + s.tag.String())
}

// open tries to start one block at pos. compat is the scope a first opener
// would nest under; a list item continues it when it is a compatible list.
func (p *Parser) open(line string, pos int, compat *scope, interrupts bool) (scope, bool) {
	if isThematicBreak(line[pos:]) {
		return scope{tag: TagThematicBreak, next: len(line)}, true
	}
	if next, ok := blockquoteMarker(line, pos); ok {
		return scope{tag: TagBlockquote, next: next}, true
	}
	if level, next, ok := headingMarker(line, pos); ok {
		return scope{tag: TagHeading, level: level, next: next}, true
	}
	if s, ok := fenceMarker(line, pos); ok {
		return s, true
	}
	if m, ok := listMarker(line, pos); ok {
		continues := compat != nil && compatible(compat, &m)
		if interrupts && !continues && (m.empty || (m.ordered && m.start != 1)) {
			return scope{}, false
		}
		return m, true
	}
	return scope{}, false
}

// push opens s, adding the list around a list item when the current
// innermost scope is not a compatible list.
func (p *Parser) push(s scope) {
	if s.tag == TagListItem {
		top := &p.scopes[len(p.scopes)-1]
		if top.tag == TagList && compatible(top, &s) {
			top.markerCol = s.markerCol
		} else {
			list := s
			list.tag = TagList
			p.pushScope(list)
		}
	}
	p.pushScope(s)
}

func (p *Parser) pushScope(s scope) {
	s.childStart = len(p.nodes)
	s.textStart = len(p.text)
	p.scopes = append(p.scopes, s)
}

// markBlank records a blank line on the innermost list still matching it.
func (p *Parser) markBlank(cut int) {
	if p.scopes[len(p.scopes)-1].tag == TagCodeBlock && cut == len(p.scopes) {
		return
	}
	for i := cut - 1; i > 0; i-- {
		if p.scopes[i].tag == TagList {
			p.scopes[i].blankSeen = true
			return
		}
	}
}

// markContent makes every open list that saw a blank line loose, since
// content has now followed it.
func (p *Parser) markContent() {
	for i := range p.scopes {
		if s := &p.scopes[i]; s.tag == TagList && s.blankSeen {
			s.loose = true
			s.blankSeen = false
		}
	}
}

func (p *Parser) appendParagraph(line string) {
	top := p.scopes[len(p.scopes)-1]
	if len(p.text) > top.textStart {
		p.text = append(p.text, '\n')
	}
	p.text = append(p.text, strings.TrimSpace(line)...)
}

func (p *Parser) takeText(s *scope) string {
	text := string(p.text[s.textStart:])
	p.text = p.text[:s.textStart]
	return text
}

func (p *Parser) takeChildren(s *scope) ExtraIndex {
	run := p.doc.addRun(p.nodes[s.childStart:])
	p.nodes = p.nodes[:s.childStart]
	return run
}

// inlines turns the text of a block into inline nodes. Inline markup is not
// parsed; the text becomes a single text node.
func (p *Parser) inlines(text string) ExtraIndex {
	if text == "" {
		return 0
	}
	n := p.doc.addNode(TagText, Data{A: uint32(p.doc.addString(text))})
	return p.doc.addRun([]NodeIndex{n})
}

// closeTop finalizes the innermost scope into a node and hands the node to
// its parent scope.
func (p *Parser) closeTop() {
	s := p.scopes[len(p.scopes)-1]
	p.scopes = p.scopes[:len(p.scopes)-1]

	var n NodeIndex
	switch s.tag {
	case TagRoot:
		p.doc.root = p.doc.addNode(TagRoot, Data{A: uint32(p.takeChildren(&s))})
		return
	case TagParagraph:
		text := strings.TrimSpace(p.takeText(&s))
		n = p.doc.addNode(TagParagraph, Data{A: uint32(p.inlines(text))})
	case TagHeading:
		text := strings.TrimSpace(p.takeText(&s))
		n = p.doc.addNode(TagHeading, Data{A: uint32(s.level), B: uint32(p.inlines(text))})
	case TagCodeBlock:
		content := p.takeText(&s)
		n = p.doc.addNode(TagCodeBlock, Data{
			A: uint32(p.doc.addString(s.lang)),
			B: uint32(p.doc.addString(content)),
		})
	case TagThematicBreak:
		n = p.doc.addNode(TagThematicBreak, Data{})
	case TagBlockquote, TagListItem:
		n = p.doc.addNode(s.tag, Data{A: uint32(p.takeChildren(&s))})
	case TagList:
		var flags uint32
		if s.ordered {
			flags |= listOrdered
		}
		if !s.loose {
			flags |= listTight
		}
		n = p.doc.addNode(TagList, Data{A: flags, B: s.start, C: uint32(p.takeChildren(&s))})
		if s.blankSeen {
			for i := len(p.scopes) - 1; i > 0; i-- {
				if p.scopes[i].tag == TagList {
					p.scopes[i].blankSeen = true
					break
				}
			}
		}
	default:
		panic("markdown: unexpected scope " + s.tag.String())
	}
	p.nodes = append(p.nodes, n)
}

func compatible(list, item *scope) bool {
	return list.tag == TagList && list.ordered == item.ordered && list.marker == item.marker
}

func isBlank(s string) bool {
	return strings.Trim(s, " \t") == ""
}

// indentAt counts the spaces starting at pos.
func indentAt(line string, pos int) int {
	n := 0
	for pos+n < len(line) && line[pos+n] == ' ' {
		n++
	}
	return n
}

// expandIndent replaces tabs in the leading whitespace of line with spaces
// up to the next multiple of four columns.
func expandIndent(line string) string {
	i := 0
	for i < len(line) && (line[i] == ' ' || line[i] == '\t') {
		i++
	}
	if !strings.Contains(line[:i], "\t") {
		return line
	}
	var b strings.Builder
	col := 0
	for _, c := range []byte(line[:i]) {
		if c == '\t' {
			for {
				b.WriteByte(' ')
				col++
				if col%4 == 0 {
					break
				}
			}
			continue
		}
		b.WriteByte(' ')
		col++
	}
	b.WriteString(line[i:])
	return b.String()
}

func isThematicBreak(s string) bool {
	var ch byte
	count := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == ' ' || c == '\t':
			continue
		case ch == 0 && (c == '-' || c == '_' || c == '*'):
			ch = c
		case c != ch:
			return false
		}
		count++
	}
	return count >= 3
}

func blockquoteMarker(line string, pos int) (int, bool) {
	i := pos + indentAt(line, pos)
	if i >= len(line) || line[i] != '>' {
		return pos, false
	}
	i++
	if i < len(line) && line[i] == ' ' {
		i++
	}
	return i, true
}

func headingMarker(line string, pos int) (level, next int, ok bool) {
	ind := indentAt(line, pos)
	if ind > 3 {
		return 0, pos, false
	}
	i := pos + ind
	for i < len(line) && line[i] == '#' {
		level++
		i++
	}
	if level == 0 || level > 6 {
		return 0, pos, false
	}
	if i < len(line) && line[i] != ' ' && line[i] != '\t' {
		return 0, pos, false
	}
	return level, i, true
}

// headingContent trims s and strips an optional closing run of '#'.
func headingContent(s string) string {
	s = strings.TrimSpace(s)
	trimmed := strings.TrimRight(s, "#")
	if trimmed == "" {
		return ""
	}
	if len(trimmed) < len(s) && (strings.HasSuffix(trimmed, " ") || strings.HasSuffix(trimmed, "\t")) {
		return strings.TrimSpace(trimmed)
	}
	return s
}

func fenceMarker(line string, pos int) (scope, bool) {
	ind := indentAt(line, pos)
	if ind > 3 {
		return scope{}, false
	}
	i := pos + ind
	if i >= len(line) || (line[i] != '`' && line[i] != '~') {
		return scope{}, false
	}
	c := line[i]
	j := i
	for j < len(line) && line[j] == c {
		j++
	}
	if j-i < 3 {
		return scope{}, false
	}
	info := strings.TrimSpace(line[j:])
	if c == '`' && strings.IndexByte(info, '`') >= 0 {
		return scope{}, false
	}
	var lang string
	if fields := strings.Fields(info); len(fields) > 0 {
		lang = fields[0]
	}
	return scope{
		tag:         TagCodeBlock,
		fenceChar:   c,
		fenceLen:    j - i,
		fenceIndent: ind,
		lang:        lang,
		next:        len(line),
	}, true
}

// isClosingFence reports whether s closes a fence of n c characters: a run
// of the same character no longer than the opener, itself at least three
// long, with only whitespace after it.
func isClosingFence(s string, c byte, n int) bool {
	i := 0
	for i < len(s) && s[i] == c {
		i++
	}
	return i >= 3 && i <= n && isBlank(s[i:])
}

// listMarker parses a bullet or ordered list marker at pos. The returned
// scope is a list item with its marker and content columns set.
func listMarker(line string, pos int) (scope, bool) {
	ind := indentAt(line, pos)
	if ind > 3 {
		return scope{}, false
	}
	i := pos + ind
	if i >= len(line) {
		return scope{}, false
	}
	s := scope{tag: TagListItem, markerCol: i}
	j := i
	switch c := line[i]; {
	case c == '-' || c == '*' || c == '+':
		s.marker = c
		j++
	case c >= '0' && c <= '9':
		for j < len(line) && j-i < 9 && line[j] >= '0' && line[j] <= '9' {
			s.start = s.start*10 + uint32(line[j]-'0')
			j++
		}
		if j >= len(line) || (line[j] != '.' && line[j] != ')') {
			return scope{}, false
		}
		s.ordered = true
		s.marker = line[j]
		j++
	default:
		return scope{}, false
	}
	if j < len(line) && line[j] != ' ' && line[j] != '\t' {
		return scope{}, false
	}

	spaces := indentAt(line, j)
	switch {
	case isBlank(line[j:]):
		s.empty = true
		s.contentCol = j + 1
		s.next = len(line)
	case spaces > 4:
		s.contentCol = j + 1
		s.next = j + 1
	default:
		s.contentCol = j + spaces
		s.next = j + spaces
	}
	return s, true
}
