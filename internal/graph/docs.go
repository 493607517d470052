package graph

import (
	"strings"

	"github.com/jward/autodoc/internal/markdown"
	"github.com/jward/autodoc/internal/syntax"
)

// DocLines returns the documentation comment lines of d with their markers
// removed. File roots use the //! lines at the top of the file; other
// declarations use the /// lines directly above them.
func (m *Module) DocLines(d DeclIndex) []string {
	decl := m.decls[d]
	tree := m.files[decl.File].Tree
	var lines []string
	if decl.Parent == d {
		for i := 0; i < tree.TokenCount() && tree.TokenTag(syntax.TokenIndex(i)) == syntax.TokenContainerDocComment; i++ {
			lines = append(lines, stripMarker(tree.TokenSlice(syntax.TokenIndex(i))))
		}
		return lines
	}

	first := tree.FirstToken(decl.Node)
	if first > 0 && tree.TokenTag(first-1) == syntax.TokenKeywordPub {
		first--
	}
	start := first
	for start > 0 && tree.TokenTag(start-1) == syntax.TokenDocComment {
		start--
	}
	for i := start; i < first; i++ {
		lines = append(lines, stripMarker(tree.TokenSlice(i)))
	}
	return lines
}

// stripMarker removes the comment marker and one following space.
func stripMarker(tok string) string {
	tok = strings.TrimRight(tok, "\r")
	tok = tok[3:]
	return strings.TrimPrefix(tok, " ")
}

// DocText renders the documentation of d as HTML. With summaryOnly it
// returns only the first sentence of the first paragraph, rendered inline
// without a wrapping <p>. Declarations without documentation yield "".
func (m *Module) DocText(d DeclIndex, summaryOnly bool) string {
	lines := m.DocLines(d)
	if len(lines) == 0 {
		return ""
	}
	if summaryOnly {
		text := Summary(firstParagraph(lines), m.abbreviations)
		return m.renderer.RenderInline(markdown.Parse(text))
	}
	p := markdown.NewParser()
	for _, line := range lines {
		p.Feed(line)
	}
	return m.renderer.Render(p.Finish())
}

func firstParagraph(lines []string) string {
	start := 0
	for start < len(lines) && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	end := start
	for end < len(lines) && strings.TrimSpace(lines[end]) != "" {
		end++
	}
	return strings.Join(lines[start:end], "\n")
}

// Summary cuts text after its first sentence. A sentence ends at a period
// followed by whitespace or the end of text, unless the period closes one of
// abbreviations. Text without such a period is returned whole.
func Summary(text string, abbreviations []string) string {
	for i := 0; i < len(text); i++ {
		if text[i] != '.' {
			continue
		}
		if i+1 < len(text) && !isSpace(text[i+1]) {
			continue
		}
		sentence := text[:i+1]
		if endsWithAbbreviation(sentence, abbreviations) {
			continue
		}
		return sentence
	}
	return text
}

func endsWithAbbreviation(s string, abbreviations []string) bool {
	for _, a := range abbreviations {
		if len(s) < len(a) || !strings.EqualFold(s[len(s)-len(a):], a) {
			continue
		}
		if len(s) == len(a) || !isWordByte(s[len(s)-len(a)-1]) {
			return true
		}
	}
	return false
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isWordByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_'
}
