// Package highlight renders fenced code blocks as HTML with token classes,
// using tree-sitter grammars for the supported languages and go-enry to
// guess the language of untagged blocks.
package highlight

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/autodoc/internal/markdown"
)

// Token classes emitted as tok-<class>.
const (
	ClassComment  = "comment"
	ClassString   = "string"
	ClassNumber   = "number"
	ClassKeyword  = "keyword"
	ClassType     = "type"
	ClassFunction = "function"
	ClassConstant = "constant"
)

// Highlighter implements markdown.Highlighter over tree-sitter grammars.
type Highlighter struct {
	detect bool
}

var _ markdown.Highlighter = (*Highlighter)(nil)

// Option configures a Highlighter.
type Option func(*Highlighter)

// WithDetection enables language detection for code blocks whose fence has
// no language tag.
func WithDetection(enabled bool) Option {
	return func(h *Highlighter) {
		h.detect = enabled
	}
}

// New returns a Highlighter.
func New(opts ...Option) *Highlighter {
	h := &Highlighter{}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Highlight returns code as escaped HTML with classified tokens wrapped in
// spans. It returns false when the language has no grammar or the source
// cannot be parsed.
func (h *Highlighter) Highlight(lang string, code []byte) (string, bool) {
	var name string
	if lang == "" {
		if !h.detect {
			return "", false
		}
		name = Detect(code)
	} else {
		name, _ = Canonical(lang)
	}
	grammar, ok := Grammar(name)
	if !ok {
		return "", false
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(grammar)
	tree, err := parser.ParseCtx(context.Background(), nil, code)
	if err != nil || tree == nil {
		return "", false
	}
	defer tree.Close()

	var spans []span
	collect(tree.RootNode(), &spans)
	return emit(code, spans), true
}

type span struct {
	start, end uint32
	class      string
}

// collect appends classified spans in source order. A node whose whole
// range has a class is not descended into.
func collect(n *sitter.Node, out *[]span) {
	if n == nil {
		return
	}
	if class := classify(n); class != "" {
		*out = append(*out, span{start: n.StartByte(), end: n.EndByte(), class: class})
		return
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		collect(n.Child(i), out)
	}
}

func classify(n *sitter.Node) string {
	typ := n.Type()
	switch {
	case strings.Contains(typ, "comment"):
		return ClassComment
	case strings.Contains(typ, "string") || typ == "char_literal" || typ == "rune_literal" || typ == "character_literal":
		return ClassString
	}
	switch typ {
	case "int_literal", "float_literal", "imaginary_literal", "integer", "float",
		"number", "number_literal", "integer_literal", "float_literal_token", "decimal_integer_literal":
		return ClassNumber
	case "type_identifier", "primitive_type", "predefined_type", "builtin_type":
		return ClassType
	case "true", "false", "nil", "null", "none", "None", "True", "False", "iota", "undefined":
		if n.IsNamed() {
			return ClassConstant
		}
	}
	if typ == "identifier" || typ == "field_identifier" || typ == "property_identifier" {
		if p := n.Parent(); p != nil {
			switch p.Type() {
			case "function_declaration", "method_declaration", "function_definition", "function_item", "method_definition":
				return ClassFunction
			}
		}
		return ""
	}
	if !n.IsNamed() && n.ChildCount() == 0 && isWord(typ) {
		return ClassKeyword
	}
	return ""
}

func isWord(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= 'a' && c <= 'z') && c != '_' {
			return false
		}
	}
	return true
}

// emit writes code with spans applied. Text between spans is escaped and
// written as is.
func emit(code []byte, spans []span) string {
	var b strings.Builder
	var last uint32
	size := uint32(len(code))
	for _, s := range spans {
		if s.start < last || s.end > size || s.start >= s.end {
			continue
		}
		b.WriteString(markdown.Escape(string(code[last:s.start])))
		b.WriteString(`<span class="tok-` + s.class + `">`)
		b.WriteString(markdown.Escape(string(code[s.start:s.end])))
		b.WriteString("</span>")
		last = s.end
	}
	b.WriteString(markdown.Escape(string(code[last:])))
	return b.String()
}
