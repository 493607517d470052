package markdown

import (
	"fmt"
	"strconv"
	"strings"
)

// Highlighter renders the body of a fenced code block. lang is empty when
// the fence has no info string. It returns false to fall back to plain
// escaped text.
type Highlighter interface {
	Highlight(lang string, code []byte) (html string, ok bool)
}

// Renderer writes a Document as HTML. The zero value renders without
// highlighting.
type Renderer struct {
	Highlighter Highlighter
}

var escaper = strings.NewReplacer(
	"<", "&lt;",
	">", "&gt;",
	"&", "&amp;",
	"'", "&apos;",
	`"`, "&quot;",
)

// Escape replaces the five HTML-special characters with named entities.
func Escape(s string) string {
	return escaper.Replace(s)
}

// Render returns the HTML for the whole document.
func (r *Renderer) Render(doc *Document) string {
	var b strings.Builder
	r.block(&b, doc, doc.Root(), false, false)
	return b.String()
}

// RenderInline returns the inline content of the first text-bearing block
// without its wrapping tags. It is used for one-line summaries.
func (r *Renderer) RenderInline(doc *Document) string {
	var b strings.Builder
	if n, ok := firstTextBlock(doc, doc.Root()); ok {
		r.inlines(&b, doc, doc.Children(n))
	}
	return b.String()
}

func firstTextBlock(doc *Document, n NodeIndex) (NodeIndex, bool) {
	switch doc.Tag(n) {
	case TagParagraph, TagHeading:
		return n, true
	case TagRoot, TagBlockquote, TagList, TagListItem:
		for _, c := range doc.Children(n) {
			if found, ok := firstTextBlock(doc, c); ok {
				return found, true
			}
		}
		return 0, false
	case TagCodeBlock, TagThematicBreak:
		return 0, false
	case TagLink, TagImage, TagEmphasis, TagStrong, TagCodeSpan, TagText, TagLineBreak:
		return 0, false
	}
	panic(fmt.Sprintf("markdown: unknown tag %d", doc.Tag(n)))
}

// block renders n. tight is set inside tight list items; hasNext reports
// whether n has a following sibling.
func (r *Renderer) block(b *strings.Builder, doc *Document, n NodeIndex, tight, hasNext bool) {
	switch doc.Tag(n) {
	case TagRoot:
		r.blocks(b, doc, doc.Children(n), false)
	case TagParagraph:
		if tight {
			r.inlines(b, doc, doc.Children(n))
			if hasNext {
				b.WriteByte('\n')
			}
			return
		}
		b.WriteString("<p>")
		r.inlines(b, doc, doc.Children(n))
		b.WriteString("</p>\n")
	case TagBlockquote:
		b.WriteString("<blockquote>\n")
		r.blocks(b, doc, doc.Children(n), false)
		b.WriteString("</blockquote>\n")
	case TagHeading:
		level := strconv.Itoa(doc.Heading(n).Level)
		b.WriteString("<h" + level + ">")
		r.inlines(b, doc, doc.Children(n))
		b.WriteString("</h" + level + ">\n")
	case TagList:
		list := doc.List(n)
		tag := "ul"
		if list.Ordered {
			tag = "ol"
		}
		b.WriteString("<" + tag)
		if list.Ordered && list.Start != 1 {
			b.WriteString(` start="` + strconv.FormatUint(uint64(list.Start), 10) + `"`)
		}
		b.WriteString(">\n")
		for _, item := range doc.Run(list.Children) {
			r.listItem(b, doc, item, list.Tight)
		}
		b.WriteString("</" + tag + ">\n")
	case TagListItem:
		r.listItem(b, doc, n, false)
	case TagCodeBlock:
		code := doc.Code(n)
		lang := doc.String(code.Lang)
		content := doc.String(code.Content)
		b.WriteString("<pre><code")
		if lang != "" {
			b.WriteString(` class="language-` + Escape(lang) + `"`)
		}
		b.WriteByte('>')
		if html, ok := r.highlight(lang, content); ok {
			b.WriteString(html)
		} else {
			b.WriteString(Escape(content))
		}
		b.WriteString("</code></pre>\n")
	case TagThematicBreak:
		b.WriteString("<hr />\n")
	case TagLink, TagImage, TagEmphasis, TagStrong, TagCodeSpan, TagText, TagLineBreak:
		r.inlines(b, doc, []NodeIndex{n})
	default:
		panic(fmt.Sprintf("markdown: unknown tag %d", doc.Tag(n)))
	}
}

func (r *Renderer) blocks(b *strings.Builder, doc *Document, nodes []NodeIndex, tight bool) {
	for i, c := range nodes {
		r.block(b, doc, c, tight, i+1 < len(nodes))
	}
}

func (r *Renderer) listItem(b *strings.Builder, doc *Document, n NodeIndex, tight bool) {
	children := doc.Children(n)
	b.WriteString("<li>")
	if len(children) > 0 && !(tight && doc.Tag(children[0]) == TagParagraph) {
		b.WriteByte('\n')
	}
	r.blocks(b, doc, children, tight)
	b.WriteString("</li>\n")
}

func (r *Renderer) highlight(lang, content string) (string, bool) {
	if r.Highlighter == nil {
		return "", false
	}
	return r.Highlighter.Highlight(lang, []byte(content))
}

func (r *Renderer) inlines(b *strings.Builder, doc *Document, nodes []NodeIndex) {
	for _, n := range nodes {
		switch doc.Tag(n) {
		case TagText:
			b.WriteString(Escape(doc.String(doc.Text(n).Content)))
		case TagCodeSpan:
			b.WriteString("<code>" + Escape(doc.String(doc.Text(n).Content)) + "</code>")
		case TagEmphasis:
			b.WriteString("<em>")
			r.inlines(b, doc, doc.Children(n))
			b.WriteString("</em>")
		case TagStrong:
			b.WriteString("<strong>")
			r.inlines(b, doc, doc.Children(n))
			b.WriteString("</strong>")
		case TagLink:
			link := doc.Link(n)
			b.WriteString(`<a href="` + Escape(doc.String(link.Target)) + `">`)
			r.inlines(b, doc, doc.Run(link.Children))
			b.WriteString("</a>")
		case TagImage:
			link := doc.Link(n)
			b.WriteString(`<img src="` + Escape(doc.String(link.Target)) + `" alt="`)
			b.WriteString(Escape(AltText(doc, n)))
			b.WriteString(`" />`)
		case TagLineBreak:
			b.WriteString("<br />\n")
		case TagRoot, TagParagraph, TagBlockquote, TagHeading, TagList, TagListItem, TagCodeBlock, TagThematicBreak:
			r.block(b, doc, n, false, false)
		default:
			panic(fmt.Sprintf("markdown: unknown tag %d", doc.Tag(n)))
		}
	}
}

// AltText returns the plain text under n, for contexts such as image alt
// attributes that cannot hold markup. Links and images contribute their
// nested text, emphasis unwraps, and line breaks become a single space.
func AltText(doc *Document, n NodeIndex) string {
	var b strings.Builder
	altText(&b, doc, n)
	return b.String()
}

func altText(b *strings.Builder, doc *Document, n NodeIndex) {
	switch doc.Tag(n) {
	case TagText, TagCodeSpan:
		b.WriteString(doc.String(doc.Text(n).Content))
	case TagLineBreak:
		b.WriteByte(' ')
	case TagCodeBlock:
		b.WriteString(doc.String(doc.Code(n).Content))
	case TagThematicBreak:
	case TagRoot, TagParagraph, TagBlockquote, TagHeading, TagList, TagListItem,
		TagLink, TagImage, TagEmphasis, TagStrong:
		for _, c := range doc.Children(n) {
			altText(b, doc, c)
		}
	default:
		panic(fmt.Sprintf("markdown: unknown tag %d", doc.Tag(n)))
	}
}
