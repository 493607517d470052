// Package markdown parses the block structure of doc-comment markdown into a
// compact arena Document and renders it as HTML.
//
// A Document is append-only while a Parser builds it and immutable once
// Finish returns. Nodes, strings and child lists are addressed by integer
// indices into three flat buffers, so a Document has no internal pointers.
package markdown

import (
	"fmt"
	"strings"
)

// Tag identifies the kind of a node and selects its payload view.
type Tag uint8

const (
	TagRoot Tag = iota
	TagParagraph
	TagBlockquote
	TagHeading
	TagList
	TagListItem
	TagCodeBlock
	TagThematicBreak

	TagLink
	TagImage
	TagEmphasis
	TagStrong
	TagCodeSpan
	TagText
	TagLineBreak
)

var tagNames = [...]string{
	TagRoot:          "root",
	TagParagraph:     "paragraph",
	TagBlockquote:    "blockquote",
	TagHeading:       "heading",
	TagList:          "list",
	TagListItem:      "list_item",
	TagCodeBlock:     "code_block",
	TagThematicBreak: "thematic_break",
	TagLink:          "link",
	TagImage:         "image",
	TagEmphasis:      "emphasis",
	TagStrong:        "strong",
	TagCodeSpan:      "code_span",
	TagText:          "text",
	TagLineBreak:     "line_break",
}

func (t Tag) String() string {
	if int(t) < len(tagNames) {
		return tagNames[t]
	}
	return fmt.Sprintf("Tag(%d)", t)
}

// IsBlock reports whether t is a block-level tag.
func (t Tag) IsBlock() bool { return t <= TagThematicBreak }

// NodeIndex addresses a node in Document.Nodes.
type NodeIndex uint32

// StringIndex addresses a NUL-terminated string in Document.Strings. Index 0
// is the empty string.
type StringIndex uint32

// ExtraIndex addresses a length-prefixed run in Document.Extra. Index 0 is
// the empty run.
type ExtraIndex uint32

// Data is the raw payload of a node. Its words are interpreted by the typed
// view matching the node's tag.
type Data struct {
	A, B, C uint32
}

// Node is one arena entry.
type Node struct {
	Tag  Tag
	Data Data
}

// Document is the parsed form of a markdown text.
type Document struct {
	Nodes   []Node
	Strings []byte
	Extra   []uint32
	root    NodeIndex
}

func newDocument() *Document {
	return &Document{
		Strings: []byte{0},
		Extra:   []uint32{0},
	}
}

// Root returns the root node.
func (d *Document) Root() NodeIndex { return d.root }

// Tag returns the tag of node n.
func (d *Document) Tag(n NodeIndex) Tag { return d.Nodes[n].Tag }

// String returns the interned string at i.
func (d *Document) String(i StringIndex) string {
	end := int(i)
	for d.Strings[end] != 0 {
		end++
	}
	return string(d.Strings[i:end])
}

// Run returns the node indices stored at run offset e.
func (d *Document) Run(e ExtraIndex) []NodeIndex {
	n := d.Extra[e]
	out := make([]NodeIndex, n)
	for i := range out {
		out[i] = NodeIndex(d.Extra[uint32(e)+1+uint32(i)])
	}
	return out
}

// Children returns the children of n, or nil for tags without children.
func (d *Document) Children(n NodeIndex) []NodeIndex {
	switch d.Nodes[n].Tag {
	case TagRoot, TagParagraph, TagBlockquote, TagListItem, TagEmphasis, TagStrong:
		return d.Run(d.Container(n).Children)
	case TagHeading:
		return d.Run(d.Heading(n).Children)
	case TagList:
		return d.Run(d.List(n).Children)
	case TagLink, TagImage:
		return d.Run(d.Link(n).Children)
	case TagCodeBlock, TagThematicBreak, TagCodeSpan, TagText, TagLineBreak:
		return nil
	}
	panic(fmt.Sprintf("markdown: unknown tag %d", d.Nodes[n].Tag))
}

// Container is the payload of root, paragraph, blockquote, list_item,
// emphasis and strong nodes.
type Container struct {
	Children ExtraIndex
}

// Heading is the payload of heading nodes.
type Heading struct {
	Level    int
	Children ExtraIndex
}

// List is the payload of list nodes.
type List struct {
	Ordered  bool
	Tight    bool
	Start    uint32
	Children ExtraIndex
}

// Code is the payload of code_block nodes.
type Code struct {
	Lang    StringIndex
	Content StringIndex
}

// Link is the payload of link and image nodes.
type Link struct {
	Children ExtraIndex
	Target   StringIndex
}

// Text is the payload of text and code_span nodes.
type Text struct {
	Content StringIndex
}

const (
	listOrdered uint32 = 1 << iota
	listTight
)

func (d *Document) expect(n NodeIndex, tags ...Tag) Data {
	node := d.Nodes[n]
	for _, t := range tags {
		if node.Tag == t {
			return node.Data
		}
	}
	panic(fmt.Sprintf("markdown: node %d is %s, not %v", n, node.Tag, tags))
}

// Container returns the container view of n.
func (d *Document) Container(n NodeIndex) Container {
	data := d.expect(n, TagRoot, TagParagraph, TagBlockquote, TagListItem, TagEmphasis, TagStrong)
	return Container{Children: ExtraIndex(data.A)}
}

// Heading returns the heading view of n.
func (d *Document) Heading(n NodeIndex) Heading {
	data := d.expect(n, TagHeading)
	return Heading{Level: int(data.A), Children: ExtraIndex(data.B)}
}

// List returns the list view of n.
func (d *Document) List(n NodeIndex) List {
	data := d.expect(n, TagList)
	return List{
		Ordered:  data.A&listOrdered != 0,
		Tight:    data.A&listTight != 0,
		Start:    data.B,
		Children: ExtraIndex(data.C),
	}
}

// Code returns the code view of n.
func (d *Document) Code(n NodeIndex) Code {
	data := d.expect(n, TagCodeBlock)
	return Code{Lang: StringIndex(data.A), Content: StringIndex(data.B)}
}

// Link returns the link view of n.
func (d *Document) Link(n NodeIndex) Link {
	data := d.expect(n, TagLink, TagImage)
	return Link{Children: ExtraIndex(data.A), Target: StringIndex(data.B)}
}

// Text returns the text view of n.
func (d *Document) Text(n NodeIndex) Text {
	data := d.expect(n, TagText, TagCodeSpan)
	return Text{Content: StringIndex(data.A)}
}

// addNode appends a node and returns its index.
func (d *Document) addNode(tag Tag, data Data) NodeIndex {
	d.Nodes = append(d.Nodes, Node{Tag: tag, Data: data})
	return NodeIndex(len(d.Nodes) - 1)
}

// addString interns s. NUL bytes would terminate the entry early, so they
// are replaced with U+FFFD.
func (d *Document) addString(s string) StringIndex {
	if s == "" {
		return 0
	}
	s = strings.ReplaceAll(s, "\x00", "�")
	i := StringIndex(len(d.Strings))
	d.Strings = append(d.Strings, s...)
	d.Strings = append(d.Strings, 0)
	return i
}

// addRun stores nodes as a length-prefixed run.
func (d *Document) addRun(nodes []NodeIndex) ExtraIndex {
	if len(nodes) == 0 {
		return 0
	}
	e := ExtraIndex(len(d.Extra))
	d.Extra = append(d.Extra, uint32(len(nodes)))
	for _, n := range nodes {
		d.Extra = append(d.Extra, uint32(n))
	}
	return e
}
