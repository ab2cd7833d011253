package htmltext

import (
	"strconv"
	"strings"
)

// Size is the relative text size of a span.
type Size int

const (
	SizeNormal Size = iota
	SizeLarge
	SizeXLarge
)

// BulletPrefix prefixes every unordered list item.
const BulletPrefix = "• "

// Span represents a styled slice of text.
type Span struct {
	Text     string
	Bold     bool
	Italic   bool
	Href     string
	Size     Size
	ListItem bool
	Bullet   bool
}

type style struct {
	bold     bool
	italic   bool
	href     string
	size     Size
	listItem bool
}

type renderer struct {
	spans []Span
}

// Render flattens a parsed tree into spans. List items emit a bullet prefix
// span followed by their content and a newline.
func Render(root *Node) []Span {
	if root == nil {
		return nil
	}
	r := &renderer{}
	r.children(root, style{})
	r.trimTrailing()
	return r.spans
}

// Styled parses and renders input in one step.
func Styled(input string) ([]Span, error) {
	root, err := Parse(input)
	if err != nil {
		return nil, err
	}
	return Render(root), nil
}

func (r *renderer) children(n *Node, st style) {
	index := 0
	for _, child := range n.Children {
		if child.Kind == KindListItem && n.Kind == KindOrderedList {
			index++
			r.listItem(child, st, strconv.Itoa(index)+". ")
			continue
		}
		if child.Kind == KindListItem {
			r.listItem(child, st, BulletPrefix)
			continue
		}
		r.node(child, st)
	}
}

func (r *renderer) node(n *Node, st style) {
	switch n.Kind {
	case KindText:
		r.text(n.Text, st)
	case KindStrong:
		st.bold = true
		r.children(n, st)
	case KindEmphasis:
		st.italic = true
		r.children(n, st)
	case KindLink:
		st.href = n.Href
		r.children(n, st)
	case KindBreak:
		r.newline(st)
	case KindParagraph:
		r.block(st)
		r.children(n, st)
		r.newline(st)
	case KindHeader:
		r.block(st)
		st.bold = true
		switch n.Level {
		case 1:
			st.size = SizeXLarge
		case 2:
			st.size = SizeLarge
		}
		r.children(n, st)
		r.newline(style{})
	case KindList, KindOrderedList:
		r.block(st)
		r.children(n, st)
	case KindListItem:
		r.listItem(n, st, BulletPrefix)
	default:
		r.children(n, st)
	}
}

func (r *renderer) listItem(n *Node, st style, prefix string) {
	r.block(st)
	st.listItem = true
	r.spans = append(r.spans, Span{Text: prefix, ListItem: true, Bullet: true})
	r.children(n, st)
	r.newline(style{})
}

func (r *renderer) text(text string, st style) {
	if r.atLineStart() {
		text = strings.TrimLeft(text, " ")
	}
	if text == "" {
		return
	}
	r.spans = append(r.spans, Span{
		Text:     text,
		Bold:     st.bold,
		Italic:   st.italic,
		Href:     st.href,
		Size:     st.size,
		ListItem: st.listItem,
	})
}

// block starts a new line unless already at one.
func (r *renderer) block(st style) {
	if !r.atLineStart() {
		r.newline(st)
	}
}

func (r *renderer) newline(st style) {
	r.trimLineEnd()
	r.spans = append(r.spans, Span{Text: "\n", ListItem: st.listItem})
}

func (r *renderer) atLineStart() bool {
	if len(r.spans) == 0 {
		return true
	}
	last := r.spans[len(r.spans)-1]
	return last.Bullet || strings.HasSuffix(last.Text, "\n")
}

func (r *renderer) trimLineEnd() {
	for len(r.spans) > 0 {
		last := &r.spans[len(r.spans)-1]
		if last.Bullet || strings.HasSuffix(last.Text, "\n") {
			return
		}
		last.Text = strings.TrimRight(last.Text, " ")
		if last.Text != "" {
			return
		}
		r.spans = r.spans[:len(r.spans)-1]
	}
}

func (r *renderer) trimTrailing() {
	r.trimLineEnd()
	// Collapse runs of more than two newlines left by nested blocks.
	out := r.spans[:0]
	newlines := 0
	for _, span := range r.spans {
		if span.Text == "\n" {
			newlines++
			if newlines > 2 {
				continue
			}
		} else {
			newlines = 0
		}
		out = append(out, span)
	}
	r.spans = out
}

// Plain concatenates span text without styling.
func Plain(spans []Span) string {
	var b strings.Builder
	for _, span := range spans {
		b.WriteString(span.Text)
	}
	return b.String()
}
