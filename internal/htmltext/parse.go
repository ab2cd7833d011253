// Package htmltext turns the small HTML subset used in project copy into
// styled text spans.
package htmltext

import (
	"errors"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Kind identifies a node in the parsed tree.
type Kind int

const (
	KindRoot Kind = iota
	KindText
	KindList
	KindOrderedList
	KindListItem
	KindStrong
	KindEmphasis
	KindLink
	KindParagraph
	KindBreak
	KindHeader
)

var kindNames = map[Kind]string{
	KindRoot:        "root",
	KindText:        "text",
	KindList:        "list",
	KindOrderedList: "ordered_list",
	KindListItem:    "list_item",
	KindStrong:      "strong",
	KindEmphasis:    "emphasis",
	KindLink:        "link",
	KindParagraph:   "paragraph",
	KindBreak:       "break",
	KindHeader:      "header",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Node is one element or text run.
type Node struct {
	Kind     Kind
	Text     string
	Href     string
	Level    int
	Children []*Node
}

func (n *Node) append(child *Node) {
	n.Children = append(n.Children, child)
}

// Parse builds a tree from input. Tags outside the supported subset are
// dropped while their content is kept; unbalanced end tags are ignored.
func Parse(input string) (*Node, error) {
	root := &Node{Kind: KindRoot}
	stack := []*Node{root}
	top := func() *Node { return stack[len(stack)-1] }

	z := html.NewTokenizer(strings.NewReader(input))
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				return root, nil
			}
			return nil, z.Err()
		case html.TextToken:
			text := collapseSpace(string(z.Text()))
			parent := top()
			if strings.TrimSpace(text) == "" && dropsWhitespace(parent.Kind) {
				continue
			}
			parent.append(&Node{Kind: KindText, Text: text})
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			node := elementNode(tok)
			if node == nil {
				continue
			}
			top().append(node)
			if node.Kind == KindBreak || tt == html.SelfClosingTagToken {
				continue
			}
			stack = append(stack, node)
		case html.EndTagToken:
			tok := z.Token()
			node := elementNode(tok)
			if node == nil {
				continue
			}
			for i := len(stack) - 1; i > 0; i-- {
				if stack[i].Kind == node.Kind && stack[i].Level == node.Level {
					stack = stack[:i]
					break
				}
			}
		}
	}
}

func elementNode(tok html.Token) *Node {
	switch tok.DataAtom {
	case atom.Ul:
		return &Node{Kind: KindList}
	case atom.Ol:
		return &Node{Kind: KindOrderedList}
	case atom.Li:
		return &Node{Kind: KindListItem}
	case atom.Strong, atom.B:
		return &Node{Kind: KindStrong}
	case atom.Em, atom.I:
		return &Node{Kind: KindEmphasis}
	case atom.A:
		node := &Node{Kind: KindLink}
		for _, attr := range tok.Attr {
			if attr.Key == "href" {
				node.Href = strings.TrimSpace(attr.Val)
			}
		}
		return node
	case atom.P, atom.Div:
		return &Node{Kind: KindParagraph}
	case atom.Br:
		return &Node{Kind: KindBreak}
	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		return &Node{Kind: KindHeader, Level: int(tok.Data[1] - '0')}
	}
	return nil
}

func dropsWhitespace(parent Kind) bool {
	switch parent {
	case KindList, KindOrderedList:
		return true
	}
	return false
}

func collapseSpace(s string) string {
	var b strings.Builder
	space := false
	for _, r := range s {
		switch r {
		case ' ', '\t', '\n', '\r', '\f':
			if !space {
				b.WriteByte(' ')
			}
			space = true
		default:
			b.WriteRune(r)
			space = false
		}
	}
	return b.String()
}
