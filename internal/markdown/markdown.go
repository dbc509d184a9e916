// Package markdown renders AI-written markdown (agendas, structured notes)
// as terminal text.
package markdown

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Styles decorates inline and block elements.
type Styles struct {
	Heading func(string) string
	Strong  func(string) string
	Emph    func(string) string
	Code    func(string) string
	Quote   func(string) string
}

func identity(s string) string { return s }

// Plain leaves text undecorated.
func Plain() Styles {
	return Styles{Heading: identity, Strong: identity, Emph: identity, Code: identity, Quote: identity}
}

// FromLipgloss builds Styles from lipgloss styles.
func FromLipgloss(heading, strong, emph, code, quote lipgloss.Style) Styles {
	return Styles{
		Heading: func(s string) string { return heading.Render(s) },
		Strong:  func(s string) string { return strong.Render(s) },
		Emph:    func(s string) string { return emph.Render(s) },
		Code:    func(s string) string { return code.Render(s) },
		Quote:   func(s string) string { return quote.Render(s) },
	}
}

var parser = goldmark.New()

// Render converts markdown source to terminal text.
func Render(source string, styles Styles) string {
	src := []byte(source)
	doc := parser.Parser().Parse(text.NewReader(src))
	r := renderer{src: src, styles: styles}
	r.blocks(doc, "")
	return strings.TrimRight(r.out.String(), "\n")
}

type renderer struct {
	src    []byte
	styles Styles
	out    strings.Builder
}

func (r *renderer) line(indent, s string) {
	r.out.WriteString(indent)
	r.out.WriteString(s)
	r.out.WriteString("\n")
}

func (r *renderer) gap() {
	s := r.out.String()
	if s != "" && !strings.HasSuffix(s, "\n\n") {
		r.out.WriteString("\n")
	}
}

func (r *renderer) blocks(parent ast.Node, indent string) {
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		r.block(n, indent)
	}
}

func (r *renderer) block(n ast.Node, indent string) {
	switch node := n.(type) {
	case *ast.Heading:
		r.gap()
		r.line(indent, r.styles.Heading(r.inline(node)))
		r.out.WriteString("\n")
	case *ast.Paragraph:
		for _, l := range strings.Split(r.inline(node), "\n") {
			r.line(indent, l)
		}
		if node.Parent() == nil || node.Parent().Kind() != ast.KindListItem {
			r.out.WriteString("\n")
		}
	case *ast.TextBlock:
		r.line(indent, r.inline(node))
	case *ast.List:
		r.list(node, indent)
		if node.Parent() != nil && node.Parent().Kind() == ast.KindDocument {
			r.out.WriteString("\n")
		}
	case *ast.Blockquote:
		var inner renderer
		inner.src, inner.styles = r.src, r.styles
		inner.blocks(node, "")
		for _, l := range strings.Split(strings.TrimRight(inner.out.String(), "\n"), "\n") {
			r.line(indent, r.styles.Quote("│ "+l))
		}
		r.out.WriteString("\n")
	case *ast.FencedCodeBlock, *ast.CodeBlock:
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			r.line(indent+"    ", r.styles.Code(strings.TrimRight(string(seg.Value(r.src)), "\n")))
		}
		r.out.WriteString("\n")
	case *ast.ThematicBreak:
		r.line(indent, strings.Repeat("─", 24))
		r.out.WriteString("\n")
	default:
		r.blocks(n, indent)
	}
}

func (r *renderer) list(l *ast.List, indent string) {
	num := l.Start
	if num == 0 {
		num = 1
	}
	for item := l.FirstChild(); item != nil; item = item.NextSibling() {
		marker := "• "
		if l.IsOrdered() {
			marker = fmt.Sprintf("%d. ", num)
			num++
		}
		first := true
		for child := item.FirstChild(); child != nil; child = child.NextSibling() {
			if first {
				switch child.Kind() {
				case ast.KindTextBlock, ast.KindParagraph:
					r.line(indent+marker, r.inline(child))
					first = false
					continue
				}
			}
			first = false
			r.block(child, indent+strings.Repeat(" ", len([]rune(marker))))
		}
	}
}

func (r *renderer) inline(parent ast.Node) string {
	var sb strings.Builder
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Text:
			sb.Write(node.Segment.Value(r.src))
			switch {
			case node.HardLineBreak():
				sb.WriteString("\n")
			case node.SoftLineBreak():
				sb.WriteString(" ")
			}
		case *ast.String:
			sb.Write(node.Value)
		case *ast.CodeSpan:
			sb.WriteString(r.styles.Code(r.inline(node)))
		case *ast.Emphasis:
			if node.Level >= 2 {
				sb.WriteString(r.styles.Strong(r.inline(node)))
			} else {
				sb.WriteString(r.styles.Emph(r.inline(node)))
			}
		case *ast.AutoLink:
			sb.Write(node.URL(r.src))
		case *ast.Link:
			label := r.inline(node)
			dest := string(node.Destination)
			if dest != "" && dest != label {
				label = fmt.Sprintf("%s (%s)", label, dest)
			}
			sb.WriteString(label)
		default:
			sb.WriteString(r.inline(n))
		}
	}
	return sb.String()
}
