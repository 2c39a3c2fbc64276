// Package markdown renders assistant chat replies for the terminal. The
// backend answers in markdown (bold figures, bullet lists of affected
// shipments), which is parsed with goldmark and walked into lipgloss
// styled text.
package markdown

import (
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"github.com/nhle/disruption-desk/internal/theme"
)

var (
	parserOnce sync.Once
	parser     goldmark.Markdown
)

func markdownParser() goldmark.Markdown {
	parserOnce.Do(func() {
		parser = goldmark.New(goldmark.WithExtensions(extension.GFM))
	})
	return parser
}

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(theme.ColorBlue)
	codeStyle    = lipgloss.NewStyle().Foreground(theme.ColorOrange)
	linkStyle    = lipgloss.NewStyle().Underline(true).Foreground(theme.ColorBlue)
	quoteStyle   = lipgloss.NewStyle().Foreground(theme.ColorGray)
)

// Render converts markdown source to styled terminal text wrapped at
// width. A width below 10 disables wrapping.
func Render(source string, width int) string {
	src := []byte(source)
	doc := markdownParser().Parser().Parse(text.NewReader(src))

	r := &renderer{source: src, width: width}
	_ = ast.Walk(doc, r.walk)

	return strings.TrimRight(r.out.String(), "\n")
}

type listState struct {
	ordered bool
	next    int
	tight   bool
}

type renderer struct {
	source []byte
	width  int

	out    strings.Builder
	inline strings.Builder

	prefixes      []string
	pendingBullet string
	lists         []listState

	bold   int
	italic int
	strike int
}

func (r *renderer) linePrefix() string {
	return strings.Join(r.prefixes, "")
}

func (r *renderer) inTightList() bool {
	return len(r.lists) > 0 && r.lists[len(r.lists)-1].tight
}

func (r *renderer) ensureBlankLine() {
	s := r.out.String()
	if s == "" || strings.HasSuffix(s, "\n\n") {
		return
	}
	if strings.HasSuffix(s, "\n") {
		r.out.WriteString("\n")
		return
	}
	r.out.WriteString("\n\n")
}

func (r *renderer) ensureNewline() {
	s := r.out.String()
	if s != "" && !strings.HasSuffix(s, "\n") {
		r.out.WriteString("\n")
	}
}

// writeBlock emits content with the current prefixes. The first line
// takes a pending list bullet when one is set.
func (r *renderer) writeBlock(content string) {
	prefix := r.linePrefix()
	for i, line := range strings.Split(content, "\n") {
		if i == 0 && r.pendingBullet != "" {
			r.out.WriteString(r.pendingBullet)
			r.pendingBullet = ""
		} else {
			r.out.WriteString(prefix)
		}
		r.out.WriteString(line)
		r.out.WriteString("\n")
	}
}

func (r *renderer) wrapWidth() int {
	if r.width < 10 {
		return 0
	}
	w := r.width - lipgloss.Width(r.linePrefix())
	if w < 10 {
		w = 10
	}
	return w
}

func (r *renderer) flushInline() {
	content := r.inline.String()
	r.inline.Reset()
	if content == "" {
		return
	}
	if w := r.wrapWidth(); w > 0 {
		content = lipgloss.NewStyle().Width(w).Render(content)
		content = trimLines(content)
	}
	r.writeBlock(content)
}

func trimLines(s string) string {
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " ")
	}
	return strings.Join(lines, "\n")
}

func (r *renderer) styled(s string) string {
	if r.bold == 0 && r.italic == 0 && r.strike == 0 {
		return s
	}
	style := lipgloss.NewStyle()
	if r.bold > 0 {
		style = style.Bold(true)
	}
	if r.italic > 0 {
		style = style.Italic(true)
	}
	if r.strike > 0 {
		style = style.Strikethrough(true)
	}
	return style.Render(s)
}

func (r *renderer) childText(n ast.Node) string {
	var b strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(r.source))
			if t.SoftLineBreak() {
				b.WriteString(" ")
			}
		case *ast.String:
			b.Write(t.Value)
		default:
			b.WriteString(r.childText(c))
		}
	}
	return b.String()
}

func (r *renderer) walk(n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch node := n.(type) {
	case *ast.Paragraph, *ast.TextBlock:
		if entering {
			r.inline.Reset()
			return ast.WalkContinue, nil
		}
		r.flushInline()
		if !r.inTightList() {
			r.ensureBlankLine()
		}

	case *ast.Heading:
		if entering {
			r.ensureBlankLine()
			r.writeBlock(headingStyle.Render(r.childText(node)))
			r.ensureBlankLine()
			return ast.WalkSkipChildren, nil
		}

	case *ast.FencedCodeBlock, *ast.CodeBlock:
		if entering {
			r.ensureBlankLine()
			r.writeBlock(codeStyle.Render(r.codeLines(n)))
			r.ensureBlankLine()
			return ast.WalkSkipChildren, nil
		}

	case *ast.Blockquote:
		if entering {
			r.prefixes = append(r.prefixes, quoteStyle.Render("│ "))
		} else {
			r.prefixes = r.prefixes[:len(r.prefixes)-1]
			r.ensureBlankLine()
		}

	case *ast.List:
		if entering {
			r.ensureNewline()
			start := node.Start
			if start == 0 {
				start = 1
			}
			r.lists = append(r.lists, listState{
				ordered: node.IsOrdered(),
				next:    start,
				tight:   node.IsTight,
			})
		} else {
			r.lists = r.lists[:len(r.lists)-1]
			if len(r.lists) == 0 {
				r.ensureBlankLine()
			}
		}

	case *ast.ListItem:
		if entering {
			r.ensureNewline()
			list := &r.lists[len(r.lists)-1]
			bullet := "• "
			if list.ordered {
				bullet = strconv.Itoa(list.next) + ". "
				list.next++
			}
			r.pendingBullet = r.linePrefix() + bullet
			r.prefixes = append(r.prefixes, strings.Repeat(" ", len([]rune(bullet))))
		} else {
			r.prefixes = r.prefixes[:len(r.prefixes)-1]
		}

	case *ast.ThematicBreak:
		if entering {
			w := r.width
			if w < 10 {
				w = 10
			}
			r.ensureBlankLine()
			r.writeBlock(quoteStyle.Render(strings.Repeat("─", w)))
			r.ensureBlankLine()
		}

	case *ast.Text:
		if entering {
			r.inline.WriteString(r.styled(string(node.Segment.Value(r.source))))
			if node.HardLineBreak() {
				r.inline.WriteString("\n")
			} else if node.SoftLineBreak() {
				r.inline.WriteString(" ")
			}
		}

	case *ast.String:
		if entering {
			r.inline.WriteString(r.styled(string(node.Value)))
		}

	case *ast.Emphasis:
		if node.Level >= 2 {
			r.bold += delta(entering)
		} else {
			r.italic += delta(entering)
		}

	case *extast.Strikethrough:
		r.strike += delta(entering)

	case *ast.CodeSpan:
		if entering {
			r.inline.WriteString(codeStyle.Render(r.childText(node)))
			return ast.WalkSkipChildren, nil
		}

	case *ast.Link:
		if entering {
			label := r.childText(node)
			dest := string(node.Destination)
			if label == "" || label == dest {
				r.inline.WriteString(linkStyle.Render(dest))
			} else {
				r.inline.WriteString(linkStyle.Render(label) + " (" + dest + ")")
			}
			return ast.WalkSkipChildren, nil
		}

	case *ast.AutoLink:
		if entering {
			r.inline.WriteString(linkStyle.Render(string(node.URL(r.source))))
		}

	case *extast.TaskCheckBox:
		if entering {
			if node.IsChecked {
				r.inline.WriteString("[x] ")
			} else {
				r.inline.WriteString("[ ] ")
			}
		}

	case *ast.HTMLBlock, *ast.RawHTML:
		return ast.WalkSkipChildren, nil
	}

	return ast.WalkContinue, nil
}

func (r *renderer) codeLines(n ast.Node) string {
	var b strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(r.source))
	}
	return strings.TrimRight(b.String(), "\n")
}

func delta(entering bool) int {
	if entering {
		return 1
	}
	return -1
}
