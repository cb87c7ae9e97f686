// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package taskui

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// wrapBreakpoints are the characters, besides spaces, after which a
// long word may be broken.
const wrapBreakpoints = " ,.;-+|"

var markdownParser = sync.OnceValue(func() goldmark.Markdown {
	return goldmark.New(goldmark.WithExtensions(extension.GFM))
})

// renderMarkdown renders task descriptions and comment text for the
// detail pane. Paragraphs reflow to width: single newlines in the
// source become spaces. Fenced code is highlighted with chroma.
func renderMarkdown(input string, theme Theme, width int) string {
	if strings.TrimSpace(input) == "" {
		return ""
	}
	source := []byte(input)
	document := markdownParser().Parser().Parse(text.NewReader(source))

	// The board always draws to a terminal. Forcing the profile keeps
	// output styled when stdout is not a TTY (tests, pipes).
	styles := lipgloss.NewRenderer(io.Discard, termenv.WithProfile(termenv.ANSI256))
	styles.SetColorProfile(termenv.ANSI256)

	writer := &markdownWriter{
		source: source,
		theme:  theme,
		width:  width,
		styles: styles,
	}
	ast.Walk(document, writer.visit)
	return writer.out.String()
}

// markdownWriter accumulates the inline content of one block at a time
// and wraps it when the block closes. Nested containers (quotes, list
// items) contribute line prefixes.
type markdownWriter struct {
	source []byte
	theme  Theme
	width  int
	styles *lipgloss.Renderer

	out    strings.Builder
	inline strings.Builder

	prefixes []string

	// bullet replaces the full prefix on the next emitted line.
	bullet string

	lists []listState

	bold, italic, strike int
}

type listState struct {
	ordered bool
	next    int
	tight   bool
}

func (w *markdownWriter) style() lipgloss.Style {
	return w.styles.NewStyle()
}

func (w *markdownWriter) prefix() string {
	return strings.Join(w.prefixes, "")
}

// contentWidth is the wrap width left after prefixes, never below 10.
func (w *markdownWriter) contentWidth() int {
	return max(w.width-lipgloss.Width(w.prefix()), 10)
}

func (w *markdownWriter) inTightList() bool {
	return len(w.lists) > 0 && w.lists[len(w.lists)-1].tight
}

// emit writes one block. Blocks are separated by a blank line except
// between the blocks of a tight list.
func (w *markdownWriter) emit(lines []string) {
	if len(lines) == 0 {
		return
	}
	if w.out.Len() > 0 {
		w.out.WriteString("\n")
		if !w.inTightList() {
			w.out.WriteString("\n")
		}
	}
	prefix := w.prefix()
	for index, line := range lines {
		if index > 0 {
			w.out.WriteString("\n")
		}
		if index == 0 && w.bullet != "" {
			w.out.WriteString(w.bullet)
			w.bullet = ""
		} else {
			w.out.WriteString(prefix)
		}
		w.out.WriteString(line)
	}
}

// flushInline wraps and emits the pending inline content.
func (w *markdownWriter) flushInline() {
	content := w.inline.String()
	w.inline.Reset()
	if strings.TrimSpace(ansi.Strip(content)) == "" {
		return
	}
	wrapped := ansi.Wrap(content, w.contentWidth(), wrapBreakpoints)
	w.emit(strings.Split(wrapped, "\n"))
}

func (w *markdownWriter) styledText(content string) string {
	style := w.style().Foreground(w.theme.NormalText)
	if w.bold > 0 {
		style = style.Bold(true)
	}
	if w.italic > 0 {
		style = style.Italic(true)
	}
	if w.strike > 0 {
		style = style.Strikethrough(true)
	}
	return style.Render(content)
}

func (w *markdownWriter) faint(content string) string {
	return w.style().Foreground(w.theme.FaintText).Render(content)
}

func (w *markdownWriter) visit(node ast.Node, entering bool) (ast.WalkStatus, error) {
	switch node.Kind() {
	case ast.KindParagraph, ast.KindTextBlock:
		if entering {
			w.inline.Reset()
		} else {
			w.flushInline()
		}

	case ast.KindHeading:
		if entering {
			w.inline.Reset()
		} else {
			w.heading(node.(*ast.Heading))
		}

	case ast.KindFencedCodeBlock:
		fenced := node.(*ast.FencedCodeBlock)
		w.code(blockText(fenced, w.source), string(fenced.Language(w.source)))
		return ast.WalkSkipChildren, nil

	case ast.KindCodeBlock:
		w.code(blockText(node, w.source), "")
		return ast.WalkSkipChildren, nil

	case ast.KindHTMLBlock:
		return ast.WalkSkipChildren, nil

	case ast.KindBlockquote:
		if entering {
			w.prefixes = append(w.prefixes, "│ ")
		} else {
			w.prefixes = w.prefixes[:len(w.prefixes)-1]
		}

	case ast.KindList:
		if entering {
			list := node.(*ast.List)
			w.lists = append(w.lists, listState{ordered: list.IsOrdered(), next: list.Start, tight: list.IsTight})
		} else {
			w.lists = w.lists[:len(w.lists)-1]
		}

	case ast.KindListItem:
		if entering {
			w.listItem()
		} else {
			w.prefixes = w.prefixes[:len(w.prefixes)-1]
		}

	case ast.KindThematicBreak:
		if entering {
			rule := w.style().Foreground(w.theme.BorderColor).Render(strings.Repeat("─", w.contentWidth()))
			w.emit([]string{rule})
		}

	case ast.KindText:
		if entering {
			textNode := node.(*ast.Text)
			w.inline.WriteString(w.styledText(string(textNode.Segment.Value(w.source))))
			switch {
			case textNode.HardLineBreak():
				w.inline.WriteString("\n")
			case textNode.SoftLineBreak():
				w.inline.WriteString(" ")
			}
		}

	case ast.KindString:
		if entering {
			w.inline.WriteString(w.styledText(string(node.(*ast.String).Value)))
		}

	case ast.KindEmphasis:
		counter := &w.italic
		if node.(*ast.Emphasis).Level >= 2 {
			counter = &w.bold
		}
		if entering {
			*counter++
		} else {
			*counter--
		}

	case ast.KindCodeSpan:
		var code strings.Builder
		for child := node.FirstChild(); child != nil; child = child.NextSibling() {
			switch child := child.(type) {
			case *ast.Text:
				code.Write(child.Segment.Value(w.source))
			case *ast.String:
				code.Write(child.Value)
			}
		}
		w.inline.WriteString(w.faint(code.String()))
		return ast.WalkSkipChildren, nil

	case ast.KindLink:
		if !entering {
			if destination := string(node.(*ast.Link).Destination); destination != "" {
				w.inline.WriteString(" " + w.faint("("+destination+")"))
			}
		}

	case ast.KindAutoLink:
		if entering {
			w.inline.WriteString(w.faint(string(node.(*ast.AutoLink).URL(w.source))))
		}

	case ast.KindImage:
		if entering {
			w.inline.WriteString(w.faint("["))
		} else {
			w.inline.WriteString(w.faint("] (" + string(node.(*ast.Image).Destination) + ")"))
		}

	case extast.KindStrikethrough:
		if entering {
			w.strike++
		} else {
			w.strike--
		}

	case extast.KindTaskCheckBox:
		if entering {
			if node.(*extast.TaskCheckBox).IsChecked {
				w.inline.WriteString(w.style().Foreground(w.theme.StatusOpen).Render("[x]") + " ")
			} else {
				w.inline.WriteString(w.styledText("[ ] "))
			}
		}

	case extast.KindTable:
		w.table(node)
		return ast.WalkSkipChildren, nil
	}
	return ast.WalkContinue, nil
}

func (w *markdownWriter) heading(heading *ast.Heading) {
	content := ansi.Strip(w.inline.String())
	w.inline.Reset()
	if content == "" {
		return
	}
	color := w.theme.NormalText
	if heading.Level <= 2 {
		color = w.theme.HeaderForeground
	}
	styled := w.style().Bold(true).Foreground(color).Render(content)
	w.emit(strings.Split(ansi.Wrap(styled, w.contentWidth(), wrapBreakpoints), "\n"))
}

// code emits a code block verbatim. A known language is highlighted;
// anything else is drawn faint.
func (w *markdownWriter) code(code, language string) {
	code = strings.TrimRight(code, "\n")
	if code == "" {
		return
	}
	rendered := w.faint(code)
	if language != "" {
		var highlighted strings.Builder
		if err := quick.Highlight(&highlighted, code, language, "terminal256", "monokai"); err == nil {
			rendered = highlighted.String()
		}
	}
	w.emit(strings.Split(strings.TrimRight(rendered, "\n"), "\n"))
}

func (w *markdownWriter) listItem() {
	if len(w.lists) == 0 {
		return
	}
	list := &w.lists[len(w.lists)-1]
	marker := "- "
	if list.ordered {
		marker = fmt.Sprintf("%d. ", list.next)
		list.next++
	}
	w.bullet = w.prefix() + marker
	w.prefixes = append(w.prefixes, strings.Repeat(" ", len(marker)))
}

// table emits a GFM table with padded columns. Cell styling is
// dropped so widths can be measured; the header row is bold.
func (w *markdownWriter) table(node ast.Node) {
	var rows [][]string
	for row := node.FirstChild(); row != nil; row = row.NextSibling() {
		var cells []string
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			cells = append(cells, strings.TrimSpace(ansi.Strip(w.inlineOf(cell))))
		}
		rows = append(rows, cells)
	}
	if len(rows) == 0 {
		return
	}

	var widths []int
	for _, cells := range rows {
		for column, cell := range cells {
			if column >= len(widths) {
				widths = append(widths, 0)
			}
			widths[column] = max(widths[column], lipgloss.Width(cell))
		}
	}

	separator := w.style().Foreground(w.theme.BorderColor).Render(" │ ")
	lines := make([]string, 0, len(rows)+1)
	for index, cells := range rows {
		padded := make([]string, len(cells))
		for column, cell := range cells {
			cell += strings.Repeat(" ", widths[column]-lipgloss.Width(cell))
			if index == 0 {
				padded[column] = w.style().Bold(true).Foreground(w.theme.NormalText).Render(cell)
			} else {
				padded[column] = w.styledText(cell)
			}
		}
		lines = append(lines, ansi.Truncate(strings.Join(padded, separator), w.contentWidth(), "…"))
		if index == 0 {
			rules := make([]string, len(widths))
			for column, width := range widths {
				rules[column] = strings.Repeat("─", width)
			}
			lines = append(lines, w.style().Foreground(w.theme.BorderColor).Render(strings.Join(rules, "─┼─")))
		}
	}
	w.emit(lines)
}

// inlineOf renders the inline children of node without disturbing the
// block being accumulated.
func (w *markdownWriter) inlineOf(node ast.Node) string {
	saved := w.inline.String()
	w.inline.Reset()
	for child := node.FirstChild(); child != nil; child = child.NextSibling() {
		ast.Walk(child, w.visit)
	}
	result := w.inline.String()
	w.inline.Reset()
	w.inline.WriteString(saved)
	return result
}

func blockText(node ast.Node, source []byte) string {
	var content strings.Builder
	lines := node.Lines()
	for index := range lines.Len() {
		segment := lines.At(index)
		content.Write(segment.Value(source))
	}
	return content.String()
}
