package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// Theme is the palette of the status view.
type Theme struct {
	Primary lipgloss.Color
	Dim     lipgloss.Color
	Alert   lipgloss.Color
}

// DefaultTheme is amber on dark, like the dial plate lamp.
var DefaultTheme = Theme{
	Primary: lipgloss.Color("#ffb000"),
	Dim:     lipgloss.Color("#7a7a7a"),
	Alert:   lipgloss.Color("#ff5f5f"),
}

// Styles are the rendering styles of a Theme.
type Styles struct {
	Title  lipgloss.Style
	Label  lipgloss.Style
	Border lipgloss.Style
	Help   lipgloss.Style
	Alert  lipgloss.Style
}

func NewStyles(t Theme) Styles {
	accent := lipgloss.NewStyle().Foreground(t.Primary)
	return Styles{
		Title:  accent.Bold(true).Padding(0, 1),
		Label:  accent.Bold(true),
		Border: accent,
		Help:   lipgloss.NewStyle().Foreground(t.Dim),
		Alert:  lipgloss.NewStyle().Foreground(t.Alert).Bold(true),
	}
}

// Section is a titled group of lines inside a Frame.
type Section struct {
	Label string
	Lines []string
}

// Frame is a rounded box with a title row, stacked sections and a help line
// below the box.
type Frame struct {
	Styles   Styles
	Title    string
	Status   string
	Sections []Section
	Help     string
}

// frameChrome counts the rows a Frame draws besides section bodies: the two
// borders, the title row and the help line.
const frameChrome = 4

// Render draws f width cells wide. With height <= 0 each section is as tall
// as its content. Otherwise the rows left after the chrome are split evenly
// and a section that overflows keeps its newest (last) lines.
func (f Frame) Render(width, height int) string {
	b := box{style: f.Styles.Border, width: max(width, 8)}

	rows := 0
	if height > 0 {
		n := max(len(f.Sections), 1)
		rows = max((height-frameChrome-n)/n, 1)
	}

	b.edge("╭", "╮")
	head := f.Styles.Title.Render(f.Title)
	if f.Status != "" {
		head += " " + f.Styles.Help.Render("["+f.Status+"]")
	}
	b.row(head)
	for _, sec := range f.Sections {
		b.divider(f.Styles.Label.Render(sec.Label))
		body := sec.Lines
		n := rows
		if n == 0 {
			n = max(len(body), 1)
		}
		body = body[max(0, len(body)-n):]
		for i := range n {
			if i < len(body) {
				b.row(body[i])
			} else {
				b.row("")
			}
		}
	}
	b.edge("╰", "╯")
	if f.Help != "" {
		b.lines = append(b.lines, f.Styles.Help.Render(f.Help))
	}
	return strings.Join(b.lines, "\n")
}

// box accumulates the lines of a bordered frame.
type box struct {
	style lipgloss.Style
	width int
	lines []string
}

func (b *box) edge(left, right string) {
	b.lines = append(b.lines, b.style.Render(left+strings.Repeat("─", b.width-2)+right))
}

// divider draws ├─label───┤.
func (b *box) divider(label string) {
	fill := max(0, b.width-3-lipgloss.Width(label))
	b.lines = append(b.lines,
		b.style.Render("├─")+label+b.style.Render(strings.Repeat("─", fill)+"┤"))
}

// row draws │ text │, cutting text with an ellipsis when it does not fit.
func (b *box) row(text string) {
	inner := b.width - 4
	if lipgloss.Width(text) > inner {
		text = ansi.Truncate(text, inner, "…")
	}
	pad := strings.Repeat(" ", max(0, inner-lipgloss.Width(text)))
	edge := b.style.Render("│")
	b.lines = append(b.lines, edge+" "+text+pad+" "+edge)
}

// KeyValues formats pairs as aligned "key  value" lines. Odd trailing
// elements are ignored.
func KeyValues(s Styles, pairs ...string) []string {
	width := 0
	for i := 0; i+1 < len(pairs); i += 2 {
		width = max(width, len(pairs[i]))
	}
	var lines []string
	for i := 0; i+1 < len(pairs); i += 2 {
		key := pairs[i] + strings.Repeat(" ", width-len(pairs[i]))
		lines = append(lines, s.Help.Render(key)+"  "+pairs[i+1])
	}
	return lines
}
