// Package ui renders the component dependency graph as box-and-arrow ASCII
// art on stderr. Topological groups are rows; coupled components (members of
// one strongly connected cycle) get double-line borders since they solve
// together rather than in sequence.
package ui

import (
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/papapumpkin/graviton/internal/ansi"
)

// Renderer produces an ASCII visualization of the component graph. It
// operates in two modes: full-box mode (small graphs) and compact
// single-line mode above compactThreshold components.
type Renderer struct {
	// Width is the available terminal width in columns.
	Width int

	// UseColor controls whether ANSI escape codes are emitted.
	UseColor bool

	// Coupled is the set of components belonging to a multi-member cycle.
	Coupled map[string]bool

	// Implicit is the set of implicit components, colored differently from
	// explicit ones.
	Implicit map[string]bool
}

// compactThreshold is the number of components above which the renderer
// switches from full-box mode to compact single-line mode.
const compactThreshold = 10

// Render draws the graph. groups are the topological groups in evaluation
// order; producers maps each component to its direct upstream producers.
func (r *Renderer) Render(groups [][]string, producers map[string][]string) string {
	total := 0
	for _, g := range groups {
		total += len(g)
	}
	if total == 0 {
		return ""
	}

	width := r.Width
	if width <= 0 {
		width = 80
	}
	if total > compactThreshold {
		return r.renderCompact(groups, producers)
	}
	return r.renderFull(groups, producers, width)
}

// nodeBox is the rendered text and position of a single component box.
type nodeBox struct {
	id     string
	lines  []string
	width  int // max line width in runes
	center int // horizontal center column
}

func (r *Renderer) renderFull(groups [][]string, producers map[string][]string, width int) string {
	boxes := make(map[string]*nodeBox)
	for _, g := range groups {
		for _, id := range g {
			boxes[id] = r.buildBox(id)
		}
	}

	var sb strings.Builder
	for gi, g := range groups {
		row := make([]*nodeBox, len(g))
		for i, id := range g {
			row[i] = boxes[id]
		}
		layoutRow(row, width)

		if gi > 0 {
			r.drawConnectors(&sb, g, boxes, producers, width)
		}
		drawRow(&sb, row)
	}
	return sb.String()
}

// buildBox creates the box for one component:
//
//	┌────────────┐
//	│ aero       │
//	└────────────┘
//
// with a double-line border when the component is part of a coupled cycle.
func (r *Renderer) buildBox(id string) *nodeBox {
	inner := utf8.RuneCountInString(id)
	if inner < 6 {
		inner = 6
	}

	border := [6]rune{'┌', '┐', '└', '┘', '─', '│'}
	if r.Coupled[id] {
		border = [6]rune{'╔', '╗', '╚', '╝', '═', '║'}
	}

	pad := id + strings.Repeat(" ", inner-utf8.RuneCountInString(id))
	lines := []string{
		r.colorize(string(border[0])+strings.Repeat(string(border[4]), inner+2)+string(border[1]), id),
		r.colorize(string(border[5])+" "+pad+" "+string(border[5]), id),
		r.colorize(string(border[2])+strings.Repeat(string(border[4]), inner+2)+string(border[3]), id),
	}
	return &nodeBox{id: id, lines: lines, width: inner + 4}
}

func (r *Renderer) colorize(text, id string) string {
	if !r.UseColor {
		return text
	}
	prefix := ansi.Blue
	switch {
	case r.Coupled[id]:
		prefix = ansi.Magenta
	case r.Implicit[id]:
		prefix = ansi.Yellow
	}
	return prefix + text + ansi.Reset
}

// layoutRow spaces the boxes evenly across the available width.
func layoutRow(row []*nodeBox, width int) {
	n := len(row)
	if n == 0 {
		return
	}
	if n == 1 {
		row[0].center = width / 2
		return
	}
	total := 0
	for _, b := range row {
		total += b.width
	}
	gap := 2
	if total < width {
		gap = (width - total) / (n + 1)
		if gap < 2 {
			gap = 2
		}
	}
	x := gap
	for _, b := range row {
		b.center = x + b.width/2
		x += b.width + gap
	}
}

func drawRow(sb *strings.Builder, row []*nodeBox) {
	for lineIdx := 0; lineIdx < 3; lineIdx++ {
		cursor := 0
		for _, b := range row {
			start := b.center - b.width/2
			if start < cursor {
				start = cursor
			}
			sb.WriteString(strings.Repeat(" ", start-cursor))
			sb.WriteString(b.lines[lineIdx])
			cursor = start + b.width
		}
		sb.WriteByte('\n')
	}
}

// drawConnectors draws drop lines from every producer of the current row's
// components, then a branch line joining producers to consumers.
func (r *Renderer) drawConnectors(sb *strings.Builder, group []string, boxes map[string]*nodeBox, producers map[string][]string, width int) {
	type conn struct{ from, to int }
	var conns []conn
	for _, id := range group {
		toBox := boxes[id]
		for _, p := range producers[id] {
			fromBox := boxes[p]
			if fromBox == nil {
				continue
			}
			conns = append(conns, conn{from: fromBox.center, to: toBox.center})
		}
	}
	if len(conns) == 0 {
		return
	}

	drop := blankLine(width)
	for _, c := range conns {
		setRune(drop, c.from, '│')
	}
	sb.WriteString(strings.TrimRight(string(drop), " "))
	sb.WriteByte('\n')

	branch := blankLine(width)
	for _, c := range conns {
		lo, hi := c.from, c.to
		if lo > hi {
			lo, hi = hi, lo
		}
		for col := lo; col <= hi; col++ {
			if col >= 0 && col < width && branch[col] == ' ' {
				branch[col] = '─'
			}
		}
		setRune(branch, c.from, '┴')
		setRune(branch, c.to, '┬')
	}
	sb.WriteString(strings.TrimRight(string(branch), " "))
	sb.WriteByte('\n')
}

// renderCompact emits one labelled line per group, with producer arrows.
func (r *Renderer) renderCompact(groups [][]string, producers map[string][]string) string {
	var sb strings.Builder
	for gi, g := range groups {
		label := "Group " + strconv.Itoa(gi+1) + ": "
		sb.WriteString(r.dim(label))
		for ni, id := range g {
			if ni > 0 {
				sb.WriteString("  ")
			}
			sb.WriteString(r.colorize("["+id+"]", id))
			ps := append([]string(nil), producers[id]...)
			sort.Strings(ps)
			if len(ps) > 0 {
				sb.WriteString(r.dim(" ← " + strings.Join(ps, ", ")))
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func (r *Renderer) dim(text string) string {
	if !r.UseColor {
		return text
	}
	return ansi.Dim + text + ansi.Reset
}

func blankLine(width int) []rune {
	line := make([]rune, width)
	for i := range line {
		line[i] = ' '
	}
	return line
}

func setRune(line []rune, col int, c rune) {
	if col >= 0 && col < len(line) {
		line[col] = c
	}
}
