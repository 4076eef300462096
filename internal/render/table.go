package render

import (
	"strings"

	"github.com/mattn/go-runewidth"

	"Scout/internal/model"
)

const ellipsis = "..."

// TableOptions sets the fixed column widths, in terminal cells.
type TableOptions struct {
	LabelWidth int
	ValueWidth int
	// MaxColumns limits how many period columns are printed; 0 prints all.
	MaxColumns int
}

// DefaultTableOptions fits a four-period statement in about 100 columns.
func DefaultTableOptions() TableOptions {
	return TableOptions{LabelWidth: 34, ValueWidth: 14}
}

// Table renders a statement with a right-aligned label column and
// right-aligned value columns. Over-long labels and headers are cut with an
// ellipsis; cells go through FormatCell.
func Table(t *model.Table, opts TableOptions) string {
	if t.Empty() {
		return ""
	}
	def := DefaultTableOptions()
	if opts.LabelWidth <= len(ellipsis) {
		opts.LabelWidth = def.LabelWidth
	}
	if opts.ValueWidth <= len(ellipsis) {
		opts.ValueWidth = def.ValueWidth
	}
	cols := len(t.Headers)
	if opts.MaxColumns > 0 && opts.MaxColumns < cols {
		cols = opts.MaxColumns
	}

	rule := strings.Repeat("-", opts.LabelWidth+cols*(opts.ValueWidth+1))
	var b strings.Builder

	b.WriteString(rule + "\n")
	b.WriteString(fit("", opts.LabelWidth))
	for _, h := range t.Headers[:cols] {
		b.WriteString(" " + fit(h, opts.ValueWidth))
	}
	b.WriteString("\n" + rule + "\n")

	for _, row := range t.Rows {
		b.WriteString(fit(row.Label, opts.LabelWidth))
		for i := 0; i < cols; i++ {
			cell := ""
			if i < len(row.Cells) {
				cell = row.Cells[i]
			}
			b.WriteString(" " + fit(FormatCell(cell), opts.ValueWidth))
		}
		b.WriteString("\n")
	}
	b.WriteString(rule + "\n")
	return b.String()
}

// fit truncates s to width cells with an ellipsis and right-aligns it.
func fit(s string, width int) string {
	if runewidth.StringWidth(s) > width {
		s = runewidth.Truncate(s, width, ellipsis)
	}
	return runewidth.FillLeft(s, width)
}
