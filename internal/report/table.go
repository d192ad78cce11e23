// Package report renders run summaries as markdown tables.
package report

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// minColumnWidth keeps separator rows at least "---".
const minColumnWidth = 3

// Table is a markdown table with a header row.
type Table struct {
	Header []string
	Rows   [][]string
}

// Append adds a row.
func (t *Table) Append(cells ...string) {
	t.Rows = append(t.Rows, cells)
}

// Render returns the table with every column padded to its widest cell,
// measured in display width so wide runes line up.
func (t *Table) Render() string {
	return strings.Join(alignTable(t.Header, t.Rows), "\n") + "\n"
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.Join(strings.Fields(s), " ")
}

func alignTable(header []string, rows [][]string) []string {
	colCount := len(header)
	for _, row := range rows {
		if len(row) > colCount {
			colCount = len(row)
		}
	}

	table := make([][]string, 0, len(rows)+1)
	for _, row := range append([][]string{header}, rows...) {
		cells := make([]string, colCount)
		for i := 0; i < len(row) && i < colCount; i++ {
			cells[i] = escapeCell(row[i])
		}

		table = append(table, cells)
	}

	widths := make([]int, colCount)
	for i := range widths {
		widths[i] = minColumnWidth
	}

	for _, row := range table {
		for i, cell := range row {
			if w := runewidth.StringWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	lines := make([]string, 0, len(table)+1)
	for i, row := range table {
		lines = append(lines, renderRow(row, widths))

		if i == 0 {
			sep := make([]string, colCount)
			for j, w := range widths {
				sep[j] = strings.Repeat("-", w)
			}

			lines = append(lines, renderRow(sep, widths))
		}
	}

	return lines
}

func renderRow(cells []string, widths []int) string {
	var sb strings.Builder

	sb.WriteString("|")

	for j, content := range cells {
		sb.WriteString(" ")
		sb.WriteString(content)

		if padding := widths[j] - runewidth.StringWidth(content); padding > 0 {
			sb.WriteString(strings.Repeat(" ", padding))
		}

		sb.WriteString(" |")
	}

	return sb.String()
}
