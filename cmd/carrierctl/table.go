package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	numberStyle = cellStyle.Align(lipgloss.Right)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// renderTable writes rows under headers. Columns listed in numeric are right aligned.
func renderTable(out io.Writer, headers []string, rows [][]string, numeric ...int) error {
	right := make(map[int]bool, len(numeric))
	for _, c := range numeric {
		right[c] = true
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case right[col]:
				return numberStyle
			default:
				return cellStyle
			}
		}).
		Headers(headers...).
		Rows(rows...)

	_, err := fmt.Fprintln(out, t.String())
	return err
}
