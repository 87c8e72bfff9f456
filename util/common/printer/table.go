package printer

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/harness/depextract/internal/style"
	"github.com/pterm/pterm"
)

// Table is a rendered-on-demand set of rows with fixed headers.
type Table struct {
	Headers []string
	Rows    [][]string
}

// AddRow appends a row. Missing cells are rendered as "-".
func (t *Table) AddRow(cells ...string) {
	row := make([]string, len(t.Headers))
	for i := range row {
		if i < len(cells) && cells[i] != "" {
			row[i] = cells[i]
		} else {
			row[i] = "-"
		}
	}
	t.Rows = append(t.Rows, row)
}

// renderStyledTable renders a table using lipgloss/table with the project's colour theme.
func renderStyledTable(w io.Writer, headers []string, rows [][]string) {
	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(style.Cyan).
		Padding(0, 1)

	cellStyle := lipgloss.NewStyle().
		Padding(0, 1)

	dimCellStyle := lipgloss.NewStyle().
		Foreground(style.Dim).
		Padding(0, 1)

	t := lgtable.New().
		Headers(headers...).
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(style.Subtle)).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == lgtable.HeaderRow {
				return headerStyle
			}
			if row%2 == 0 {
				return cellStyle
			}
			return dimCellStyle
		})

	for _, r := range rows {
		t = t.Row(r...)
	}

	fmt.Fprintln(w, t.Render())
}

// renderPtermTable renders a plain table for non-TTY / no-color output.
func renderPtermTable(w io.Writer, headers []string, rows [][]string) error {
	data := pterm.TableData{headers}
	data = append(data, rows...)

	out, err := pterm.DefaultTable.
		WithHasHeader().
		WithData(data).
		Srender()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, out)
	return err
}

// PrintTable writes t to w (stdout when nil). When colour is enabled it
// renders using lipgloss/table with the project theme, otherwise it falls
// back to a plain pterm table.
func PrintTable(w io.Writer, t *Table) error {
	if w == nil {
		w = os.Stdout
	}
	if t == nil || len(t.Rows) == 0 {
		return nil
	}

	if style.Enabled {
		renderStyledTable(w, t.Headers, t.Rows)
		return nil
	}
	if err := renderPtermTable(w, t.Headers, t.Rows); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}
	return nil
}
