package main

import (
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// column describes one rendered table column. MaxWidth of zero leaves the
// column unbounded; longer cells are truncated with an ellipsis.
type column struct {
	Header   string
	AlignEnd bool
	MaxWidth int
}

func renderTable(columns []column, rows [][]string) string {
	if len(columns) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(columns))
	configs := make([]table.ColumnConfig, len(columns))
	for i, col := range columns {
		header[i] = col.Header
		align := text.AlignLeft
		if col.AlignEnd {
			align = text.AlignRight
		}
		configs[i] = table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		}
		if col.MaxWidth > 0 {
			limit := col.MaxWidth
			configs[i].WidthMax = limit
			configs[i].WidthMaxEnforcer = func(s string, _ int) string {
				return text.Trim(s, limit-1) + "…"
			}
		}
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	for _, row := range rows {
		r := make(table.Row, len(columns))
		for i := range columns {
			if i < len(row) {
				r[i] = singleLine(row[i])
			}
		}
		tw.AppendRow(r)
	}

	return tw.Render()
}

// singleLine folds newlines and runs of spaces so multi-line templates fit a row.
func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
