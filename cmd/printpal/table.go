package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

// renderTable draws rows with a rounded border. A non-empty footer becomes
// the table's last line (used for totals).
func renderTable(headers []string, rows [][]string, aligns []columnAlignment, footer []string) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(toRow(headers, columns))
	for _, row := range rows {
		tw.AppendRow(toRow(row, columns))
	}
	if len(footer) > 0 {
		tw.AppendFooter(toRow(footer, columns))
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
			AlignFooter: align,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}

func toRow(values []string, columns int) table.Row {
	r := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		if i < len(values) {
			r[i] = values[i]
		} else {
			r[i] = ""
		}
	}
	return r
}
