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

// renderTable renders headers/rows as a rounded-border table, right-aligning
// any column flagged in aligns and left-aligning everything else.
func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columnCount := len(headers)
	if columnCount == 0 {
		return ""
	}

	writer := table.NewWriter()
	writer.SetStyle(table.StyleRounded)
	writer.Style().Format.Header = text.FormatDefault

	header := make(table.Row, columnCount)
	for col, name := range headers {
		header[col] = name
	}
	writer.AppendHeader(header)

	for _, row := range rows {
		rendered := make(table.Row, columnCount)
		for col := 0; col < columnCount; col++ {
			if col < len(row) {
				rendered[col] = row[col]
			} else {
				rendered[col] = ""
			}
		}
		writer.AppendRow(rendered)
	}

	configs := make([]table.ColumnConfig, 0, columnCount)
	for col := 0; col < columnCount; col++ {
		align := text.AlignLeft
		if col < len(aligns) && aligns[col] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{
			Number:      col + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	writer.SetColumnConfigs(configs)

	return writer.Render()
}
