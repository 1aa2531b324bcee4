package main

import (
	"io"
	"os"

	"github.com/olekukonko/tablewriter"
)

// VisualTable prints borderless, left aligned rows, optionally coloring single cells.
type VisualTable struct {
	Header []string
	Data   [][]string
	colors map[int][]tablewriter.Colors
	out    io.Writer
}

func NewVisualTable(header ...string) *VisualTable {
	return &VisualTable{
		Header: header,
		colors: make(map[int][]tablewriter.Colors),
		out:    os.Stdout,
	}
}

func (v *VisualTable) Append(row ...string) {
	v.Data = append(v.Data, row)
}

// Color colors one cell of the last appended row.
func (v *VisualTable) Color(column int, color tablewriter.Colors) {
	if len(v.Data) == 0 {
		return
	}
	index := len(v.Data) - 1
	rowColors := v.colors[index]
	if rowColors == nil {
		rowColors = make([]tablewriter.Colors, len(v.Data[index]))
	}
	if column < len(rowColors) {
		rowColors[column] = color
	}
	v.colors[index] = rowColors
}

func (v *VisualTable) Generate() {
	table := tablewriter.NewWriter(v.out)

	for index, datum := range v.Data {
		if rowColors, ok := v.colors[index]; ok {
			table.Rich(datum, rowColors)
			continue
		}
		table.Append(datum)
	}

	table.SetHeader(v.Header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetBorder(false)
	table.SetTablePadding("\t")
	table.SetNoWhiteSpace(true)
	table.Render()
}
