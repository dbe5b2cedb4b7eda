package export

import (
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/samber/lo"
)

// RenderTable prints the column header and the last limit data rows of doc.
// A limit of zero or less prints every row.
func RenderTable(w io.Writer, doc Document, limit int) {
	if len(doc.Rows) == 0 {
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("%s (%s)", doc.Args.Address, doc.Args.Network.Name)
	t.AppendHeader(toRow(doc.Rows[0]))

	data := doc.Rows[1:]
	if limit > 0 && len(data) > limit {
		data = data[len(data)-limit:]
	}
	for _, r := range data {
		t.AppendRow(toRow(r))
	}

	aligns := lo.Times(len(doc.Rows[0])-1, func(i int) table.ColumnConfig {
		return table.ColumnConfig{Number: i + 2, Align: text.AlignRight}
	})
	t.SetColumnConfigs(aligns)
	t.Render()
}

func toRow(fields []string) table.Row {
	return lo.Map(fields, func(f string, _ int) any { return f })
}
