package commands

import (
	"fmt"
	"io"
	"steamwishlist/internal/wishlist"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

func newTable(out io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(out)
	return t
}

func printReport(out io.Writer, format string, lines []wishlist.ReportLine) {
	fmt.Fprintln(out, "-------- Results : --------")

	if format != formatTable {
		for _, line := range wishlist.FormatReport(lines) {
			fmt.Fprintln(out, line)
		}
		return
	}

	t := newTable(out)
	t.AppendHeader(table.Row{"Rank", "Score", "Title", "Wanted by"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 2, Align: text.AlignRight},
		{Number: 4, WidthMax: 60},
	})
	for _, line := range lines {
		t.AppendRow(table.Row{line.Rank, line.Count, line.Title, line.WantedBy()})
	}
	t.Render()
}
