package commands

import (
	"io"

	"visitcheck/internal/report"

	"github.com/jedib0t/go-pretty/v6/table"
)

func renderSummary(w io.Writer, rows []report.SummaryRow) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"訪員姓名", "違規總數"})

	total := 0
	for _, row := range rows {
		t.AppendRow(table.Row{row.InterviewerName, row.Count})
		total += row.Count
	}
	t.AppendFooter(table.Row{"", total})

	t.SetStyle(table.StyleRounded)
	t.Render()
}
