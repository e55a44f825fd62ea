package main

import (
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"transcribe/internal/jobs"
)

type tableColumn struct {
	header string
	align  text.Align
}

var jobColumns = []tableColumn{
	{header: "ID"},
	{header: "Title"},
	{header: "Status"},
	{header: "Duration", align: text.AlignRight},
	{header: "Rating"},
	{header: "Added"},
}

var statusColumns = []tableColumn{
	{header: "ID"},
	{header: "Status"},
	{header: "Raw"},
	{header: "Error"},
}

const titleWidth = 48

func newTableWriter(columns []tableColumn) table.Writer {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.Style().Format.Header = text.FormatDefault
	tw.Style().Format.Footer = text.FormatDefault

	header := make(table.Row, len(columns))
	configs := make([]table.ColumnConfig, len(columns))
	for i, col := range columns {
		header[i] = col.header
		configs[i] = table.ColumnConfig{
			Number:      i + 1,
			Align:       col.align,
			AlignFooter: col.align,
			AlignHeader: text.AlignLeft,
		}
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)
	return tw
}

// renderTable renders rows under columns; short rows are padded.
func renderTable(columns []tableColumn, rows [][]string) string {
	if len(columns) == 0 {
		return ""
	}
	tw := newTableWriter(columns)
	for _, row := range rows {
		tw.AppendRow(padRow(row, len(columns)))
	}
	return tw.Render()
}

// renderJobTable lists jobs with a footer carrying the totals shown on the
// web dashboard: job count, completed count, and time saved.
func renderJobTable(list jobs.Collection, now time.Time, colorize bool) string {
	tw := newTableWriter(jobColumns)
	for _, job := range list {
		tw.AppendRow(table.Row{
			job.ID,
			truncateRunes(displayTitle(job), titleWidth),
			colorJobStatus(job, colorize),
			durationCell(job.Duration),
			ratingStars(job.Rating),
			timeAgo(job, now),
		})
	}
	counts := jobs.CountByStatus(list)
	tw.AppendFooter(table.Row{
		"",
		"Всего: " + formatCount(len(list)),
		"Готово: " + formatCount(counts[jobs.StatusCompleted]) + " · Ошибки: " + formatCount(counts[jobs.StatusFailed]),
		"Сэкономлено: " + jobs.FormatTimeSaved(jobs.TimeSaved(list)),
		"",
		"",
	})
	return tw.Render()
}

func padRow(row []string, columns int) table.Row {
	r := make(table.Row, columns)
	for i := range r {
		if i < len(row) {
			r[i] = row[i]
		} else {
			r[i] = ""
		}
	}
	return r
}
