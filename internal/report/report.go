// Package report prints a course's records and aggregate grade. It is the only
// place values get rounded.
package report

import (
	"errors"
	"fmt"
	"handins-grader/internal/grade"
	"handins-grader/internal/handins"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

const ungradedMark = "-"

func NewTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(w)
	return t
}

func formatPercent(value float64) string {
	return fmt.Sprintf("%.2f%%", value)
}

func formatScore(r grade.Record) string {
	if !r.Graded() {
		return ungradedMark
	}
	if r.MaxScore == 100 {
		return fmt.Sprintf("%.2f", *r.Score)
	}
	return fmt.Sprintf("%.2f / %.2f", *r.Score, r.MaxScore)
}

// submitLink is where an ungraded record can still be handed in, empty for
// graded records and records without a known id.
func submitLink(baseUrl string, course handins.Course, r grade.Record) string {
	if r.Graded() || r.ID == 0 {
		return ""
	}
	return r.SubmissionLink(baseUrl, course.Id)
}

// Render writes the records of `summary` in server order followed by the
// grade. Ungraded records get a submission link under `baseUrl`.
// `aggregateErr` is the error grade.Aggregate returned, if it is
// grade.ErrNoGradedRecords the grade is reported as missing instead of 0%.
func Render(w io.Writer, baseUrl string, course handins.Course, summary grade.Summary, aggregateErr error) {
	fmt.Fprintln(w, course.Name)

	records := NewTable(w)
	records.AppendHeader(table.Row{"Assignment", "Score", "Weight", "Submit"})
	records.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
	})
	for _, r := range summary.Records {
		records.AppendRow(table.Row{
			r.Name,
			formatScore(r),
			fmt.Sprintf("%.2f", r.Weight),
			submitLink(baseUrl, course, r),
		})
	}
	records.Render()

	if errors.Is(aggregateErr, grade.ErrNoGradedRecords) {
		fmt.Fprintln(w, "Your current grade: no graded assignments yet")
		return
	}

	totals := NewTable(w)
	totals.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
	})
	totals.AppendRows([]table.Row{
		{"Your current grade", formatPercent(summary.Percentage)},
		{"Your minimum grade", formatPercent(summary.Minimum)},
		{"Your maximum grade", formatPercent(summary.Maximum)},
		{"Ungraded points you can earn", formatPercent(summary.Potential())},
	})
	totals.Render()
}

// RenderCourses lists the courses that can be passed by alias.
func RenderCourses(w io.Writer, courses []handins.Course) {
	t := NewTable(w)
	t.AppendHeader(table.Row{"Id", "Course", "Aliases"})
	for _, c := range courses {
		aliases := ""
		for i, alias := range c.Aliases {
			if i > 0 {
				aliases += ", "
			}
			aliases += alias
		}
		t.AppendRow(table.Row{c.Id, c.Name, aliases})
	}
	t.Render()
}
