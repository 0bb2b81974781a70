// Package report renders run results for the terminal.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/gosuri/uitable"

	"github.com/inferloop/kanon/internal/pipeline"
	"github.com/inferloop/kanon/internal/privacy"
	"github.com/inferloop/kanon/internal/transforms"
)

var (
	headerfmt = color.New(color.FgGreen, color.Underline).SprintFunc()
	warnfmt   = color.New(color.FgYellow).SprintFunc()
	titlefmt  = color.New(color.Bold).SprintFunc()
)

func count(n int) string {
	return humanize.Comma(int64(n))
}

func newTable() *uitable.Table {
	t := uitable.New()
	t.MaxColWidth = 60
	t.Wrap = true
	return t
}

func section(w io.Writer, title string, table *uitable.Table) {
	fmt.Fprintf(w, "\n%s\n%s\n", titlefmt(title), table)
}

// WriteColumns prints the numbered column list used to pick quasi-identifiers.
func WriteColumns(w io.Writer, columns []string) {
	table := newTable()
	table.AddRow(headerfmt("#"), headerfmt("COLUMN"))
	for i, name := range columns {
		table.AddRow(i+1, name)
	}
	section(w, "Available columns", table)
}

// WriteMetrics prints one row per metric set.
func WriteMetrics(w io.Writer, metrics ...privacy.Metrics) {
	table := newTable()
	table.AddRow(headerfmt("METRIC"), headerfmt("K-ANONYMITY"), headerfmt("MEAN GROUP"), headerfmt("MEDIAN GROUP"), headerfmt("GROUPS"), headerfmt("ROWS"))
	for _, m := range metrics {
		table.AddRow(m.Name, m.KAnonymity, fmt.Sprintf("%.2f", m.Mean), fmt.Sprintf("%.2f", m.Median), count(m.Groups), count(m.Rows))
	}
	section(w, "K-anonymity", table)
}

// WriteBadGroups prints the smallest equivalence classes.
func WriteBadGroups(w io.Writer, qi []string, groups []privacy.BadGroup) {
	if len(groups) == 0 {
		fmt.Fprintf(w, "\n%s\n", titlefmt("No equivalence classes below the threshold"))
		return
	}
	table := newTable()
	table.AddRow(headerfmt("SIZE"), headerfmt("SHARE %"), headerfmt(strings.ToUpper(strings.Join(qi, " | "))))
	for _, g := range groups {
		table.AddRow(count(g.Size), fmt.Sprintf("%.2f", g.Share), g.Label())
	}
	section(w, fmt.Sprintf("Smallest equivalence classes (%d)", len(groups)), table)
}

// WriteTransforms prints per-transform recovery counts.
func WriteTransforms(w io.Writer, stats []transforms.Stats) {
	table := newTable()
	table.AddRow(headerfmt("TRANSFORM"), headerfmt("COLUMN"), headerfmt("PROCESSED"), headerfmt("UNKNOWN"))
	for _, s := range stats {
		unknown := count(s.Unknown)
		if s.Unknown > 0 {
			unknown = warnfmt(unknown)
		}
		processed := count(s.Processed)
		if s.Skipped {
			processed = "skipped"
		}
		table.AddRow(s.Transform, s.Column, processed, unknown)
	}
	section(w, "Column generalization", table)
}

// WriteUtility prints what anonymization cost.
func WriteUtility(w io.Writer, u pipeline.Utility) {
	table := newTable()
	table.AddRow(headerfmt("MEASURE"), headerfmt("VALUE"))
	table.AddRow("rows in", count(u.RowsIn))
	table.AddRow("rows out", count(u.RowsOut))
	table.AddRow("rows suppressed", count(u.RowsSuppressed))
	table.AddRow("rows retained %", fmt.Sprintf("%.2f", u.RetainedShare))
	table.AddRow("changed columns", strings.Join(u.ChangedColumns, ", "))
	table.AddRow("dropped columns", strings.Join(u.DroppedColumns, ", "))
	table.AddRow("added columns", strings.Join(u.AddedColumns, ", "))
	section(w, "Utility", table)

	if u.Identical {
		fmt.Fprintln(w, warnfmt("The anonymized dataset is identical to the input; nothing was changed."))
	}
}

// WriteResult prints the full report of an anonymization run.
func WriteResult(w io.Writer, r *pipeline.Result) {
	fmt.Fprintf(w, "%s %s (%s)\n", titlefmt("Run"), r.RunID, r.Duration.Round(time.Millisecond))
	WriteTransforms(w, r.Transforms)
	WriteMetrics(w, r.FullUniqueness, r.QuasiIdentifierKAnonymity)
	WriteBadGroups(w, r.QuasiIdentifiers, r.BadGroups)
	WriteUtility(w, r.Utility)
}
