// Package cliutil renders debug output for the CLI subcommands,
// grounded on the teacher's datalog/executor/table_formatter.go
// (tablewriter markdown rendering) and its color.*String helpers
// scattered across relation.go/annotations for size-sensitive
// highlighting.
package cliutil

import (
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/jptmoore/beingdb/pack"
)

// PredicateTable renders a pack's predicate listing as a markdown
// table, colorizing the fact count by rough size so an operator can
// spot unexpectedly large or empty predicates at a glance.
func PredicateTable(w io.Writer, infos []pack.PredicateInfo) {
	alignment := []tw.Align{tw.AlignLeft, tw.AlignRight, tw.AlignRight}
	table := tablewriter.NewTable(w,
		tablewriter.WithRenderer(renderer.NewMarkdown()),
		tablewriter.WithAlignment(alignment),
		tablewriter.WithHeaderAutoFormat(tw.Off),
	)
	table.Header([]string{"predicate", "arity", "facts"})

	for _, info := range infos {
		table.Append([]string{info.Name, strconv.Itoa(info.Arity), colorizeCount(info.Count)})
	}
	table.Render()
}

// BindingTable renders a list of variable names and their per-row
// values for one query result.
func BindingTable(w io.Writer, variables []string, rows []map[string]string) {
	table := tablewriter.NewTable(w, tablewriter.WithRenderer(renderer.NewMarkdown()))
	table.Header(variables)
	for _, row := range rows {
		values := make([]string, len(variables))
		for i, v := range variables {
			values[i] = row[v]
		}
		table.Append(values)
	}
	table.Render()
}

func colorizeCount(n int64) string {
	switch {
	case n == 0:
		return color.RedString("%d", n)
	case n < 1000:
		return color.GreenString("%d", n)
	default:
		return color.YellowString("%d", n)
	}
}
