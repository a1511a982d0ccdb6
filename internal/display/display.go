// Package display renders human-oriented output: per-file status lines,
// a per-file track decision table, and the end-of-batch summary table.
// Palette and message shape follow the teacher's internal/format package;
// everything here writes to an explicit io.Writer (stderr in
// cmd/mkvslimmer) rather than stdout, since stdout is reserved for
// Sonarr's MoveStatus protocol (spec.md §5).
package display

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"mkvslimmer/internal/batch"
	"mkvslimmer/internal/planner"
	"mkvslimmer/internal/selector"
	"mkvslimmer/internal/stream"
)

var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow)
	infoColor    = color.New(color.FgCyan)
	keptColor    = color.New(color.FgGreen)
	droppedColor = color.New(color.FgHiBlack)
)

// PrintSuccess writes a single-line success message.
func PrintSuccess(w io.Writer, format string, args ...interface{}) {
	successColor.Fprintf(w, "✓  %s\n", fmt.Sprintf(format, args...))
}

// PrintError writes a single-line error message.
func PrintError(w io.Writer, format string, args ...interface{}) {
	errorColor.Fprintf(w, "✗  %s\n", fmt.Sprintf(format, args...))
}

// PrintWarning writes a single-line warning message.
func PrintWarning(w io.Writer, format string, args ...interface{}) {
	warningColor.Fprintf(w, "⚠  %s\n", fmt.Sprintf(format, args...))
}

// PrintInfo writes a single-line informational message.
func PrintInfo(w io.Writer, format string, args ...interface{}) {
	infoColor.Fprintf(w, "ℹ  %s\n", fmt.Sprintf(format, args...))
}

// TrackTable renders one file's streams and, if non-nil, selector
// decisions as a table. Used after every single-file run (--dry-run
// included) and for --info mode (decisions == nil: no Decision column).
func TrackTable(w io.Writer, streams []stream.Stream, decisions []selector.Decision) {
	t := table.NewWriter()
	t.SetOutputMirror(w)

	if decisions == nil {
		t.AppendHeader(table.Row{"Idx", "Kind", "Lang", "Title", "Default", "Forced"})
		for _, s := range streams {
			t.AppendRow(table.Row{s.Index, s.Kind, s.Language, s.Title, s.Default, s.Forced})
		}
		t.Render()
		return
	}

	t.AppendHeader(table.Row{"Idx", "Kind", "Lang", "Title", "Default", "Forced", "Decision"})

	byIndex := map[int]selector.Decision{}
	for _, d := range decisions {
		byIndex[d.Stream.Index] = d
	}

	for _, s := range streams {
		d := byIndex[s.Index]
		decision := droppedColor.Sprint("drop")
		if d.Keep {
			decision = keptColor.Sprint("keep")
			if d.BecomesDefault {
				decision = keptColor.Sprint("keep (default)")
			}
		}
		t.AppendRow(table.Row{s.Index, s.Kind, s.Language, s.Title, s.Default, s.Forced, decision})
	}

	t.Render()
}

// Summary renders the end-of-batch table: per-file outcome plus the
// aggregate counts from spec.md §4.H point 5.
func Summary(w io.Writer, summary batch.Summary) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"File", "Result", "Detail"})

	for _, r := range summary.Results {
		result := successColor.Sprint("ok")
		detail := r.Outcome.Plan.TransferMode.String()
		if r.Outcome.Action == planner.RunMkvmerge {
			detail = "muxed"
		}
		if r.Err != nil {
			result = errorColor.Sprint("failed")
			detail = r.Err.Error()
		}
		t.AppendRow(table.Row{r.Job.RelPath, result, detail})
	}

	t.Render()
	fmt.Fprintln(w)
	infoColor.Fprintf(w, "Processed %d, skipped %d, failed %d\n", summary.OK, summary.Skipped, summary.Failed)
}
