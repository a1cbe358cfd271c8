package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/joestump/sitepatch/internal/runner"
	"github.com/joestump/sitepatch/internal/store"
)

func statusLabel(status string, dryRun bool) string {
	switch status {
	case store.StatusUpdated:
		if dryRun {
			return color.New(color.FgCyan).Sprint("WOULD UPDATE")
		}
		return color.New(color.FgGreen).Sprint("UPDATED     ")
	case store.StatusUnchanged:
		return color.New(color.FgBlue).Sprint("UNCHANGED   ")
	}
	return color.New(color.FgRed).Sprint("ERROR       ")
}

func printApplySummary(w io.Writer, sum *runner.Summary, dryRun, verbose bool) {
	for _, f := range sum.Files {
		if !verbose && !needsAttention(f) {
			continue
		}
		fmt.Fprintf(w, "  %s %s", statusLabel(f.Status, dryRun), f.Path)
		switch {
		case f.Err != nil:
			fmt.Fprintf(w, ": %v", f.Err)
		case len(f.Report.Applied) > 0:
			fmt.Fprintf(w, " (%d applied)", len(f.Report.Applied))
		}
		fmt.Fprintln(w)
		if len(f.Unplaced) > 0 {
			fmt.Fprintf(w, "      %s %v\n", color.New(color.FgYellow).Sprint("anchor not found:"), f.Unplaced)
		}
		if len(f.Report.Blocked) > 0 {
			fmt.Fprintf(w, "      %s %v\n", color.New(color.FgYellow).Sprint("blocked:"), f.Report.Blocked)
		}
		if f.Diff != "" {
			fmt.Fprint(w, f.Diff)
		}
	}

	verb := "updated"
	if dryRun {
		verb = "would update"
	}
	fmt.Fprintf(w, "\n%d files: %s %s, %d unchanged, %s\n",
		len(sum.Files),
		color.New(color.FgGreen).Sprint(sum.Updated), verb,
		sum.Unchanged,
		errored(sum.Errored))
	fmt.Fprintf(w, "fragments: %d applied, %d skipped, %d anchor not found, %d blocked\n",
		sum.Applied, sum.Skipped, sum.AnchorNotFound, sum.Blocked)
}

// needsAttention reports whether f is listed without --verbose.
func needsAttention(f runner.FileResult) bool {
	return f.Status != store.StatusUnchanged || len(f.Unplaced) > 0 || len(f.Report.Blocked) > 0
}

func errored(n int) string {
	s := fmt.Sprintf("%d errored", n)
	if n > 0 {
		return color.New(color.FgRed).Sprint(s)
	}
	return s
}
