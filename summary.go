package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"

	"truthbyte/inspect"
)

const rule = "========================================"

// printSummary writes the human readable verdict of a report.
func printSummary(w io.Writer, r inspect.Report) {
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "TruthByte Diagnostic Summary")
	fmt.Fprintf(w, "Health Score : %.1f / 100.0\n", r.HealthScore)
	fmt.Fprintf(w, "Tested/Valid : %s / %s\n", humanize.IBytes(r.TestedBytes), humanize.IBytes(r.ValidBytes))
	fmt.Fprintf(w, "Total Target : %s (%s bytes)\n", humanize.IBytes(r.TotalCapacity), humanize.Comma(int64(r.TotalCapacity)))
	fmt.Fprintf(w, "Errors       : %d\n", r.ErrorCount)
	fmt.Fprintf(w, "Status       : %s\n", r.Status)
	fmt.Fprintf(w, "Conclusion   : %s\n", r.Conclusion)
	fmt.Fprintln(w, rule)
}

// printOutcome writes the result of a full run, as JSON when asJSON is set.
func printOutcome(w io.Writer, out outcome, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	switch {
	case out.Cancelled && out.VerifyOnly:
		checked := uint64(0)
		if out.Report != nil {
			checked = out.Report.TestedBytes
		}
		fmt.Fprintf(w, "Verification cancelled after checking %s.\n", humanize.IBytes(checked))
		if out.Report != nil {
			printSummary(w, *out.Report)
		}
	case out.Cancelled:
		fmt.Fprintf(w, "Diagnosis cancelled after writing %s.\n", humanize.IBytes(out.Written))
		if out.Report != nil {
			printSummary(w, *out.Report)
		}
	case out.Report != nil:
		if out.ProbeOnly {
			fmt.Fprintln(w, "Quick probe found an anomaly; full scan skipped.")
		}
		printSummary(w, *out.Report)
	}
	return nil
}

// exitCode maps a run to the process status: 0 healthy, 1 anomaly or user
// abort, 2 failure.
func exitCode(out outcome, err error) int {
	switch {
	case err != nil:
		return exitFailure
	case out.Cancelled:
		return exitAnomaly
	case out.Report == nil:
		return exitFailure
	case !out.ProbeOnly && !out.VerifyOnly && out.Written == 0:
		return exitFailure
	case out.Report.Status == inspect.Healthy:
		return exitOK
	default:
		return exitAnomaly
	}
}

// formatProgress renders one status line for plain output.
func formatProgress(u inspect.ProgressUpdate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-6s", u.Phase)
	if u.TotalBytes > 0 {
		fmt.Fprintf(&b, " %5.1f%%", u.Percent)
	}
	done := u.BytesWritten
	if u.Phase == inspect.PhaseVerify {
		done = u.BytesVerified
	}
	fmt.Fprintf(&b, " %s", humanize.IBytes(done))
	if u.TotalBytes > 0 {
		fmt.Fprintf(&b, " / %s", humanize.IBytes(u.TotalBytes))
	}
	fmt.Fprintf(&b, " @ %.1f MB/s", u.SpeedMBps)
	return b.String()
}
