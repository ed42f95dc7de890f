package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/donaldgifford/print-price-matrix/internal/aggregate"
	domain "github.com/donaldgifford/print-price-matrix/pkg/types"
)

const timeLayout = "2006-01-02 15:04:05"

// tabWriter wraps tabwriter with error tracking.
type tabWriter struct {
	*tabwriter.Writer
	err error
}

func newTabWriter(w io.Writer) *tabWriter {
	return &tabWriter{Writer: tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)}
}

func (tw *tabWriter) writef(format string, args ...any) {
	if tw.err != nil {
		return
	}
	_, tw.err = fmt.Fprintf(tw.Writer, format, args...)
}

func (tw *tabWriter) finish() error {
	if tw.err != nil {
		return tw.err
	}
	return tw.Flush()
}

func printJobStatus(w io.Writer, st *domain.JobStatus) error {
	tw := newTabWriter(w)
	tw.writef("Job:\t%s\n", st.JobID)
	tw.writef("Product:\t%s\n", st.ProductName)
	tw.writef("State:\t%s\n", st.State)
	tw.writef("Progress:\t%d/%d\n", st.Processed, st.TotalCombinations)
	tw.writef("Errors:\t%d\n", st.ErrorCount)
	if st.PauseRequested || st.Paused {
		tw.writef("Paused:\t%v (requested %v)\n", st.Paused, st.PauseRequested)
	}
	if st.LastMessage != "" {
		tw.writef("Last:\t%s\n", st.LastMessage)
	}
	tw.writef("Started:\t%s\n", st.StartedAt.Format(timeLayout))
	if s := st.Summary; s != nil {
		tw.writef("Success:\t%.1f%%\n", s.SuccessRate)
		tw.writef("Suspicious:\t%d\n", s.SuspiciousCount)
		if s.RawPath != "" {
			tw.writef("Raw CSV:\t%s\n", s.RawPath)
			tw.writef("Formatted CSV:\t%s\n", s.PivotPath)
		}
		if s.Error != "" {
			tw.writef("Error:\t%s\n", s.Error)
		}
	}
	return tw.finish()
}

func printTable(w io.Writer, t aggregate.Table) error {
	tw := newTabWriter(w)
	tw.writef("%s\n", strings.Join(t.Columns, "\t"))
	for _, row := range t.Rows {
		tw.writef("%s\n", strings.Join(row, "\t"))
	}
	return tw.finish()
}

func printRunsTable(w io.Writer, runs []domain.ExtractionSummary) error {
	tw := newTabWriter(w)
	tw.writef("JOB\tPRODUCT\tSTATE\tPRICED\tERRORS\tSUCCESS\tSTARTED\n")
	for i := range runs {
		r := &runs[i]
		tw.writef("%s\t%s\t%s\t%d/%d\t%d\t%.1f%%\t%s\n",
			r.JobID,
			truncate(r.ProductName, 30),
			r.State,
			r.TotalExtracted,
			r.TotalCombinations,
			r.ErrorCount,
			r.SuccessRate,
			r.StartedAt.Format(timeLayout),
		)
	}
	return tw.finish()
}

func printRunDetail(w io.Writer, r *domain.ExtractionSummary) error {
	tw := newTabWriter(w)
	tw.writef("Job:\t%s\n", r.JobID)
	tw.writef("Product:\t%s (%s)\n", r.ProductName, r.ProductID)
	tw.writef("State:\t%s\n", r.State)
	tw.writef("Priced:\t%d/%d (%.1f%%)\n", r.TotalExtracted, r.TotalCombinations, r.SuccessRate)
	tw.writef("Errors:\t%d\n", r.ErrorCount)
	tw.writef("Suspicious:\t%d\n", r.SuspiciousCount)
	tw.writef("Options:\t%s\n", strings.Join(r.OptionsUsed, ", "))
	if len(r.OptionsExcluded) > 0 {
		tw.writef("Excluded:\t%s\n", strings.Join(r.OptionsExcluded, ", "))
	}
	tw.writef("Started:\t%s\n", r.StartedAt.Format(timeLayout))
	if r.CompletedAt != nil {
		tw.writef("Completed:\t%s\n", r.CompletedAt.Format(timeLayout))
	}
	if r.Error != "" {
		tw.writef("Error:\t%s\n", r.Error)
	}
	return tw.finish()
}

func printResultsTable(w io.Writer, results []domain.PriceResult) error {
	tw := newTabWriter(w)
	tw.writef("#\tSELECTIONS\tPRICE\tQTY\tDAYS\tFLAGS\n")
	for i := range results {
		r := &results[i]
		parts := make([]string, 0, len(r.Selections))
		for _, s := range r.Selections {
			parts = append(parts, s.Option+"="+s.Value.Label)
		}
		tw.writef("%d\t%s\t%s\t%s\t%s\t%s\n",
			r.CombinationID,
			truncate(strings.Join(parts, ", "), 60),
			aggregate.PriceCell(*r),
			r.Quantity,
			r.Turnaround,
			resultFlags(r),
		)
	}
	return tw.finish()
}

func resultFlags(r *domain.PriceResult) string {
	var flags []string
	if !r.Success {
		flags = append(flags, "error")
	}
	if r.Suspicious {
		flags = append(flags, "suspicious")
	}
	if r.Repaired {
		flags = append(flags, "repaired")
	}
	if len(flags) == 0 {
		return "-"
	}
	return strings.Join(flags, ",")
}

func printJobRunsTable(w io.Writer, runs []domain.JobRun) error {
	tw := newTabWriter(w)
	tw.writef("JOB\tSTATUS\tSTARTED\tCOMPLETED\tROWS\tERROR\n")
	for i := range runs {
		r := &runs[i]
		completed := "-"
		if r.CompletedAt != nil {
			completed = r.CompletedAt.Format(timeLayout)
		}
		rows := "-"
		if r.RowsAffected != nil {
			rows = fmt.Sprintf("%d", *r.RowsAffected)
		}
		tw.writef("%s\t%s\t%s\t%s\t%s\t%s\n",
			r.JobName,
			r.Status,
			r.StartedAt.Format(timeLayout),
			completed,
			rows,
			truncate(r.ErrorText, 40),
		)
	}
	return tw.finish()
}

func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
