package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	apiclient "github.com/donaldgifford/print-price-matrix/internal/api/client"
)

func quotaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "quota",
		Short: "Show today's vendor call budget",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q, err := newClient().GetQuota(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(cmd.OutOrStdout(), q)
			}
			return printQuota(cmd.OutOrStdout(), q)
		},
	}
}

func printQuota(w io.Writer, q *apiclient.Quota) error {
	if !q.Limited {
		_, err := fmt.Fprintf(w, "No daily budget configured (%d calls today).\n", q.DailyUsed)
		return err
	}
	tw := newTabWriter(w)
	tw.writef("Used:\t%d / %d\n", q.DailyUsed, q.DailyLimit)
	tw.writef("Remaining:\t%d\n", q.Remaining)
	tw.writef("Resets:\t%s (in %s)\n",
		q.ResetAt.Local().Format(time.DateTime), time.Until(q.ResetAt).Round(time.Minute))
	return tw.finish()
}

func stateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Show server status: current job, run history and mapping assist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := newClient().GetSystemState(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(cmd.OutOrStdout(), st)
			}
			return printSystemState(cmd.OutOrStdout(), st)
		},
	}
}

func printSystemState(w io.Writer, st *apiclient.SystemState) error {
	tw := newTabWriter(w)
	if j := st.CurrentJob; j != nil {
		tw.writef("Job:\t%s %s (%d/%d)\n", j.JobID, j.State, j.Processed, j.TotalCombinations)
	} else {
		tw.writef("Job:\tnone started\n")
	}
	tw.writef("Run history:\t%s\n", enabled(st.HistoryEnabled))
	tw.writef("Mapping assist:\t%s\n", enabled(st.AssistEnabled))
	for _, p := range st.AssistProviders {
		status := "ok"
		if p.Exhausted {
			status = "exhausted"
		}
		tw.writef("  %s:\t%d requests, %d errors, %s\n", p.Name, p.Requests, p.Errors, status)
	}
	return tw.finish()
}

func enabled(b bool) string {
	if b {
		return "enabled"
	}
	return "disabled"
}
