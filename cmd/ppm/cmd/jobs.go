package cmd

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	apiclient "github.com/donaldgifford/print-price-matrix/internal/api/client"
)

func jobsCmd() *cobra.Command {
	jobsRoot := &cobra.Command{
		Use:   "jobs",
		Short: "View maintenance job history",
		Long: "View the execution history of scheduled maintenance jobs such as\n" +
			"retention. Each run records status, rows affected, and any error.",
	}

	jobsRoot.AddCommand(jobsHistoryCmd())
	jobsRoot.AddCommand(jobsRunCmd())
	return jobsRoot
}

func jobsHistoryCmd() *cobra.Command {
	var limit int

	c := &cobra.Command{
		Use:   "history <job_name>",
		Short: "Show run history for a job",
		Args:  cobra.ExactArgs(1),
		Example: `  ppm jobs history retention
  ppm jobs history retention --limit 5 --output json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			runs, err := newClient().GetJobHistory(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(cmd.OutOrStdout(), runs)
			}
			if len(runs) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No runs found for job %q.\n", args[0])
				return nil
			}
			return printJobRunsTable(cmd.OutOrStdout(), runs)
		},
	}

	c.Flags().IntVar(&limit, "limit", 0, "max runs to return (server default 20)")
	return c
}

func jobsRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "run <job_name>",
		Short:     "Run a maintenance job now",
		Long:      "Runs a scheduled maintenance job immediately and waits for it.\nOnly retention can be triggered.",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"retention"},
		Example:   `  ppm jobs run retention`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := newClient().RunRetention(cmd.Context())
			if err != nil {
				var apiErr *apiclient.APIError
				switch {
				case apiclient.IsConflict(err):
					return errors.New("retention is already running")
				case errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound:
					return errors.New("retention is not enabled on this server")
				}
				return err
			}
			if jsonOutput() {
				return outputJSON(cmd.OutOrStdout(), res)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Retention finished: %d runs pruned.\n", res.RunsPruned)
			return nil
		},
	}
}
