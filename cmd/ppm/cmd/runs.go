package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	apiclient "github.com/donaldgifford/print-price-matrix/internal/api/client"
)

func runsCmd() *cobra.Command {
	runsRoot := &cobra.Command{
		Use:   "runs",
		Short: "Browse persisted extraction runs",
		Long: "Query finished extraction runs stored by the server. Requires the\n" +
			"server to be configured with a database.",
	}

	runsRoot.AddCommand(
		runsListCmd(),
		runsGetCmd(),
		runsResultsCmd(),
	)

	return runsRoot
}

func runsListCmd() *cobra.Command {
	var (
		f     apiclient.RunFilter
		since time.Duration
	)

	c := &cobra.Command{
		Use:   "list",
		Short: "List runs, newest first",
		Example: `  ppm runs list
  ppm runs list --product-id 42 --state completed --since 168h`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if since > 0 {
				f.Since = time.Now().Add(-since)
			}

			list, err := newClient().ListRuns(cmd.Context(), &f)
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(cmd.OutOrStdout(), list)
			}
			if len(list.Runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs found.")
				return nil
			}
			if err := printRunsTable(cmd.OutOrStdout(), list.Runs); err != nil {
				return err
			}
			if list.Total > len(list.Runs) {
				fmt.Fprintf(cmd.OutOrStdout(), "\nShowing %d-%d of %d.\n",
					list.Offset+1, list.Offset+len(list.Runs), list.Total)
			}
			return nil
		},
	}

	c.Flags().StringVar(&f.ProductID, "product-id", "", "filter by vendor product id")
	c.Flags().StringVar(&f.ProductName, "product", "", "filter by product name substring")
	c.Flags().StringVar(&f.State, "state", "", "filter by final state (completed, aborted)")
	c.Flags().DurationVar(&since, "since", 0, "only runs started within this duration")
	c.Flags().IntVar(&f.Limit, "limit", 0, "max runs to return")
	c.Flags().IntVar(&f.Offset, "offset", 0, "pagination offset")
	c.Flags().StringVar(&f.OrderBy, "order-by", "", "sort field (started_at, success_rate, total_combinations)")
	return c
}

func runsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <job_id>",
		Short: "Show a run summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := newClient().GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(cmd.OutOrStdout(), run)
			}
			return printRunDetail(cmd.OutOrStdout(), run)
		},
	}
}

func runsResultsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "results <job_id>",
		Short: "Show a run's per-combination results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			results, err := newClient().ListRunResults(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(cmd.OutOrStdout(), results)
			}
			if len(results) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No results recorded.")
				return nil
			}
			return printResultsTable(cmd.OutOrStdout(), results)
		},
	}
}
