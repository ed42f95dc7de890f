package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	apiclient "github.com/donaldgifford/print-price-matrix/internal/api/client"
	"github.com/donaldgifford/print-price-matrix/internal/catalog"
	domain "github.com/donaldgifford/print-price-matrix/pkg/types"
)

func startCmd() *cobra.Command {
	var (
		analysisPath string
		exclude      []string
		excludeIDs   []string
		wait         bool
		interval     time.Duration
	)

	c := &cobra.Command{
		Use:   "start",
		Short: "Start an extraction job",
		Long: "Uploads a product analysis and starts pricing every option combination.\n" +
			"Only one job runs at a time; starting while one is active fails.",
		Example: `  ppm start --analysis business-cards.json
  ppm start --analysis flyers.json --exclude Coating --exclude-value Paper=12,13 --wait`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			analysis, err := catalog.Load(analysisPath)
			if err != nil {
				return err
			}
			ex, err := catalog.ParseExclusions(exclude, excludeIDs)
			if err != nil {
				return err
			}

			cl := newClient()
			st, err := cl.StartExtraction(cmd.Context(), &apiclient.StartRequest{
				Analysis:          analysis,
				ExcludeOptions:    ex.Options,
				ExcludeSuboptions: ex.Values,
			})
			if err != nil {
				if apiclient.IsConflict(err) {
					return errors.New("an extraction is already running; check `ppm status`")
				}
				return err
			}

			if wait {
				st, err = waitForJob(cmd.Context(), cl, st.JobID, interval, func(s *domain.JobStatus) {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %d/%d\n", s.State, s.Processed, s.TotalCombinations)
				})
				if err != nil {
					return err
				}
			}

			if jsonOutput() {
				return outputJSON(cmd.OutOrStdout(), st)
			}
			return printJobStatus(cmd.OutOrStdout(), st)
		},
	}

	c.Flags().StringVar(&analysisPath, "analysis", "", "product analysis JSON file (required)")
	c.Flags().StringSliceVar(&exclude, "exclude", nil, "option names to leave out")
	c.Flags().StringArrayVar(&excludeIDs, "exclude-value", nil, "option=id[,id...] values to leave out")
	c.Flags().BoolVar(&wait, "wait", false, "poll until the job finishes")
	c.Flags().DurationVar(&interval, "interval", 2*time.Second, "poll interval with --wait")
	cobra.CheckErr(c.MarkFlagRequired("analysis"))

	return c
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status [job_id]",
		Short: "Show a job's status (the current job by default)",
		Args:  cobra.MaximumNArgs(1),
		Example: `  ppm status
  ppm status 3f0c6c1e-4f8e-4b7a-9b55-0c3d2c1f8a10 --output json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cl := newClient()

			var (
				st  *domain.JobStatus
				err error
			)
			if len(args) == 1 {
				st, err = cl.GetExtraction(cmd.Context(), args[0])
			} else {
				st, err = cl.CurrentExtraction(cmd.Context())
			}
			if err != nil {
				return err
			}

			if jsonOutput() {
				return outputJSON(cmd.OutOrStdout(), st)
			}
			return printJobStatus(cmd.OutOrStdout(), st)
		},
	}
}

func pauseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pause <job_id>",
		Short: "Pause a running job after its current combination",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := newClient().PauseExtraction(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(cmd.OutOrStdout(), st)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Pause requested for job %s (%d/%d).\n",
				st.JobID, st.Processed, st.TotalCombinations)
			return nil
		},
	}
}

func resumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resume <job_id>",
		Short: "Resume a paused job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := newClient().ResumeExtraction(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(cmd.OutOrStdout(), st)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Job %s resumed (%d/%d).\n",
				st.JobID, st.Processed, st.TotalCombinations)
			return nil
		},
	}
}

func tablesCmd() *cobra.Command {
	var kind string

	c := &cobra.Command{
		Use:   "tables <job_id>",
		Short: "Print a job's raw or formatted price table",
		Long:  "Prints the table built so far. While the job runs the table is partial.",
		Args:  cobra.ExactArgs(1),
		Example: `  ppm tables <job_id>
  ppm tables <job_id> --kind raw --output json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := newClient().ExtractionTables(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(cmd.OutOrStdout(), t)
			}

			table := t.Pivot
			if kind == "raw" {
				table = t.Raw
			}
			if !t.Complete {
				fmt.Fprintf(cmd.ErrOrStderr(), "Job is %s; table is partial.\n", t.State)
			}
			return printTable(cmd.OutOrStdout(), table)
		},
	}

	c.Flags().StringVar(&kind, "kind", "formatted", "table shape (raw, formatted)")
	return c
}

func downloadCmd() *cobra.Command {
	var (
		kind string
		dir  string
	)

	c := &cobra.Command{
		Use:   "download <job_id>",
		Short: "Download a finished job's CSV",
		Args:  cobra.ExactArgs(1),
		Example: `  ppm download <job_id>
  ppm download <job_id> --kind raw --dir ./exports`,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, name, err := newClient().DownloadExtraction(cmd.Context(), args[0], kind)
			if err != nil {
				if apiclient.IsConflict(err) {
					return errors.New("job has not finished yet")
				}
				return err
			}

			if err := os.MkdirAll(dir, 0o750); err != nil {
				return fmt.Errorf("creating output dir: %w", err)
			}
			path := filepath.Join(dir, filepath.Base(name))
			if err := os.WriteFile(path, data, 0o600); err != nil {
				return fmt.Errorf("writing %s: %w", path, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d bytes).\n", path, len(data))
			return nil
		},
	}

	c.Flags().StringVar(&kind, "kind", "formatted", "table shape (raw, formatted)")
	c.Flags().StringVar(&dir, "dir", ".", "directory to write the CSV into")
	return c
}

// waitForJob polls a job until it reaches a terminal state.
func waitForJob(
	ctx context.Context,
	cl *apiclient.Client,
	id string,
	interval time.Duration,
	onTick func(*domain.JobStatus),
) (*domain.JobStatus, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		st, err := cl.GetExtraction(ctx, id)
		if err != nil {
			return nil, err
		}
		if st.State.Terminal() {
			return st, nil
		}
		if onTick != nil {
			onTick(st)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
