package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/donaldgifford/print-price-matrix/internal/catalog"
	"github.com/donaldgifford/print-price-matrix/internal/extraction"
	domain "github.com/donaldgifford/print-price-matrix/pkg/types"
)

var (
	runAnalysis   string
	runOutputDir  string
	runExclude    []string
	runExcludeIDs []string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Extract one product's price matrix locally",
	Long: "Loads a product analysis file, prices every option combination, and writes\n" +
		"the raw and formatted CSVs under the output directory. No server or\n" +
		"database is needed; the config file is optional.",
	Example: `  price-matrix run --analysis business-cards.json
  price-matrix run --analysis flyers.json --exclude Coating --exclude-value Paper=12,13`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runAnalysis, "analysis", "", "product analysis JSON file (required)")
	runCmd.Flags().StringVar(&runOutputDir, "output-dir", "", "output directory (default from config)")
	runCmd.Flags().StringSliceVar(&runExclude, "exclude", nil, "option names to leave out")
	runCmd.Flags().StringArrayVar(&runExcludeIDs, "exclude-value", nil, "option=id[,id...] values to leave out")
	cobra.CheckErr(runCmd.MarkFlagRequired("analysis"))

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(true)
	if err != nil {
		return err
	}
	if runOutputDir != "" {
		cfg.Extraction.OutputDir = runOutputDir
	}

	analysis, err := catalog.Load(runAnalysis)
	if err != nil {
		return err
	}

	exclusions, err := catalog.ParseExclusions(runExclude, runExcludeIDs)
	if err != nil {
		return err
	}

	ctx, cancel := exitOnSignal()
	defer cancel()

	advisor, closeAdvisor, err := newAdvisor(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeAdvisor()

	broadcaster := extraction.NewBroadcaster(cfg.Extraction.SubscriberBuffer)
	opts := []extraction.ManagerOption{
		extraction.WithBroadcaster(broadcaster),
		extraction.WithOutputDir(cfg.Extraction.OutputDir),
		extraction.WithBaseContext(ctx),
		extraction.WithNotifier(newNotifier(cfg, logger)),
		extraction.WithManagerLogger(logger),
	}
	if advisor != nil {
		opts = append(opts, extraction.WithMappingAdvisor(advisor))
	}
	manager := extraction.NewManager(newController(cfg, newPricer(cfg, logger), logger), opts...)

	go extraction.LogProgress(ctx, broadcaster, logger)

	job, err := manager.Start(ctx, extraction.StartRequest{
		Analysis:   analysis,
		Exclusions: exclusions,
	})
	if err != nil {
		return err
	}

	<-job.Done()
	manager.Wait()

	return printSummary(cmd.OutOrStdout(), job.Summary())
}

func printSummary(w io.Writer, s *domain.ExtractionSummary) error {
	if s == nil {
		return fmt.Errorf("extraction finished without a summary")
	}

	_, err := fmt.Fprintf(w,
		"%s: %s, %d/%d combinations priced (%.1f%%), %d errors, %d suspicious\n",
		s.ProductName, s.State, s.TotalExtracted, s.TotalCombinations,
		s.SuccessRate, s.ErrorCount, s.SuspiciousCount,
	)
	if err != nil {
		return err
	}
	if s.RawPath != "" {
		if _, err := fmt.Fprintf(w, "raw:       %s\nformatted: %s\n", s.RawPath, s.PivotPath); err != nil {
			return err
		}
	}
	if s.State == domain.JobAborted {
		return fmt.Errorf("extraction aborted: %s", s.Error)
	}
	return nil
}
