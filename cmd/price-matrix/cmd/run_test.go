package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/donaldgifford/print-price-matrix/pkg/types"
)

func TestPrintSummary(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		summary     *domain.ExtractionSummary
		wantOut     []string
		wantErr     string
		wantNoPaths bool
	}{
		{
			name: "completed with exports",
			summary: &domain.ExtractionSummary{
				ProductName:       "Flyers",
				State:             domain.JobCompleted,
				TotalCombinations: 4,
				TotalExtracted:    3,
				ErrorCount:        1,
				SuccessRate:       75,
				RawPath:           "out/j1/Flyers_Raw_Prices.csv",
				PivotPath:         "out/j1/Flyers_Formatted_Prices.csv",
			},
			wantOut: []string{
				"Flyers: completed, 3/4 combinations priced (75.0%), 1 errors, 0 suspicious",
				"raw:       out/j1/Flyers_Raw_Prices.csv",
				"formatted: out/j1/Flyers_Formatted_Prices.csv",
			},
		},
		{
			name: "aborted",
			summary: &domain.ExtractionSummary{
				ProductName: "Flyers",
				State:       domain.JobAborted,
				Error:       "daily limit reached",
			},
			wantOut:     []string{"Flyers: aborted"},
			wantErr:     "extraction aborted: daily limit reached",
			wantNoPaths: true,
		},
		{
			name:    "missing summary",
			wantErr: "without a summary",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			err := printSummary(&buf, tt.summary)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			for _, want := range tt.wantOut {
				assert.Contains(t, buf.String(), want)
			}
			if tt.wantNoPaths {
				assert.NotContains(t, buf.String(), "raw:")
			}
		})
	}
}

func TestLoadEnv_MissingFileIgnored(t *testing.T) {
	t.Parallel()

	require.NoError(t, loadEnv(""))
	require.NoError(t, loadEnv(t.TempDir()+"/missing.env"))
}

func TestVersionCommand(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	c := versionCommand()
	c.SetOut(&buf)
	require.NoError(t, c.Execute())
	assert.Equal(t, "price-matrix dev\n", buf.String())
}
