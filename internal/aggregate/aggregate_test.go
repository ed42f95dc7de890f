package aggregate_test

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/print-price-matrix/internal/aggregate"
	domain "github.com/donaldgifford/print-price-matrix/pkg/types"
)

var ts = time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

func sel(option, id, label string) domain.Selection {
	return domain.Selection{Option: option, Value: domain.OptionValue{ID: id, Label: label}}
}

func ok(id int, price string, sels ...domain.Selection) domain.PriceResult {
	return domain.PriceResult{
		CombinationID: id,
		Selections:    sels,
		Price:         price,
		TotalPrice:    price,
		UnitPrice:     "0.10",
		Quantity:      "25",
		Turnaround:    "3",
		Timestamp:     ts,
		Success:       true,
	}
}

func failed(id int, msg string, sels ...domain.Selection) domain.PriceResult {
	return domain.PriceResult{
		CombinationID: id,
		Selections:    sels,
		Timestamp:     ts,
		Error:         msg,
	}
}

func TestBuildRaw(t *testing.T) {
	t.Parallel()

	results := []domain.PriceResult{
		ok(1, "10.00", sel("Size", "1", "A"), sel("Quantity", "9", "25")),
		failed(2, "HTTP 400: nope", sel("Size", "1", "A"), sel("Quantity", "8", "50")),
	}

	raw := aggregate.BuildRaw("Business Cards", []string{"Size", "Quantity"}, results)

	assert.Equal(t, []string{
		"combination_id", "product_name", "Size", "Quantity",
		"price", "total_price", "unit_price", "qty_pieces", "turnaround_days",
		"Size_id", "Quantity_id", "timestamp", "notes",
	}, raw.Columns)
	require.Len(t, raw.Rows, 2)

	assert.Equal(t, []string{
		"1", "Business Cards", "A", "25",
		"$10.00", "$10.00", "0.10", "25", "3",
		"1", "9", "2026-05-04T12:00:00Z", "ok",
	}, raw.Rows[0])
	assert.Equal(t, []string{
		"2", "Business Cards", "A", "50",
		"N/A", "N/A", "N/A", "N/A", "N/A",
		"1", "8", "2026-05-04T12:00:00Z", "HTTP 400: nope",
	}, raw.Rows[1])
}

func TestBuildRaw_Notes(t *testing.T) {
	t.Parallel()

	r := ok(1, "20", sel("Size", "1", "A"))
	r.Suspicious = true
	r.Repaired = true

	raw := aggregate.BuildRaw("P", []string{"Size"}, []domain.PriceResult{r})
	assert.Equal(t, "suspicious price; payload repaired", raw.Rows[0][len(raw.Columns)-1])
}

func TestBuild_PivotRoundTrip(t *testing.T) {
	t.Parallel()

	results := []domain.PriceResult{
		ok(1, "10", sel("Size", "1", "A"), sel("Paper", "5", "X"), sel("Quantity", "7", "25")),
		ok(2, "18", sel("Size", "1", "A"), sel("Paper", "5", "X"), sel("Quantity", "8", "50")),
		ok(3, "12", sel("Size", "2", "B"), sel("Paper", "5", "X"), sel("Quantity", "7", "25")),
		failed(4, "boom", sel("Size", "2", "B"), sel("Paper", "5", "X"), sel("Quantity", "8", "50")),
	}

	tables := aggregate.Build("P", []string{"Size", "Paper", "Quantity"}, results)
	require.True(t, tables.Pivoted)

	assert.Equal(t, []string{"Size", "Paper", "25", "50"}, tables.Pivot.Columns)
	assert.Equal(t, [][]string{
		{"A", "X", "$10", "$18"},
		{"B", "X", "$12", "N/A"},
	}, tables.Pivot.Rows)
}

func TestBuild_PivotFillsGaps(t *testing.T) {
	t.Parallel()

	// B never gets a 50 row at all.
	results := []domain.PriceResult{
		ok(1, "10", sel("Size", "1", "A"), sel("Qty", "7", "25")),
		ok(2, "18", sel("Size", "1", "A"), sel("Qty", "8", "50")),
		ok(3, "12", sel("Size", "2", "B"), sel("Qty", "7", "25")),
	}

	tables := aggregate.Build("P", []string{"Size", "Qty"}, results)
	require.True(t, tables.Pivoted)
	assert.Equal(t, [][]string{
		{"A", "$10", "$18"},
		{"B", "$12", "N/A"},
	}, tables.Pivot.Rows)
	for _, row := range tables.Pivot.Rows {
		for _, cell := range row {
			assert.NotEmpty(t, cell)
		}
	}
}

func TestBuild_NoQuantityFallsBackToRaw(t *testing.T) {
	t.Parallel()

	results := []domain.PriceResult{
		ok(1, "10", sel("Size", "1", "A"), sel("Paper", "5", "X")),
	}

	tables := aggregate.Build("P", []string{"Size", "Paper"}, results)
	assert.False(t, tables.Pivoted)
	assert.Equal(t, tables.Raw, tables.Pivot)
}

func TestBuild_OnlyQuantityFallsBackToRaw(t *testing.T) {
	t.Parallel()

	results := []domain.PriceResult{
		ok(1, "10", sel("Quantity", "1", "25")),
	}

	tables := aggregate.Build("P", []string{"Quantity"}, results)
	assert.False(t, tables.Pivoted)
}

func TestQuantityColumn(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		columns []string
		want    string
		wantOK  bool
	}{
		{name: "quantity", columns: []string{"Size", "Quantity"}, want: "Quantity", wantOK: true},
		{name: "qty substring", columns: []string{"Box Qty", "Size"}, want: "Box Qty", wantOK: true},
		{name: "meta qty_pieces ignored", columns: []string{"qty_pieces", "Size"}},
		{name: "id columns ignored", columns: []string{"Quantity_id"}},
		{name: "first wins", columns: []string{"Quantity", "Qty"}, want: "Quantity", wantOK: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := aggregate.QuantityColumn(tt.columns)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCollector(t *testing.T) {
	t.Parallel()

	c := aggregate.NewCollector(10)

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r := ok(i+1, "5")
			switch i {
			case 0, 1:
				r.Success = false
			case 2:
				r.Suspicious = true
			}
			c.Add(r)
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, c.Len())
	extracted, failedN, suspicious := c.Counts()
	assert.Equal(t, 8, extracted)
	assert.Equal(t, 2, failedN)
	assert.Equal(t, 1, suspicious)
	assert.Len(t, c.Results(), 10)
}

func TestSafeName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{in: "Business Cards", want: "Business_Cards"},
		{in: "  Flyers & Brochures (Premium) ", want: "Flyers_Brochures_Premium"},
		{in: "Post-Cards -- 4x6", want: "Post_Cards_4x6"},
		{in: "!!!", want: "product"},
		{in: "Ünïcode Stickers", want: "Ünïcode_Stickers"},
		{
			in:   "A very long product name that definitely exceeds the fifty character limit",
			want: "A_very_long_product_name_that_definitely_exceeds_t",
		},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, aggregate.SafeName(tt.in))
		})
	}
}

func TestExport(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	results := []domain.PriceResult{
		ok(1, "10", sel("Size", "1", "A"), sel("Quantity", "7", "25")),
		ok(2, "18", sel("Size", "1", "A"), sel("Quantity", "8", "50")),
	}
	tables := aggregate.Build("Door Hangers", []string{"Size", "Quantity"}, results)

	paths, err := aggregate.Export(dir, "job-1", "Door Hangers", tables)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "job-1", "Door_Hangers_Raw_Prices.csv"), paths.Raw)
	assert.Equal(t, filepath.Join(dir, "job-1", "Door_Hangers_Formatted_Prices.csv"), paths.Pivot)

	data, err := os.ReadFile(paths.Pivot)
	require.NoError(t, err)
	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Size", "25", "50"},
		{"A", "$10", "$18"},
	}, records)

	data, err = os.ReadFile(paths.Raw)
	require.NoError(t, err)
	records, err = csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 3)
}
