// Package aggregate collects per-combination price results and shapes them
// into a raw table and a pivoted (options × quantity) table.
package aggregate

import (
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	domain "github.com/donaldgifford/print-price-matrix/pkg/types"
)

// NotAvailable fills cells with no value.
const NotAvailable = "N/A"

// Fixed raw table columns.
const (
	ColCombinationID = "combination_id"
	ColProductName   = "product_name"
	ColPrice         = "price"
	ColTotalPrice    = "total_price"
	ColUnitPrice     = "unit_price"
	ColQuantity      = "qty_pieces"
	ColTurnaround    = "turnaround_days"
	ColTimestamp     = "timestamp"
	ColNotes         = "notes"

	idSuffix = "_id"
)

var metaColumns = []string{
	ColCombinationID, ColProductName, ColPrice, ColTotalPrice, ColUnitPrice,
	ColQuantity, ColTurnaround, ColTimestamp, ColNotes,
}

// Table is a rectangular string table.
type Table struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// Tables holds both output shapes. Pivoted is false when pivoting was skipped
// and Pivot is a copy of Raw.
type Tables struct {
	Raw     Table `json:"raw"`
	Pivot   Table `json:"pivot"`
	Pivoted bool  `json:"pivoted"`
}

// Collector is the append-only result set of one extraction run.
type Collector struct {
	mu      sync.RWMutex
	results []domain.PriceResult
}

// NewCollector creates an empty Collector sized for total results.
func NewCollector(total int) *Collector {
	return &Collector{results: make([]domain.PriceResult, 0, max(total, 0))}
}

// Add appends a result.
func (c *Collector) Add(r domain.PriceResult) {
	c.mu.Lock()
	c.results = append(c.results, r)
	c.mu.Unlock()
}

// Len returns the number of results collected.
func (c *Collector) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.results)
}

// Results returns a copy of the collected results.
func (c *Collector) Results() []domain.PriceResult {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.results)
}

// Counts returns extracted, failed and suspicious totals.
func (c *Collector) Counts() (extracted, failed, suspicious int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for i := range c.results {
		switch {
		case !c.results[i].Success:
			failed++
		case c.results[i].Suspicious:
			extracted++
			suspicious++
		default:
			extracted++
		}
	}
	return extracted, failed, suspicious
}

// Build shapes results into both tables. optionNames fixes the option column
// order.
func Build(productName string, optionNames []string, results []domain.PriceResult) Tables {
	raw := BuildRaw(productName, optionNames, results)
	pivot, ok := BuildPivot(raw)
	if !ok {
		return Tables{Raw: raw, Pivot: raw.clone()}
	}
	return Tables{Raw: raw, Pivot: pivot, Pivoted: true}
}

// BuildRaw renders one row per result. Failed rows carry N/A prices and the
// error text in notes.
func BuildRaw(productName string, optionNames []string, results []domain.PriceResult) Table {
	cols := make([]string, 0, len(metaColumns)+2*len(optionNames))
	cols = append(cols, ColCombinationID, ColProductName)
	cols = append(cols, optionNames...)
	cols = append(cols, ColPrice, ColTotalPrice, ColUnitPrice, ColQuantity, ColTurnaround)
	for _, name := range optionNames {
		cols = append(cols, name+idSuffix)
	}
	cols = append(cols, ColTimestamp, ColNotes)

	rows := make([][]string, 0, len(results))
	for i := range results {
		r := &results[i]
		labels, ids := selectionColumns(optionNames, r.Selections)

		name := r.ProductName
		if name == "" {
			name = productName
		}

		row := make([]string, 0, len(cols))
		row = append(row, strconv.Itoa(r.CombinationID), name)
		row = append(row, labels...)
		if r.Success {
			row = append(row,
				dollars(r.Price), dollars(r.TotalPrice), orNA(r.UnitPrice),
				orNA(r.Quantity), orNA(r.Turnaround),
			)
		} else {
			row = append(row, NotAvailable, NotAvailable, NotAvailable, NotAvailable, NotAvailable)
		}
		row = append(row, ids...)
		row = append(row, r.Timestamp.Format(time.RFC3339), notes(r))
		rows = append(rows, row)
	}

	return Table{Columns: cols, Rows: rows}
}

// PriceCell returns the pivot cell value for a result.
func PriceCell(r domain.PriceResult) string {
	if !r.Success {
		return NotAvailable
	}
	return dollars(r.Price)
}

func selectionColumns(optionNames []string, sels []domain.Selection) (labels, ids []string) {
	labels = make([]string, len(optionNames))
	ids = make([]string, len(optionNames))
	for i, name := range optionNames {
		labels[i], ids[i] = NotAvailable, NotAvailable
		for _, s := range sels {
			if s.Option == name {
				labels[i], ids[i] = s.Value.Label, s.Value.ID
				break
			}
		}
	}
	return labels, ids
}

func notes(r *domain.PriceResult) string {
	if !r.Success {
		return r.Error
	}
	var parts []string
	if r.Suspicious {
		parts = append(parts, "suspicious price")
	}
	if r.Repaired {
		parts = append(parts, "payload repaired")
	}
	if len(parts) == 0 {
		return "ok"
	}
	return strings.Join(parts, "; ")
}

func dollars(v string) string {
	if v == "" || v == NotAvailable {
		return NotAvailable
	}
	if strings.HasPrefix(v, "$") {
		return v
	}
	return "$" + v
}

func orNA(v string) string {
	if v == "" {
		return NotAvailable
	}
	return v
}

func (t Table) clone() Table {
	rows := make([][]string, len(t.Rows))
	for i := range t.Rows {
		rows[i] = slices.Clone(t.Rows[i])
	}
	return Table{Columns: slices.Clone(t.Columns), Rows: rows}
}
