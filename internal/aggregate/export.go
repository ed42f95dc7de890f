package aggregate

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

const maxSafeNameLen = 50

// Paths locates the exported CSV files.
type Paths struct {
	Raw   string `json:"raw"`
	Pivot string `json:"pivot"`
}

// WriteCSV writes t as CSV with a header row.
func WriteCSV(w io.Writer, t Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("writing rows: %w", err)
	}
	return nil
}

// SafeName turns a product name into a file name stem: punctuation removed,
// runs of spaces and dashes collapsed to "_", at most 50 characters.
func SafeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}

	var out strings.Builder
	sep := false
	for _, r := range strings.TrimSpace(b.String()) {
		if r == '-' || unicode.IsSpace(r) {
			sep = true
			continue
		}
		if sep {
			out.WriteByte('_')
			sep = false
		}
		out.WriteRune(r)
	}

	runes := []rune(out.String())
	if len(runes) > maxSafeNameLen {
		runes = runes[:maxSafeNameLen]
	}
	if len(runes) == 0 {
		return "product"
	}
	return string(runes)
}

// FileNames returns the raw and pivot CSV file names for a product.
func FileNames(productName string) (raw, pivot string) {
	safe := SafeName(productName)
	return safe + "_Raw_Prices.csv", safe + "_Formatted_Prices.csv"
}

// Export writes both tables under dir/jobID/ and returns their paths.
func Export(dir, jobID, productName string, tables Tables) (Paths, error) {
	jobDir := filepath.Join(dir, jobID)
	if err := os.MkdirAll(jobDir, 0o750); err != nil {
		return Paths{}, fmt.Errorf("creating output dir: %w", err)
	}

	rawName, pivotName := FileNames(productName)
	paths := Paths{
		Raw:   filepath.Join(jobDir, rawName),
		Pivot: filepath.Join(jobDir, pivotName),
	}

	if err := writeFile(paths.Raw, tables.Raw); err != nil {
		return Paths{}, err
	}
	if err := writeFile(paths.Pivot, tables.Pivot); err != nil {
		return Paths{}, err
	}
	return paths, nil
}

func writeFile(path string, t Table) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Base(path), err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing %s: %w", filepath.Base(path), cerr)
		}
	}()

	if err := WriteCSV(f, t); err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	return nil
}
