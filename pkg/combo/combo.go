// Package combo filters a product's option catalog and enumerates the
// ordered Cartesian product of its option values.
package combo

import (
	"iter"
	"slices"

	domain "github.com/donaldgifford/print-price-matrix/pkg/types"
)

// FilterReport describes what exclusion filtering removed.
type FilterReport struct {
	// ExcludedOptions lists options dropped by name, in catalog order.
	ExcludedOptions []string
	// EmptiedOptions lists options dropped because every value was excluded.
	EmptiedOptions []string
	// ExcludedValues counts removed value IDs per surviving or emptied option.
	ExcludedValues map[string]int
}

// Dropped returns every option name that did not survive filtering.
func (r FilterReport) Dropped() []string {
	out := make([]string, 0, len(r.ExcludedOptions)+len(r.EmptiedOptions))
	out = append(out, r.ExcludedOptions...)
	return append(out, r.EmptiedOptions...)
}

// Filter applies exclusions to catalog and returns a new catalog. The input
// is never mutated. Excluding names or value IDs that do not exist is a no-op.
func Filter(catalog domain.Catalog, ex domain.Exclusions) (domain.Catalog, FilterReport) {
	report := FilterReport{ExcludedValues: map[string]int{}}
	out := make(domain.Catalog, 0, len(catalog))

	for _, opt := range catalog {
		if slices.Contains(ex.Options, opt.Name) {
			report.ExcludedOptions = append(report.ExcludedOptions, opt.Name)
			continue
		}

		drop := ex.Values[opt.Name]
		if len(drop) == 0 {
			out = append(out, domain.Option{
				Name:   opt.Name,
				Values: slices.Clone(opt.Values),
			})
			continue
		}

		kept := make([]domain.OptionValue, 0, len(opt.Values))
		for _, v := range opt.Values {
			if slices.Contains(drop, v.ID) {
				report.ExcludedValues[opt.Name]++
				continue
			}
			kept = append(kept, v)
		}

		// An option emptied by value exclusion goes away entirely. An option
		// that was empty to begin with is kept so Total reports zero.
		if len(kept) == 0 && len(opt.Values) > 0 {
			report.EmptiedOptions = append(report.EmptiedOptions, opt.Name)
			continue
		}
		out = append(out, domain.Option{Name: opt.Name, Values: kept})
	}

	return out, report
}

// Total returns the number of combinations Enumerate will yield: the product
// of per-option value counts, or 1 for an empty catalog.
func Total(catalog domain.Catalog) int {
	total := 1
	for _, opt := range catalog {
		total *= len(opt.Values)
	}
	return total
}

// Enumerate lazily yields every combination of catalog in lexicographic
// order: the first option varies slowest, the last fastest. IDs start at 1
// and are stable for identical input. An empty catalog yields one empty
// combination; an option with no values yields nothing.
func Enumerate(catalog domain.Catalog) iter.Seq[domain.Combination] {
	return func(yield func(domain.Combination) bool) {
		if Total(catalog) == 0 {
			return
		}

		idx := make([]int, len(catalog))
		for id := 1; ; id++ {
			sels := make([]domain.Selection, len(catalog))
			for i, opt := range catalog {
				sels[i] = domain.Selection{Option: opt.Name, Value: opt.Values[idx[i]]}
			}
			if !yield(domain.Combination{ID: id, Selections: sels}) {
				return
			}
			if !advance(idx, catalog) {
				return
			}
		}
	}
}

// advance increments the odometer and reports false once it wraps.
func advance(idx []int, catalog domain.Catalog) bool {
	for i := len(idx) - 1; i >= 0; i-- {
		idx[i]++
		if idx[i] < len(catalog[i].Values) {
			return true
		}
		idx[i] = 0
	}
	return false
}
