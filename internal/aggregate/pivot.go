package aggregate

import (
	"slices"
	"strings"
)

type columnClass int

const (
	classMeta columnClass = iota
	classID
	classQuantity
	classOption
)

// columnRule classifies a raw column name. Rules are evaluated in order and
// the first match wins.
type columnRule struct {
	class columnClass
	match func(lower string) bool
}

var columnRules = []columnRule{
	{class: classMeta, match: func(lower string) bool { return slices.Contains(metaColumns, lower) }},
	{class: classID, match: func(lower string) bool { return strings.HasSuffix(lower, idSuffix) }},
	{class: classQuantity, match: func(lower string) bool {
		return strings.Contains(lower, "quantity") || strings.Contains(lower, "qty")
	}},
	{class: classOption, match: func(string) bool { return true }},
}

func classify(column string) columnClass {
	lower := strings.ToLower(column)
	for _, r := range columnRules {
		if r.match(lower) {
			return r.class
		}
	}
	return classOption
}

// QuantityColumn returns the first column classified as the quantity
// dimension.
func QuantityColumn(columns []string) (string, bool) {
	for _, c := range columns {
		if classify(c) == classQuantity {
			return c, true
		}
	}
	return "", false
}

// BuildPivot reshapes raw into rows keyed by the non-quantity option labels
// and one column per quantity label, holding the price. Row and column order
// follow first appearance. Gaps are N/A. It reports false when raw has no
// quantity column or no other option column to key rows by.
func BuildPivot(raw Table) (Table, bool) {
	priceIdx := slices.Index(raw.Columns, ColPrice)
	if priceIdx < 0 {
		return Table{}, false
	}

	qtyIdx := -1
	var keyIdx []int
	for i, c := range raw.Columns {
		switch classify(c) {
		case classQuantity:
			if qtyIdx < 0 {
				qtyIdx = i
			} else {
				keyIdx = append(keyIdx, i)
			}
		case classOption:
			keyIdx = append(keyIdx, i)
		case classMeta, classID:
		}
	}
	if qtyIdx < 0 || len(keyIdx) == 0 {
		return Table{}, false
	}

	var (
		qtyOrder []string
		qtyPos   = map[string]int{}
		rowKeys  [][]string
		rowPos   = map[string]int{}
		cells    []map[int]string
	)

	for _, row := range raw.Rows {
		qty := row[qtyIdx]
		qi, ok := qtyPos[qty]
		if !ok {
			qi = len(qtyOrder)
			qtyPos[qty] = qi
			qtyOrder = append(qtyOrder, qty)
		}

		key := make([]string, len(keyIdx))
		for i, idx := range keyIdx {
			key[i] = row[idx]
		}
		joined := strings.Join(key, "\x1f")
		ri, ok := rowPos[joined]
		if !ok {
			ri = len(rowKeys)
			rowPos[joined] = ri
			rowKeys = append(rowKeys, key)
			cells = append(cells, map[int]string{})
		}

		price := row[priceIdx]
		if prev, set := cells[ri][qi]; !set || prev == NotAvailable {
			cells[ri][qi] = price
		}
	}

	cols := make([]string, 0, len(keyIdx)+len(qtyOrder))
	for _, idx := range keyIdx {
		cols = append(cols, raw.Columns[idx])
	}
	cols = append(cols, qtyOrder...)

	rows := make([][]string, len(rowKeys))
	for ri, key := range rowKeys {
		out := make([]string, 0, len(cols))
		out = append(out, key...)
		for qi := range qtyOrder {
			v, ok := cells[ri][qi]
			if !ok || v == "" {
				v = NotAvailable
			}
			out = append(out, v)
		}
		rows[ri] = out
	}

	return Table{Columns: cols, Rows: rows}, true
}
