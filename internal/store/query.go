package store

import (
	"fmt"
	"strings"
)

const (
	defaultLimit = 50
	maxLimit     = 500

	orderByStartedAt   = "started_at"
	orderBySuccessRate = "success_rate"
	orderByTotal       = "total_combinations"
)

// validOrderBy maps allowed OrderBy values to their SQL column expressions.
var validOrderBy = map[string]string{
	orderByStartedAt:   "started_at DESC",
	orderBySuccessRate: "success_rate ASC",
	orderByTotal:       "total_combinations DESC",
}

const defaultOrderBy = "started_at DESC"

const baseRunsSelect = `SELECT id, product_name, product_id, state,
	total_combinations, total_extracted, error_count, suspicious_count, success_rate,
	options_used, options_excluded, COALESCE(raw_path, ''), COALESCE(pivot_path, ''),
	COALESCE(error_text, ''), started_at, completed_at
FROM extraction_runs`

const countRunsSelect = "SELECT COUNT(*) FROM extraction_runs"

// ToSQL builds the WHERE clause, ORDER BY, LIMIT, and OFFSET for a run query.
// It returns two SQL strings (one for the data query, one for the count query)
// and the positional parameters.
func (q *RunQuery) ToSQL() (dataSQL, countSQL string, args []any) {
	var conditions []string
	paramIdx := 1

	if q.ProductID != nil {
		conditions = append(conditions, fmt.Sprintf("product_id = $%d", paramIdx))
		args = append(args, *q.ProductID)
		paramIdx++
	}

	if q.ProductName != nil {
		conditions = append(conditions, fmt.Sprintf("product_name ILIKE $%d", paramIdx))
		args = append(args, "%"+*q.ProductName+"%")
		paramIdx++
	}

	if q.State != nil {
		conditions = append(conditions, fmt.Sprintf("state = $%d", paramIdx))
		args = append(args, *q.State)
		paramIdx++
	}

	if q.Since != nil {
		conditions = append(conditions, fmt.Sprintf("started_at >= $%d", paramIdx))
		args = append(args, *q.Since)
	}

	var whereClause string
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	// Order by
	orderClause := defaultOrderBy
	if q.OrderBy != "" {
		if col, ok := validOrderBy[q.OrderBy]; ok {
			orderClause = col
		}
	}

	// Limit
	limit := q.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	offset := max(q.Offset, 0)

	dataSQL = fmt.Sprintf(
		"%s%s ORDER BY %s LIMIT %d OFFSET %d",
		baseRunsSelect, whereClause, orderClause, limit, offset,
	)

	countSQL = countRunsSelect + whereClause

	return dataSQL, countSQL, args
}
