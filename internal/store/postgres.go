package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domain "github.com/donaldgifford/print-price-matrix/pkg/types"
)

const defaultPoolSize = 10

// PostgresStore implements Store using pgxpool (connection-pooled PostgreSQL).
//
// TODO(test): PostgresStore methods require live Postgres, tested via integration tests.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore with connection pooling.
func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	cfg.MaxConns = defaultPoolSize

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Close gracefully shuts down the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping verifies the database connection is alive.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate applies pending SQL schema migrations.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	return RunMigrations(ctx, s.pool)
}

// SaveRun writes the run summary and replaces its results in one
// transaction. Results are bulk-loaded with COPY.
func (s *PostgresStore) SaveRun(
	ctx context.Context,
	summary *domain.ExtractionSummary,
	results []domain.PriceResult,
) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	args := pgx.NamedArgs{
		"id":                 summary.JobID,
		"product_name":       summary.ProductName,
		"product_id":         summary.ProductID,
		"state":              string(summary.State),
		"total_combinations": summary.TotalCombinations,
		"total_extracted":    summary.TotalExtracted,
		"error_count":        summary.ErrorCount,
		"suspicious_count":   summary.SuspiciousCount,
		"success_rate":       summary.SuccessRate,
		"options_used":       nonNil(summary.OptionsUsed),
		"options_excluded":   nonNil(summary.OptionsExcluded),
		"raw_path":           nullable(summary.RawPath),
		"pivot_path":         nullable(summary.PivotPath),
		"error_text":         nullable(summary.Error),
		"started_at":         summary.StartedAt,
		"completed_at":       summary.CompletedAt,
	}
	if _, err := tx.Exec(ctx, queryUpsertRun, args); err != nil {
		return fmt.Errorf("upserting run: %w", err)
	}

	if _, err := tx.Exec(ctx, queryDeleteRunResults, summary.JobID); err != nil {
		return fmt.Errorf("clearing run results: %w", err)
	}

	rows := make([][]any, 0, len(results))
	for i := range results {
		row, err := priceResultRow(summary.JobID, results[i])
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}

	if _, err := tx.CopyFrom(
		ctx,
		pgx.Identifier{"price_results"},
		priceResultColumns,
		pgx.CopyFromRows(rows),
	); err != nil {
		return fmt.Errorf("copying price results: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing run: %w", err)
	}
	return nil
}

// GetRun retrieves a run summary by job ID.
func (s *PostgresStore) GetRun(ctx context.Context, id string) (*domain.ExtractionSummary, error) {
	r := &domain.ExtractionSummary{}
	err := scanRun(s.pool.QueryRow(ctx, queryGetRun, id), r)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting run: %w", err)
	}
	return r, nil
}

// ListRuns queries runs with optional filters, returning results and total count.
func (s *PostgresStore) ListRuns(
	ctx context.Context,
	q *RunQuery,
) ([]domain.ExtractionSummary, int, error) {
	if q == nil {
		q = &RunQuery{}
	}
	dataSQL, countSQL, args := q.ToSQL()

	var total int
	if err := s.pool.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting runs: %w", err)
	}

	rows, err := s.pool.Query(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.ExtractionSummary
	for rows.Next() {
		var r domain.ExtractionSummary
		if err := scanRun(rows, &r); err != nil {
			return nil, 0, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating runs: %w", err)
	}

	return runs, total, nil
}

// ListRunResults returns a run's results in combination order.
func (s *PostgresStore) ListRunResults(ctx context.Context, runID string) ([]domain.PriceResult, error) {
	rows, err := s.pool.Query(ctx, queryListRunResults, runID)
	if err != nil {
		return nil, fmt.Errorf("querying run results: %w", err)
	}
	defer rows.Close()

	var results []domain.PriceResult
	for rows.Next() {
		var (
			r          domain.PriceResult
			selections []byte
		)
		if err := rows.Scan(
			&r.CombinationID, &selections,
			&r.Price, &r.TotalPrice, &r.UnitPrice, &r.Quantity, &r.Turnaround,
			&r.Suspicious, &r.Repaired, &r.Attempts, &r.Timestamp, &r.Success, &r.Error,
		); err != nil {
			return nil, fmt.Errorf("scanning run result: %w", err)
		}
		if err := json.Unmarshal(selections, &r.Selections); err != nil {
			return nil, fmt.Errorf("decoding selections: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// DeleteRunsBefore removes runs started before cutoff, with their results,
// and returns the deleted job IDs.
func (s *PostgresStore) DeleteRunsBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	rows, err := s.pool.Query(ctx, queryDeleteRunsBefore, cutoff)
	if err != nil {
		return nil, fmt.Errorf("deleting runs: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("collecting deleted run ids: %w", err)
	}
	return ids, nil
}

// InsertJobRun records the start of a scheduled job and returns its UUID.
func (s *PostgresStore) InsertJobRun(ctx context.Context, jobName string) (string, error) {
	var id string
	if err := s.pool.QueryRow(ctx, queryInsertJobRun, jobName).Scan(&id); err != nil {
		return "", fmt.Errorf("inserting job run: %w", err)
	}
	return id, nil
}

// CompleteJobRun marks a job run as finished with the given status and metadata.
func (s *PostgresStore) CompleteJobRun(
	ctx context.Context,
	id string,
	status string,
	errText string,
	rowsAffected int,
) error {
	_, err := s.pool.Exec(ctx, queryCompleteJobRun, id, status, errText, rowsAffected)
	if err != nil {
		return fmt.Errorf("completing job run: %w", err)
	}
	return nil
}

// ListJobRuns returns the most recent runs for a specific job, newest first.
func (s *PostgresStore) ListJobRuns(
	ctx context.Context,
	jobName string,
	limit int,
) ([]domain.JobRun, error) {
	rows, err := s.pool.Query(ctx, queryListJobRuns, jobName, limit)
	if err != nil {
		return nil, fmt.Errorf("querying job runs: %w", err)
	}
	defer rows.Close()

	return scanJobRuns(rows)
}

// RecoverStaleJobRuns marks any 'running' job rows older than olderThan as 'crashed',
// then deletes all rows older than 30 days. Returns the number of rows marked as crashed.
func (s *PostgresStore) RecoverStaleJobRuns(
	ctx context.Context,
	olderThan time.Duration,
) (int, error) {
	cutoff := time.Now().Add(-olderThan)

	tag, err := s.pool.Exec(ctx, queryMarkStaleJobRunsCrashed, cutoff)
	if err != nil {
		return 0, fmt.Errorf("marking stale job runs crashed: %w", err)
	}
	affected := int(tag.RowsAffected())

	if _, err := s.pool.Exec(ctx, queryDeleteOldJobRuns); err != nil {
		return affected, fmt.Errorf("deleting old job runs: %w", err)
	}

	return affected, nil
}

// AcquireSchedulerLock attempts to acquire a distributed lock for the given job.
// Returns true if the lock was acquired, false if another holder already owns it.
func (s *PostgresStore) AcquireSchedulerLock(
	ctx context.Context,
	jobName string,
	holder string,
	ttl time.Duration,
) (bool, error) {
	expiresAt := time.Now().Add(ttl)

	var gotName string
	err := s.pool.QueryRow(ctx, queryAcquireSchedulerLock, jobName, holder, expiresAt).Scan(&gotName)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil // lock held by another; conflict not replaced
	}
	if err != nil {
		return false, fmt.Errorf("acquiring scheduler lock: %w", err)
	}

	return true, nil
}

// ReleaseSchedulerLock deletes the lock row for the given job and holder.
func (s *PostgresStore) ReleaseSchedulerLock(
	ctx context.Context,
	jobName string,
	holder string,
) error {
	_, err := s.pool.Exec(ctx, queryReleaseSchedulerLock, jobName, holder)
	if err != nil {
		return fmt.Errorf("releasing scheduler lock: %w", err)
	}
	return nil
}

// scanJobRuns scans rows from a job_runs query into a slice.
func scanJobRuns(rows pgx.Rows) ([]domain.JobRun, error) {
	var runs []domain.JobRun
	for rows.Next() {
		var r domain.JobRun
		if err := rows.Scan(
			&r.ID, &r.JobName, &r.StartedAt, &r.CompletedAt,
			&r.Status, &r.ErrorText, &r.RowsAffected,
		); err != nil {
			return nil, fmt.Errorf("scanning job run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// scanRun scans a single extraction_runs row in baseRunsSelect column order.
func scanRun(row pgx.Row, r *domain.ExtractionSummary) error {
	var state string
	if err := row.Scan(
		&r.JobID, &r.ProductName, &r.ProductID, &state,
		&r.TotalCombinations, &r.TotalExtracted, &r.ErrorCount, &r.SuspiciousCount, &r.SuccessRate,
		&r.OptionsUsed, &r.OptionsExcluded, &r.RawPath, &r.PivotPath,
		&r.Error, &r.StartedAt, &r.CompletedAt,
	); err != nil {
		return err
	}
	r.State = domain.JobState(state)
	return nil
}

// priceResultRow renders a result in priceResultColumns order.
func priceResultRow(runID string, r domain.PriceResult) ([]any, error) {
	selections, err := json.Marshal(r.Selections)
	if err != nil {
		return nil, fmt.Errorf("marshaling selections for combination %d: %w", r.CombinationID, err)
	}
	return []any{
		runID, r.CombinationID, selections,
		nullable(r.Price), nullable(r.TotalPrice), nullable(r.UnitPrice),
		nullable(r.Quantity), nullable(r.Turnaround),
		r.Suspicious, r.Repaired, r.Attempts, r.Timestamp, r.Success, nullable(r.Error),
	}, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
