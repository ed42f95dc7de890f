package store

// Run queries.
const (
	queryUpsertRun = `
		INSERT INTO extraction_runs (
			id, product_name, product_id, state,
			total_combinations, total_extracted, error_count, suspicious_count, success_rate,
			options_used, options_excluded, raw_path, pivot_path, error_text,
			started_at, completed_at
		) VALUES (
			@id, @product_name, @product_id, @state,
			@total_combinations, @total_extracted, @error_count, @suspicious_count, @success_rate,
			@options_used, @options_excluded, @raw_path, @pivot_path, @error_text,
			@started_at, @completed_at
		)
		ON CONFLICT (id) DO UPDATE SET
			state              = EXCLUDED.state,
			total_combinations = EXCLUDED.total_combinations,
			total_extracted    = EXCLUDED.total_extracted,
			error_count        = EXCLUDED.error_count,
			suspicious_count   = EXCLUDED.suspicious_count,
			success_rate       = EXCLUDED.success_rate,
			options_used       = EXCLUDED.options_used,
			options_excluded   = EXCLUDED.options_excluded,
			raw_path           = EXCLUDED.raw_path,
			pivot_path         = EXCLUDED.pivot_path,
			error_text         = EXCLUDED.error_text,
			completed_at       = EXCLUDED.completed_at`

	queryDeleteRunResults = `
		DELETE FROM price_results WHERE run_id = $1`

	queryGetRun = baseRunsSelect + ` WHERE id = $1`

	queryListRunResults = `
		SELECT combination_id, selections,
			COALESCE(price, ''), COALESCE(total_price, ''), COALESCE(unit_price, ''),
			COALESCE(quantity, ''), COALESCE(turnaround, ''),
			suspicious, repaired, attempts, priced_at, success, COALESCE(error_text, '')
		FROM price_results
		WHERE run_id = $1
		ORDER BY combination_id`

	queryDeleteRunsBefore = `
		DELETE FROM extraction_runs
		WHERE started_at < $1
		RETURNING id`
)

// priceResultColumns is the CopyFrom column order for price_results.
var priceResultColumns = []string{
	"run_id", "combination_id", "selections",
	"price", "total_price", "unit_price", "quantity", "turnaround",
	"suspicious", "repaired", "attempts", "priced_at", "success", "error_text",
}

// Scheduler queries.
const (
	queryInsertJobRun = `
		INSERT INTO job_runs (job_name)
		VALUES ($1)
		RETURNING id`

	queryCompleteJobRun = `
		UPDATE job_runs SET
			completed_at  = now(),
			status        = $2,
			error_text    = $3,
			rows_affected = $4
		WHERE id = $1`

	queryListJobRuns = `
		SELECT id, job_name, started_at, completed_at, status,
			COALESCE(error_text, ''), rows_affected
		FROM job_runs
		WHERE job_name = $1
		ORDER BY started_at DESC
		LIMIT $2`

	queryMarkStaleJobRunsCrashed = `
		UPDATE job_runs SET
			status       = 'crashed',
			completed_at = now()
		WHERE status = 'running' AND started_at < $1`

	queryDeleteOldJobRuns = `
		DELETE FROM job_runs WHERE started_at < now() - interval '30 days'`

	queryAcquireSchedulerLock = `
		INSERT INTO scheduler_locks (job_name, lock_holder, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (job_name) DO UPDATE
			SET locked_at   = now(),
				lock_holder = EXCLUDED.lock_holder,
				expires_at  = EXCLUDED.expires_at
			WHERE scheduler_locks.expires_at < now()
		RETURNING job_name`

	queryReleaseSchedulerLock = `
		DELETE FROM scheduler_locks WHERE job_name = $1 AND lock_holder = $2`
)
