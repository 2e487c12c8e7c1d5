package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ErlanBelekov/cronhost/internal/domain"
)

func (s *Store) CreateRun(ctx context.Context, run *domain.Run) (*domain.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (job_id, job_name, started_at, trigger)
		VALUES (?, ?, ?, ?)`,
		run.JobID, run.JobName, run.StartedAt.UTC().Format(timeLayout), string(run.Trigger),
	)
	if err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}

	row := s.db.QueryRowContext(ctx, runSelect+" WHERE id = ?", id)
	return scanRun(row)
}

func (s *Store) CompleteRun(ctx context.Context, id int64, outcome domain.RunOutcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET ended_at = ?, exit_code = ?, stdout = ?, stderr = ?, timed_out = ?
		WHERE id = ?`,
		outcome.EndedAt.UTC().Format(timeLayout), outcome.ExitCode, outcome.Stdout, outcome.Stderr,
		boolToInt(outcome.TimedOut), id,
	)
	if err != nil {
		return fmt.Errorf("complete run: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("complete run: %w", err)
	}
	if affected == 0 {
		return domain.ErrRunNotFound
	}
	return nil
}

func (s *Store) GetRun(ctx context.Context, id int64) (*domain.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, runSelect+" WHERE id = ?", id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrRunNotFound
	}
	return r, err
}

func (s *Store) ListRuns(ctx context.Context, filter domain.RunFilter) ([]*domain.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var where []string
	var args []any
	if filter.JobName != "" {
		where = append(where, "job_name = ?")
		args = append(args, filter.JobName)
	}
	if filter.Since != nil {
		where = append(where, "started_at >= ?")
		args = append(args, filter.Since.UTC().Format(timeLayout))
	}
	if filter.FailedOnly {
		where = append(where, "(exit_code IS NULL OR exit_code != 0 OR timed_out = 1)")
	}

	query := runSelect
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY started_at DESC, id DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(" LIMIT %d", limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	runs := make([]*domain.Run, 0)
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// ReconcileOrphans finds every run left with ended_at == null (the process
// was killed mid-run) and closes it out as interrupted.
func (s *Store) ReconcileOrphans(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET ended_at = ?, exit_code = -1, stderr = 'Interrupted by shutdown', timed_out = 0
		WHERE ended_at IS NULL`,
		time.Now().UTC().Format(timeLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("reconcile orphans: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reconcile orphans: %w", err)
	}
	return int(affected), nil
}

func (s *Store) PurgeRunsOlderThan(ctx context.Context, horizon time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().UTC().Add(-horizon)
	res, err := s.db.ExecContext(ctx, "DELETE FROM runs WHERE started_at < ?", cutoff.Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("purge runs: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge runs: %w", err)
	}
	return int(affected), nil
}

const runSelect = `
	SELECT id, job_id, job_name, started_at, ended_at, exit_code, stdout, stderr, timed_out, trigger
	FROM runs`

func scanRun(row rowScanner) (*domain.Run, error) {
	var r domain.Run
	var jobID sql.NullInt64
	var startedAt string
	var endedAt sql.NullString
	var exitCode sql.NullInt64
	var timedOut int
	var trigger string

	err := row.Scan(&r.ID, &jobID, &r.JobName, &startedAt, &endedAt, &exitCode,
		&r.Stdout, &r.Stderr, &timedOut, &trigger)
	if err != nil {
		return nil, err
	}

	r.JobID = jobID.Int64
	r.Trigger = domain.Trigger(trigger)
	r.TimedOut = timedOut != 0
	r.StartedAt, err = time.Parse(timeLayout, startedAt)
	if err != nil {
		return nil, fmt.Errorf("scan run: started_at: %w", err)
	}
	if endedAt.Valid {
		t, err := time.Parse(timeLayout, endedAt.String)
		if err != nil {
			return nil, fmt.Errorf("scan run: ended_at: %w", err)
		}
		r.EndedAt = &t
	}
	if exitCode.Valid {
		v := int(exitCode.Int64)
		r.ExitCode = &v
	}
	return &r, nil
}
