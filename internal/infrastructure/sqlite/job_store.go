package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ErlanBelekov/cronhost/internal/cronexpr"
	"github.com/ErlanBelekov/cronhost/internal/domain"
)

func (s *Store) AddJob(ctx context.Context, job *domain.Job) (*domain.Job, error) {
	if _, err := cronexpr.Parse(job.Cron); err != nil {
		return nil, err
	}
	if job.TimeoutSeconds <= 0 {
		return nil, domain.ErrInvalidTimeout
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO jobs (name, cron, command, working_dir, timeout_seconds, tags, enabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.Name, job.Cron, job.Command, job.WorkingDir, job.TimeoutSeconds,
		joinTags(job.Tags), boolToInt(job.Enabled), now.Format(timeLayout), now.Format(timeLayout),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrDuplicateName
		}
		return nil, fmt.Errorf("add job: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("add job: %w", err)
	}
	return s.getJobByIDLocked(ctx, id)
}

func (s *Store) GetJob(ctx context.Context, name string) (*domain.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, jobSelect+" WHERE name = ?", name)
	j, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrJobNotFound
	}
	return j, err
}

func (s *Store) getJobByIDLocked(ctx context.Context, id int64) (*domain.Job, error) {
	row := s.db.QueryRowContext(ctx, jobSelect+" WHERE id = ?", id)
	return scanJob(row)
}

func (s *Store) ListJobs(ctx context.Context, filter domain.JobFilter) ([]*domain.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var where []string
	var args []any
	if filter.Enabled != nil {
		where = append(where, "enabled = ?")
		args = append(args, boolToInt(*filter.Enabled))
	}
	if filter.Tag != "" {
		where = append(where, "(',' || tags || ',') LIKE ?")
		args = append(args, "%,"+filter.Tag+",%")
	}

	query := jobSelect
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY name ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()
	return scanJobs(rows)
}

func (s *Store) DueJobs(ctx context.Context, asOf time.Time) ([]*domain.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		jobSelect+` WHERE enabled = 1 AND next_run IS NOT NULL AND next_run <= ?
		            ORDER BY next_run ASC, name ASC`,
		asOf.UTC().Format(timeLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("due jobs: %w", err)
	}
	defer rows.Close()
	return scanJobs(rows)
}

func (s *Store) UpdateJob(ctx context.Context, name string, patch domain.JobPatch) (*domain.Job, error) {
	if patch.Cron != nil {
		if _, err := cronexpr.Parse(*patch.Cron); err != nil {
			return nil, err
		}
	}
	if patch.TimeoutSeconds != nil && *patch.TimeoutSeconds <= 0 {
		return nil, domain.ErrInvalidTimeout
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("update job: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var sets []string
	var args []any
	if patch.Cron != nil {
		sets = append(sets, "cron = ?")
		args = append(args, *patch.Cron)
	}
	if patch.Command != nil {
		sets = append(sets, "command = ?")
		args = append(args, *patch.Command)
	}
	if patch.WorkingDir != nil {
		sets = append(sets, "working_dir = ?")
		args = append(args, *patch.WorkingDir)
	}
	if patch.TimeoutSeconds != nil {
		sets = append(sets, "timeout_seconds = ?")
		args = append(args, *patch.TimeoutSeconds)
	}
	if patch.Tags != nil {
		sets = append(sets, "tags = ?")
		args = append(args, joinTags(patch.Tags))
	}
	if patch.Enabled != nil {
		sets = append(sets, "enabled = ?")
		args = append(args, boolToInt(*patch.Enabled))
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC().Format(timeLayout))
	args = append(args, name)

	res, err := tx.ExecContext(ctx, "UPDATE jobs SET "+strings.Join(sets, ", ")+" WHERE name = ?", args...)
	if err != nil {
		return nil, fmt.Errorf("update job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update job: %w", err)
	}
	if affected == 0 {
		return nil, domain.ErrJobNotFound
	}

	row := tx.QueryRowContext(ctx, jobSelect+" WHERE name = ?", name)
	j, err := scanJob(row)
	if err != nil {
		return nil, fmt.Errorf("update job: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("update job: %w", err)
	}
	return j, nil
}

func (s *Store) DeleteJob(ctx context.Context, name string, purgeRuns bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, "DELETE FROM jobs WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	if affected == 0 {
		return domain.ErrJobNotFound
	}

	if purgeRuns {
		if _, err := tx.ExecContext(ctx, "DELETE FROM runs WHERE job_name = ?", name); err != nil {
			return fmt.Errorf("delete job: purge runs: %w", err)
		}
	}
	return tx.Commit()
}

func (s *Store) SetNextRun(ctx context.Context, name string, next *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var nextStr any
	if next != nil {
		nextStr = next.UTC().Format(timeLayout)
	}

	res, err := s.db.ExecContext(ctx,
		"UPDATE jobs SET next_run = ?, updated_at = ? WHERE name = ?",
		nextStr, time.Now().UTC().Format(timeLayout), name,
	)
	if err != nil {
		return fmt.Errorf("set next run: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set next run: %w", err)
	}
	if affected == 0 {
		return domain.ErrJobNotFound
	}
	return nil
}

func (s *Store) SetLastRun(ctx context.Context, name string, last time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"UPDATE jobs SET last_run = ?, updated_at = ? WHERE name = ?",
		last.UTC().Format(timeLayout), time.Now().UTC().Format(timeLayout), name,
	)
	if err != nil {
		return fmt.Errorf("set last run: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set last run: %w", err)
	}
	if affected == 0 {
		return domain.ErrJobNotFound
	}
	return nil
}

func (s *Store) ListTags(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT tags FROM jobs WHERE tags != ''")
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	seen := map[string]struct{}{}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("list tags: %w", err)
		}
		for _, tag := range splitTags(raw) {
			seen[tag] = struct{}{}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	tags := make([]string, 0, len(seen))
	for tag := range seen {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags, nil
}

const jobSelect = `
	SELECT id, name, cron, command, working_dir, timeout_seconds, tags, enabled,
	       created_at, updated_at, last_run, next_run
	FROM jobs`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*domain.Job, error) {
	var j domain.Job
	var tags string
	var enabled int
	var createdAt, updatedAt string
	var lastRun, nextRun sql.NullString

	err := row.Scan(&j.ID, &j.Name, &j.Cron, &j.Command, &j.WorkingDir, &j.TimeoutSeconds,
		&tags, &enabled, &createdAt, &updatedAt, &lastRun, &nextRun)
	if err != nil {
		return nil, err
	}

	j.Tags = splitTags(tags)
	j.Enabled = enabled != 0
	j.CreatedAt, err = time.Parse(timeLayout, createdAt)
	if err != nil {
		return nil, fmt.Errorf("scan job: created_at: %w", err)
	}
	j.UpdatedAt, err = time.Parse(timeLayout, updatedAt)
	if err != nil {
		return nil, fmt.Errorf("scan job: updated_at: %w", err)
	}
	if lastRun.Valid {
		t, err := time.Parse(timeLayout, lastRun.String)
		if err != nil {
			return nil, fmt.Errorf("scan job: last_run: %w", err)
		}
		j.LastRun = &t
	}
	if nextRun.Valid {
		t, err := time.Parse(timeLayout, nextRun.String)
		if err != nil {
			return nil, fmt.Errorf("scan job: next_run: %w", err)
		}
		j.NextRun = &t
	}
	return &j, nil
}

func scanJobs(rows *sql.Rows) ([]*domain.Job, error) {
	jobs := make([]*domain.Job, 0)
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

func joinTags(tags []string) string { return strings.Join(tags, ",") }

func splitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	return strings.Split(raw, ",")
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// isUniqueViolation reports whether err is a SQLite UNIQUE constraint
// failure, regardless of which index triggered it.
func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
