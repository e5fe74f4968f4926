package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a run id is unknown.
var ErrNotFound = errors.New("run not found")

const runColumns = "id, project_id, deploy_type, engine, model_type, impulse_id, job_id, status, error_message, filename, path, size_bytes, sha256, log_lines, started_at, finished_at"

// Begin records a new run and returns it with ID and StartedAt assigned. A
// caller-supplied ID is kept.
func (s *Store) Begin(ctx context.Context, run Run) (*Run, error) {
	if strings.TrimSpace(run.ID) == "" {
		run.ID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	run.Status = StatusStarted

	_, err := s.exec(ctx,
		`INSERT INTO runs (id, project_id, deploy_type, engine, model_type, impulse_id, status, started_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.ProjectID,
		run.DeployType,
		nullableString(run.Engine),
		nullableString(run.ModelType),
		run.ImpulseID,
		run.Status,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return &run, nil
}

// MarkSubmitted stores the remote job id for a run.
func (s *Store) MarkSubmitted(ctx context.Context, id, jobID string) error {
	res, err := s.exec(ctx,
		`UPDATE runs SET job_id = ?, status = ? WHERE id = ?`,
		jobID, StatusSubmitted, id,
	)
	if err != nil {
		return fmt.Errorf("mark submitted: %w", err)
	}
	return expectOneRow(res, id)
}

// Finish closes a run with its outcome.
func (s *Store) Finish(ctx context.Context, id string, outcome Outcome) error {
	if !outcome.Status.Terminal() {
		return fmt.Errorf("finish run: status %q is not terminal", outcome.Status)
	}
	res, err := s.exec(ctx,
		`UPDATE runs
         SET status = ?, error_message = ?, filename = ?, path = ?, size_bytes = ?,
             sha256 = ?, log_lines = ?, finished_at = ?
         WHERE id = ?`,
		outcome.Status,
		nullableString(outcome.ErrorMessage),
		nullableString(outcome.Filename),
		nullableString(outcome.Path),
		outcome.SizeBytes,
		nullableString(outcome.SHA256),
		outcome.LogLines,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return expectOneRow(res, id)
}

// Get fetches a run by id.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// List returns the most recent runs, newest first. A limit of zero or less
// returns every run.
func (s *Store) List(ctx context.Context, limit int) ([]*Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, rowid DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func expectOneRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		run         Run
		status      string
		engine      sql.NullString
		modelType   sql.NullString
		jobID       sql.NullString
		errorMsg    sql.NullString
		filename    sql.NullString
		path        sql.NullString
		sha         sql.NullString
		startedRaw  string
		finishedRaw sql.NullString
	)
	if err := scanner.Scan(
		&run.ID,
		&run.ProjectID,
		&run.DeployType,
		&engine,
		&modelType,
		&run.ImpulseID,
		&jobID,
		&status,
		&errorMsg,
		&filename,
		&path,
		&run.SizeBytes,
		&sha,
		&run.LogLines,
		&startedRaw,
		&finishedRaw,
	); err != nil {
		return nil, err
	}
	run.Status = Status(status)
	run.Engine = engine.String
	run.ModelType = modelType.String
	run.JobID = jobID.String
	run.ErrorMessage = errorMsg.String
	run.Filename = filename.String
	run.Path = path.String
	run.SHA256 = sha.String
	run.StartedAt = parseTime(startedRaw)
	if finishedRaw.Valid {
		run.FinishedAt = parseTime(finishedRaw.String)
	}
	return &run, nil
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func parseTime(raw string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}
