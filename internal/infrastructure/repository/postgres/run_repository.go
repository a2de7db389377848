package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/rextmaxwell/O-M-Asset-Identifier/internal/core/domain"
)

type RunRepository struct {
	db *sql.DB
}

func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *RunRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082301)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS match_runs (
	id TEXT PRIMARY KEY,
	registry_path TEXT NOT NULL,
	document_paths JSONB NOT NULL DEFAULT '[]'::jsonb,
	options JSONB NOT NULL DEFAULT '{}'::jsonb,
	status TEXT NOT NULL,
	error_message TEXT,
	results JSONB NOT NULL DEFAULT '[]'::jsonb,
	confirmations JSONB NOT NULL DEFAULT '[]'::jsonb,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_match_runs_status ON match_runs(status);
CREATE INDEX IF NOT EXISTS idx_match_runs_created_at ON match_runs(created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *RunRepository) Create(ctx context.Context, run *domain.MatchRun) error {
	pathsJSON, err := json.Marshal(run.DocumentPaths)
	if err != nil {
		return fmt.Errorf("marshal document paths: %w", err)
	}
	optionsJSON, err := json.Marshal(run.Options)
	if err != nil {
		return fmt.Errorf("marshal options: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO match_runs (
	id, registry_path, document_paths, options, status, error_message, results, confirmations, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,'[]'::jsonb,'[]'::jsonb,$7,$8)
`,
		run.ID, run.RegistryPath, pathsJSON, optionsJSON, string(run.Status), run.Error,
		run.CreatedAt, run.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert match run: %w", err)
	}
	return nil
}

func (r *RunRepository) GetByID(ctx context.Context, id string) (*domain.MatchRun, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, registry_path, document_paths, options, status, error_message, results, confirmations, created_at, updated_at
FROM match_runs
WHERE id = $1
`, id)

	var run domain.MatchRun
	var pathsRaw, optionsRaw, resultsRaw, confirmationsRaw []byte
	var status string
	var errMessage sql.NullString

	err := row.Scan(
		&run.ID, &run.RegistryPath, &pathsRaw, &optionsRaw, &status, &errMessage,
		&resultsRaw, &confirmationsRaw, &run.CreatedAt, &run.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrRunNotFound, "get match run", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("scan match run: %w", err)
	}

	if err := json.Unmarshal(pathsRaw, &run.DocumentPaths); err != nil {
		return nil, fmt.Errorf("unmarshal document paths: %w", err)
	}
	if err := json.Unmarshal(optionsRaw, &run.Options); err != nil {
		return nil, fmt.Errorf("unmarshal options: %w", err)
	}
	if err := json.Unmarshal(resultsRaw, &run.Results); err != nil {
		return nil, fmt.Errorf("unmarshal results: %w", err)
	}
	if err := json.Unmarshal(confirmationsRaw, &run.Confirmations); err != nil {
		return nil, fmt.Errorf("unmarshal confirmations: %w", err)
	}
	run.Status = domain.RunStatus(status)
	run.Error = errMessage.String
	return &run, nil
}

func (r *RunRepository) UpdateStatus(ctx context.Context, id string, status domain.RunStatus, errMessage string) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE match_runs
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(status), errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update run status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update run status rows affected: %w", err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrRunNotFound, "update run status", fmt.Errorf("id=%s", id))
	}
	return nil
}

func (r *RunRepository) SaveResults(ctx context.Context, id string, results []domain.MatchResult) error {
	resultsJSON, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	result, err := r.db.ExecContext(ctx, `
UPDATE match_runs
SET results = $2, updated_at = $3
WHERE id = $1
`, id, resultsJSON, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save run results: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("save run results rows affected: %w", err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrRunNotFound, "save run results", fmt.Errorf("id=%s", id))
	}
	return nil
}

// AppendConfirmations appends entries to the run's confirmation log in one
// statement and returns the full log as stored.
func (r *RunRepository) AppendConfirmations(ctx context.Context, id string, entries []domain.Confirmation) (domain.ConfirmationLog, error) {
	entriesJSON, err := json.Marshal(entries)
	if err != nil {
		return nil, fmt.Errorf("marshal confirmations: %w", err)
	}

	row := r.db.QueryRowContext(ctx, `
UPDATE match_runs
SET confirmations = confirmations || $2::jsonb, updated_at = $3
WHERE id = $1
RETURNING confirmations
`, id, entriesJSON, time.Now().UTC())

	var logRaw []byte
	if err := row.Scan(&logRaw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrRunNotFound, "append confirmations", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("append confirmations: %w", err)
	}

	var log domain.ConfirmationLog
	if err := json.Unmarshal(logRaw, &log); err != nil {
		return nil, fmt.Errorf("unmarshal confirmation log: %w", err)
	}
	return log, nil
}
