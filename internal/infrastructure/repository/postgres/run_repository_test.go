package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/rextmaxwell/O-M-Asset-Identifier/internal/core/domain"
)

func TestRunRepositoryGetByIDNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewRunRepository(db)
	mock.ExpectQuery("FROM match_runs").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err = repo.GetByID(context.Background(), "missing")
	if !errors.Is(err, domain.ErrRunNotFound) {
		t.Fatalf("expected run not found, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRunRepositoryGetByIDDecodesJSONColumns(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewRunRepository(db)
	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"id", "registry_path", "document_paths", "options", "status",
		"error_message", "results", "confirmations", "created_at", "updated_at",
	}).AddRow(
		"r-1", "registry.xlsx",
		[]byte(`["docs/a.pdf","docs/b.pdf"]`),
		[]byte(`{"ocr_enabled":true,"ocr_max_pages":5,"auto_accept_score":80,"concurrency":4,"compute_hashes":false}`),
		string(domain.RunQueued), nil,
		[]byte(`[]`), []byte(`[]`), now, now,
	)

	mock.ExpectQuery("FROM match_runs").
		WithArgs("r-1").
		WillReturnRows(rows)

	run, err := repo.GetByID(context.Background(), "r-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if len(run.DocumentPaths) != 2 || run.DocumentPaths[0] != "docs/a.pdf" {
		t.Fatalf("unexpected document paths: %v", run.DocumentPaths)
	}
	if !run.Options.OCREnabled || run.Options.AutoAcceptScore != 80 {
		t.Fatalf("unexpected options: %+v", run.Options)
	}
	if run.Status != domain.RunQueued {
		t.Fatalf("unexpected status: %s", run.Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRunRepositoryUpdateStatusReturnsNotFoundWhenNoRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewRunRepository(db)
	mock.ExpectExec("UPDATE match_runs").
		WithArgs("missing", string(domain.RunRunning), "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = repo.UpdateStatus(context.Background(), "missing", domain.RunRunning, "")
	if !errors.Is(err, domain.ErrRunNotFound) {
		t.Fatalf("expected run not found, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRunRepositoryAppendConfirmationsReturnsFullLog(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewRunRepository(db)
	stored := `[{"file_path":"docs/a.pdf","asset_id":"AHU-1001","decided_at":"2026-08-23T10:00:00Z"},` +
		`{"file_path":"docs/b.pdf","asset_id":"PMP-0007","decided_at":"2026-08-23T10:05:00Z"}]`

	mock.ExpectQuery("UPDATE match_runs").
		WithArgs("r-1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"confirmations"}).AddRow([]byte(stored)))

	log, err := repo.AppendConfirmations(context.Background(), "r-1", []domain.Confirmation{
		{FilePath: "docs/b.pdf", AssetID: "PMP-0007"},
	})
	if err != nil {
		t.Fatalf("AppendConfirmations() error = %v", err)
	}
	if len(log) != 2 || log[1].AssetID != "PMP-0007" {
		t.Fatalf("unexpected log: %+v", log)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
