package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rextmaxwell/O-M-Asset-Identifier/internal/core/domain"
)

type submitterFake struct {
	run     *domain.MatchRun
	err     error
	gotOpts domain.MatchOptionsPatch
}

func (f *submitterFake) Submit(_ context.Context, registryPath string, documentPaths []string, opts domain.MatchOptionsPatch) (*domain.MatchRun, error) {
	f.gotOpts = opts
	if f.err != nil {
		return nil, f.err
	}
	if f.run != nil {
		return f.run, nil
	}
	return &domain.MatchRun{
		ID:            "run-1",
		RegistryPath:  registryPath,
		DocumentPaths: documentPaths,
		Status:        domain.RunQueued,
	}, nil
}

// repoFake backs both read-side ports the router consumes.
type repoFake struct {
	run        *domain.MatchRun
	getErr     error
	appended   []domain.Confirmation
	confirmErr error
}

func (f *repoFake) GetByID(_ context.Context, id string) (*domain.MatchRun, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.run != nil {
		return f.run, nil
	}
	return &domain.MatchRun{ID: id, Status: domain.RunQueued}, nil
}

func (f *repoFake) AppendConfirmations(_ context.Context, _ string, entries []domain.Confirmation) (domain.ConfirmationLog, error) {
	if f.confirmErr != nil {
		return nil, f.confirmErr
	}
	f.appended = append(f.appended, entries...)
	return domain.ConfirmationLog(f.appended), nil
}

func newTestHandler(submitter *submitterFake, repo *repoFake) http.Handler {
	return NewRouter(submitter, repo, repo, nil).Handler()
}

func TestSubmitRunReturns202WithRun(t *testing.T) {
	handler := newTestHandler(&submitterFake{}, &repoFake{})

	payload, _ := json.Marshal(map[string]any{
		"registry_path":  "registry.xlsx",
		"document_paths": []string{"docs/a.pdf"},
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/runs", bytes.NewReader(payload))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", res.Code, res.Body.String())
	}
	var run domain.MatchRun
	if err := json.Unmarshal(res.Body.Bytes(), &run); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if run.ID != "run-1" || run.Status != domain.RunQueued {
		t.Fatalf("unexpected run: %+v", run)
	}
}

func TestSubmitRunForwardsOmittedOptionsAsUnset(t *testing.T) {
	submitter := &submitterFake{}
	handler := newTestHandler(submitter, &repoFake{})

	payload := `{"registry_path":"registry.xlsx","document_paths":["docs/a.pdf"]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/runs", strings.NewReader(payload))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", res.Code, res.Body.String())
	}
	// Unset fields must stay nil so the service defaults apply downstream.
	if submitter.gotOpts.OCREnabled != nil || submitter.gotOpts.ComputeHashes != nil {
		t.Fatalf("omitted booleans arrived as set: %+v", submitter.gotOpts)
	}
	if submitter.gotOpts.OCRMaxPages != nil || submitter.gotOpts.Concurrency != nil {
		t.Fatalf("omitted numerics arrived as set: %+v", submitter.gotOpts)
	}
}

func TestSubmitRunForwardsExplicitFalseOCR(t *testing.T) {
	submitter := &submitterFake{}
	handler := newTestHandler(submitter, &repoFake{})

	payload := `{"registry_path":"registry.xlsx","document_paths":["docs/a.pdf"],"options":{"ocr_enabled":false}}`
	req := httptest.NewRequest(http.MethodPost, "/v1/runs", strings.NewReader(payload))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", res.Code, res.Body.String())
	}
	if submitter.gotOpts.OCREnabled == nil || *submitter.gotOpts.OCREnabled {
		t.Fatalf("explicit ocr_enabled=false lost: %+v", submitter.gotOpts)
	}
}

func TestSubmitRunMapsInvalidInputTo400(t *testing.T) {
	handler := newTestHandler(
		&submitterFake{err: domain.WrapError(domain.ErrInvalidInput, "submit run", errors.New("registry_path is required"))},
		&repoFake{},
	)

	req := httptest.NewRequest(http.MethodPost, "/v1/runs", strings.NewReader(`{}`))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestGetRunReturns404ForMissingRun(t *testing.T) {
	handler := newTestHandler(
		&submitterFake{},
		&repoFake{getErr: domain.WrapError(domain.ErrRunNotFound, "get match run", errors.New("id=missing"))},
	)

	req := httptest.NewRequest(http.MethodGet, "/v1/runs/missing", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestExportRejectsUnfinishedRun(t *testing.T) {
	handler := newTestHandler(
		&submitterFake{},
		&repoFake{run: &domain.MatchRun{ID: "run-1", Status: domain.RunRunning}},
	)

	req := httptest.NewRequest(http.MethodGet, "/v1/runs/run-1/export?format=csv", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", res.Code)
	}
}

func TestExportCSVStreamsCandidateRows(t *testing.T) {
	run := &domain.MatchRun{
		ID:     "run-1",
		Status: domain.RunDone,
		Results: []domain.MatchResult{
			{
				FilePath: "docs/a.pdf",
				TopCandidates: []domain.Candidate{
					{AssetID: "AHU-1001", Name: "Air Handler 1", Score: 75, Reasons: []domain.Reason{
						{Kind: domain.ReasonIDMatch},
						{Kind: domain.ReasonSerialMatch},
					}},
				},
			},
		},
	}
	handler := newTestHandler(&submitterFake{}, &repoFake{run: run})

	req := httptest.NewRequest(http.MethodGet, "/v1/runs/run-1/export", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if ct := res.Header().Get("Content-Type"); ct != "text/csv" {
		t.Fatalf("unexpected content type: %s", ct)
	}
	body := res.Body.String()
	if !strings.Contains(body, "AHU-1001") || !strings.Contains(body, "id_match, serial_match") {
		t.Fatalf("unexpected csv body: %q", body)
	}
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	handler := newTestHandler(&submitterFake{}, &repoFake{run: &domain.MatchRun{ID: "run-1", Status: domain.RunDone}})

	req := httptest.NewRequest(http.MethodGet, "/v1/runs/run-1/export?format=pdf", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestAppendConfirmationsReturnsFullLog(t *testing.T) {
	repo := &repoFake{}
	handler := newTestHandler(&submitterFake{}, repo)

	payload := `{"confirmations":[{"file_path":"docs/a.pdf","asset_id":"AHU-1001","decided_by":"inspector"}]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/runs/run-1/confirmations", strings.NewReader(payload))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	var body struct {
		Confirmations domain.ConfirmationLog `json:"confirmations"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body.Confirmations) != 1 || body.Confirmations[0].AssetID != "AHU-1001" {
		t.Fatalf("unexpected log: %+v", body.Confirmations)
	}
	if body.Confirmations[0].DecidedAt.IsZero() {
		t.Fatalf("expected decided_at to be stamped")
	}
}

func TestAppendConfirmationsRequiresEntries(t *testing.T) {
	handler := newTestHandler(&submitterFake{}, &repoFake{})

	req := httptest.NewRequest(http.MethodPost, "/v1/runs/run-1/confirmations", strings.NewReader(`{"confirmations":[]}`))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}
