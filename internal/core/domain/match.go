package domain

import (
	"fmt"
	"strings"
	"time"
)

// Signals holds the structured values extracted from one document's text.
// Every value is uppercased and trimmed before insertion; each slice keeps
// first-seen order with duplicates suppressed.
type Signals struct {
	AssetIDs      []string `json:"asset_ids"`
	Serials       []string `json:"serials"`
	Models        []string `json:"models"`
	Manufacturers []string `json:"manufacturers"`
	TitleTerms    string   `json:"title_terms"`
}

// FileMeta is per-document file metadata, computed once per matching run.
// It feeds the folder-hint and hash rules only; it is not document identity.
type FileMeta struct {
	Path    string    `json:"path"`
	Dir     string    `json:"dir"`
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mtime"`
	Hash    string    `json:"hash,omitempty"`
}

// ReasonKind names a scoring rule that fired.
type ReasonKind string

const (
	ReasonIDMatch      ReasonKind = "id_match"
	ReasonSerialMatch  ReasonKind = "serial_match"
	ReasonModelMatch   ReasonKind = "model_match"
	ReasonModelPartial ReasonKind = "model_partial"
	ReasonManufacturer ReasonKind = "manufacturer"
	ReasonFuzzyName    ReasonKind = "fuzzy_name"
	ReasonFolderHint   ReasonKind = "folder_hint"
	ReasonHashMatch    ReasonKind = "hash_match"
)

// Reason is one audit entry explaining a score contribution. Detail carries
// the literal similarity value for fuzzy rules and is zero otherwise.
type Reason struct {
	Kind   ReasonKind `json:"kind"`
	Detail int        `json:"detail,omitempty"`
}

func (r Reason) String() string {
	if r.Kind == ReasonFuzzyName {
		return fmt.Sprintf("%s_%d", r.Kind, r.Detail)
	}
	return string(r.Kind)
}

// JoinReasons renders a reason list in the comma-joined display form.
func JoinReasons(reasons []Reason) string {
	if len(reasons) == 0 {
		return ""
	}
	parts := make([]string, len(reasons))
	for i, r := range reasons {
		parts[i] = r.String()
	}
	return strings.Join(parts, ", ")
}

// Candidate is one asset record scored against one document. Only the top
// few candidates per document survive into a MatchResult.
type Candidate struct {
	AssetID      string   `json:"asset_id"`
	Name         string   `json:"name"`
	Score        int      `json:"score"`
	Reasons      []Reason `json:"reasons"`
	Manufacturer string   `json:"manufacturer"`
	Model        string   `json:"model"`
	Serial       string   `json:"serial"`
	ExternalID   string   `json:"external_id"`
	Project      string   `json:"project"`
}

// MatchResult is the outcome for a single document. A document that failed
// entirely still gets a result, with Error set and no candidates.
type MatchResult struct {
	FilePath      string      `json:"file_path"`
	Signals       Signals     `json:"signals"`
	TopCandidates []Candidate `json:"top_candidates"`
	AutoChoice    *Candidate  `json:"auto_choice,omitempty"`
	Error         string      `json:"error,omitempty"`
}

// BatchDocument is one unit of work in a matching batch: the path the caller
// knows the document by, the resolved local path to read, and any resolution
// error that should fail this document (and only this document).
type BatchDocument struct {
	Path      string
	LocalPath string
	Err       error
}

// MatchOptions is the per-run configuration surface exposed to the host.
type MatchOptions struct {
	ComputeHashes   bool `json:"compute_hashes"`
	OCREnabled      bool `json:"ocr_enabled"`
	OCRMaxPages     int  `json:"ocr_max_pages"`
	AutoAcceptScore int  `json:"auto_accept_score"`
	Concurrency     int  `json:"concurrency"`
}

// MatchOptionsPatch is the submission-time form of MatchOptions. A nil field
// means "not submitted" and inherits the service default; a submitted false
// is an explicit false. Without the pointer indirection a request that omits
// ocr_enabled would silently turn OCR off.
type MatchOptionsPatch struct {
	ComputeHashes   *bool `json:"compute_hashes,omitempty"`
	OCREnabled      *bool `json:"ocr_enabled,omitempty"`
	OCRMaxPages     *int  `json:"ocr_max_pages,omitempty"`
	AutoAcceptScore *int  `json:"auto_accept_score,omitempty"`
	Concurrency     *int  `json:"concurrency,omitempty"`
}

// Resolve applies the patch on top of the service defaults. Non-positive
// numeric values count as unset.
func (p MatchOptionsPatch) Resolve(defaults MatchOptions) MatchOptions {
	out := defaults
	if p.ComputeHashes != nil {
		out.ComputeHashes = *p.ComputeHashes
	}
	if p.OCREnabled != nil {
		out.OCREnabled = *p.OCREnabled
	}
	if p.OCRMaxPages != nil && *p.OCRMaxPages > 0 {
		out.OCRMaxPages = *p.OCRMaxPages
	}
	if p.AutoAcceptScore != nil && *p.AutoAcceptScore > 0 {
		out.AutoAcceptScore = *p.AutoAcceptScore
	}
	if p.Concurrency != nil && *p.Concurrency > 0 {
		out.Concurrency = *p.Concurrency
	}
	return out
}

type RunStatus string

const (
	RunQueued  RunStatus = "queued"
	RunRunning RunStatus = "running"
	RunDone    RunStatus = "done"
	RunFailed  RunStatus = "failed"
)

// MatchRun is one batch submission: the documents to reconcile, the registry
// they are matched against, and (once processed) one result per document in
// submission order. Runs are created fresh per submission and never merged.
type MatchRun struct {
	ID            string          `json:"id"`
	RegistryPath  string          `json:"registry_path"`
	DocumentPaths []string        `json:"document_paths"`
	Options       MatchOptions    `json:"options"`
	Status        RunStatus       `json:"status"`
	Error         string          `json:"error,omitempty"`
	Results       []MatchResult   `json:"results,omitempty"`
	Confirmations ConfirmationLog `json:"confirmations"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Confirmation records a human decision linking one document to one asset.
type Confirmation struct {
	FilePath  string    `json:"file_path"`
	AssetID   string    `json:"asset_id"`
	DecidedBy string    `json:"decided_by,omitempty"`
	DecidedAt time.Time `json:"decided_at"`
}

// ConfirmationLog is the caller-owned, append-only record of confirmations
// across interaction rounds. The scoring core never reads it.
type ConfirmationLog []Confirmation

// ExportRow is one row of the flat (document, candidate) table produced for
// downstream persistence.
type ExportRow struct {
	FilePath     string `json:"file_path"`
	AssetID      string `json:"asset_id"`
	AssetName    string `json:"asset_name"`
	Score        int    `json:"score"`
	Reasons      string `json:"reasons"`
	Manufacturer string `json:"manufacturer"`
	Model        string `json:"model"`
	Serial       string `json:"serial"`
	ExternalID   string `json:"external_id"`
	Project      string `json:"project"`
}
