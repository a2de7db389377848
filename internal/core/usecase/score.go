package usecase

import (
	"strings"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"

	"github.com/rextmaxwell/O-M-Asset-Identifier/internal/core/domain"
)

// ScorePolicy carries the matching weights and thresholds. The values are
// hand-tuned policy constants; changing their relative magnitudes changes
// ranking outcomes, so deployments override them as a whole.
type ScorePolicy struct {
	IDMatch      int
	SerialMatch  int
	ModelMatch   int
	ModelPartial int
	Manufacturer int
	FuzzyStrong  int
	FuzzyWeak    int
	FolderHint   int

	// Similarity thresholds on the 0-100 token-set scale.
	FuzzyStrongMin  int
	FuzzyWeakMin    int
	ManufacturerMin int

	// ModelPartialMinLen guards substring containment against spurious
	// short-string hits.
	ModelPartialMinLen int

	// HashFloor is the ceiling override: an exact content-hash match forces
	// the score up to at least this value.
	HashFloor int
}

func DefaultScorePolicy() ScorePolicy {
	return ScorePolicy{
		IDMatch:      50,
		SerialMatch:  25,
		ModelMatch:   20,
		ModelPartial: 15,
		Manufacturer: 10,
		FuzzyStrong:  20,
		FuzzyWeak:    10,
		FolderHint:   10,

		FuzzyStrongMin:  90,
		FuzzyWeakMin:    80,
		ManufacturerMin: 90,

		ModelPartialMinLen: 4,
		HashFloor:          100,
	}
}

// Scorer compares one document's signals against asset records. Pure and
// deterministic: identical inputs yield an identical score and reason list.
type Scorer struct {
	policy   ScorePolicy
	patterns SignalPatterns
}

func NewScorer(policy ScorePolicy, patterns SignalPatterns) *Scorer {
	return &Scorer{policy: policy, patterns: patterns}
}

// Score applies every rule independently and additively, except the
// model match/partial pair (at most one fires) and the hash override
// (a floor, not an addition). No rule ever subtracts.
func (s *Scorer) Score(meta domain.FileMeta, asset domain.AssetRecord, sig domain.Signals) (int, []domain.Reason) {
	score := 0
	var reasons []domain.Reason

	if s.idIntersects(asset, sig.AssetIDs) {
		score += s.policy.IDMatch
		reasons = append(reasons, domain.Reason{Kind: domain.ReasonIDMatch})
	}

	if serial := strings.ToUpper(asset.Serial); serial != "" && containsString(sig.Serials, serial) {
		score += s.policy.SerialMatch
		reasons = append(reasons, domain.Reason{Kind: domain.ReasonSerialMatch})
	}

	if model := strings.ToUpper(asset.Model); model != "" {
		if containsString(sig.Models, model) {
			score += s.policy.ModelMatch
			reasons = append(reasons, domain.Reason{Kind: domain.ReasonModelMatch})
		} else {
			// Models often differ only by hyphens or embedded spaces; accept
			// containment either direction above the length guard.
			for _, m := range sig.Models {
				if len(m) >= s.policy.ModelPartialMinLen &&
					(strings.Contains(model, m) || strings.Contains(m, model)) {
					score += s.policy.ModelPartial
					reasons = append(reasons, domain.Reason{Kind: domain.ReasonModelPartial})
					break
				}
			}
		}
	}

	if mfr := normalizeLoose(asset.Manufacturer); mfr != "" {
		// Intentionally uncapped: each extracted manufacturer string that
		// clears the threshold contributes.
		for _, m := range sig.Manufacturers {
			if fuzzy.TokenSetRatio(mfr, normalizeLoose(m)) >= s.policy.ManufacturerMin {
				score += s.policy.Manufacturer
				reasons = append(reasons, domain.Reason{Kind: domain.ReasonManufacturer})
			}
		}
	}

	if name := normalizeLoose(asset.Name); name != "" && sig.TitleTerms != "" {
		sim := fuzzy.TokenSetRatio(name, normalizeLoose(sig.TitleTerms))
		switch {
		case sim >= s.policy.FuzzyStrongMin:
			score += s.policy.FuzzyStrong
			reasons = append(reasons, domain.Reason{Kind: domain.ReasonFuzzyName, Detail: sim})
		case sim >= s.policy.FuzzyWeakMin:
			score += s.policy.FuzzyWeak
			reasons = append(reasons, domain.Reason{Kind: domain.ReasonFuzzyName, Detail: sim})
		}
	}

	if asset.Project != "" && strings.Contains(strings.ToLower(meta.Dir), strings.ToLower(asset.Project)) {
		score += s.policy.FolderHint
		reasons = append(reasons, domain.Reason{Kind: domain.ReasonFolderHint})
	}

	// A content hash is conclusive proof of identity regardless of how the
	// descriptive fields compare.
	if meta.Hash != "" && asset.FileHash != "" && meta.Hash == asset.FileHash {
		if score < s.policy.HashFloor {
			score = s.policy.HashFloor
		}
		reasons = append(reasons, domain.Reason{Kind: domain.ReasonHashMatch})
	}

	return score, reasons
}

// idIntersects tokenizes the asset's identity fields with the tag grammar and
// checks for any overlap with the document's extracted asset IDs.
func (s *Scorer) idIntersects(asset domain.AssetRecord, docIDs []string) bool {
	if len(docIDs) == 0 {
		return false
	}
	docSet := make(map[string]struct{}, len(docIDs))
	for _, id := range docIDs {
		docSet[id] = struct{}{}
	}
	for _, field := range []string{asset.AssetID, asset.ExternalID, asset.Tag, asset.Name} {
		if field == "" {
			continue
		}
		for _, tok := range s.patterns.AssetTokens.FindAllString(strings.ToUpper(field), -1) {
			if _, ok := docSet[tok]; ok {
				return true
			}
		}
	}
	return false
}

func containsString(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
