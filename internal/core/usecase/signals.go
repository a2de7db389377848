package usecase

import (
	"regexp"
	"strings"

	"github.com/rextmaxwell/O-M-Asset-Identifier/internal/core/domain"
)

// SignalPatterns is the extraction policy: one ordered regex family per
// signal category. The grammars encode organizational tag conventions and are
// injectable so deployments can swap them without touching the engine.
type SignalPatterns struct {
	AssetIDs      []*regexp.Regexp
	Serials       []*regexp.Regexp
	Models        []*regexp.Regexp
	Manufacturers []*regexp.Regexp

	// AssetTokens tokenizes registry identity fields with the same tag
	// grammar, minus the explicit TAG-label variant.
	AssetTokens *regexp.Regexp
}

// DefaultSignalPatterns returns the stock grammar set: short uppercase
// prefixes with numeric suffixes for tags, and labeled-field captures for
// serial, model, and manufacturer.
func DefaultSignalPatterns() SignalPatterns {
	return SignalPatterns{
		AssetIDs: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b[A-Z]{2,5}-\d{3,8}\b`),
			regexp.MustCompile(`(?i)\b[A-Z]{2,5}\d{3,8}\b`),
			regexp.MustCompile(`(?i)\bTAG[-\s]?\d{3,8}\b`),
		},
		Serials: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(?:S/?N|Serial(?:\sNo\.|\sNumber)?|SERIAL\sNO\.?)[:\s#\-]*([A-Z0-9\-]{5,20})\b`),
			regexp.MustCompile(`(?i)\bSN[:\s#\-]*([A-Z0-9\-]{5,20})\b`),
		},
		Models: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bModel(?:\sNo\.|\sNumber)?[:\s#\-]*([A-Z0-9\-\._]{2,30})\b`),
			regexp.MustCompile(`(?i)\b(?:Type|Model)\s([A-Z0-9\-\._]{2,30})\b`),
		},
		Manufacturers: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bManufacturer[:\s]*([A-Za-z0-9&\-\., ]{2,50})\b`),
			regexp.MustCompile(`(?i)\bMade by[:\s]*([A-Za-z0-9&\-\., ]{2,50})\b`),
		},
		AssetTokens: regexp.MustCompile(`[A-Z]{2,5}-\d{3,8}|[A-Z]{2,5}\d{3,8}`),
	}
}

// Parse extracts all signal categories from document text. Pure function:
// no I/O, deterministic for identical text.
func (p SignalPatterns) Parse(text string) domain.Signals {
	return domain.Signals{
		AssetIDs:      findWithPatterns(text, p.AssetIDs),
		Serials:       findWithPatterns(text, p.Serials),
		Models:        findWithPatterns(text, p.Models),
		Manufacturers: findWithPatterns(text, p.Manufacturers),
		TitleTerms:    guessTitleTerms(text),
	}
}

// findWithPatterns evaluates each pattern over the whole text, in pattern
// order. The captured group is used when the pattern defines one, otherwise
// the whole match. Values are trimmed, uppercased, and deduplicated keeping
// first-seen order.
func findWithPatterns(text string, patterns []*regexp.Regexp) []string {
	var found []string
	seen := make(map[string]struct{})
	for _, pat := range patterns {
		for _, m := range pat.FindAllStringSubmatch(text, -1) {
			val := m[0]
			if len(m) > 1 {
				val = m[1]
			}
			val = strings.ToUpper(strings.Trim(strings.TrimSpace(val), ":#- "))
			if val == "" {
				continue
			}
			if _, dup := seen[val]; dup {
				continue
			}
			seen[val] = struct{}{}
			found = append(found, val)
		}
	}
	return found
}

const titleTermsLineCount = 20

var (
	boilerplateRe = regexp.MustCompile(`(?i)\b(operations|maintenance|manual|instructions|guide|table of contents)\b`)
	whitespaceRe  = regexp.MustCompile(`\s+`)
)

// guessTitleTerms joins the first non-blank lines of the document and strips
// generic manual boilerplate. Low precision on purpose: it only feeds the
// fuzzy name comparison, it does not identify a title.
func guessTitleTerms(text string) string {
	var lines []string
	for _, ln := range strings.Split(text, "\n") {
		ln = strings.TrimSpace(ln)
		if ln == "" {
			continue
		}
		lines = append(lines, ln)
		if len(lines) == titleTermsLineCount {
			break
		}
	}
	header := strings.Join(lines, " ")
	header = boilerplateRe.ReplaceAllString(header, " ")
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(header, " "))
}

var punctRe = regexp.MustCompile(`[_\-\.\(\)\[\],]`)

// normalizeLoose prepares a string for token-set fuzzy comparison:
// punctuation collapsed to spaces, whitespace normalized, lowercased.
func normalizeLoose(s string) string {
	s = punctRe.ReplaceAllString(s, " ")
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.ToLower(strings.TrimSpace(s))
}
