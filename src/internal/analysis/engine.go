package analysis

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSourceTooLarge is returned when the input exceeds the configured byte
// cap. Distinct so the caller can tell the user instead of silently truncating.
var ErrSourceTooLarge = errors.New("source text too large for analysis")

// FindingSet groups finding descriptions by severity. Created fresh per
// Analyze call, never mutated after return.
type FindingSet map[Severity][]string

// Total returns the number of finding entries across all buckets.
func (fs FindingSet) Total() int {
	n := 0
	for _, bucket := range fs {
		n += len(bucket)
	}
	return n
}

// AnalysisResult is the pure value returned to the caller.
type AnalysisResult struct {
	Findings          FindingSet `json:"findings"`
	GasHints          []string   `json:"gas_hints,omitempty"`
	Recommendations   []string   `json:"recommendations,omitempty"`
	SecurityScore     int        `json:"security_score"`
	Confidence        float64    `json:"confidence"`
	DatasetMatchCount int        `json:"dataset_match_count"`
	CatalogSize       int        `json:"catalog_size"`
	Enhanced          bool       `json:"enhanced"`
}

// match records one firing rule for the scoring pass. Heuristic detectors
// fire as base-origin matches with count 1.
type match struct {
	severity   Severity
	count      int
	origin     Origin
	prevalence float64
}

// Analyze runs every catalog pattern and every heuristic detector against the
// source text. Matching is purely textual — no AST, no symbol resolution — so
// it works on syntactically invalid or partial snippets. The call performs no
// I/O and is safe to invoke concurrently against the same knowledge base.
func (kb *KnowledgeBase) Analyze(source string) (*AnalysisResult, error) {
	if len(source) > kb.maxSourceBytes {
		return nil, fmt.Errorf("%w: %d bytes (limit %d)", ErrSourceTooLarge, len(source), kb.maxSourceBytes)
	}

	catalog, enhanced := kb.snapshot()

	findings := make(FindingSet)
	var matches []match
	var recommendations []string

	for i := range catalog {
		p := &catalog[i]
		n := len(p.re.FindAllStringIndex(source, -1))
		if n == 0 {
			continue
		}
		// One description per firing pattern regardless of how often it
		// fires; the raw count still feeds the scoring pass.
		findings[p.Severity] = append(findings[p.Severity], p.Description)
		if p.Recommendation != "" {
			recommendations = append(recommendations, p.Recommendation)
		}
		matches = append(matches, match{
			severity:   p.Severity,
			count:      n,
			origin:     p.Origin,
			prevalence: p.Prevalence,
		})
	}

	lines := strings.Split(source, "\n")
	for _, d := range detectors {
		if !d.fire(lines) {
			continue
		}
		findings[d.severity] = append(findings[d.severity], d.description)
		if d.recommendation != "" {
			recommendations = append(recommendations, d.recommendation)
		}
		matches = append(matches, match{severity: d.severity, count: 1, origin: OriginBase})
	}

	securityScore, confidence, datasetMatches := scoreMatches(matches, findings)

	return &AnalysisResult{
		Findings:          findings,
		GasHints:          gasHints(source, lines),
		Recommendations:   recommendations,
		SecurityScore:     securityScore,
		Confidence:        confidence,
		DatasetMatchCount: datasetMatches,
		CatalogSize:       len(catalog),
		Enhanced:          enhanced,
	}, nil
}
