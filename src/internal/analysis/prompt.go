package analysis

import (
	"fmt"
	"strings"
)

// FormatForModel renders the deterministic pre-analysis into the text block
// handed to the LLM alongside the product's instruction template. Same inputs
// produce byte-identical output; the function performs no I/O.
func FormatForModel(source string, result *AnalysisResult, contextualRecommendations []string) string {
	var b strings.Builder

	b.WriteString("=== STATIC PRE-ANALYSIS ===\n")
	enhancement := "base catalog only"
	if result.Enhanced {
		enhancement = "dataset-enhanced"
	}
	fmt.Fprintf(&b, "Knowledge base: %d patterns (%s)\n", result.CatalogSize, enhancement)
	fmt.Fprintf(&b, "Security score: %d/5\n", result.SecurityScore)
	fmt.Fprintf(&b, "Confidence: %.1f/5\n", result.Confidence)
	fmt.Fprintf(&b, "Dataset pattern matches: %d\n", result.DatasetMatchCount)

	b.WriteString("\n--- FINDINGS ---\n")
	if result.Findings.Total() == 0 {
		b.WriteString("No findings from static pattern matching.\n")
	}
	for _, sev := range severityOrder {
		bucket := result.Findings[sev]
		if len(bucket) == 0 {
			continue
		}
		fmt.Fprintf(&b, "[%s]\n", strings.ToUpper(string(sev)))
		for _, desc := range bucket {
			fmt.Fprintf(&b, "- %s\n", desc)
		}
	}

	recs := dedupePreserveOrder(append(append([]string{}, result.Recommendations...), contextualRecommendations...))
	if len(recs) > 0 {
		b.WriteString("\n--- RECOMMENDATIONS ---\n")
		for _, rec := range recs {
			fmt.Fprintf(&b, "- %s\n", rec)
		}
	}

	if len(result.GasHints) > 0 {
		b.WriteString("\n--- GAS OPTIMIZATION HINTS ---\n")
		for _, hint := range result.GasHints {
			fmt.Fprintf(&b, "- %s\n", hint)
		}
	}

	b.WriteString("\n--- CONTRACT SOURCE ---\n")
	b.WriteString(source)
	if !strings.HasSuffix(source, "\n") {
		b.WriteString("\n")
	}
	b.WriteString("=== END PRE-ANALYSIS ===\n")

	return b.String()
}

// dedupePreserveOrder drops exact duplicates, keeping first occurrences in
// their original order.
func dedupePreserveOrder(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item == "" || seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	return out
}
