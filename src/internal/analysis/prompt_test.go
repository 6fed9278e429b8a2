package analysis

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatForModelDeterministic(t *testing.T) {
	kb := NewKnowledgeBase(Options{ArtifactPath: artifactPath})

	source := `function sweep() external {
    msg.sender.call{value: address(this).balance}("");
    swept[msg.sender] = 0;
}`
	result, err := kb.Analyze(source)
	require.NoError(t, err)

	recs := []string{"Run the suite against a forked mainnet"}
	first := FormatForModel(source, result, recs)
	second := FormatForModel(source, result, recs)
	assert.Equal(t, first, second, "same inputs must yield byte-identical output")
}

func TestFormatForModelSections(t *testing.T) {
	kb := NewKnowledgeBase(Options{ArtifactPath: artifactPath})

	source := `selfdestruct(target);`
	result, err := kb.Analyze(source)
	require.NoError(t, err)

	out := FormatForModel(source, result, nil)

	assert.True(t, strings.HasPrefix(out, "=== STATIC PRE-ANALYSIS ===\n"))
	assert.Contains(t, out, "Knowledge base: 12 patterns (dataset-enhanced)")
	assert.Contains(t, out, "[CRITICAL]")
	assert.Contains(t, out, "--- RECOMMENDATIONS ---")
	assert.Contains(t, out, "--- CONTRACT SOURCE ---\nselfdestruct(target);\n")
	assert.True(t, strings.HasSuffix(out, "=== END PRE-ANALYSIS ===\n"))
}

func TestFormatForModelSeverityOrderAndEmptyBuckets(t *testing.T) {
	result := &AnalysisResult{
		Findings: FindingSet{
			SeverityLow:      {"low finding"},
			SeverityCritical: {"critical finding"},
		},
		SecurityScore: 2,
		CatalogSize:   BaseCatalogSize,
	}

	out := FormatForModel("contract C {}", result, nil)

	critIdx := strings.Index(out, "[CRITICAL]")
	lowIdx := strings.Index(out, "[LOW]")
	require.Positive(t, critIdx)
	require.Positive(t, lowIdx)
	assert.Less(t, critIdx, lowIdx, "severity sections render in fixed order")
	assert.NotContains(t, out, "[HIGH]", "empty buckets are omitted")
	assert.NotContains(t, out, "[MEDIUM]")
}

func TestFormatForModelNoFindings(t *testing.T) {
	result := &AnalysisResult{
		Findings:      FindingSet{},
		SecurityScore: 5,
		CatalogSize:   BaseCatalogSize,
	}
	out := FormatForModel("contract C {}", result, nil)
	assert.Contains(t, out, "No findings from static pattern matching.")
	assert.Contains(t, out, "base catalog only")
}

func TestFormatForModelDedupesRecommendations(t *testing.T) {
	result := &AnalysisResult{
		Findings:        FindingSet{},
		Recommendations: []string{"fix A", "fix B", "fix A"},
		SecurityScore:   4,
	}
	out := FormatForModel("x", result, []string{"fix B", "fix C"})

	recSection := out[strings.Index(out, "--- RECOMMENDATIONS ---"):strings.Index(out, "--- CONTRACT SOURCE ---")]
	assert.Equal(t, 1, strings.Count(recSection, "fix A"))
	assert.Equal(t, 1, strings.Count(recSection, "fix B"))
	assert.Equal(t, 1, strings.Count(recSection, "fix C"))

	aIdx := strings.Index(recSection, "fix A")
	bIdx := strings.Index(recSection, "fix B")
	cIdx := strings.Index(recSection, "fix C")
	assert.Less(t, aIdx, bIdx)
	assert.Less(t, bIdx, cIdx)
}

func TestDedupePreserveOrder(t *testing.T) {
	in := []string{"a", "b", "a", "", "c", "b"}
	assert.Equal(t, []string{"a", "b", "c"}, dedupePreserveOrder(in))
}
