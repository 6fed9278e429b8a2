package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeverityWeights(t *testing.T) {
	assert.Equal(t, 4, SeverityCritical.Weight())
	assert.Equal(t, 3, SeverityHigh.Weight())
	assert.Equal(t, 2, SeverityMedium.Weight())
	assert.Equal(t, 1, SeverityLow.Weight())
	assert.Equal(t, 0, Severity("bogus").Weight())
}

func TestScoreMatchesNoFindings(t *testing.T) {
	score, confidence, dataset := scoreMatches(nil, FindingSet{})
	assert.Equal(t, 5, score)
	assert.Equal(t, 0.0, confidence)
	assert.Zero(t, dataset)
}

func TestScoreMatchesTwoWeightUnitsPerStar(t *testing.T) {
	tests := []struct {
		name    string
		matches []match
		want    int
	}{
		{"one low", []match{{severity: SeverityLow, count: 1, origin: OriginBase}}, 5},
		{"one medium", []match{{severity: SeverityMedium, count: 1, origin: OriginBase}}, 4},
		{"one critical", []match{{severity: SeverityCritical, count: 1, origin: OriginBase}}, 3},
		{"critical plus high", []match{
			{severity: SeverityCritical, count: 1, origin: OriginBase},
			{severity: SeverityHigh, count: 1, origin: OriginBase},
		}, 2},
		{"three critical matches on one pattern", []match{{severity: SeverityCritical, count: 3, origin: OriginBase}}, 0},
		{"floor stays at zero", []match{{severity: SeverityCritical, count: 50, origin: OriginBase}}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, _, _ := scoreMatches(tt.matches, FindingSet{})
			assert.Equal(t, tt.want, score)
		})
	}
}

func TestConfidenceBaseOnly(t *testing.T) {
	// Base patterns contribute a flat 0.5 each; no dataset matches means the
	// sum is used directly, capped at 5.
	matches := []match{
		{severity: SeverityLow, count: 1, origin: OriginBase},
		{severity: SeverityLow, count: 1, origin: OriginBase},
		{severity: SeverityLow, count: 1, origin: OriginBase},
	}
	_, confidence, dataset := scoreMatches(matches, FindingSet{})
	assert.Zero(t, dataset)
	assert.Equal(t, 1.5, confidence)

	var many []match
	for i := 0; i < 20; i++ {
		many = append(many, match{severity: SeverityLow, count: 1, origin: OriginBase})
	}
	_, confidence, _ = scoreMatches(many, FindingSet{})
	assert.Equal(t, 5.0, confidence, "base-only confidence is capped at 5")
}

func TestConfidenceDatasetNormalization(t *testing.T) {
	// One enhanced match with prevalence 0.41 and one base match:
	// sum = 0.91, denominator = dataset(1) + critical entries(1) + high entries(0) = 2,
	// confidence = 0.91/2*5 = 2.275 -> 2.3 after rounding.
	matches := []match{
		{severity: SeverityCritical, count: 1, origin: OriginEnhanced, prevalence: 0.41},
		{severity: SeverityCritical, count: 1, origin: OriginBase},
	}
	findings := FindingSet{SeverityCritical: {"a"}}

	_, confidence, dataset := scoreMatches(matches, findings)
	assert.Equal(t, 1, dataset)
	assert.Equal(t, 2.3, confidence)
}

func TestConfidenceDatasetCap(t *testing.T) {
	// Prevalence 1.0, denominator 1: 1.0/1*5 = 5, already at the cap.
	matches := []match{{severity: SeverityLow, count: 1, origin: OriginEnhanced, prevalence: 1.0}}
	_, confidence, _ := scoreMatches(matches, FindingSet{})
	assert.Equal(t, 5.0, confidence)
}

func TestConfidenceRoundedToOneDecimal(t *testing.T) {
	// 0.33/1*5 = 1.65 -> 1.7 (math.Round half away from zero).
	matches := []match{{severity: SeverityLow, count: 1, origin: OriginEnhanced, prevalence: 0.33}}
	_, confidence, _ := scoreMatches(matches, FindingSet{})
	assert.Equal(t, 1.7, confidence)
}
