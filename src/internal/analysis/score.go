package analysis

import "math"

// baseConfidenceContribution is what a firing base pattern (or heuristic)
// adds to the confidence sum; enhanced patterns add their prevalence instead.
const baseConfidenceContribution = 0.5

// scoreMatches converts the firing rules into the bounded security score and
// the confidence value. The arithmetic is heuristic and pinned exactly as
// documented: tests assert the literal formula, not an idealized model.
//
// Score: every two severity-weight units of findings cost one star, floored
// at zero. A source with no firing rule scores 5.
//
// Confidence: with dataset matches present, the prevalence-weighted sum is
// normalized by the approximate seriousness surface (dataset match count plus
// the number of critical and high finding entries) and scaled to 0..5.
// Without dataset matches it is simply the capped sum of base contributions.
// The denominator can only be consulted when datasetMatches > 0, so it is
// never zero.
func scoreMatches(matches []match, findings FindingSet) (securityScore int, confidence float64, datasetMatches int) {
	totalWeighted := 0
	confidenceSum := 0.0

	for _, m := range matches {
		totalWeighted += m.count * m.severity.Weight()
		if m.origin == OriginEnhanced {
			confidenceSum += m.prevalence
			datasetMatches++
		} else {
			confidenceSum += baseConfidenceContribution
		}
	}

	securityScore = 5 - totalWeighted/2
	if securityScore < 0 {
		securityScore = 0
	}
	if securityScore > 5 {
		securityScore = 5
	}

	if datasetMatches > 0 {
		denom := float64(datasetMatches + len(findings[SeverityCritical]) + len(findings[SeverityHigh]))
		confidence = math.Min(confidenceSum/denom*5, 5)
	} else {
		confidence = math.Min(confidenceSum, 5)
	}
	confidence = math.Round(confidence*10) / 10

	return securityScore, confidence, datasetMatches
}
