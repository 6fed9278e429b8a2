package handler

import (
	"github.com/w3guard/solidity-sentinel/src/internal/ai/parser"
	"github.com/w3guard/solidity-sentinel/src/internal/analysis"
	"github.com/w3guard/solidity-sentinel/src/internal/report"
)

// applyVerdict folds the LLM verdict into the scan result. The deterministic
// engine is the floor authority: when it reported critical or high findings,
// the final star rating can never exceed its own score, no matter how
// optimistic the model is.
func applyVerdict(scanResult *report.ScanResult, staticResult *analysis.AnalysisResult, verdict *parser.Verdict) {
	if verdict == nil {
		scanResult.SecurityStars = staticResult.SecurityScore
		return
	}

	if verdict.ParseError != "" {
		// Keep the raw reply for the report; trust only the static score.
		scanResult.SetStatus("⚠️ AI reply unparseable, static verdict only")
		scanResult.SetRawResponse(verdict.RawResponse)
		scanResult.SecurityStars = staticResult.SecurityScore
		return
	}

	scanResult.SetAnalysisSummary(verdict.Summary)
	for _, vuln := range verdict.Vulnerabilities {
		scanResult.AddVulnerability(report.Vulnerability{
			Type:        vuln.Type,
			Severity:    vuln.Severity,
			Description: vuln.Description,
		})
	}
	scanResult.SecurityStars = mergeStars(staticResult, verdict.SecurityStars)
}

// mergeStars clamps the model's star rating against the static score when the
// engine holds hard evidence (critical or high findings).
func mergeStars(staticResult *analysis.AnalysisResult, llmStars int) int {
	if llmStars < 0 {
		llmStars = 0
	}
	if llmStars > 5 {
		llmStars = 5
	}

	hardEvidence := len(staticResult.Findings[analysis.SeverityCritical]) > 0 ||
		len(staticResult.Findings[analysis.SeverityHigh]) > 0
	if hardEvidence && llmStars > staticResult.SecurityScore {
		return staticResult.SecurityScore
	}
	return llmStars
}
