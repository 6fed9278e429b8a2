package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport() *Report {
	r := NewReport("scan", "audit", "deepseek")

	result := NewScanResult("0xabc123")
	result.SecurityScore = 2
	result.Confidence = 3.4
	result.DatasetMatches = 1
	result.Findings["critical"] = []string{"Potential reentrancy via external call before state update"}
	result.Findings["low"] = []string{"Floating pragma allows compilation with untested compiler versions"}
	result.GasHints = []string{"Cache array length outside loops"}
	result.SecurityStars = 2
	result.AnalysisSummary = "Critical reentrancy confirmed."
	result.AddVulnerability(Vulnerability{
		Type:        "Reentrancy",
		Severity:    "Critical",
		Description: "withdraw() transfers before zeroing balance",
	})
	r.AddScanResult(result)

	clean := NewScanResult("0xdef456")
	r.AddScanResult(clean)

	return r
}

func TestNewReportAssignsRunID(t *testing.T) {
	a := NewReport("scan", "audit", "openai")
	b := NewReport("scan", "audit", "openai")

	assert.NotEmpty(t, a.RunID)
	assert.NotEqual(t, a.RunID, b.RunID)
}

func TestAddScanResultCounters(t *testing.T) {
	r := sampleReport()

	assert.Equal(t, 2, r.TotalContracts)
	assert.Equal(t, 1, r.VulnerableContracts)
	// One static critical finding plus the confirmed "Critical" LLM
	// vulnerability land in the same lowercase bucket.
	assert.Equal(t, 2, r.SeverityDistribution["critical"])
	assert.Equal(t, 1, r.SeverityDistribution["low"])
}

func TestAddScanResultCountsLLMOnlyVulnerabilities(t *testing.T) {
	r := NewReport("scan", "audit", "openai")
	result := NewScanResult("0xllm")
	result.AddVulnerability(Vulnerability{Type: "Access Control", Severity: "High", Description: "owner can drain"})
	r.AddScanResult(result)

	assert.Equal(t, 1, r.VulnerableContracts)
	assert.Equal(t, 1, r.SeverityDistribution["high"])
}

func TestMarkdownGeneratorSections(t *testing.T) {
	content, err := NewMarkdownGenerator().Generate(sampleReport())
	require.NoError(t, err)

	assert.Contains(t, content, "# Solidity Sentinel Audit Report")
	assert.Contains(t, content, "**AI Provider**: deepseek")
	assert.Contains(t, content, "### Contract: 0xabc123")
	assert.Contains(t, content, "**Security score**: 2/5 (confidence 3.4, dataset matches 1)")
	assert.Contains(t, content, "#### Static Findings")
	assert.Contains(t, content, "🔴 **[critical]**")
	assert.Contains(t, content, "#### Gas Optimization Hints")
	assert.Contains(t, content, "#### Confirmed Vulnerabilities")

	// Critical findings render before low ones.
	criticalIdx := strings.Index(content, "🔴 **[critical]**")
	lowIdx := strings.Index(content, "🟢 **[low]**")
	require.Greater(t, criticalIdx, -1)
	require.Greater(t, lowIdx, -1)
	assert.Less(t, criticalIdx, lowIdx)
}

func TestMarkdownGeneratorCleanContractOmitsSections(t *testing.T) {
	r := NewReport("scan", "audit", "none")
	clean := NewScanResult("0xclean")
	clean.SecurityScore = 5
	r.AddScanResult(clean)

	content, err := NewMarkdownGenerator().Generate(r)
	require.NoError(t, err)

	assert.NotContains(t, content, "#### Static Findings")
	assert.NotContains(t, content, "#### Confirmed Vulnerabilities")
	assert.NotContains(t, content, "## Severity Distribution")
	assert.Contains(t, content, "**Security score**: 5/5")
}
