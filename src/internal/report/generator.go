package report

import (
	"fmt"
	"strings"
	"time"
)

// ScanResult is the outcome of auditing one contract: the deterministic
// pre-analysis plus the optional LLM verdict.
type ScanResult struct {
	ContractAddress string
	ScanTime        time.Time
	Status          string

	// Static engine output.
	SecurityScore  int
	Confidence     float64
	DatasetMatches int
	Findings       map[string][]string // severity -> descriptions
	GasHints       []string

	// LLM verdict, when a provider ran.
	SecurityStars   int
	Vulnerabilities []Vulnerability
	AnalysisSummary string
	RawResponse     string
}

// Vulnerability is one issue confirmed in the final verdict.
type Vulnerability struct {
	Type        string
	Severity    string
	Description string
}

// Report is a full audit run over one or more contracts.
type Report struct {
	RunID                string
	Mode                 string
	Strategy             string
	AIProvider           string
	ScanTime             time.Time
	TotalContracts       int
	VulnerableContracts  int
	SeverityDistribution map[string]int
	Results              []ScanResult
}

// Generator renders a report into a serializable document.
type Generator interface {
	Generate(report *Report) (string, error)
}

// MarkdownGenerator renders reports as markdown.
type MarkdownGenerator struct{}

func NewMarkdownGenerator() *MarkdownGenerator {
	return &MarkdownGenerator{}
}

// severityRenderOrder keeps finding sections stable across runs.
var severityRenderOrder = []string{"critical", "high", "medium", "low"}

// Generate renders the markdown document.
func (g *MarkdownGenerator) Generate(report *Report) (string, error) {
	var b strings.Builder

	b.WriteString("# Solidity Sentinel Audit Report\n\n")
	b.WriteString(fmt.Sprintf("**Run ID**: %s\n", report.RunID))
	b.WriteString(fmt.Sprintf("**Mode**: %s\n", report.Mode))
	b.WriteString(fmt.Sprintf("**Strategy**: %s\n", report.Strategy))
	b.WriteString(fmt.Sprintf("**AI Provider**: %s\n", report.AIProvider))
	b.WriteString(fmt.Sprintf("**Scan Time**: %s\n\n", report.ScanTime.Format("2006-01-02 15:04:05")))

	b.WriteString("## Summary\n\n")
	b.WriteString(fmt.Sprintf("- **Total contracts**: %d\n", report.TotalContracts))
	b.WriteString(fmt.Sprintf("- **Contracts with findings**: %d\n\n", report.VulnerableContracts))

	if len(report.SeverityDistribution) > 0 {
		b.WriteString("## Severity Distribution\n\n")
		for _, severity := range severityRenderOrder {
			if count, ok := report.SeverityDistribution[severity]; ok {
				b.WriteString(fmt.Sprintf("- %s **%s**: %d\n", getSeverityIcon(severity), severity, count))
			}
		}
		b.WriteString("\n")
	}

	b.WriteString("## Results\n\n")

	for i, scanResult := range report.Results {
		b.WriteString(fmt.Sprintf("### Contract: %s\n\n", scanResult.ContractAddress))
		b.WriteString(fmt.Sprintf("**Scan time**: %s\n", scanResult.ScanTime.Format("2006-01-02 15:04:05")))
		b.WriteString(fmt.Sprintf("**Status**: %s\n", scanResult.Status))
		b.WriteString(fmt.Sprintf("**Security score**: %d/5 (confidence %.1f, dataset matches %d)\n\n",
			scanResult.SecurityScore, scanResult.Confidence, scanResult.DatasetMatches))

		if hasFindings(scanResult.Findings) {
			b.WriteString("#### Static Findings\n\n")
			for _, severity := range severityRenderOrder {
				for _, desc := range scanResult.Findings[severity] {
					b.WriteString(fmt.Sprintf("- %s **[%s]** %s\n", getSeverityIcon(severity), severity, desc))
				}
			}
			b.WriteString("\n")
		}

		if len(scanResult.GasHints) > 0 {
			b.WriteString("#### Gas Optimization Hints\n\n")
			for _, hint := range scanResult.GasHints {
				b.WriteString(fmt.Sprintf("- %s\n", hint))
			}
			b.WriteString("\n")
		}

		if scanResult.AnalysisSummary != "" {
			b.WriteString("#### AI Analysis Summary\n\n")
			b.WriteString(fmt.Sprintf("%s\n\n", scanResult.AnalysisSummary))
			b.WriteString(fmt.Sprintf("**Stars**: %d/5\n\n", scanResult.SecurityStars))
		}

		if len(scanResult.Vulnerabilities) > 0 {
			b.WriteString("#### Confirmed Vulnerabilities\n\n")
			for j, vuln := range scanResult.Vulnerabilities {
				severityIcon := getSeverityIcon(vuln.Severity)
				b.WriteString(fmt.Sprintf("%d. %s **[%s]** %s\n", j+1, severityIcon, vuln.Severity, vuln.Type))
				b.WriteString(fmt.Sprintf("   **Description**: %s\n\n", vuln.Description))
			}
		}

		if scanResult.RawResponse != "" {
			b.WriteString("#### Raw AI Response\n\n")
			b.WriteString(fmt.Sprintf("```\n%s\n```\n\n", scanResult.RawResponse))
		}

		if i < len(report.Results)-1 {
			b.WriteString("---\n\n")
		}
	}

	return b.String(), nil
}

func hasFindings(findings map[string][]string) bool {
	for _, v := range findings {
		if len(v) > 0 {
			return true
		}
	}
	return false
}

func getSeverityIcon(severity string) string {
	switch strings.ToLower(severity) {
	case "critical":
		return "🔴"
	case "high":
		return "🟠"
	case "medium":
		return "🟡"
	case "low":
		return "🟢"
	default:
		return "⚪"
	}
}
