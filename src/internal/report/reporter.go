package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Reporter pairs a Generator with a Storage backend.
type Reporter struct {
	generator Generator
	storage   Storage
}

func NewReporter(generator Generator, storage Storage) *Reporter {
	return &Reporter{
		generator: generator,
		storage:   storage,
	}
}

// GenerateAndSave renders and persists the report, returning the location
// the storage backend reports.
func (r *Reporter) GenerateAndSave(report *Report) (string, error) {
	content, err := r.generator.Generate(report)
	if err != nil {
		return "", fmt.Errorf("failed to generate report: %w", err)
	}

	location, err := r.storage.Save(report, content)
	if err != nil {
		return "", fmt.Errorf("failed to save report: %w", err)
	}
	return location, nil
}

// NewReport creates an empty report with a fresh run id.
func NewReport(mode, strategy, aiProvider string) *Report {
	return &Report{
		RunID:                uuid.NewString(),
		Mode:                 mode,
		Strategy:             strategy,
		AIProvider:           aiProvider,
		ScanTime:             time.Now(),
		SeverityDistribution: make(map[string]int),
		Results:              make([]ScanResult, 0),
	}
}

// AddScanResult appends a result and updates the aggregate counters. Both
// static findings and confirmed LLM vulnerabilities feed the distribution;
// LLM severities are folded onto the lowercase vocabulary the static engine
// uses so the buckets line up.
func (r *Report) AddScanResult(result ScanResult) {
	r.Results = append(r.Results, result)
	r.TotalContracts++

	vulnerable := false
	for severity, descs := range result.Findings {
		if len(descs) == 0 {
			continue
		}
		vulnerable = true
		r.SeverityDistribution[severity] += len(descs)
	}
	for _, vuln := range result.Vulnerabilities {
		vulnerable = true
		r.SeverityDistribution[strings.ToLower(vuln.Severity)]++
	}
	if vulnerable {
		r.VulnerableContracts++
	}
}

// NewScanResult creates a result shell for one contract.
func NewScanResult(contractAddress string) ScanResult {
	return ScanResult{
		ContractAddress: contractAddress,
		ScanTime:        time.Now(),
		Status:          "✅ scan complete",
		Findings:        make(map[string][]string),
	}
}

func (s *ScanResult) AddVulnerability(vuln Vulnerability) {
	s.Vulnerabilities = append(s.Vulnerabilities, vuln)
}

func (s *ScanResult) SetStatus(status string) {
	s.Status = status
}

func (s *ScanResult) SetAnalysisSummary(summary string) {
	s.AnalysisSummary = summary
}

func (s *ScanResult) SetRawResponse(response string) {
	s.RawResponse = response
}
