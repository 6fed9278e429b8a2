package parser

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Parser turns the model's reply text into a structured Verdict. Models wrap
// JSON in markdown fences or prose more often than not, so parsing is a
// ladder: direct decode, fenced block, then a cleaned brace-to-brace slice.
type Parser struct {
	jsonExtractor *regexp.Regexp
}

func NewParser() *Parser {
	jsonRegex := regexp.MustCompile("```(?:json)?\n?([\\s\\S]*?)\n?```")

	return &Parser{
		jsonExtractor: jsonRegex,
	}
}

// Parse decodes the reply into a Verdict.
func (p *Parser) Parse(response string) (*Verdict, error) {
	var verdict Verdict
	err := json.Unmarshal([]byte(response), &verdict)
	if err == nil {
		return &verdict, nil
	}

	matches := p.jsonExtractor.FindStringSubmatch(response)
	if len(matches) > 1 {
		jsonStr := strings.TrimSpace(matches[1])
		if err = json.Unmarshal([]byte(jsonStr), &verdict); err == nil {
			return &verdict, nil
		}
	}

	cleaned := p.cleanResponse(response)
	if err = json.Unmarshal([]byte(cleaned), &verdict); err == nil {
		return &verdict, nil
	}

	return nil, fmt.Errorf("failed to parse AI response as JSON: %w", err)
}

// cleanResponse strips fence markers and slices the outermost JSON object.
func (p *Parser) cleanResponse(response string) string {
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")
	response = strings.TrimSpace(response)

	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start >= 0 && end > start {
		response = response[start : end+1]
	}
	return response
}

// ValidateVerdict normalizes a decoded verdict: missing severities default to
// Medium and stars are clamped to [0, 5].
func (p *Parser) ValidateVerdict(verdict *Verdict) error {
	if verdict == nil {
		return fmt.Errorf("verdict is nil")
	}

	for i := range verdict.Vulnerabilities {
		v := &verdict.Vulnerabilities[i]
		if v.Type == "" {
			return fmt.Errorf("vulnerability %d missing type", i)
		}
		if v.Description == "" {
			return fmt.Errorf("vulnerability %d missing description", i)
		}
		if v.Severity == "" {
			v.Severity = string(SeverityMedium)
		}
	}

	if verdict.SecurityStars < 0 {
		verdict.SecurityStars = 0
	}
	if verdict.SecurityStars > 5 {
		verdict.SecurityStars = 5
	}
	return nil
}

// Verdict is the structured result of one LLM audit pass.
type Verdict struct {
	ContractAddress string          `json:"contract_address,omitempty"`
	Vulnerabilities []Vulnerability `json:"vulnerabilities"`
	Summary         string          `json:"summary,omitempty"`
	SecurityStars   int             `json:"security_stars"` // 0 worst, 5 safest
	Recommendations []string        `json:"recommendations,omitempty"`
	RawResponse     string          `json:"-"`
	ParseError      string          `json:"parse_error,omitempty"`
	Duration        time.Duration   `json:"-"`
}

type Vulnerability struct {
	Type        string   `json:"type"`
	Severity    string   `json:"severity"` // Critical, High, Medium, Low
	Description string   `json:"description"`
	Location    string   `json:"location,omitempty"`
	LineNumbers []int    `json:"line_numbers,omitempty"`
	CodeSnippet string   `json:"code_snippet,omitempty"`
	Impact      string   `json:"impact,omitempty"`
	Remediation string   `json:"remediation,omitempty"`
	References  []string `json:"references,omitempty"`
	SWCID       string   `json:"swc_id,omitempty"`
}

// GetHighSeverityCount counts Critical and High findings.
func (v *Verdict) GetHighSeverityCount() int {
	count := 0
	for _, vuln := range v.Vulnerabilities {
		if vuln.Severity == string(SeverityCritical) || vuln.Severity == string(SeverityHigh) {
			count++
		}
	}
	return count
}

// HasCriticalVulnerabilities reports whether any finding is Critical.
func (v *Verdict) HasCriticalVulnerabilities() bool {
	for _, vuln := range v.Vulnerabilities {
		if vuln.Severity == string(SeverityCritical) {
			return true
		}
	}
	return false
}

// ToJSON renders the verdict for storage and reports.
func (v *Verdict) ToJSON() (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
