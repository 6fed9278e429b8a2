package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const verdictJSON = `{
  "vulnerabilities": [
    {
      "type": "Reentrancy",
      "severity": "Critical",
      "description": "withdraw() sends ether before zeroing the balance",
      "location": "withdraw",
      "swc_id": "SWC-107"
    }
  ],
  "summary": "One critical reentrancy issue.",
  "security_stars": 1,
  "recommendations": ["Apply checks-effects-interactions"]
}`

func TestParseDirectJSON(t *testing.T) {
	p := NewParser()

	verdict, err := p.Parse(verdictJSON)
	require.NoError(t, err)

	assert.Len(t, verdict.Vulnerabilities, 1)
	assert.Equal(t, "Reentrancy", verdict.Vulnerabilities[0].Type)
	assert.Equal(t, 1, verdict.SecurityStars)
	assert.True(t, verdict.HasCriticalVulnerabilities())
	assert.Equal(t, 1, verdict.GetHighSeverityCount())
}

func TestParseFencedJSON(t *testing.T) {
	p := NewParser()

	response := "Here is my analysis:\n```json\n" + verdictJSON + "\n```\nLet me know if you need more."
	verdict, err := p.Parse(response)
	require.NoError(t, err)
	assert.Equal(t, "One critical reentrancy issue.", verdict.Summary)
}

func TestParseJSONWithProsePrefix(t *testing.T) {
	p := NewParser()

	response := "Sure! The audit result follows. " + verdictJSON
	verdict, err := p.Parse(response)
	require.NoError(t, err)
	assert.Len(t, verdict.Vulnerabilities, 1)
}

func TestParseGarbageFails(t *testing.T) {
	p := NewParser()

	_, err := p.Parse("the contract looks fine to me")
	assert.Error(t, err)
}

func TestValidateVerdictDefaultsAndClamps(t *testing.T) {
	p := NewParser()

	verdict := &Verdict{
		SecurityStars: 9,
		Vulnerabilities: []Vulnerability{
			{Type: "Access Control", Description: "owner can drain"},
		},
	}
	require.NoError(t, p.ValidateVerdict(verdict))

	assert.Equal(t, 5, verdict.SecurityStars)
	assert.Equal(t, string(SeverityMedium), verdict.Vulnerabilities[0].Severity)
}

func TestValidateVerdictMissingType(t *testing.T) {
	p := NewParser()

	err := p.ValidateVerdict(&Verdict{
		Vulnerabilities: []Vulnerability{{Description: "something"}},
	})
	assert.Error(t, err)
}

func TestGetSeverityScoreOrdering(t *testing.T) {
	assert.Greater(t, GetSeverityScore("Critical"), GetSeverityScore("High"))
	assert.Greater(t, GetSeverityScore("High"), GetSeverityScore("Medium"))
	assert.Greater(t, GetSeverityScore("Medium"), GetSeverityScore("Low"))
	assert.Equal(t, 0, GetSeverityScore("Bogus"))
}
