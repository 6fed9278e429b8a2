package prompts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildPromptSubstitution(t *testing.T) {
	out := BuildPrompt("audit {{.Address}} with {{.Strategy}}", map[string]string{
		"Address":  "0xabc",
		"Strategy": "reentrancy",
	})

	assert.Equal(t, "audit 0xabc with reentrancy", out)
}

func TestBuildPromptBrokenTemplateFallsBack(t *testing.T) {
	out := BuildPrompt("{{.Unclosed", nil)

	assert.Contains(t, out, "template parse failed")
	assert.Contains(t, out, "{{.Unclosed")
}

func TestBuildAuditPromptDefaultTemplate(t *testing.T) {
	pre := "=== STATIC PRE-ANALYSIS ===\nKnowledge base: 10 patterns (base catalog only)"
	out := BuildAuditPrompt("0xdeadbeef", pre, "no-such-strategy", "Return ONLY the JSON object.")

	assert.Contains(t, out, "Contract Address: 0xdeadbeef")
	assert.Contains(t, out, "Strategy: no-such-strategy")
	assert.Contains(t, out, pre)
	assert.Contains(t, out, "Return ONLY the JSON object.")

	// Pre-analysis precedes the schema instructions.
	assert.Less(t, strings.Index(out, "STATIC PRE-ANALYSIS"), strings.Index(out, "Return ONLY"))
}
