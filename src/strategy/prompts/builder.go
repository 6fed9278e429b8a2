package prompts

import (
	"fmt"
	"strings"
	"text/template"
)

// BuildPrompt renders a template against a flat variable map. Rendering never
// fails the audit; a broken template falls back to showing the raw text so
// the operator sees what went wrong.
func BuildPrompt(templateContent string, variables map[string]string) string {
	tmpl, err := template.New("prompt").Parse(templateContent)
	if err != nil {
		return fmt.Sprintf("template parse failed: %v\noriginal template:\n%s", err, templateContent)
	}

	var result strings.Builder
	if err := tmpl.Execute(&result, variables); err != nil {
		return fmt.Sprintf("template execute failed: %v\noriginal template:\n%s", err, templateContent)
	}

	return result.String()
}

// BuildAuditPrompt assembles the full LLM prompt for one contract: the named
// strategy template (or the built-in default), the static pre-analysis block,
// and the reply schema instructions.
func BuildAuditPrompt(contractAddress, preAnalysis, strategy, schemaInstructions string) string {
	templateContent, err := LoadTemplate("audit", strategy)
	if err != nil {
		templateContent = getDefaultAuditTemplate()
	}

	variables := map[string]string{
		"ContractAddress":    contractAddress,
		"PreAnalysis":        preAnalysis,
		"Strategy":           strategy,
		"SchemaInstructions": schemaInstructions,
	}

	return BuildPrompt(templateContent, variables)
}

func getDefaultAuditTemplate() string {
	return `You are an expert Solidity security auditor specializing in DeFi vulnerabilities.

**Target Contract:**
Contract Address: {{.ContractAddress}}

**Strategy: {{.Strategy}}**

A deterministic pattern engine has already scanned this contract. Its findings
follow. Confirm or refute each one against the source, and look for issues the
pattern engine cannot see (business logic, access control intent, economic
attacks).

{{.PreAnalysis}}

{{.SchemaInstructions}}`
}
