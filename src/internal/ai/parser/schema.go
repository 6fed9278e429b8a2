package parser

// GetExpectedJSONSchema returns the reply format the prompts ask for.
func GetExpectedJSONSchema() string {
	return `{
  "contract_address": "0x...",
  "vulnerabilities": [
    {
      "type": "Reentrancy|Integer Overflow|Access Control|...",
      "severity": "Critical|High|Medium|Low",
      "description": "Detailed description of the vulnerability",
      "location": "Function or contract name",
      "line_numbers": [10, 15, 20],
      "code_snippet": "Relevant code snippet",
      "impact": "Potential impact of this vulnerability",
      "remediation": "How to fix this vulnerability",
      "references": ["https://swcregistry.io/docs/SWC-107"],
      "swc_id": "SWC-107"
    }
  ],
  "summary": "Overall security assessment summary",
  "security_stars": 3,
  "recommendations": [
    "Recommendation 1",
    "Recommendation 2"
  ]
}`
}

// GetSchemaInstructions returns the format section appended to audit prompts.
func GetSchemaInstructions() string {
	return `Please analyze the smart contract and return your findings in the following JSON format:

` + GetExpectedJSONSchema() + `

Requirements:
1. Identify ALL potential vulnerabilities in the contract
2. For each vulnerability:
   - Specify the type (e.g., Reentrancy, Integer Overflow, Access Control)
   - Assign severity: Critical (can lead to fund loss), High (serious security issue), Medium (potential issue), Low (minor issue)
   - Provide detailed description
   - Include the location (function name, line numbers if possible)
   - Include relevant code snippet
   - Explain the potential impact
   - Provide remediation steps
   - Reference SWC Registry IDs where applicable
3. Provide an overall summary of the contract's security posture
4. Rate security_stars from 0 to 5 (5 = no significant issues, 0 = critical fund-loss risk)
5. List prioritized recommendations for improvement

Return ONLY the JSON object, without any additional text or markdown formatting.`
}

// SeverityLevel mirrors the severity vocabulary used across the engine.
type SeverityLevel string

const (
	SeverityCritical SeverityLevel = "Critical"
	SeverityHigh     SeverityLevel = "High"
	SeverityMedium   SeverityLevel = "Medium"
	SeverityLow      SeverityLevel = "Low"
	SeverityInfo     SeverityLevel = "Info"
)

// GetSeverityScore orders severities for sorting, highest first.
func GetSeverityScore(severity string) int {
	switch SeverityLevel(severity) {
	case SeverityCritical:
		return 5
	case SeverityHigh:
		return 4
	case SeverityMedium:
		return 3
	case SeverityLow:
		return 2
	case SeverityInfo:
		return 1
	default:
		return 0
	}
}
