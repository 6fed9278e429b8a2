package analysis

// Severity is kept lowercase on the wire so the report layer and the
// enhanced dataset artifact agree on the same strings.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// severityOrder fixes the iteration order everywhere findings are rendered.
var severityOrder = []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow}

// Weight returns the scoring weight for the severity (critical counts most).
func (s Severity) Weight() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// ValidSeverity reports whether s is one of the four known levels.
func ValidSeverity(s Severity) bool {
	return s.Weight() > 0
}

// Origin tells base (compiled-in) patterns apart from dataset-enhanced ones.
type Origin string

const (
	OriginBase     Origin = "base"
	OriginEnhanced Origin = "enhanced"
)

// VulnerabilityPattern is a single regex rule of the knowledge base.
type VulnerabilityPattern struct {
	ID             string
	Name           string
	Severity       Severity
	Expr           string // regex source, compiled by the knowledge base
	Description    string
	Recommendation string
	CWE            string
	Prevalence     float64 // empirical frequency in [0,1]; only set for enhanced patterns
	Origin         Origin
}

// BaseCatalogSize is the pinned number of compiled-in patterns. Tests assert
// it so a catalog edit is a conscious decision, not an accident.
const BaseCatalogSize = 10

// basePatterns returns the compiled-in catalog. Matching is purely textual:
// the rules must keep working on partial or non-compiling snippets, so they
// trade precision for zero compilation dependency.
func basePatterns() []VulnerabilityPattern {
	return []VulnerabilityPattern{
		{
			ID:             "reentrancy",
			Name:           "Reentrancy",
			Severity:       SeverityCritical,
			Expr:           `\.call\{value:[^}]*\}\s*\(|\.call\.value\s*\(`,
			Description:    "External call forwarding value detected; state changes after the call can be re-entered before they take effect",
			Recommendation: "Apply the checks-effects-interactions pattern or a reentrancy guard before any value-bearing external call",
			CWE:            "CWE-841",
		},
		{
			ID:             "unchecked-call",
			Name:           "Unchecked External Call",
			Severity:       SeverityHigh,
			Expr:           `(?m)^\s*\w[\w\.\[\]\(\)]*\.(call|delegatecall|staticcall)\s*[\({]`,
			Description:    "Low-level call whose return value is not checked on the same statement",
			Recommendation: "Check the boolean result of every low-level call and revert on failure",
			CWE:            "CWE-252",
		},
		{
			ID:             "integer-overflow",
			Name:           "Integer Overflow/Underflow",
			Severity:       SeverityHigh,
			Expr:           `unchecked\s*\{|\+\+|--|\+=|-=|\*=`,
			Description:    "Arithmetic that can wrap: unchecked block or compound/increment operator on integer state",
			Recommendation: "Use Solidity >=0.8 checked arithmetic and keep unchecked blocks to audited hot paths only",
			CWE:            "CWE-190",
		},
		{
			ID:             "txorigin-auth",
			Name:           "Authorization through tx.origin",
			Severity:       SeverityHigh,
			Expr:           `tx\.origin`,
			Description:    "tx.origin used in an authorization context; any contract the user calls can impersonate them",
			Recommendation: "Authorize with msg.sender (the direct caller identity) instead of tx.origin (the transaction origin)",
			CWE:            "CWE-477",
		},
		{
			ID:             "unprotected-selfdestruct",
			Name:           "Unprotected Selfdestruct",
			Severity:       SeverityCritical,
			Expr:           `selfdestruct\s*\(|suicide\s*\(`,
			Description:    "selfdestruct reachable in contract code; if unguarded the contract and its balance can be destroyed by anyone",
			Recommendation: "Guard irrecoverable admin actions with strict access control, or remove selfdestruct entirely",
			CWE:            "CWE-284",
		},
		{
			ID:             "delegatecall-untrusted",
			Name:           "Delegatecall to Untrusted Callee",
			Severity:       SeverityHigh,
			Expr:           `\.delegatecall\s*\(`,
			Description:    "delegatecall executes foreign code in this contract's storage context",
			Recommendation: "Only delegatecall into audited, immutable implementations behind an access-controlled pointer",
			CWE:            "CWE-829",
		},
		{
			ID:             "timestamp-dependence",
			Name:           "Timestamp Dependence",
			Severity:       SeverityMedium,
			Expr:           `block\.timestamp|\bnow\b`,
			Description:    "Block timestamp or block metadata used in contract logic; miners can skew it by several seconds",
			Recommendation: "Do not gate critical logic or randomness on block.timestamp; use block numbers or an oracle",
			CWE:            "CWE-829",
		},
		{
			ID:             "missing-zero-check",
			Name:           "Missing Zero-Address Validation",
			Severity:       SeverityLow,
			Expr:           `(?m)function\s+\w*([Ss]et|[Ii]nit|[Uu]pdate|[Cc]hange)\w*\s*\([^)]*\baddress\b`,
			Description:    "Address-taking setter detected; assigning the zero address can permanently brick ownership or fund routing",
			Recommendation: "require(addr != address(0)) before persisting externally supplied addresses",
			CWE:            "CWE-20",
		},
		{
			ID:             "unchecked-send",
			Name:           "Unchecked Send",
			Severity:       SeverityMedium,
			Expr:           `\.send\s*\(`,
			Description:    "send() returns false on failure instead of reverting; an ignored result silently loses the transfer",
			Recommendation: "Check send()'s return value or prefer a checked call pattern",
			CWE:            "CWE-252",
		},
		{
			ID:             "floating-pragma",
			Name:           "Floating Pragma",
			Severity:       SeverityLow,
			Expr:           `pragma\s+solidity\s*\^`,
			Description:    "Floating compiler pragma; the deployed bytecode may differ from the audited compiler output",
			Recommendation: "Pin the pragma to the exact compiler version used for audit and deployment",
			CWE:            "CWE-1104",
		},
	}
}
