package analysis

import (
	"regexp"
	"strings"
)

// Heuristic detectors cover orderings a single regex cannot express. They are
// line-oriented and deliberately coarse: multi-statement lines (beyond simple
// statement order), helper-function indirection and loops are accepted
// misses. This is a pre-filter that prefers false positives on critical
// classes, not a data-flow analysis — the scoring constants assume exactly
// this coarseness.

type detector struct {
	id             string
	severity       Severity
	description    string
	recommendation string
	fire           func(lines []string) bool
}

var detectors = []detector{
	{
		id:             "h-call-before-effect",
		severity:       SeverityCritical,
		description:    "Reentrancy-unsafe ordering: external call executed before the balance/state reset it should follow",
		recommendation: "Zero out balances and flip state flags before making the external call",
		fire:           detectCallBeforeEffect,
	},
	{
		id:             "h-unguarded-critical",
		severity:       SeverityHigh,
		description:    "Public or external function performs a critical action without a visible access-control guard",
		recommendation: "Gate privileged functions with an owner/role modifier or an explicit msg.sender check",
		fire:           detectUnguardedCritical,
	},
	{
		id:             "h-timestamp-branch",
		severity:       SeverityMedium,
		description:    "Branch or require condition depends directly on block.timestamp",
		recommendation: "Move timing-critical branches off block.timestamp or widen the tolerated window",
		fire:           detectTimestampBranch,
	},
	{
		id:             "h-delegatecall-unguarded",
		severity:       SeverityHigh,
		description:    "delegatecall reachable without an access-control guard in the enclosing function",
		recommendation: "Restrict who may trigger delegatecall and pin the callee address",
		fire:           detectDelegatecallUnguarded,
	},
	{
		id:             "h-balance-equality",
		severity:       SeverityMedium,
		description:    "Strict equality against a balance; forced ether transfers can make the condition permanently false",
		recommendation: "Compare balances with >= / <= instead of strict equality",
		fire:           detectBalanceEquality,
	},
}

var (
	reExternalCall = regexp.MustCompile(`\.call\{value:|\.call\.value\s*\(|\.send\s*\(|\.transfer\s*\(`)
	reStateReset   = regexp.MustCompile(`\w*[Bb]alance\w*\s*=\s*0\b|\w+\s*\[[^\]]+\]\s*=\s*0\b`)

	reFunctionDecl = regexp.MustCompile(`\bfunction\s+\w+\s*\(`)
	rePublicDecl   = regexp.MustCompile(`\bfunction\s+\w+\s*\([^)]*\)[^{]*\b(public|external)\b`)
	reGuardToken   = regexp.MustCompile(`\bonly[A-Z]\w*|\brequire\s*\(\s*msg\.sender\b|\bisOwner\b|\b_checkOwner\b|\bhasRole\s*\(|\bauth\b`)
	reCriticalTok  = regexp.MustCompile(`\bselfdestruct\s*\(|\bsuicide\s*\(|\btransferOwnership\s*\(|\bwithdraw\w*\s*\(|\bmint\s*\(|\bupgradeTo\w*\s*\(|\bpause\s*\(`)

	reTimestampCond = regexp.MustCompile(`\b(if|require|while)\s*\([^)]*(block\.timestamp|\bnow\b)`)
	reDelegatecall  = regexp.MustCompile(`\.delegatecall\s*\(`)
	reBalanceEq     = regexp.MustCompile(`\.balance\s*==|==\s*[\w\(\)\.]*\.balance\b`)
)

// detectCallBeforeEffect flags an external-call idiom that appears before a
// balance-zeroing write. Line index ordering approximates statement order;
// when both land on the same line the byte offsets decide. If no state-reset
// write exists at all there is nothing to order against, so no flag — the
// absence of a state change is a different, unmodeled issue.
func detectCallBeforeEffect(lines []string) bool {
	callLine, callCol := -1, -1
	for i, line := range lines {
		if loc := reExternalCall.FindStringIndex(line); loc != nil {
			callLine, callCol = i, loc[0]
			break
		}
	}
	if callLine < 0 {
		return false
	}

	for i := callLine; i < len(lines); i++ {
		loc := reStateReset.FindStringIndex(lines[i])
		if loc == nil {
			continue
		}
		if i > callLine || loc[0] > callCol {
			return true
		}
	}
	return false
}

// detectUnguardedCritical scans each public/external function declaration and
// the body window below it for a critical action with no guard token nearby.
const bodyWindow = 12

func detectUnguardedCritical(lines []string) bool {
	for i, line := range lines {
		if !rePublicDecl.MatchString(line) {
			continue
		}
		hasGuard := reGuardToken.MatchString(line)
		hasCritical := reCriticalTok.MatchString(line)
		for j := i + 1; j < len(lines) && j <= i+bodyWindow; j++ {
			if reFunctionDecl.MatchString(lines[j]) {
				break // next function, window closed
			}
			if reGuardToken.MatchString(lines[j]) {
				hasGuard = true
			}
			if reCriticalTok.MatchString(lines[j]) {
				hasCritical = true
			}
		}
		if hasCritical && !hasGuard {
			return true
		}
	}
	return false
}

func detectTimestampBranch(lines []string) bool {
	for _, line := range lines {
		if reTimestampCond.MatchString(line) {
			return true
		}
	}
	return false
}

// detectDelegatecallUnguarded looks back from each delegatecall to the
// enclosing function declaration and checks that span for a guard token.
func detectDelegatecallUnguarded(lines []string) bool {
	for i, line := range lines {
		if !reDelegatecall.MatchString(line) {
			continue
		}
		guarded := false
		for j := i; j >= 0 && j >= i-bodyWindow; j-- {
			if reGuardToken.MatchString(lines[j]) {
				guarded = true
				break
			}
			if j < i && reFunctionDecl.MatchString(lines[j]) {
				break // reached the declaration without seeing a guard
			}
		}
		if !guarded {
			return true
		}
	}
	return false
}

func detectBalanceEquality(lines []string) bool {
	for _, line := range lines {
		if reBalanceEq.MatchString(line) {
			return true
		}
	}
	return false
}

// stripComments is used by the gas pass to avoid counting identifiers inside
// line comments.
func stripLineComment(line string) string {
	if idx := strings.Index(line, "//"); idx >= 0 {
		return line[:idx]
	}
	return line
}
