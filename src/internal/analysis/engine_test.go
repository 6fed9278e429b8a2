package analysis

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cleanSource = `pragma solidity 0.8.24;

contract Vault {
    address public owner;

    function deposit() public payable {
        emit Deposited(msg.sender, msg.value);
    }
}
`

func newBaseKB(t *testing.T) *KnowledgeBase {
	t.Helper()
	return NewKnowledgeBase(Options{})
}

func TestAnalyzeCleanSource(t *testing.T) {
	kb := newBaseKB(t)

	result, err := kb.Analyze(cleanSource)
	require.NoError(t, err)

	assert.Equal(t, 5, result.SecurityScore)
	assert.Equal(t, 0.0, result.Confidence)
	assert.Empty(t, result.GasHints)
	assert.False(t, result.Enhanced)
	assert.Equal(t, BaseCatalogSize, result.CatalogSize)
	for sev, bucket := range result.Findings {
		assert.Emptyf(t, bucket, "unexpected %s findings: %v", sev, bucket)
	}
}

func TestAnalyzeEmptyString(t *testing.T) {
	kb := newBaseKB(t)

	result, err := kb.Analyze("")
	require.NoError(t, err)

	assert.Equal(t, 5, result.SecurityScore)
	assert.Equal(t, 0.0, result.Confidence)
	assert.Zero(t, result.Findings.Total())
	assert.Empty(t, result.GasHints)
	assert.False(t, result.Enhanced)
}

func TestAnalyzeReentrancyCallBeforeEffect(t *testing.T) {
	kb := newBaseKB(t)

	source := `(bool success,) = msg.sender.call{value: amount}(""); balances[msg.sender] = 0;`
	result, err := kb.Analyze(source)
	require.NoError(t, err)

	critical := result.Findings[SeverityCritical]
	require.NotEmpty(t, critical, "expected critical findings for reentrancy-shaped input")

	joined := strings.ToLower(strings.Join(critical, "\n"))
	assert.Contains(t, joined, "re-enter", "regex pattern description expected")
	assert.Contains(t, joined, "reentrancy-unsafe ordering", "call-before-effect heuristic expected to fire")
	assert.Less(t, result.SecurityScore, 5)
}

func TestAnalyzeTxOriginModifier(t *testing.T) {
	kb := newBaseKB(t)

	source := `modifier onlyOwner() {
    require(tx.origin == owner);
    _;
}
`
	result, err := kb.Analyze(source)
	require.NoError(t, err)

	high := result.Findings[SeverityHigh]
	require.NotEmpty(t, high)
	assert.Contains(t, strings.Join(high, "\n"), "tx.origin")

	recs := strings.Join(result.Recommendations, "\n")
	assert.Contains(t, recs, "msg.sender", "recommendation must point at caller-identity authorization")
}

func TestAnalyzeScoreFloorAndDescriptionDedup(t *testing.T) {
	kb := newBaseKB(t)

	var b strings.Builder
	for i := 0; i < 10000; i++ {
		if i%200 == 0 && i/200 < 50 {
			b.WriteString("selfdestruct(beneficiary);\n")
			continue
		}
		fmt.Fprintf(&b, "uint256 constant PAD_%d = %d;\n", i, i)
	}

	result, err := kb.Analyze(b.String())
	require.NoError(t, err)

	assert.Equal(t, 0, result.SecurityScore, "50 critical matches must hit the score floor")
	require.Len(t, result.Findings[SeverityCritical], 1,
		"one description per firing pattern, regardless of raw match count")
	assert.Contains(t, result.Findings[SeverityCritical][0], "selfdestruct")
}

func TestAnalyzeScoreMonotonicUnderRepetition(t *testing.T) {
	kb := newBaseKB(t)

	source := "selfdestruct(target);\n"
	prev := 6
	for i := 1; i <= 6; i++ {
		result, err := kb.Analyze(strings.Repeat(source, i))
		require.NoError(t, err)
		assert.LessOrEqual(t, result.SecurityScore, prev,
			"adding occurrences of a firing critical pattern must never improve the score")
		prev = result.SecurityScore
	}
}

func TestAnalyzeRejectsOversizedInput(t *testing.T) {
	kb := NewKnowledgeBase(Options{MaxSourceBytes: 64})

	_, err := kb.Analyze(strings.Repeat("a", 65))
	require.ErrorIs(t, err, ErrSourceTooLarge)

	// At the limit the input passes.
	_, err = kb.Analyze(strings.Repeat("a", 64))
	require.NoError(t, err)
}

func TestAnalyzeGasHints(t *testing.T) {
	kb := newBaseKB(t)

	source := `contract Spender {
    function drain(address[] calldata users) external onlyOwner {
        for (uint i = 0; i < users.length; i = i.inc()) {
            totals[users[i]] = 0;
        }
        totals[a] = totals[b];
        totals[c] = 1;
        string memory label = "spent";
        emit Drained(label);
    }
}
`
	result, err := kb.Analyze(source)
	require.NoError(t, err)

	assert.Contains(t, result.GasHints, hintCacheLength)
	assert.Contains(t, result.GasHints, hintCacheStorage)
	assert.Contains(t, result.GasHints, hintMemoryStrings)
}

func TestAnalyzeCountsCatalogAndHeuristicsIndependently(t *testing.T) {
	kb := newBaseKB(t)

	// Delegatecall with no guard in the enclosing function: the regex rule
	// and the heuristic both fire, each contributing its own finding entry.
	source := `function forward(address impl, bytes calldata data) external {
    impl.delegatecall(data);
}
`
	result, err := kb.Analyze(source)
	require.NoError(t, err)

	high := strings.Join(result.Findings[SeverityHigh], "\n")
	assert.Contains(t, high, "storage context")
	assert.Contains(t, high, "without an access-control guard")
}
