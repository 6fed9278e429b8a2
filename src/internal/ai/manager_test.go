package ai

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/w3guard/solidity-sentinel/src/internal/ai/parser"
)

// stubClient counts in-flight Analyze calls so tests can observe parallelism.
type stubClient struct {
	reply    string
	err      error
	delay    time.Duration
	inFlight int32
	maxSeen  int32
}

func (c *stubClient) Analyze(ctx context.Context, prompt string) (string, error) {
	cur := atomic.AddInt32(&c.inFlight, 1)
	for {
		seen := atomic.LoadInt32(&c.maxSeen)
		if cur <= seen || atomic.CompareAndSwapInt32(&c.maxSeen, seen, cur) {
			break
		}
	}
	time.Sleep(c.delay)
	atomic.AddInt32(&c.inFlight, -1)
	if c.err != nil {
		return "", c.err
	}
	return c.reply, nil
}

func (c *stubClient) GetName() string { return "stub" }
func (c *stubClient) Close() error    { return nil }

func newTestManager(client Client) *Manager {
	return &Manager{
		client:    client,
		parser:    parser.NewParser(),
		rateLimit: newRateLimiter(600),
	}
}

func TestAnalyzeBatchRunsConcurrently(t *testing.T) {
	stub := &stubClient{
		reply: `{"summary": "ok", "security_stars": 5, "vulnerabilities": []}`,
		delay: 30 * time.Millisecond,
	}
	m := newTestManager(stub)

	inputs := make([]ContractInput, 8)
	for i := range inputs {
		inputs[i] = ContractInput{
			Address: fmt.Sprintf("0x%040d", i),
			Prompt:  "audit it",
		}
	}

	verdicts, err := m.AnalyzeBatch(context.Background(), inputs, 4)
	require.NoError(t, err)
	require.Len(t, verdicts, 8)

	for i, v := range verdicts {
		require.NotNil(t, v, "verdict %d missing", i)
		assert.Equal(t, inputs[i].Address, v.ContractAddress)
		assert.Equal(t, 5, v.SecurityStars)
	}

	max := atomic.LoadInt32(&stub.maxSeen)
	assert.Greater(t, max, int32(1), "batch ran serially")
	assert.LessOrEqual(t, max, int32(4), "concurrency bound exceeded")
}

func TestAnalyzeBatchErrorKeepsPartialResults(t *testing.T) {
	stub := &stubClient{err: fmt.Errorf("backend down")}
	m := newTestManager(stub)

	inputs := []ContractInput{
		{Address: "0xaaa", Prompt: "p"},
		{Address: "0xbbb", Prompt: "p"},
	}

	verdicts, err := m.AnalyzeBatch(context.Background(), inputs, 2)
	assert.Error(t, err)
	require.Len(t, verdicts, 2)
	assert.Nil(t, verdicts[0])
	assert.Nil(t, verdicts[1])
}

func TestAnalyzeContractUnparseableReplyIsNotAnError(t *testing.T) {
	stub := &stubClient{reply: "looks fine to me"}
	m := newTestManager(stub)

	verdict, err := m.AnalyzeContract(context.Background(), "audit it")
	require.NoError(t, err)

	assert.NotEmpty(t, verdict.ParseError)
	assert.Equal(t, "looks fine to me", verdict.RawResponse)
	assert.Empty(t, verdict.Vulnerabilities)
}
