package ai

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/w3guard/solidity-sentinel/src/config"
	"github.com/w3guard/solidity-sentinel/src/internal/ai/parser"
)

// Manager wraps a Client with rate limiting and verdict parsing. It is safe
// for concurrent use: pacing is the rate limiter's job, the parser holds only
// compiled regexps, and the underlying http.Client handles parallel requests.
type Manager struct {
	client    Client
	parser    *parser.Parser
	rateLimit *rateLimiter
}

type rateLimiter struct {
	requests chan struct{}
	interval time.Duration
}

func newRateLimiter(requestsPerMinute int) *rateLimiter {
	rl := &rateLimiter{
		requests: make(chan struct{}, requestsPerMinute),
		interval: time.Minute / time.Duration(requestsPerMinute),
	}

	for i := 0; i < requestsPerMinute; i++ {
		rl.requests <- struct{}{}
	}

	go func() {
		ticker := time.NewTicker(rl.interval)
		defer ticker.Stop()
		for range ticker.C {
			select {
			case rl.requests <- struct{}{}:
			default:
			}
		}
	}()

	return rl
}

func (rl *rateLimiter) Wait(ctx context.Context) error {
	select {
	case <-rl.requests:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type ManagerConfig struct {
	Provider       string
	APIKey         string
	BaseURL        string
	Model          string
	Timeout        time.Duration
	Proxy          string
	RequestsPerMin int
}

// NewManager resolves missing credentials from the settings layer and builds
// the provider client.
func NewManager(cfg ManagerConfig) (*Manager, error) {
	if cfg.APIKey == "" && (cfg.Provider == "openai" || cfg.Provider == "gpt4") {
		apiKey, err := config.GetOpenAIKey()
		if err != nil {
			return nil, fmt.Errorf("failed to get OpenAI API key from config: %w", err)
		}
		cfg.APIKey = apiKey
	}

	if cfg.APIKey == "" && cfg.Provider == "deepseek" {
		apiKey, err := config.GetDeepSeekKey()
		if err != nil {
			return nil, fmt.Errorf("failed to get DeepSeek API key from config: %w", err)
		}
		cfg.APIKey = apiKey
	}

	client, err := NewClient(ClientConfig{
		Provider: cfg.Provider,
		APIKey:   cfg.APIKey,
		BaseURL:  cfg.BaseURL,
		Model:    cfg.Model,
		Timeout:  cfg.Timeout,
		Proxy:    cfg.Proxy,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AI client: %w", err)
	}

	if cfg.RequestsPerMin <= 0 {
		cfg.RequestsPerMin = 20
	}

	return &Manager{
		client:    client,
		parser:    parser.NewParser(),
		rateLimit: newRateLimiter(cfg.RequestsPerMin),
	}, nil
}

// AnalyzeContract sends a fully assembled audit prompt and returns the
// parsed verdict. A reply that cannot be parsed is not an error; the raw
// response is returned with ParseError set so the run can continue.
func (m *Manager) AnalyzeContract(ctx context.Context, prompt string) (*parser.Verdict, error) {
	if err := m.rateLimit.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait failed: %w", err)
	}

	fmt.Printf("🤖 analyzing contract with %s...\n", m.client.GetName())

	startTime := time.Now()
	response, err := m.client.Analyze(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("AI analysis failed: %w", err)
	}
	duration := time.Since(startTime)

	fmt.Printf("✅ analysis done in %v\n", duration)

	verdict, err := m.parser.Parse(response)
	if err != nil {
		fmt.Printf("⚠️  could not parse verdict: %v, returning raw response\n", err)
		return &parser.Verdict{
			RawResponse: response,
			ParseError:  err.Error(),
		}, nil
	}

	if err := m.parser.ValidateVerdict(verdict); err != nil {
		fmt.Printf("⚠️  verdict failed validation: %v\n", err)
	}

	verdict.RawResponse = response
	verdict.Duration = duration

	return verdict, nil
}

// ContractInput is one unit of batch work.
type ContractInput struct {
	Address string
	Prompt  string
}

// AnalyzeBatch runs prompts with bounded concurrency. Per-contract failures
// are collected; a partial result slice is returned alongside the error.
func (m *Manager) AnalyzeBatch(ctx context.Context, contracts []ContractInput, concurrency int) ([]*parser.Verdict, error) {
	if concurrency <= 0 {
		concurrency = 1
	}

	results := make([]*parser.Verdict, len(contracts))
	errChan := make(chan error, len(contracts))

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, contract := range contracts {
		wg.Add(1)
		go func(idx int, c ContractInput) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			verdict, err := m.AnalyzeContract(ctx, c.Prompt)
			if err != nil {
				errChan <- fmt.Errorf("contract %d (%s) failed: %w", idx, c.Address, err)
				return
			}

			verdict.ContractAddress = c.Address
			results[idx] = verdict
		}(i, contract)
	}

	wg.Wait()
	close(errChan)

	var errs []error
	for err := range errChan {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return results, fmt.Errorf("batch analysis completed with %d errors: %v", len(errs), errs[0])
	}
	return results, nil
}

func (m *Manager) GetClientInfo() string {
	return m.client.GetName()
}

func (m *Manager) Close() error {
	if m.client != nil {
		return m.client.Close()
	}
	return nil
}

// TestConnection fires a trivial prompt to verify credentials and reachability.
func (m *Manager) TestConnection(ctx context.Context) error {
	fmt.Println("🔍 testing AI client connection...")

	testPrompt := "Please respond with 'OK' if you can read this message."
	if _, err := m.client.Analyze(ctx, testPrompt); err != nil {
		return fmt.Errorf("connection test failed: %w", err)
	}

	fmt.Println("✅ AI client connected!")
	return nil
}
