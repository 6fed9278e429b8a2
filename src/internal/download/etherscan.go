package download

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// EtherscanConfig carries the API key, endpoint and optional proxy for
// verified-source lookups.
type EtherscanConfig struct {
	APIKey  string
	BaseURL string
	Proxy   string
}

// EtherscanResponse is the getsourcecode API envelope.
type EtherscanResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Result  []struct {
		SourceCode           string `json:"SourceCode"`
		ABI                  string `json:"ABI"`
		ContractName         string `json:"ContractName"`
		CompilerVersion      string `json:"CompilerVersion"`
		OptimizationUsed     string `json:"OptimizationUsed"`
		Runs                 string `json:"Runs"`
		ConstructorArguments string `json:"ConstructorArguments"`
		EVMVersion           string `json:"EVMVersion"`
		Library              string `json:"Library"`
		LicenseType          string `json:"LicenseType"`
		Proxy                string `json:"Proxy"`
		Implementation       string `json:"Implementation"`
		SwarmSource          string `json:"SwarmSource"`
	} `json:"result"`
}

// GetContractSource fetches verified source for an address. Unverified
// contracts return ("", false, nil); only transport and decode problems are
// errors. Transient network failures are retried up to three times.
func GetContractSource(address string, config EtherscanConfig) (sourceCode string, isVerified bool, err error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return "", false, fmt.Errorf("empty address passed to GetContractSource")
	}

	base := strings.TrimRight(config.BaseURL, "/")
	u, err := url.Parse(base)
	if err != nil {
		return "", false, fmt.Errorf("parse Etherscan base URL: %w", err)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/api"

	q := url.Values{}
	q.Set("module", "contract")
	q.Set("action", "getsourcecode")
	q.Set("address", address)
	q.Set("apikey", strings.TrimSpace(config.APIKey))
	q.Set("chainid", "1")

	u.RawQuery = q.Encode()
	finalURL := u.String()

	client := &http.Client{
		Timeout: 20 * time.Second,
	}
	if strings.TrimSpace(config.Proxy) != "" {
		if pu, perr := url.Parse(config.Proxy); perr == nil {
			client.Transport = &http.Transport{
				Proxy: http.ProxyURL(pu),
			}
		} else {
			// Bad proxy is an error here; the caller falls back to bytecode.
			return "", false, fmt.Errorf("parse Etherscan proxy: %w", perr)
		}
	}

	var lastErr error
	maxAttempts := 3
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		req, _ := http.NewRequest("GET", finalURL, nil)
		req.Header.Set("User-Agent", "solidity-sentinel/1.0 (+https://github.com/)")

		resp, err := client.Do(req)
		if err != nil {
			lastErr = err
			if isTemporaryNetErr(err) && attempt < maxAttempts {
				time.Sleep(time.Duration(attempt) * 500 * time.Millisecond)
				continue
			}
			return "", false, fmt.Errorf("Etherscan API request failed: %w (url=%s)", err, finalURL)
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			if (readErr == io.ErrUnexpectedEOF || isTemporaryNetErr(readErr)) && attempt < maxAttempts {
				time.Sleep(time.Duration(attempt) * 500 * time.Millisecond)
				continue
			}
			return "", false, fmt.Errorf("read Etherscan response: %w (url=%s)", readErr, finalURL)
		}

		if resp.StatusCode != http.StatusOK {
			snippet := string(body)
			if len(snippet) > 1024 {
				snippet = snippet[:1024]
			}
			return "", false, fmt.Errorf("Etherscan returned status %d, body: %s", resp.StatusCode, snippet)
		}

		var etherscanResp EtherscanResponse
		if jerr := json.Unmarshal(body, &etherscanResp); jerr != nil {
			lastErr = jerr
			if attempt < maxAttempts {
				time.Sleep(time.Duration(attempt) * 300 * time.Millisecond)
				continue
			}
			return "", false, fmt.Errorf("parse Etherscan JSON: %w (url=%s)", jerr, finalURL)
		}

		// status != "1" means unverified or another API-level condition,
		// not a transport failure.
		if etherscanResp.Status != "1" {
			return "", false, nil
		}
		if len(etherscanResp.Result) == 0 {
			return "", false, nil
		}
		res := etherscanResp.Result[0]
		if strings.TrimSpace(res.SourceCode) == "" {
			return "", false, nil
		}
		return res.SourceCode, true, nil
	}

	if lastErr != nil {
		return "", false, fmt.Errorf("Etherscan request failed after retries: %w (url=%s)", lastErr, finalURL)
	}
	return "", false, fmt.Errorf("Etherscan request failed for unknown reason (url=%s)", finalURL)
}

// isTemporaryNetErr reports whether the error is worth retrying.
func isTemporaryNetErr(err error) bool {
	if err == nil {
		return false
	}
	if ne, ok := err.(net.Error); ok {
		return ne.Timeout() || ne.Temporary()
	}
	if err == io.ErrUnexpectedEOF || err == io.EOF {
		return true
	}
	return false
}

// RateLimiter throttles outbound lookups to requestsPerSecond.
type RateLimiter struct {
	ticker *time.Ticker
}

func NewRateLimiter(requestsPerSecond int) *RateLimiter {
	interval := time.Second / time.Duration(requestsPerSecond)
	return &RateLimiter{
		ticker: time.NewTicker(interval),
	}
}

// Wait blocks until the next request slot.
func (r *RateLimiter) Wait() {
	<-r.ticker.C
}

// Stop releases the limiter.
func (r *RateLimiter) Stop() {
	r.ticker.Stop()
}
