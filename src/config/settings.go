package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// AIConfig holds per-provider LLM settings.
type AIConfig struct {
	OpenAI struct {
		APIKey  string `yaml:"api_key"`
		BaseURL string `yaml:"base_url"` // optional, defaults to the official API
		Model   string `yaml:"model"`    // optional, defaults to gpt-4-turbo
	} `yaml:"openai"`

	DeepSeek struct {
		APIKey  string `yaml:"api_key"`
		BaseURL string `yaml:"base_url"` // default https://api.deepseek.com/v1
		Model   string `yaml:"model"`    // default deepseek-chat
	} `yaml:"deepseek"`

	LocalLLM struct {
		BaseURL string `yaml:"base_url"` // e.g. http://localhost:11434
		Model   string `yaml:"model"`    // e.g. llama2
	} `yaml:"local_llm"`
}

// AnalysisConfig tunes the static engine.
type AnalysisConfig struct {
	KnowledgePath string `yaml:"knowledge_path"` // enhanced pattern artifact
	MaxSourceKB   int    `yaml:"max_source_kb"`  // input cap, 0 = engine default
}

// Settings is the full configuration tree of settings.yaml.
type Settings struct {
	Database struct {
		ContractsDSN string `yaml:"contracts_dsn"` // MySQL, downloaded contracts
		ReportsDSN   string `yaml:"reports_dsn"`   // Postgres, audit reports
	} `yaml:"database"`

	RPC struct {
		Ethereum string `yaml:"ethereum"`
		BSC      string `yaml:"bsc"`
		Arbitrum string `yaml:"arbitrum"`
	} `yaml:"rpc"`

	Etherscan struct {
		APIKey  string `yaml:"api_key"`
		BaseURL string `yaml:"base_url"`
	} `yaml:"etherscan"`

	AI       AIConfig       `yaml:"ai"`
	Analysis AnalysisConfig `yaml:"analysis"`
}

var globalSettings *Settings

// LoadSettings reads and parses the yaml settings file.
func LoadSettings(configPath string) error {
	if configPath == "" {
		configPath = "config/settings.yaml"
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var settings Settings
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	globalSettings = &settings
	return nil
}

func settings() *Settings {
	if globalSettings == nil {
		// Best effort: accessors fall back to defaults when no file exists.
		_ = LoadSettings("")
	}
	return globalSettings
}

// GetOpenAIKey returns the OpenAI API key, environment first.
func GetOpenAIKey() (string, error) {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		return key, nil
	}
	if s := settings(); s != nil && s.AI.OpenAI.APIKey != "" {
		return s.AI.OpenAI.APIKey, nil
	}
	return "", fmt.Errorf("OpenAI API key not found in config or environment variable OPENAI_API_KEY")
}

// GetOpenAIBaseURL returns the configured base URL or the official endpoint.
func GetOpenAIBaseURL() string {
	if s := settings(); s != nil && s.AI.OpenAI.BaseURL != "" {
		return s.AI.OpenAI.BaseURL
	}
	return "https://api.openai.com/v1"
}

// GetOpenAIModel returns the configured model name or the default.
func GetOpenAIModel() string {
	if s := settings(); s != nil && s.AI.OpenAI.Model != "" {
		return s.AI.OpenAI.Model
	}
	return "gpt-4-turbo"
}

// GetDeepSeekKey returns the DeepSeek API key, environment first.
func GetDeepSeekKey() (string, error) {
	if key := os.Getenv("DEEPSEEK_API_KEY"); key != "" {
		return key, nil
	}
	if s := settings(); s != nil && s.AI.DeepSeek.APIKey != "" {
		return s.AI.DeepSeek.APIKey, nil
	}
	return "", fmt.Errorf("DeepSeek API key not found in config or environment variable DEEPSEEK_API_KEY")
}

// GetDeepSeekBaseURL returns the configured base URL or the public endpoint.
func GetDeepSeekBaseURL() string {
	if s := settings(); s != nil && s.AI.DeepSeek.BaseURL != "" {
		return s.AI.DeepSeek.BaseURL
	}
	return "https://api.deepseek.com/v1"
}

// GetDeepSeekModel returns the configured model name or the default.
func GetDeepSeekModel() string {
	if s := settings(); s != nil && s.AI.DeepSeek.Model != "" {
		return s.AI.DeepSeek.Model
	}
	return "deepseek-chat"
}

// GetLocalLLMConfig returns base URL and model for the local provider.
func GetLocalLLMConfig() (baseURL, model string) {
	if s := settings(); s != nil {
		baseURL = s.AI.LocalLLM.BaseURL
		model = s.AI.LocalLLM.Model
	}
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "llama2"
	}
	return baseURL, model
}

// GetEtherscanConfig returns API key and base URL for source-code lookups.
// The key comes from ETHERSCAN_API_KEY or the settings file.
func GetEtherscanConfig() (apiKey, baseURL string) {
	apiKey = os.Getenv("ETHERSCAN_API_KEY")
	if s := settings(); s != nil {
		if apiKey == "" {
			apiKey = s.Etherscan.APIKey
		}
		baseURL = s.Etherscan.BaseURL
	}
	if baseURL == "" {
		baseURL = "https://api.etherscan.io/v2"
	}
	return apiKey, baseURL
}

// GetRPCURL returns the RPC endpoint for the chain (eth | bsc | arb).
func GetRPCURL(chain string) (string, error) {
	s := settings()
	if s == nil {
		return "", fmt.Errorf("no settings loaded and no RPC endpoint configured")
	}

	var u string
	switch chain {
	case "", "eth":
		u = s.RPC.Ethereum
	case "bsc":
		u = s.RPC.BSC
	case "arb":
		u = s.RPC.Arbitrum
	default:
		return "", fmt.Errorf("unsupported chain: %s", chain)
	}
	if u == "" {
		return "", fmt.Errorf("no RPC endpoint configured for chain %q", chain)
	}
	return u, nil
}

// GetAnalysisConfig returns the static-engine tuning section.
func GetAnalysisConfig() AnalysisConfig {
	if s := settings(); s != nil {
		return s.Analysis
	}
	return AnalysisConfig{}
}
