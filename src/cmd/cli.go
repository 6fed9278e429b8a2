package cmd

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// CLIConfig holds parsed CLI options plus the normalized fields the
// handlers consume.
type CLIConfig struct {
	AIProvider    string // openai | deepseek | local-llm | none
	Strategy      string // prompt template name under strategy/prompts/audit/
	TargetSource  string // db | file | contract | address
	TargetFile    string // address list path when -t=file
	TargetAddress string // single contract address when -t=contract
	BlockRange    *BlockRange
	Chain         string // eth | bsc | arb
	Concurrency   int
	Verbose       bool
	Timeout       time.Duration

	// Static engine tuning.
	KnowledgePath string // dataset-derived pattern artifact
	MaxSourceKB   int    // input cap; 0 uses the engine default
	OutputDir     string // report output directory

	// Download flow.
	Download      bool        // -d starts the download flow
	DownloadRange *BlockRange // -d-range start-end; empty resumes from last
	DownloadFile  string      // -file: txt with one address per line

	Proxy string // optional HTTP proxy, e.g. http://127.0.0.1:7897
}

// BlockRange is a start/end block interval.
type BlockRange struct {
	Start uint64
	End   uint64
}

func (b *BlockRange) String() string {
	if b == nil {
		return ""
	}
	return fmt.Sprintf("%d-%d", b.Start, b.End)
}

// parseBlockRange parses "1-220234" or "1000-" (open-ended).
func parseBlockRange(s string) (*BlockRange, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, "-")
	if len(parts) != 2 {
		return nil, errors.New("invalid block range format, expected start-end")
	}
	startStr := strings.TrimSpace(parts[0])
	endStr := strings.TrimSpace(parts[1])
	var br BlockRange
	if startStr == "" {
		return nil, errors.New("start block required")
	}
	start, err := strconv.ParseUint(startStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid start block: %w", err)
	}
	br.Start = start
	if endStr == "" {
		br.End = ^uint64(0) // open-ended
	} else {
		end, err := strconv.ParseUint(endStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid end block: %w", err)
		}
		if end < start {
			return nil, errors.New("end block must be >= start block")
		}
		br.End = end
	}
	return &br, nil
}

// Validate checks required and consistent inputs.
func (c *CLIConfig) Validate() error {
	if c.Download {
		return nil
	}

	if c.AIProvider == "" {
		c.AIProvider = "none"
	}
	if c.TargetSource != "db" && c.TargetSource != "file" && c.TargetSource != "contract" && c.TargetSource != "address" {
		return errors.New("-t must be one of: db, file, contract, address")
	}
	if c.TargetSource == "file" && c.TargetFile == "" {
		return errors.New("-t-file is required when -t=file")
	}
	if (c.TargetSource == "contract" || c.TargetSource == "address") && c.TargetAddress == "" {
		return errors.New("-t-address is required when -t=contract or -t=address")
	}
	if c.Chain == "" {
		c.Chain = "eth"
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
	if c.MaxSourceKB < 0 {
		return errors.New("-max-source-kb must be >= 0")
	}
	return nil
}

func showHelp(topic string) {
	switch topic {
	case "d", "download":
		showDownloadHelp()
	case "ai":
		showAIHelp()
	case "s", "strategy":
		showStrategyHelp()
	case "t", "target":
		showTargetHelp()
	case "c", "chain":
		showChainHelp()
	default:
		showGeneralHelp()
	}
}

func showGeneralHelp() {
	fmt.Println("🔍 Solidity Sentinel - smart contract security scanner")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  sentinel [command] [options]")
	fmt.Println()
	fmt.Println("Main commands:")
	fmt.Println("  -d, --download    contract download mode")
	fmt.Println("  -ai <provider>    AI provider for the audit pass (or 'none' for static only)")
	fmt.Println("  -s <strategy>     prompt strategy template")
	fmt.Println("  -t <target>       audit target source")
	fmt.Println("  -c <chain>        blockchain network")
	fmt.Println()
	fmt.Println("Help for a specific command:")
	fmt.Println("  sentinel -d --help     # download mode help")
	fmt.Println("  sentinel -ai --help    # AI provider help")
	fmt.Println("  sentinel -s --help     # strategy help")
	fmt.Println("  sentinel -t --help     # target help")
	fmt.Println("  sentinel -c --help     # chain help")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  sentinel -ai deepseek -s default -t contract -t-address 0x123... -c eth")
	fmt.Println("  sentinel -ai none -t file -t-file contracts.txt    # static engine only")
	fmt.Println("  sentinel -d -d-range 1000-2000")
}

func showDownloadHelp() {
	fmt.Println("📥 Download mode (-d, --download)")
	fmt.Println()
	fmt.Println("Downloads contract code from the chain into the database.")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  sentinel -d [options]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -d-range <range>    block range to download (format: start-end)")
	fmt.Println("  -file <path>        download the addresses listed in a txt file")
	fmt.Println("  -proxy <url>        HTTP proxy to use")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  sentinel -d                        # resume from the last stored block")
	fmt.Println("  sentinel -d -d-range 1000-2000     # download blocks 1000-2000")
	fmt.Println("  sentinel -d -file failed.txt -proxy http://127.0.0.1:7897")
}

func showAIHelp() {
	fmt.Println("🤖 AI provider (-ai)")
	fmt.Println()
	fmt.Println("Selects the model that reviews the static pre-analysis.")
	fmt.Println()
	fmt.Println("Supported providers:")
	fmt.Println("  openai       OpenAI GPT-4")
	fmt.Println("  gpt4         OpenAI GPT-4 (alias)")
	fmt.Println("  deepseek     DeepSeek AI")
	fmt.Println("  local-llm    local LLM (Ollama)")
	fmt.Println("  ollama       local Ollama (alias)")
	fmt.Println("  none         skip the LLM pass, static engine only")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  sentinel -ai deepseek -t contract -t-address 0x123...")
	fmt.Println("  sentinel -ai none -t db -t-block 1-1000")
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println("  set API keys in config/settings.yaml")
	fmt.Println("  or via environment: OPENAI_API_KEY, DEEPSEEK_API_KEY")
}

func showStrategyHelp() {
	fmt.Println("📋 Strategy (-s)")
	fmt.Println()
	fmt.Println("Selects the prompt template for the LLM pass.")
	fmt.Println()
	fmt.Println("Template location:")
	fmt.Println("  strategy/prompts/audit/<strategy>.tmpl")
	fmt.Println()
	fmt.Println("A missing template falls back to the built-in default, which")
	fmt.Println("embeds the static pre-analysis and the JSON reply schema.")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  sentinel -ai deepseek -s default -t contract -t-address 0x123...")
}

func showTargetHelp() {
	fmt.Println("🎯 Target (-t)")
	fmt.Println()
	fmt.Println("Selects where audit targets come from.")
	fmt.Println()
	fmt.Println("Target types:")
	fmt.Println("  contract     one contract")
	fmt.Println("  address      one address (same as contract)")
	fmt.Println("  db           contracts stored in the database")
	fmt.Println("  file         addresses listed in a file")
	fmt.Println()
	fmt.Println("Related options:")
	fmt.Println("  -t-address <addr>    single contract address (with -t contract/address)")
	fmt.Println("  -t-file <path>       address list path (with -t file)")
	fmt.Println("  -t-block <range>     block range (with -t db)")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  sentinel -ai deepseek -t contract -t-address 0x123...")
	fmt.Println("  sentinel -ai none -t db -t-block 1-1000")
	fmt.Println("  sentinel -ai openai -t file -t-file contracts.txt")
}

func showChainHelp() {
	fmt.Println("⛓️  Chain (-c)")
	fmt.Println()
	fmt.Println("Selects the network to scan.")
	fmt.Println()
	fmt.Println("Supported networks:")
	fmt.Println("  eth         Ethereum mainnet (default)")
	fmt.Println("  bsc         BNB Smart Chain")
	fmt.Println("  arb         Arbitrum")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  sentinel -ai deepseek -t contract -t-address 0x123... -c eth")
	fmt.Println("  sentinel -d -d-range 1000-2000 -c bsc")
}

// ParseFlags parses os.Args into a CLIConfig.
func ParseFlags() (*CLIConfig, error) {
	if len(os.Args) > 1 {
		for i := 1; i < len(os.Args)-1; i++ {
			if os.Args[i+1] == "--help" || os.Args[i+1] == "-h" {
				cmd := os.Args[i]
				if strings.HasPrefix(cmd, "--") {
					cmd = cmd[2:]
				} else if strings.HasPrefix(cmd, "-") {
					cmd = cmd[1:]
				}
				showHelp(cmd)
				os.Exit(0)
			}
		}

		for _, arg := range os.Args[1:] {
			if arg == "--help" || arg == "-h" {
				showGeneralHelp()
				os.Exit(0)
			}
		}
	}

	fs := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	fs.Usage = func() {
		showGeneralHelp()
	}

	downloadFlag := fs.Bool("d", false, "start the block/contract download flow")
	drange := fs.String("d-range", "", "block range to download (format start-end); overrides resume-from-last")
	proxy := fs.String("proxy", "", "optional HTTP proxy, e.g. http://127.0.0.1:7897")

	aiProvider := fs.String("ai", "none", "AI provider: openai | deepseek | local-llm | none")
	strategy := fs.String("s", "default", "prompt strategy template under strategy/prompts/audit/")
	target := fs.String("t", "db", "target source: db | file | contract | address")
	blockRange := fs.String("t-block", "", "block range to scan (format start-end, e.g. 1-220234)")
	tfile := fs.String("t-file", "", "address list path when -t=file")
	taddress := fs.String("t-address", "", "single contract address when -t=contract or -t=address")
	chain := fs.String("c", "eth", "chain to scan: eth | bsc | arb")
	concurrency := fs.Int("concurrency", 4, "concurrent LLM requests in the batch pass")
	verbose := fs.Bool("v", false, "verbose output")
	timeout := fs.Duration("timeout", 30*time.Second, "per-AI request timeout")
	fileFlag := fs.String("file", "", "with -d: txt file of addresses to (re)download, one per line")

	knowledge := fs.String("knowledge", "", "dataset-derived pattern artifact (overrides settings.yaml)")
	maxSourceKB := fs.Int("max-source-kb", 0, "input cap in KB; 0 uses the engine default")
	outputDir := fs.String("o", "reports", "report output directory")

	if err := fs.Parse(os.Args[1:]); err != nil {
		return nil, err
	}

	cfg := &CLIConfig{
		AIProvider:    strings.TrimSpace(*aiProvider),
		Strategy:      strings.TrimSpace(*strategy),
		TargetSource:  strings.TrimSpace(*target),
		TargetFile:    strings.TrimSpace(*tfile),
		TargetAddress: strings.TrimSpace(*taddress),
		Chain:         strings.TrimSpace(*chain),
		Concurrency:   *concurrency,
		Verbose:       *verbose,
		Timeout:       *timeout,
		KnowledgePath: strings.TrimSpace(*knowledge),
		MaxSourceKB:   *maxSourceKB,
		OutputDir:     strings.TrimSpace(*outputDir),
		Download:      *downloadFlag,
		Proxy:         strings.TrimSpace(*proxy),
		DownloadFile:  strings.TrimSpace(*fileFlag),
	}

	if strings.TrimSpace(*drange) != "" {
		br, err := parseBlockRange(*drange)
		if err != nil {
			return nil, err
		}
		cfg.DownloadRange = br
	}

	if strings.TrimSpace(*blockRange) != "" {
		br, err := parseBlockRange(*blockRange)
		if err != nil {
			return nil, err
		}
		cfg.BlockRange = br
	}

	cfg.TargetSource = strings.ToLower(cfg.TargetSource)
	if cfg.TargetSource == "yaml" {
		cfg.TargetSource = "file"
	}

	if cfg.TargetFile != "" {
		if !filepath.IsAbs(cfg.TargetFile) {
			cwd, _ := os.Getwd()
			cfg.TargetFile = filepath.Join(cwd, cfg.TargetFile)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Run parses flags and dispatches to the right handler.
func Run() error {
	cfg, err := ParseFlags()
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	return Execute(cfg)
}

// PrintFatal prints the error to stderr and exits non-zero.
func PrintFatal(err error) {
	if err == nil {
		return
	}

	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}
