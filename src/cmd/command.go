package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/w3guard/solidity-sentinel/src/config"
	"github.com/w3guard/solidity-sentinel/src/internal"
	"github.com/w3guard/solidity-sentinel/src/internal/download"
	"github.com/w3guard/solidity-sentinel/src/internal/handler"
)

// ExecuteDownload runs the contract download flow.
func ExecuteDownload(cfg *CLIConfig) error {
	fmt.Println("🚀 starting contract downloader...")

	fmt.Println("📊 connecting to MySQL...")
	db, err := config.InitContractsDB()
	if err != nil {
		return fmt.Errorf("init contracts database: %w", err)
	}
	defer db.Close()
	fmt.Println("✅ database connected!")

	fmt.Println("🔗 creating downloader...")
	dl, err := download.NewDownloader(db, cfg.Chain, cfg.Proxy)
	if err != nil {
		return fmt.Errorf("create downloader: %w", err)
	}
	defer dl.Close()

	ctx := context.Background()

	fmt.Println("\n" + strings.Repeat("=", 50))
	fmt.Println("syncing contract data...")
	fmt.Println(strings.Repeat("=", 50) + "\n")

	if cfg.DownloadFile != "" {
		addrs, err := readAddressFile(cfg.DownloadFile)
		if err != nil {
			return err
		}
		if len(addrs) == 0 {
			return fmt.Errorf("address file is empty: %s", cfg.DownloadFile)
		}

		failLog := "download_failures.txt"
		fmt.Printf("🔁 retrying %d addresses from %s, failures logged to %s\n", len(addrs), cfg.DownloadFile, failLog)
		if err := dl.DownloadContractsByAddresses(ctx, addrs, failLog); err != nil {
			return fmt.Errorf("download by addresses failed: %w", err)
		}

		fmt.Println("\n🎉 address download done!")
		return nil
	}

	if cfg.DownloadRange != nil {
		start := cfg.DownloadRange.Start
		end := cfg.DownloadRange.End
		if end == ^uint64(0) {
			return fmt.Errorf("download range end block is required")
		}
		fmt.Printf("📥 downloading block range %d to %d\n", start, end)
		if err := dl.DownloadBlockRange(ctx, start, end); err != nil {
			return fmt.Errorf("download failed: %w", err)
		}
	} else {
		fmt.Println("📥 resuming from last downloaded block...")
		if err := dl.DownloadFromLast(ctx); err != nil {
			return fmt.Errorf("resume download failed: %w", err)
		}
	}

	fmt.Println("\n🎉 download done!")
	return nil
}

// readAddressFile reads one 0x-address per line; # lines are comments.
func readAddressFile(fpath string) ([]string, error) {
	f, err := os.Open(fpath)
	if err != nil {
		return nil, fmt.Errorf("open address file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	var addrs []string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if len(line) == 42 && strings.HasPrefix(line, "0x") {
			addrs = append(addrs, line)
		} else {
			fmt.Printf("⚠️  skipping invalid address: %s\n", line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read address file: %w", err)
	}
	return addrs, nil
}

// ExecuteScan runs the audit flow.
func ExecuteScan(cfg *CLIConfig) error {
	if err := config.LoadSettings("src/config/settings.yaml"); err != nil {
		fmt.Printf("⚠️  warning: could not load settings file: %v\n", err)
		fmt.Println("falling back to environment variables...")
	}

	internalCfg := internal.AuditConfig{
		AIProvider:    cfg.AIProvider,
		Template:      cfg.Strategy,
		TargetSource:  cfg.TargetSource,
		TargetFile:    cfg.TargetFile,
		TargetAddress: cfg.TargetAddress,
		Chain:         cfg.Chain,
		Concurrency:   cfg.Concurrency,
		Verbose:       cfg.Verbose,
		Timeout:       cfg.Timeout,
		Proxy:         cfg.Proxy,
		KnowledgePath: cfg.KnowledgePath,
		MaxSourceKB:   cfg.MaxSourceKB,
		OutputDir:     cfg.OutputDir,
	}
	if cfg.BlockRange != nil {
		internalCfg.BlockRange = &internal.BlockRange{
			Start: cfg.BlockRange.Start,
			End:   cfg.BlockRange.End,
		}
	}

	return handler.RunAudit(internalCfg)
}

// Execute dispatches to download or audit.
func Execute(cfg *CLIConfig) error {
	if cfg.Download {
		return ExecuteDownload(cfg)
	}

	if cfg.Verbose {
		fmt.Printf("running sentinel with config: %+v\n", cfg)
	}

	return ExecuteScan(cfg)
}
