package handler

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/w3guard/solidity-sentinel/src/config"
	"github.com/w3guard/solidity-sentinel/src/internal"
	"github.com/w3guard/solidity-sentinel/src/internal/ai"
	"github.com/w3guard/solidity-sentinel/src/internal/ai/parser"
	"github.com/w3guard/solidity-sentinel/src/internal/analysis"
	"github.com/w3guard/solidity-sentinel/src/internal/download"
	"github.com/w3guard/solidity-sentinel/src/internal/report"
	"github.com/w3guard/solidity-sentinel/src/strategy/prompts"
)

// RunAudit executes a full audit run: resolve targets, static pre-analysis,
// optional LLM pass, merged verdict, report.
func RunAudit(cfg internal.AuditConfig) error {
	fmt.Println("🎯 starting contract audit...")

	db, err := config.InitContractsDB()
	if err != nil {
		return fmt.Errorf("init contracts database: %w", err)
	}
	defer db.Close()

	kb := newKnowledgeBase(cfg)
	fmt.Printf("📚 knowledge base ready: %d patterns\n", kb.CatalogSize())

	useLLM := cfg.AIProvider != "" && cfg.AIProvider != "none"
	var aiManager *ai.Manager
	if useLLM {
		aiManager, err = ai.NewManager(ai.ManagerConfig{
			Provider:       cfg.AIProvider,
			Timeout:        cfg.Timeout,
			Proxy:          cfg.Proxy,
			RequestsPerMin: 20,
		})
		if err != nil {
			return fmt.Errorf("create AI manager: %w", err)
		}
		defer aiManager.Close()
	}

	ctx := context.Background()
	if useLLM {
		if err := aiManager.TestConnection(ctx); err != nil {
			return fmt.Errorf("AI connection test failed: %w", err)
		}
	}

	targetAddresses, err := resolveTargets(cfg, db)
	if err != nil {
		return err
	}
	if len(targetAddresses) == 0 {
		fmt.Println("⚠️  no contracts to audit")
		return nil
	}
	fmt.Printf("📋 %d target contract(s)\n", len(targetAddresses))

	downloader, err := download.NewDownloader(db, cfg.Chain, cfg.Proxy)
	if err != nil {
		return fmt.Errorf("create downloader: %w", err)
	}
	defer downloader.Close()

	provider := cfg.AIProvider
	if !useLLM {
		provider = "none"
	}
	auditReport := report.NewReport("scan", cfg.Template, provider)

	failCount := 0

	// Phase 1: fetch sources and run the static engine, serially (DB-bound).
	items := make([]*auditItem, 0, len(targetAddresses))
	for i, address := range targetAddresses {
		fmt.Printf("\n[%d/%d] contract: %s\n", i+1, len(targetAddresses), address)

		contractCode, err := getOrDownloadContract(ctx, db, downloader, address)
		if err != nil {
			fmt.Printf("⚠️  fetch contract failed: %v, skipping\n", err)
			failCount++
			continue
		}

		if isOnlyBytecode(contractCode) {
			fmt.Println("  ⏭️  contract not verified (bytecode only), skipping analysis")
			failCount++
			continue
		}

		item, err := prepareItem(kb, cfg, address, contractCode, useLLM)
		if err != nil {
			fmt.Printf("⚠️  static analysis failed: %v, skipping\n", err)
			failCount++
			continue
		}
		items = append(items, item)
	}

	// Phase 2: LLM pass over all prepared prompts, bounded by -concurrency.
	if aiManager != nil && len(items) > 0 {
		inputs := make([]ai.ContractInput, len(items))
		for i, item := range items {
			inputs[i] = ai.ContractInput{Address: item.address, Prompt: item.prompt}
		}
		verdicts, err := aiManager.AnalyzeBatch(ctx, inputs, cfg.Concurrency)
		if err != nil {
			fmt.Printf("⚠️  batch analysis finished with errors: %v\n", err)
		}
		for i := range items {
			applyVerdict(&items[i].scan, items[i].static, verdicts[i])
		}
	}

	successCount := len(items)
	for _, item := range items {
		auditReport.AddScanResult(item.scan)

		fmt.Printf("%s\n", strings.Repeat("=", 50))
		fmt.Printf("  📜 %s\n", item.address)
		printScanSummary(&item.scan)
		fmt.Printf("%s\n", strings.Repeat("=", 50))
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 50))
	fmt.Printf("✅ audit complete!\n")
	fmt.Printf("   - total contracts: %d\n", len(targetAddresses))
	fmt.Printf("   - analyzed: %d\n", successCount)
	fmt.Printf("   - failed/skipped: %d\n", failCount)
	fmt.Printf("   - contracts with findings: %d\n", auditReport.VulnerableContracts)
	fmt.Printf("%s\n\n", strings.Repeat("=", 50))

	if len(auditReport.Results) > 0 {
		location, err := saveReport(auditReport, cfg)
		if err != nil {
			return fmt.Errorf("save report: %w", err)
		}
		fmt.Printf("📄 report saved: %s\n", location)
	}

	return nil
}

// auditItem is one contract staged for the batch LLM pass.
type auditItem struct {
	address string
	scan    report.ScanResult
	static  *analysis.AnalysisResult
	prompt  string
}

// prepareItem runs the static engine for one contract and, when an LLM pass
// follows, assembles its prompt.
func prepareItem(kb *analysis.KnowledgeBase, cfg internal.AuditConfig, address, contractCode string, useLLM bool) (*auditItem, error) {
	staticResult, err := kb.Analyze(contractCode)
	if err != nil {
		return nil, fmt.Errorf("static analysis: %w", err)
	}

	scanResult := report.NewScanResult(address)
	scanResult.SecurityScore = staticResult.SecurityScore
	scanResult.Confidence = staticResult.Confidence
	scanResult.DatasetMatches = staticResult.DatasetMatchCount
	scanResult.GasHints = staticResult.GasHints
	for severity, descs := range staticResult.Findings {
		scanResult.Findings[string(severity)] = descs
	}

	item := &auditItem{
		address: address,
		scan:    scanResult,
		static:  staticResult,
	}
	if useLLM {
		preAnalysis := analysis.FormatForModel(contractCode, staticResult, staticResult.Recommendations)
		item.prompt = prompts.BuildAuditPrompt(address, preAnalysis, cfg.Template, parser.GetSchemaInstructions())
	}
	return item, nil
}

// newKnowledgeBase wires the engine from CLI flags with settings fallback.
func newKnowledgeBase(cfg internal.AuditConfig) *analysis.KnowledgeBase {
	analysisCfg := config.GetAnalysisConfig()

	artifactPath := cfg.KnowledgePath
	if artifactPath == "" {
		artifactPath = analysisCfg.KnowledgePath
	}
	maxKB := cfg.MaxSourceKB
	if maxKB <= 0 {
		maxKB = analysisCfg.MaxSourceKB
	}

	opts := analysis.Options{ArtifactPath: artifactPath}
	if maxKB > 0 {
		opts.MaxSourceBytes = maxKB * 1024
	}
	return analysis.NewKnowledgeBase(opts)
}

// resolveTargets picks addresses from the configured source.
func resolveTargets(cfg internal.AuditConfig, db *sql.DB) ([]string, error) {
	switch strings.ToLower(cfg.TargetSource) {
	case "db":
		addrs, err := getAddressesFromDB(db, cfg.BlockRange)
		if err != nil {
			return nil, fmt.Errorf("fetch addresses from database: %w", err)
		}
		return addrs, nil
	case "file", "filepath":
		addrs, err := getAddressesFromFile(cfg.TargetFile)
		if err != nil {
			return nil, fmt.Errorf("fetch addresses from file: %w", err)
		}
		return addrs, nil
	case "contract", "address", "single":
		if strings.TrimSpace(cfg.TargetAddress) == "" {
			return nil, fmt.Errorf("missing target contract address: -t-address")
		}
		return []string{strings.TrimSpace(cfg.TargetAddress)}, nil
	default:
		return nil, fmt.Errorf("unsupported target source: %s", cfg.TargetSource)
	}
}

// saveReport prefers the Postgres store and falls back to local files.
func saveReport(auditReport *report.Report, cfg internal.AuditConfig) (string, error) {
	generator := report.NewMarkdownGenerator()

	if reportsDB, err := config.InitReportsDB(); err == nil {
		defer reportsDB.Close()
		if pg, pgErr := report.NewPostgresStorage(reportsDB); pgErr == nil {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if schemaErr := pg.EnsureSchema(ctx); schemaErr == nil {
				if location, saveErr := report.NewReporter(generator, pg).GenerateAndSave(auditReport); saveErr == nil {
					return location, nil
				}
			}
		}
		fmt.Println("⚠️  report database unavailable, writing to file instead")
	}

	outputDir := cfg.OutputDir
	if outputDir == "" {
		outputDir = "reports"
	}
	return report.NewReporter(generator, report.NewFileStorage(outputDir)).GenerateAndSave(auditReport)
}

// isOnlyBytecode detects unverified contracts (pure 0x-hex deploy code).
func isOnlyBytecode(code string) bool {
	code = strings.TrimSpace(code)
	if len(code) < 10 {
		return true
	}
	if !strings.HasPrefix(code, "0x") {
		return false
	}
	for _, c := range code[2:] {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}

// getOrDownloadContract reads the contract from the store, downloading it
// first when absent. Falls back to on-chain bytecode as a last resort.
func getOrDownloadContract(ctx context.Context, db *sql.DB, downloader *download.Downloader, address string) (string, error) {
	var contractCode string
	query := "SELECT contract FROM contracts WHERE address = ? AND contract IS NOT NULL AND contract != ''"
	err := db.QueryRowContext(ctx, query, address).Scan(&contractCode)
	if err == nil && contractCode != "" {
		fmt.Println("  ✓ contract code loaded from database")
		return contractCode, nil
	}

	fmt.Println("  ↓ contract not in database, downloading...")
	if err := downloader.DownloadContractsByAddresses(ctx, []string{address}, ""); err != nil {
		codeBytes, rcErr := downloader.Client.CodeAt(ctx, common.HexToAddress(address), nil)
		if rcErr != nil {
			return "", fmt.Errorf("download failed: %v, bytecode fallback failed: %w", err, rcErr)
		}
		return fmt.Sprintf("0x%x", codeBytes), nil
	}

	err = db.QueryRowContext(ctx, query, address).Scan(&contractCode)
	if err == nil && contractCode != "" {
		return contractCode, nil
	}

	return "", fmt.Errorf("no source available, contract is bytecode-only or missing")
}

// getAddressesFromDB lists verified contracts, optionally bounded by block range.
func getAddressesFromDB(db *sql.DB, blockRange *internal.BlockRange) ([]string, error) {
	var query string
	var args []interface{}

	baseConditions := "isopensource = 1 AND contract IS NOT NULL AND contract != ''"

	if blockRange != nil {
		query = fmt.Sprintf(`SELECT DISTINCT address FROM contracts WHERE %s AND createblock BETWEEN ? AND ? LIMIT 1000`, baseConditions)
		args = []interface{}{blockRange.Start, blockRange.End}
	} else {
		query = fmt.Sprintf(`SELECT DISTINCT address FROM contracts WHERE %s LIMIT 1000`, baseConditions)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	addrs := make([]string, 0)
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			return nil, err
		}
		addrs = append(addrs, strings.TrimSpace(a))
	}
	return addrs, rows.Err()
}

// getAddressesFromFile reads one address per line; # and // lines are comments.
func getAddressesFromFile(filepathStr string) ([]string, error) {
	if strings.TrimSpace(filepathStr) == "" {
		return nil, fmt.Errorf("file path is empty")
	}
	bs, err := os.ReadFile(filepathStr)
	if err != nil {
		return nil, err
	}
	lines := strings.Split(string(bs), "\n")
	addrs := make([]string, 0, len(lines))
	for _, l := range lines {
		line := strings.TrimSpace(l)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "//") {
			continue
		}
		fields := strings.FieldsFunc(line, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' })
		if len(fields) == 0 {
			continue
		}
		addrs = append(addrs, strings.TrimSpace(fields[0]))
	}
	return addrs, nil
}

// printScanSummary prints the per-contract console verdict.
func printScanSummary(result *report.ScanResult) {
	fmt.Printf("  🛡  security score: %d/5 (confidence %.1f)\n", result.SecurityScore, result.Confidence)

	staticCount := 0
	for _, descs := range result.Findings {
		staticCount += len(descs)
	}
	if staticCount > 0 {
		fmt.Printf("  🔎 static findings: %d\n", staticCount)
	}

	if result.AnalysisSummary != "" {
		fmt.Printf("  ⭐ final stars: %d/5\n", result.SecurityStars)
	}

	vulnCount := len(result.Vulnerabilities)
	if vulnCount == 0 && staticCount == 0 {
		fmt.Println("  ✅ no issues found")
		return
	}

	if vulnCount > 0 {
		fmt.Printf("  ⚠️  %d confirmed vulnerabilit(ies):\n", vulnCount)
		for i, vuln := range result.Vulnerabilities {
			fmt.Printf("    %d. %s [%s] %s\n", i+1, getSeverityEmoji(vuln.Severity), vuln.Severity, vuln.Type)
			if vuln.Description != "" && len(vuln.Description) < 200 {
				fmt.Printf("       %s\n", vuln.Description)
			}
		}
	}
}

func getSeverityEmoji(severity string) string {
	switch severity {
	case "Critical":
		return "🔴"
	case "High":
		return "🟠"
	case "Medium":
		return "🟡"
	case "Low":
		return "🟢"
	default:
		return "⚪"
	}
}
