package download

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"math/big"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/w3guard/solidity-sentinel/src/config"
	"github.com/w3guard/solidity-sentinel/src/internal"
)

// ContractInfo is the row written to the contracts table.
type ContractInfo struct {
	Address      string
	Contract     string
	Balance      string
	IsOpenSource int
	CreateTime   time.Time
	CreateBlock  uint64
	TxLast       time.Time
	IsDecompiled int
	DedCode      string
}

// Downloader pulls contract creations off the chain and verified source off
// Etherscan, persisting both into the contracts store.
type Downloader struct {
	Client          *ethclient.Client
	db              *sql.DB
	etherscanConfig EtherscanConfig
	rateLimiter     *RateLimiter
}

// NewDownloader dials the configured RPC endpoint for the chain. A non-empty
// proxy is installed on the global transport first so both the RPC dial and
// the Etherscan client go through it.
func NewDownloader(db *sql.DB, chain, proxy string) (*Downloader, error) {
	if db == nil {
		return nil, fmt.Errorf("contracts database handle is nil")
	}

	if err := internal.SetGlobalProxy(proxy); err != nil {
		return nil, fmt.Errorf("configure proxy: %w", err)
	}

	rpcURL, err := config.GetRPCURL(chain)
	if err != nil {
		return nil, fmt.Errorf("resolve RPC URL: %w", err)
	}

	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial RPC node: %w", err)
	}
	log.Printf("✅ connected to RPC node: %s", rpcURL)

	apiKey, baseURL := config.GetEtherscanConfig()
	return &Downloader{
		Client: client,
		db:     db,
		etherscanConfig: EtherscanConfig{
			APIKey:  apiKey,
			BaseURL: baseURL,
			Proxy:   strings.TrimSpace(proxy),
		},
		rateLimiter: NewRateLimiter(5),
	}, nil
}

// Close releases the RPC client.
func (d *Downloader) Close() {
	if d.Client != nil {
		d.Client.Close()
	}
}

// GetCurrentBlock returns the chain head number.
func (d *Downloader) GetCurrentBlock(ctx context.Context) (uint64, error) {
	return d.Client.BlockNumber(ctx)
}

// GetLastDownloadedBlock returns the highest createblock in the store.
func (d *Downloader) GetLastDownloadedBlock(ctx context.Context) (uint64, error) {
	var maxBlock sql.NullInt64
	err := d.db.QueryRowContext(ctx, "SELECT MAX(createblock) FROM contracts").Scan(&maxBlock)
	if err != nil {
		return 0, fmt.Errorf("query last downloaded block: %w", err)
	}
	if !maxBlock.Valid {
		return 0, nil
	}
	return uint64(maxBlock.Int64), nil
}

// ContractExists checks whether the address is already stored.
func (d *Downloader) ContractExists(ctx context.Context, address string) (bool, error) {
	var count int
	err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM contracts WHERE address = ?", address).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// SaveContract upserts a contract row.
func (d *Downloader) SaveContract(ctx context.Context, info *ContractInfo) error {
	query := `
	INSERT INTO contracts (address, contract, balance, isopensource, createtime, createblock, txlast, isdecompiled, dedcode)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON DUPLICATE KEY UPDATE
		contract = VALUES(contract),
		balance = VALUES(balance),
		isopensource = VALUES(isopensource),
		txlast = VALUES(txlast),
		isdecompiled = VALUES(isdecompiled),
		dedcode = VALUES(dedcode)
	`
	_, err := d.db.ExecContext(ctx, query,
		info.Address, info.Contract, info.Balance, info.IsOpenSource,
		info.CreateTime, int64(info.CreateBlock), info.TxLast, info.IsDecompiled, info.DedCode)
	return err
}

// fetchSource resolves the best available code for an address: verified
// source from Etherscan when possible, deployed bytecode otherwise.
func (d *Downloader) fetchSource(ctx context.Context, address string) (code string, verified bool, err error) {
	address = strings.TrimSpace(address)

	if d.etherscanConfig.APIKey != "" {
		d.rateLimiter.Wait()
		source, isVerified, esErr := GetContractSource(address, d.etherscanConfig)
		if esErr == nil && isVerified && source != "" {
			return source, true, nil
		}
		if esErr != nil {
			log.Printf("⚠️  Etherscan lookup for %s failed: %v, falling back to bytecode", address, esErr)
		}
	}

	raw, err := d.Client.CodeAt(ctx, common.HexToAddress(address), nil)
	if err != nil {
		return "", false, fmt.Errorf("fetch bytecode for %s: %w", address, err)
	}
	return fmt.Sprintf("0x%x", raw), false, nil
}

// DownloadContractsByAddresses downloads each address; failures are appended
// to failLog (one address per line) when failLog is non-empty.
func (d *Downloader) DownloadContractsByAddresses(ctx context.Context, addresses []string, failLog string) error {
	for i, address := range addresses {
		fmt.Printf("[%d/%d] downloading %s\n", i+1, len(addresses), address)

		code, verified, err := d.fetchSource(ctx, address)
		if err != nil {
			log.Printf("❌ download %s failed: %v", address, err)
			appendFailAddress(failLog, address)
			continue
		}

		isOpen := 0
		if verified {
			isOpen = 1
		}
		now := time.Now()
		if err := d.SaveContract(ctx, &ContractInfo{
			Address:      address,
			Contract:     code,
			Balance:      "0",
			IsOpenSource: isOpen,
			CreateTime:   now,
			TxLast:       now,
		}); err != nil {
			log.Printf("❌ save %s failed: %v", address, err)
			appendFailAddress(failLog, address)
		}
	}
	return nil
}

// DownloadBlockRange walks the uncovered sub-ranges of [startBlock, endBlock],
// saving every contract creation it finds. Covered ranges are tracked in the
// blocked.json ledger so re-runs skip work.
func (d *Downloader) DownloadBlockRange(ctx context.Context, startBlock, endBlock uint64) error {
	log.Printf("🔍 downloading blocks %d to %d...", startBlock, endBlock)

	existing, err := loadBlockedRanges()
	if err != nil {
		log.Printf("⚠️  reading covered-range ledger failed: %v (continuing, may re-download)", err)
		existing = nil
	}

	uncovered := uncoveredRanges(existing, startBlock, endBlock)
	if len(uncovered) == 0 {
		log.Printf("✅ range [%d-%d] already covered, skipping", startBlock, endBlock)
		return nil
	}

	for _, sub := range uncovered {
		if err := d.downloadSubRange(ctx, sub); err != nil {
			return err
		}
		existing = mergeRange(existing, sub)
		if err := saveBlockedRanges(existing); err != nil {
			log.Printf("⚠️  updating covered-range ledger failed: %v", err)
		}
	}
	return nil
}

func (d *Downloader) downloadSubRange(ctx context.Context, sub blockRange) error {
	for blockNum := sub.Start; blockNum <= sub.End; blockNum++ {
		block, err := d.Client.BlockByNumber(ctx, big.NewInt(int64(blockNum)))
		if err != nil {
			log.Printf("❌ fetch block %d failed: %v", blockNum, err)
			continue
		}

		blockTime := time.Unix(int64(block.Time()), 0)
		for _, tx := range block.Transactions() {
			if tx.To() != nil {
				continue // not a contract creation
			}
			receipt, err := d.Client.TransactionReceipt(ctx, tx.Hash())
			if err != nil {
				log.Printf("⚠️  fetch receipt failed: %v", err)
				continue
			}
			if receipt.ContractAddress == (common.Address{}) {
				continue
			}

			address := receipt.ContractAddress.Hex()
			exists, err := d.ContractExists(ctx, address)
			if err != nil {
				log.Printf("❌ existence check for %s failed: %v", address, err)
				continue
			}
			if exists {
				continue
			}

			code, verified, err := d.fetchSource(ctx, address)
			if err != nil {
				log.Printf("⚠️  fetch code for %s failed: %v", address, err)
				continue
			}
			isOpen := 0
			if verified {
				isOpen = 1
			}
			if err := d.SaveContract(ctx, &ContractInfo{
				Address:      address,
				Contract:     code,
				Balance:      "0",
				IsOpenSource: isOpen,
				CreateTime:   blockTime,
				CreateBlock:  blockNum,
				TxLast:       blockTime,
			}); err != nil {
				log.Printf("❌ save %s failed: %v", address, err)
			}
		}
	}
	return nil
}

// DownloadFromLast resumes from the highest stored block up to the chain head.
func (d *Downloader) DownloadFromLast(ctx context.Context) error {
	last, err := d.GetLastDownloadedBlock(ctx)
	if err != nil {
		return err
	}
	head, err := d.GetCurrentBlock(ctx)
	if err != nil {
		return fmt.Errorf("fetch chain head: %w", err)
	}
	if last >= head {
		log.Printf("✅ already at chain head (%d)", head)
		return nil
	}
	return d.DownloadBlockRange(ctx, last+1, head)
}

// appendFailAddress records a failed address, one per line. Write errors are
// logged, not propagated: losing the retry hint must not abort the run.
func appendFailAddress(failFile, addr string) {
	if strings.TrimSpace(failFile) == "" || strings.TrimSpace(addr) == "" {
		return
	}
	f, err := os.OpenFile(failFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.Printf("⚠️  cannot open failure log %s: %v", failFile, err)
		return
	}
	defer f.Close()
	if _, err := f.WriteString(strings.TrimSpace(addr) + "\n"); err != nil {
		log.Printf("⚠️  cannot write failure log %s: %v", failFile, err)
	}
}

// blockRange is one covered interval in the blocked.json ledger.
type blockRange struct {
	Start uint64 `json:"start"`
	End   uint64 `json:"end"`
}

const blockedFile = "blocked.json"

func loadBlockedRanges() ([]blockRange, error) {
	bs, err := os.ReadFile(blockedFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", blockedFile, err)
	}
	var recs []blockRange
	if err := json.Unmarshal(bs, &recs); err != nil {
		return nil, fmt.Errorf("parse %s: %w", blockedFile, err)
	}
	return recs, nil
}

func saveBlockedRanges(recs []blockRange) error {
	bs, err := json.MarshalIndent(recs, "", "  ")
	if err != nil {
		return fmt.Errorf("serialize covered ranges: %w", err)
	}
	if err := os.WriteFile(blockedFile, bs, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", blockedFile, err)
	}
	return nil
}

// mergeRange inserts r and returns the sorted, non-overlapping interval set.
func mergeRange(existing []blockRange, r blockRange) []blockRange {
	existing = append(existing, r)
	sort.Slice(existing, func(i, j int) bool { return existing[i].Start < existing[j].Start })

	merged := make([]blockRange, 0, len(existing))
	curr := existing[0]
	for i := 1; i < len(existing); i++ {
		next := existing[i]
		if next.Start <= curr.End+1 {
			if next.End > curr.End {
				curr.End = next.End
			}
			continue
		}
		merged = append(merged, curr)
		curr = next
	}
	return append(merged, curr)
}

// uncoveredRanges returns the sub-intervals of [reqStart, reqEnd] not covered
// by existing, ascending.
func uncoveredRanges(existing []blockRange, reqStart, reqEnd uint64) []blockRange {
	if reqStart > reqEnd {
		return nil
	}
	if len(existing) == 0 {
		return []blockRange{{Start: reqStart, End: reqEnd}}
	}

	merged := existing[:0:0]
	for _, r := range existing {
		merged = mergeRange(merged, r)
	}

	var out []blockRange
	cursor := reqStart
	for _, r := range merged {
		if r.End < cursor {
			continue
		}
		if r.Start > reqEnd {
			break
		}
		if r.Start > cursor {
			end := r.Start - 1
			if end > reqEnd {
				end = reqEnd
			}
			out = append(out, blockRange{Start: cursor, End: end})
		}
		if r.End+1 > cursor {
			cursor = r.End + 1
		}
		if cursor > reqEnd {
			break
		}
	}
	if cursor <= reqEnd {
		out = append(out, blockRange{Start: cursor, End: reqEnd})
	}
	return out
}
