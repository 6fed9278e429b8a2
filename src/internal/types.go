package internal

import "time"

// AuditConfig carries the normalized options for one audit run.
type AuditConfig struct {
	AIProvider    string // empty means static-only audit
	Template      string // prompt template name under strategy/prompts/audit/
	TargetSource  string // db | file | address
	TargetFile    string
	TargetAddress string
	Chain         string
	Concurrency   int
	Verbose       bool
	Timeout       time.Duration
	BlockRange    *BlockRange
	Proxy         string

	KnowledgePath string // enhanced pattern artifact; empty = base catalog only
	MaxSourceKB   int
	OutputDir     string
}

// BlockRange bounds a createblock interval when selecting targets from the
// contract store.
type BlockRange struct {
	Start uint64
	End   uint64
}

// Contract is the stored representation of a downloaded contract.
type Contract struct {
	Address      string
	Code         string
	Balance      string
	IsOpenSource bool
	CreateTime   time.Time
	CreateBlock  uint64
	TxLast       time.Time
	IsDecompiled bool
	DedCode      string
}
