package analysis

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"regexp"
	"strings"
	"sync"
)

// DefaultMaxSourceBytes caps analyzer input. Some catalog expressions carry
// unbounded quantifiers, so the cap bounds worst-case regex time on
// adversarial input. Oversized input is rejected, never truncated.
const DefaultMaxSourceBytes = 512 * 1024

// enhancedIDPrefix namespaces dataset-derived pattern ids so they can never
// collide with base ids. Identity of enhanced patterns is the Origin field,
// not this prefix.
const enhancedIDPrefix = "ds-"

// compiledPattern pairs a catalog entry with its compiled matcher.
type compiledPattern struct {
	VulnerabilityPattern
	re *regexp.Regexp
}

// DatasetStats carries the aggregate statistics of the enhanced artifact.
type DatasetStats struct {
	TotalContracts            int            `json:"total_contracts"`
	VulnerabilityDistribution map[string]int `json:"vulnerability_distribution"`
	ProcessedDate             string         `json:"processed_date"`
}

// enhancedArtifact is the on-disk shape of the dataset-derived catalog,
// produced by the offline corpus-processing step.
type enhancedArtifact struct {
	DatasetStats
	Patterns []struct {
		ID             string   `json:"id"`
		Name           string   `json:"name"`
		Severity       string   `json:"severity"`
		Pattern        string   `json:"pattern"`
		Description    string   `json:"description"`
		Recommendation string   `json:"recommendation"`
		Examples       []string `json:"examples"`
		CWE            string   `json:"cwe"`
		Prevalence     float64  `json:"prevalence"`
	} `json:"patterns"`
}

// Options configures a KnowledgeBase.
type Options struct {
	// ArtifactPath points at the enhanced pattern artifact. Empty means
	// base catalog only.
	ArtifactPath string
	// MaxSourceBytes overrides DefaultMaxSourceBytes when > 0.
	MaxSourceBytes int
	// ExtraPatterns are appended to the base catalog before enhancement;
	// used by tests to build isolated catalogs.
	ExtraPatterns []VulnerabilityPattern
}

// KnowledgeBase owns the effective pattern catalog. It is constructed once by
// the caller and is safe for concurrent Analyze calls: the catalog is an
// immutable snapshot swapped atomically by Reload.
type KnowledgeBase struct {
	mu       sync.RWMutex
	base     []compiledPattern
	catalog  []compiledPattern // base + enhanced, the effective snapshot
	enhanced bool
	stats    *DatasetStats

	reloadMu       sync.Mutex // single in-flight reload
	artifactPath   string
	maxSourceBytes int
}

// NewKnowledgeBase compiles the base catalog and attempts the enhancement
// step. Failure to enhance is a normal, silent fallback: it is logged and the
// base catalog is used. The constructor itself never fails.
func NewKnowledgeBase(opts Options) *KnowledgeBase {
	maxBytes := opts.MaxSourceBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxSourceBytes
	}

	kb := &KnowledgeBase{
		artifactPath:   opts.ArtifactPath,
		maxSourceBytes: maxBytes,
	}

	defs := basePatterns()
	defs = append(defs, opts.ExtraPatterns...)
	kb.base = compileAll(defs, OriginBase)
	kb.catalog = kb.base

	if kb.artifactPath != "" {
		if err := kb.LoadEnhanced(); err != nil {
			log.Printf("knowledge base: enhanced catalog unavailable, using base patterns: %v", err)
		}
	}

	return kb
}

// compileAll validates every pattern, dropping (with a diagnostic) any whose
// expression does not compile. One broken rule must not take down the catalog.
func compileAll(defs []VulnerabilityPattern, origin Origin) []compiledPattern {
	out := make([]compiledPattern, 0, len(defs))
	for _, def := range defs {
		if def.Origin == "" {
			def.Origin = origin
		}
		re, err := regexp.Compile(def.Expr)
		if err != nil {
			log.Printf("knowledge base: dropping pattern %q: bad expression: %v", def.ID, err)
			continue
		}
		out = append(out, compiledPattern{VulnerabilityPattern: def, re: re})
	}
	return out
}

// LoadEnhanced reads the artifact and swaps in a base+enhanced catalog. The
// error is explicit; the constructor and Reload decide what falling back
// means. Concurrent calls are serialized.
func (kb *KnowledgeBase) LoadEnhanced() error {
	kb.reloadMu.Lock()
	defer kb.reloadMu.Unlock()
	return kb.loadEnhancedLocked()
}

func (kb *KnowledgeBase) loadEnhancedLocked() error {
	if kb.artifactPath == "" {
		return fmt.Errorf("no enhanced artifact path configured")
	}

	data, err := os.ReadFile(kb.artifactPath)
	if err != nil {
		kb.degradeToBase()
		return fmt.Errorf("read enhanced artifact: %w", err)
	}

	var artifact enhancedArtifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		kb.degradeToBase()
		return fmt.Errorf("parse enhanced artifact: %w", err)
	}

	defs := make([]VulnerabilityPattern, 0, len(artifact.Patterns))
	for _, p := range artifact.Patterns {
		sev := Severity(strings.ToLower(p.Severity))
		if !ValidSeverity(sev) {
			log.Printf("knowledge base: enhanced pattern %q has unknown severity %q, defaulting to medium", p.ID, p.Severity)
			sev = SeverityMedium
		}
		prevalence := p.Prevalence
		if prevalence < 0 {
			prevalence = 0
		}
		if prevalence > 1 {
			prevalence = 1
		}
		id := p.ID
		if !strings.HasPrefix(id, enhancedIDPrefix) {
			id = enhancedIDPrefix + id
		}
		defs = append(defs, VulnerabilityPattern{
			ID:             id,
			Name:           p.Name,
			Severity:       sev,
			Expr:           p.Pattern,
			Description:    p.Description,
			Recommendation: p.Recommendation,
			CWE:            p.CWE,
			Prevalence:     prevalence,
			Origin:         OriginEnhanced,
		})
	}

	enhanced := compileAll(defs, OriginEnhanced)

	// Duplicate category coverage with the base set is intentional: both the
	// base and enhanced reentrancy rules may fire, and scoring absorbs the
	// redundancy. No deduplication here.
	kb.mu.Lock()
	kb.catalog = append(append([]compiledPattern{}, kb.base...), enhanced...)
	kb.enhanced = true
	stats := artifact.DatasetStats
	kb.stats = &stats
	kb.mu.Unlock()

	return nil
}

// degradeToBase resets the effective catalog to the base set. Callers hold
// reloadMu.
func (kb *KnowledgeBase) degradeToBase() {
	kb.mu.Lock()
	kb.catalog = kb.base
	kb.enhanced = false
	kb.stats = nil
	kb.mu.Unlock()
}

// Reload clears and re-fetches only the enhanced subset; base patterns are
// never rebuilt. Readers keep seeing the previous complete snapshot until the
// new one is swapped in.
func (kb *KnowledgeBase) Reload() error {
	kb.reloadMu.Lock()
	defer kb.reloadMu.Unlock()

	if err := kb.loadEnhancedLocked(); err != nil {
		return fmt.Errorf("reload enhanced catalog: %w", err)
	}
	return nil
}

// Enhanced reports whether the dataset-derived catalog is active.
func (kb *KnowledgeBase) Enhanced() bool {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	return kb.enhanced
}

// CatalogSize returns the number of patterns in the effective catalog.
func (kb *KnowledgeBase) CatalogSize() int {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	return len(kb.catalog)
}

// Stats returns the artifact's aggregate statistics, nil when not enhanced.
func (kb *KnowledgeBase) Stats() *DatasetStats {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	return kb.stats
}

// snapshot hands Analyze an immutable view of the catalog.
func (kb *KnowledgeBase) snapshot() (catalog []compiledPattern, enhanced bool) {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	return kb.catalog, kb.enhanced
}
