package analysis

import "regexp"

// Gas heuristics are additive suggestions only; they never touch the
// security score or confidence.

var (
	reLoopLength    = regexp.MustCompile(`for\s*\([^;]*;[^;]*\.length`)
	reMemoryString  = regexp.MustCompile(`\bstring\s+memory\b`)
	reStorageAccess = regexp.MustCompile(`\b(\w+)\s*\[[^\]]+\]`)
)

const (
	hintCacheLength   = "Cache the array length in a local variable instead of reading .length in the loop condition"
	hintCacheStorage  = "Repeated reads of the same storage mapping detected; cache the value in a local variable"
	hintMemoryStrings = "Memory string variables are expensive; prefer bytes32 or calldata where the value allows it"
)

// gasHints returns the ordered suggestion list for the source. Each rule
// contributes its suggestion at most once.
func gasHints(source string, lines []string) []string {
	var hints []string

	if reLoopLength.MatchString(source) {
		hints = append(hints, hintCacheLength)
	}

	// Repeated-storage-read: the same mapping identifier indexed on three or
	// more lines. Comment text is ignored; precision beyond that is not worth
	// chasing in a text-level pass.
	counts := make(map[string]int)
	repeated := false
	for _, line := range lines {
		seen := make(map[string]bool)
		for _, m := range reStorageAccess.FindAllStringSubmatch(stripLineComment(line), -1) {
			seen[m[1]] = true
		}
		for id := range seen {
			counts[id]++
			if counts[id] >= 3 {
				repeated = true
			}
		}
	}
	if repeated {
		hints = append(hints, hintCacheStorage)
	}

	if reMemoryString.MatchString(source) {
		hints = append(hints, hintMemoryStrings)
	}

	return hints
}
