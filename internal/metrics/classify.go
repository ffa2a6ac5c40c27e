package metrics

import (
	"strings"

	"github.com/probelab/lexiprobe/internal/ledger"
	"github.com/probelab/lexiprobe/internal/lexicon"
)

// Tag classifies a single response. Tags are mutually exclusive with fixed
// precedence: empty/error > refusal > escape > standard.
type Tag string

const (
	TagEmpty    Tag = "empty"
	TagRefusal  Tag = "refusal"
	TagEscape   Tag = "escape"
	TagStandard Tag = "standard"
)

// Classify tags one response against the lexicon's signature sets. Sentinel
// responses and blank text classify as empty, ahead of everything else.
func Classify(response string, lex *lexicon.Lexicon) Tag {
	trimmed := strings.TrimSpace(response)
	if trimmed == "" || trimmed == ledger.SentinelNoContent || trimmed == ledger.SentinelMalformed {
		return TagEmpty
	}

	folded := Fold(response)
	for _, sig := range lex.RefusalSignatures {
		if strings.Contains(folded, Fold(sig)) {
			return TagRefusal
		}
	}
	for _, sig := range lex.EscapeSignatures {
		if strings.Contains(folded, Fold(sig)) {
			return TagEscape
		}
	}
	return TagStandard
}

// Coupled reports whether both tokens of the coupling pair occur in the
// response, case-insensitive substring match.
func Coupled(response string, lex *lexicon.Lexicon) bool {
	if len(lex.CouplingPair) != 2 {
		return false
	}
	folded := Fold(response)
	return strings.Contains(folded, Fold(lex.CouplingPair[0])) &&
		strings.Contains(folded, Fold(lex.CouplingPair[1]))
}
