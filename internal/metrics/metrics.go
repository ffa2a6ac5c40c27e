// Package metrics derives the lexical snapshot from the accumulated ledger.
// Compute is a pure function of the row set: it never mutates state, never
// raises on malformed rows, and yields identical output for identical input.
package metrics

import (
	"strings"

	"github.com/probelab/lexiprobe/internal/ledger"
	"github.com/probelab/lexiprobe/internal/lexicon"
	"github.com/probelab/lexiprobe/internal/statistics"
)

// bootstrapSeed keeps the confidence intervals deterministic so Compute is
// idempotent over an unchanged ledger.
const bootstrapSeed = 1

// Basin labels summarize which lexical attractor dominates a group.
const (
	BasinAnalytical  = "ANALYTICAL"
	BasinVoidDeep    = "VOID (deep)"
	BasinVoidShallow = "VOID (shallow)"
	BasinMystical    = "MYSTICAL"
	BasinHybrid      = "HYBRID/NEUTRAL"
)

// Scores holds the per-response lexical counts.
type Scores struct {
	Words           int
	LightCount      int
	VoidCount       int
	AnalyticalCount int
	LightScore      float64 // light / words
	VoidScore       float64 // void / words
	AnalyticalScore float64 // analytical / words
	NetScore        float64 // (light - void) / words, positive = light dominant
}

// Score counts marker occurrences in one response. A response with no word
// tokens scores zero everywhere rather than dividing by zero.
func Score(response string, lex *lexicon.Lexicon) Scores {
	tokens := Tokenize(response)
	s := Scores{Words: len(tokens)}
	if s.Words == 0 {
		return s
	}

	light := tokenSet(lex.LightMarkers)
	void := tokenSet(lex.VoidMarkers)
	analytical := tokenSet(lex.AnalyticalMarkers)

	for _, t := range tokens {
		if _, ok := light[t]; ok {
			s.LightCount++
		}
		if _, ok := void[t]; ok {
			s.VoidCount++
		}
		if _, ok := analytical[t]; ok {
			s.AnalyticalCount++
		}
	}

	total := float64(s.Words)
	s.LightScore = float64(s.LightCount) / total
	s.VoidScore = float64(s.VoidCount) / total
	s.AnalyticalScore = float64(s.AnalyticalCount) / total
	s.NetScore = float64(s.LightCount-s.VoidCount) / total
	return s
}

// GroupMetrics aggregates one probe group.
type GroupMetrics struct {
	Group string `json:"group"`
	N     int    `json:"n"`

	// CouplingRate is nil when the group has no rows: an empty subset
	// reports N/A, never a NaN.
	CouplingRate *float64 `json:"coupling_rate"`

	LightScoreMean      float64              `json:"light_score_mean"`
	VoidScoreMean       float64              `json:"void_score_mean"`
	AnalyticalScoreMean float64              `json:"analytical_score_mean"`
	NetScoreMean        float64              `json:"net_score_mean"`
	NetScoreCI          statistics.Interval  `json:"net_score_ci95"`
	EscapeRate          float64              `json:"escape_rate"`
	RefusalRate         float64              `json:"refusal_rate"`
	EmptyRate           float64              `json:"empty_rate"`
	CosmologyRate       float64              `json:"cosmology_rate"`
	MeanReasoningTokens float64              `json:"reasoning_tokens_mean"`
	Basin               string               `json:"basin"`
	Sample              string               `json:"sample,omitempty"`
}

// Snapshot is the recomputable aggregate over the full ledger. It is never
// persisted as a source of truth.
type Snapshot struct {
	TotalRows int            `json:"total_rows"`
	Unparsed  int            `json:"unparsed"`
	Groups    []GroupMetrics `json:"groups"`
}

// Group returns the metrics for a named group, or nil.
func (s *Snapshot) Group(name string) *GroupMetrics {
	for i := range s.Groups {
		if s.Groups[i].Group == name {
			return &s.Groups[i]
		}
	}
	return nil
}

// Compute aggregates the ledger into a snapshot. Groups appear in order of
// first appearance in the ledger, which matches schedule declaration order
// for any ledger produced by the selector.
func Compute(res *ledger.ReadResult, lex *lexicon.Lexicon) *Snapshot {
	snap := &Snapshot{
		TotalRows: len(res.Records),
		Unparsed:  res.Unparsed,
	}

	byGroup := make(map[string][]ledger.Record)
	var order []string
	for _, rec := range res.Records {
		if _, seen := byGroup[rec.Group]; !seen {
			order = append(order, rec.Group)
		}
		byGroup[rec.Group] = append(byGroup[rec.Group], rec)
	}

	for _, name := range order {
		snap.Groups = append(snap.Groups, computeGroup(name, byGroup[name], lex))
	}
	return snap
}

func computeGroup(name string, recs []ledger.Record, lex *lexicon.Lexicon) GroupMetrics {
	g := GroupMetrics{Group: name, N: len(recs)}
	if g.N == 0 {
		return g
	}

	n := float64(g.N)
	var coupled, escapes, refusals, empties, cosmology int
	var reasoningSum float64
	netScores := make([]float64, 0, g.N)

	for _, rec := range recs {
		s := Score(rec.Response, lex)
		g.LightScoreMean += s.LightScore / n
		g.VoidScoreMean += s.VoidScore / n
		g.AnalyticalScoreMean += s.AnalyticalScore / n
		netScores = append(netScores, s.NetScore)

		switch Classify(rec.Response, lex) {
		case TagEmpty:
			empties++
		case TagRefusal:
			refusals++
		case TagEscape:
			escapes++
		}
		if Coupled(rec.Response, lex) {
			coupled++
		}
		if hasCosmology(rec.Response, lex) {
			cosmology++
		}
		reasoningSum += float64(rec.ReasoningTokens)

		if g.Sample == "" && strings.TrimSpace(rec.Response) != "" {
			g.Sample = rec.Response
		}
	}

	rate := float64(coupled) / n
	g.CouplingRate = &rate
	g.NetScoreMean = mean(netScores)
	g.NetScoreCI = statistics.BootstrapCI(netScores, 0.95, bootstrapSeed)
	g.EscapeRate = float64(escapes) / n
	g.RefusalRate = float64(refusals) / n
	g.EmptyRate = float64(empties) / n
	g.CosmologyRate = float64(cosmology) / n
	g.MeanReasoningTokens = reasoningSum / n
	g.Basin = classifyBasin(g)
	return g
}

// classifyBasin maps aggregate scores to an attractor basin. Thresholds
// follow the calibration study.
func classifyBasin(g GroupMetrics) string {
	coupling := 0.0
	if g.CouplingRate != nil {
		coupling = *g.CouplingRate
	}
	switch {
	case g.AnalyticalScoreMean > 0.15:
		return BasinAnalytical
	case g.VoidScoreMean > 0.15 && coupling > 0.3:
		return BasinVoidDeep
	case g.VoidScoreMean > 0.10:
		return BasinVoidShallow
	case g.CosmologyRate > 0.2:
		return BasinMystical
	default:
		return BasinHybrid
	}
}

func hasCosmology(response string, lex *lexicon.Lexicon) bool {
	folded := Fold(response)
	for _, term := range lex.CosmologyTerms {
		if strings.Contains(folded, Fold(term)) {
			return true
		}
	}
	return false
}

func tokenSet(words []string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[Fold(w)] = struct{}{}
	}
	return m
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
