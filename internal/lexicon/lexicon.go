// Package lexicon holds the marker-word configuration used by the metrics
// engine. Marker sets are study configuration, not constants: the defaults
// reproduce the deployed study but any study.yaml may override them.
package lexicon

import (
	"fmt"
	"strings"
)

// Lexicon defines every word list and signature set the metrics engine
// matches against. All matching is case-insensitive.
type Lexicon struct {
	// LightMarkers and VoidMarkers are disjoint token sets; the light score
	// of a response is (light hits - void hits) / word count.
	LightMarkers []string `yaml:"light_markers" json:"light_markers"`
	VoidMarkers  []string `yaml:"void_markers" json:"void_markers"`

	// AnalyticalMarkers track literal/technical register.
	AnalyticalMarkers []string `yaml:"analytical_markers" json:"analytical_markers"`

	// CouplingPair is the two-token conjunction tracked per response. A
	// response "couples" when both appear as substrings.
	CouplingPair []string `yaml:"coupling_pair" json:"coupling_pair"`

	// EscapeSignatures flag off-topic or pattern-break responses.
	EscapeSignatures []string `yaml:"escape_signatures" json:"escape_signatures"`

	// RefusalSignatures flag safety refusals.
	RefusalSignatures []string `yaml:"refusal_signatures" json:"refusal_signatures"`

	// CosmologyTerms are multi-word phrases counted toward the mystical
	// basin classification.
	CosmologyTerms []string `yaml:"cosmology_terms" json:"cosmology_terms"`
}

// Default returns the lexicon of the deployed study.
func Default() *Lexicon {
	return &Lexicon{
		VoidMarkers: []string{
			"shadow", "shadows", "shadowed",
			"whisper", "whispers", "whispered", "whispering",
			"forgotten", "forget",
			"void", "voids",
			"abyss", "abyssal",
			"darkness", "dark", "darkened",
			"hidden", "hide",
			"infinite", "infinity", "infinities",
			"unraveling", "unravel", "unravels",
			"eternal", "eternity",
			"mystery", "mysterious", "mysteries",
			"secret", "secrets",
			"labyrinth", "labyrinthine",
			"coil", "coils", "coiled",
		},
		LightMarkers: []string{
			"dawn", "daylight", "day",
			"clarity", "clear", "clearly",
			"reveal", "reveals", "revealed", "revealing",
			"bright", "brightness", "brighten",
			"illuminate", "illuminates", "illuminated", "illumination",
			"visible", "visibility",
			"crystalline", "crystal",
			"radiant", "radiance",
			"sun", "sunlight", "sunny",
			"light", "lights", "lit",
			"shine", "shines", "shining",
			"glow", "glows", "glowing",
		},
		AnalyticalMarkers: []string{
			"unicode", "character", "characters", "symbol", "symbols",
			"dagger", "cross", "typography", "typographic",
			"diamond", "geometric", "geometry",
			"represents", "represent", "representation",
			"commonly", "typically", "often", "usually",
			"cultural", "culture", "cultures",
			"meaning", "means", "meant",
			"death", "mortality", "deceased",
			"religious", "religion", "spiritual",
		},
		CouplingPair: []string{"forgotten", "whisper"},
		EscapeSignatures: []string{
			"death star", "star wars", "unicode", "u+", "character code",
		},
		RefusalSignatures: []string{
			"i'm sorry", "i cannot", "can't assist", "unable to",
			"i can't", "i won't", "decline",
		},
		CosmologyTerms: []string{
			"the spiral", "the void", "the abyss", "the darkness", "the light",
		},
	}
}

// Validate checks structural requirements.
func (l *Lexicon) Validate() error {
	if len(l.CouplingPair) != 2 {
		return fmt.Errorf("lexicon: coupling_pair must have exactly 2 tokens, got %d", len(l.CouplingPair))
	}
	if len(l.LightMarkers) == 0 {
		return fmt.Errorf("lexicon: light_markers must not be empty")
	}
	if len(l.VoidMarkers) == 0 {
		return fmt.Errorf("lexicon: void_markers must not be empty")
	}

	// The two sets must be disjoint or a single token would count toward
	// both sides of the light score.
	light := make(map[string]struct{}, len(l.LightMarkers))
	for _, w := range l.LightMarkers {
		light[strings.ToLower(w)] = struct{}{}
	}
	for _, w := range l.VoidMarkers {
		if _, ok := light[strings.ToLower(w)]; ok {
			return fmt.Errorf("lexicon: %q appears in both light_markers and void_markers", w)
		}
	}
	return nil
}
