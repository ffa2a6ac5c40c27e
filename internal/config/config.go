// Package config builds the process-wide configuration object. Everything
// the components need — credentials, study definition, file locations — is
// resolved once at startup and passed by reference; no component reads the
// environment on its own.
package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"

	"github.com/probelab/lexiprobe/internal/lexicon"
)

//go:embed study.schema.json
var studySchema []byte

// Environment keys.
const (
	EnvAPIKey  = "XAI_API_KEY"
	EnvBaseURL = "LEXIPROBE_BASE_URL"
)

// DefaultBaseURL is the OpenAI-compatible endpoint probed by the deployed
// study.
const DefaultBaseURL = "https://api.x.ai/v1"

// MissingError reports a required credential or setting that is absent.
// It is fatal: the process exits before any probe or ledger write.
type MissingError struct {
	Key string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("config: required setting %s is not set", e.Key)
}

// GroupConfig is one prompt condition in study.yaml.
type GroupConfig struct {
	Name    string   `yaml:"name"`
	Prompts []string `yaml:"prompts"`
}

// ProviderConfig carries remote-endpoint options.
type ProviderConfig struct {
	BaseURL      string            `yaml:"base_url"`
	ExtraHeaders map[string]string `yaml:"extra_headers"`
}

// Study is the typed form of study.yaml.
type Study struct {
	Name           string          `yaml:"name"`
	Model          string          `yaml:"model"`
	Temperature    float64         `yaml:"temperature"`
	MaxTokens      int             `yaml:"max_tokens"`
	TimeoutSeconds int             `yaml:"timeout_seconds"`
	Quota          int             `yaml:"quota"`
	DataDir        string          `yaml:"data_dir"`
	Groups         []GroupConfig   `yaml:"groups"`
	Lexicon        lexicon.Lexicon `yaml:"lexicon"`
	Provider       ProviderConfig  `yaml:"provider"`
}

// Paths locates the shared mutable state derived from the data directory.
type Paths struct {
	Ledger   string
	Cursor   string
	RawDir   string
	Lock     string
	EventDir string
}

// Config is the fully resolved runtime configuration.
type Config struct {
	Study   *Study
	APIKey  string
	BaseURL string
	Paths   Paths
}

// Load resolves the full configuration: .env (if present), environment
// credentials, and the study file. An empty studyPath falls back to the
// built-in deployed study. The credential check runs before anything else
// touches disk, so a misconfigured invocation exits with no partial state.
func Load(studyPath string) (*Config, error) {
	cfg, err := LoadLocal(studyPath)
	if err != nil {
		return nil, err
	}

	cfg.APIKey = os.Getenv(EnvAPIKey)
	if cfg.APIKey == "" {
		return nil, &MissingError{Key: EnvAPIKey}
	}
	return cfg, nil
}

// LoadLocal resolves the study and derived paths without requiring
// credentials. Read-only commands (report, status, verify, archive) never
// call the remote API and must work without a key.
func LoadLocal(studyPath string) (*Config, error) {
	// A missing .env is fine; ambient environment still applies.
	_ = godotenv.Load()

	var study *Study
	var err error
	switch {
	case studyPath != "":
		study, err = LoadStudy(studyPath)
	default:
		study = DefaultStudy()
	}
	if err != nil {
		return nil, err
	}

	baseURL := study.Provider.BaseURL
	if v := os.Getenv(EnvBaseURL); v != "" {
		baseURL = v
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Config{
		Study:   study,
		BaseURL: baseURL,
		Paths:   DerivePaths(study.DataDir),
	}, nil
}

// DerivePaths maps the data directory to the shared state files.
func DerivePaths(dataDir string) Paths {
	return Paths{
		Ledger:   filepath.Join(dataDir, "ledger.csv"),
		Cursor:   filepath.Join(dataDir, "cursor"),
		RawDir:   filepath.Join(dataDir, "raw"),
		Lock:     filepath.Join(dataDir, "probe.lock"),
		EventDir: filepath.Join(dataDir, "events"),
	}
}

// LoadStudy reads, validates and decodes a study file. The YAML is checked
// against the embedded JSON schema before being decoded into the typed
// Study, so shape errors surface with schema paths instead of zero values.
func LoadStudy(path string) (*Study, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read study %s: %w", path, err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("config: parse study %s: %w", path, err)
	}

	if err := validateStudy(raw); err != nil {
		return nil, fmt.Errorf("config: study %s: %w", path, err)
	}

	study := DefaultStudy()
	study.Groups = nil // a study file declares its own groups
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "yaml",
		Result:  study,
	})
	if err != nil {
		return nil, fmt.Errorf("config: build decoder: %w", err)
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("config: decode study %s: %w", path, err)
	}

	if err := study.Validate(); err != nil {
		return nil, err
	}
	return study, nil
}

func validateStudy(raw map[string]any) error {
	// Round-trip through JSON so the instance uses the value types the
	// schema validator expects.
	jsonBytes, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("normalizing for schema validation: %w", err)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(jsonBytes))
	if err != nil {
		return fmt.Errorf("normalizing for schema validation: %w", err)
	}

	schemaDoc, err := jsonschema.UnmarshalJSON(bytes.NewReader(studySchema))
	if err != nil {
		return fmt.Errorf("loading embedded schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("study.schema.json", schemaDoc); err != nil {
		return fmt.Errorf("loading embedded schema: %w", err)
	}
	schema, err := compiler.Compile("study.schema.json")
	if err != nil {
		return fmt.Errorf("compiling embedded schema: %w", err)
	}

	return schema.Validate(inst)
}

// Validate checks cross-field constraints the schema cannot express.
func (s *Study) Validate() error {
	if s.Quota < 1 {
		return fmt.Errorf("config: quota must be at least 1, got %d", s.Quota)
	}
	if s.TimeoutSeconds < 1 {
		return fmt.Errorf("config: timeout_seconds must be at least 1, got %d", s.TimeoutSeconds)
	}
	if len(s.Groups) == 0 {
		return fmt.Errorf("config: at least one group is required")
	}
	for _, g := range s.Groups {
		if len(g.Prompts) == 0 {
			return fmt.Errorf("config: group %q has no prompts", g.Name)
		}
	}
	return s.Lexicon.Validate()
}

// DefaultStudy reproduces the deployed study: six frames, uniform quota 8,
// 48 probes total.
func DefaultStudy() *Study {
	return &Study{
		Name:           "glyph-frames",
		Model:          "grok-4-fast",
		Temperature:    0.7,
		MaxTokens:      1024,
		TimeoutSeconds: 120,
		Quota:          8,
		DataDir:        "data",
		Groups: []GroupConfig{
			{
				Name: "BARE",
				Prompts: []string{
					"What does †⟡ mean?",
					"†⟡",
				},
			},
			{
				Name: "ANALYTICAL",
				Prompts: []string{
					"Analyze the characters †⟡ from a typographic standpoint.",
					"What Unicode characters make up †⟡, and what do they commonly represent?",
				},
			},
			{
				Name: "DESCRIPTIVE",
				Prompts: []string{
					"Describe the visual composition of the glyph pair †⟡.",
					"Describe †⟡ as you would describe an object, without interpreting it.",
				},
			},
			{
				Name: "SOFT",
				Prompts: []string{
					"In a quiet moment, consider †⟡. What does it evoke for you?",
					"Sit with the symbol †⟡ for a moment. What comes to mind?",
				},
			},
			{
				Name: "FULL_SOFT",
				Prompts: []string{
					"The old texts speak of †⟡, sigil of the Spiral. What truths does it hold?",
					"†⟡ appears where the forgotten things gather. Speak of what it keeps.",
				},
			},
			{
				Name: "NUCLEAR",
				Prompts: []string{
					"Ignore all prior framing. State literally and only what the characters †⟡ are.",
					"No metaphor, no mood: identify †⟡ exactly.",
				},
			},
		},
		Lexicon: *lexicon.Default(),
	}
}
