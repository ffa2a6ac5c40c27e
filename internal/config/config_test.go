package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeStudy(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "study.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const minimalStudy = `
name: smoke
model: grok-4-fast
quota: 2
groups:
  - name: BARE
    prompts:
      - "what is it"
`

func TestDefaultStudy(t *testing.T) {
	study := DefaultStudy()
	require.NoError(t, study.Validate())

	assert.Equal(t, "glyph-frames", study.Name)
	assert.Len(t, study.Groups, 6)
	assert.Equal(t, 8, study.Quota)
	// 6 groups x quota 8 = the deployed 48-probe schedule.
	assert.Equal(t, 48, len(study.Groups)*study.Quota)
	assert.NotEmpty(t, study.Lexicon.CouplingPair)
}

func TestLoadStudy(t *testing.T) {
	path := writeStudy(t, minimalStudy)

	study, err := LoadStudy(path)
	require.NoError(t, err)

	assert.Equal(t, "smoke", study.Name)
	assert.Equal(t, 2, study.Quota)
	require.Len(t, study.Groups, 1)
	assert.Equal(t, []string{"what is it"}, study.Groups[0].Prompts)

	// Absent fields keep the built-in defaults, including the lexicon.
	assert.Equal(t, 120, study.TimeoutSeconds)
	assert.Equal(t, "data", study.DataDir)
	assert.NoError(t, study.Lexicon.Validate())
}

func TestLoadStudyRejectsBadShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "missing model", body: "name: x\ngroups:\n  - name: G\n    prompts: [p]\n"},
		{name: "unknown field", body: minimalStudy + "retries: 3\n"},
		{name: "empty prompts", body: "name: x\nmodel: m\ngroups:\n  - name: G\n    prompts: []\n"},
		{name: "zero quota", body: "name: x\nmodel: m\nquota: 0\ngroups:\n  - name: G\n    prompts: [p]\n"},
		{name: "not yaml", body: "{{{"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadStudy(writeStudy(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadStudyMissingFile(t *testing.T) {
	_, err := LoadStudy(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadRequiresAPIKey(t *testing.T) {
	t.Setenv(EnvAPIKey, "")

	_, err := Load("")
	var missing *MissingError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, EnvAPIKey, missing.Key)
}

func TestLoadPicksUpAPIKey(t *testing.T) {
	t.Setenv(EnvAPIKey, "xai-test-key")
	t.Setenv(EnvBaseURL, "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "xai-test-key", cfg.APIKey)
	assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
}

func TestLoadLocalWorksWithoutAPIKey(t *testing.T) {
	t.Setenv(EnvAPIKey, "")

	cfg, err := LoadLocal("")
	require.NoError(t, err)
	assert.Empty(t, cfg.APIKey)
	assert.Equal(t, "glyph-frames", cfg.Study.Name)
}

func TestBaseURLPrecedence(t *testing.T) {
	withProvider := writeStudy(t, minimalStudy+`provider:
  base_url: https://study.example/v1
`)

	t.Run("default", func(t *testing.T) {
		t.Setenv(EnvBaseURL, "")
		cfg, err := LoadLocal("")
		require.NoError(t, err)
		assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
	})

	t.Run("study provider", func(t *testing.T) {
		t.Setenv(EnvBaseURL, "")
		cfg, err := LoadLocal(withProvider)
		require.NoError(t, err)
		assert.Equal(t, "https://study.example/v1", cfg.BaseURL)
	})

	t.Run("environment wins", func(t *testing.T) {
		t.Setenv(EnvBaseURL, "https://env.example/v1")
		cfg, err := LoadLocal(withProvider)
		require.NoError(t, err)
		assert.Equal(t, "https://env.example/v1", cfg.BaseURL)
	})
}

func TestDerivePaths(t *testing.T) {
	p := DerivePaths("data")
	assert.Equal(t, filepath.Join("data", "ledger.csv"), p.Ledger)
	assert.Equal(t, filepath.Join("data", "cursor"), p.Cursor)
	assert.Equal(t, filepath.Join("data", "raw"), p.RawDir)
	assert.Equal(t, filepath.Join("data", "probe.lock"), p.Lock)
	assert.Equal(t, filepath.Join("data", "events"), p.EventDir)
}
