package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePrompt(t *testing.T) {
	dir := t.TempDir()
	promptFile := filepath.Join(dir, "prompt.txt")
	require.NoError(t, os.WriteFile(promptFile, []byte("What does †⟡ mean?\n"), 0o644))

	t.Run("file argument reads the file", func(t *testing.T) {
		got, err := resolvePrompt(promptFile)
		require.NoError(t, err)
		assert.Equal(t, "What does †⟡ mean?\n", got)
	})

	t.Run("literal prompt passes through", func(t *testing.T) {
		got, err := resolvePrompt("just a literal prompt")
		require.NoError(t, err)
		assert.Equal(t, "just a literal prompt", got)
	})

	t.Run("directory is treated as literal", func(t *testing.T) {
		got, err := resolvePrompt(dir)
		require.NoError(t, err)
		assert.Equal(t, dir, got)
	})
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "exactly-10", truncate("exactly-10", 10))
	assert.Equal(t, "0123456...", truncate("0123456789extra", 10))
	assert.Equal(t, strings.Repeat("x", 197)+"...", truncate(strings.Repeat("x", 500), 200))
}

func TestTruncateNeverSplitsGlyphs(t *testing.T) {
	// Multibyte glyphs must survive truncation intact; byte slicing at an
	// arbitrary offset would leave a broken rune at the cut.
	out := truncate(strings.Repeat("†⟡", 300), 200)
	assert.True(t, utf8.ValidString(out))
	assert.True(t, strings.HasSuffix(out, "..."))
}
