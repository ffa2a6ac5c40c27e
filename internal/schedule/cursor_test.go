package schedule

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCursorMissingFile(t *testing.T) {
	v, err := LoadCursor(filepath.Join(t.TempDir(), "cursor"))
	require.NoError(t, err)
	assert.Equal(t, 0, v)
}

func TestCursorRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cursor")

	require.NoError(t, SaveCursor(path, 17))
	v, err := LoadCursor(path)
	require.NoError(t, err)
	assert.Equal(t, 17, v)

	// File holds a single plaintext integer.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "17\n", string(data))
}

func TestLoadCursorRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cursor")
	require.NoError(t, os.WriteFile(path, []byte("not-a-number"), 0o644))

	_, err := LoadCursor(path)
	assert.Error(t, err)
}

func TestLoadCursorRejectsNegative(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cursor")
	require.NoError(t, os.WriteFile(path, []byte("-3\n"), 0o644))

	_, err := LoadCursor(path)
	assert.Error(t, err)
}

func TestReconcile(t *testing.T) {
	tests := []struct {
		name   string
		cursor int
		rows   int
		want   int
	}{
		{name: "in sync", cursor: 5, rows: 5, want: 5},
		{name: "ledger ahead after torn invocation", cursor: 5, rows: 6, want: 6},
		{name: "cursor ahead is kept", cursor: 5, rows: 3, want: 5},
		{name: "fresh state", cursor: 0, rows: 0, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Reconcile(tt.cursor, tt.rows))
		})
	}
}
