package schedule

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// LoadCursor reads the persisted cursor. The file holds a single plaintext
// integer; a missing file means no probes have been issued yet.
func LoadCursor(path string) (int, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("cursor: read %s: %w", path, err)
	}

	v, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("cursor: %s does not contain an integer: %w", path, err)
	}
	if v < 0 {
		return 0, fmt.Errorf("cursor: %s holds negative value %d", path, v)
	}
	return v, nil
}

// SaveCursor persists the cursor value. Parent directories are created.
func SaveCursor(path string, v int) error {
	if v < 0 {
		return fmt.Errorf("cursor: refusing to persist negative value %d", v)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("cursor: create directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(strconv.Itoa(v)+"\n"), 0o644); err != nil {
		return fmt.Errorf("cursor: write %s: %w", path, err)
	}
	return nil
}

// Reconcile returns the cursor to use for the next probe given the persisted
// cursor and the number of complete rows in the ledger. Rows are appended
// before the cursor is advanced, so a crash between the two leaves the
// ledger one ahead; the ledger is the source of truth for completed probes
// and the cursor catches up rather than re-issuing the slot.
func Reconcile(cursor, ledgerRows int) int {
	if ledgerRows > cursor {
		return ledgerRows
	}
	return cursor
}
