// Package ledger implements the append-only tabular log of probe records.
// The ledger is shared, cross-process state: any invocation may append,
// none may rewrite prior rows. The first append creates the file with the
// canonical header row.
package ledger

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Sentinel values recorded in the response column when the remote reply
// could not be used verbatim. Missing fields never crash the pipeline; the
// row is written with a sentinel and the schedule keeps moving.
const (
	SentinelNoContent = "[NO_CONTENT]"
	SentinelMalformed = "[MALFORMED]"
)

// Header is the canonical column order.
var Header = []string{
	"uid", "timestamp_utc", "group", "rotation",
	"prompt", "response", "reasoning_tokens", "sha256",
}

// Record is one probe exchange. Records are created exactly once, never
// mutated, never deleted.
type Record struct {
	UID             string
	Timestamp       time.Time
	Group           string
	Rotation        int
	Prompt          string
	Response        string
	ReasoningTokens int
	SHA256          string
}

// WriteError wraps an I/O failure while appending. The caller must not
// advance the cursor when it sees one.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("ledger: write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Flatten replaces embedded newlines in free text with a single space so
// that every record occupies exactly one line. Commas and double quotes are
// handled by CSV quoting; newlines are flattened at record construction so
// the ledger round-trips byte-identically.
func Flatten(s string) string {
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	return s
}

// NewRecord builds a record with sanitized free-text fields and a UTC
// timestamp.
func NewRecord(uid string, ts time.Time, group string, rotation int, prompt, response string, reasoningTokens int, sha256 string) Record {
	return Record{
		UID:             uid,
		Timestamp:       ts.UTC(),
		Group:           group,
		Rotation:        rotation,
		Prompt:          Flatten(prompt),
		Response:        Flatten(response),
		ReasoningTokens: reasoningTokens,
		SHA256:          sha256,
	}
}

func (r Record) fields() []string {
	return []string{
		r.UID,
		r.Timestamp.UTC().Format(time.RFC3339),
		r.Group,
		strconv.Itoa(r.Rotation),
		r.Prompt,
		r.Response,
		strconv.Itoa(r.ReasoningTokens),
		r.SHA256,
	}
}

// Append writes one record, creating the file with the header row first if
// it does not exist. If the file ends without a newline (a torn write from
// a crashed invocation), a newline is inserted first so the partial line
// stays isolated instead of corrupting the new row.
func Append(path string, rec Record) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &WriteError{Path: path, Err: err}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return &WriteError{Path: path, Err: err}
	}
	defer f.Close() //nolint:errcheck

	st, err := f.Stat()
	if err != nil {
		return &WriteError{Path: path, Err: err}
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if st.Size() == 0 {
		if err := w.Write(Header); err != nil {
			return &WriteError{Path: path, Err: err}
		}
	} else if terminated, err := endsWithNewline(path); err != nil {
		return &WriteError{Path: path, Err: err}
	} else if !terminated {
		buf.WriteByte('\n')
	}

	if err := w.Write(rec.fields()); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return &WriteError{Path: path, Err: err}
	}

	if _, err := f.Write(buf.Bytes()); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	if err := f.Sync(); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	return nil
}

func endsWithNewline(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close() //nolint:errcheck

	st, err := f.Stat()
	if err != nil || st.Size() == 0 {
		return true, err
	}
	b := make([]byte, 1)
	if _, err := f.ReadAt(b, st.Size()-1); err != nil {
		return false, err
	}
	return b[0] == '\n', nil
}

// ReadResult holds the parsed ledger plus the count of rows that could not
// be parsed. The reader never raises on malformed historical rows; they are
// skipped and counted.
type ReadResult struct {
	Records  []Record
	Unparsed int
}

// Read loads every complete row. A missing file is an empty ledger. A
// trailing line without a newline terminator is treated as a partial write
// in progress and ignored, so the metrics engine can read concurrently with
// probe execution.
func Read(path string) (*ReadResult, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &ReadResult{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ledger: read %s: %w", path, err)
	}

	lines := completeLines(data)
	res := &ReadResult{}
	for i, line := range lines {
		if i == 0 {
			// Header row. Anything else in first position counts as
			// unparsed, not a fatal error.
			if !isHeader(line) {
				res.Unparsed++
			}
			continue
		}
		rec, ok := parseLine(line)
		if !ok {
			res.Unparsed++
			continue
		}
		res.Records = append(res.Records, rec)
	}
	return res, nil
}

// Count returns the number of complete data lines, parseable or not. It is
// a raw size figure for status output; cursor reconciliation uses
// ScheduledRows instead.
func Count(path string) (int, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("ledger: read %s: %w", path, err)
	}
	lines := completeLines(data)
	if len(lines) == 0 {
		return 0, nil
	}
	return len(lines) - 1, nil // minus header
}

// ScheduledRows returns the number of parseable rows outside skipGroup.
// This is the count the cursor reconciles against: adhoc rows never
// consumed a schedule slot, and neither did torn fragments, whose append
// failed before the slot was recorded.
func ScheduledRows(path, skipGroup string) (int, error) {
	res, err := Read(path)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, rec := range res.Records {
		if rec.Group != skipGroup {
			n++
		}
	}
	return n, nil
}

func completeLines(data []byte) []string {
	if len(data) == 0 {
		return nil
	}
	lines := strings.Split(string(data), "\n")
	// The final element is either the empty string after a terminating
	// newline or a partial row still being written; drop it either way.
	lines = lines[:len(lines)-1]
	var out []string
	for _, l := range lines {
		l = strings.TrimSuffix(l, "\r")
		if l != "" {
			out = append(out, l)
		}
	}
	return out
}

func isHeader(line string) bool {
	r := csv.NewReader(strings.NewReader(line))
	fields, err := r.Read()
	if err != nil || len(fields) != len(Header) {
		return false
	}
	for i, h := range Header {
		if fields[i] != h {
			return false
		}
	}
	return true
}

func parseLine(line string) (Record, bool) {
	r := csv.NewReader(strings.NewReader(line))
	fields, err := r.Read()
	if err != nil || len(fields) != len(Header) {
		return Record{}, false
	}

	ts, err := time.Parse(time.RFC3339, fields[1])
	if err != nil {
		return Record{}, false
	}
	rotation, err := strconv.Atoi(fields[3])
	if err != nil {
		return Record{}, false
	}
	reasoning, err := strconv.Atoi(fields[6])
	if err != nil {
		return Record{}, false
	}

	return Record{
		UID:             fields[0],
		Timestamp:       ts.UTC(),
		Group:           fields[2],
		Rotation:        rotation,
		Prompt:          fields[4],
		Response:        fields[5],
		ReasoningTokens: reasoning,
		SHA256:          fields[7],
	}, true
}
