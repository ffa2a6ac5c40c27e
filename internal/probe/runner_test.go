package probe

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probelab/lexiprobe/internal/config"
	"github.com/probelab/lexiprobe/internal/ledger"
	"github.com/probelab/lexiprobe/internal/lexicon"
	"github.com/probelab/lexiprobe/internal/schedule"
	"github.com/probelab/lexiprobe/internal/store"
)

// scriptedCompleter replays canned results and records the prompts it saw.
type scriptedCompleter struct {
	prompts []string
	fail    error
	calls   int
}

func (s *scriptedCompleter) Complete(ctx context.Context, prompt string) (*Result, error) {
	s.calls++
	s.prompts = append(s.prompts, prompt)
	if s.fail != nil {
		return nil, s.fail
	}
	body := fmt.Sprintf(`{"choices":[{"message":{"content":"reply %d"}}]}`, s.calls)
	return &Result{
		Content:         fmt.Sprintf("reply %d", s.calls),
		ReasoningTokens: 10 * s.calls,
		RawBody:         []byte(body),
	}, nil
}

func testConfig(t *testing.T, quota int) *config.Config {
	t.Helper()
	// The data directory does not exist yet, as on a fresh checkout.
	dir := filepath.Join(t.TempDir(), "data")
	return &config.Config{
		Study: &config.Study{
			Name:           "test",
			Model:          "grok-4-fast",
			Temperature:    0.7,
			MaxTokens:      64,
			TimeoutSeconds: 5,
			Quota:          quota,
			DataDir:        dir,
			Groups: []config.GroupConfig{
				{Name: "BARE", Prompts: []string{"bare-a", "bare-b"}},
				{Name: "SOFT", Prompts: []string{"soft-a"}},
			},
			Lexicon: *lexicon.Default(),
		},
		Paths: config.DerivePaths(dir),
	}
}

func newTestRunner(t *testing.T, cfg *config.Config, c Completer) *Runner {
	t.Helper()
	r, err := NewRunner(cfg, WithCompleter(c))
	require.NoError(t, err)
	return r
}

func TestRunOnceAdvancesCursor(t *testing.T) {
	cfg := testConfig(t, 2)
	fake := &scriptedCompleter{}
	r := newTestRunner(t, cfg, fake)

	out, err := r.RunOnce(context.Background())
	require.NoError(t, err)

	assert.False(t, out.Exhausted)
	assert.Equal(t, "BARE", out.Group)
	assert.Zero(t, out.Rotation)
	assert.Equal(t, "bare-a", out.Prompt)
	assert.Equal(t, "reply 1", out.Response)
	assert.Equal(t, 10, out.ReasoningTokens)
	assert.NotEmpty(t, out.UID)
	assert.Equal(t, 0, out.Cursor)
	assert.Equal(t, 1, out.NextCursor)

	cursor, err := schedule.LoadCursor(cfg.Paths.Cursor)
	require.NoError(t, err)
	assert.Equal(t, 1, cursor)

	res, err := ledger.Read(cfg.Paths.Ledger)
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, out.UID, res.Records[0].UID)
	assert.Equal(t, out.SHA256, res.Records[0].SHA256)
}

func TestRunOnceFilesRawBeforeLedger(t *testing.T) {
	cfg := testConfig(t, 1)
	r := newTestRunner(t, cfg, &scriptedCompleter{})

	out, err := r.RunOnce(context.Background())
	require.NoError(t, err)

	st := store.New(cfg.Paths.RawDir)
	ok, err := st.VerifyBody(out.UID, out.SHA256)
	require.NoError(t, err)
	assert.True(t, ok)

	meta, err := st.ReadMeta(out.UID)
	require.NoError(t, err)
	assert.Equal(t, "BARE", meta.Group)
	assert.Equal(t, "grok-4-fast", meta.Model)
}

func TestRunOnceTransportFailureLeavesState(t *testing.T) {
	cfg := testConfig(t, 2)
	fake := &scriptedCompleter{fail: &TransportError{Err: errors.New("connection reset")}}
	r := newTestRunner(t, cfg, fake)

	_, err := r.RunOnce(context.Background())
	var transport *TransportError
	require.ErrorAs(t, err, &transport)

	// No record, no cursor movement: the next run retries the same slot.
	cursor, err := schedule.LoadCursor(cfg.Paths.Cursor)
	require.NoError(t, err)
	assert.Zero(t, cursor)

	n, err := ledger.Count(cfg.Paths.Ledger)
	require.NoError(t, err)
	assert.Zero(t, n)

	fake.fail = nil
	out, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "bare-a", out.Prompt, "the failed slot is re-issued, not skipped")
}

func TestRunOnceCrashBetweenAppendAndCursor(t *testing.T) {
	cfg := testConfig(t, 2)
	r := newTestRunner(t, cfg, &scriptedCompleter{})

	injected := errors.New("simulated crash")
	r.hookAfterAppend = func() error { return injected }

	_, err := r.RunOnce(context.Background())
	require.ErrorIs(t, err, injected)

	// The row landed but the cursor did not move.
	n, err := ledger.Count(cfg.Paths.Ledger)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	cursor, err := schedule.LoadCursor(cfg.Paths.Cursor)
	require.NoError(t, err)
	assert.Zero(t, cursor)

	// The next run reconciles off the ledger: no duplicate, no skipped slot.
	r.hookAfterAppend = nil
	out, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, out.Cursor)
	assert.Equal(t, "bare-b", out.Prompt)

	res, err := ledger.Read(cfg.Paths.Ledger)
	require.NoError(t, err)
	require.Len(t, res.Records, 2)
	assert.Equal(t, 0, res.Records[0].Rotation)
	assert.Equal(t, 1, res.Records[1].Rotation)
}

func TestRunOnceExhausted(t *testing.T) {
	cfg := testConfig(t, 1)
	fake := &scriptedCompleter{}
	r := newTestRunner(t, cfg, fake)

	for range 2 {
		out, err := r.RunOnce(context.Background())
		require.NoError(t, err)
		assert.False(t, out.Exhausted)
	}

	out, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, out.Exhausted)
	assert.Equal(t, 2, out.Cursor)
	assert.Equal(t, 2, fake.calls, "an exhausted schedule never hits the remote")
}

func TestRunOnceWalksScheduleInOrder(t *testing.T) {
	cfg := testConfig(t, 2)
	fake := &scriptedCompleter{}
	r := newTestRunner(t, cfg, fake)

	for range 4 {
		_, err := r.RunOnce(context.Background())
		require.NoError(t, err)
	}

	// quota 2: both BARE rotations, then SOFT's single prompt twice.
	assert.Equal(t, []string{"bare-a", "bare-b", "soft-a", "soft-a"}, fake.prompts)
}

func TestRunAdhoc(t *testing.T) {
	cfg := testConfig(t, 2)
	r := newTestRunner(t, cfg, &scriptedCompleter{})

	out, err := r.RunAdhoc(context.Background(), "what is †⟡, really")
	require.NoError(t, err)

	assert.Equal(t, AdhocGroup, out.Group)
	assert.Equal(t, "what is †⟡, really", out.Prompt)

	// Adhoc probes are ledgered but never touch the cursor.
	res, err := ledger.Read(cfg.Paths.Ledger)
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, AdhocGroup, res.Records[0].Group)

	_, err = os.Stat(cfg.Paths.Cursor)
	assert.True(t, os.IsNotExist(err))
}

func TestRunOnceAfterAdhocStartsAtSlotZero(t *testing.T) {
	cfg := testConfig(t, 2)
	fake := &scriptedCompleter{}
	r := newTestRunner(t, cfg, fake)

	for range 2 {
		_, err := r.RunAdhoc(context.Background(), "out of band")
		require.NoError(t, err)
	}

	// Adhoc rows never consumed a slot, so the schedule starts from the top.
	out, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, out.Cursor)
	assert.Equal(t, "BARE", out.Group)
	assert.Equal(t, "bare-a", out.Prompt)

	cursor, err := schedule.LoadCursor(cfg.Paths.Cursor)
	require.NoError(t, err)
	assert.Equal(t, 1, cursor)

	res, err := ledger.Read(cfg.Paths.Ledger)
	require.NoError(t, err)
	require.Len(t, res.Records, 3)
	assert.Equal(t, AdhocGroup, res.Records[0].Group)
	assert.Equal(t, "BARE", res.Records[2].Group)
}

func TestRunOnceFreshDataDir(t *testing.T) {
	cfg := testConfig(t, 1)
	cfg.Paths = config.DerivePaths(filepath.Join(cfg.Study.DataDir, "nested", "deeper"))
	r := newTestRunner(t, cfg, &scriptedCompleter{})

	out, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.False(t, out.Exhausted)

	_, err = os.Stat(cfg.Paths.Lock)
	assert.NoError(t, err)
}
