// Package probe issues one probe per invocation: select the next schedule
// slot, call the remote model, file the raw body, append the ledger row and
// advance the cursor. The whole unit runs under an exclusive advisory file
// lock so cron and manual invocations cannot double-issue a slot.
package probe

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/probelab/lexiprobe/internal/config"
	"github.com/probelab/lexiprobe/internal/eventlog"
	"github.com/probelab/lexiprobe/internal/ledger"
	"github.com/probelab/lexiprobe/internal/schedule"
	"github.com/probelab/lexiprobe/internal/store"
)

// AdhocGroup labels records produced by a literal-prompt override; those
// bypass the schedule and never touch the cursor.
const AdhocGroup = "ADHOC"

// Outcome summarizes one invocation.
type Outcome struct {
	Exhausted       bool
	UID             string
	Group           string
	Rotation        int
	Cursor          int
	NextCursor      int
	Prompt          string
	Response        string
	ReasoningTokens int
	SHA256          string
	DurationMs      int64
}

// Runner wires the selector, client, store and ledger together.
type Runner struct {
	cfg    *config.Config
	sched  *schedule.Schedule
	client Completer
	store  *store.Store
	events eventlog.Logger

	// hookAfterAppend is a test seam: a fault injected between the ledger
	// append and the cursor write.
	hookAfterAppend func() error
}

// RunnerOption customizes a Runner.
type RunnerOption func(*Runner)

// WithCompleter substitutes the remote client, used by tests and the
// mock engine.
func WithCompleter(c Completer) RunnerOption {
	return func(r *Runner) { r.client = c }
}

// WithEventLogger substitutes the event sink.
func WithEventLogger(l eventlog.Logger) RunnerOption {
	return func(r *Runner) { r.events = l }
}

// NewRunner builds a runner from the resolved configuration.
func NewRunner(cfg *config.Config, opts ...RunnerOption) (*Runner, error) {
	groups := make([]schedule.Group, 0, len(cfg.Study.Groups))
	for _, g := range cfg.Study.Groups {
		groups = append(groups, schedule.Group{Name: g.Name, Prompts: g.Prompts})
	}
	sched, err := schedule.New(groups, cfg.Study.Quota)
	if err != nil {
		return nil, err
	}

	r := &Runner{
		cfg:    cfg,
		sched:  sched,
		client: NewClient(cfg),
		store:  store.New(cfg.Paths.RawDir),
		events: eventlog.NopLogger{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Schedule exposes the built schedule for status reporting.
func (r *Runner) Schedule() *schedule.Schedule { return r.sched }

// RunOnce executes the next scheduled probe. On a transport failure no
// record is written and the cursor is unchanged, so rerunning retries the
// same slot. On success the row is appended before the cursor advances;
// Reconcile covers a crash between the two.
func (r *Runner) RunOnce(ctx context.Context) (*Outcome, error) {
	lock, err := r.acquireLock()
	if err != nil {
		return nil, err
	}
	defer lock.Unlock() //nolint:errcheck

	cursor, err := schedule.LoadCursor(r.cfg.Paths.Cursor)
	if err != nil {
		return nil, err
	}
	rows, err := ledger.ScheduledRows(r.cfg.Paths.Ledger, AdhocGroup)
	if err != nil {
		return nil, err
	}
	if rec := schedule.Reconcile(cursor, rows); rec != cursor {
		slog.Warn("cursor behind ledger, reconciling", "cursor", cursor, "rows", rows)
		cursor = rec
	}

	sel, err := r.sched.Select(cursor)
	if err == schedule.ErrExhausted {
		r.logEvent(eventlog.Event{Type: eventlog.EventExhausted, Cursor: cursor})
		return &Outcome{Exhausted: true, Cursor: cursor}, nil
	}
	if err != nil {
		return nil, err
	}

	r.logEvent(eventlog.Event{
		Type: eventlog.EventProbeStarted, Group: sel.Group,
		Rotation: sel.Rotation, Cursor: cursor,
	})
	slog.Debug("probe selected", "group", sel.Group, "rotation", sel.Rotation, "cursor", cursor)

	out, err := r.execute(ctx, sel.Group, sel.Rotation, sel.Prompt)
	if err != nil {
		return nil, err
	}
	out.Cursor = cursor
	out.NextCursor = sel.NextCursor

	if r.hookAfterAppend != nil {
		if err := r.hookAfterAppend(); err != nil {
			return nil, err
		}
	}

	if err := schedule.SaveCursor(r.cfg.Paths.Cursor, sel.NextCursor); err != nil {
		return nil, err
	}
	r.logEvent(eventlog.Event{
		Type: eventlog.EventCursorAdvanced, UID: out.UID, Cursor: sel.NextCursor,
	})
	return out, nil
}

// RunAdhoc probes with a literal prompt outside the schedule. The exchange
// is still filed and ledgered, but the cursor is untouched.
func (r *Runner) RunAdhoc(ctx context.Context, prompt string) (*Outcome, error) {
	lock, err := r.acquireLock()
	if err != nil {
		return nil, err
	}
	defer lock.Unlock() //nolint:errcheck

	return r.execute(ctx, AdhocGroup, 0, prompt)
}

// acquireLock takes the exclusive advisory lock, creating the data
// directory first so the initial invocation works on a fresh checkout.
func (r *Runner) acquireLock() (*flock.Flock, error) {
	if err := os.MkdirAll(filepath.Dir(r.cfg.Paths.Lock), 0o755); err != nil {
		return nil, fmt.Errorf("probe: create data directory: %w", err)
	}
	lock := flock.New(r.cfg.Paths.Lock)
	if err := lock.Lock(); err != nil {
		return nil, fmt.Errorf("probe: acquire lock %s: %w", r.cfg.Paths.Lock, err)
	}
	return lock, nil
}

// execute performs the remote call, files the raw body and appends the
// ledger row. Raw filing happens before the append so a record never exists
// without its artifact.
func (r *Runner) execute(ctx context.Context, group string, rotation int, prompt string) (*Outcome, error) {
	res, err := r.client.Complete(ctx, prompt)
	if err != nil {
		r.logEvent(eventlog.Event{
			Type: eventlog.EventFailure, Group: group,
			Rotation: rotation, Detail: err.Error(),
		})
		return nil, err
	}
	r.logEvent(eventlog.Event{
		Type: eventlog.EventResponse, Group: group, Rotation: rotation,
		Detail: fmt.Sprintf("%d bytes in %dms", len(res.RawBody), res.DurationMs),
	})

	uid := uuid.NewString()
	now := time.Now().UTC()
	digest := store.Sum256(res.RawBody)

	if _, err := r.store.WriteRaw(uid, res.RawBody, store.Meta{
		UID:             uid,
		Timestamp:       now,
		Group:           group,
		Rotation:        rotation,
		Model:           r.cfg.Study.Model,
		SHA256:          digest,
		ReasoningTokens: res.ReasoningTokens,
	}); err != nil {
		return nil, err
	}
	r.logEvent(eventlog.Event{Type: eventlog.EventRawFiled, UID: uid, Group: group, Rotation: rotation})

	rec := ledger.NewRecord(uid, now, group, rotation, prompt, res.Content, res.ReasoningTokens, digest)
	if err := ledger.Append(r.cfg.Paths.Ledger, rec); err != nil {
		return nil, err
	}
	r.logEvent(eventlog.Event{Type: eventlog.EventLedgerAppended, UID: uid, Group: group, Rotation: rotation})

	return &Outcome{
		UID:             uid,
		Group:           group,
		Rotation:        rotation,
		Prompt:          rec.Prompt,
		Response:        rec.Response,
		ReasoningTokens: res.ReasoningTokens,
		SHA256:          digest,
		DurationMs:      res.DurationMs,
	}, nil
}

func (r *Runner) logEvent(e eventlog.Event) {
	if err := r.events.Log(e); err != nil {
		slog.Debug("event log write failed", "error", err)
	}
}
