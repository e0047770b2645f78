package audit

import (
	"context"
	"log/slog"
	"time"

	id "agripass/pkg/domain"
	dErrors "agripass/pkg/domain-errors"
)

// defaultIdempotencyTTL bounds how long a dedup key suppresses replays. Retries
// of a failed call arrive within seconds; a day is comfortably past any client
// retry policy without growing the key space forever.
const defaultIdempotencyTTL = 24 * time.Hour

// Recorder emits trail entries with fail-closed semantics: if the entry cannot
// be persisted, the triggering operation must not proceed. An unlogged access
// is a policy violation, not a degraded feature.
type Recorder struct {
	store  Store
	idem   IdempotencyStore
	logger *slog.Logger
}

// Option configures the Recorder.
type Option func(*Recorder)

// WithLogger sets a logger for failure reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Recorder) { r.logger = logger }
}

// WithIdempotency enables replay suppression for at-least-once callers.
func WithIdempotency(store IdempotencyStore) Option {
	return func(r *Recorder) { r.idem = store }
}

func NewRecorder(store Store, opts ...Option) *Recorder {
	r := &Recorder{store: store}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record synchronously appends an entry. The caller blocks until the write
// succeeds or fails; on failure it MUST fail its own operation.
//
// Errors: CodeAuditWriteFailed wrapping the store failure.
func (r *Recorder) Record(ctx context.Context, entry Entry) error {
	if err := r.validate(entry); err != nil {
		return err
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	if err := r.store.Append(ctx, &entry); err != nil {
		if r.logger != nil {
			r.logger.ErrorContext(ctx, "CRITICAL: audit append failed",
				"action", string(entry.Action),
				"subject_id", entry.SubjectID.String(),
				"error", err,
			)
		}
		return dErrors.Wrap(err, dErrors.CodeAuditWriteFailed, "audit entry could not be recorded")
	}
	return nil
}

// RecordOnce appends an entry unless the idempotency key was already marked
// applied, in which case the call is a no-op. Use for retried mutations so a
// replay does not double-log. RecordOnce never marks the key itself: the
// caller owns the transactional boundary and must call MarkApplied only after
// the whole operation commits, otherwise a failed write would poison the key
// and the retry would skip the trail entirely.
func (r *Recorder) RecordOnce(ctx context.Context, key string, entry Entry) error {
	if r.idem != nil && key != "" {
		seen, err := r.idem.Seen(ctx, key)
		if err != nil {
			// Dedup state is an optimization; losing it degrades to
			// at-least-once logging, which the trail tolerates. The append
			// itself stays fail-closed.
			if r.logger != nil {
				r.logger.WarnContext(ctx, "idempotency check failed, recording anyway",
					"error", err)
			}
		} else if seen {
			return nil
		}
	}
	return r.Record(ctx, entry)
}

// MarkApplied records that the operation behind the idempotency key committed.
// Best effort: a failed mark degrades to at-least-once logging on the next
// replay, never to a lost entry.
func (r *Recorder) MarkApplied(ctx context.Context, key string) {
	if r.idem == nil || key == "" {
		return
	}
	if err := r.idem.MarkApplied(ctx, key, defaultIdempotencyTTL); err != nil && r.logger != nil {
		r.logger.WarnContext(ctx, "idempotency mark failed", "error", err)
	}
}

// List returns one page of a subject's trail, oldest first.
func (r *Recorder) List(ctx context.Context, subjectID id.SubjectID, page Page) ([]Entry, Cursor, error) {
	return r.store.ListBySubject(ctx, subjectID, page)
}

func (r *Recorder) validate(entry Entry) error {
	if entry.SubjectID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "audit entry requires a subject ID")
	}
	if entry.Action == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "audit entry requires an action")
	}
	return nil
}
