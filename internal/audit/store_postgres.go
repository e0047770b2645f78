package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	id "agripass/pkg/domain"
	dErrors "agripass/pkg/domain-errors"
	txcontext "agripass/pkg/platform/tx"
)

// PostgresStore persists the trail and mirrors every entry into an outbox
// table. The relay ships outbox rows to the reporting topic; the engine itself
// only ever reads audit_entries.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbRunner interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// runner returns the transaction from context when the caller opened one, so
// the audit append commits atomically with its triggering state change.
func (s *PostgresStore) runner(ctx context.Context) dbRunner {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// outboxPayload is the JSON shape shipped to the reporting topic.
type outboxPayload struct {
	ID        string   `json:"id"`
	SubjectID string   `json:"subject_id"`
	Action    string   `json:"action"`
	Actor     string   `json:"actor"`
	ActorType string   `json:"actor_type"`
	Timestamp string   `json:"timestamp"`
	Details   string   `json:"details,omitempty"`
	Scopes    []string `json:"scopes,omitempty"`
	RequestID string   `json:"request_id,omitempty"`
}

func (s *PostgresStore) Append(ctx context.Context, entry *Entry) error {
	if entry.SubjectID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "audit entry requires a subject ID")
	}
	if entry.ID.IsNil() {
		entry.ID = id.NewAuditEntryID()
	}

	run := s.runner(ctx)

	const insertEntry = `
		INSERT INTO audit_entries (id, subject_id, action, actor, actor_type, ts, details, scopes, request_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING seq
	`
	err := run.QueryRowContext(ctx, insertEntry,
		uuid.UUID(entry.ID),
		entry.SubjectID.String(),
		string(entry.Action),
		entry.Actor,
		string(entry.ActorType),
		entry.Timestamp,
		entry.Details,
		pq.Array(entry.Scopes),
		entry.RequestID,
	).Scan(&entry.Seq)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}

	payload, err := json.Marshal(outboxPayload{
		ID:        entry.ID.String(),
		SubjectID: entry.SubjectID.String(),
		Action:    string(entry.Action),
		Actor:     entry.Actor,
		ActorType: string(entry.ActorType),
		Timestamp: entry.Timestamp.Format(time.RFC3339Nano),
		Details:   entry.Details,
		Scopes:    entry.Scopes,
		RequestID: entry.RequestID,
	})
	if err != nil {
		return fmt.Errorf("marshal outbox payload: %w", err)
	}

	const insertOutbox = `
		INSERT INTO audit_outbox (id, entry_id, payload, created_at)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := run.ExecContext(ctx, insertOutbox, uuid.New(), uuid.UUID(entry.ID), payload, time.Now()); err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListBySubject(ctx context.Context, subjectID id.SubjectID, page Page) ([]Entry, Cursor, error) {
	afterTS, afterSeq, err := cursorPosition(page.Cursor)
	if err != nil {
		return nil, "", dErrors.New(dErrors.CodeInvalidInput, "invalid cursor")
	}
	limit := page.Limit
	if limit <= 0 {
		limit = DefaultPageLimit
	}

	// The composite row comparison matches the ORDER BY, so the page picks up
	// exactly where the previous one ended even when seq and ts disagree on
	// order.
	const query = `
		SELECT id, subject_id, action, actor, actor_type, ts, seq, details, scopes, request_id
		FROM audit_entries
		WHERE subject_id = $1 AND (ts, seq) > ($2, $3)
		ORDER BY ts ASC, seq ASC
		LIMIT $4
	`
	rows, err := s.runner(ctx).QueryContext(ctx, query, subjectID.String(), afterTS, afterSeq, limit)
	if err != nil {
		return nil, "", fmt.Errorf("query audit trail: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e       Entry
			entryID uuid.UUID
			subj    string
			scopes  pq.StringArray
		)
		if err := rows.Scan(&entryID, &subj, &e.Action, &e.Actor, &e.ActorType,
			&e.Timestamp, &e.Seq, &e.Details, &scopes, &e.RequestID); err != nil {
			return nil, "", fmt.Errorf("scan audit entry: %w", err)
		}
		e.ID = id.AuditEntryID(entryID)
		e.SubjectID = id.SubjectID(subj)
		e.Scopes = scopes
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("iterate audit trail: %w", err)
	}

	if len(out) == 0 || len(out) < limit {
		return out, "", nil
	}
	return out, positionCursor(out[len(out)-1]), nil
}
