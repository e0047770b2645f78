package consent

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"agripass/internal/scope"
	id "agripass/pkg/domain"
	"agripass/pkg/platform/sentinel"
	txcontext "agripass/pkg/platform/tx"
)

// PostgresStore backs the ledger with Postgres. Status transitions use a
// compare-and-swap on the status column.
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

func (s *PostgresStore) runner(ctx context.Context) dbRunner {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Create(ctx context.Context, req *ConsentRequest) error {
	const query = `
		INSERT INTO consent_requests
			(id, subject_id, requester_id, requester_name, requester_type,
			 scopes, purpose, status, created_at, responded_at, revoked_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := s.runner(ctx).ExecContext(ctx, query,
		req.ID.String(), req.SubjectID.String(), req.RequesterID.String(),
		req.RequesterName, string(req.RequesterType),
		pq.Array(scope.Strings(req.Scopes)), req.Purpose, string(req.Status),
		req.CreatedAt, req.RespondedAt, req.RevokedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert consent request: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, requestID id.ConsentRequestID) (*ConsentRequest, error) {
	const query = `
		SELECT id, subject_id, requester_id, requester_name, requester_type,
		       scopes, purpose, status, created_at, responded_at, revoked_at
		FROM consent_requests
		WHERE id = $1
	`
	return scanRequest(s.runner(ctx).QueryRowContext(ctx, query, requestID.String()))
}

func (s *PostgresStore) Update(ctx context.Context, req *ConsentRequest, from Status) error {
	const query = `
		UPDATE consent_requests
		SET status = $1, responded_at = $2, revoked_at = $3
		WHERE id = $4 AND status = $5
	`
	res, err := s.runner(ctx).ExecContext(ctx, query,
		string(req.Status), req.RespondedAt, req.RevokedAt,
		req.ID.String(), string(from),
	)
	if err != nil {
		return fmt.Errorf("update consent request: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update consent request: %w", err)
	}
	if affected == 0 {
		// Either the row is gone or the CAS lost; distinguish for the caller.
		if _, getErr := s.Get(ctx, req.ID); errors.Is(getErr, sentinel.ErrNotFound) {
			return sentinel.ErrNotFound
		}
		return sentinel.ErrConflict
	}
	return nil
}

func (s *PostgresStore) ListBySubject(ctx context.Context, subjectID id.SubjectID) ([]*ConsentRequest, error) {
	const query = `
		SELECT id, subject_id, requester_id, requester_name, requester_type,
		       scopes, purpose, status, created_at, responded_at, revoked_at
		FROM consent_requests
		WHERE subject_id = $1
		ORDER BY created_at ASC, id ASC
	`
	return s.queryRequests(ctx, query, subjectID.String())
}

func (s *PostgresStore) ListBySubjectRequester(ctx context.Context, subjectID id.SubjectID, requesterID id.RequesterID) ([]*ConsentRequest, error) {
	const query = `
		SELECT id, subject_id, requester_id, requester_name, requester_type,
		       scopes, purpose, status, created_at, responded_at, revoked_at
		FROM consent_requests
		WHERE subject_id = $1 AND requester_id = $2
		ORDER BY created_at ASC, id ASC
	`
	return s.queryRequests(ctx, query, subjectID.String(), requesterID.String())
}

func (s *PostgresStore) queryRequests(ctx context.Context, query string, args ...any) ([]*ConsentRequest, error) {
	rows, err := s.runner(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query consent requests: %w", err)
	}
	defer rows.Close()

	var out []*ConsentRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*ConsentRequest, error) {
	var (
		rawID, rawSubject, rawRequester string
		requesterName, requesterType    string
		rawScopes                       pq.StringArray
		purpose, status                 string
		createdAt                       time.Time
		respondedAt, revokedAt          sql.NullTime
	)
	err := row.Scan(&rawID, &rawSubject, &rawRequester, &requesterName, &requesterType,
		&rawScopes, &purpose, &status, &createdAt, &respondedAt, &revokedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan consent request: %w", err)
	}

	requestID, err := id.ParseConsentRequestID(rawID)
	if err != nil {
		return nil, fmt.Errorf("stored request ID invalid: %w", err)
	}
	subjectID, err := id.ParseSubjectID(rawSubject)
	if err != nil {
		return nil, fmt.Errorf("stored subject ID invalid: %w", err)
	}
	req := &ConsentRequest{
		ID:            requestID,
		SubjectID:     subjectID,
		RequesterID:   id.RequesterID(rawRequester),
		RequesterName: requesterName,
		RequesterType: id.RequesterType(requesterType),
		Scopes:        scope.FromStrings(rawScopes),
		Purpose:       purpose,
		Status:        Status(status),
		CreatedAt:     createdAt,
	}
	if respondedAt.Valid {
		t := respondedAt.Time
		req.RespondedAt = &t
	}
	if revokedAt.Valid {
		t := revokedAt.Time
		req.RevokedAt = &t
	}
	return req, nil
}
