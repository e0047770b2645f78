// Package service orchestrates consent ledger operations: validation against
// the scope catalog, the status state machine, and the fail-closed audit
// append inside the same transactional boundary as the state change.
package service

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"

	"agripass/internal/audit"
	"agripass/internal/consent"
	"agripass/internal/platform/metrics"
	"agripass/internal/scope"
	"agripass/internal/subject"
	id "agripass/pkg/domain"
	dErrors "agripass/pkg/domain-errors"
	"agripass/pkg/platform/sentinel"
	"agripass/pkg/requestcontext"
)

// Service owns the ledger's operations. Reads go straight to the store;
// mutations run inside StoreTx with their audit entry.
type Service struct {
	tx       StoreTx
	store    consent.Store
	audit    *audit.Recorder
	catalog  *scope.Catalog
	subjects subject.Directory
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

func NewService(
	tx StoreTx,
	store consent.Store,
	recorder *audit.Recorder,
	catalog *scope.Catalog,
	subjects subject.Directory,
	logger *slog.Logger,
	m *metrics.Metrics,
) *Service {
	return &Service{
		tx:       tx,
		store:    store,
		audit:    recorder,
		catalog:  catalog,
		subjects: subjects,
		logger:   logger,
		metrics:  m,
	}
}

// SubmitParams carries a requester's ask. Scopes arrive raw and are validated
// against the catalog here; nothing upstream is trusted to have done so.
type SubmitParams struct {
	SubjectID     id.SubjectID
	RequesterID   id.RequesterID
	RequesterName string
	RequesterType id.RequesterType
	Scopes        []string
	Purpose       string
}

// Submit validates and files a new pending request.
//
// Errors: CodeEmptyScopeSet, CodeInvalidScope, CodeEmptyPurpose,
// CodeNotFound (unknown subject), CodeAuditWriteFailed.
func (s *Service) Submit(ctx context.Context, params SubmitParams) (*consent.ConsentRequest, error) {
	scopes, err := s.catalog.ParseSet(params.Scopes)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(params.Purpose) == "" {
		return nil, dErrors.New(dErrors.CodeEmptyPurpose, "consent request requires a purpose")
	}
	if !params.RequesterType.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "unknown requester type: "+params.RequesterType.String())
	}
	if _, err := s.subjects.FindByID(ctx, params.SubjectID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "subject not found: "+params.SubjectID.String())
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "subject lookup failed")
	}

	now := requestcontext.Now(ctx)
	req := &consent.ConsentRequest{
		ID:            id.NewConsentRequestID(),
		SubjectID:     params.SubjectID,
		RequesterID:   params.RequesterID,
		RequesterName: params.RequesterName,
		RequesterType: params.RequesterType,
		Scopes:        scopes,
		Purpose:       strings.TrimSpace(params.Purpose),
		Status:        consent.StatusPending,
		CreatedAt:     now,
	}

	// Audit before state change: the entry must be durable before the caller
	// sees success, and the memory store cannot roll back.
	var idemKey string
	err = s.tx.RunInTx(ctx, req.ID.String(), func(ctx context.Context, store consent.Store) error {
		key, err := s.recordTransition(ctx, req, audit.ActionConsentRequested,
			params.RequesterName+" requested access: "+req.Purpose)
		if err != nil {
			return err
		}
		idemKey = key
		if err := store.Create(ctx, req); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "could not create consent request")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.audit.MarkApplied(ctx, idemKey)

	if s.metrics != nil {
		s.metrics.IncConsentTransition("requested")
	}
	s.logger.InfoContext(ctx, "consent request submitted",
		"request_id", req.ID.String(),
		"subject_id", req.SubjectID.String(),
		"requester_id", req.RequesterID.String(),
		"scopes", scope.Strings(req.Scopes),
	)
	return req, nil
}

// Decision is the subject's answer to a pending request.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionDeny    Decision = "deny"
)

// Respond applies the subject's approve or deny to a pending request.
//
// Errors: CodeNotFound, CodeInvalidTransition, CodeConflict (a second active
// approval would cover the identical scope set for the same requester),
// CodeAuditWriteFailed.
func (s *Service) Respond(ctx context.Context, requestID id.ConsentRequestID, decision Decision) (*consent.ConsentRequest, error) {
	var (
		result  *consent.ConsentRequest
		idemKey string
	)

	err := s.tx.RunInTx(ctx, requestID.String(), func(ctx context.Context, store consent.Store) error {
		req, err := s.load(ctx, store, requestID)
		if err != nil {
			return err
		}
		now := requestcontext.Now(ctx)

		var action audit.Action
		switch decision {
		case DecisionApprove:
			if err := s.rejectDuplicateApproval(ctx, store, req); err != nil {
				return err
			}
			if err := req.Approve(now); err != nil {
				return err
			}
			action = audit.ActionConsentApproved
		case DecisionDeny:
			if err := req.Deny(now); err != nil {
				return err
			}
			action = audit.ActionConsentDenied
		default:
			return dErrors.New(dErrors.CodeInvalidInput, "unknown decision: "+string(decision))
		}

		key, err := s.recordTransition(ctx, req, action, "scopes: "+req.ScopeSetKey())
		if err != nil {
			return err
		}
		idemKey = key
		if err := s.casUpdate(ctx, store, req, consent.StatusPending); err != nil {
			return err
		}
		result = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.audit.MarkApplied(ctx, idemKey)

	if s.metrics != nil {
		s.metrics.IncConsentTransition(string(result.Status))
	}
	s.logger.InfoContext(ctx, "consent request "+string(result.Status),
		"request_id", result.ID.String(),
		"subject_id", result.SubjectID.String(),
	)
	return result, nil
}

// Revoke withdraws an approved grant. Both the subject and the requester may
// revoke; attribution comes from the request context.
//
// Errors: CodeNotFound, CodeInvalidTransition, CodeAuditWriteFailed.
func (s *Service) Revoke(ctx context.Context, requestID id.ConsentRequestID) (*consent.ConsentRequest, error) {
	var (
		result  *consent.ConsentRequest
		idemKey string
	)

	err := s.tx.RunInTx(ctx, requestID.String(), func(ctx context.Context, store consent.Store) error {
		req, err := s.load(ctx, store, requestID)
		if err != nil {
			return err
		}
		if err := req.Revoke(requestcontext.Now(ctx)); err != nil {
			return err
		}
		key, err := s.recordTransition(ctx, req, audit.ActionConsentRevoked,
			"access withdrawn from "+req.RequesterName)
		if err != nil {
			return err
		}
		idemKey = key
		if err := s.casUpdate(ctx, store, req, consent.StatusApproved); err != nil {
			return err
		}
		result = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.audit.MarkApplied(ctx, idemKey)

	if s.metrics != nil {
		s.metrics.IncConsentTransition("revoked")
	}
	s.logger.InfoContext(ctx, "consent revoked",
		"request_id", result.ID.String(),
		"subject_id", result.SubjectID.String(),
		"requester_id", result.RequesterID.String(),
	)
	return result, nil
}

// ActiveScopesFor returns the union of scopes across all currently approved
// requests for the pair. This is the authorization check for disclosure and
// eligibility; revocation is visible here immediately.
func (s *Service) ActiveScopesFor(ctx context.Context, subjectID id.SubjectID, requesterID id.RequesterID) ([]scope.Scope, error) {
	reqs, err := s.store.ListBySubjectRequester(ctx, subjectID, requesterID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not list consent requests")
	}
	seen := make(map[scope.Scope]bool)
	for _, req := range reqs {
		if !req.Active() {
			continue
		}
		for _, sc := range req.Scopes {
			seen[sc] = true
		}
	}
	out := make([]scope.Scope, 0, len(seen))
	for sc := range seen {
		out = append(out, sc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// PendingFor lists a subject's requests awaiting a decision.
func (s *Service) PendingFor(ctx context.Context, subjectID id.SubjectID) ([]*consent.ConsentRequest, error) {
	reqs, err := s.store.ListBySubject(ctx, subjectID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not list consent requests")
	}
	out := make([]*consent.ConsentRequest, 0, len(reqs))
	for _, req := range reqs {
		if req.Status == consent.StatusPending {
			out = append(out, req)
		}
	}
	return out, nil
}

// HistoryFor lists all of a subject's requests, terminal states included.
func (s *Service) HistoryFor(ctx context.Context, subjectID id.SubjectID) ([]*consent.ConsentRequest, error) {
	reqs, err := s.store.ListBySubject(ctx, subjectID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not list consent requests")
	}
	return reqs, nil
}

// Get returns one request by ID.
func (s *Service) Get(ctx context.Context, requestID id.ConsentRequestID) (*consent.ConsentRequest, error) {
	return s.load(ctx, s.store, requestID)
}

func (s *Service) load(ctx context.Context, store consent.Store, requestID id.ConsentRequestID) (*consent.ConsentRequest, error) {
	req, err := store.Get(ctx, requestID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "consent request not found: "+requestID.String())
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not load consent request")
	}
	return req, nil
}

func (s *Service) casUpdate(ctx context.Context, store consent.Store, req *consent.ConsentRequest, from consent.Status) error {
	err := store.Update(ctx, req, from)
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "consent request not found: "+req.ID.String())
	case errors.Is(err, sentinel.ErrConflict):
		// The CAS lost: another transition landed between our read and write.
		return dErrors.New(dErrors.CodeInvalidTransition,
			"consent request changed concurrently, re-read and retry")
	case err != nil:
		return dErrors.Wrap(err, dErrors.CodeInternal, "could not update consent request")
	}
	return nil
}

// rejectDuplicateApproval enforces one active approval per identical
// (subject, requester, scope set). Overlapping but non-identical sets stay
// independently tracked.
func (s *Service) rejectDuplicateApproval(ctx context.Context, store consent.Store, req *consent.ConsentRequest) error {
	existing, err := store.ListBySubjectRequester(ctx, req.SubjectID, req.RequesterID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "could not check for duplicate grants")
	}
	key := req.ScopeSetKey()
	for _, other := range existing {
		if other.ID != req.ID && other.Active() && other.ScopeSetKey() == key {
			return dErrors.NewWithFields(dErrors.CodeConflict,
				"an active grant already covers this scope set for this requester",
				map[string]any{"existing_request_id": other.ID.String()},
			)
		}
	}
	return nil
}

// recordTransition appends the mandatory trail entry and returns its
// idempotency key. Fail-closed: the caller aborts the transaction when this
// errors, and marks the key applied only after the transaction commits.
func (s *Service) recordTransition(ctx context.Context, req *consent.ConsentRequest, action audit.Action, details string) (string, error) {
	actor := requestcontext.Actor(ctx)
	if actor == "" {
		actor = req.RequesterID.String()
	}
	actorType := audit.ActorType(requestcontext.ActorType(ctx))
	if actorType == "" {
		actorType = audit.ActorType(req.RequesterType.String())
	}
	key := audit.IdempotencyKey(req.ID.String(), string(action), actor)
	return key, s.audit.RecordOnce(ctx, key, audit.Entry{
		SubjectID: req.SubjectID,
		Action:    action,
		Actor:     actor,
		ActorType: actorType,
		Timestamp: requestcontext.Now(ctx),
		Details:   details,
		Scopes:    scope.Strings(req.Scopes),
		RequestID: requestcontext.RequestID(ctx),
	})
}
