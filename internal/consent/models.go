// Package consent owns the ledger of data-access authorizations. A request
// moves pending -> approved|denied, approved -> revoked; denied and revoked
// are terminal and requests are never deleted.
package consent

import (
	"sort"
	"strings"
	"time"

	"agripass/internal/scope"
	id "agripass/pkg/domain"
	dErrors "agripass/pkg/domain-errors"
)

// Status is the lifecycle state of a ConsentRequest.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusDenied   Status = "denied"
	StatusRevoked  Status = "revoked"
)

// ConsentRequest records one requester's ask for a set of scopes, bound to a
// stated purpose. Scopes are canonical: deduplicated, sorted, catalog-checked
// at submit time. RespondedAt is set exactly when Status leaves pending.
type ConsentRequest struct {
	ID            id.ConsentRequestID
	SubjectID     id.SubjectID
	RequesterID   id.RequesterID
	RequesterName string
	RequesterType id.RequesterType
	Scopes        []scope.Scope
	Purpose       string
	Status        Status
	CreatedAt     time.Time
	RespondedAt   *time.Time
	RevokedAt     *time.Time
}

// Active reports whether this request currently authorizes its scopes.
func (r *ConsentRequest) Active() bool {
	return r.Status == StatusApproved
}

// ScopeSetKey is a canonical fingerprint of the scope set, used to detect a
// second active approval covering the identical set for the same pair.
func (r *ConsentRequest) ScopeSetKey() string {
	names := make([]string, len(r.Scopes))
	for i, sc := range r.Scopes {
		names[i] = string(sc)
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}

// Approve transitions pending -> approved.
func (r *ConsentRequest) Approve(now time.Time) error {
	if r.Status != StatusPending {
		return transitionError(r.Status, StatusApproved)
	}
	r.Status = StatusApproved
	r.RespondedAt = &now
	return nil
}

// Deny transitions pending -> denied.
func (r *ConsentRequest) Deny(now time.Time) error {
	if r.Status != StatusPending {
		return transitionError(r.Status, StatusDenied)
	}
	r.Status = StatusDenied
	r.RespondedAt = &now
	return nil
}

// Revoke transitions approved -> revoked. Takes effect immediately: any later
// scope resolution no longer sees this request's scopes. RespondedAt keeps the
// approval time; it marks the subject's decision, not the revocation.
func (r *ConsentRequest) Revoke(now time.Time) error {
	if r.Status != StatusApproved {
		return transitionError(r.Status, StatusRevoked)
	}
	r.Status = StatusRevoked
	r.RevokedAt = &now
	return nil
}

func transitionError(from, to Status) error {
	return dErrors.NewWithFields(dErrors.CodeInvalidTransition,
		"cannot transition consent request from "+string(from)+" to "+string(to),
		map[string]any{"from": string(from), "to": string(to)},
	)
}
