// Package audit owns the append-only accountability trail. Every state change
// and every data access writes exactly one entry; nothing in the engine reads
// the trail except the reporting queries.
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	id "agripass/pkg/domain"
)

// Action is the audit vocabulary. Values match the trail shown to subjects, so
// they are display strings rather than snake_case event names.
type Action string

const (
	ActionConsentRequested   Action = "Consent Requested"
	ActionConsentApproved    Action = "Consent Approved"
	ActionConsentDenied      Action = "Consent Denied"
	ActionConsentRevoked     Action = "Consent Revoked"
	ActionDataAccessed       Action = "Data Accessed"
	ActionEligibilityChecked Action = "Eligibility Checked"
	ActionIdentityCreated    Action = "Agri-ID Created"
)

// ActorType classifies who acted: the subject themselves, a field agent, or a
// requesting organization.
type ActorType string

const (
	ActorTypeFarmer     ActorType = "farmer"
	ActorTypeAgent      ActorType = "agent"
	ActorTypeBank       ActorType = "bank"
	ActorTypeInsurance  ActorType = "insurance"
	ActorTypeGovernment ActorType = "government"
	ActorTypeNGO        ActorType = "ngo"
	ActorTypeSystem     ActorType = "system"
)

// Entry is one immutable trail record. Seq is assigned by the store and breaks
// ordering ties between entries sharing a timestamp.
type Entry struct {
	ID        id.AuditEntryID
	SubjectID id.SubjectID
	Action    Action
	Actor     string
	ActorType ActorType
	Timestamp time.Time
	Seq       uint64
	Details   string

	// Scopes carries the resolved scope set for access events.
	Scopes []string
	// RequestID is the correlation ID from the HTTP request context.
	RequestID string
}

// IdempotencyKey derives a stable dedup key for at-least-once callers.
// Re-submitting the same logical action must not double-log.
func IdempotencyKey(requestID, action, actor string) string {
	sum := sha256.Sum256([]byte(requestID + "\x00" + action + "\x00" + actor))
	return hex.EncodeToString(sum[:])
}
