// Package domain provides type-safe identifiers to prevent mixing up IDs at compile time.
package domain

import (
	"regexp"

	"github.com/google/uuid"

	dErrors "agripass/pkg/domain-errors"
)

// SubjectID is the canonical Agri-ID, e.g. "AGR-SN-10548".
// Format: {PREFIX}-{REGION}-{5 digits}. The format is fixed so credentials can
// be checked offline without a directory lookup.
type SubjectID string

// RequesterID identifies a registered service provider, e.g. "sp-1".
type RequesterID string

// Distinct ID types - compiler prevents passing a ConsentRequestID where an
// AuditEntryID is expected.
type (
	ConsentRequestID uuid.UUID
	AuditEntryID     uuid.UUID
)

var subjectIDPattern = regexp.MustCompile(`^AGR-[A-Z]{2}-\d{5}$`)

// Parse functions - use at trust boundaries (handlers, API inputs).

func ParseSubjectID(s string) (SubjectID, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "subject ID cannot be empty")
	}
	if !subjectIDPattern.MatchString(s) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid subject ID format")
	}
	return SubjectID(s), nil
}

func ParseRequesterID(s string) (RequesterID, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "requester ID cannot be empty")
	}
	return RequesterID(s), nil
}

func ParseConsentRequestID(s string) (ConsentRequestID, error) {
	id, err := parseUUID(s, "consent request ID")
	return ConsentRequestID(id), err
}

func ParseAuditEntryID(s string) (AuditEntryID, error) {
	id, err := parseUUID(s, "audit entry ID")
	return AuditEntryID(id), err
}

// String methods - for logging and debugging.

func (id SubjectID) String() string        { return string(id) }
func (id RequesterID) String() string      { return string(id) }
func (id ConsentRequestID) String() string { return uuid.UUID(id).String() }
func (id AuditEntryID) String() string     { return uuid.UUID(id).String() }

// IsNil checks - used for service-layer validation.

func (id SubjectID) IsNil() bool        { return id == "" }
func (id RequesterID) IsNil() bool      { return id == "" }
func (id ConsentRequestID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id AuditEntryID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }

// NewConsentRequestID allocates a fresh request identifier.
func NewConsentRequestID() ConsentRequestID { return ConsentRequestID(uuid.New()) }

// NewAuditEntryID allocates a fresh audit entry identifier.
func NewAuditEntryID() AuditEntryID { return AuditEntryID(uuid.New()) }

// parseUUID is the shared validation logic.
func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be empty")
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label+" format")
	}
	return id, nil
}
