package domain

import dErrors "agripass/pkg/domain-errors"

// RequesterType classifies the organizations that may request access to a
// subject's data.
//
// Usage: construct via ParseRequesterType at trust boundaries to enforce the
// allowlist; direct casting bypasses validation.
type RequesterType string

const (
	RequesterTypeBank       RequesterType = "bank"
	RequesterTypeInsurance  RequesterType = "insurance"
	RequesterTypeGovernment RequesterType = "government"
	RequesterTypeNGO        RequesterType = "ngo"
)

// validRequesterTypes is the single source of truth for valid requester types.
var validRequesterTypes = map[RequesterType]bool{
	RequesterTypeBank:       true,
	RequesterTypeInsurance:  true,
	RequesterTypeGovernment: true,
	RequesterTypeNGO:        true,
}

// ParseRequesterType constructs a RequesterType from external input.
//
// Errors: returns CodeInvalidInput when the value is empty or unsupported.
func ParseRequesterType(s string) (RequesterType, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "requester type cannot be empty")
	}
	t := RequesterType(s)
	if !t.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid requester type")
	}
	return t, nil
}

// IsValid checks if the requester type is one of the supported enum values.
func (t RequesterType) IsValid() bool {
	return validRequesterTypes[t]
}

// String returns the string representation of the requester type.
func (t RequesterType) String() string {
	return string(t)
}
