// Package subject models the canonical identity record owned by the upstream
// Identity Directory. The engine reads subjects; it never mutates them.
package subject

import (
	"time"

	id "agripass/pkg/domain"
)

// Status is the identity lifecycle state.
type Status string

const (
	StatusActive    Status = "active"
	StatusPending   Status = "pending"
	StatusSuspended Status = "suspended"
)

// SeasonRecord captures one growing season's outcome.
type SeasonRecord struct {
	Year           int      `json:"year"`
	Season         string   `json:"season"`
	Crops          []string `json:"crops"`
	YieldKg        int      `json:"yield_kg"`
	InputsReceived []string `json:"inputs_received"`
}

// Subject is the canonical identity record. The engine holds it read-only by
// reference; enrollment and profile mutation happen upstream.
type Subject struct {
	ID          id.SubjectID
	FirstName   string
	LastName    string
	Gender      string
	YearOfBirth int
	Phone       string
	Village     string
	Region      string
	Country     string
	Cooperative string
	Crops       []string
	LandSizeHa  float64
	Seasons     []SeasonRecord
	Status      Status
	EnrolledAt  time.Time
	EnrolledBy  string
}

// FullName joins the name parts for identity_basics disclosure.
func (s Subject) FullName() string {
	if s.FirstName == "" {
		return s.LastName
	}
	if s.LastName == "" {
		return s.FirstName
	}
	return s.FirstName + " " + s.LastName
}
