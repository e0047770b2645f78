// Package eligibility applies declarative program criteria to disclosed
// subject views and yields a tri-state decision.
package eligibility

import (
	"time"

	"agripass/internal/scope"
	id "agripass/pkg/domain"
)

// Outcome is the tri-state result of an evaluation.
type Outcome string

const (
	OutcomeEligible    Outcome = "eligible"
	OutcomeNeedsReview Outcome = "needs_review"
	OutcomeNotEligible Outcome = "not_eligible"
)

// Criteria declares what a program demands of an applicant. RequiredScopes is
// the consent the requester must hold before the evaluator will look at the
// record at all.
type Criteria struct {
	Program        string        `json:"program"`
	MinLandHa      float64       `json:"min_land_ha"`
	MinSeasons     int           `json:"min_seasons"`
	RequiredScopes []scope.Scope `json:"required_scopes"`
}

// Decision is the evaluation result. Derived, never stored as source of truth;
// the trail entry it produces is the durable record.
type Decision struct {
	SubjectID   id.SubjectID `json:"subject_id"`
	Program     string       `json:"program"`
	Outcome     Outcome      `json:"outcome"`
	Reason      string       `json:"reason"`
	EvaluatedAt time.Time    `json:"evaluated_at"`
	ScopesUsed  []string     `json:"scopes_used"`
}
