package eligibility

import (
	"fmt"

	"agripass/internal/subject"
)

// Facts are the only attributes the rules may inspect. The service fills them
// from the disclosed view, so a fact behind an ungranted scope never reaches
// a rule.
type Facts struct {
	Status      subject.Status
	LandSizeHa  float64
	SeasonCount int
}

// Engine evaluates program criteria against disclosed facts. Rules run in a
// fixed order and the first match wins: identity uncertainty outranks profile
// insufficiency, so a pending subject with too little land is still
// needs_review rather than not_eligible.
type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

func (e *Engine) Evaluate(f Facts, c Criteria) (Outcome, string) {
	if f.Status == subject.StatusActive && f.LandSizeHa >= c.MinLandHa && f.SeasonCount >= c.MinSeasons {
		return OutcomeEligible, "meets all program criteria"
	}
	if f.Status == subject.StatusPending {
		return OutcomeNeedsReview, "identity not yet verified, manual review required"
	}
	return OutcomeNotEligible, notEligibleReason(f, c)
}

func notEligibleReason(f Facts, c Criteria) string {
	if f.Status != subject.StatusActive {
		return "identity status is " + string(f.Status)
	}
	if f.LandSizeHa < c.MinLandHa {
		return fmt.Sprintf("land size below program minimum of %.1f ha", c.MinLandHa)
	}
	return fmt.Sprintf("fewer than %d recorded seasons", c.MinSeasons)
}
