package eligibility

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"agripass/internal/audit"
	"agripass/internal/platform/metrics"
	"agripass/internal/scope"
	"agripass/internal/subject"
	id "agripass/pkg/domain"
	dErrors "agripass/pkg/domain-errors"
	"agripass/pkg/platform/sentinel"
	"agripass/pkg/requestcontext"
)

// ConsentReader resolves the requester's active scope set.
type ConsentReader interface {
	ActiveScopesFor(ctx context.Context, subjectID id.SubjectID, requesterID id.RequesterID) ([]scope.Scope, error)
}

// Service gathers the subject record and the active grants, checks the
// program's consent demands, and runs the rules engine on the facts the
// grants disclose.
type Service struct {
	engine   *Engine
	consents ConsentReader
	subjects subject.Directory
	audit    *audit.Recorder
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

func NewService(
	engine *Engine,
	consents ConsentReader,
	subjects subject.Directory,
	recorder *audit.Recorder,
	logger *slog.Logger,
	m *metrics.Metrics,
) *Service {
	return &Service{
		engine:   engine,
		consents: consents,
		subjects: subjects,
		audit:    recorder,
		logger:   logger,
		metrics:  m,
	}
}

// Check evaluates a subject against program criteria. When the requester's
// grants do not cover the criteria's required scopes the call fails with the
// missing scopes listed; no silent degradation, no partial evaluation. Every
// completed evaluation is logged regardless of outcome, fail-closed.
//
// Errors: CodeNotFound, CodeInsufficientConsent (Fields carries
// missing_scopes), CodeAuditWriteFailed.
func (s *Service) Check(ctx context.Context, subjectID id.SubjectID, requesterID id.RequesterID, criteria Criteria) (Decision, error) {
	var (
		subj    subject.Subject
		granted []scope.Scope
	)

	// Record fetch and scope resolution are independent reads.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		found, err := s.subjects.FindByID(gctx, subjectID)
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "subject not found: "+subjectID.String())
		}
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "subject lookup failed")
		}
		subj = found
		return nil
	})
	g.Go(func() error {
		scopes, err := s.consents.ActiveScopesFor(gctx, subjectID, requesterID)
		if err != nil {
			return err
		}
		granted = scopes
		return nil
	})
	if err := g.Wait(); err != nil {
		return Decision{}, err
	}

	if missing := missingScopes(criteria.RequiredScopes, granted); len(missing) > 0 {
		return Decision{}, dErrors.NewWithFields(dErrors.CodeInsufficientConsent,
			"program criteria require scopes the requester has not been granted",
			map[string]any{"missing_scopes": scope.Strings(missing)},
		)
	}

	outcome, reason := s.engine.Evaluate(factsFrom(subj, granted), criteria)

	decision := Decision{
		SubjectID:   subjectID,
		Program:     criteria.Program,
		Outcome:     outcome,
		Reason:      reason,
		EvaluatedAt: requestcontext.Now(ctx),
		ScopesUsed:  scope.Strings(criteria.RequiredScopes),
	}

	if err := s.recordEvaluation(ctx, decision, requesterID); err != nil {
		return Decision{}, err
	}

	if s.metrics != nil {
		s.metrics.IncEligibilityOutcome(string(outcome))
	}
	s.logger.InfoContext(ctx, "eligibility evaluated",
		"subject_id", subjectID.String(),
		"requester_id", requesterID.String(),
		"program", criteria.Program,
		"outcome", string(outcome),
	)
	return decision, nil
}

// factsFrom restricts the record to what the granted scopes disclose. A fact
// behind an ungranted scope keeps its zero value and the rules never see it.
func factsFrom(subj subject.Subject, granted []scope.Scope) Facts {
	var f Facts
	for _, sc := range granted {
		switch sc {
		case scope.IdentityBasics:
			f.Status = subj.Status
		case scope.FarmProfile:
			f.LandSizeHa = subj.LandSizeHa
		case scope.SeasonHistory:
			f.SeasonCount = len(subj.Seasons)
		}
	}
	return f
}

func missingScopes(required, granted []scope.Scope) []scope.Scope {
	have := make(map[scope.Scope]bool, len(granted))
	for _, sc := range granted {
		have[sc] = true
	}
	var missing []scope.Scope
	for _, sc := range required {
		if !have[sc] {
			missing = append(missing, sc)
		}
	}
	return missing
}

func (s *Service) recordEvaluation(ctx context.Context, decision Decision, requesterID id.RequesterID) error {
	actor := requestcontext.Actor(ctx)
	if actor == "" {
		actor = requesterID.String()
	}
	actorType := audit.ActorType(requestcontext.ActorType(ctx))
	if actorType == "" {
		actorType = audit.ActorTypeSystem
	}
	return s.audit.Record(ctx, audit.Entry{
		SubjectID: decision.SubjectID,
		Action:    audit.ActionEligibilityChecked,
		Actor:     actor,
		ActorType: actorType,
		Timestamp: decision.EvaluatedAt,
		Details:   decision.Program + ": " + string(decision.Outcome),
		Scopes:    decision.ScopesUsed,
		RequestID: requestcontext.RequestID(ctx),
	})
}
