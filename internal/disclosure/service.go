package disclosure

import (
	"context"
	"errors"
	"log/slog"

	"agripass/internal/audit"
	"agripass/internal/platform/metrics"
	"agripass/internal/scope"
	"agripass/internal/subject"
	id "agripass/pkg/domain"
	dErrors "agripass/pkg/domain-errors"
	"agripass/pkg/platform/sentinel"
	"agripass/pkg/requestcontext"
)

// ConsentReader resolves the active scope set that authorizes a disclosure.
type ConsentReader interface {
	ActiveScopesFor(ctx context.Context, subjectID id.SubjectID, requesterID id.RequesterID) ([]scope.Scope, error)
}

// Service gates the projector behind the consent ledger and the mandatory
// access trail.
type Service struct {
	consents ConsentReader
	subjects subject.Directory
	audit    *audit.Recorder
	catalog  *scope.Catalog
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

func NewService(
	consents ConsentReader,
	subjects subject.Directory,
	recorder *audit.Recorder,
	catalog *scope.Catalog,
	logger *slog.Logger,
	m *metrics.Metrics,
) *Service {
	return &Service{
		consents: consents,
		subjects: subjects,
		audit:    recorder,
		catalog:  catalog,
		logger:   logger,
		metrics:  m,
	}
}

// RequestDisclosure returns the partial view the requester's active grants
// authorize. An empty grant set yields an empty view, and the access is logged
// either way; the trail records the attempt, not just the success. The audit
// append is fail-closed: no entry, no view.
//
// Errors: CodeNotFound (unknown subject), CodeAuditWriteFailed.
func (s *Service) RequestDisclosure(ctx context.Context, subjectID id.SubjectID, requesterID id.RequesterID) (PartialView, error) {
	subj, err := s.subjects.FindByID(ctx, subjectID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return PartialView{}, dErrors.New(dErrors.CodeNotFound, "subject not found: "+subjectID.String())
		}
		return PartialView{}, dErrors.Wrap(err, dErrors.CodeInternal, "subject lookup failed")
	}

	granted, err := s.consents.ActiveScopesFor(ctx, subjectID, requesterID)
	if err != nil {
		return PartialView{}, err
	}

	view := Project(subj, granted, s.catalog)

	if err := s.recordAccess(ctx, subjectID, requesterID, view); err != nil {
		return PartialView{}, err
	}

	if s.metrics != nil {
		s.metrics.DisclosuresServed.Inc()
	}
	s.logger.InfoContext(ctx, "disclosure served",
		"subject_id", subjectID.String(),
		"requester_id", requesterID.String(),
		"scopes", view.Scopes,
		"empty", view.Empty(),
	)
	return view, nil
}

func (s *Service) recordAccess(ctx context.Context, subjectID id.SubjectID, requesterID id.RequesterID, view PartialView) error {
	actor := requestcontext.Actor(ctx)
	if actor == "" {
		actor = requesterID.String()
	}
	actorType := audit.ActorType(requestcontext.ActorType(ctx))
	if actorType == "" {
		actorType = audit.ActorTypeSystem
	}

	details := "disclosed fields per active grants"
	if view.Empty() {
		details = "no active grants, empty view returned"
	}

	return s.audit.Record(ctx, audit.Entry{
		SubjectID: subjectID,
		Action:    audit.ActionDataAccessed,
		Actor:     actor,
		ActorType: actorType,
		Timestamp: requestcontext.Now(ctx),
		Details:   details,
		Scopes:    view.Scopes,
		RequestID: requestcontext.RequestID(ctx),
	})
}
