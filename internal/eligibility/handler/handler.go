// Package handler exposes eligibility checks over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"agripass/internal/eligibility"
	"agripass/internal/scope"
	"agripass/internal/transport/http/shared"
	sharedjson "agripass/internal/transport/http/shared/json"
	id "agripass/pkg/domain"
	dErrors "agripass/pkg/domain-errors"
	"agripass/pkg/requestcontext"
)

// Service is the evaluation operation the handler fronts.
type Service interface {
	Check(ctx context.Context, subjectID id.SubjectID, requesterID id.RequesterID, criteria eligibility.Criteria) (eligibility.Decision, error)
}

type Handler struct {
	evaluations Service
	catalog     *scope.Catalog
	logger      *slog.Logger
}

func New(evaluations Service, catalog *scope.Catalog, logger *slog.Logger) *Handler {
	return &Handler{evaluations: evaluations, catalog: catalog, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/eligibility/check", h.handleCheck)
}

type checkRequest struct {
	SubjectID   string  `json:"subject_id"`
	RequesterID string  `json:"requester_id"`
	Program     string  `json:"program"`
	MinLandHa   float64 `json:"min_land_ha"`
	MinSeasons  int     `json:"min_seasons"`
	// RequiredScopes defaults to the scopes the criteria fields need when the
	// caller omits it.
	RequiredScopes []string `json:"required_scopes"`
}

func (h *Handler) handleCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body checkRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	subjectID, err := id.ParseSubjectID(body.SubjectID)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, err.Error()))
		return
	}
	requesterID, err := id.ParseRequesterID(body.RequesterID)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, err.Error()))
		return
	}
	if body.Program == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "program is required"))
		return
	}

	required := body.RequiredScopes
	if len(required) == 0 {
		required = []string{
			scope.IdentityBasics.String(),
			scope.FarmProfile.String(),
			scope.SeasonHistory.String(),
		}
	}
	requiredScopes, err := h.catalog.ParseSet(required)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	decision, err := h.evaluations.Check(ctx, subjectID, requesterID, eligibility.Criteria{
		Program:        body.Program,
		MinLandHa:      body.MinLandHa,
		MinSeasons:     body.MinSeasons,
		RequiredScopes: requiredScopes,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "eligibility check rejected",
			"request_id", requestcontext.RequestID(ctx),
			"subject_id", subjectID.String(),
			"requester_id", requesterID.String(),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	sharedjson.WriteJSON(w, http.StatusOK, decision)
}
