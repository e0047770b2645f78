// Package handler exposes minimal-disclosure views over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"agripass/internal/disclosure"
	"agripass/internal/transport/http/shared"
	sharedjson "agripass/internal/transport/http/shared/json"
	id "agripass/pkg/domain"
	dErrors "agripass/pkg/domain-errors"
	"agripass/pkg/requestcontext"
)

// Service is the disclosure operation the handler fronts.
type Service interface {
	RequestDisclosure(ctx context.Context, subjectID id.SubjectID, requesterID id.RequesterID) (disclosure.PartialView, error)
}

type Handler struct {
	disclosures Service
	logger      *slog.Logger
}

func New(disclosures Service, logger *slog.Logger) *Handler {
	return &Handler{disclosures: disclosures, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/subjects/{subjectID}/disclosure", h.handleDisclosure)
}

func (h *Handler) handleDisclosure(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	subjectID, err := id.ParseSubjectID(chi.URLParam(r, "subjectID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, err.Error()))
		return
	}
	requesterID, err := id.ParseRequesterID(r.URL.Query().Get("requester"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "requester query parameter required"))
		return
	}

	view, err := h.disclosures.RequestDisclosure(ctx, subjectID, requesterID)
	if err != nil {
		h.logger.WarnContext(ctx, "disclosure rejected",
			"request_id", requestcontext.RequestID(ctx),
			"subject_id", subjectID.String(),
			"requester_id", requesterID.String(),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	sharedjson.WriteJSON(w, http.StatusOK, view)
}
