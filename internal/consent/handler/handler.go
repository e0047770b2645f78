// Package handler exposes the consent ledger over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"agripass/internal/consent"
	"agripass/internal/consent/service"
	"agripass/internal/scope"
	"agripass/internal/transport/http/shared"
	sharedjson "agripass/internal/transport/http/shared/json"
	id "agripass/pkg/domain"
	dErrors "agripass/pkg/domain-errors"
	"agripass/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/consent_mocks.go -package=mocks

// Service defines the ledger operations the handler needs.
type Service interface {
	Submit(ctx context.Context, params service.SubmitParams) (*consent.ConsentRequest, error)
	Respond(ctx context.Context, requestID id.ConsentRequestID, decision service.Decision) (*consent.ConsentRequest, error)
	Revoke(ctx context.Context, requestID id.ConsentRequestID) (*consent.ConsentRequest, error)
	PendingFor(ctx context.Context, subjectID id.SubjectID) ([]*consent.ConsentRequest, error)
	HistoryFor(ctx context.Context, subjectID id.SubjectID) ([]*consent.ConsentRequest, error)
}

type Handler struct {
	consents Service
	logger   *slog.Logger
}

func New(consents Service, logger *slog.Logger) *Handler {
	return &Handler{consents: consents, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/consents", h.handleSubmit)
	r.Post("/consents/{requestID}/approve", h.handleApprove)
	r.Post("/consents/{requestID}/deny", h.handleDeny)
	r.Post("/consents/{requestID}/revoke", h.handleRevoke)
	r.Get("/subjects/{subjectID}/consents", h.handleHistory)
	r.Get("/subjects/{subjectID}/consents/pending", h.handlePending)
}

type submitRequest struct {
	SubjectID     string   `json:"subject_id"`
	RequesterID   string   `json:"requester_id"`
	RequesterName string   `json:"requester_name"`
	RequesterType string   `json:"requester_type"`
	Scopes        []string `json:"scopes"`
	Purpose       string   `json:"purpose"`
}

type consentRequestView struct {
	RequestID     string     `json:"request_id"`
	SubjectID     string     `json:"subject_id"`
	RequesterID   string     `json:"requester_id"`
	RequesterName string     `json:"requester_name"`
	RequesterType string     `json:"requester_type"`
	Scopes        []string   `json:"scopes"`
	Purpose       string     `json:"purpose"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	RespondedAt   *time.Time `json:"responded_at,omitempty"`
	RevokedAt     *time.Time `json:"revoked_at,omitempty"`
}

func viewOf(req *consent.ConsentRequest) consentRequestView {
	return consentRequestView{
		RequestID:     req.ID.String(),
		SubjectID:     req.SubjectID.String(),
		RequesterID:   req.RequesterID.String(),
		RequesterName: req.RequesterName,
		RequesterType: req.RequesterType.String(),
		Scopes:        scope.Strings(req.Scopes),
		Purpose:       req.Purpose,
		Status:        string(req.Status),
		CreatedAt:     req.CreatedAt,
		RespondedAt:   req.RespondedAt,
		RevokedAt:     req.RevokedAt,
	}
}

func viewsOf(reqs []*consent.ConsentRequest) []consentRequestView {
	views := make([]consentRequestView, 0, len(reqs))
	for _, req := range reqs {
		views = append(views, viewOf(req))
	}
	return views
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body submitRequest
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
	requesterType, err := id.ParseRequesterType(body.RequesterType)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, err.Error()))
		return
	}

	req, err := h.consents.Submit(ctx, service.SubmitParams{
		SubjectID:     subjectID,
		RequesterID:   requesterID,
		RequesterName: body.RequesterName,
		RequesterType: requesterType,
		Scopes:        body.Scopes,
		Purpose:       body.Purpose,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "consent submit rejected",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	sharedjson.WriteJSON(w, http.StatusCreated, viewOf(req))
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, service.DecisionApprove)
}

func (h *Handler) handleDeny(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, service.DecisionDeny)
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, decision service.Decision) {
	ctx := r.Context()

	requestID, err := id.ParseConsentRequestID(chi.URLParam(r, "requestID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, err.Error()))
		return
	}

	req, err := h.consents.Respond(ctx, requestID, decision)
	if err != nil {
		h.logger.WarnContext(ctx, "consent decision rejected",
			"request_id", requestcontext.RequestID(ctx),
			"consent_request_id", requestID.String(),
			"decision", string(decision),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	sharedjson.WriteJSON(w, http.StatusOK, viewOf(req))
}

func (h *Handler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	requestID, err := id.ParseConsentRequestID(chi.URLParam(r, "requestID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, err.Error()))
		return
	}

	req, err := h.consents.Revoke(ctx, requestID)
	if err != nil {
		h.logger.WarnContext(ctx, "consent revoke rejected",
			"request_id", requestcontext.RequestID(ctx),
			"consent_request_id", requestID.String(),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	sharedjson.WriteJSON(w, http.StatusOK, viewOf(req))
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.consents.HistoryFor)
}

func (h *Handler) handlePending(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.consents.PendingFor)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, query func(context.Context, id.SubjectID) ([]*consent.ConsentRequest, error)) {
	ctx := r.Context()

	subjectID, err := id.ParseSubjectID(chi.URLParam(r, "subjectID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, err.Error()))
		return
	}

	reqs, err := query(ctx, subjectID)
	if err != nil {
		h.logger.ErrorContext(ctx, "consent list failed",
			"request_id", requestcontext.RequestID(ctx),
			"subject_id", subjectID.String(),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	sharedjson.WriteJSON(w, http.StatusOK, map[string]any{"requests": viewsOf(reqs)})
}
