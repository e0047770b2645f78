// Package handler exposes identity issuance and credential verification.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"agripass/internal/identity"
	"agripass/internal/transport/http/shared"
	sharedjson "agripass/internal/transport/http/shared/json"
	dErrors "agripass/pkg/domain-errors"
	"agripass/pkg/requestcontext"
)

// IssuerService allocates Agri-IDs.
type IssuerService interface {
	Issue(ctx context.Context, facts identity.EnrollmentFacts) (identity.Issuance, error)
}

// Verifier checks credentials offline.
type Verifier interface {
	Verify(tokenString string) (*identity.Claims, error)
}

type Handler struct {
	issuer   IssuerService
	verifier Verifier
	logger   *slog.Logger
}

func New(issuer IssuerService, verifier Verifier, logger *slog.Logger) *Handler {
	return &Handler{issuer: issuer, verifier: verifier, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/identities", h.handleIssue)
	r.Post("/identities/verify", h.handleVerify)
}

type issueRequest struct {
	FirstName   string   `json:"first_name"`
	LastName    string   `json:"last_name"`
	Gender      string   `json:"gender"`
	YearOfBirth int      `json:"year_of_birth"`
	Phone       string   `json:"phone"`
	Village     string   `json:"village"`
	Region      string   `json:"region"`
	Country     string   `json:"country"`
	Cooperative string   `json:"cooperative"`
	Crops       []string `json:"crops"`
	LandSizeHa  float64  `json:"land_size_ha"`
	EnrolledBy  string   `json:"enrolled_by"`
}

type issueResponse struct {
	SubjectID  string `json:"subject_id"`
	Credential string `json:"credential"`
}

func (h *Handler) handleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body issueRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	issuance, err := h.issuer.Issue(ctx, identity.EnrollmentFacts{
		FirstName:   body.FirstName,
		LastName:    body.LastName,
		Gender:      body.Gender,
		YearOfBirth: body.YearOfBirth,
		Phone:       body.Phone,
		Village:     body.Village,
		Region:      body.Region,
		Country:     body.Country,
		Cooperative: body.Cooperative,
		Crops:       body.Crops,
		LandSizeHa:  body.LandSizeHa,
		EnrolledBy:  body.EnrolledBy,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "identity issuance failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	sharedjson.WriteJSON(w, http.StatusCreated, issueResponse{
		SubjectID:  issuance.SubjectID.String(),
		Credential: issuance.Credential,
	})
}

type verifyRequest struct {
	Credential string `json:"credential"`
}

type verifyResponse struct {
	Valid     bool   `json:"valid"`
	SubjectID string `json:"subject_id,omitempty"`
	Region    string `json:"region,omitempty"`
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if body.Credential == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "credential is required"))
		return
	}

	claims, err := h.verifier.Verify(body.Credential)
	if err != nil {
		h.logger.WarnContext(ctx, "credential verification failed",
			"request_id", requestcontext.RequestID(ctx),
		)
		sharedjson.WriteJSON(w, http.StatusOK, verifyResponse{Valid: false})
		return
	}

	sharedjson.WriteJSON(w, http.StatusOK, verifyResponse{
		Valid:     true,
		SubjectID: claims.SubjectID,
		Region:    claims.Region,
	})
}
