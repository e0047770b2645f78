// Package handler exposes the audit trail read side.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"agripass/internal/audit"
	"agripass/internal/transport/http/shared"
	sharedjson "agripass/internal/transport/http/shared/json"
	id "agripass/pkg/domain"
	dErrors "agripass/pkg/domain-errors"
	"agripass/pkg/requestcontext"
)

// Trail is the read-only view of a subject's audit log.
type Trail interface {
	List(ctx context.Context, subjectID id.SubjectID, page audit.Page) ([]audit.Entry, audit.Cursor, error)
}

type Handler struct {
	trail  Trail
	logger *slog.Logger
}

func New(trail Trail, logger *slog.Logger) *Handler {
	return &Handler{trail: trail, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/subjects/{subjectID}/audit", h.handleTrail)
}

type entryView struct {
	EntryID   string    `json:"entry_id"`
	SubjectID string    `json:"subject_id"`
	Action    string    `json:"action"`
	Actor     string    `json:"actor"`
	ActorType string    `json:"actor_type"`
	Timestamp time.Time `json:"timestamp"`
	Details   string    `json:"details,omitempty"`
	Scopes    []string  `json:"scopes,omitempty"`
}

type trailResponse struct {
	Entries    []entryView `json:"entries"`
	NextCursor string      `json:"next_cursor,omitempty"`
}

func (h *Handler) handleTrail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	subjectID, err := id.ParseSubjectID(chi.URLParam(r, "subjectID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, err.Error()))
		return
	}

	page := audit.Page{Cursor: audit.Cursor(r.URL.Query().Get("cursor"))}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "limit must be a positive integer"))
			return
		}
		page.Limit = limit
	}

	entries, next, err := h.trail.List(ctx, subjectID, page)
	if err != nil {
		h.logger.ErrorContext(ctx, "audit trail query failed",
			"request_id", requestcontext.RequestID(ctx),
			"subject_id", subjectID.String(),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	views := make([]entryView, 0, len(entries))
	for _, entry := range entries {
		views = append(views, entryView{
			EntryID:   entry.ID.String(),
			SubjectID: entry.SubjectID.String(),
			Action:    string(entry.Action),
			Actor:     entry.Actor,
			ActorType: string(entry.ActorType),
			Timestamp: entry.Timestamp,
			Details:   entry.Details,
			Scopes:    entry.Scopes,
		})
	}

	sharedjson.WriteJSON(w, http.StatusOK, trailResponse{
		Entries:    views,
		NextCursor: string(next),
	})
}
