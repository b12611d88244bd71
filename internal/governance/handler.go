package governance

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	dErrors "apeguard/pkg/domain-errors"
	"apeguard/pkg/platform/httputil"
	request "apeguard/pkg/platform/middleware/request"
)

// Service is the proposal lifecycle the handler serves.
type Service interface {
	Schedule(ctx context.Context, ops []Operation) (*Proposal, error)
	Get(ctx context.Context, id uuid.UUID) (*Proposal, error)
	Execute(ctx context.Context, id uuid.UUID) (*Proposal, error)
}

// Handler serves the governance endpoints. Every route requires a caller.
type Handler struct {
	proposals Service
	logger    *slog.Logger
}

func NewHandler(proposals Service, logger *slog.Logger) *Handler {
	return &Handler{proposals: proposals, logger: logger}
}

// Register mounts the routes on r behind requireCaller.
func (h *Handler) Register(r chi.Router, requireCaller func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(requireCaller)
		r.Post("/governance/proposals", h.handleSchedule)
		r.Get("/governance/proposals/{id}", h.handleGet)
		r.Post("/governance/proposals/{id}/execute", h.handleExecute)
	})
}

func (h *Handler) handleSchedule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)
	req, ok := httputil.DecodeAndPrepare[ScheduleRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	p, err := h.proposals.Schedule(ctx, req.Operations)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to schedule proposal",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, p)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.proposalID(w, r)
	if !ok {
		return
	}
	p, err := h.proposals.Get(ctx, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) handleExecute(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)
	id, ok := h.proposalID(w, r)
	if !ok {
		return
	}
	p, err := h.proposals.Execute(ctx, id)
	if err != nil && p == nil {
		h.logger.WarnContext(ctx, "failed to execute proposal",
			"request_id", requestID,
			"proposal_id", id,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	// A failed run still reports the proposal; its status says how far it got.
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) proposalID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid proposal id"))
		return uuid.Nil, false
	}
	return id, true
}
