// Package handler serves the registry catalog over HTTP. Reads are public;
// mutations run as the caller authenticated by the middleware passed to
// Register.
package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"apeguard/internal/registry/service"
	"apeguard/pkg/domain"
	dErrors "apeguard/pkg/domain-errors"
	"apeguard/pkg/platform/audit"
	"apeguard/pkg/platform/httputil"
	request "apeguard/pkg/platform/middleware/request"
	"apeguard/pkg/requestcontext"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 500
)

// Service defines the catalog operations the handler serves.
type Service interface {
	ListRegistries(ctx context.Context) []service.RegistryInfo
	GetRegistry(ctx context.Context, name string) (*service.RegistryInfo, error)
	LookupKey(ctx context.Context, name, key string) (*service.KeyLookup, error)
	KeyAt(ctx context.Context, name string, idx int) (string, error)
	AddKey(ctx context.Context, name, key string) (int, error)
	RemoveKey(ctx context.Context, name, key string) error
	TransferOwnership(ctx context.Context, name string, newOwner domain.Address) error
	AllowCaller(ctx context.Context, name string, identity domain.Address) error
	DisallowCaller(ctx context.Context, name string, identity domain.Address) error
	HandOver(ctx context.Context, name string, identity domain.Address) error
	ListRelations(ctx context.Context) []service.RelationInfo
	GetRelation(ctx context.Context, name string) (*service.RelationInfo, error)
	Link(ctx context.Context, name, a, b string) error
	Unlink(ctx context.Context, name, a, b string) error
	Owns(ctx context.Context, name, a, b string) (bool, error)
	LinksOf(ctx context.Context, name string, side service.Side, key string) (*service.LinkedKeys, error)
	LinkedAt(ctx context.Context, name string, side service.Side, key string, i int) (string, error)
	AuditTrail(ctx context.Context, target string, limit int) ([]audit.Event, error)
}

// Handler serves registry and relation endpoints.
type Handler struct {
	catalog Service
	logger  *slog.Logger
}

// New creates a new registry Handler.
func New(catalog Service, logger *slog.Logger) *Handler {
	return &Handler{catalog: catalog, logger: logger}
}

// Register mounts the routes on r. requireCaller guards every mutation.
func (h *Handler) Register(r chi.Router, requireCaller func(http.Handler) http.Handler) {
	r.Get("/registries", h.handleListRegistries)
	r.Get("/registries/{name}", h.handleGetRegistry)
	r.Get("/registries/{name}/keys/{key}", h.handleLookupKey)
	r.Get("/registries/{name}/items/{index}", h.handleKeyAt)
	r.Get("/relations", h.handleListRelations)
	r.Get("/relations/{name}", h.handleGetRelation)
	r.Get("/relations/{name}/links/{a}/{b}", h.handleOwns)
	r.Get("/relations/{name}/{side}/{key}", h.handleLinksOf)
	r.Get("/relations/{name}/{side}/{key}/{index}", h.handleLinkedAt)
	r.Get("/audit", h.handleAuditTrail)

	r.Group(func(r chi.Router) {
		r.Use(requireCaller)
		r.Post("/registries/{name}/keys", h.handleAddKey)
		r.Delete("/registries/{name}/keys/{key}", h.handleRemoveKey)
		r.Put("/registries/{name}/owner", h.handleTransferOwnership)
		r.Post("/registries/{name}/allowlist", h.handleAllowCaller)
		r.Delete("/registries/{name}/allowlist/{identity}", h.handleDisallowCaller)
		r.Post("/registries/{name}/handover", h.handleHandOver)
		r.Put("/relations/{name}/owner", h.handleTransferOwnership)
		r.Post("/relations/{name}/links", h.handleLink)
		r.Delete("/relations/{name}/links/{a}/{b}", h.handleUnlink)
	})
}

func (h *Handler) handleListRegistries(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, RegistriesResponse{Registries: h.catalog.ListRegistries(r.Context())})
}

func (h *Handler) handleGetRegistry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	info, err := h.catalog.GetRegistry(ctx, chi.URLParam(r, "name"))
	if err != nil {
		h.fail(ctx, w, "failed to get registry", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, info)
}

func (h *Handler) handleLookupKey(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key, ok := h.pathParam(w, r, "key")
	if !ok {
		return
	}
	res, err := h.catalog.LookupKey(ctx, chi.URLParam(r, "name"), key)
	if err != nil {
		h.fail(ctx, w, "failed to look up key", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) handleKeyAt(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	idx, ok := h.indexParam(w, r)
	if !ok {
		return
	}
	key, err := h.catalog.KeyAt(ctx, chi.URLParam(r, "name"), idx)
	if err != nil {
		h.fail(ctx, w, "failed to get key by index", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, KeyAtResponse{Index: idx, Key: key})
}

func (h *Handler) handleAddKey(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[KeyRequest](w, r, h.logger, ctx, request.GetRequestID(ctx))
	if !ok {
		return
	}
	id, err := h.catalog.AddKey(ctx, chi.URLParam(r, "name"), req.Key)
	if err != nil {
		h.fail(ctx, w, "failed to add key", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, AddKeyResponse{Key: req.Key, ID: id})
}

func (h *Handler) handleRemoveKey(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key, ok := h.pathParam(w, r, "key")
	if !ok {
		return
	}
	if err := h.catalog.RemoveKey(ctx, chi.URLParam(r, "name"), key); err != nil {
		h.fail(ctx, w, "failed to remove key", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleTransferOwnership(w http.ResponseWriter, r *http.Request) {
	h.identityCall(w, r, "failed to transfer ownership", h.catalog.TransferOwnership)
}

func (h *Handler) handleAllowCaller(w http.ResponseWriter, r *http.Request) {
	h.identityCall(w, r, "failed to allow caller", h.catalog.AllowCaller)
}

func (h *Handler) handleHandOver(w http.ResponseWriter, r *http.Request) {
	h.identityCall(w, r, "failed to hand over registry", h.catalog.HandOver)
}

func (h *Handler) handleDisallowCaller(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	raw, ok := h.pathParam(w, r, "identity")
	if !ok {
		return
	}
	identity, err := domain.ParseAddress(raw)
	if err != nil {
		h.fail(ctx, w, "invalid identity", dErrors.New(dErrors.CodeBadRequest, "identity must be a 0x-prefixed 20-byte hex address"))
		return
	}
	if err := h.catalog.DisallowCaller(ctx, chi.URLParam(r, "name"), identity); err != nil {
		h.fail(ctx, w, "failed to disallow caller", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) identityCall(w http.ResponseWriter, r *http.Request, failure string, call func(context.Context, string, domain.Address) error) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[IdentityRequest](w, r, h.logger, ctx, request.GetRequestID(ctx))
	if !ok {
		return
	}
	if err := call(ctx, chi.URLParam(r, "name"), req.Address()); err != nil {
		h.fail(ctx, w, failure, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListRelations(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, RelationsResponse{Relations: h.catalog.ListRelations(r.Context())})
}

func (h *Handler) handleGetRelation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	info, err := h.catalog.GetRelation(ctx, chi.URLParam(r, "name"))
	if err != nil {
		h.fail(ctx, w, "failed to get relation", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, info)
}

func (h *Handler) handleLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[LinkRequest](w, r, h.logger, ctx, request.GetRequestID(ctx))
	if !ok {
		return
	}
	if err := h.catalog.Link(ctx, chi.URLParam(r, "name"), req.A, req.B); err != nil {
		h.fail(ctx, w, "failed to link", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleUnlink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	a, b, ok := h.pairParams(w, r)
	if !ok {
		return
	}
	if err := h.catalog.Unlink(ctx, chi.URLParam(r, "name"), a, b); err != nil {
		h.fail(ctx, w, "failed to unlink", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleOwns(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	a, b, ok := h.pairParams(w, r)
	if !ok {
		return
	}
	linked, err := h.catalog.Owns(ctx, chi.URLParam(r, "name"), a, b)
	if err != nil {
		h.fail(ctx, w, "failed to check link", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, OwnsResponse{A: a, B: b, Linked: linked})
}

func (h *Handler) handleLinksOf(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key, ok := h.pathParam(w, r, "key")
	if !ok {
		return
	}
	res, err := h.catalog.LinksOf(ctx, chi.URLParam(r, "name"), service.Side(chi.URLParam(r, "side")), key)
	if err != nil {
		h.fail(ctx, w, "failed to list links", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) handleLinkedAt(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key, ok := h.pathParam(w, r, "key")
	if !ok {
		return
	}
	idx, ok := h.indexParam(w, r)
	if !ok {
		return
	}
	side := service.Side(chi.URLParam(r, "side"))
	linked, err := h.catalog.LinkedAt(ctx, chi.URLParam(r, "name"), side, key, idx)
	if err != nil {
		h.fail(ctx, w, "failed to get link by index", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, LinkedAtResponse{Side: side, Key: key, Index: idx, Linked: linked})
}

func (h *Handler) handleAuditTrail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit := defaultAuditLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxAuditLimit {
			h.fail(ctx, w, "invalid audit limit", dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("limit must be between 1 and %d", maxAuditLimit)))
			return
		}
		limit = n
	}
	events, err := h.catalog.AuditTrail(ctx, r.URL.Query().Get("target"), limit)
	if err != nil {
		h.fail(ctx, w, "failed to read audit trail", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toAuditTrailResponse(events))
}

// pathParam returns the unescaped URL parameter; keys may carry reserved
// characters.
func (h *Handler) pathParam(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	v, err := url.PathUnescape(chi.URLParam(r, name))
	if err != nil {
		h.fail(r.Context(), w, "invalid path parameter", dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("invalid %s in path", name)))
		return "", false
	}
	return v, true
}

func (h *Handler) pairParams(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	a, ok := h.pathParam(w, r, "a")
	if !ok {
		return "", "", false
	}
	b, ok := h.pathParam(w, r, "b")
	if !ok {
		return "", "", false
	}
	return a, b, true
}

func (h *Handler) indexParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	idx, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		h.fail(r.Context(), w, "invalid index", dErrors.New(dErrors.CodeBadRequest, "index must be an integer"))
		return 0, false
	}
	return idx, true
}

// fail logs err at a level matching its code and writes the error response.
func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	attrs := []any{
		"request_id", request.GetRequestID(ctx),
		"caller", requestcontext.Caller(ctx).String(),
		"error", err,
	}
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg, attrs...)
	} else {
		h.logger.WarnContext(ctx, msg, attrs...)
	}
	httputil.WriteError(w, err)
}
