package approval

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/praxis-platform/praxis/internal/access"
	"github.com/praxis-platform/praxis/internal/permissions"
	"github.com/praxis-platform/praxis/internal/platform/httpx"
)

type submitRequest struct {
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

type decideRequest struct {
	Outcome     string           `json:"outcome"`
	Message     *string          `json:"message,omitempty"`
	Permissions *permissions.Set `json:"permissions,omitempty"`
}

// Handler exposes the approval workflow over HTTP.
type Handler struct {
	service *Service
	grants  access.GrantSource
	logger  *slog.Logger
}

func NewHandler(service *Service, grants access.GrantSource, logger *slog.Logger) *Handler {
	return &Handler{service: service, grants: grants, logger: logger}
}

// Routes mounts the approval endpoints. Every route requires a signed-in
// principal; decision routes additionally require a review capability,
// enforced per outcome in the service.
func (h *Handler) Routes(mw access.Middleware) chi.Router {
	r := chi.NewRouter()
	r.Use(mw.RequireAuthenticated())
	r.Post("/", h.submit)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Post("/{id}/decision", h.decide)
	return r
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	principalID, ok := access.PrincipalID(r)
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "sign in to continue")
		return
	}
	var in submitRequest
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", err.Error())
		return
	}
	req, err := h.service.Submit(r.Context(), Kind(in.Kind), principalID, in.Payload)
	if err != nil {
		if errors.Is(err, ErrUnknownKind) {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Request", err.Error())
			return
		}
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, req)
}

func (h *Handler) decide(w http.ResponseWriter, r *http.Request) {
	reviewerID, ok := access.PrincipalID(r)
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "sign in to continue")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed request id")
		return
	}
	var in decideRequest
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", err.Error())
		return
	}
	req, err := h.service.Decide(r.Context(), id, Decision{
		ReviewerID:  reviewerID,
		Outcome:     Outcome(in.Outcome),
		Message:     in.Message,
		Permissions: in.Permissions,
	})
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, req)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	viewer, ok := h.viewerGrant(w, r)
	if !ok {
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed request id")
		return
	}
	req, err := h.service.Get(r.Context(), id, viewer)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, req)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	viewer, ok := h.viewerGrant(w, r)
	if !ok {
		return
	}
	f := ListFilter{}
	if v := r.URL.Query().Get("kind"); v != "" {
		k := Kind(v)
		if !k.Valid() {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "unknown kind "+v)
			return
		}
		f.Kind = &k
	}
	if v := r.URL.Query().Get("status"); v != "" {
		st := Status(v)
		if st != StatusPending && st != StatusAccepted && st != StatusRejected {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "unknown status "+v)
			return
		}
		f.Status = &st
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "limit must be a non-negative integer")
			return
		}
		f.Limit = n
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "offset must be a non-negative integer")
			return
		}
		f.Offset = n
	}
	requests, err := h.service.List(r.Context(), f, viewer)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"requests": requests})
}

func (h *Handler) viewerGrant(w http.ResponseWriter, r *http.Request) (access.Grant, bool) {
	principalID, ok := access.PrincipalID(r)
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "sign in to continue")
		return access.Grant{}, false
	}
	grant, err := h.grants.GrantFor(r.Context(), principalID)
	if err != nil {
		h.logger.Error("load viewer grant", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return access.Grant{}, false
	}
	return grant, true
}

func (h *Handler) respondErr(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, ErrAlreadyDecided) {
		httpx.Problem(w, http.StatusConflict, "Conflict", "request already decided")
		return
	}
	switch {
	case errors.Is(err, httpx.ErrEffectFailed):
		h.logger.Error("decision effect failed",
			slog.String("path", r.URL.Path),
			slog.Any("error", err))
		httpx.RespondError(w, err)
	case errors.Is(err, httpx.ErrNotFound),
		errors.Is(err, httpx.ErrDuplicate),
		errors.Is(err, httpx.ErrValidation),
		errors.Is(err, httpx.ErrForbidden),
		errors.Is(err, httpx.ErrUnauthorized),
		errors.Is(err, httpx.ErrConflict):
		httpx.RespondError(w, err)
	default:
		h.logger.Error("approval request failed",
			slog.String("path", r.URL.Path),
			slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
