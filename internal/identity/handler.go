package identity

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/praxis-platform/praxis/internal/access"
	"github.com/praxis-platform/praxis/internal/permissions"
	"github.com/praxis-platform/praxis/internal/platform/httpx"
	"github.com/praxis-platform/praxis/internal/shared"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type permissionsRequest struct {
	Permissions permissions.Set `json:"permissions"`
}

// Handler exposes authentication and principal administration over HTTP.
type Handler struct {
	service  *Service
	sessions *shared.SessionManager
	logger   *slog.Logger
}

func NewHandler(service *Service, sessions *shared.SessionManager, logger *slog.Logger) *Handler {
	return &Handler{service: service, sessions: sessions, logger: logger}
}

// AuthRoutes mounts the session endpoints.
func (h *Handler) AuthRoutes(mw access.Middleware) chi.Router {
	r := chi.NewRouter()
	r.Post("/register", h.register)
	r.Post("/login", h.login)
	r.Post("/logout", h.logout)
	r.With(mw.RequireAuthenticated()).Get("/me", h.me)
	return r
}

// PrincipalRoutes mounts the admin surface. Editing another principal's
// permissions is the most sensitive operation on the platform and is gated
// on the full-access override.
func (h *Handler) PrincipalRoutes(mw access.Middleware) chi.Router {
	r := chi.NewRouter()
	r.With(mw.RequireFullAccess()).Put("/{id}/permissions", h.editPermissions)
	return r
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var in credentialsRequest
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", err.Error())
		return
	}
	p, err := h.service.Register(r.Context(), in.Email, in.Password)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	h.signIn(r, p)
	httpx.JSON(w, http.StatusCreated, p)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var in credentialsRequest
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", err.Error())
		return
	}
	p, err := h.service.Authenticate(r.Context(), in.Email, in.Password)
	if err != nil {
		if errors.Is(err, shared.ErrInvalidCredentials) {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid email or password")
			return
		}
		h.respondErr(w, r, err)
		return
	}
	h.signIn(r, p)
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		h.sessions.Destroy(sess)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	id, ok := access.PrincipalID(r)
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "sign in to continue")
		return
	}
	p, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) editPermissions(w http.ResponseWriter, r *http.Request) {
	actorID, ok := access.PrincipalID(r)
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "sign in to continue")
		return
	}
	targetID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed principal id")
		return
	}
	var in permissionsRequest
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", err.Error())
		return
	}
	p, err := h.service.EditPermissions(r.Context(), actorID, targetID, in.Permissions)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) signIn(r *http.Request, p *Principal) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.SetUser(p.ID.String())
	}
}

func (h *Handler) respondErr(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, httpx.ErrNotFound),
		errors.Is(err, httpx.ErrDuplicate),
		errors.Is(err, httpx.ErrValidation),
		errors.Is(err, httpx.ErrForbidden),
		errors.Is(err, httpx.ErrConflict):
		httpx.RespondError(w, err)
	default:
		h.logger.Error("identity request failed",
			slog.String("path", r.URL.Path),
			slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
