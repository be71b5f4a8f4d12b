package cart

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/praxis-platform/praxis/internal/access"
	"github.com/praxis-platform/praxis/internal/catalog"
	"github.com/praxis-platform/praxis/internal/platform/httpx"
)

type addItemRequest struct {
	ItemID   uuid.UUID        `json:"item_id"`
	ItemType catalog.ItemType `json:"item_type"`
}

// Handler exposes the cart over HTTP. Checkout is injected so submission of
// the staged items stays with the enrollment flow.
type Handler struct {
	service  *Service
	checkout http.HandlerFunc
	logger   *slog.Logger
}

func NewHandler(service *Service, checkout http.HandlerFunc, logger *slog.Logger) *Handler {
	return &Handler{service: service, checkout: checkout, logger: logger}
}

func (h *Handler) Routes(mw access.Middleware) chi.Router {
	r := chi.NewRouter()
	r.Use(mw.RequireAuthenticated())
	r.Get("/", h.list)
	r.Delete("/", h.clear)
	r.Post("/items", h.add)
	r.Delete("/items/{itemType}/{itemID}", h.remove)
	if h.checkout != nil {
		r.Post("/checkout", h.checkout)
	}
	return r
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	candidateID, ok := access.PrincipalID(r)
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "sign in to continue")
		return
	}
	items, err := h.service.List(r.Context(), candidateID)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) add(w http.ResponseWriter, r *http.Request) {
	candidateID, ok := access.PrincipalID(r)
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "sign in to continue")
		return
	}
	var in addItemRequest
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", err.Error())
		return
	}
	if err := h.service.Add(r.Context(), candidateID, in.ItemID, in.ItemType); err != nil {
		h.respondErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	candidateID, ok := access.PrincipalID(r)
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "sign in to continue")
		return
	}
	itemID, err := uuid.Parse(chi.URLParam(r, "itemID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed item id")
		return
	}
	itemType := catalog.ItemType(chi.URLParam(r, "itemType"))
	if err := h.service.Remove(r.Context(), candidateID, itemID, itemType); err != nil {
		h.respondErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) clear(w http.ResponseWriter, r *http.Request) {
	candidateID, ok := access.PrincipalID(r)
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "sign in to continue")
		return
	}
	if err := h.service.Clear(r.Context(), candidateID); err != nil {
		h.respondErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respondErr(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, httpx.ErrNotFound), errors.Is(err, httpx.ErrValidation):
		httpx.RespondError(w, err)
	default:
		h.logger.Error("cart request failed",
			slog.String("path", r.URL.Path),
			slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
