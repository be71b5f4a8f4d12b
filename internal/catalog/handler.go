package catalog

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/praxis-platform/praxis/internal/platform/httpx"
)

// Handler serves the public catalog reads.
type Handler struct {
	repo   Repository
	logger *slog.Logger
}

func NewHandler(repo Repository, logger *slog.Logger) *Handler {
	return &Handler{repo: repo, logger: logger}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	return r
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	var filter *ItemType
	if v := r.URL.Query().Get("type"); v != "" {
		t := ItemType(v)
		if !t.Valid() {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "unknown item type "+v)
			return
		}
		filter = &t
	}
	items, err := h.repo.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("list catalog items", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed item id")
		return
	}
	item, err := h.repo.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, httpx.ErrNotFound) {
			httpx.RespondError(w, err)
			return
		}
		h.logger.Error("get catalog item", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}
