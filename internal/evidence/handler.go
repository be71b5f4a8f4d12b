package evidence

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/praxis-platform/praxis/internal/access"
	"github.com/praxis-platform/praxis/internal/permissions"
	"github.com/praxis-platform/praxis/internal/platform/httpx"
)

const maxUploadBytes = 10 << 20

// Handler accepts evidence uploads and serves short-lived download links.
type Handler struct {
	store  *Store
	logger *slog.Logger
}

func NewHandler(store *Store, logger *slog.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

func (h *Handler) Routes(mw access.Middleware) chi.Router {
	r := chi.NewRouter()
	r.Use(mw.RequireAuthenticated())
	r.Post("/", h.upload)
	r.With(mw.RequireAny(
		permissions.ViewAllApplications,
		permissions.ApproveApplications,
		permissions.RejectApplications,
	)).Get("/url", h.downloadURL)
	return r
}

func (h *Handler) upload(w http.ResponseWriter, r *http.Request) {
	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	body := http.MaxBytesReader(w, r.Body, maxUploadBytes)
	ref, err := h.store.Put(r.Context(), body, contentType)
	if err != nil {
		h.logger.Error("evidence upload failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]string{"ref": ref})
}

func (h *Handler) downloadURL(w http.ResponseWriter, r *http.Request) {
	ref := r.URL.Query().Get("ref")
	if !strings.HasPrefix(ref, "evidence/") {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "ref must be an evidence reference")
		return
	}
	url, err := h.store.PresignGet(r.Context(), ref, 15*time.Minute)
	if err != nil {
		h.logger.Error("evidence presign failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"url": url})
}
