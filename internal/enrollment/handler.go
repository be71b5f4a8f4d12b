package enrollment

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/praxis-platform/praxis/internal/access"
	"github.com/praxis-platform/praxis/internal/catalog"
	"github.com/praxis-platform/praxis/internal/platform/httpx"
)

// Handler exposes the candidate's ledger. Checkout is exported separately so
// the cart routes can mount it under /cart/checkout.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Routes(mw access.Middleware) chi.Router {
	r := chi.NewRouter()
	r.Use(mw.RequireAuthenticated())
	r.Get("/", h.list)
	r.Get("/status", h.status)
	return r
}

type checkoutRequest struct {
	EvidenceRef *string `json:"evidence_ref"`
}

// Checkout handles POST /cart/checkout. The body is optional; when present
// it may carry a payment evidence reference attached to every submission.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	candidateID, ok := access.PrincipalID(r)
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "sign in to continue")
		return
	}
	var body checkoutRequest
	if err := httpx.DecodeJSON(r, &body); err != nil && !errors.Is(err, io.EOF) {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	results, err := h.service.Checkout(r.Context(), candidateID, body.EvidenceRef)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"results": results})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	candidateID, ok := access.PrincipalID(r)
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "sign in to continue")
		return
	}
	records, err := h.service.List(r.Context(), candidateID)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"records": records})
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	candidateID, ok := access.PrincipalID(r)
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "sign in to continue")
		return
	}
	itemID, err := uuid.Parse(r.URL.Query().Get("item_id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "item_id must be a uuid")
		return
	}
	itemType := catalog.ItemType(r.URL.Query().Get("item_type"))
	if !itemType.Valid() {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "item_type must be course or internship")
		return
	}
	rec, err := h.service.StatusFor(r.Context(), candidateID, itemID, itemType)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}

func (h *Handler) respondErr(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, httpx.ErrNotFound),
		errors.Is(err, httpx.ErrValidation),
		errors.Is(err, httpx.ErrConflict):
		httpx.RespondError(w, err)
	default:
		h.logger.Error("enrollment request failed",
			slog.String("path", r.URL.Path),
			slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
