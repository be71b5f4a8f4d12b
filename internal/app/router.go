package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/praxis-platform/praxis/internal/access"
	"github.com/praxis-platform/praxis/internal/approval"
	"github.com/praxis-platform/praxis/internal/cart"
	"github.com/praxis-platform/praxis/internal/catalog"
	"github.com/praxis-platform/praxis/internal/enrollment"
	"github.com/praxis-platform/praxis/internal/evidence"
	"github.com/praxis-platform/praxis/internal/identity"
	"github.com/praxis-platform/praxis/internal/shared"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	SessionManager    *shared.SessionManager
	AccessMiddleware  access.Middleware
	IdentityHandler   *identity.Handler
	ApprovalHandler   *approval.Handler
	CatalogHandler    *catalog.Handler
	CartHandler       *cart.Handler
	EnrollmentHandler *enrollment.Handler
	EvidenceHandler   *evidence.Handler
}

// NewRouter constructs the chi.Router with platform defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	mw := params.AccessMiddleware
	r.Mount("/auth", params.IdentityHandler.AuthRoutes(mw))
	r.Mount("/principals", params.IdentityHandler.PrincipalRoutes(mw))
	r.Mount("/approvals", params.ApprovalHandler.Routes(mw))
	r.Mount("/catalog", params.CatalogHandler.Routes())
	r.Mount("/cart", params.CartHandler.Routes(mw))
	r.Mount("/enrollments", params.EnrollmentHandler.Routes(mw))
	if params.EvidenceHandler != nil {
		r.Mount("/evidence", params.EvidenceHandler.Routes(mw))
	}

	return r
}
