package access

import (
	"net/http"

	"log/slog"

	"github.com/google/uuid"

	"github.com/praxis-platform/praxis/internal/permissions"
	"github.com/praxis-platform/praxis/internal/platform/httpx"
	"github.com/praxis-platform/praxis/internal/shared"
)

// Middleware wires authorization helpers for HTTP handlers.
type Middleware struct {
	Source GrantSource
	Logger *slog.Logger
}

// RequireAuthenticated ensures a principal is attached to the session.
func (m Middleware) RequireAuthenticated() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := m.currentPrincipalID(r); !ok {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "sign in to continue")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireCapability ensures the current principal holds the capability.
func (m Middleware) RequireCapability(c permissions.Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			grant, ok := m.loadGrant(w, r)
			if !ok {
				return
			}
			if !CanAct(grant, c) {
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "missing capability "+string(c))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAny ensures the current principal holds at least one capability.
func (m Middleware) RequireAny(caps ...permissions.Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(caps) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			grant, ok := m.loadGrant(w, r)
			if !ok {
				return
			}
			if !RequireAny(grant, caps...) {
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "none of the required capabilities are granted")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireFullAccess ensures the current principal is a full-access manager.
func (m Middleware) RequireFullAccess() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			grant, ok := m.loadGrant(w, r)
			if !ok {
				return
			}
			if !RequireFullAccess(grant) {
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "full access is required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m Middleware) loadGrant(w http.ResponseWriter, r *http.Request) (Grant, bool) {
	id, ok := m.currentPrincipalID(r)
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "sign in to continue")
		return Grant{}, false
	}
	grant, err := m.Source.GrantFor(r.Context(), id)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Error("load grant", slog.Any("error", err))
		}
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return Grant{}, false
	}
	return grant, true
}

func (m Middleware) currentPrincipalID(r *http.Request) (uuid.UUID, bool) {
	id, ok := PrincipalID(r)
	if !ok && m.Logger != nil {
		if sess := shared.SessionFromContext(r.Context()); sess != nil && sess.User() != "" {
			m.Logger.Error("parse principal id", slog.String("value", sess.User()))
		}
	}
	return id, ok
}

// PrincipalID extracts the signed-in principal's id from the request session.
func PrincipalID(r *http.Request) (uuid.UUID, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return uuid.Nil, false
	}
	raw := sess.User()
	if raw == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
