// Package identity manages principals: registration, authentication and the
// capability grants attached to manager accounts.
package identity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/praxis-platform/praxis/internal/access"
	"github.com/praxis-platform/praxis/internal/permissions"
)

// Principal is an account on the platform. Everyone starts as a candidate;
// roles only change through an accepted approval request. Profile holds the
// provider profile for service providers and is empty otherwise.
type Principal struct {
	ID          uuid.UUID       `json:"id"`
	Email       string          `json:"email"`
	Role        access.Role     `json:"role"`
	Permissions permissions.Set `json:"permissions"`
	Profile     json.RawMessage `json:"profile,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Grant is the principal's authorization view.
func (p *Principal) Grant() access.Grant {
	return access.Grant{
		PrincipalID: p.ID,
		Role:        p.Role,
		Permissions: p.Permissions,
	}
}
