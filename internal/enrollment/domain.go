// Package enrollment keeps the ledger of a candidate's enrollment attempts
// and outcomes, one record per submitted request. At most one record per
// (candidate, item) may be active, where active means pending or accepted.
package enrollment

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/praxis-platform/praxis/internal/catalog"
	"github.com/praxis-platform/praxis/internal/platform/httpx"
)

// Status mirrors the lifecycle of the backing approval request.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

// ErrDuplicateActive is returned when a candidate already has a pending or
// accepted enrollment for the item. Rejected records never block a retry.
var ErrDuplicateActive = fmt.Errorf("%w: an active enrollment for this item already exists", httpx.ErrConflict)

// ErrEmptyCart is returned when checkout finds nothing staged.
var ErrEmptyCart = fmt.Errorf("%w: nothing to check out", httpx.ErrValidation)

// Record is one ledger entry, tied to the approval request that created it.
type Record struct {
	ID          uuid.UUID        `json:"id"`
	CandidateID uuid.UUID        `json:"candidate_id"`
	ItemID      uuid.UUID        `json:"item_id"`
	ItemType    catalog.ItemType `json:"item_type"`
	RequestID   uuid.UUID        `json:"request_id"`
	Status      Status           `json:"status"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}
