// Package cart holds the per-candidate staging area for catalog items before
// an enrollment request is submitted for them.
package cart

import (
	"time"

	"github.com/google/uuid"

	"github.com/praxis-platform/praxis/internal/catalog"
)

// Item is one staged catalog listing. The cart is a set: adding the same
// item twice is a no-op.
type Item struct {
	CandidateID uuid.UUID        `json:"-"`
	ItemID      uuid.UUID        `json:"item_id"`
	ItemType    catalog.ItemType `json:"item_type"`
	AddedAt     time.Time        `json:"added_at"`
}
