// Package catalog is the read side of the course and internship listings.
// Listings are managed out of band; this package only serves lookups and the
// existence checks other flows need.
package catalog

import (
	"time"

	"github.com/google/uuid"
)

// ItemType distinguishes the two enrollable listing kinds.
type ItemType string

const (
	ItemTypeCourse     ItemType = "course"
	ItemTypeInternship ItemType = "internship"
)

// Valid reports whether t is a known item type.
func (t ItemType) Valid() bool {
	return t == ItemTypeCourse || t == ItemTypeInternship
}

// Item is one enrollable listing. Inactive items stay readable but cannot be
// enrolled into.
type Item struct {
	ID          uuid.UUID `json:"id"`
	Type        ItemType  `json:"type"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	PriceCents  int64     `json:"price_cents"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}
