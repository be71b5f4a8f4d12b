package cart

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/praxis-platform/praxis/internal/catalog"
	"github.com/praxis-platform/praxis/internal/platform/httpx"
)

// Service guards cart writes with catalog preflights.
type Service struct {
	repo    Repository
	catalog catalog.Repository
}

func NewService(repo Repository, cat catalog.Repository) *Service {
	return &Service{repo: repo, catalog: cat}
}

// Add stages an active catalog item. Staging the same item again is a no-op.
func (s *Service) Add(ctx context.Context, candidateID, itemID uuid.UUID, itemType catalog.ItemType) error {
	if !itemType.Valid() {
		return fmt.Errorf("%w: unknown item type %q", httpx.ErrValidation, itemType)
	}
	ok, err := s.catalog.ActiveExists(ctx, itemID, itemType)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: no active %s with that id", httpx.ErrNotFound, itemType)
	}
	return s.repo.Add(ctx, Item{
		CandidateID: candidateID,
		ItemID:      itemID,
		ItemType:    itemType,
		AddedAt:     time.Now().UTC(),
	})
}

// Remove drops a staged item, tolerating absence.
func (s *Service) Remove(ctx context.Context, candidateID, itemID uuid.UUID, itemType catalog.ItemType) error {
	if !itemType.Valid() {
		return fmt.Errorf("%w: unknown item type %q", httpx.ErrValidation, itemType)
	}
	return s.repo.Remove(ctx, nil, candidateID, itemID, itemType)
}

// Clear empties the candidate's cart.
func (s *Service) Clear(ctx context.Context, candidateID uuid.UUID) error {
	return s.repo.Clear(ctx, candidateID)
}

// List returns the candidate's staged items, oldest first.
func (s *Service) List(ctx context.Context, candidateID uuid.UUID) ([]Item, error) {
	return s.repo.List(ctx, candidateID)
}
