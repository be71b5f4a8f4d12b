package enrollment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/praxis-platform/praxis/internal/approval"
	"github.com/praxis-platform/praxis/internal/cart"
	"github.com/praxis-platform/praxis/internal/catalog"
)

// Submitter is the slice of the approval service checkout needs.
type Submitter interface {
	Submit(ctx context.Context, kind approval.Kind, subjectID uuid.UUID, payload json.RawMessage) (*approval.Request, error)
}

// CheckoutResult reports the outcome of one cart item's submission. Checkout
// is best effort: one item failing never rolls back the others.
type CheckoutResult struct {
	ItemID    uuid.UUID        `json:"item_id"`
	ItemType  catalog.ItemType `json:"item_type"`
	RequestID *uuid.UUID       `json:"request_id,omitempty"`
	Error     string           `json:"error,omitempty"`
}

// Service reads the ledger and drives cart checkout.
type Service struct {
	repo      Repository
	cart      cart.Repository
	submitter Submitter
	logger    *slog.Logger
}

func NewService(repo Repository, cartRepo cart.Repository, submitter Submitter, logger *slog.Logger) *Service {
	return &Service{repo: repo, cart: cartRepo, submitter: submitter, logger: logger}
}

// Checkout submits one enrollment request per staged cart item, a few at a
// time. The optional payment evidence reference is attached to every item's
// payload. Items whose submission succeeds stay staged until acceptance
// clears them; failed items stay staged so the candidate can retry.
func (s *Service) Checkout(ctx context.Context, candidateID uuid.UUID, evidenceRef *string) ([]CheckoutResult, error) {
	items, err := s.cart.List(ctx, candidateID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: cart is empty", ErrEmptyCart)
	}

	results := make([]CheckoutResult, len(items))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			results[i] = s.submitItem(ctx, candidateID, item, evidenceRef)
			return nil
		})
	}
	_ = g.Wait()
	return results, nil
}

func (s *Service) submitItem(ctx context.Context, candidateID uuid.UUID, item cart.Item, evidenceRef *string) CheckoutResult {
	res := CheckoutResult{ItemID: item.ItemID, ItemType: item.ItemType}
	payload, err := json.Marshal(approval.EnrollmentPayload{
		ItemID:             item.ItemID,
		ItemType:           string(item.ItemType),
		PaymentEvidenceRef: evidenceRef,
	})
	if err != nil {
		res.Error = "could not encode enrollment payload"
		return res
	}
	req, err := s.submitter.Submit(ctx, approval.KindCourseEnrollment, candidateID, payload)
	if err != nil {
		if errors.Is(err, ErrDuplicateActive) {
			res.Error = "an active enrollment for this item already exists"
		} else {
			s.logger.Error("checkout item failed",
				slog.String("candidate_id", candidateID.String()),
				slog.String("item_id", item.ItemID.String()),
				slog.Any("error", err))
			res.Error = "submission failed"
		}
		return res
	}
	id := req.ID
	res.RequestID = &id
	return res
}

// StatusFor returns the candidate's latest ledger record for an item.
func (s *Service) StatusFor(ctx context.Context, candidateID, itemID uuid.UUID, itemType catalog.ItemType) (*Record, error) {
	return s.repo.Latest(ctx, candidateID, itemID, itemType)
}

// List returns the candidate's full ledger, newest first.
func (s *Service) List(ctx context.Context, candidateID uuid.UUID) ([]Record, error) {
	return s.repo.ListForCandidate(ctx, candidateID)
}
