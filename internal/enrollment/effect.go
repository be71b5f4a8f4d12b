package enrollment

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/praxis-platform/praxis/internal/approval"
	"github.com/praxis-platform/praxis/internal/cart"
	"github.com/praxis-platform/praxis/internal/catalog"
	"github.com/praxis-platform/praxis/internal/platform/httpx"
)

// Effect ties the enrollment ledger to the approval lifecycle. Submission
// writes the pending ledger record in the request's transaction, so a
// duplicate active enrollment aborts the whole submission. Acceptance
// finalizes the record and clears the staged cart item.
type Effect struct {
	Repo    Repository
	Cart    cart.Repository
	Catalog catalog.Repository
}

func (e Effect) OnSubmit(ctx context.Context, tx pgx.Tx, req *approval.Request) error {
	payload, err := decodePayload(req)
	if err != nil {
		return err
	}
	itemType := catalog.ItemType(payload.ItemType)
	ok, err := e.Catalog.ActiveExists(ctx, payload.ItemID, itemType)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: no active %s with that id", httpx.ErrValidation, itemType)
	}
	now := time.Now().UTC()
	return e.Repo.Insert(ctx, tx, &Record{
		ID:          uuid.New(),
		CandidateID: req.SubjectID,
		ItemID:      payload.ItemID,
		ItemType:    itemType,
		RequestID:   req.ID,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

func (e Effect) OnAccept(ctx context.Context, tx pgx.Tx, req *approval.Request, _ approval.Decision) error {
	payload, err := decodePayload(req)
	if err != nil {
		return err
	}
	if err := e.Repo.SetStatusByRequest(ctx, tx, req.ID, StatusAccepted); err != nil {
		return err
	}
	return e.Cart.Remove(ctx, tx, req.SubjectID, payload.ItemID, catalog.ItemType(payload.ItemType))
}

func (e Effect) OnReject(ctx context.Context, tx pgx.Tx, req *approval.Request, _ approval.Decision) error {
	return e.Repo.SetStatusByRequest(ctx, tx, req.ID, StatusRejected)
}

func decodePayload(req *approval.Request) (*approval.EnrollmentPayload, error) {
	var p approval.EnrollmentPayload
	if err := json.Unmarshal(req.Payload, &p); err != nil {
		return nil, fmt.Errorf("enrollment: decode request payload: %w", err)
	}
	return &p, nil
}
