package cart

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/praxis-platform/praxis/internal/catalog"
)

// Repository persists cart items. Add and Remove are idempotent; Remove
// accepts an optional transaction so an enrollment acceptance can clear the
// staged item atomically with the decision.
type Repository interface {
	Add(ctx context.Context, item Item) error
	Remove(ctx context.Context, tx pgx.Tx, candidateID, itemID uuid.UUID, itemType catalog.ItemType) error
	Clear(ctx context.Context, candidateID uuid.UUID) error
	List(ctx context.Context, candidateID uuid.UUID) ([]Item, error)
}

// PGRepository is the PostgreSQL-backed Repository.
type PGRepository struct {
	pool *pgxpool.Pool
}

func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func (r *PGRepository) Add(ctx context.Context, item Item) error {
	const q = `
		INSERT INTO cart_items (candidate_id, item_id, item_type, added_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (candidate_id, item_id, item_type) DO NOTHING`
	addedAt := item.AddedAt
	if addedAt.IsZero() {
		addedAt = time.Now().UTC()
	}
	_, err := r.pool.Exec(ctx, q, item.CandidateID, item.ItemID, item.ItemType, addedAt)
	if err != nil {
		return fmt.Errorf("cart: add item: %w", err)
	}
	return nil
}

func (r *PGRepository) Remove(ctx context.Context, tx pgx.Tx, candidateID, itemID uuid.UUID, itemType catalog.ItemType) error {
	const q = `DELETE FROM cart_items WHERE candidate_id = $1 AND item_id = $2 AND item_type = $3`
	var exec interface {
		Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	} = r.pool
	if tx != nil {
		exec = tx
	}
	// Removing an absent item is fine; the cart is a set.
	if _, err := exec.Exec(ctx, q, candidateID, itemID, itemType); err != nil {
		return fmt.Errorf("cart: remove item: %w", err)
	}
	return nil
}

func (r *PGRepository) Clear(ctx context.Context, candidateID uuid.UUID) error {
	const q = `DELETE FROM cart_items WHERE candidate_id = $1`
	if _, err := r.pool.Exec(ctx, q, candidateID); err != nil {
		return fmt.Errorf("cart: clear: %w", err)
	}
	return nil
}

func (r *PGRepository) List(ctx context.Context, candidateID uuid.UUID) ([]Item, error) {
	const q = `
		SELECT candidate_id, item_id, item_type, added_at
		FROM cart_items WHERE candidate_id = $1
		ORDER BY added_at ASC`
	rows, err := r.pool.Query(ctx, q, candidateID)
	if err != nil {
		return nil, fmt.Errorf("cart: list items: %w", err)
	}
	defer rows.Close()

	var out []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.CandidateID, &it.ItemID, &it.ItemType, &it.AddedAt); err != nil {
			return nil, fmt.Errorf("cart: scan item: %w", err)
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("cart: list items: %w", err)
	}
	return out, nil
}
