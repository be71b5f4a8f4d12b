package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/praxis-platform/praxis/internal/platform/httpx"
)

// Repository reads catalog items.
type Repository interface {
	Get(ctx context.Context, id uuid.UUID) (*Item, error)
	List(ctx context.Context, t *ItemType) ([]Item, error)
	// ActiveExists reports whether an active item with the given id and type
	// exists. Used as an enrollment preflight.
	ActiveExists(ctx context.Context, id uuid.UUID, t ItemType) (bool, error)
}

// PGRepository is the PostgreSQL-backed Repository.
type PGRepository struct {
	pool *pgxpool.Pool
}

func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const itemColumns = `id, item_type, title, description, price_cents, active, created_at`

func (r *PGRepository) Get(ctx context.Context, id uuid.UUID) (*Item, error) {
	q := `SELECT ` + itemColumns + ` FROM catalog_items WHERE id = $1`
	var it Item
	err := r.pool.QueryRow(ctx, q, id).Scan(
		&it.ID, &it.Type, &it.Title, &it.Description, &it.PriceCents, &it.Active, &it.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, httpx.ErrNotFound
		}
		return nil, fmt.Errorf("catalog: get item: %w", err)
	}
	return &it, nil
}

func (r *PGRepository) List(ctx context.Context, t *ItemType) ([]Item, error) {
	q := `SELECT ` + itemColumns + ` FROM catalog_items WHERE active`
	args := []any{}
	if t != nil {
		args = append(args, *t)
		q += " AND item_type = $1"
	}
	q += " ORDER BY created_at DESC, id DESC"

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("catalog: list items: %w", err)
	}
	defer rows.Close()

	var out []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.Type, &it.Title, &it.Description, &it.PriceCents, &it.Active, &it.CreatedAt); err != nil {
			return nil, fmt.Errorf("catalog: scan item: %w", err)
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: list items: %w", err)
	}
	return out, nil
}

func (r *PGRepository) ActiveExists(ctx context.Context, id uuid.UUID, t ItemType) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM catalog_items WHERE id = $1 AND item_type = $2 AND active)`
	var ok bool
	if err := r.pool.QueryRow(ctx, q, id, t).Scan(&ok); err != nil {
		return false, fmt.Errorf("catalog: item exists: %w", err)
	}
	return ok, nil
}
