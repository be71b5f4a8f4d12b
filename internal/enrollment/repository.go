package enrollment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/praxis-platform/praxis/internal/catalog"
	"github.com/praxis-platform/praxis/internal/platform/httpx"
)

// Repository persists ledger records. Writes accept an optional transaction
// because they run inside approval transitions.
type Repository interface {
	Insert(ctx context.Context, tx pgx.Tx, rec *Record) error
	SetStatusByRequest(ctx context.Context, tx pgx.Tx, requestID uuid.UUID, status Status) error
	Latest(ctx context.Context, candidateID, itemID uuid.UUID, itemType catalog.ItemType) (*Record, error)
	ListForCandidate(ctx context.Context, candidateID uuid.UUID) ([]Record, error)
}

// PGRepository is the PostgreSQL-backed Repository.
type PGRepository struct {
	pool *pgxpool.Pool
}

func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (r *PGRepository) exec(tx pgx.Tx) execer {
	if tx != nil {
		return tx
	}
	return r.pool
}

const recordColumns = `id, candidate_id, item_id, item_type, request_id, status, created_at, updated_at`

func (r *PGRepository) Insert(ctx context.Context, tx pgx.Tx, rec *Record) error {
	const q = `
		INSERT INTO enrollment_records (id, candidate_id, item_id, item_type, request_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`
	_, err := r.exec(tx).Exec(ctx, q,
		rec.ID, rec.CandidateID, rec.ItemID, rec.ItemType, rec.RequestID, rec.Status, rec.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		// 23505 fires on the partial unique index over active records.
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateActive
		}
		return fmt.Errorf("enrollment: insert record: %w", err)
	}
	return nil
}

func (r *PGRepository) SetStatusByRequest(ctx context.Context, tx pgx.Tx, requestID uuid.UUID, status Status) error {
	const q = `UPDATE enrollment_records SET status = $2, updated_at = $3 WHERE request_id = $1`
	tag, err := r.exec(tx).Exec(ctx, q, requestID, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("enrollment: set status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

func (r *PGRepository) Latest(ctx context.Context, candidateID, itemID uuid.UUID, itemType catalog.ItemType) (*Record, error) {
	q := `
		SELECT ` + recordColumns + ` FROM enrollment_records
		WHERE candidate_id = $1 AND item_id = $2 AND item_type = $3
		ORDER BY created_at DESC, id DESC
		LIMIT 1`
	rec, err := scanRecord(r.pool.QueryRow(ctx, q, candidateID, itemID, itemType))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, httpx.ErrNotFound
		}
		return nil, fmt.Errorf("enrollment: latest record: %w", err)
	}
	return rec, nil
}

func (r *PGRepository) ListForCandidate(ctx context.Context, candidateID uuid.UUID) ([]Record, error) {
	q := `
		SELECT ` + recordColumns + ` FROM enrollment_records
		WHERE candidate_id = $1
		ORDER BY created_at DESC, id DESC`
	rows, err := r.pool.Query(ctx, q, candidateID)
	if err != nil {
		return nil, fmt.Errorf("enrollment: list records: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("enrollment: scan record: %w", err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("enrollment: list records: %w", err)
	}
	return out, nil
}

func scanRecord(row pgx.Row) (*Record, error) {
	var rec Record
	err := row.Scan(
		&rec.ID, &rec.CandidateID, &rec.ItemID, &rec.ItemType,
		&rec.RequestID, &rec.Status, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
