package approval

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/praxis-platform/praxis/internal/platform/db"
	"github.com/praxis-platform/praxis/internal/platform/httpx"
)

// ListFilter narrows and pages a request listing.
type ListFilter struct {
	Kind      *Kind
	Status    *Status
	SubjectID *uuid.UUID
	Limit     int
	Offset    int
}

// Repository persists approval requests. WithTx yields a repository bound to
// a transaction together with the transaction itself, so side effects can
// share the decision's atomicity.
type Repository interface {
	Insert(ctx context.Context, req *Request) error
	Get(ctx context.Context, id uuid.UUID) (*Request, error)
	List(ctx context.Context, f ListFilter) ([]Request, error)
	// Decide flips a pending request to a terminal status. It returns false
	// when the request was already decided, without touching the row.
	Decide(ctx context.Context, id uuid.UUID, status Status, reviewerID uuid.UUID, message *string, decidedAt time.Time) (bool, error)
	WithTx(ctx context.Context, fn func(ctx context.Context, r Repository, tx pgx.Tx) error) error
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGRepository is the PostgreSQL-backed Repository.
type PGRepository struct {
	pool *pgxpool.Pool
	q    querier
}

func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool, q: pool}
}

const requestColumns = `id, kind, subject_id, payload, status, reviewer_id, decision_message, created_at, decided_at`

func (r *PGRepository) Insert(ctx context.Context, req *Request) error {
	const q = `
		INSERT INTO approval_requests (id, kind, subject_id, payload, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.q.Exec(ctx, q, req.ID, req.Kind, req.SubjectID, req.Payload, req.Status, req.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		// 23505 fires on the partial unique index guarding one pending
		// account request per (kind, subject).
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return httpx.ErrDuplicate
		}
		return fmt.Errorf("approval: insert request: %w", err)
	}
	return nil
}

func (r *PGRepository) Get(ctx context.Context, id uuid.UUID) (*Request, error) {
	q := `SELECT ` + requestColumns + ` FROM approval_requests WHERE id = $1`
	req, err := scanRequest(r.q.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, httpx.ErrNotFound
		}
		return nil, fmt.Errorf("approval: get request: %w", err)
	}
	return req, nil
}

func (r *PGRepository) List(ctx context.Context, f ListFilter) ([]Request, error) {
	q := `SELECT ` + requestColumns + ` FROM approval_requests WHERE 1=1`
	args := make([]any, 0, 5)
	if f.Kind != nil {
		args = append(args, *f.Kind)
		q += fmt.Sprintf(" AND kind = $%d", len(args))
	}
	if f.Status != nil {
		args = append(args, *f.Status)
		q += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if f.SubjectID != nil {
		args = append(args, *f.SubjectID)
		q += fmt.Sprintf(" AND subject_id = $%d", len(args))
	}
	q += " ORDER BY created_at DESC, id DESC"
	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	args = append(args, limit)
	q += fmt.Sprintf(" LIMIT $%d", len(args))
	if f.Offset > 0 {
		args = append(args, f.Offset)
		q += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.q.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("approval: list requests: %w", err)
	}
	defer rows.Close()

	out := make([]Request, 0, limit)
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("approval: scan request: %w", err)
		}
		out = append(out, *req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("approval: list requests: %w", err)
	}
	return out, nil
}

func (r *PGRepository) Decide(ctx context.Context, id uuid.UUID, status Status, reviewerID uuid.UUID, message *string, decidedAt time.Time) (bool, error) {
	const q = `
		UPDATE approval_requests
		SET status = $2, reviewer_id = $3, decision_message = $4, decided_at = $5
		WHERE id = $1 AND status = 'pending'`
	tag, err := r.q.Exec(ctx, q, id, status, reviewerID, message, decidedAt)
	if err != nil {
		return false, fmt.Errorf("approval: decide request: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PGRepository) WithTx(ctx context.Context, fn func(ctx context.Context, repo Repository, tx pgx.Tx) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &PGRepository{pool: r.pool, q: tx}, tx)
	})
}

func scanRequest(row pgx.Row) (*Request, error) {
	var req Request
	err := row.Scan(
		&req.ID,
		&req.Kind,
		&req.SubjectID,
		&req.Payload,
		&req.Status,
		&req.ReviewerID,
		&req.DecisionMessage,
		&req.CreatedAt,
		&req.DecidedAt,
	)
	if err != nil {
		return nil, err
	}
	return &req, nil
}
