package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/praxis-platform/praxis/internal/access"
	"github.com/praxis-platform/praxis/internal/permissions"
	"github.com/praxis-platform/praxis/internal/platform/httpx"
)

// Repository persists principals. Promote takes an optional transaction so
// role changes can ride in an approval decision's transaction.
type Repository interface {
	access.GrantSource

	Create(ctx context.Context, p *Principal, passwordHash string) error
	Get(ctx context.Context, id uuid.UUID) (*Principal, error)
	FindByEmail(ctx context.Context, email string) (*Principal, string, error)
	UpdatePermissions(ctx context.Context, id uuid.UUID, set permissions.Set) error
	Promote(ctx context.Context, tx pgx.Tx, id uuid.UUID, role access.Role, set permissions.Set, profile json.RawMessage) error
}

// PGRepository is the PostgreSQL-backed Repository.
type PGRepository struct {
	pool *pgxpool.Pool
}

func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const principalColumns = `id, email, role, permissions, profile, created_at, updated_at`

func (r *PGRepository) Create(ctx context.Context, p *Principal, passwordHash string) error {
	const q = `
		INSERT INTO principals (id, email, password_hash, role, permissions, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)`
	_, err := r.pool.Exec(ctx, q, p.ID, p.Email, passwordHash, p.Role, p.Permissions, p.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return httpx.ErrDuplicate
		}
		return fmt.Errorf("identity: create principal: %w", err)
	}
	return nil
}

func (r *PGRepository) Get(ctx context.Context, id uuid.UUID) (*Principal, error) {
	q := `SELECT ` + principalColumns + ` FROM principals WHERE id = $1`
	p, err := scanPrincipal(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, httpx.ErrNotFound
		}
		return nil, fmt.Errorf("identity: get principal: %w", err)
	}
	return p, nil
}

func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*Principal, string, error) {
	const q = `
		SELECT id, email, role, permissions, profile, created_at, updated_at, password_hash
		FROM principals WHERE email = $1`
	var (
		p    Principal
		hash string
	)
	err := r.pool.QueryRow(ctx, q, email).Scan(
		&p.ID, &p.Email, &p.Role, &p.Permissions, &p.Profile, &p.CreatedAt, &p.UpdatedAt, &hash,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", httpx.ErrNotFound
		}
		return nil, "", fmt.Errorf("identity: find principal by email: %w", err)
	}
	return &p, hash, nil
}

func (r *PGRepository) UpdatePermissions(ctx context.Context, id uuid.UUID, set permissions.Set) error {
	const q = `
		UPDATE principals SET permissions = $2, updated_at = $3
		WHERE id = $1 AND role = 'manager'`
	tag, err := r.pool.Exec(ctx, q, id, set, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("identity: update permissions: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

func (r *PGRepository) Promote(ctx context.Context, tx pgx.Tx, id uuid.UUID, role access.Role, set permissions.Set, profile json.RawMessage) error {
	const q = `
		UPDATE principals SET role = $2, permissions = $3, profile = COALESCE($4, profile), updated_at = $5
		WHERE id = $1`
	var exec interface {
		Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	} = r.pool
	if tx != nil {
		exec = tx
	}
	tag, err := exec.Exec(ctx, q, id, role, set, profile, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("identity: promote principal: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

// GrantFor implements access.GrantSource.
func (r *PGRepository) GrantFor(ctx context.Context, id uuid.UUID) (access.Grant, error) {
	const q = `SELECT id, role, permissions FROM principals WHERE id = $1`
	var g access.Grant
	err := r.pool.QueryRow(ctx, q, id).Scan(&g.PrincipalID, &g.Role, &g.Permissions)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return access.Grant{}, httpx.ErrNotFound
		}
		return access.Grant{}, fmt.Errorf("identity: load grant: %w", err)
	}
	return g, nil
}

func scanPrincipal(row pgx.Row) (*Principal, error) {
	var p Principal
	err := row.Scan(&p.ID, &p.Email, &p.Role, &p.Permissions, &p.Profile, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
