package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/praxis-platform/praxis/internal/access"
	"github.com/praxis-platform/praxis/internal/permissions"
	"github.com/praxis-platform/praxis/internal/platform/httpx"
	"github.com/praxis-platform/praxis/internal/shared"
)

// Service implements account registration, login checks and permission
// edits. Role changes are not handled here; they happen through approval
// effects.
type Service struct {
	repo     Repository
	validate *validator.Validate
	audit    *shared.AuditLogger
	logger   *slog.Logger
}

func NewService(repo Repository, audit *shared.AuditLogger, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		audit:    audit,
		logger:   logger,
	}
}

type registerInput struct {
	Email    string `validate:"required,email,max=255"`
	Password string `validate:"required,min=8,max=128"`
}

// Register creates a candidate principal with no capabilities.
func (s *Service) Register(ctx context.Context, email, password string) (*Principal, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := s.validate.Struct(registerInput{Email: email, Password: password}); err != nil {
		return nil, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("identity: hash password: %w", err)
	}
	p := &Principal{
		ID:          uuid.New(),
		Email:       email,
		Role:        access.RoleCandidate,
		Permissions: permissions.New(),
		CreatedAt:   time.Now().UTC(),
	}
	p.UpdatedAt = p.CreatedAt
	if err := s.repo.Create(ctx, p, string(hash)); err != nil {
		return nil, err
	}
	s.logger.Info("principal registered", slog.String("principal_id", p.ID.String()))
	return p, nil
}

// Authenticate verifies credentials. Unknown email and wrong password are
// indistinguishable to the caller.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*Principal, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	p, hash, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, httpx.ErrNotFound) {
			return nil, shared.ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return p, nil
}

// Get loads a principal by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Principal, error) {
	return s.repo.Get(ctx, id)
}

// EditPermissions replaces a manager's capability set. Only managers carry
// permission sets; targeting any other role returns not found.
func (s *Service) EditPermissions(ctx context.Context, actorID, targetID uuid.UUID, set permissions.Set) (*Principal, error) {
	if err := s.repo.UpdatePermissions(ctx, targetID, set); err != nil {
		return nil, err
	}
	if err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID.String(),
		Action:   "identity.edit_permissions",
		Entity:   "principal",
		EntityID: targetID.String(),
		Meta:     map[string]any{"full_access": set.FullAccess()},
	}); err != nil {
		s.logger.Error("audit record failed", slog.String("principal_id", targetID.String()), slog.Any("error", err))
	}
	return s.repo.Get(ctx, targetID)
}
