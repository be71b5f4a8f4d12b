package approval

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/praxis-platform/praxis/internal/access"
	"github.com/praxis-platform/praxis/internal/permissions"
	"github.com/praxis-platform/praxis/internal/platform/httpx"
	"github.com/praxis-platform/praxis/internal/shared"
)

var (
	// ErrAlreadyDecided is returned when a decision races another reviewer
	// and loses. The stored decision wins; nothing is overwritten.
	ErrAlreadyDecided = errors.New("approval: request already decided")
	// ErrUnknownKind is returned for submissions naming an unrecognised kind.
	ErrUnknownKind = errors.New("approval: unknown request kind")
)

// AuditRecorder is the slice of shared.AuditLogger the service needs.
type AuditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service drives the request lifecycle: validated submission, capability
// gated decisions, transactional effects and post-commit notification.
type Service struct {
	repo     Repository
	registry *Registry
	grants   access.GrantSource
	validate *validator.Validate
	audit    AuditRecorder
	notifier Notifier
	logger   *slog.Logger
}

func NewService(repo Repository, registry *Registry, grants access.GrantSource, audit AuditRecorder, notifier Notifier, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		registry: registry,
		grants:   grants,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		audit:    audit,
		notifier: notifier,
		logger:   logger,
	}
}

// Submit validates the payload for the kind, persists the request as pending
// and runs the kind's OnSubmit effect in the same transaction. A subject can
// hold only one pending request per account kind; enrollment requests are
// deduplicated per item by the ledger effect instead.
func (s *Service) Submit(ctx context.Context, kind Kind, subjectID uuid.UUID, payload json.RawMessage) (*Request, error) {
	if !kind.Valid() {
		return nil, ErrUnknownKind
	}
	effect, err := s.registry.effect(kind)
	if err != nil {
		return nil, err
	}
	normalized, err := s.validatePayload(kind, payload)
	if err != nil {
		return nil, err
	}

	req := &Request{
		ID:        uuid.New(),
		Kind:      kind,
		SubjectID: subjectID,
		Payload:   normalized,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository, tx pgx.Tx) error {
		if err := repo.Insert(ctx, req); err != nil {
			return err
		}
		return effect.OnSubmit(ctx, tx, req)
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, shared.AuditLog{
		ActorID:  subjectID.String(),
		Action:   "approval.submit",
		Entity:   "approval_request",
		EntityID: req.ID.String(),
		Meta: map[string]any{
			"kind": string(req.Kind),
		},
	})

	s.logger.Info("approval request submitted",
		slog.String("request_id", req.ID.String()),
		slog.String("kind", string(req.Kind)),
		slog.String("subject_id", req.SubjectID.String()))
	return req, nil
}

// Decide applies a reviewer's verdict. The status flip is a compare-and-set
// on the pending state, so concurrent decisions resolve to exactly one
// winner; the loser gets ErrAlreadyDecided. The kind's effect runs in the
// same transaction and a failing effect leaves the request pending.
func (s *Service) Decide(ctx context.Context, id uuid.UUID, d Decision) (*Request, error) {
	if !d.Outcome.Valid() {
		return nil, fmt.Errorf("%w: outcome must be accept or reject", httpx.ErrValidation)
	}

	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeDecision(ctx, current.Kind, d); err != nil {
		return nil, err
	}
	if current.Status != StatusPending {
		return nil, ErrAlreadyDecided
	}

	effect, err := s.registry.effect(current.Kind)
	if err != nil {
		return nil, err
	}

	status := StatusAccepted
	if d.Outcome == OutcomeReject {
		status = StatusRejected
	}
	decidedAt := time.Now().UTC()

	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository, tx pgx.Tx) error {
		won, err := repo.Decide(ctx, id, status, d.ReviewerID, d.Message, decidedAt)
		if err != nil {
			return err
		}
		if !won {
			return ErrAlreadyDecided
		}
		if d.Outcome == OutcomeAccept {
			if err := effect.OnAccept(ctx, tx, current, d); err != nil {
				return fmt.Errorf("%w: %v", httpx.ErrEffectFailed, err)
			}
			return nil
		}
		if err := effect.OnReject(ctx, tx, current, d); err != nil {
			return fmt.Errorf("%w: %v", httpx.ErrEffectFailed, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	current.Status = status
	current.ReviewerID = &d.ReviewerID
	current.DecisionMessage = d.Message
	current.DecidedAt = &decidedAt

	s.recordAudit(ctx, shared.AuditLog{
		ActorID:  d.ReviewerID.String(),
		Action:   "approval." + string(d.Outcome),
		Entity:   "approval_request",
		EntityID: id.String(),
		Meta: map[string]any{
			"kind":       string(current.Kind),
			"subject_id": current.SubjectID.String(),
		},
	})

	if s.notifier != nil {
		s.notifier.DecisionMade(ctx, DecisionEvent{
			RequestID: id,
			Kind:      current.Kind,
			Outcome:   d.Outcome,
			SubjectID: current.SubjectID,
		})
	}
	return current, nil
}

// Get loads a single request. Subjects may read their own requests; anyone
// holding view_all_applications or a decision capability may read all.
func (s *Service) Get(ctx context.Context, id uuid.UUID, viewer access.Grant) (*Request, error) {
	req, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.SubjectID != viewer.PrincipalID && !canView(viewer) {
		return nil, httpx.ErrForbidden
	}
	return req, nil
}

// List returns requests matching the filter, newest first. Viewers without a
// review capability are restricted to their own submissions.
func (s *Service) List(ctx context.Context, f ListFilter, viewer access.Grant) ([]Request, error) {
	if !canView(viewer) {
		f.SubjectID = &viewer.PrincipalID
	}
	return s.repo.List(ctx, f)
}

func (s *Service) recordAudit(ctx context.Context, log shared.AuditLog) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, log); err != nil {
		s.logger.Error("audit record failed", slog.String("entity_id", log.EntityID), slog.Any("error", err))
	}
}

func (s *Service) authorizeDecision(ctx context.Context, kind Kind, d Decision) error {
	grant, err := s.grants.GrantFor(ctx, d.ReviewerID)
	if err != nil {
		return fmt.Errorf("approval: load reviewer grant: %w", err)
	}
	switch kind {
	case KindManagerAccount, KindServiceProviderAccount:
		// Account-level grants reshape who can act at all, so only full
		// access reviewers may decide them.
		if !access.RequireFullAccess(grant) {
			return fmt.Errorf("%w: requires full access", httpx.ErrForbidden)
		}
	default:
		required := permissions.ApproveApplications
		if d.Outcome == OutcomeReject {
			required = permissions.RejectApplications
		}
		if !access.CanAct(grant, required) {
			return fmt.Errorf("%w: requires %s", httpx.ErrForbidden, required)
		}
	}
	if kind == KindManagerAccount && d.Outcome == OutcomeAccept && d.Permissions == nil {
		return fmt.Errorf("%w: accepting a manager account request requires a permission set", httpx.ErrValidation)
	}
	return nil
}

func (s *Service) validatePayload(kind Kind, payload json.RawMessage) (json.RawMessage, error) {
	var target any
	switch kind {
	case KindManagerAccount:
		target = &ManagerAccountPayload{}
	case KindCourseEnrollment:
		target = &EnrollmentPayload{}
	case KindServiceProviderAccount:
		target = &ServiceProviderPayload{}
	default:
		return nil, ErrUnknownKind
	}
	if len(payload) == 0 {
		payload = json.RawMessage(`{}`)
	}
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		return nil, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	if err := s.validate.Struct(target); err != nil {
		return nil, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	normalized, err := json.Marshal(target)
	if err != nil {
		return nil, fmt.Errorf("approval: normalize payload: %w", err)
	}
	return normalized, nil
}

func canView(g access.Grant) bool {
	return access.RequireAny(g,
		permissions.ViewAllApplications,
		permissions.ApproveApplications,
		permissions.RejectApplications,
	)
}
