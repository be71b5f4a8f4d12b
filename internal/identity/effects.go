package identity

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/praxis-platform/praxis/internal/access"
	"github.com/praxis-platform/praxis/internal/approval"
	"github.com/praxis-platform/praxis/internal/permissions"
	"github.com/praxis-platform/praxis/internal/platform/httpx"
)

// ManagerAccountEffect promotes a candidate to manager when the request is
// accepted. The reviewer's permission set is authoritative; whatever the
// requester asked for is ignored.
type ManagerAccountEffect struct {
	approval.NoopEffect
	Repo Repository
}

func (e ManagerAccountEffect) OnSubmit(ctx context.Context, _ pgx.Tx, req *approval.Request) error {
	p, err := e.Repo.Get(ctx, req.SubjectID)
	if err != nil {
		return err
	}
	if p.Role != access.RoleCandidate {
		return fmt.Errorf("%w: principal is already a %s", httpx.ErrConflict, p.Role)
	}
	return nil
}

func (e ManagerAccountEffect) OnAccept(ctx context.Context, tx pgx.Tx, req *approval.Request, d approval.Decision) error {
	if d.Permissions == nil {
		return fmt.Errorf("%w: accepting a manager account request requires a permission set", httpx.ErrValidation)
	}
	return e.Repo.Promote(ctx, tx, req.SubjectID, access.RoleManager, *d.Permissions, nil)
}

// ServiceProviderEffect promotes a candidate to service provider on accept,
// storing the submitted profile on the principal. Providers carry no
// capability set.
type ServiceProviderEffect struct {
	approval.NoopEffect
	Repo Repository
}

func (e ServiceProviderEffect) OnSubmit(ctx context.Context, _ pgx.Tx, req *approval.Request) error {
	p, err := e.Repo.Get(ctx, req.SubjectID)
	if err != nil {
		return err
	}
	if p.Role != access.RoleCandidate {
		return fmt.Errorf("%w: principal is already a %s", httpx.ErrConflict, p.Role)
	}
	return nil
}

func (e ServiceProviderEffect) OnAccept(ctx context.Context, tx pgx.Tx, req *approval.Request, _ approval.Decision) error {
	return e.Repo.Promote(ctx, tx, req.SubjectID, access.RoleServiceProvider, permissions.New(), req.Payload)
}
