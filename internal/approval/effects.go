package approval

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Effect is the kind-specific side of the state machine. OnSubmit runs in
// the submission transaction, OnAccept and OnReject in the decision
// transaction; returning an error aborts the whole transition and leaves the
// request in its prior state.
type Effect interface {
	OnSubmit(ctx context.Context, tx pgx.Tx, req *Request) error
	OnAccept(ctx context.Context, tx pgx.Tx, req *Request, d Decision) error
	OnReject(ctx context.Context, tx pgx.Tx, req *Request, d Decision) error
}

// Registry maps request kinds to their effects. Kinds without a registered
// effect cannot be submitted.
type Registry struct {
	effects map[Kind]Effect
}

func NewRegistry() *Registry {
	return &Registry{effects: make(map[Kind]Effect)}
}

func (r *Registry) Register(k Kind, e Effect) {
	r.effects[k] = e
}

func (r *Registry) effect(k Kind) (Effect, error) {
	e, ok := r.effects[k]
	if !ok {
		return nil, fmt.Errorf("approval: no effect registered for kind %q", k)
	}
	return e, nil
}

// NoopEffect satisfies Effect with no side behavior. Useful for kinds whose
// consequences are applied elsewhere, and for tests.
type NoopEffect struct{}

func (NoopEffect) OnSubmit(context.Context, pgx.Tx, *Request) error           { return nil }
func (NoopEffect) OnAccept(context.Context, pgx.Tx, *Request, Decision) error { return nil }
func (NoopEffect) OnReject(context.Context, pgx.Tx, *Request, Decision) error { return nil }
