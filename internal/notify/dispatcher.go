// Package notify turns approval decisions into queued notification tasks.
// Dispatch is fire and forget: a queue outage is logged and swallowed so it
// can never fail or roll back a decision.
package notify

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/praxis-platform/praxis/internal/approval"
	"github.com/praxis-platform/praxis/jobs"
)

// Enqueuer is the slice of jobs.Client the dispatcher needs.
type Enqueuer interface {
	EnqueueDecisionEmail(ctx context.Context, payload jobs.DecisionEmailPayload) (*asynq.TaskInfo, error)
}

// Dispatcher implements approval.Notifier on top of the jobs queue.
type Dispatcher struct {
	client Enqueuer
	logger *slog.Logger
}

func NewDispatcher(client Enqueuer, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{client: client, logger: logger}
}

// DecisionMade enqueues the decision email.
func (d *Dispatcher) DecisionMade(ctx context.Context, ev approval.DecisionEvent) {
	if d.client == nil {
		return
	}
	_, err := d.client.EnqueueDecisionEmail(ctx, jobs.DecisionEmailPayload{
		RequestID: ev.RequestID,
		Kind:      string(ev.Kind),
		Outcome:   string(ev.Outcome),
		SubjectID: ev.SubjectID,
	})
	if err != nil {
		d.logger.Error("enqueue decision email",
			slog.String("request_id", ev.RequestID.String()),
			slog.Any("error", err))
	}
}
