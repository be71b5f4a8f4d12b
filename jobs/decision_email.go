package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/praxis-platform/praxis/internal/email"
	"github.com/praxis-platform/praxis/internal/identity"
	"github.com/praxis-platform/praxis/internal/platform/httpx"
)

// DecisionEmailJob delivers decision notifications to request subjects.
type DecisionEmailJob struct {
	Principals identity.Repository
	Sender     email.Sender
	Logger     *slog.Logger
}

func NewDecisionEmailJob(principals identity.Repository, sender email.Sender, logger *slog.Logger) *DecisionEmailJob {
	return &DecisionEmailJob{Principals: principals, Sender: sender, Logger: logger}
}

// Handle executes one decision email delivery.
func (j *DecisionEmailJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Sender == nil {
		return errors.New("decision email: handler not configured")
	}
	var payload DecisionEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	p, err := j.Principals.Get(ctx, payload.SubjectID)
	if err != nil {
		// A deleted principal makes the task permanently undeliverable.
		if errors.Is(err, httpx.ErrNotFound) {
			return asynq.SkipRetry
		}
		return err
	}

	subject, body := composeDecisionEmail(payload)
	if err := j.Sender.Send(ctx, p.Email, subject, body); err != nil {
		return err
	}
	j.logger().Info("decision email sent",
		slog.String("request_id", payload.RequestID.String()),
		slog.String("outcome", payload.Outcome))
	return nil
}

func (j *DecisionEmailJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskDecisionEmail))
	}
	return slog.Default().With(slog.String("job", TaskDecisionEmail))
}

func composeDecisionEmail(p DecisionEmailPayload) (subject, body string) {
	what := "your request"
	switch p.Kind {
	case "manager_account":
		what = "your manager account request"
	case "course_enrollment":
		what = "your enrollment request"
	case "service_provider_account":
		what = "your service provider registration"
	}
	if p.Outcome == "accept" {
		subject = "Your request was accepted"
		body = fmt.Sprintf("Good news: %s was accepted.\n\nReference: %s\n", what, p.RequestID)
		return subject, body
	}
	subject = "Your request was rejected"
	body = fmt.Sprintf("Unfortunately %s was rejected.\n\nReference: %s\n", what, p.RequestID)
	return subject, body
}
