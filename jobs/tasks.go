package jobs

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskDecisionEmail is the task type for decision notification emails.
	TaskDecisionEmail = "notify:decision"
)

// DecisionEmailPayload carries everything the worker needs to tell a subject
// about a decision on their request.
type DecisionEmailPayload struct {
	RequestID uuid.UUID `json:"request_id"`
	Kind      string    `json:"kind"`
	Outcome   string    `json:"outcome"`
	SubjectID uuid.UUID `json:"subject_id"`
}

// NewDecisionEmailTask constructs an Asynq task.
func NewDecisionEmailTask(payload DecisionEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDecisionEmail, data), nil
}
