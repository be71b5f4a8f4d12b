// Package approval implements the request/review state machine shared by
// every "submit → human decision" flow on the platform: manager account
// upgrades, course enrollments and service provider registrations.
package approval

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/praxis-platform/praxis/internal/permissions"
)

// Kind tags a request with the flow it belongs to.
type Kind string

const (
	KindManagerAccount         Kind = "manager_account"
	KindCourseEnrollment       Kind = "course_enrollment"
	KindServiceProviderAccount Kind = "service_provider_account"
)

// Valid reports whether k is a known request kind.
func (k Kind) Valid() bool {
	switch k {
	case KindManagerAccount, KindCourseEnrollment, KindServiceProviderAccount:
		return true
	}
	return false
}

// Status is the lifecycle state of a request. Pending is the only
// non-terminal state; accepted and rejected are final.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

// Outcome is the reviewer's verdict.
type Outcome string

const (
	OutcomeAccept Outcome = "accept"
	OutcomeReject Outcome = "reject"
)

// Valid reports whether o is a known outcome.
func (o Outcome) Valid() bool {
	return o == OutcomeAccept || o == OutcomeReject
}

// Request is one auditable unit of work awaiting a binary decision. Requests
// are never deleted; a new submission after rejection creates a fresh row.
type Request struct {
	ID              uuid.UUID       `json:"id"`
	Kind            Kind            `json:"kind"`
	SubjectID       uuid.UUID       `json:"subject_id"`
	Payload         json.RawMessage `json:"payload"`
	Status          Status          `json:"status"`
	ReviewerID      *uuid.UUID      `json:"reviewer_id,omitempty"`
	DecisionMessage *string         `json:"decision_message,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	DecidedAt       *time.Time      `json:"decided_at,omitempty"`
}

// Decision carries everything a reviewer supplies when deciding a request.
// Permissions is honoured only when accepting a manager account request: the
// reviewer, not the requester, fixes the granted capability set.
type Decision struct {
	ReviewerID  uuid.UUID
	Outcome     Outcome
	Message     *string
	Permissions *permissions.Set
}

// ManagerAccountPayload is the kind-specific payload for manager upgrades.
// RequestedPermissions is advisory; the decision's set wins on acceptance.
type ManagerAccountPayload struct {
	Motivation           string           `json:"motivation,omitempty" validate:"max=2000"`
	RequestedPermissions *permissions.Set `json:"requested_permissions,omitempty"`
}

// EnrollmentPayload references the catalog item a candidate wants to join,
// with optional opaque payment evidence for the reviewer.
type EnrollmentPayload struct {
	ItemID             uuid.UUID `json:"item_id" validate:"required"`
	ItemType           string    `json:"item_type" validate:"required,oneof=course internship"`
	PaymentEvidenceRef *string   `json:"payment_evidence_ref,omitempty"`
}

// ServiceProviderPayload is the profile submitted with a provider
// registration request.
type ServiceProviderPayload struct {
	DisplayName string   `json:"display_name" validate:"required,max=120"`
	Bio         string   `json:"bio,omitempty" validate:"max=4000"`
	Services    []string `json:"services,omitempty" validate:"dive,max=120"`
}

// DecisionEvent is the fire-and-forget notification emitted after every
// decision. Delivery failure never affects the decision itself.
type DecisionEvent struct {
	RequestID uuid.UUID `json:"request_id"`
	Kind      Kind      `json:"kind"`
	Outcome   Outcome   `json:"outcome"`
	SubjectID uuid.UUID `json:"subject_id"`
}

// Notifier hands a decision event to the delivery layer.
type Notifier interface {
	DecisionMade(ctx context.Context, event DecisionEvent)
}
