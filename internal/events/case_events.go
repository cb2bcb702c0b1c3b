package events

import (
	"time"

	"casetrack/internal/domain"
)

// TransitionEvent describes one committed case transition for downstream
// consumers (notification delivery, webhooks). It is emitted after the
// transaction commits and carries everything a renderer needs.
type TransitionEvent struct {
	CaseID     domain.CaseID     `json:"caseId"`
	Title      string            `json:"title"`
	Action     string            `json:"action"`
	FromStatus domain.CaseStatus `json:"fromStatus"`
	ToStatus   domain.CaseStatus `json:"toStatus"`
	ActorID    domain.UserID     `json:"actorId"`
	Comment    string            `json:"comment,omitempty"`
	Recipients []domain.UserID   `json:"recipients"`
	At         time.Time         `json:"at"`
}
