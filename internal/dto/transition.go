package dto

import "time"

type TransitionRequest struct {
	Action     string `json:"action"`
	AssigneeID string `json:"assigneeId,omitempty"` // assign only
	Comment    string `json:"comment,omitempty"`
}

type AuditEntryResponse struct {
	ID          string    `json:"id"`
	CaseID      string    `json:"caseId"`
	ActorID     string    `json:"actorId"`
	Action      string    `json:"action"`
	FromStatus  string    `json:"fromStatus,omitempty"`
	ToStatus    string    `json:"toStatus,omitempty"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

type AuditTrailResponse struct {
	Entries []AuditEntryResponse `json:"entries"`
}
