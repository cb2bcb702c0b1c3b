package domain

import "time"

type CaseStatus string

const (
	StatusOpen              CaseStatus = "OPEN"
	StatusPendingAcceptance CaseStatus = "PENDING_ACCEPTANCE"
	StatusInProgress        CaseStatus = "IN_PROGRESS"
	StatusPendingReview     CaseStatus = "PENDING_REVIEW"
	StatusCompleted         CaseStatus = "COMPLETED"
	StatusClosed            CaseStatus = "CLOSED"
	StatusArchived          CaseStatus = "ARCHIVED"
)

// IsTerminal reports whether no further business transition can leave the status.
// Archival of a completed case is the single administrative exception, handled by
// the transition table.
func (s CaseStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusClosed, StatusArchived:
		return true
	}
	return false
}

// RequiresAssignee reports whether the status is only valid with an assignee set.
func (s CaseStatus) RequiresAssignee() bool {
	switch s {
	case StatusPendingAcceptance, StatusInProgress, StatusPendingReview:
		return true
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

type Case struct {
	ID          CaseID     `gorm:"type:uuid;primaryKey" db:"id" json:"id"`
	Title       string     `gorm:"type:text;not null" db:"title" json:"title"`
	Description string     `gorm:"type:text" db:"description" json:"description"`
	Status      CaseStatus `gorm:"type:text;not null;index" db:"status" json:"status"`
	Priority    Priority   `gorm:"type:text;not null;default:'MEDIUM'" db:"priority" json:"priority"`
	CreatorID   UserID     `gorm:"type:uuid;not null;index" db:"creator_id" json:"creatorId"`
	AssigneeID  *UserID    `gorm:"type:uuid;index:idx_cases_assignee_status,priority:1" db:"assignee_id" json:"assigneeId"`
	Metadata    []byte     `gorm:"type:jsonb" db:"metadata" json:"metadata,omitempty"` // opaque to the workflow
	CreatedAt   time.Time  `gorm:"not null" db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time  `gorm:"not null;index:idx_cases_assignee_status,priority:2" db:"updated_at" json:"updatedAt"`
	CompletedAt *time.Time `gorm:"type:timestamptz" db:"completed_at" json:"completedAt,omitempty"`
	ClosedAt    *time.Time `gorm:"type:timestamptz" db:"closed_at" json:"closedAt,omitempty"`
}

func (Case) TableName() string { return "cases" }
