package domain

import "time"

// AuditEntry is an immutable record of one action taken against a case. Entries are
// only ever appended; the sole delete path is the cascade when the case itself is
// deleted. Trail order is (created_at, id) ascending.
type AuditEntry struct {
	ID          EntryID    `gorm:"type:uuid;primaryKey" db:"id" json:"id"`
	CaseID      CaseID     `gorm:"type:uuid;not null;index:idx_audit_case_created,priority:1" db:"case_id" json:"caseId"`
	ActorID     UserID     `gorm:"type:uuid;not null" db:"actor_id" json:"actorId"`
	Action      string     `gorm:"type:text;not null" db:"action" json:"action"`
	FromStatus  CaseStatus `gorm:"type:text" db:"from_status" json:"fromStatus"`
	ToStatus    CaseStatus `gorm:"type:text" db:"to_status" json:"toStatus"`
	Description string     `gorm:"type:text" db:"description" json:"description"`
	CreatedAt   time.Time  `gorm:"not null;index:idx_audit_case_created,priority:2" db:"created_at" json:"createdAt"`
}

func (AuditEntry) TableName() string { return "audit_entries" }
