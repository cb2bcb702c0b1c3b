package store

import (
	"context"

	"casetrack/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AuditStore struct{ db *gorm.DB }

func (s *Store) Audit() *AuditStore { return &AuditStore{db: s.DB} }

// Append writes one immutable trail entry. There is no update path.
func (a *AuditStore) Append(ctx context.Context, e *domain.AuditEntry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return a.db.WithContext(ctx).Create(e).Error
}

func (a *AuditStore) ListByCase(ctx context.Context, caseID domain.CaseID) ([]domain.AuditEntry, error) {
	var out []domain.AuditEntry
	err := a.db.WithContext(ctx).
		Where("case_id = ?", caseID).
		Order("created_at asc, id asc").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteByCase exists solely for the cascade when a case is deleted.
func (a *AuditStore) DeleteByCase(ctx context.Context, caseID domain.CaseID) error {
	return a.db.WithContext(ctx).Delete(&domain.AuditEntry{}, "case_id = ?", caseID).Error
}
