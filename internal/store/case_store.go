package store

import (
	"context"
	"time"

	"casetrack/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CaseStore struct{ db *gorm.DB }

func (s *Store) Cases() *CaseStore { return &CaseStore{db: s.DB} }

func (c *CaseStore) Create(ctx context.Context, cs *domain.Case) error {
	if cs.ID == uuid.Nil {
		cs.ID = uuid.New()
	}
	return c.db.WithContext(ctx).Create(cs).Error
}

func (c *CaseStore) GetByID(ctx context.Context, id domain.CaseID) (*domain.Case, error) {
	var cs domain.Case
	if err := c.db.WithContext(ctx).First(&cs, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &cs, nil
}

// GetByIDForUpdate locks the case row for the rest of the transaction. On
// dialects without FOR UPDATE it degrades to a plain read.
func (c *CaseStore) GetByIDForUpdate(ctx context.Context, id domain.CaseID) (*domain.Case, error) {
	var cs domain.Case
	if err := forUpdate(c.db.WithContext(ctx)).First(&cs, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &cs, nil
}

type CaseFilter struct {
	Status     *domain.CaseStatus
	AssigneeID *domain.UserID
	CreatorID  *domain.UserID
	Limit      int
}

func (c *CaseStore) List(ctx context.Context, f CaseFilter) ([]domain.Case, error) {
	tx := c.db.WithContext(ctx).Order("created_at asc, id asc")
	if f.Status != nil {
		tx = tx.Where("status = ?", *f.Status)
	}
	if f.AssigneeID != nil {
		tx = tx.Where("assignee_id = ?", *f.AssigneeID)
	}
	if f.CreatorID != nil {
		tx = tx.Where("creator_id = ?", *f.CreatorID)
	}
	if f.Limit > 0 {
		tx = tx.Limit(f.Limit)
	}
	var out []domain.Case
	if err := tx.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ApplyTransition persists the workflow fields of cs guarded by the updated_at
// value observed at read time. Zero matched rows means a concurrent writer got
// there first; the caller re-reads and re-evaluates.
func (c *CaseStore) ApplyTransition(ctx context.Context, cs *domain.Case, prevUpdatedAt time.Time) error {
	res := c.db.WithContext(ctx).Model(&domain.Case{}).
		Where("id = ? AND updated_at = ?", cs.ID, prevUpdatedAt).
		Updates(map[string]any{
			"status":       cs.Status,
			"assignee_id":  cs.AssigneeID,
			"completed_at": cs.CompletedAt,
			"closed_at":    cs.ClosedAt,
			"updated_at":   cs.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleRecord
	}
	return nil
}

// UpdateDetails touches the non-workflow fields only; status, assignee and the
// lifecycle timestamps are ApplyTransition's territory.
func (c *CaseStore) UpdateDetails(ctx context.Context, cs *domain.Case) error {
	res := c.db.WithContext(ctx).Model(&domain.Case{}).
		Where("id = ?", cs.ID).
		Updates(map[string]any{
			"title":       cs.Title,
			"description": cs.Description,
			"priority":    cs.Priority,
			"metadata":    cs.Metadata,
			"updated_at":  cs.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (c *CaseStore) Delete(ctx context.Context, id domain.CaseID) error {
	res := c.db.WithContext(ctx).Delete(&domain.Case{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// CountForAssigneeInStatuses is the workload counter: how many cases the user
// currently holds in any of the given statuses. Always called inside the same
// transaction as the write it guards; never cached.
func (c *CaseStore) CountForAssigneeInStatuses(ctx context.Context, userID domain.UserID, statuses []domain.CaseStatus) (int, error) {
	var n int64
	err := c.db.WithContext(ctx).Model(&domain.Case{}).
		Where("assignee_id = ? AND status IN ?", userID, statuses).
		Count(&n).Error
	return int(n), err
}

// ActiveStatuses are the statuses that count against a caseworker's workload.
func ActiveStatuses() []domain.CaseStatus {
	return []domain.CaseStatus{domain.StatusPendingAcceptance, domain.StatusInProgress}
}

// CountActiveForUser counts the user's assigned-or-accepted cases.
func (c *CaseStore) CountActiveForUser(ctx context.Context, userID domain.UserID) (int, error) {
	return c.CountForAssigneeInStatuses(ctx, userID, ActiveStatuses())
}
