package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"casetrack/internal/domain"
	"casetrack/internal/events"
	"casetrack/internal/store"
	"casetrack/internal/workflow"
)

// CaseService covers the non-workflow surface of a case: creation, reads, edits
// to descriptive fields, and deletion. Status and assignee belong to the
// WorkflowService alone.
type CaseService struct {
	store  *store.Store
	events EventSink
	limit  int
	now    func() time.Time
}

func NewCaseService(st *store.Store, sink EventSink, limit int) *CaseService {
	if limit <= 0 {
		limit = workflow.DefaultWorkloadLimit
	}
	return &CaseService{store: st, events: sink, limit: limit, now: time.Now}
}

type CreateCaseInput struct {
	Title       string
	Description string
	Priority    domain.Priority
	Metadata    []byte
}

func (s *CaseService) Create(ctx context.Context, actor Actor, in CreateCaseInput) (*domain.Case, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title required", domain.ErrInvalidRequest)
	}
	priority := in.Priority
	if priority == "" {
		priority = domain.PriorityMedium
	}
	if !priority.Valid() {
		return nil, fmt.Errorf("%w: unknown priority %q", domain.ErrInvalidRequest, in.Priority)
	}

	now := s.now().UTC()
	cs := &domain.Case{
		Title:       title,
		Description: in.Description,
		Status:      domain.StatusOpen,
		Priority:    priority,
		CreatorID:   actor.ID,
		Metadata:    in.Metadata,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.store.WithTx(ctx, func(tx *store.Store) error {
		if err := tx.Cases().Create(ctx, cs); err != nil {
			return err
		}
		return tx.Audit().Append(ctx, &domain.AuditEntry{
			CaseID:      cs.ID,
			ActorID:     actor.ID,
			Action:      "create",
			ToStatus:    domain.StatusOpen,
			Description: "case created",
			CreatedAt:   now,
		})
	})
	if err != nil {
		return nil, err
	}

	s.events.Dispatch(events.TransitionEvent{
		CaseID:     cs.ID,
		Title:      cs.Title,
		Action:     "create",
		ToStatus:   domain.StatusOpen,
		ActorID:    actor.ID,
		Recipients: []domain.UserID{cs.CreatorID},
		At:         now,
	})

	return cs, nil
}

func (s *CaseService) Get(ctx context.Context, id domain.CaseID) (*domain.Case, error) {
	cs, err := s.store.Cases().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrCaseNotFound, id)
		}
		return nil, err
	}
	return cs, nil
}

func (s *CaseService) List(ctx context.Context, f store.CaseFilter) ([]domain.Case, error) {
	return s.store.Cases().List(ctx, f)
}

// Trail returns the case's audit entries oldest first.
func (s *CaseService) Trail(ctx context.Context, id domain.CaseID) ([]domain.AuditEntry, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.store.Audit().ListByCase(ctx, id)
}

type UpdateCaseInput struct {
	Title       *string
	Description *string
	Priority    *domain.Priority
	Metadata    []byte
}

// UpdateDetails edits descriptive fields only. Permitted to the creator, the
// current assignee, a chair or an admin.
func (s *CaseService) UpdateDetails(ctx context.Context, actor Actor, id domain.CaseID, in UpdateCaseInput) (*domain.Case, error) {
	cs, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canEdit(actor, cs) {
		return nil, fmt.Errorf("%w: not allowed to edit case %s", domain.ErrForbidden, id)
	}

	if in.Title != nil {
		t := strings.TrimSpace(*in.Title)
		if t == "" {
			return nil, fmt.Errorf("%w: title required", domain.ErrInvalidRequest)
		}
		cs.Title = t
	}
	if in.Description != nil {
		cs.Description = *in.Description
	}
	if in.Priority != nil {
		if !in.Priority.Valid() {
			return nil, fmt.Errorf("%w: unknown priority %q", domain.ErrInvalidRequest, *in.Priority)
		}
		cs.Priority = *in.Priority
	}
	if in.Metadata != nil {
		cs.Metadata = in.Metadata
	}
	cs.UpdatedAt = s.now().UTC()

	if err := s.store.Cases().UpdateDetails(ctx, cs); err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrCaseNotFound, id)
		}
		return nil, err
	}
	return cs, nil
}

func canEdit(actor Actor, cs *domain.Case) bool {
	if actor.Role.CanManage() || actor.ID == cs.CreatorID {
		return true
	}
	return cs.AssigneeID != nil && *cs.AssigneeID == actor.ID
}

// Delete hard-deletes a case and its audit trail in one transaction. Admin or
// the original creator only.
func (s *CaseService) Delete(ctx context.Context, actor Actor, id domain.CaseID) error {
	cs, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if actor.Role != domain.RoleAdmin && actor.ID != cs.CreatorID {
		return fmt.Errorf("%w: only an admin or the creator may delete case %s", domain.ErrForbidden, id)
	}

	return s.store.WithTx(ctx, func(tx *store.Store) error {
		if err := tx.Audit().DeleteByCase(ctx, id); err != nil {
			return err
		}
		if err := tx.Cases().Delete(ctx, id); err != nil {
			if errors.Is(err, store.ErrRecordNotFound) {
				return fmt.Errorf("%w: %s", domain.ErrCaseNotFound, id)
			}
			return err
		}
		return nil
	})
}

type Workload struct {
	UserID domain.UserID
	Active int
	Limit  int
}

// Workload reports how many assigned-or-accepted cases the user currently holds.
func (s *CaseService) Workload(ctx context.Context, userID domain.UserID) (Workload, error) {
	if _, err := s.store.Users().GetByID(ctx, userID); err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return Workload{}, fmt.Errorf("%w: %s", domain.ErrUserNotFound, userID)
		}
		return Workload{}, err
	}
	n, err := s.store.Cases().CountActiveForUser(ctx, userID)
	if err != nil {
		return Workload{}, err
	}
	return Workload{UserID: userID, Active: n, Limit: s.limit}, nil
}
