package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"casetrack/internal/domain"
	"casetrack/internal/events"
	"casetrack/internal/store"
	"casetrack/internal/workflow"
)

// Actor is the authenticated caller as the workflow trusts it: identity plus the
// role established at the HTTP boundary.
type Actor struct {
	ID   domain.UserID
	Role domain.Role
}

// TransitionParams carries the optional inputs of a transition request.
type TransitionParams struct {
	AssigneeID *domain.UserID // assign only
	Comment    string
}

// EventSink receives committed transition events. Delivery is fire-and-forget;
// the engine never learns whether it succeeded.
type EventSink interface {
	Dispatch(evt events.TransitionEvent)
}

// WorkflowService orchestrates case transitions: guard evaluation, the atomic
// state+audit write, and the post-commit notification. One successful call means
// exactly one persisted status change and exactly one audit entry; a rejected
// call leaves no trace.
type WorkflowService struct {
	store  dataStore
	events EventSink
	limit  int
	now    func() time.Time
}

func NewWorkflowService(st *store.Store, sink EventSink, limit int) *WorkflowService {
	if limit <= 0 {
		limit = workflow.DefaultWorkloadLimit
	}
	return &WorkflowService{
		store:  gormStoreAdapter{store: st},
		events: sink,
		limit:  limit,
		now:    time.Now,
	}
}

// Narrow store contracts so tests can substitute an in-memory implementation.

type dataStore interface {
	WithTx(ctx context.Context, fn func(tx storeTx) error) error
}

type storeTx interface {
	Cases() caseStore
	Users() userStore
	Audit() auditStore
}

type caseStore interface {
	GetByIDForUpdate(ctx context.Context, id domain.CaseID) (*domain.Case, error)
	ApplyTransition(ctx context.Context, cs *domain.Case, prevUpdatedAt time.Time) error
	CountForAssigneeInStatuses(ctx context.Context, userID domain.UserID, statuses []domain.CaseStatus) (int, error)
}

type userStore interface {
	GetByIDForUpdate(ctx context.Context, id domain.UserID) (*domain.User, error)
}

type auditStore interface {
	Append(ctx context.Context, e *domain.AuditEntry) error
}

type gormStoreAdapter struct{ store *store.Store }

func (g gormStoreAdapter) WithTx(ctx context.Context, fn func(tx storeTx) error) error {
	if g.store == nil {
		return errors.New("nil store")
	}
	return g.store.WithTx(ctx, func(tx *store.Store) error {
		return fn(gormTxAdapter{tx: tx})
	})
}

type gormTxAdapter struct{ tx *store.Store }

func (g gormTxAdapter) Cases() caseStore  { return g.tx.Cases() }
func (g gormTxAdapter) Users() userStore  { return g.tx.Users() }
func (g gormTxAdapter) Audit() auditStore { return g.tx.Audit() }

// Transition moves a case through one lifecycle step on behalf of actor. Guard
// rejections are deterministic business errors and are never retried; a write
// conflict is retried once against freshly re-read state, then surfaced as
// domain.ErrConflict.
func (s *WorkflowService) Transition(ctx context.Context, caseID domain.CaseID, action workflow.Action, actor Actor, p TransitionParams) (*domain.Case, error) {
	if !action.Valid() {
		return nil, fmt.Errorf("%w: unknown action %q", domain.ErrInvalidRequest, action)
	}

	var (
		updated *domain.Case
		evt     events.TransitionEvent
		err     error
	)
	for attempt := 0; ; attempt++ {
		updated, evt, err = s.transitionOnce(ctx, caseID, action, actor, p)
		if errors.Is(err, domain.ErrConflict) && attempt == 0 {
			slog.Debug("transition conflict, retrying once",
				"case_id", caseID, "action", action, "actor_id", actor.ID)
			continue
		}
		break
	}
	if err != nil {
		return nil, err
	}

	// Post-commit. Failures in the dispatch path are the dispatcher's problem.
	s.events.Dispatch(evt)

	return updated, nil
}

func (s *WorkflowService) transitionOnce(ctx context.Context, caseID domain.CaseID, action workflow.Action, actor Actor, p TransitionParams) (*domain.Case, events.TransitionEvent, error) {
	var (
		updated domain.Case
		evt     events.TransitionEvent
	)

	err := s.store.WithTx(ctx, func(tx storeTx) error {
		cs, err := tx.Cases().GetByIDForUpdate(ctx, caseID)
		if err != nil {
			if errors.Is(err, store.ErrRecordNotFound) {
				return fmt.Errorf("%w: %s", domain.ErrCaseNotFound, caseID)
			}
			return err
		}

		in := workflow.Input{
			From:       cs.Status,
			Action:     action,
			ActorID:    actor.ID,
			ActorRole:  actor.Role,
			CreatorID:  cs.CreatorID,
			AssigneeID: cs.AssigneeID,
			Limit:      s.limit,
		}

		switch action {
		case workflow.ActionAssign:
			if p.AssigneeID == nil {
				return fmt.Errorf("%w: assign requires assigneeId", domain.ErrInvalidRequest)
			}
			// Row-lock the target so two concurrent assigns to the same
			// caseworker serialize on the workload check.
			target, err := tx.Users().GetByIDForUpdate(ctx, *p.AssigneeID)
			if err != nil {
				if errors.Is(err, store.ErrRecordNotFound) {
					return fmt.Errorf("%w: %s", domain.ErrUserNotFound, *p.AssigneeID)
				}
				return err
			}
			in.Target = &workflow.Target{ID: target.ID, Role: target.Role, IsActive: target.IsActive}
			in.Workload, err = tx.Cases().CountForAssigneeInStatuses(ctx, target.ID, store.ActiveStatuses())
			if err != nil {
				return err
			}
		case workflow.ActionAccept:
			// Row-lock the accepting caseworker so two concurrent accepts
			// serialize on the same workload count.
			if _, err := tx.Users().GetByIDForUpdate(ctx, actor.ID); err != nil {
				if errors.Is(err, store.ErrRecordNotFound) {
					return fmt.Errorf("%w: %s", domain.ErrUserNotFound, actor.ID)
				}
				return err
			}
			in.Workload, err = tx.Cases().CountForAssigneeInStatuses(ctx, actor.ID,
				[]domain.CaseStatus{domain.StatusInProgress})
			if err != nil {
				return err
			}
		}

		decision, err := workflow.Evaluate(in)
		if err != nil {
			return err
		}

		prev := cs.UpdatedAt
		now := s.now().UTC()
		if !now.After(prev) {
			now = prev.Add(time.Microsecond)
		}

		cs.Status = decision.To
		if decision.SetAssignee != nil {
			cs.AssigneeID = decision.SetAssignee
		}
		if decision.ClearAssignee {
			cs.AssigneeID = nil
		}
		if decision.SetCompletedAt {
			cs.CompletedAt = &now
		}
		if decision.SetClosedAt {
			cs.ClosedAt = &now
		}
		cs.UpdatedAt = now

		if err := tx.Cases().ApplyTransition(ctx, cs, prev); err != nil {
			if errors.Is(err, store.ErrStaleRecord) {
				return fmt.Errorf("%w: case %s changed during transition", domain.ErrConflict, caseID)
			}
			return err
		}

		entry := &domain.AuditEntry{
			CaseID:      cs.ID,
			ActorID:     actor.ID,
			Action:      string(action),
			FromStatus:  in.From,
			ToStatus:    decision.To,
			Description: describeTransition(action, in, p),
			CreatedAt:   now,
		}
		if err := tx.Audit().Append(ctx, entry); err != nil {
			return err
		}

		updated = *cs
		evt = events.TransitionEvent{
			CaseID:     cs.ID,
			Title:      cs.Title,
			Action:     string(action),
			FromStatus: in.From,
			ToStatus:   decision.To,
			ActorID:    actor.ID,
			Comment:    p.Comment,
			Recipients: recipients(cs.CreatorID, in.AssigneeID, cs.AssigneeID),
			At:         now,
		}
		return nil
	})
	if err != nil {
		return nil, events.TransitionEvent{}, err
	}
	return &updated, evt, nil
}

func describeTransition(action workflow.Action, in workflow.Input, p TransitionParams) string {
	var text string
	switch action {
	case workflow.ActionAssign:
		text = fmt.Sprintf("case assigned to %s", in.Target.ID)
	case workflow.ActionAccept:
		text = "assignment accepted, work started"
	case workflow.ActionReject:
		if in.From == domain.StatusPendingAcceptance {
			text = "assignment declined, case returned to pool"
		} else {
			text = "completion rejected, returned to work"
		}
	case workflow.ActionRequestCompletion:
		text = "completion review requested"
	case workflow.ActionApprove:
		text = "completion approved"
	case workflow.ActionClose:
		text = "case closed"
	case workflow.ActionArchive:
		text = "case archived"
	default:
		text = string(action)
	}
	if p.Comment != "" {
		text += ": " + p.Comment
	}
	return text
}

// recipients collects the parties a transition concerns: the creator plus the
// assignee on either side of the change, deduplicated.
func recipients(creator domain.UserID, before, after *domain.UserID) []domain.UserID {
	seen := map[domain.UserID]struct{}{creator: {}}
	out := []domain.UserID{creator}
	for _, id := range []*domain.UserID{before, after} {
		if id == nil {
			continue
		}
		if _, ok := seen[*id]; ok {
			continue
		}
		seen[*id] = struct{}{}
		out = append(out, *id)
	}
	return out
}
