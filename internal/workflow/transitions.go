// Package workflow holds the case lifecycle state machine: the static transition
// table and the pure guard that decides whether an actor may move a case from its
// current status via a given action. The guard performs no I/O; callers supply a
// workload count read inside the same transaction as the write that follows.
package workflow

import (
	"fmt"

	"casetrack/internal/domain"
)

type Action string

const (
	ActionAssign            Action = "assign"
	ActionAccept            Action = "accept"
	ActionReject            Action = "reject"
	ActionRequestCompletion Action = "request_completion"
	ActionApprove           Action = "approve"
	ActionClose             Action = "close"
	ActionArchive           Action = "archive"
)

func (a Action) Valid() bool {
	switch a {
	case ActionAssign, ActionAccept, ActionReject, ActionRequestCompletion,
		ActionApprove, ActionClose, ActionArchive:
		return true
	}
	return false
}

// DefaultWorkloadLimit is the hard ceiling on a caseworker's simultaneously
// assigned-or-accepted cases.
const DefaultWorkloadLimit = 5

// Target describes the caseworker an assign action points at.
type Target struct {
	ID       domain.UserID
	Role     domain.Role
	IsActive bool
}

// Input carries everything the guard needs to decide one transition.
type Input struct {
	From      domain.CaseStatus
	Action    Action
	ActorID   domain.UserID
	ActorRole domain.Role

	CreatorID  domain.UserID
	AssigneeID *domain.UserID

	// Target is set for assign only.
	Target *Target

	// Workload is the count relevant to the action (see CountActiveForUser /
	// CountForUserInStatuses), read fresh within the enclosing transaction.
	Workload int
	Limit    int
}

// Decision is the guard's verdict: the resulting status plus the field mutations
// the engine must persist alongside it.
type Decision struct {
	To             domain.CaseStatus
	SetAssignee    *domain.UserID
	ClearAssignee  bool
	SetCompletedAt bool
	SetClosedAt    bool
}

type ruleKey struct {
	From   domain.CaseStatus
	Action Action
}

type rule struct {
	To    domain.CaseStatus
	guard func(in Input) (Decision, error)
}

var transitions = buildTable()

func buildTable() map[ruleKey]rule {
	t := map[ruleKey]rule{
		{domain.StatusOpen, ActionAssign}: {domain.StatusPendingAcceptance, guardAssign},

		{domain.StatusPendingAcceptance, ActionAccept}: {domain.StatusInProgress, guardAccept},
		{domain.StatusPendingAcceptance, ActionReject}: {domain.StatusOpen, guardDecline},

		{domain.StatusInProgress, ActionRequestCompletion}: {domain.StatusPendingReview, guardRequestCompletion},

		{domain.StatusPendingReview, ActionApprove}: {domain.StatusCompleted, guardApprove},
		{domain.StatusPendingReview, ActionReject}:  {domain.StatusInProgress, guardReviewReject},
	}

	// close/archive are reachable from every non-terminal status.
	for _, from := range []domain.CaseStatus{
		domain.StatusOpen,
		domain.StatusPendingAcceptance,
		domain.StatusInProgress,
		domain.StatusPendingReview,
	} {
		t[ruleKey{from, ActionClose}] = rule{domain.StatusClosed, guardClose}
		t[ruleKey{from, ActionArchive}] = rule{domain.StatusArchived, guardClose}
	}

	// The single way out of a terminal status: administrative archival of a
	// completed case. Reopening is never possible.
	t[ruleKey{domain.StatusCompleted, ActionArchive}] = rule{domain.StatusArchived, guardArchiveCompleted}

	return t
}

// Evaluate applies the transition table to one requested action. Precedence of
// rejections: unknown (from, action) pair, then role/identity, then target
// eligibility, then workload.
func Evaluate(in Input) (Decision, error) {
	r, ok := transitions[ruleKey{in.From, in.Action}]
	if !ok {
		return Decision{}, fmt.Errorf("%w: action %q not allowed from status %q",
			domain.ErrInvalidTransition, in.Action, in.From)
	}
	d, err := r.guard(in)
	if err != nil {
		return Decision{}, err
	}
	d.To = r.To
	return d, nil
}

// Allowed reports whether the (from, action) pair exists in the table at all.
// Identity- and workload-dependent conditions are Evaluate's concern.
func Allowed(from domain.CaseStatus, action Action) bool {
	_, ok := transitions[ruleKey{from, action}]
	return ok
}

func guardAssign(in Input) (Decision, error) {
	if !in.ActorRole.CanManage() {
		return Decision{}, fmt.Errorf("%w: role %q may not assign cases", domain.ErrForbidden, in.ActorRole)
	}
	if in.Target == nil {
		return Decision{}, fmt.Errorf("%w: assign requires a target caseworker", domain.ErrInvalidRequest)
	}
	if in.Target.Role != domain.RoleCaseworker {
		return Decision{}, fmt.Errorf("%w: user %s has role %q, want %q",
			domain.ErrAssigneeIneligible, in.Target.ID, in.Target.Role, domain.RoleCaseworker)
	}
	if !in.Target.IsActive {
		return Decision{}, fmt.Errorf("%w: user %s is inactive", domain.ErrAssigneeIneligible, in.Target.ID)
	}
	if in.Workload >= in.Limit {
		return Decision{}, fmt.Errorf("%w: user %s has %d active cases, limit %d",
			domain.ErrWorkloadExceeded, in.Target.ID, in.Workload, in.Limit)
	}
	id := in.Target.ID
	return Decision{SetAssignee: &id}, nil
}

func guardAccept(in Input) (Decision, error) {
	if err := requireAssignee(in); err != nil {
		return Decision{}, err
	}
	if in.Workload >= in.Limit {
		return Decision{}, fmt.Errorf("%w: user %s has %d cases in progress, limit %d",
			domain.ErrWorkloadExceeded, in.ActorID, in.Workload, in.Limit)
	}
	return Decision{}, nil
}

// guardDecline covers the assignee turning an assignment down; the case goes back
// to the pool unassigned.
func guardDecline(in Input) (Decision, error) {
	if err := requireAssignee(in); err != nil {
		return Decision{}, err
	}
	return Decision{ClearAssignee: true}, nil
}

func guardRequestCompletion(in Input) (Decision, error) {
	if err := requireAssignee(in); err != nil {
		return Decision{}, err
	}
	return Decision{}, nil
}

func guardApprove(in Input) (Decision, error) {
	if !in.ActorRole.CanManage() {
		return Decision{}, fmt.Errorf("%w: role %q may not approve completion", domain.ErrForbidden, in.ActorRole)
	}
	// A non-nil assignee is only valid while the case sits in one of the three
	// assigned statuses, so completion clears it; the audit trail keeps who
	// worked the case and who approved.
	return Decision{SetCompletedAt: true, ClearAssignee: in.AssigneeID != nil}, nil
}

func guardReviewReject(in Input) (Decision, error) {
	if !in.ActorRole.CanManage() {
		return Decision{}, fmt.Errorf("%w: role %q may not decide completion review", domain.ErrForbidden, in.ActorRole)
	}
	return Decision{}, nil
}

func guardClose(in Input) (Decision, error) {
	if in.ActorRole != domain.RoleAdmin && in.ActorID != in.CreatorID {
		return Decision{}, fmt.Errorf("%w: only an admin or the case creator may close or archive", domain.ErrForbidden)
	}
	return Decision{ClearAssignee: in.AssigneeID != nil, SetClosedAt: true}, nil
}

func guardArchiveCompleted(in Input) (Decision, error) {
	if in.ActorRole != domain.RoleAdmin {
		return Decision{}, fmt.Errorf("%w: only an admin may archive a completed case", domain.ErrForbidden)
	}
	return Decision{SetClosedAt: true}, nil
}

func requireAssignee(in Input) error {
	if in.AssigneeID == nil || *in.AssigneeID != in.ActorID {
		return fmt.Errorf("%w: only the assignee may perform %q", domain.ErrForbidden, in.Action)
	}
	return nil
}
