package domain

import "errors"

var (
	ErrCaseNotFound       = errors.New("case not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidTransition  = errors.New("invalid transition")
	ErrWorkloadExceeded   = errors.New("workload limit exceeded")
	ErrAssigneeIneligible = errors.New("assignee ineligible")
	ErrConflict           = errors.New("concurrent modification")
	ErrInvalidRequest     = errors.New("invalid request")
)
