package store

import "casetrack/internal/domain"

func models() []any {
	return []any{
		&domain.User{},
		&domain.Case{},
		&domain.AuditEntry{},
	}
}
