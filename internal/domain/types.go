package domain

import "github.com/google/uuid"

type CaseID = uuid.UUID
type UserID = uuid.UUID
type EntryID = uuid.UUID
