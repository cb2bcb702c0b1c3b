package dto

import (
	"encoding/json"
	"time"

	"casetrack/internal/domain"
)

type CreateCaseRequest struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Priority    string          `json:"priority,omitempty"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
}

type UpdateCaseRequest struct {
	Title       *string         `json:"title,omitempty"`
	Description *string         `json:"description,omitempty"`
	Priority    *string         `json:"priority,omitempty"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
}

type CaseResponse struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Status      string          `json:"status"`
	Priority    string          `json:"priority"`
	CreatorID   string          `json:"creatorId"`
	AssigneeID  *string         `json:"assigneeId"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
	ClosedAt    *time.Time      `json:"closedAt,omitempty"`
}

func NewCaseResponse(c *domain.Case) CaseResponse {
	resp := CaseResponse{
		ID:          c.ID.String(),
		Title:       c.Title,
		Description: c.Description,
		Status:      string(c.Status),
		Priority:    string(c.Priority),
		CreatorID:   c.CreatorID.String(),
		Metadata:    json.RawMessage(c.Metadata),
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
		CompletedAt: c.CompletedAt,
		ClosedAt:    c.ClosedAt,
	}
	if c.AssigneeID != nil {
		s := c.AssigneeID.String()
		resp.AssigneeID = &s
	}
	return resp
}

type CaseListResponse struct {
	Cases []CaseResponse `json:"cases"`
}

type WorkloadResponse struct {
	UserID string `json:"userId"`
	Active int    `json:"active"`
	Limit  int    `json:"limit"`
}
