package dto

import (
	"time"

	"github.com/spec-kit/issue-desk/internal/domain"
)

// CreateIssueRequest payload.
type CreateIssueRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// UpdateIssueStatusRequest payload.
type UpdateIssueStatusRequest struct {
	Status string `json:"status"`
}

// CreateReplyRequest payload.
type CreateReplyRequest struct {
	Content string `json:"content"`
}

// IssueAuthor is the submitter's public identity.
type IssueAuthor struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// IssueSummary response for list entries.
type IssueSummary struct {
	ID          string             `json:"id"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Status      domain.IssueStatus `json:"status"`
	User        IssueAuthor        `json:"user"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
	ClosedAt    *time.Time         `json:"closed_at"`
}

// IssueDetailResponse provides full issue info including replies.
type IssueDetailResponse struct {
	IssueSummary
	Replies []ReplyResponse `json:"replies"`
}

// ReplyResponse represents a thread reply with its author.
type ReplyResponse struct {
	ID        string      `json:"id"`
	Content   string      `json:"content"`
	IsAdmin   bool        `json:"is_admin"`
	User      ReplyAuthor `json:"user"`
	CreatedAt time.Time   `json:"created_at"`
}

// ReplyAuthor is the reply author's public identity.
type ReplyAuthor struct {
	ID    string      `json:"id"`
	Name  string      `json:"name"`
	Email string      `json:"email"`
	Role  domain.Role `json:"role"`
}

// PaginationResponse carries list metadata.
type PaginationResponse struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// IssueListResponse is the list envelope.
type IssueListResponse struct {
	Issues     []IssueSummary     `json:"issues"`
	Pagination PaginationResponse `json:"pagination"`
}

// AdminStatsResponse for the admin dashboard.
type AdminStatsResponse struct {
	UnresolvedCount    int `json:"unresolvedCount"`
	ResolvedTodayCount int `json:"resolvedTodayCount"`
}
