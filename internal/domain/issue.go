package domain

import "time"

// IssueStatus enumerates lifecycle states for issues.
type IssueStatus string

const (
	IssueStatusPending    IssueStatus = "PENDING"
	IssueStatusInProgress IssueStatus = "IN_PROGRESS"
	IssueStatusClosed     IssueStatus = "CLOSED"
)

// Valid reports whether the status is a known value.
func (s IssueStatus) Valid() bool {
	switch s {
	case IssueStatusPending, IssueStatusInProgress, IssueStatusClosed:
		return true
	}
	return false
}

// Terminal reports whether the status admits no further transitions.
func (s IssueStatus) Terminal() bool {
	return s == IssueStatusClosed
}

// Issue is the aggregate for support requests. ClosedAt is stamped on the
// first transition into CLOSED and never cleared afterwards.
type Issue struct {
	ID          string
	Title       string
	Description string
	Status      IssueStatus
	UserID      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ClosedAt    *time.Time
}
