package domain

import "time"

// Reply is a message attached to an issue, authored by the issue owner or an
// administrator. Replies are immutable once created and are removed only as a
// cascade of their parent issue's deletion.
type Reply struct {
	ID        string
	Content   string
	UserID    string
	IssueID   string
	IsAdmin   bool
	CreatedAt time.Time
}
