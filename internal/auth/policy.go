package auth

import "github.com/spec-kit/issue-desk/internal/domain"

// Action enumerates operations governed by the issue access policy.
type Action string

const (
	// ActionReply posts a reply to an issue.
	ActionReply Action = "reply"
	// ActionClose moves an issue into CLOSED.
	ActionClose Action = "close"
	// ActionAdvance moves a PENDING issue into IN_PROGRESS.
	ActionAdvance Action = "advance"
	// ActionDelete removes an issue and its replies.
	ActionDelete Action = "delete"
)

// Can evaluates the role/ownership policy for an action on an issue.
//
// Administrators may reply to or transition any non-closed issue and may
// delete any issue. The owning user may reply to their own non-closed issue
// and close it only while it is IN_PROGRESS. Everyone else is denied.
func Can(user *domain.User, action Action, issue *domain.Issue) bool {
	if user == nil || issue == nil {
		return false
	}

	if user.IsAdmin() {
		switch action {
		case ActionDelete:
			return true
		case ActionReply, ActionClose, ActionAdvance:
			return !issue.Status.Terminal()
		}
		return false
	}

	if issue.UserID != user.ID {
		return false
	}

	switch action {
	case ActionReply:
		return !issue.Status.Terminal()
	case ActionClose:
		return issue.Status == domain.IssueStatusInProgress
	}
	return false
}
