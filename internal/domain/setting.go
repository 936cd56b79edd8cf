package domain

import "time"

// Default retention and quota values applied when no setting row exists yet.
const (
	DefaultClosedIssueDeleteDays  = 7
	DefaultPendingIssueDeleteDays = 30
	DefaultDailyIssueLimit        = 3
)

// Setting is the singleton configuration record. It is created lazily with
// defaults on first access and updated in place by administrators.
type Setting struct {
	ID                     string
	ClosedIssueDeleteDays  int
	PendingIssueDeleteDays int
	DailyIssueLimit        int
	UpdatedAt              time.Time
}

// DefaultSetting returns a setting populated with the embedded defaults.
func DefaultSetting() Setting {
	return Setting{
		ClosedIssueDeleteDays:  DefaultClosedIssueDeleteDays,
		PendingIssueDeleteDays: DefaultPendingIssueDeleteDays,
		DailyIssueLimit:        DefaultDailyIssueLimit,
	}
}
