package dto

import "time"

// UpdateSettingsRequest payload for the admin configuration endpoint.
type UpdateSettingsRequest struct {
	ClosedIssueDeleteDays  int `json:"closedIssueDeleteDays"`
	PendingIssueDeleteDays int `json:"pendingIssueDeleteDays"`
	DailyIssueLimit        int `json:"dailyIssueLimit"`
}

// SettingsResponse is the admin view of the singleton configuration.
type SettingsResponse struct {
	ID                     string    `json:"id"`
	ClosedIssueDeleteDays  int       `json:"closedIssueDeleteDays"`
	PendingIssueDeleteDays int       `json:"pendingIssueDeleteDays"`
	DailyIssueLimit        int       `json:"dailyIssueLimit"`
	UpdatedAt              time.Time `json:"updated_at"`
}
