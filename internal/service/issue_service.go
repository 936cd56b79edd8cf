package service

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/issue-desk/internal/auth"
	"github.com/spec-kit/issue-desk/internal/domain"
	"github.com/spec-kit/issue-desk/internal/repository"
	apperrors "github.com/spec-kit/issue-desk/pkg/util"
)

// IssueListQuery describes listing parameters from the HTTP layer.
type IssueListQuery struct {
	Page     int
	Limit    int
	Status   *domain.IssueStatus
	Search   *string
	UserOnly bool
}

// Pagination describes list result metadata.
type Pagination struct {
	Page       int
	Limit      int
	Total      int
	TotalPages int
}

// IssueDetail bundles an issue with its author and reply thread.
type IssueDetail struct {
	Issue       *domain.Issue
	AuthorName  string
	AuthorEmail string
	Replies     []repository.ReplyWithAuthor
}

// AdminStats summarizes workload for the admin dashboard.
type AdminStats struct {
	UnresolvedCount    int
	ResolvedTodayCount int
}

// IssueService coordinates the issue lifecycle: creation under the daily
// quota, status transitions, replies and administrative deletion.
type IssueService struct {
	issues   repository.IssueRepository
	replies  repository.ReplyRepository
	users    repository.UserRepository
	settings *SettingsService
	now      func() time.Time
}

// IssueDependencies bundles repositories for the issue service.
type IssueDependencies struct {
	IssueRepo repository.IssueRepository
	ReplyRepo repository.ReplyRepository
	UserRepo  repository.UserRepository
	Settings  *SettingsService
}

// NewIssueService constructs the service.
func NewIssueService(deps IssueDependencies) *IssueService {
	return &IssueService{
		issues:   deps.IssueRepo,
		replies:  deps.ReplyRepo,
		users:    deps.UserRepo,
		settings: deps.Settings,
		now:      time.Now,
	}
}

// Issue transitions reachable through the public operations. CLOSED is
// terminal; PENDING moves forward only.
var allowedTransitions = map[domain.IssueStatus][]domain.IssueStatus{
	domain.IssueStatusPending:    {domain.IssueStatusInProgress, domain.IssueStatusClosed},
	domain.IssueStatusInProgress: {domain.IssueStatusClosed},
	domain.IssueStatusClosed:     {},
}

func isValidTransition(current, next domain.IssueStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// Create submits a new issue for a non-admin caller, enforcing the daily quota.
func (s *IssueService) Create(ctx context.Context, caller *domain.User, title, description string) (*domain.Issue, error) {
	if caller == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	if caller.IsAdmin() {
		return nil, apperrors.NewForbidden("administrators cannot submit issues")
	}

	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	if title == "" || description == "" {
		return nil, apperrors.NewValidationError("title and description are required", nil)
	}

	setting, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	limit := setting.DailyIssueLimit
	if limit <= 0 {
		limit = domain.DefaultDailyIssueLimit
	}

	// Check-then-insert is deliberately not transactional; concurrent
	// submissions from the same user may transiently exceed the quota.
	from, to := dayBounds(s.now())
	count, err := s.issues.CountCreatedBetween(ctx, caller.ID, from, to)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if count >= limit {
		return nil, apperrors.NewRateLimited("daily issue limit reached", map[string]any{
			"limit": limit,
		})
	}

	issue := &domain.Issue{
		Title:       title,
		Description: description,
		Status:      domain.IssueStatusPending,
		UserID:      caller.ID,
	}
	if err := s.issues.Create(ctx, issue); err != nil {
		return nil, apperrors.MapError(err)
	}
	return issue, nil
}

// List returns a page of issues scoped to the caller. Administrators see
// everything; authenticated users see their own; anonymous callers see the
// full list unless they request user_only, which requires a session.
func (s *IssueService) List(ctx context.Context, caller *domain.User, query IssueListQuery) ([]repository.IssueWithAuthor, *Pagination, error) {
	if query.UserOnly && caller == nil {
		return nil, nil, apperrors.NewUnauthorized("sign in to view your issues")
	}

	page := query.Page
	if page <= 0 {
		page = 1
	}
	limit := query.Limit
	if limit <= 0 {
		limit = 10
	}

	filter := repository.IssueFilter{
		Status:     query.Status,
		SearchTerm: query.Search,
		Limit:      limit,
		Offset:     (page - 1) * limit,
	}
	if query.UserOnly || (caller != nil && !caller.IsAdmin()) {
		filter.UserID = &caller.ID
	}

	total, err := s.issues.Count(ctx, filter)
	if err != nil {
		return nil, nil, apperrors.MapError(err)
	}
	items, err := s.issues.List(ctx, filter)
	if err != nil {
		return nil, nil, apperrors.MapError(err)
	}

	pagination := &Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: (total + limit - 1) / limit,
	}
	return items, pagination, nil
}

// Get fetches an issue with its author and reply thread.
func (s *IssueService) Get(ctx context.Context, id string) (*IssueDetail, error) {
	issue, err := s.getIssue(ctx, id)
	if err != nil {
		return nil, err
	}

	author, err := s.users.GetByID(ctx, issue.UserID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	replies, err := s.replies.ListByIssue(ctx, issue.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	return &IssueDetail{
		Issue:       issue,
		AuthorName:  author.Name,
		AuthorEmail: author.Email,
		Replies:     replies,
	}, nil
}

// UpdateStatus applies a lifecycle transition. ClosedAt is stamped on the
// first transition into CLOSED and left untouched afterwards.
func (s *IssueService) UpdateStatus(ctx context.Context, caller *domain.User, issueID string, target domain.IssueStatus) (*domain.Issue, error) {
	if caller == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	if !target.Valid() {
		return nil, apperrors.NewValidationError("invalid issue status", nil)
	}

	issue, err := s.getIssue(ctx, issueID)
	if err != nil {
		return nil, err
	}
	if issue.Status.Terminal() {
		return nil, apperrors.NewConflict("issue is closed", nil)
	}
	if !isValidTransition(issue.Status, target) {
		return nil, apperrors.NewConflict("invalid status transition", map[string]any{
			"from": issue.Status,
			"to":   target,
		})
	}

	action := auth.ActionAdvance
	if target == domain.IssueStatusClosed {
		action = auth.ActionClose
	}
	if !auth.Can(caller, action, issue) {
		return nil, apperrors.NewForbidden("not allowed to update this issue")
	}

	issue.Status = target
	if target == domain.IssueStatusClosed && issue.ClosedAt == nil {
		now := s.now()
		issue.ClosedAt = &now
	}
	if err := s.issues.Update(ctx, issue); err != nil {
		return nil, apperrors.MapError(err)
	}
	return issue, nil
}

// Delete removes an issue and its replies atomically. Administrators only.
func (s *IssueService) Delete(ctx context.Context, caller *domain.User, issueID string) error {
	if caller == nil {
		return apperrors.NewUnauthorized("authentication required")
	}

	issue, err := s.getIssue(ctx, issueID)
	if err != nil {
		return err
	}
	if !auth.Can(caller, auth.ActionDelete, issue) {
		return apperrors.NewForbidden("only administrators can delete issues")
	}

	if err := s.issues.DeleteWithReplies(ctx, issue.ID); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

// AddReply appends a reply to a non-closed issue. An administrator's reply to
// a PENDING issue moves it to IN_PROGRESS as a side effect, exactly once.
func (s *IssueService) AddReply(ctx context.Context, caller *domain.User, issueID, content string) (*repository.ReplyWithAuthor, error) {
	if caller == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.NewValidationError("reply content is required", nil)
	}

	issue, err := s.getIssue(ctx, issueID)
	if err != nil {
		return nil, err
	}
	if issue.Status.Terminal() {
		return nil, apperrors.NewForbidden("issue is closed and no longer accepts replies")
	}
	if !auth.Can(caller, auth.ActionReply, issue) {
		return nil, apperrors.NewForbidden("only the issue owner or an administrator may reply")
	}

	reply := &domain.Reply{
		Content: content,
		UserID:  caller.ID,
		IssueID: issue.ID,
		IsAdmin: caller.IsAdmin(),
	}
	if err := s.replies.Create(ctx, reply); err != nil {
		return nil, apperrors.MapError(err)
	}

	if caller.IsAdmin() && issue.Status == domain.IssueStatusPending {
		issue.Status = domain.IssueStatusInProgress
		if err := s.issues.Update(ctx, issue); err != nil {
			return nil, apperrors.MapError(err)
		}
	}

	return &repository.ReplyWithAuthor{
		Reply:       *reply,
		AuthorName:  caller.Name,
		AuthorEmail: caller.Email,
		AuthorRole:  caller.Role,
	}, nil
}

// Stats reports unresolved and resolved-today counts for administrators.
func (s *IssueService) Stats(ctx context.Context) (*AdminStats, error) {
	unresolved, err := s.issues.CountByStatus(ctx, domain.IssueStatusPending, domain.IssueStatusInProgress)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	from, to := dayBounds(s.now())
	resolvedToday, err := s.issues.CountClosedBetween(ctx, from, to)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	return &AdminStats{
		UnresolvedCount:    unresolved,
		ResolvedTodayCount: resolvedToday,
	}, nil
}

func (s *IssueService) getIssue(ctx context.Context, id string) (*domain.Issue, error) {
	issue, err := s.issues.GetByID(ctx, id)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("issue", nil)
		}
		return nil, apperrors.MapError(err)
	}
	return issue, nil
}

// dayBounds returns the inclusive start and end of the calendar day containing
// t, in server-local time.
func dayBounds(t time.Time) (time.Time, time.Time) {
	year, month, day := t.Date()
	start := time.Date(year, month, day, 0, 0, 0, 0, t.Location())
	end := time.Date(year, month, day, 23, 59, 59, 999_000_000, t.Location())
	return start, end
}
