package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/issue-desk/internal/domain"
	apperrors "github.com/spec-kit/issue-desk/pkg/util"
)

type issueFixture struct {
	svc      *IssueService
	issues   *fakeIssueRepo
	replies  *fakeReplyRepo
	users    *fakeUserRepo
	settings *fakeSettingRepo
}

func newIssueFixture() *issueFixture {
	users := newFakeUserRepo()
	replies := newFakeReplyRepo(users)
	issues := newFakeIssueRepo(users, replies)
	settings := &fakeSettingRepo{}
	svc := NewIssueService(IssueDependencies{
		IssueRepo: issues,
		ReplyRepo: replies,
		UserRepo:  users,
		Settings:  NewSettingsService(settings, nil, zap.NewNop()),
	})
	return &issueFixture{svc: svc, issues: issues, replies: replies, users: users, settings: settings}
}

func (f *issueFixture) addUser(t *testing.T, name string, role domain.Role) *domain.User {
	t.Helper()
	user := &domain.User{
		Name:  name,
		Email: fmt.Sprintf("%s@example.com", name),
		Role:  role,
	}
	require.NoError(t, f.users.Create(context.Background(), user))
	return user
}

func (f *issueFixture) seedIssue(t *testing.T, owner *domain.User, status domain.IssueStatus, createdAt time.Time) *domain.Issue {
	t.Helper()
	issue := &domain.Issue{
		Title:       "printer is on fire",
		Description: "third floor, again",
		Status:      status,
		UserID:      owner.ID,
		CreatedAt:   createdAt,
	}
	require.NoError(t, f.issues.Create(context.Background(), issue))
	return issue
}

func requireDomainCode(t *testing.T, err error, code string) *apperrors.DomainError {
	t.Helper()
	require.Error(t, err)
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, code, domainErr.Code)
	return domainErr
}

func TestCreateIssue(t *testing.T) {
	f := newIssueFixture()
	ctx := context.Background()
	alice := f.addUser(t, "alice", domain.RoleUser)

	issue, err := f.svc.Create(ctx, alice, "  VPN keeps dropping  ", "  every hour or so  ")
	require.NoError(t, err)
	assert.Equal(t, "VPN keeps dropping", issue.Title)
	assert.Equal(t, "every hour or so", issue.Description)
	assert.Equal(t, domain.IssueStatusPending, issue.Status)
	assert.Equal(t, alice.ID, issue.UserID)
	assert.Nil(t, issue.ClosedAt)
	assert.NotEmpty(t, issue.ID)
}

func TestCreateIssueValidation(t *testing.T) {
	f := newIssueFixture()
	ctx := context.Background()
	alice := f.addUser(t, "alice", domain.RoleUser)

	_, err := f.svc.Create(ctx, alice, "   ", "something broke")
	requireDomainCode(t, err, "VALIDATION_FAILED")

	_, err = f.svc.Create(ctx, alice, "something broke", "")
	requireDomainCode(t, err, "VALIDATION_FAILED")
}

func TestCreateIssueAdminForbidden(t *testing.T) {
	f := newIssueFixture()
	admin := f.addUser(t, "admin", domain.RoleAdmin)

	_, err := f.svc.Create(context.Background(), admin, "title", "description")
	requireDomainCode(t, err, "FORBIDDEN")
}

func TestCreateIssueRequiresAuth(t *testing.T) {
	f := newIssueFixture()

	_, err := f.svc.Create(context.Background(), nil, "title", "description")
	requireDomainCode(t, err, "UNAUTHORIZED")
}

func TestCreateIssueDailyQuota(t *testing.T) {
	f := newIssueFixture()
	ctx := context.Background()
	alice := f.addUser(t, "alice", domain.RoleUser)
	bob := f.addUser(t, "bob", domain.RoleUser)

	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.Local)
	f.svc.now = func() time.Time { return now }
	f.issues.nowFn = func() time.Time { return now }

	for i := 0; i < domain.DefaultDailyIssueLimit; i++ {
		_, err := f.svc.Create(ctx, alice, fmt.Sprintf("issue %d", i), "details")
		require.NoError(t, err)
	}

	_, err := f.svc.Create(ctx, alice, "one too many", "details")
	domainErr := requireDomainCode(t, err, "RATE_LIMITED")
	assert.Equal(t, domain.DefaultDailyIssueLimit, domainErr.Details["limit"])

	// other users are unaffected by alice's quota
	_, err = f.svc.Create(ctx, bob, "unrelated", "details")
	require.NoError(t, err)

	// the window resets at local midnight
	now = now.AddDate(0, 0, 1)
	_, err = f.svc.Create(ctx, alice, "new day", "details")
	require.NoError(t, err)
}

func TestCreateIssueQuotaFromSettings(t *testing.T) {
	f := newIssueFixture()
	ctx := context.Background()
	alice := f.addUser(t, "alice", domain.RoleUser)
	f.settings.setting = &domain.Setting{
		ID:                     "setting-1",
		ClosedIssueDeleteDays:  7,
		PendingIssueDeleteDays: 30,
		DailyIssueLimit:        1,
	}

	_, err := f.svc.Create(ctx, alice, "first", "details")
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, alice, "second", "details")
	requireDomainCode(t, err, "RATE_LIMITED")
}

func TestListScoping(t *testing.T) {
	f := newIssueFixture()
	ctx := context.Background()
	alice := f.addUser(t, "alice", domain.RoleUser)
	bob := f.addUser(t, "bob", domain.RoleUser)
	admin := f.addUser(t, "admin", domain.RoleAdmin)

	now := time.Now()
	f.seedIssue(t, alice, domain.IssueStatusPending, now.Add(-3*time.Hour))
	f.seedIssue(t, alice, domain.IssueStatusInProgress, now.Add(-2*time.Hour))
	f.seedIssue(t, bob, domain.IssueStatusPending, now.Add(-1*time.Hour))

	// authenticated non-admins only ever see their own issues
	items, pagination, err := f.svc.List(ctx, alice, IssueListQuery{})
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, 2, pagination.Total)
	for _, item := range items {
		assert.Equal(t, alice.ID, item.UserID)
		assert.Equal(t, alice.Name, item.AuthorName)
	}

	// admins see everything
	items, pagination, err = f.svc.List(ctx, admin, IssueListQuery{})
	require.NoError(t, err)
	assert.Len(t, items, 3)
	assert.Equal(t, 3, pagination.Total)

	// so do anonymous callers
	items, _, err = f.svc.List(ctx, nil, IssueListQuery{})
	require.NoError(t, err)
	assert.Len(t, items, 3)

	// newest first
	assert.Equal(t, bob.ID, items[0].UserID)

	// but user_only without a session is rejected
	_, _, err = f.svc.List(ctx, nil, IssueListQuery{UserOnly: true})
	requireDomainCode(t, err, "UNAUTHORIZED")
}

func TestListFiltersAndPagination(t *testing.T) {
	f := newIssueFixture()
	ctx := context.Background()
	admin := f.addUser(t, "admin", domain.RoleAdmin)
	alice := f.addUser(t, "alice", domain.RoleUser)

	now := time.Now()
	for i := 0; i < 5; i++ {
		f.seedIssue(t, alice, domain.IssueStatusPending, now.Add(-time.Duration(i)*time.Hour))
	}
	closed := f.seedIssue(t, alice, domain.IssueStatusClosed, now.Add(-6*time.Hour))

	status := domain.IssueStatusClosed
	items, _, err := f.svc.List(ctx, admin, IssueListQuery{Status: &status})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, closed.ID, items[0].ID)

	items, pagination, err := f.svc.List(ctx, admin, IssueListQuery{Page: 2, Limit: 4})
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, 6, pagination.Total)
	assert.Equal(t, 2, pagination.TotalPages)
}

func TestGetIssueDetail(t *testing.T) {
	f := newIssueFixture()
	ctx := context.Background()
	alice := f.addUser(t, "alice", domain.RoleUser)
	admin := f.addUser(t, "admin", domain.RoleAdmin)
	issue := f.seedIssue(t, alice, domain.IssueStatusPending, time.Now())

	_, err := f.svc.AddReply(ctx, alice, issue.ID, "any update?")
	require.NoError(t, err)
	_, err = f.svc.AddReply(ctx, admin, issue.ID, "looking into it")
	require.NoError(t, err)

	detail, err := f.svc.Get(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, issue.ID, detail.Issue.ID)
	assert.Equal(t, alice.Name, detail.AuthorName)
	require.Len(t, detail.Replies, 2)
	assert.Equal(t, "any update?", detail.Replies[0].Content)
	assert.Equal(t, "looking into it", detail.Replies[1].Content)

	_, err = f.svc.Get(ctx, "missing")
	requireDomainCode(t, err, "NOT_FOUND")
}

func TestUpdateStatusTransitions(t *testing.T) {
	f := newIssueFixture()
	ctx := context.Background()
	alice := f.addUser(t, "alice", domain.RoleUser)
	admin := f.addUser(t, "admin", domain.RoleAdmin)

	// admins may take a pending issue in progress
	issue := f.seedIssue(t, alice, domain.IssueStatusPending, time.Now())
	updated, err := f.svc.UpdateStatus(ctx, admin, issue.ID, domain.IssueStatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, domain.IssueStatusInProgress, updated.Status)
	assert.Nil(t, updated.ClosedAt)

	// owners may not
	issue = f.seedIssue(t, alice, domain.IssueStatusPending, time.Now())
	_, err = f.svc.UpdateStatus(ctx, alice, issue.ID, domain.IssueStatusInProgress)
	requireDomainCode(t, err, "FORBIDDEN")

	// owners may not close a pending issue either
	_, err = f.svc.UpdateStatus(ctx, alice, issue.ID, domain.IssueStatusClosed)
	requireDomainCode(t, err, "FORBIDDEN")

	// admins may close straight from pending
	updated, err = f.svc.UpdateStatus(ctx, admin, issue.ID, domain.IssueStatusClosed)
	require.NoError(t, err)
	assert.Equal(t, domain.IssueStatusClosed, updated.Status)
	require.NotNil(t, updated.ClosedAt)

	// owners may close their issue once it is in progress
	issue = f.seedIssue(t, alice, domain.IssueStatusInProgress, time.Now())
	updated, err = f.svc.UpdateStatus(ctx, alice, issue.ID, domain.IssueStatusClosed)
	require.NoError(t, err)
	assert.Equal(t, domain.IssueStatusClosed, updated.Status)
}

func TestUpdateStatusRejections(t *testing.T) {
	f := newIssueFixture()
	ctx := context.Background()
	alice := f.addUser(t, "alice", domain.RoleUser)
	bob := f.addUser(t, "bob", domain.RoleUser)
	admin := f.addUser(t, "admin", domain.RoleAdmin)

	issue := f.seedIssue(t, alice, domain.IssueStatusInProgress, time.Now())

	_, err := f.svc.UpdateStatus(ctx, admin, issue.ID, domain.IssueStatus("ARCHIVED"))
	requireDomainCode(t, err, "VALIDATION_FAILED")

	_, err = f.svc.UpdateStatus(ctx, admin, issue.ID, domain.IssueStatusPending)
	requireDomainCode(t, err, "CONFLICT")

	_, err = f.svc.UpdateStatus(ctx, bob, issue.ID, domain.IssueStatusClosed)
	requireDomainCode(t, err, "FORBIDDEN")

	_, err = f.svc.UpdateStatus(ctx, admin, "missing", domain.IssueStatusClosed)
	requireDomainCode(t, err, "NOT_FOUND")
}

func TestClosedAtStampedOnce(t *testing.T) {
	f := newIssueFixture()
	ctx := context.Background()
	alice := f.addUser(t, "alice", domain.RoleUser)
	admin := f.addUser(t, "admin", domain.RoleAdmin)

	closedAt := time.Date(2026, time.March, 10, 9, 30, 0, 0, time.Local)
	f.svc.now = func() time.Time { return closedAt }

	issue := f.seedIssue(t, alice, domain.IssueStatusInProgress, closedAt.Add(-48*time.Hour))
	updated, err := f.svc.UpdateStatus(ctx, admin, issue.ID, domain.IssueStatusClosed)
	require.NoError(t, err)
	require.NotNil(t, updated.ClosedAt)
	assert.True(t, updated.ClosedAt.Equal(closedAt))

	// any further transition attempt is rejected and the stamp is untouched
	f.svc.now = func() time.Time { return closedAt.Add(time.Hour) }
	_, err = f.svc.UpdateStatus(ctx, admin, issue.ID, domain.IssueStatusClosed)
	requireDomainCode(t, err, "CONFLICT")

	stored, err := f.issues.GetByID(ctx, issue.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ClosedAt)
	assert.True(t, stored.ClosedAt.Equal(closedAt))
}

func TestAddReply(t *testing.T) {
	f := newIssueFixture()
	ctx := context.Background()
	alice := f.addUser(t, "alice", domain.RoleUser)
	issue := f.seedIssue(t, alice, domain.IssueStatusPending, time.Now())

	reply, err := f.svc.AddReply(ctx, alice, issue.ID, "  still broken  ")
	require.NoError(t, err)
	assert.Equal(t, "still broken", reply.Content)
	assert.False(t, reply.IsAdmin)
	assert.Equal(t, alice.Name, reply.AuthorName)

	// an owner reply leaves the status alone
	stored, err := f.issues.GetByID(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.IssueStatusPending, stored.Status)

	_, err = f.svc.AddReply(ctx, alice, issue.ID, "   ")
	requireDomainCode(t, err, "VALIDATION_FAILED")

	_, err = f.svc.AddReply(ctx, alice, "missing", "hello")
	requireDomainCode(t, err, "NOT_FOUND")
}

func TestAdminReplyMovesPendingInProgress(t *testing.T) {
	f := newIssueFixture()
	ctx := context.Background()
	alice := f.addUser(t, "alice", domain.RoleUser)
	admin := f.addUser(t, "admin", domain.RoleAdmin)
	issue := f.seedIssue(t, alice, domain.IssueStatusPending, time.Now())

	reply, err := f.svc.AddReply(ctx, admin, issue.ID, "we are on it")
	require.NoError(t, err)
	assert.True(t, reply.IsAdmin)

	stored, err := f.issues.GetByID(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.IssueStatusInProgress, stored.Status)

	// the side effect fires only on the first admin reply
	updatedAt := stored.UpdatedAt
	_, err = f.svc.AddReply(ctx, admin, issue.ID, "update: fix deployed")
	require.NoError(t, err)

	stored, err = f.issues.GetByID(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.IssueStatusInProgress, stored.Status)
	assert.True(t, stored.UpdatedAt.Equal(updatedAt))
}

func TestReplyAccessControl(t *testing.T) {
	f := newIssueFixture()
	ctx := context.Background()
	alice := f.addUser(t, "alice", domain.RoleUser)
	bob := f.addUser(t, "bob", domain.RoleUser)
	admin := f.addUser(t, "admin", domain.RoleAdmin)

	issue := f.seedIssue(t, alice, domain.IssueStatusPending, time.Now())
	_, err := f.svc.AddReply(ctx, bob, issue.ID, "me too")
	requireDomainCode(t, err, "FORBIDDEN")
	assert.Zero(t, f.replies.countByIssue(issue.ID))

	closed := f.seedIssue(t, alice, domain.IssueStatusClosed, time.Now())
	_, err = f.svc.AddReply(ctx, alice, closed.ID, "reopening?")
	requireDomainCode(t, err, "FORBIDDEN")
	_, err = f.svc.AddReply(ctx, admin, closed.ID, "this is done")
	requireDomainCode(t, err, "FORBIDDEN")
	assert.Zero(t, f.replies.countByIssue(closed.ID))
}

func TestDeleteIssue(t *testing.T) {
	f := newIssueFixture()
	ctx := context.Background()
	alice := f.addUser(t, "alice", domain.RoleUser)
	admin := f.addUser(t, "admin", domain.RoleAdmin)

	issue := f.seedIssue(t, alice, domain.IssueStatusInProgress, time.Now())
	_, err := f.svc.AddReply(ctx, alice, issue.ID, "first")
	require.NoError(t, err)
	_, err = f.svc.AddReply(ctx, admin, issue.ID, "second")
	require.NoError(t, err)

	// owners cannot delete, not even their own issues
	err = f.svc.Delete(ctx, alice, issue.ID)
	requireDomainCode(t, err, "FORBIDDEN")

	err = f.svc.Delete(ctx, admin, issue.ID)
	require.NoError(t, err)

	_, err = f.svc.Get(ctx, issue.ID)
	requireDomainCode(t, err, "NOT_FOUND")
	assert.Zero(t, f.replies.countByIssue(issue.ID))

	err = f.svc.Delete(ctx, admin, issue.ID)
	requireDomainCode(t, err, "NOT_FOUND")
}

func TestStats(t *testing.T) {
	f := newIssueFixture()
	ctx := context.Background()
	alice := f.addUser(t, "alice", domain.RoleUser)

	now := time.Date(2026, time.March, 10, 15, 0, 0, 0, time.Local)
	f.svc.now = func() time.Time { return now }

	f.seedIssue(t, alice, domain.IssueStatusPending, now.Add(-time.Hour))
	f.seedIssue(t, alice, domain.IssueStatusInProgress, now.Add(-2*time.Hour))

	closedToday := f.seedIssue(t, alice, domain.IssueStatusClosed, now.Add(-4*time.Hour))
	todayStamp := now.Add(-time.Hour)
	f.issues.issues[closedToday.ID].ClosedAt = &todayStamp

	closedYesterday := f.seedIssue(t, alice, domain.IssueStatusClosed, now.Add(-48*time.Hour))
	yesterdayStamp := now.Add(-30 * time.Hour)
	f.issues.issues[closedYesterday.ID].ClosedAt = &yesterdayStamp

	stats, err := f.svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.UnresolvedCount)
	assert.Equal(t, 1, stats.ResolvedTodayCount)
}
