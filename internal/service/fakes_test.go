package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/issue-desk/internal/domain"
	"github.com/spec-kit/issue-desk/internal/repository"
)

// In-memory repository fakes used across the service tests.

type fakeUserRepo struct {
	users map[string]*domain.User
	seq   int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*domain.User{}}
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	r.seq++
	user.ID = fmt.Sprintf("user-%d", r.seq)
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *fakeUserRepo) Update(_ context.Context, user *domain.User) error {
	if _, ok := r.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *fakeUserRepo) UpdatePassword(_ context.Context, id, passwordHash string) error {
	user, ok := r.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	user.PasswordHash = passwordHash
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *user
	return &clone, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, user := range r.users {
		if user.Email == email {
			clone := *user
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type fakeReplyRepo struct {
	replies map[string]*domain.Reply
	users   *fakeUserRepo
	seq     int
}

func newFakeReplyRepo(users *fakeUserRepo) *fakeReplyRepo {
	return &fakeReplyRepo{replies: map[string]*domain.Reply{}, users: users}
}

func (r *fakeReplyRepo) Create(_ context.Context, reply *domain.Reply) error {
	r.seq++
	reply.ID = fmt.Sprintf("reply-%d", r.seq)
	reply.CreatedAt = time.Now()
	clone := *reply
	r.replies[reply.ID] = &clone
	return nil
}

func (r *fakeReplyRepo) ListByIssue(ctx context.Context, issueID string) ([]repository.ReplyWithAuthor, error) {
	var result []repository.ReplyWithAuthor
	for _, reply := range r.replies {
		if reply.IssueID != issueID {
			continue
		}
		item := repository.ReplyWithAuthor{Reply: *reply}
		if author, err := r.users.GetByID(ctx, reply.UserID); err == nil {
			item.AuthorName = author.Name
			item.AuthorEmail = author.Email
			item.AuthorRole = author.Role
		}
		result = append(result, item)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (r *fakeReplyRepo) countByIssue(issueID string) int {
	count := 0
	for _, reply := range r.replies {
		if reply.IssueID == issueID {
			count++
		}
	}
	return count
}

func (r *fakeReplyRepo) deleteByIssue(issueID string) {
	for id, reply := range r.replies {
		if reply.IssueID == issueID {
			delete(r.replies, id)
		}
	}
}

type fakeIssueRepo struct {
	issues  map[string]*domain.Issue
	replies *fakeReplyRepo
	users   *fakeUserRepo
	seq     int

	// when set, creation timestamps come from this clock instead of time.Now
	nowFn func() time.Time

	// when set, the next PurgeWithReplies call fails with this error once
	purgeErr error
}

func newFakeIssueRepo(users *fakeUserRepo, replies *fakeReplyRepo) *fakeIssueRepo {
	return &fakeIssueRepo{issues: map[string]*domain.Issue{}, users: users, replies: replies}
}

func (r *fakeIssueRepo) Create(_ context.Context, issue *domain.Issue) error {
	r.seq++
	issue.ID = fmt.Sprintf("issue-%d", r.seq)
	if issue.CreatedAt.IsZero() {
		if r.nowFn != nil {
			issue.CreatedAt = r.nowFn()
		} else {
			issue.CreatedAt = time.Now()
		}
	}
	issue.UpdatedAt = issue.CreatedAt
	clone := *issue
	r.issues[issue.ID] = &clone
	return nil
}

func (r *fakeIssueRepo) Update(_ context.Context, issue *domain.Issue) error {
	if _, ok := r.issues[issue.ID]; !ok {
		return pgx.ErrNoRows
	}
	issue.UpdatedAt = time.Now()
	clone := *issue
	r.issues[issue.ID] = &clone
	return nil
}

func (r *fakeIssueRepo) GetByID(_ context.Context, id string) (*domain.Issue, error) {
	issue, ok := r.issues[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *issue
	return &clone, nil
}

func (r *fakeIssueRepo) matches(issue *domain.Issue, filter repository.IssueFilter) bool {
	if filter.UserID != nil && issue.UserID != *filter.UserID {
		return false
	}
	if filter.Status != nil && issue.Status != *filter.Status {
		return false
	}
	if filter.SearchTerm != nil {
		term := strings.ToLower(strings.TrimSpace(*filter.SearchTerm))
		if term != "" &&
			!strings.Contains(strings.ToLower(issue.Title), term) &&
			!strings.Contains(strings.ToLower(issue.Description), term) {
			return false
		}
	}
	return true
}

func (r *fakeIssueRepo) List(ctx context.Context, filter repository.IssueFilter) ([]repository.IssueWithAuthor, error) {
	var matched []*domain.Issue
	for _, issue := range r.issues {
		if r.matches(issue, filter) {
			matched = append(matched, issue)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	limit := filter.Limit
	if limit <= 0 {
		limit = 10
	}
	offset := filter.Offset
	if offset > len(matched) {
		offset = len(matched)
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}

	var result []repository.IssueWithAuthor
	for _, issue := range matched[offset:end] {
		item := repository.IssueWithAuthor{Issue: *issue}
		if author, err := r.users.GetByID(ctx, issue.UserID); err == nil {
			item.AuthorName = author.Name
			item.AuthorEmail = author.Email
		}
		result = append(result, item)
	}
	return result, nil
}

func (r *fakeIssueRepo) Count(_ context.Context, filter repository.IssueFilter) (int, error) {
	count := 0
	for _, issue := range r.issues {
		if r.matches(issue, filter) {
			count++
		}
	}
	return count, nil
}

func (r *fakeIssueRepo) CountCreatedBetween(_ context.Context, userID string, from, to time.Time) (int, error) {
	count := 0
	for _, issue := range r.issues {
		if issue.UserID == userID && !issue.CreatedAt.Before(from) && !issue.CreatedAt.After(to) {
			count++
		}
	}
	return count, nil
}

func (r *fakeIssueRepo) CountByStatus(_ context.Context, statuses ...domain.IssueStatus) (int, error) {
	count := 0
	for _, issue := range r.issues {
		for _, status := range statuses {
			if issue.Status == status {
				count++
				break
			}
		}
	}
	return count, nil
}

func (r *fakeIssueRepo) CountClosedBetween(_ context.Context, from, to time.Time) (int, error) {
	count := 0
	for _, issue := range r.issues {
		if issue.Status != domain.IssueStatusClosed || issue.ClosedAt == nil {
			continue
		}
		if !issue.ClosedAt.Before(from) && !issue.ClosedAt.After(to) {
			count++
		}
	}
	return count, nil
}

func (r *fakeIssueRepo) DeleteWithReplies(_ context.Context, id string) error {
	if _, ok := r.issues[id]; !ok {
		return pgx.ErrNoRows
	}
	r.replies.deleteByIssue(id)
	delete(r.issues, id)
	return nil
}

func (r *fakeIssueRepo) ListExpiredClosed(_ context.Context, cutoff time.Time) ([]string, error) {
	var ids []string
	for id, issue := range r.issues {
		if issue.Status == domain.IssueStatusClosed && issue.ClosedAt != nil && issue.ClosedAt.Before(cutoff) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r *fakeIssueRepo) ListExpiredUnresolved(_ context.Context, cutoff time.Time) ([]string, error) {
	var ids []string
	for id, issue := range r.issues {
		if (issue.Status == domain.IssueStatusPending || issue.Status == domain.IssueStatusInProgress) &&
			issue.CreatedAt.Before(cutoff) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r *fakeIssueRepo) PurgeWithReplies(_ context.Context, ids []string) (int64, error) {
	if r.purgeErr != nil {
		err := r.purgeErr
		r.purgeErr = nil
		return 0, err
	}
	var deleted int64
	for _, id := range ids {
		if _, ok := r.issues[id]; !ok {
			continue
		}
		r.replies.deleteByIssue(id)
		delete(r.issues, id)
		deleted++
	}
	return deleted, nil
}

type fakeSettingRepo struct {
	setting *domain.Setting
}

func (r *fakeSettingRepo) Get(_ context.Context) (*domain.Setting, error) {
	if r.setting == nil {
		return nil, pgx.ErrNoRows
	}
	clone := *r.setting
	return &clone, nil
}

func (r *fakeSettingRepo) Create(_ context.Context, setting *domain.Setting) error {
	setting.ID = "setting-1"
	setting.UpdatedAt = time.Now()
	clone := *setting
	r.setting = &clone
	return nil
}

func (r *fakeSettingRepo) Update(_ context.Context, setting *domain.Setting) error {
	if r.setting == nil || r.setting.ID != setting.ID {
		return pgx.ErrNoRows
	}
	setting.UpdatedAt = time.Now()
	clone := *setting
	r.setting = &clone
	return nil
}
