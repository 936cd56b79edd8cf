package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/issue-desk/internal/domain"
)

// IssueFilter captures listing parameters.
type IssueFilter struct {
	UserID     *string
	Status     *domain.IssueStatus
	SearchTerm *string
	Limit      int
	Offset     int
}

// IssueWithAuthor pairs an issue with its submitter's public fields.
type IssueWithAuthor struct {
	domain.Issue
	AuthorName  string
	AuthorEmail string
}

// IssueRepository encapsulates issue persistence, including the date-filtered
// batch deletes used by the retention job.
type IssueRepository interface {
	Create(ctx context.Context, issue *domain.Issue) error
	Update(ctx context.Context, issue *domain.Issue) error
	GetByID(ctx context.Context, id string) (*domain.Issue, error)
	List(ctx context.Context, filter IssueFilter) ([]IssueWithAuthor, error)
	Count(ctx context.Context, filter IssueFilter) (int, error)
	CountCreatedBetween(ctx context.Context, userID string, from, to time.Time) (int, error)
	CountByStatus(ctx context.Context, statuses ...domain.IssueStatus) (int, error)
	CountClosedBetween(ctx context.Context, from, to time.Time) (int, error)
	DeleteWithReplies(ctx context.Context, id string) error
	ListExpiredClosed(ctx context.Context, cutoff time.Time) ([]string, error)
	ListExpiredUnresolved(ctx context.Context, cutoff time.Time) ([]string, error)
	PurgeWithReplies(ctx context.Context, ids []string) (int64, error)
}

type issueRepository struct {
	pool *pgxpool.Pool
}

// NewIssueRepository instantiates repository.
func NewIssueRepository(pool *pgxpool.Pool) IssueRepository {
	return &issueRepository{pool: pool}
}

func (r *issueRepository) Create(ctx context.Context, issue *domain.Issue) error {
	const query = `
        INSERT INTO issues (title, description, status, user_id)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		issue.Title,
		issue.Description,
		issue.Status,
		issue.UserID,
	).Scan(&issue.ID, &issue.CreatedAt, &issue.UpdatedAt)
}

func (r *issueRepository) Update(ctx context.Context, issue *domain.Issue) error {
	const query = `
        UPDATE issues SET status=$1, closed_at=$2, updated_at=NOW()
        WHERE id=$3
        RETURNING updated_at`
	return r.pool.QueryRow(ctx, query,
		issue.Status,
		issue.ClosedAt,
		issue.ID,
	).Scan(&issue.UpdatedAt)
}

func (r *issueRepository) GetByID(ctx context.Context, id string) (*domain.Issue, error) {
	const query = `
        SELECT id, title, description, status, user_id, created_at, updated_at, closed_at
        FROM issues WHERE id=$1`

	var issue domain.Issue
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&issue.ID,
		&issue.Title,
		&issue.Description,
		&issue.Status,
		&issue.UserID,
		&issue.CreatedAt,
		&issue.UpdatedAt,
		&issue.ClosedAt,
	); err != nil {
		return nil, err
	}
	return &issue, nil
}

func (r *issueRepository) List(ctx context.Context, filter IssueFilter) ([]IssueWithAuthor, error) {
	base := `SELECT i.id, i.title, i.description, i.status, i.user_id,
                    i.created_at, i.updated_at, i.closed_at, u.name, u.email
             FROM issues i JOIN users u ON u.id = i.user_id`
	clauses, args := filterClauses(filter)

	limit := filter.Limit
	if limit <= 0 {
		limit = 10
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY i.created_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanIssues(rows)
}

func (r *issueRepository) Count(ctx context.Context, filter IssueFilter) (int, error) {
	clauses, args := filterClauses(filter)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM issues i WHERE %s`, strings.Join(clauses, " AND "))

	var count int
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *issueRepository) CountCreatedBetween(ctx context.Context, userID string, from, to time.Time) (int, error) {
	const query = `
        SELECT COUNT(*) FROM issues
        WHERE user_id=$1 AND created_at >= $2 AND created_at <= $3`

	var count int
	if err := r.pool.QueryRow(ctx, query, userID, from, to).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *issueRepository) CountByStatus(ctx context.Context, statuses ...domain.IssueStatus) (int, error) {
	const query = `SELECT COUNT(*) FROM issues WHERE status = ANY($1)`

	values := make([]string, len(statuses))
	for i, status := range statuses {
		values[i] = string(status)
	}

	var count int
	if err := r.pool.QueryRow(ctx, query, values).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *issueRepository) CountClosedBetween(ctx context.Context, from, to time.Time) (int, error) {
	const query = `
        SELECT COUNT(*) FROM issues
        WHERE status=$1 AND closed_at >= $2 AND closed_at <= $3`

	var count int
	if err := r.pool.QueryRow(ctx, query, domain.IssueStatusClosed, from, to).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// DeleteWithReplies removes one issue and its replies atomically.
func (r *issueRepository) DeleteWithReplies(ctx context.Context, id string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM replies WHERE issue_id=$1`, id); err != nil {
		return err
	}
	cmd, err := tx.Exec(ctx, `DELETE FROM issues WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return tx.Commit(ctx)
}

func (r *issueRepository) ListExpiredClosed(ctx context.Context, cutoff time.Time) ([]string, error) {
	const query = `
        SELECT id FROM issues
        WHERE status=$1 AND closed_at < $2`
	return r.listIDs(ctx, query, domain.IssueStatusClosed, cutoff)
}

func (r *issueRepository) ListExpiredUnresolved(ctx context.Context, cutoff time.Time) ([]string, error) {
	const query = `
        SELECT id FROM issues
        WHERE status = ANY($1) AND created_at < $2`
	statuses := []string{string(domain.IssueStatusPending), string(domain.IssueStatusInProgress)}
	return r.listIDs(ctx, query, statuses, cutoff)
}

// PurgeWithReplies removes the given issues and all their replies in a single
// transaction, returning the number of issues deleted.
func (r *issueRepository) PurgeWithReplies(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM replies WHERE issue_id = ANY($1::uuid[])`, ids); err != nil {
		return 0, err
	}
	cmd, err := tx.Exec(ctx, `DELETE FROM issues WHERE id = ANY($1::uuid[])`, ids)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *issueRepository) listIDs(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func filterClauses(filter IssueFilter) ([]string, []any) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		clauses = append(clauses, fmt.Sprintf("i.user_id=$%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("i.status=$%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(i.title) LIKE %s OR LOWER(i.description) LIKE %s)", placeholder, placeholder))
	}
	return clauses, args
}

func scanIssues(rows pgx.Rows) ([]IssueWithAuthor, error) {
	var result []IssueWithAuthor
	for rows.Next() {
		var item IssueWithAuthor
		if err := rows.Scan(
			&item.ID,
			&item.Title,
			&item.Description,
			&item.Status,
			&item.UserID,
			&item.CreatedAt,
			&item.UpdatedAt,
			&item.ClosedAt,
			&item.AuthorName,
			&item.AuthorEmail,
		); err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	return result, rows.Err()
}
