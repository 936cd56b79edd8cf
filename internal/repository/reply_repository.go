package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/issue-desk/internal/domain"
)

// ReplyWithAuthor pairs a reply with its author's public fields.
type ReplyWithAuthor struct {
	domain.Reply
	AuthorName  string
	AuthorEmail string
	AuthorRole  domain.Role
}

// ReplyRepository manages issue thread replies.
type ReplyRepository interface {
	Create(ctx context.Context, reply *domain.Reply) error
	ListByIssue(ctx context.Context, issueID string) ([]ReplyWithAuthor, error)
}

type replyRepository struct {
	pool *pgxpool.Pool
}

// NewReplyRepository builds repository.
func NewReplyRepository(pool *pgxpool.Pool) ReplyRepository {
	return &replyRepository{pool: pool}
}

func (r *replyRepository) Create(ctx context.Context, reply *domain.Reply) error {
	const query = `
        INSERT INTO replies (content, user_id, issue_id, is_admin)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		reply.Content,
		reply.UserID,
		reply.IssueID,
		reply.IsAdmin,
	).Scan(&reply.ID, &reply.CreatedAt)
}

func (r *replyRepository) ListByIssue(ctx context.Context, issueID string) ([]ReplyWithAuthor, error) {
	const query = `
        SELECT r.id, r.content, r.user_id, r.issue_id, r.is_admin, r.created_at,
               u.name, u.email, u.role
        FROM replies r JOIN users u ON u.id = r.user_id
        WHERE r.issue_id=$1 ORDER BY r.created_at ASC`
	rows, err := r.pool.Query(ctx, query, issueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ReplyWithAuthor
	for rows.Next() {
		var reply ReplyWithAuthor
		if err := rows.Scan(
			&reply.ID,
			&reply.Content,
			&reply.UserID,
			&reply.IssueID,
			&reply.IsAdmin,
			&reply.CreatedAt,
			&reply.AuthorName,
			&reply.AuthorEmail,
			&reply.AuthorRole,
		); err != nil {
			return nil, err
		}
		result = append(result, reply)
	}
	return result, rows.Err()
}
