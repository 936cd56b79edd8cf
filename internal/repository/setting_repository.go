package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/issue-desk/internal/domain"
)

// SettingRepository persists the singleton configuration record. Get returns
// pgx.ErrNoRows when the row does not exist yet.
type SettingRepository interface {
	Get(ctx context.Context) (*domain.Setting, error)
	Create(ctx context.Context, setting *domain.Setting) error
	Update(ctx context.Context, setting *domain.Setting) error
}

type settingRepository struct {
	pool *pgxpool.Pool
}

// NewSettingRepository builds repository.
func NewSettingRepository(pool *pgxpool.Pool) SettingRepository {
	return &settingRepository{pool: pool}
}

func (r *settingRepository) Get(ctx context.Context) (*domain.Setting, error) {
	const query = `
        SELECT id, closed_issue_delete_days, pending_issue_delete_days, daily_issue_limit, updated_at
        FROM settings ORDER BY updated_at ASC LIMIT 1`

	var setting domain.Setting
	if err := r.pool.QueryRow(ctx, query).Scan(
		&setting.ID,
		&setting.ClosedIssueDeleteDays,
		&setting.PendingIssueDeleteDays,
		&setting.DailyIssueLimit,
		&setting.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &setting, nil
}

func (r *settingRepository) Create(ctx context.Context, setting *domain.Setting) error {
	const query = `
        INSERT INTO settings (closed_issue_delete_days, pending_issue_delete_days, daily_issue_limit)
        VALUES ($1,$2,$3)
        RETURNING id, updated_at`
	return r.pool.QueryRow(ctx, query,
		setting.ClosedIssueDeleteDays,
		setting.PendingIssueDeleteDays,
		setting.DailyIssueLimit,
	).Scan(&setting.ID, &setting.UpdatedAt)
}

func (r *settingRepository) Update(ctx context.Context, setting *domain.Setting) error {
	const query = `
        UPDATE settings SET closed_issue_delete_days=$1, pending_issue_delete_days=$2,
            daily_issue_limit=$3, updated_at=NOW()
        WHERE id=$4
        RETURNING updated_at`
	return r.pool.QueryRow(ctx, query,
		setting.ClosedIssueDeleteDays,
		setting.PendingIssueDeleteDays,
		setting.DailyIssueLimit,
		setting.ID,
	).Scan(&setting.UpdatedAt)
}
