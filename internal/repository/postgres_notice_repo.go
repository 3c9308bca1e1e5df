package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/hostelman/internal/model"
)

// PostgresNoticeRepo はPostgreSQLを使用したお知らせリポジトリ。
type PostgresNoticeRepo struct {
	db *sql.DB
}

// NewPostgresNoticeRepo はPostgresNoticeRepoを生成する。
func NewPostgresNoticeRepo(db *sql.DB) *PostgresNoticeRepo {
	return &PostgresNoticeRepo{db: db}
}

// Create はお知らせを作成する。BodyHTMLはサニタイズ済みであること。
func (r *PostgresNoticeRepo) Create(ctx context.Context, notice *model.Notice) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO notices (id, author_id, title, body_html, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		notice.ID, notice.AuthorID, notice.Title, notice.BodyHTML,
		notice.CreatedAt, notice.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert notice: %w", err)
	}
	return nil
}

// FindByID は指定IDのお知らせを取得する。見つからない場合はnilを返す。
func (r *PostgresNoticeRepo) FindByID(ctx context.Context, id string) (*model.Notice, error) {
	n := &model.Notice{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, author_id, title, body_html, created_at, updated_at
		 FROM notices WHERE id = $1`,
		id,
	).Scan(&n.ID, &n.AuthorID, &n.Title, &n.BodyHTML, &n.CreatedAt, &n.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find notice: %w", err)
	}
	return n, nil
}

// ListRecent はお知らせを作成日時降順で返す。
func (r *PostgresNoticeRepo) ListRecent(ctx context.Context, limit int) ([]*model.Notice, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, author_id, title, body_html, created_at, updated_at
		 FROM notices
		 ORDER BY created_at DESC
		 LIMIT $1`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notices: %w", err)
	}
	defer rows.Close()

	var notices []*model.Notice
	for rows.Next() {
		n := &model.Notice{}
		if err := rows.Scan(&n.ID, &n.AuthorID, &n.Title, &n.BodyHTML, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notice row: %w", err)
		}
		notices = append(notices, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate notice rows: %w", err)
	}
	return notices, nil
}

// Delete は指定IDのお知らせを削除する。
func (r *PostgresNoticeRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM notices WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete notice: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("notice not found: %s", id)
	}
	return nil
}

// compile-time interface check
var _ NoticeRepository = (*PostgresNoticeRepo)(nil)

// PostgresNotificationRepo はPostgreSQLを使用したユーザー通知リポジトリ。
type PostgresNotificationRepo struct {
	db *sql.DB
}

// NewPostgresNotificationRepo はPostgresNotificationRepoを生成する。
func NewPostgresNotificationRepo(db *sql.DB) *PostgresNotificationRepo {
	return &PostgresNotificationRepo{db: db}
}

// Create は通知を作成する。
func (r *PostgresNotificationRepo) Create(ctx context.Context, n *model.Notification) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO notifications (id, user_id, message, is_read, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		n.ID, n.UserID, n.Message, n.IsRead, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

// ListByUserID は指定ユーザーの通知を作成日時降順で返す。
func (r *PostgresNotificationRepo) ListByUserID(ctx context.Context, userID string, limit int) ([]*model.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, message, is_read, created_at
		 FROM notifications
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*model.Notification
	for rows.Next() {
		n := &model.Notification{}
		if err := rows.Scan(&n.ID, &n.UserID, &n.Message, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification row: %w", err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate notification rows: %w", err)
	}
	return notifications, nil
}

// MarkAllRead は指定ユーザーの未読通知を既読化し、件数を返す。冪等。
func (r *PostgresNotificationRepo) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND is_read = FALSE`,
		userID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected, nil
}

// compile-time interface check
var _ NotificationRepository = (*PostgresNotificationRepo)(nil)
