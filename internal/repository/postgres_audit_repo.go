package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/hostelman/internal/model"
)

// PostgresAuditRepo はPostgreSQLを使用した監査記録リポジトリ。
type PostgresAuditRepo struct {
	db *sql.DB
}

// NewPostgresAuditRepo はPostgresAuditRepoを生成する。
func NewPostgresAuditRepo(db *sql.DB) *PostgresAuditRepo {
	return &PostgresAuditRepo{db: db}
}

// Insert は監査記録を1件書き込む。created_atはサーバー時刻now()で解決される。
func (r *PostgresAuditRepo) Insert(ctx context.Context, log *model.AuditLog) error {
	details := log.Details
	if details == "" {
		details = "{}"
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_logs (id, actor_id, actor_email, action, target_id, target_type, details, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, now())`,
		log.ID, log.ActorID, log.ActorEmail, log.Action, log.TargetID, log.TargetType, details,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}
	return nil
}

// DeleteOlderThan は保持日数を超過した監査記録を削除し、件数を返す。冪等。
func (r *PostgresAuditRepo) DeleteOlderThan(ctx context.Context, retentionDays int) (int64, error) {
	interval := fmt.Sprintf("%d days", retentionDays)
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM audit_logs WHERE created_at < now() - $1::interval`,
		interval,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old audit logs: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected, nil
}

// compile-time interface check
var _ AuditRepository = (*PostgresAuditRepo)(nil)
