package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/hostelman/internal/model"
)

// PostgresOutpassRepo はPostgreSQLを使用した外出許可証リポジトリ。
type PostgresOutpassRepo struct {
	db *sql.DB
}

// NewPostgresOutpassRepo はPostgresOutpassRepoを生成する。
func NewPostgresOutpassRepo(db *sql.DB) *PostgresOutpassRepo {
	return &PostgresOutpassRepo{db: db}
}

const outpassColumns = `id, user_id, reason, from_time, to_time, status, gate_out_time, gate_in_time, requested_at, updated_at`

// scanOutpass は1行を*model.Outpassに読み取る。
func scanOutpass(row interface{ Scan(...any) error }) (*model.Outpass, error) {
	o := &model.Outpass{}
	err := row.Scan(
		&o.ID, &o.UserID, &o.Reason, &o.FromTime, &o.ToTime,
		&o.Status, &o.GateOutTime, &o.GateInTime, &o.RequestedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return o, nil
}

// FindByID は指定IDの許可証を取得する。見つからない場合はnilを返す。
func (r *PostgresOutpassRepo) FindByID(ctx context.Context, id string) (*model.Outpass, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+outpassColumns+` FROM outpasses WHERE id = $1`, id)
	o, err := scanOutpass(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find outpass by ID: %w", err)
	}
	return o, nil
}

// FindActiveByUserID は指定寮生のapprovedな許可証をrequested_at降順で1件取得する。
// 許可証は低頻度かつ正確性重視のためキャッシュせず、常にストアへ問い合わせる。
// 見つからない場合はnilを返す。
func (r *PostgresOutpassRepo) FindActiveByUserID(ctx context.Context, userID string) (*model.Outpass, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+outpassColumns+`
		 FROM outpasses
		 WHERE user_id = $1 AND status = $2
		 ORDER BY requested_at DESC
		 LIMIT 1`,
		userID, model.OutpassStatusApproved)
	o, err := scanOutpass(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find active outpass: %w", err)
	}
	return o, nil
}

// CountApprovedByUserID は指定寮生のapprovedな許可証数を返す。
func (r *PostgresOutpassRepo) CountApprovedByUserID(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM outpasses WHERE user_id = $1 AND status = $2`,
		userID, model.OutpassStatusApproved,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count approved outpasses: %w", err)
	}
	return count, nil
}

// Create は許可証を作成する。
func (r *PostgresOutpassRepo) Create(ctx context.Context, outpass *model.Outpass) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO outpasses (id, user_id, reason, from_time, to_time, status, requested_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		outpass.ID, outpass.UserID, outpass.Reason, outpass.FromTime, outpass.ToTime,
		outpass.Status, outpass.RequestedAt, outpass.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert outpass: %w", err)
	}
	return nil
}

// UpdateStatus はステータスのみを更新する（承認/却下）。
func (r *PostgresOutpassRepo) UpdateStatus(ctx context.Context, id string, status model.OutpassStatus) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE outpasses SET status = $2, updated_at = now() WHERE id = $1`,
		id, status,
	)
	if err != nil {
		return fmt.Errorf("failed to update outpass status: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("outpass not found: %s", id)
	}
	return nil
}

// ListByUserID は指定寮生の許可証をrequested_at降順で返す。
func (r *PostgresOutpassRepo) ListByUserID(ctx context.Context, userID string, limit int) ([]*model.Outpass, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+outpassColumns+`
		 FROM outpasses
		 WHERE user_id = $1
		 ORDER BY requested_at DESC
		 LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list outpasses: %w", err)
	}
	defer rows.Close()
	return collectOutpasses(rows)
}

// ListPending は承認待ちの許可証をrequested_at昇順で返す。
func (r *PostgresOutpassRepo) ListPending(ctx context.Context) ([]*model.Outpass, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+outpassColumns+`
		 FROM outpasses
		 WHERE status = $1
		 ORDER BY requested_at ASC`,
		model.OutpassStatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending outpasses: %w", err)
	}
	defer rows.Close()
	return collectOutpasses(rows)
}

// collectOutpasses は結果セットを読み切って返す。
func collectOutpasses(rows *sql.Rows) ([]*model.Outpass, error) {
	var outpasses []*model.Outpass
	for rows.Next() {
		o, err := scanOutpass(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan outpass row: %w", err)
		}
		outpasses = append(outpasses, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate outpass rows: %w", err)
	}
	return outpasses, nil
}

// MarkGateOut は外出打刻を行う。タイムスタンプはクライアント時計ではなく
// サーバー側のnow()で解決される。WHERE句のgate_out_time IS NULL条件により、
// 2台のキオスクが同一許可証を同時処理した場合でも後着の打刻は空振りして偽が返る。
func (r *PostgresOutpassRepo) MarkGateOut(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE outpasses
		 SET gate_out_time = now(), updated_at = now()
		 WHERE id = $1 AND status = $2 AND gate_out_time IS NULL`,
		id, model.OutpassStatusApproved,
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark gate out: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// MarkGateIn は帰寮打刻を行い、ステータスをcompleted（終端）に遷移させる。
// 以降この許可証はFindActiveByUserIDの検索条件を満たさなくなる。
func (r *PostgresOutpassRepo) MarkGateIn(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE outpasses
		 SET gate_in_time = now(), status = $2, updated_at = now()
		 WHERE id = $1 AND status = $3 AND gate_out_time IS NOT NULL AND gate_in_time IS NULL`,
		id, model.OutpassStatusCompleted, model.OutpassStatusApproved,
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark gate in: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// MarkOverdueCompleted は帰寮予定時刻からgraceを超過したapprovedの許可証を
// completedに遷移させ、件数を返す。冪等。
func (r *PostgresOutpassRepo) MarkOverdueCompleted(ctx context.Context, grace time.Duration) (int64, error) {
	interval := fmt.Sprintf("%d seconds", int(grace.Seconds()))
	result, err := r.db.ExecContext(ctx,
		`UPDATE outpasses
		 SET status = $1, updated_at = now()
		 WHERE status = $2 AND to_time < now() - $3::interval`,
		model.OutpassStatusCompleted, model.OutpassStatusApproved, interval,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to mark overdue outpasses: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected, nil
}

// compile-time interface check
var _ OutpassRepository = (*PostgresOutpassRepo)(nil)
