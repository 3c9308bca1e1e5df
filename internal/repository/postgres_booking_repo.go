package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/hostelman/internal/model"
)

// ErrBedTaken は対象ベッドが既に占有されていることを表す。
// サービス層でmodel.APIErrorに変換される。
var ErrBedTaken = errors.New("bed already taken")

// PostgresBookingRepo はPostgreSQLを使用した入寮申請リポジトリ。
type PostgresBookingRepo struct {
	db *sql.DB
}

// NewPostgresBookingRepo はPostgresBookingRepoを生成する。
func NewPostgresBookingRepo(db *sql.DB) *PostgresBookingRepo {
	return &PostgresBookingRepo{db: db}
}

const bookingColumns = `id, user_id, room_id, bed_label, status, created_at, updated_at`

// scanBooking は1行を*model.Bookingに読み取る。
func scanBooking(row interface{ Scan(...any) error }) (*model.Booking, error) {
	b := &model.Booking{}
	err := row.Scan(&b.ID, &b.UserID, &b.RoomID, &b.BedLabel, &b.Status, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// FindByID は指定IDの入寮申請を取得する。見つからない場合はnilを返す。
func (r *PostgresBookingRepo) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
	b, err := scanBooking(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find booking: %w", err)
	}
	return b, nil
}

// FindActiveByUserID は指定寮生のactive（pending/confirmed）な申請を取得する。
// 見つからない場合はnilを返す。
func (r *PostgresBookingRepo) FindActiveByUserID(ctx context.Context, userID string) (*model.Booking, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+bookingColumns+`
		 FROM bookings
		 WHERE user_id = $1 AND status IN ($2, $3)
		 LIMIT 1`,
		userID, model.BookingStatusPending, model.BookingStatusConfirmed)
	b, err := scanBooking(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find active booking: %w", err)
	}
	return b, nil
}

// CreateWithBedClaim は入寮申請の作成とベッドの占有を同一トランザクションで行う。
// ベッドの占有は条件付きUPDATEで行い、2人の寮生が同じベッドを同時に確保できない
// ことをDBレベルで保証する。占有済みの場合はErrBedTakenを返す。
func (r *PostgresBookingRepo) CreateWithBedClaim(ctx context.Context, booking *model.Booking) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE beds SET status = $1
		 WHERE room_id = $2 AND label = $3 AND status = $4`,
		model.BedStatusTaken, booking.RoomID, booking.BedLabel, model.BedStatusAvailable,
	)
	if err != nil {
		return fmt.Errorf("failed to claim bed: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrBedTaken
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO bookings (id, user_id, room_id, bed_label, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		booking.ID, booking.UserID, booking.RoomID, booking.BedLabel,
		booking.Status, booking.CreatedAt, booking.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert booking: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Release は申請を指定ステータスに遷移させ、占有していたベッドを解放する。
// ベッド解放と申請更新は同一トランザクションで行う。冪等ではない:
// 既に解放済みの申請に対してはベッド側の更新が空振りするだけで成功扱いとなる。
func (r *PostgresBookingRepo) Release(ctx context.Context, id string, status model.BookingStatus) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	booking := &model.Booking{}
	err = tx.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = $1 FOR UPDATE`, id,
	).Scan(&booking.ID, &booking.UserID, &booking.RoomID, &booking.BedLabel,
		&booking.Status, &booking.CreatedAt, &booking.UpdatedAt)
	if err == sql.ErrNoRows {
		return fmt.Errorf("booking not found: %s", id)
	}
	if err != nil {
		return fmt.Errorf("failed to lock booking: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE beds SET status = $1 WHERE room_id = $2 AND label = $3`,
		model.BedStatusAvailable, booking.RoomID, booking.BedLabel,
	)
	if err != nil {
		return fmt.Errorf("failed to release bed: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE bookings SET status = $2, updated_at = now() WHERE id = $1`,
		id, status,
	)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// compile-time interface check
var _ BookingRepository = (*PostgresBookingRepo)(nil)
