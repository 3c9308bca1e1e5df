package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/hostelman/internal/model"
)

// PostgresRoomRepo はPostgreSQLを使用した部屋リポジトリ。
type PostgresRoomRepo struct {
	db *sql.DB
}

// NewPostgresRoomRepo はPostgresRoomRepoを生成する。
func NewPostgresRoomRepo(db *sql.DB) *PostgresRoomRepo {
	return &PostgresRoomRepo{db: db}
}

// FindByID は指定IDの部屋をベッド付きで取得する。見つからない場合はnilを返す。
func (r *PostgresRoomRepo) FindByID(ctx context.Context, id string) (*model.Room, error) {
	room := &model.Room{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, room_number, gender, created_at, updated_at FROM rooms WHERE id = $1`,
		id,
	).Scan(&room.ID, &room.RoomNumber, &room.Gender, &room.CreatedAt, &room.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find room: %w", err)
	}

	beds, err := r.listBeds(ctx, room.ID)
	if err != nil {
		return nil, err
	}
	room.Beds = beds
	return room, nil
}

// ListAll は全部屋をベッド付きで部屋番号順に返す。
// genderが空でない場合は性別区分で絞り込む。
// 部屋数は高々数百件のため、ベッドは1クエリでまとめて取得して分配する。
func (r *PostgresRoomRepo) ListAll(ctx context.Context, gender model.GenderCategory) ([]*model.Room, error) {
	query := `SELECT id, room_number, gender, created_at, updated_at FROM rooms`
	args := []any{}
	if gender != "" {
		query += ` WHERE gender = $1`
		args = append(args, gender)
	}
	query += ` ORDER BY room_number`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	defer rows.Close()

	var rooms []*model.Room
	byID := map[string]*model.Room{}
	for rows.Next() {
		room := &model.Room{}
		if err := rows.Scan(&room.ID, &room.RoomNumber, &room.Gender, &room.CreatedAt, &room.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan room row: %w", err)
		}
		rooms = append(rooms, room)
		byID[room.ID] = room
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate room rows: %w", err)
	}

	bedRows, err := r.db.QueryContext(ctx,
		`SELECT room_id, label, status FROM beds ORDER BY room_id, label`)
	if err != nil {
		return nil, fmt.Errorf("failed to list beds: %w", err)
	}
	defer bedRows.Close()

	for bedRows.Next() {
		var bed model.Bed
		if err := bedRows.Scan(&bed.RoomID, &bed.Label, &bed.Status); err != nil {
			return nil, fmt.Errorf("failed to scan bed row: %w", err)
		}
		if room, ok := byID[bed.RoomID]; ok {
			room.Beds = append(room.Beds, bed)
		}
	}
	if err := bedRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bed rows: %w", err)
	}

	return rooms, nil
}

// listBeds は指定部屋のベッドをラベル順に返す。
func (r *PostgresRoomRepo) listBeds(ctx context.Context, roomID string) ([]model.Bed, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT room_id, label, status FROM beds WHERE room_id = $1 ORDER BY label`,
		roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to list beds: %w", err)
	}
	defer rows.Close()

	var beds []model.Bed
	for rows.Next() {
		var bed model.Bed
		if err := rows.Scan(&bed.RoomID, &bed.Label, &bed.Status); err != nil {
			return nil, fmt.Errorf("failed to scan bed row: %w", err)
		}
		beds = append(beds, bed)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bed rows: %w", err)
	}
	return beds, nil
}

// compile-time interface check
var _ RoomRepository = (*PostgresRoomRepo)(nil)
