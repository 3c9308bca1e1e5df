package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/hostelman/internal/model"
)

// PostgresMessRepo はPostgreSQLを使用した献立・食事評価リポジトリ。
type PostgresMessRepo struct {
	db *sql.DB
}

// NewPostgresMessRepo はPostgresMessRepoを生成する。
func NewPostgresMessRepo(db *sql.DB) *PostgresMessRepo {
	return &PostgresMessRepo{db: db}
}

// ListMenu は全献立を曜日・食事区分順に返す。
func (r *PostgresMessRepo) ListMenu(ctx context.Context) ([]*model.MenuEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, weekday, slot, item, is_special, updated_at
		 FROM mess_menu
		 ORDER BY weekday, slot`)
	if err != nil {
		return nil, fmt.Errorf("failed to list menu: %w", err)
	}
	defer rows.Close()

	var entries []*model.MenuEntry
	for rows.Next() {
		e := &model.MenuEntry{}
		var weekday int
		if err := rows.Scan(&e.ID, &weekday, &e.Slot, &e.Item, &e.IsSpecial, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan menu row: %w", err)
		}
		e.Weekday = time.Weekday(weekday)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate menu rows: %w", err)
	}
	return entries, nil
}

// UpsertMenuEntry は献立を冪等にUPSERTする（管理者用）。
// 曜日×食事区分をユニークキーとして上書きする。
func (r *PostgresMessRepo) UpsertMenuEntry(ctx context.Context, entry *model.MenuEntry) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO mess_menu (id, weekday, slot, item, is_special, updated_at)
		 VALUES ($1, $2, $3, $4, $5, now())
		 ON CONFLICT (weekday, slot) DO UPDATE SET
			item = EXCLUDED.item,
			is_special = EXCLUDED.is_special,
			updated_at = now()`,
		entry.ID, int(entry.Weekday), entry.Slot, entry.Item, entry.IsSpecial,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert menu entry: %w", err)
	}
	return nil
}

// UpsertRating は食事評価を冪等にUPSERTする。
// 同一ユーザー×曜日×食事区分の既存評価は上書きされる。
func (r *PostgresMessRepo) UpsertRating(ctx context.Context, rating *model.MealRating) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO meal_ratings (id, user_id, weekday, slot, rating, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, now(), now())
		 ON CONFLICT (user_id, weekday, slot) DO UPDATE SET
			rating = EXCLUDED.rating,
			updated_at = now()`,
		rating.ID, rating.UserID, int(rating.Weekday), rating.Slot, rating.Rating,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert meal rating: %w", err)
	}
	return nil
}

// ListRatingsByUser は指定ユーザーの全評価を返す。
func (r *PostgresMessRepo) ListRatingsByUser(ctx context.Context, userID string) ([]*model.MealRating, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, weekday, slot, rating, created_at, updated_at
		 FROM meal_ratings
		 WHERE user_id = $1
		 ORDER BY weekday, slot`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list meal ratings: %w", err)
	}
	defer rows.Close()

	var ratings []*model.MealRating
	for rows.Next() {
		m := &model.MealRating{}
		var weekday int
		if err := rows.Scan(&m.ID, &m.UserID, &weekday, &m.Slot, &m.Rating, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan meal rating row: %w", err)
		}
		m.Weekday = time.Weekday(weekday)
		ratings = append(ratings, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate meal rating rows: %w", err)
	}
	return ratings, nil
}

// compile-time interface check
var _ MessRepository = (*PostgresMessRepo)(nil)
