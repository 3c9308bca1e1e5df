package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/hostelman/internal/model"
)

// PostgresStudentRepo はPostgreSQLを使用した寮生名簿リポジトリ。
type PostgresStudentRepo struct {
	db *sql.DB
}

// NewPostgresStudentRepo はPostgresStudentRepoを生成する。
func NewPostgresStudentRepo(db *sql.DB) *PostgresStudentRepo {
	return &PostgresStudentRepo{db: db}
}

const studentColumns = `id, student_id, email, name, role, phone, parent_phone, photo_url, created_at, updated_at`

// scanStudent は1行を*model.Studentに読み取る。
func scanStudent(row interface{ Scan(...any) error }) (*model.Student, error) {
	s := &model.Student{}
	err := row.Scan(
		&s.ID, &s.StudentID, &s.Email, &s.Name, &s.Role,
		&s.Phone, &s.ParentPhone, &s.PhotoURL, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// FindByID は指定アカウントIDの寮生を取得する。見つからない場合はnilを返す。
func (r *PostgresStudentRepo) FindByID(ctx context.Context, id string) (*model.Student, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+studentColumns+` FROM users WHERE id = $1`, id)
	s, err := scanStudent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find student by ID: %w", err)
	}
	return s, nil
}

// FindByStudentID は学籍番号の完全一致で寮生を検索する。見つからない場合はnilを返す。
// 学籍番号は保存時に大文字正規化されているため、呼び出し側も大文字で与えること。
func (r *PostgresStudentRepo) FindByStudentID(ctx context.Context, studentID string) (*model.Student, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+studentColumns+` FROM users WHERE student_id = $1 LIMIT 1`, studentID)
	s, err := scanStudent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find student by student ID: %w", err)
	}
	return s, nil
}

// FindByEmail はメールアドレスの完全一致で寮生を検索する。見つからない場合はnilを返す。
func (r *PostgresStudentRepo) FindByEmail(ctx context.Context, email string) (*model.Student, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+studentColumns+` FROM users WHERE email = $1 LIMIT 1`, email)
	s, err := scanStudent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find student by email: %w", err)
	}
	return s, nil
}

// ListAll は全寮生を返す。名簿キャッシュのロードで使用する。
func (r *PostgresStudentRepo) ListAll(ctx context.Context) ([]*model.Student, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+studentColumns+` FROM users ORDER BY student_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	defer rows.Close()

	var students []*model.Student
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan student row: %w", err)
		}
		students = append(students, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate student rows: %w", err)
	}
	return students, nil
}

// CreateWithIdentity は寮生とidentityを同一トランザクションで作成する。
func (r *PostgresStudentRepo) CreateWithIdentity(ctx context.Context, student *model.Student, identity *model.Identity) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO users (id, student_id, email, name, role, phone, parent_phone, photo_url, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		student.ID, student.StudentID, student.Email, student.Name, student.Role,
		student.Phone, student.ParentPhone, student.PhotoURL, student.CreatedAt, student.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO identities (id, user_id, provider, provider_user_id, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		identity.ID, identity.UserID, identity.Provider, identity.ProviderUserID, identity.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert identity: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// UpdateProfile は電話番号・保護者電話番号・顔写真URLを更新する。
func (r *PostgresStudentRepo) UpdateProfile(ctx context.Context, student *model.Student) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users
		 SET phone = $2, parent_phone = $3, photo_url = $4, updated_at = now()
		 WHERE id = $1`,
		student.ID, student.Phone, student.ParentPhone, student.PhotoURL,
	)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("user not found: %s", student.ID)
	}
	return nil
}

// compile-time interface check
var _ StudentRepository = (*PostgresStudentRepo)(nil)
