// Package model はドメインモデルを定義する。
package model

import "time"

// Role はポータル利用者の権限区分を表す。
type Role string

const (
	// RoleStudent は寮生。
	RoleStudent Role = "student"
	// RoleWarden は寮監。外出許可の承認権限を持つ。
	RoleWarden Role = "warden"
	// RoleAdmin は管理者。
	RoleAdmin Role = "admin"
	// RoleSecurity は警備員。ゲートキオスクの操作権限を持つ。
	RoleSecurity Role = "security"
)

// Student は寮生の名簿レコードを表す。
// StudentIDは大文字正規化、Emailは小文字正規化された状態で永続化される。
// ゲートキオスクのコアは本レコードを読み取り専用として扱う。
type Student struct {
	ID          string // アカウントID（usersテーブルの主キー）
	StudentID   string // 学籍番号（大文字英数字、ユニーク）
	Email       string // メールアドレス（小文字、ユニーク）
	Name        string
	Role        Role
	Phone       string // 任意
	ParentPhone string // 任意
	PhotoURL    string // 任意。外部ストレージ上の顔写真URL
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Identity は外部IdPとの紐付け情報を表す。
// 複数のIdP（Google等）に対応可能な構造。
type Identity struct {
	ID             string
	UserID         string
	Provider       string
	ProviderUserID string
	CreatedAt      time.Time
}

// Session はユーザーのログインセッションを表す。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}
