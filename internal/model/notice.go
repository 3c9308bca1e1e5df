// Package model はドメインモデルを定義する。
package model

import "time"

// Notice は管理者が掲示するお知らせを表す。
// BodyHTMLはサニタイズ済みのHTMLとして保存される。
type Notice struct {
	ID        string
	AuthorID  string
	Title     string
	BodyHTML  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Notification はユーザー個別の通知を表す。
type Notification struct {
	ID        string
	UserID    string
	Message   string
	IsRead    bool
	CreatedAt time.Time
}

// AuditLog は重要操作の監査記録を表す。
// 書き込みはfire-and-forgetで行われ、失敗しても呼び出し元の処理を妨げない。
type AuditLog struct {
	ID         string
	ActorID    string
	ActorEmail string
	Action     string // 大文字スネークケース（例: GATE_OUT, APPROVE_OUTPASS）
	TargetID   string
	TargetType string // 例: outpass, user, booking
	Details    string // JSON文字列。空の場合は "{}"
	CreatedAt  time.Time
}
