// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/hostelman/internal/model"
)

// StudentRepository は寮生名簿の永続化インターフェース。
// ゲートキオスクのリモートフォールバック検索と名簿キャッシュのロードを担う。
type StudentRepository interface {
	// FindByID は指定アカウントIDの寮生を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Student, error)

	// FindByStudentID は学籍番号の完全一致で寮生を検索する（limit 1相当）。
	// 与える学籍番号は大文字正規化済みであること。見つからない場合はnilを返す。
	FindByStudentID(ctx context.Context, studentID string) (*model.Student, error)

	// FindByEmail はメールアドレスの完全一致で寮生を検索する（limit 1相当）。
	// 与えるメールアドレスは小文字正規化済みであること。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.Student, error)

	// ListAll は全寮生を返す。名簿キャッシュのロードで使用する。
	// 後方一致検索はリモートでは行わない（フルスキャンになるため）。
	ListAll(ctx context.Context) ([]*model.Student, error)

	// CreateWithIdentity は寮生とidentityを同一トランザクションで作成する。
	CreateWithIdentity(ctx context.Context, student *model.Student, identity *model.Identity) error

	// UpdateProfile は電話番号・保護者電話番号・顔写真URLを更新する。
	UpdateProfile(ctx context.Context, student *model.Student) error
}

// IdentityRepository は外部IdP紐付け情報の永続化インターフェース。
type IdentityRepository interface {
	// FindByProviderAndProviderUserID はproviderとprovider_user_idでidentityを検索する。
	// 見つからない場合はnilを返す。
	FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Identity, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
	// DeleteExpired は期限切れセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context) (int64, error)
}

// OutpassRepository は外出許可証の永続化インターフェース。
// ゲート打刻（MarkGateOut/MarkGateIn）はCAS条件付きの単一行UPDATEで行い、
// 二重打刻レースの敗者には偽を返す。
type OutpassRepository interface {
	// FindByID は指定IDの許可証を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Outpass, error)

	// FindActiveByUserID は指定寮生のapprovedな許可証をrequested_at降順で1件取得する。
	// pending/rejected/completedは対象外。見つからない場合はnilを返す。
	FindActiveByUserID(ctx context.Context, userID string) (*model.Outpass, error)

	// CountApprovedByUserID は指定寮生のapprovedな許可証数を返す。
	// 承認時の単一アクティブ不変条件の検査に使用する。
	CountApprovedByUserID(ctx context.Context, userID string) (int, error)

	// Create は許可証を作成する。
	Create(ctx context.Context, outpass *model.Outpass) error

	// UpdateStatus はステータスのみを更新する（承認/却下）。
	UpdateStatus(ctx context.Context, id string, status model.OutpassStatus) error

	// ListByUserID は指定寮生の許可証をrequested_at降順で返す。
	ListByUserID(ctx context.Context, userID string, limit int) ([]*model.Outpass, error)

	// ListPending は承認待ちの許可証をrequested_at昇順で返す。
	ListPending(ctx context.Context) ([]*model.Outpass, error)

	// MarkGateOut は外出打刻を行う。gate_out_timeにサーバー時刻now()を設定し、
	// ステータスはapprovedのまま維持する。
	// 条件: status = approved かつ gate_out_time IS NULL。
	// 条件を満たす行が存在しない（打刻済み・競合敗北）場合は偽を返す。
	MarkGateOut(ctx context.Context, id string) (bool, error)

	// MarkGateIn は帰寮打刻を行う。gate_in_timeにサーバー時刻now()を設定し、
	// ステータスをcompleted（終端）に遷移させる。
	// 条件: status = approved かつ gate_out_time IS NOT NULL かつ gate_in_time IS NULL。
	// 条件を満たす行が存在しない場合は偽を返す。
	MarkGateIn(ctx context.Context, id string) (bool, error)

	// MarkOverdueCompleted は帰寮予定時刻からgraceを超過したapprovedの許可証を
	// completedに遷移させ、件数を返す。スイープワーカーで使用する。
	MarkOverdueCompleted(ctx context.Context, grace time.Duration) (int64, error)
}

// RoomRepository は部屋・ベッドの永続化インターフェース。
type RoomRepository interface {
	// FindByID は指定IDの部屋をベッド付きで取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Room, error)

	// ListAll は全部屋をベッド付きで部屋番号順に返す。
	// genderが空でない場合は性別区分で絞り込む。
	ListAll(ctx context.Context, gender model.GenderCategory) ([]*model.Room, error)
}

// BookingRepository は入寮申請の永続化インターフェース。
type BookingRepository interface {
	// FindByID は指定IDの入寮申請を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Booking, error)

	// FindActiveByUserID は指定寮生のactive（pending/confirmed）な申請を取得する。
	// 見つからない場合はnilを返す。
	FindActiveByUserID(ctx context.Context, userID string) (*model.Booking, error)

	// CreateWithBedClaim は入寮申請の作成とベッドの占有を同一トランザクションで行う。
	// 対象ベッドが既に占有済みの場合はErrBedTakenを返し、申請は作成されない。
	CreateWithBedClaim(ctx context.Context, booking *model.Booking) error

	// Release は申請を指定ステータス（rejected/vacated）に遷移させ、
	// 占有していたベッドを同一トランザクションで解放する。
	Release(ctx context.Context, id string, status model.BookingStatus) error
}

// MessRepository は献立・食事評価の永続化インターフェース。
type MessRepository interface {
	// ListMenu は全献立を曜日・食事区分順に返す。
	ListMenu(ctx context.Context) ([]*model.MenuEntry, error)

	// UpsertMenuEntry は献立を冪等にUPSERTする（管理者用）。
	UpsertMenuEntry(ctx context.Context, entry *model.MenuEntry) error

	// UpsertRating は食事評価を冪等にUPSERTする。
	// 同一ユーザー×曜日×食事区分の既存評価は上書きされる。
	UpsertRating(ctx context.Context, rating *model.MealRating) error

	// ListRatingsByUser は指定ユーザーの全評価を返す。
	ListRatingsByUser(ctx context.Context, userID string) ([]*model.MealRating, error)
}

// NoticeRepository はお知らせの永続化インターフェース。
type NoticeRepository interface {
	// Create はお知らせを作成する。BodyHTMLはサニタイズ済みであること。
	Create(ctx context.Context, notice *model.Notice) error
	// FindByID は指定IDのお知らせを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Notice, error)
	// ListRecent はお知らせを作成日時降順で返す。
	ListRecent(ctx context.Context, limit int) ([]*model.Notice, error)
	// Delete は指定IDのお知らせを削除する。
	Delete(ctx context.Context, id string) error
}

// NotificationRepository はユーザー通知の永続化インターフェース。
type NotificationRepository interface {
	// Create は通知を作成する。
	Create(ctx context.Context, n *model.Notification) error
	// ListByUserID は指定ユーザーの通知を作成日時降順で返す。
	ListByUserID(ctx context.Context, userID string, limit int) ([]*model.Notification, error)
	// MarkAllRead は指定ユーザーの未読通知を既読化し、件数を返す。
	MarkAllRead(ctx context.Context, userID string) (int64, error)
}

// AuditRepository は監査記録の永続化インターフェース。
type AuditRepository interface {
	// Insert は監査記録を1件書き込む。
	Insert(ctx context.Context, log *model.AuditLog) error
	// DeleteOlderThan は保持日数を超過した監査記録を削除し、件数を返す。
	DeleteOlderThan(ctx context.Context, retentionDays int) (int64, error)
}
