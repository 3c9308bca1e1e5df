// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, gate, outpass, booking, mess, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeStudentNotFound    = "STUDENT_NOT_FOUND"
	ErrCodeAmbiguousQuery     = "AMBIGUOUS_QUERY"
	ErrCodePreconditionFailed = "PRECONDITION_FAILED"
	ErrCodeRemoteUnavailable  = "REMOTE_UNAVAILABLE"
	ErrCodeOutpassNotFound    = "OUTPASS_NOT_FOUND"
	ErrCodeOutpassConflict    = "OUTPASS_CONFLICT"
	ErrCodeInvalidTimeRange   = "INVALID_TIME_RANGE"
	ErrCodeBedTaken           = "BED_TAKEN"
	ErrCodeBookingExists      = "BOOKING_EXISTS"
	ErrCodeBookingNotFound    = "BOOKING_NOT_FOUND"
	ErrCodeRoomNotFound       = "ROOM_NOT_FOUND"
	ErrCodeInvalidRating      = "INVALID_RATING"
	ErrCodeNoticeNotFound     = "NOTICE_NOT_FOUND"
	ErrCodeForbiddenRole      = "FORBIDDEN_ROLE"
	ErrCodeUserNotFound       = "USER_NOT_FOUND"
	ErrCodeInvalidPhotoURL    = "INVALID_PHOTO_URL"
)

// NewStudentNotFoundError は寮生未検出エラーを生成する。
// 検索クエリに一致する寮生がキャッシュにもリモートにも存在しない場合に返す。
func NewStudentNotFoundError(query string) *APIError {
	return &APIError{
		Code:     ErrCodeStudentNotFound,
		Message:  fmt.Sprintf("該当する寮生が見つかりません: %s", query),
		Category: "gate",
		Action:   "学籍番号またはメールアドレスを確認して再検索してください。",
	}
}

// NewAmbiguousQueryError は後方一致検索が複数件ヒットした場合のエラーを生成する。
// 呼び出し元はリモートフォールバックを行わず、完全なIDの入力を要求すること。
func NewAmbiguousQueryError(query string, count int) *APIError {
	return &APIError{
		Code:     ErrCodeAmbiguousQuery,
		Message:  fmt.Sprintf("'%s' で終わる学籍番号が%d件見つかりました。", query, count),
		Category: "gate",
		Action:   "学籍番号を完全な形で入力してください。",
	}
}

// NewPreconditionFailedError はゲート操作の前提条件違反エラーを生成する。
// 解決済みのOutpassが存在しない状態での打刻試行（二重クリック等）で返す。
func NewPreconditionFailedError() *APIError {
	return &APIError{
		Code:     ErrCodePreconditionFailed,
		Message:  "有効な外出許可証が解決されていません。",
		Category: "gate",
		Action:   "寮生を再検索してから操作をやり直してください。",
	}
}

// NewRemoteUnavailableError はストア問い合わせ/更新失敗エラーを生成する。
// 部分適用された状態を残さず、操作前の状態に復帰した上で返すこと。
func NewRemoteUnavailableError() *APIError {
	return &APIError{
		Code:     ErrCodeRemoteUnavailable,
		Message:  "データストアへの接続に失敗しました。",
		Category: "system",
		Action:   "ネットワークを確認し、しばらく待ってから再度お試しください。",
	}
}

// NewOutpassNotFoundError は外出許可証未検出エラーを生成する。
func NewOutpassNotFoundError(id string) *APIError {
	return &APIError{
		Code:     ErrCodeOutpassNotFound,
		Message:  fmt.Sprintf("指定された外出許可証が見つかりません: %s", id),
		Category: "outpass",
		Action:   "許可証IDを確認してください。",
	}
}

// NewOutpassConflictError は承認済み許可証の重複エラーを生成する。
// 1人の寮生が同時に保持できるapprovedの許可証は最大1件。
func NewOutpassConflictError() *APIError {
	return &APIError{
		Code:     ErrCodeOutpassConflict,
		Message:  "承認済みの外出許可証が既に存在します。",
		Category: "outpass",
		Action:   "既存の許可証が完了してから新しい申請を承認してください。",
	}
}

// NewInvalidTimeRangeError は外出予定時刻の範囲エラーを生成する。
func NewInvalidTimeRangeError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidTimeRange,
		Message:  "帰寮予定時刻は外出予定時刻より後である必要があります。",
		Category: "validation",
		Action:   "外出・帰寮の予定時刻を確認してください。",
	}
}

// NewBedTakenError はベッド占有済みエラーを生成する。
func NewBedTakenError(roomNumber, bedLabel string) *APIError {
	return &APIError{
		Code:     ErrCodeBedTaken,
		Message:  fmt.Sprintf("部屋%sのベッド%sは既に占有されています。", roomNumber, bedLabel),
		Category: "booking",
		Action:   "他の空きベッドを選択してください。",
	}
}

// NewBookingExistsError は入寮申請の重複エラーを生成する。
func NewBookingExistsError() *APIError {
	return &APIError{
		Code:     ErrCodeBookingExists,
		Message:  "有効な入寮申請が既に存在します。",
		Category: "booking",
		Action:   "既存の申請を取り下げてから再度申請してください。",
	}
}

// NewBookingNotFoundError は入寮申請未検出エラーを生成する。
func NewBookingNotFoundError(id string) *APIError {
	return &APIError{
		Code:     ErrCodeBookingNotFound,
		Message:  fmt.Sprintf("指定された入寮申請が見つかりません: %s", id),
		Category: "booking",
		Action:   "申請IDを確認してください。",
	}
}

// NewRoomNotFoundError は部屋未検出エラーを生成する。
func NewRoomNotFoundError(id string) *APIError {
	return &APIError{
		Code:     ErrCodeRoomNotFound,
		Message:  fmt.Sprintf("指定された部屋が見つかりません: %s", id),
		Category: "booking",
		Action:   "部屋IDを確認してください。",
	}
}

// NewInvalidRatingError は食事評価の範囲エラーを生成する。
func NewInvalidRatingError(rating int) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRating,
		Message:  fmt.Sprintf("無効な評価値です: %d", rating),
		Category: "validation",
		Action:   "評価は1から5の整数で指定してください。",
	}
}

// NewNoticeNotFoundError はお知らせ未検出エラーを生成する。
func NewNoticeNotFoundError(id string) *APIError {
	return &APIError{
		Code:     ErrCodeNoticeNotFound,
		Message:  fmt.Sprintf("指定されたお知らせが見つかりません: %s", id),
		Category: "system",
		Action:   "お知らせIDを確認してください。",
	}
}

// NewForbiddenRoleError は権限不足エラーを生成する。
func NewForbiddenRoleError(required Role) *APIError {
	return &APIError{
		Code:     ErrCodeForbiddenRole,
		Message:  fmt.Sprintf("この操作には%s権限が必要です。", required),
		Category: "auth",
		Action:   "権限を持つアカウントでログインし直してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewInvalidPhotoURLError は顔写真URLの検証エラーを生成する。
// プライベートIPやループバック等、安全でない取得先をブロックした場合に返す。
func NewInvalidPhotoURLError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidPhotoURL,
		Message:  fmt.Sprintf("顔写真URLが許可されていません: %s", reason),
		Category: "validation",
		Action:   "公開されているhttpsのURLを指定してください。",
	}
}
