// Package model はドメインモデルを定義する。
package model

import "time"

// OutpassStatus は外出許可証のステータスを表す。
type OutpassStatus string

const (
	// OutpassStatusPending は承認待ち状態。
	OutpassStatusPending OutpassStatus = "pending"
	// OutpassStatusApproved は承認済み状態。ゲートキオスクが参照する唯一のステータス。
	OutpassStatusApproved OutpassStatus = "approved"
	// OutpassStatusRejected は却下状態。
	OutpassStatusRejected OutpassStatus = "rejected"
	// OutpassStatusCompleted は往復完了状態（終端）。
	// 帰寮打刻（gate_in_time）と同時に遷移し、以降キオスクの検索対象から外れる。
	OutpassStatusCompleted OutpassStatus = "completed"
)

// Outpass は時限付きの外出許可証を表す。
// 不変条件: 1人の寮生が同時に保持できるapprovedのOutpassは最大1件
// （承認フロー側で保証される。キオスクのコアはこれに依存し、
// 万一複数存在する場合はrequested_at降順の先頭を採用する）。
type Outpass struct {
	ID          string
	UserID      string // 申請者のアカウントID
	Reason      string
	FromTime    time.Time // 外出予定時刻
	ToTime      time.Time // 帰寮予定時刻
	Status      OutpassStatus
	GateOutTime *time.Time // 実際の外出打刻。未打刻ならnil
	GateInTime  *time.Time // 実際の帰寮打刻。未打刻ならnil
	RequestedAt time.Time
	UpdatedAt   time.Time
}

// HasLeft は外出打刻が済んでいるかを返す。
func (o *Outpass) HasLeft() bool {
	return o.GateOutTime != nil
}

// HasReturned は帰寮打刻が済んでいるかを返す。
func (o *Outpass) HasReturned() bool {
	return o.GateInTime != nil
}
