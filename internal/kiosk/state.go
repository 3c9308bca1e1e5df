// Package kiosk はゲートキオスクのコアロジックを提供する。
// 名簿キャッシュ、寮生解決、外出許可証の解決、チェックポイント状態機械、
// スキャン入力の正規化から構成される。
package kiosk

import "github.com/hitoshi/hostelman/internal/model"

// State はチェックポイントで観測される寮生の状態を表す。
type State string

const (
	// StateNoPass は有効な許可証が存在しない初期状態。
	// completedやrejectedしかない場合もここに戻る（周期的な状態機械）。
	StateNoPass State = "NO_PASS"
	// StateApprovedToLeave は承認済みで未外出の状態。外出打刻のみ可能。
	StateApprovedToLeave State = "APPROVED_TO_LEAVE"
	// StateOnLeave は外出中の状態。帰寮打刻のみ可能。
	StateOnLeave State = "ON_LEAVE"
	// StateReturned は往復完了状態。新しい操作についてはNO_PASSと等価に扱う。
	StateReturned State = "RETURNED"
)

// Action はゲートで実行できる打刻操作を表す。
type Action string

const (
	// ActionOut は外出打刻。gate_out_timeを設定し、ステータスはapprovedのまま。
	ActionOut Action = "OUT"
	// ActionIn は帰寮打刻。gate_in_timeを設定し、ステータスをcompletedに遷移させる。
	ActionIn Action = "IN"
)

// DeriveState は許可証の(status, gate_out_time, gate_in_time)から状態を導出する純関数。
// 優先順位: 許可証なし/approved以外 → NO_PASS、帰寮済み → RETURNED、
// 外出済み → ON_LEAVE、いずれの打刻もなし → APPROVED_TO_LEAVE。
func DeriveState(outpass *model.Outpass) State {
	if outpass == nil || outpass.Status != model.OutpassStatusApproved {
		return StateNoPass
	}
	switch {
	case outpass.HasReturned():
		return StateReturned
	case outpass.HasLeft():
		return StateOnLeave
	default:
		return StateApprovedToLeave
	}
}

// LegalAction は状態ごとに許可される唯一の操作を返す。
// NO_PASS/RETURNEDでは操作は存在しない。
func LegalAction(state State) (Action, bool) {
	switch state {
	case StateApprovedToLeave:
		return ActionOut, true
	case StateOnLeave:
		return ActionIn, true
	default:
		return "", false
	}
}
