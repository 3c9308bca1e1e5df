package kiosk

import "github.com/hitoshi/hostelman/internal/model"

// Session はチェックポイント1局の局所状態を表す（永続化しない）。
// 暗黙のグローバル状態を避けるため、各操作に明示的に受け渡す。
// 検索・スキャン・打刻のたびに更新され、ログアウトで破棄される。
type Session struct {
	// Operator は認証済みの操作担当者（警備員）。監査記録の帰属に使う。
	Operator *model.Student
	// Student は現在解決されている寮生。未解決ならnil。
	Student *model.Student
	// Outpass は現在解決されている許可証。未解決ならnil。
	Outpass *model.Outpass
	// State はOutpassから導出された現在の観測状態。
	State State
	// ScannerActive はカメラスキャナの起動フラグ。
	ScannerActive bool
}

// NewSession は初期状態のセッションを生成する。
func NewSession(operator *model.Student) *Session {
	return &Session{
		Operator: operator,
		State:    StateNoPass,
	}
}

// Reset は解決済みの寮生・許可証・状態をクリアする。
func (s *Session) Reset() {
	s.Student = nil
	s.Outpass = nil
	s.State = StateNoPass
}
