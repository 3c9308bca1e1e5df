// Package model はドメインモデルを定義する。
package model

import "time"

// GenderCategory は部屋の性別区分を表す。
type GenderCategory string

const (
	// GenderBoys は男子寮の部屋。
	GenderBoys GenderCategory = "boys"
	// GenderGirls は女子寮の部屋。
	GenderGirls GenderCategory = "girls"
)

// BedStatus はベッドの占有状態を表す。
type BedStatus string

const (
	// BedStatusAvailable は空きベッド。
	BedStatusAvailable BedStatus = "available"
	// BedStatusTaken は占有済みベッド。
	BedStatusTaken BedStatus = "taken"
)

// Room は寮の部屋を表す。
type Room struct {
	ID         string
	RoomNumber string
	Gender     GenderCategory
	Beds       []Bed
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Bed は部屋内の1ベッドを表す。ラベル（a, b, c...）で識別される。
type Bed struct {
	RoomID string
	Label  string
	Status BedStatus
}

// AvailableBeds は空きベッド数を返す。
func (r *Room) AvailableBeds() int {
	n := 0
	for _, b := range r.Beds {
		if b.Status == BedStatusAvailable {
			n++
		}
	}
	return n
}

// BookingStatus は入寮申請のステータスを表す。
type BookingStatus string

const (
	// BookingStatusPending は承認待ちの入寮申請。
	BookingStatusPending BookingStatus = "pending"
	// BookingStatusConfirmed は確定済みの入寮。
	BookingStatusConfirmed BookingStatus = "confirmed"
	// BookingStatusRejected は却下された入寮申請。
	BookingStatusRejected BookingStatus = "rejected"
	// BookingStatusVacated は退去済み。
	BookingStatusVacated BookingStatus = "vacated"
)

// Booking は寮生とベッドの入寮関係を表す。
// 不変条件: 1人の寮生が同時に保持できるactive（pending/confirmed）な
// Bookingは最大1件。ベッド確保はDBトランザクション内で行われる。
type Booking struct {
	ID        string
	UserID    string
	RoomID    string
	BedLabel  string
	Status    BookingStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}
