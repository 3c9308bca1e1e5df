// Package model はドメインモデルを定義する。
package model

import "time"

// MealSlot は1日の食事区分を表す。
type MealSlot string

const (
	// MealBreakfast は朝食。
	MealBreakfast MealSlot = "breakfast"
	// MealLunch は昼食。
	MealLunch MealSlot = "lunch"
	// MealSnacks は軽食。
	MealSnacks MealSlot = "snacks"
	// MealDinner は夕食。
	MealDinner MealSlot = "dinner"
)

// MealSlots は表示順に並んだ全食事区分。
var MealSlots = []MealSlot{MealBreakfast, MealLunch, MealSnacks, MealDinner}

// MenuEntry は曜日×食事区分ごとの献立を表す。
type MenuEntry struct {
	ID        string
	Weekday   time.Weekday
	Slot      MealSlot
	Item      string
	IsSpecial bool
	UpdatedAt time.Time
}

// MealRating は寮生による食事評価（1〜5）を表す。
// 同一ユーザー×曜日×食事区分の評価はUPSERTで上書きされる。
type MealRating struct {
	ID        string
	UserID    string
	Weekday   time.Weekday
	Slot      MealSlot
	Rating    int
	CreatedAt time.Time
	UpdatedAt time.Time
}
