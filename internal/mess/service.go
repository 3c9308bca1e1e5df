// Package mess は食堂の献立表示と食事評価を提供する。
package mess

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/hostelman/internal/model"
	"github.com/hitoshi/hostelman/internal/repository"
)

// Service は献立・食事評価に関するビジネスロジックを提供する。
type Service struct {
	repo repository.MessRepository
	now  func() time.Time
}

// NewService はServiceを生成する。
func NewService(repo repository.MessRepository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// WeeklyMenu は曜日ごとにグループ化した1週間分の献立を表す。
type WeeklyMenu struct {
	Days        []DayMenu
	CurrentDay  time.Weekday
	CurrentSlot model.MealSlot
}

// DayMenu は1曜日分の献立を表す。
type DayMenu struct {
	Weekday time.Weekday
	Entries []*model.MenuEntry
}

// GetWeeklyMenu は全献立を曜日ごとにグループ化して返す。
// 現在時刻から今日の曜日と直近の食事区分も併せて返す。
func (s *Service) GetWeeklyMenu(ctx context.Context) (*WeeklyMenu, error) {
	entries, err := s.repo.ListMenu(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list menu: %w", err)
	}

	byDay := make(map[time.Weekday][]*model.MenuEntry)
	for _, e := range entries {
		byDay[e.Weekday] = append(byDay[e.Weekday], e)
	}

	menu := &WeeklyMenu{
		CurrentDay:  s.now().Weekday(),
		CurrentSlot: CurrentSlot(s.now()),
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		menu.Days = append(menu.Days, DayMenu{Weekday: d, Entries: byDay[d]})
	}
	return menu, nil
}

// UpsertMenuEntry は献立を登録・更新する（管理者用）。
// 同一曜日×食事区分の既存献立は上書きされる。
func (s *Service) UpsertMenuEntry(ctx context.Context, weekday time.Weekday, slot model.MealSlot, item string, isSpecial bool) (*model.MenuEntry, error) {
	if !validSlot(slot) {
		return nil, fmt.Errorf("unknown meal slot: %s", slot)
	}
	if item == "" {
		return nil, fmt.Errorf("menu item is required")
	}

	entry := &model.MenuEntry{
		ID:        uuid.New().String(),
		Weekday:   weekday,
		Slot:      slot,
		Item:      item,
		IsSpecial: isSpecial,
		UpdatedAt: s.now(),
	}
	if err := s.repo.UpsertMenuEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to upsert menu entry: %w", err)
	}

	slog.Info("menu entry upserted",
		slog.Int("weekday", int(weekday)),
		slog.String("slot", string(slot)),
	)
	return entry, nil
}

// RateMeal は寮生の食事評価（1〜5）を登録する。
// 同一ユーザー×曜日×食事区分の既存評価は上書きされる。
func (s *Service) RateMeal(ctx context.Context, student *model.Student, weekday time.Weekday, slot model.MealSlot, rating int) (*model.MealRating, error) {
	if rating < 1 || rating > 5 {
		return nil, model.NewInvalidRatingError(rating)
	}
	if !validSlot(slot) {
		return nil, fmt.Errorf("unknown meal slot: %s", slot)
	}

	now := s.now()
	mealRating := &model.MealRating{
		ID:        uuid.New().String(),
		UserID:    student.ID,
		Weekday:   weekday,
		Slot:      slot,
		Rating:    rating,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.UpsertRating(ctx, mealRating); err != nil {
		return nil, fmt.Errorf("failed to upsert rating: %w", err)
	}

	slog.Info("meal rated",
		slog.String("user_id", student.ID),
		slog.Int("weekday", int(weekday)),
		slog.String("slot", string(slot)),
		slog.Int("rating", rating),
	)
	return mealRating, nil
}

// ListOwnRatings は指定寮生の全評価を返す。
func (s *Service) ListOwnRatings(ctx context.Context, userID string) ([]*model.MealRating, error) {
	ratings, err := s.repo.ListRatingsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list ratings: %w", err)
	}
	return ratings, nil
}

// CurrentSlot は時刻から直近の食事区分を返す。
// 〜10時は朝食、〜15時は昼食、〜18時は軽食、それ以降は夕食。
func CurrentSlot(t time.Time) model.MealSlot {
	switch h := t.Hour(); {
	case h < 10:
		return model.MealBreakfast
	case h < 15:
		return model.MealLunch
	case h < 18:
		return model.MealSnacks
	default:
		return model.MealDinner
	}
}

func validSlot(slot model.MealSlot) bool {
	for _, s := range model.MealSlots {
		if s == slot {
			return true
		}
	}
	return false
}
