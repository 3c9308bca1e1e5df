package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/hitoshi/hostelman/internal/mess"
	"github.com/hitoshi/hostelman/internal/model"
)

// MessServiceInterface は食堂ハンドラーが必要とするサービスインターフェース。
type MessServiceInterface interface {
	GetWeeklyMenu(ctx context.Context) (*mess.WeeklyMenu, error)
	UpsertMenuEntry(ctx context.Context, weekday time.Weekday, slot model.MealSlot, item string, isSpecial bool) (*model.MenuEntry, error)
	RateMeal(ctx context.Context, student *model.Student, weekday time.Weekday, slot model.MealSlot, rating int) (*model.MealRating, error)
	ListOwnRatings(ctx context.Context, userID string) ([]*model.MealRating, error)
}

// MessHandler は食堂の献立と食事評価のHTTPハンドラー。
type MessHandler struct {
	service MessServiceInterface
}

// NewMessHandler はMessHandlerを生成する。
func NewMessHandler(service MessServiceInterface) *MessHandler {
	return &MessHandler{service: service}
}

// upsertMenuRequest は献立更新リクエストのボディ。
type upsertMenuRequest struct {
	Weekday   int    `json:"weekday"` // 0=日曜
	Slot      string `json:"slot"`
	Item      string `json:"item"`
	IsSpecial bool   `json:"is_special"`
}

// rateMealRequest は食事評価リクエストのボディ。
type rateMealRequest struct {
	Weekday int    `json:"weekday"`
	Slot    string `json:"slot"`
	Rating  int    `json:"rating"`
}

// menuEntryResponse は献立のAPIレスポンス。
type menuEntryResponse struct {
	ID        string `json:"id"`
	Weekday   int    `json:"weekday"`
	Slot      string `json:"slot"`
	Item      string `json:"item"`
	IsSpecial bool   `json:"is_special"`
}

// dayMenuResponse は1曜日分の献立のAPIレスポンス。
type dayMenuResponse struct {
	Weekday int                 `json:"weekday"`
	Entries []menuEntryResponse `json:"entries"`
}

// weeklyMenuResponse は週間献立のAPIレスポンス。
type weeklyMenuResponse struct {
	Days        []dayMenuResponse `json:"days"`
	CurrentDay  int               `json:"current_day"`
	CurrentSlot string            `json:"current_slot"`
}

// mealRatingResponse は食事評価のAPIレスポンス。
type mealRatingResponse struct {
	ID      string `json:"id"`
	Weekday int    `json:"weekday"`
	Slot    string `json:"slot"`
	Rating  int    `json:"rating"`
}

// GetMenu は週間献立を返す。
// GET /api/mess/menu
func (h *MessHandler) GetMenu(w http.ResponseWriter, r *http.Request) {
	menu, err := h.service.GetWeeklyMenu(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := weeklyMenuResponse{
		Days:        make([]dayMenuResponse, 0, len(menu.Days)),
		CurrentDay:  int(menu.CurrentDay),
		CurrentSlot: string(menu.CurrentSlot),
	}
	for _, day := range menu.Days {
		d := dayMenuResponse{Weekday: int(day.Weekday), Entries: make([]menuEntryResponse, 0, len(day.Entries))}
		for _, e := range day.Entries {
			d.Entries = append(d.Entries, toMenuEntryResponse(e))
		}
		resp.Days = append(resp.Days, d)
	}
	writeJSON(w, http.StatusOK, resp)
}

// UpsertMenu は献立を登録または更新する。
// PUT /api/mess/menu
func (h *MessHandler) UpsertMenu(w http.ResponseWriter, r *http.Request) {
	var req upsertMenuRequest
	if err := decodeJSON(r, &req); err != nil {
		writeInvalidRequest(w)
		return
	}
	if req.Weekday < 0 || req.Weekday > 6 {
		writeInvalidRequest(w)
		return
	}

	entry, err := h.service.UpsertMenuEntry(r.Context(), time.Weekday(req.Weekday), model.MealSlot(req.Slot), req.Item, req.IsSpecial)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toMenuEntryResponse(entry))
}

// RateMeal は食事評価を登録する。同一対象への再評価は上書きされる。
// POST /api/mess/ratings
func (h *MessHandler) RateMeal(w http.ResponseWriter, r *http.Request) {
	student, ok := studentFromRequest(r)
	if !ok {
		writeUnauthorized(w)
		return
	}

	var req rateMealRequest
	if err := decodeJSON(r, &req); err != nil {
		writeInvalidRequest(w)
		return
	}
	if req.Weekday < 0 || req.Weekday > 6 {
		writeInvalidRequest(w)
		return
	}

	rating, err := h.service.RateMeal(r.Context(), student, time.Weekday(req.Weekday), model.MealSlot(req.Slot), req.Rating)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toMealRatingResponse(rating))
}

// ListOwnRatings は自分の食事評価一覧を返す。
// GET /api/mess/ratings/me
func (h *MessHandler) ListOwnRatings(w http.ResponseWriter, r *http.Request) {
	student, ok := studentFromRequest(r)
	if !ok {
		writeUnauthorized(w)
		return
	}

	ratings, err := h.service.ListOwnRatings(r.Context(), student.ID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]mealRatingResponse, 0, len(ratings))
	for _, rt := range ratings {
		resp = append(resp, toMealRatingResponse(rt))
	}
	writeJSON(w, http.StatusOK, map[string][]mealRatingResponse{"ratings": resp})
}

func toMenuEntryResponse(e *model.MenuEntry) menuEntryResponse {
	return menuEntryResponse{
		ID:        e.ID,
		Weekday:   int(e.Weekday),
		Slot:      string(e.Slot),
		Item:      e.Item,
		IsSpecial: e.IsSpecial,
	}
}

func toMealRatingResponse(rt *model.MealRating) mealRatingResponse {
	return mealRatingResponse{
		ID:      rt.ID,
		Weekday: int(rt.Weekday),
		Slot:    string(rt.Slot),
		Rating:  rt.Rating,
	}
}
