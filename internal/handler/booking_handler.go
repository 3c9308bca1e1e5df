package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/hostelman/internal/model"
)

// BookingServiceInterface は入寮ハンドラーが必要とするサービスインターフェース。
type BookingServiceInterface interface {
	ListRooms(ctx context.Context, gender model.GenderCategory) ([]*model.Room, error)
	GetRoom(ctx context.Context, roomID string) (*model.Room, error)
	Book(ctx context.Context, student *model.Student, roomID, bedLabel string) (*model.Booking, error)
	GetOwn(ctx context.Context, userID string) (*model.Booking, error)
	Reject(ctx context.Context, admin *model.Student, bookingID string) error
	Vacate(ctx context.Context, actor *model.Student, bookingID string) error
}

// BookingHandler は部屋・入寮申請のHTTPハンドラー。
type BookingHandler struct {
	service BookingServiceInterface
}

// NewBookingHandler はBookingHandlerを生成する。
func NewBookingHandler(service BookingServiceInterface) *BookingHandler {
	return &BookingHandler{service: service}
}

// bookRequest は入寮申請リクエストのボディ。
type bookRequest struct {
	RoomID   string `json:"room_id"`
	BedLabel string `json:"bed_label"`
}

// bedResponse はベッドのAPIレスポンス。
type bedResponse struct {
	Label  string `json:"label"`
	Status string `json:"status"`
}

// roomResponse は部屋のAPIレスポンス。
type roomResponse struct {
	ID            string        `json:"id"`
	RoomNumber    string        `json:"room_number"`
	Gender        string        `json:"gender"`
	Beds          []bedResponse `json:"beds"`
	AvailableBeds int           `json:"available_beds"`
}

// bookingResponse は入寮申請のAPIレスポンス。
type bookingResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	RoomID    string    `json:"room_id"`
	BedLabel  string    `json:"bed_label"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// ListRooms は部屋一覧を返す。genderクエリで絞り込める。
// GET /api/rooms
func (h *BookingHandler) ListRooms(w http.ResponseWriter, r *http.Request) {
	gender := model.GenderCategory(r.URL.Query().Get("gender"))

	rooms, err := h.service.ListRooms(r.Context(), gender)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]roomResponse, 0, len(rooms))
	for _, room := range rooms {
		resp = append(resp, toRoomResponse(room))
	}
	writeJSON(w, http.StatusOK, map[string][]roomResponse{"rooms": resp})
}

// GetRoom は部屋の詳細を返す。
// GET /api/rooms/{roomID}
func (h *BookingHandler) GetRoom(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")
	if roomID == "" {
		writeInvalidRequest(w)
		return
	}

	room, err := h.service.GetRoom(r.Context(), roomID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toRoomResponse(room))
}

// Book はベッドを指定して入寮申請を作成する。
// POST /api/bookings
func (h *BookingHandler) Book(w http.ResponseWriter, r *http.Request) {
	student, ok := studentFromRequest(r)
	if !ok {
		writeUnauthorized(w)
		return
	}

	var req bookRequest
	if err := decodeJSON(r, &req); err != nil {
		writeInvalidRequest(w)
		return
	}
	if req.RoomID == "" || req.BedLabel == "" {
		writeInvalidRequest(w)
		return
	}

	booking, err := h.service.Book(r.Context(), student, req.RoomID, req.BedLabel)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toBookingResponse(booking))
}

// GetOwn は自分の入寮申請を返す。存在しない場合は204を返す。
// GET /api/bookings/me
func (h *BookingHandler) GetOwn(w http.ResponseWriter, r *http.Request) {
	student, ok := studentFromRequest(r)
	if !ok {
		writeUnauthorized(w)
		return
	}

	booking, err := h.service.GetOwn(r.Context(), student.ID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if booking == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, http.StatusOK, toBookingResponse(booking))
}

// Reject は入寮申請を却下し、ベッドを解放する。
// POST /api/bookings/{bookingID}/reject
func (h *BookingHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.release(w, r, h.service.Reject)
}

// Vacate は退去処理を行い、ベッドを解放する。
// POST /api/bookings/{bookingID}/vacate
func (h *BookingHandler) Vacate(w http.ResponseWriter, r *http.Request) {
	h.release(w, r, h.service.Vacate)
}

func (h *BookingHandler) release(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, actor *model.Student, bookingID string) error) {
	actor, ok := studentFromRequest(r)
	if !ok {
		writeUnauthorized(w)
		return
	}

	bookingID := chi.URLParam(r, "bookingID")
	if bookingID == "" {
		writeInvalidRequest(w)
		return
	}

	if err := fn(r.Context(), actor, bookingID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// toRoomResponse は部屋をAPIレスポンスに変換する。
func toRoomResponse(room *model.Room) roomResponse {
	beds := make([]bedResponse, 0, len(room.Beds))
	for _, b := range room.Beds {
		beds = append(beds, bedResponse{Label: b.Label, Status: string(b.Status)})
	}
	return roomResponse{
		ID:            room.ID,
		RoomNumber:    room.RoomNumber,
		Gender:        string(room.Gender),
		Beds:          beds,
		AvailableBeds: room.AvailableBeds(),
	}
}

// toBookingResponse は入寮申請をAPIレスポンスに変換する。
func toBookingResponse(b *model.Booking) bookingResponse {
	return bookingResponse{
		ID:        b.ID,
		UserID:    b.UserID,
		RoomID:    b.RoomID,
		BedLabel:  b.BedLabel,
		Status:    string(b.Status),
		CreatedAt: b.CreatedAt,
	}
}
