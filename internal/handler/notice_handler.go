package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/hostelman/internal/model"
)

// NoticeServiceInterface はお知らせハンドラーが必要とするサービスインターフェース。
type NoticeServiceInterface interface {
	PostNotice(ctx context.Context, author *model.Student, title, bodyHTML string) (*model.Notice, error)
	ListNotices(ctx context.Context, limit int) ([]*model.Notice, error)
	GetNotice(ctx context.Context, id string) (*model.Notice, error)
	DeleteNotice(ctx context.Context, actor *model.Student, id string) error
	ListNotifications(ctx context.Context, userID string, limit int) ([]*model.Notification, error)
	MarkAllRead(ctx context.Context, userID string) (int64, error)
}

// NoticeHandler はお知らせと通知のHTTPハンドラー。
type NoticeHandler struct {
	service NoticeServiceInterface
}

// NewNoticeHandler はNoticeHandlerを生成する。
func NewNoticeHandler(service NoticeServiceInterface) *NoticeHandler {
	return &NoticeHandler{service: service}
}

// postNoticeRequest はお知らせ投稿リクエストのボディ。
type postNoticeRequest struct {
	Title    string `json:"title"`
	BodyHTML string `json:"body_html"`
}

// noticeResponse はお知らせのAPIレスポンス。
type noticeResponse struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	Title     string    `json:"title"`
	BodyHTML  string    `json:"body_html"`
	CreatedAt time.Time `json:"created_at"`
}

// notificationResponse はユーザー通知のAPIレスポンス。
type notificationResponse struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// Post はお知らせを投稿する。本文はサニタイズされて保存される。
// POST /api/notices
func (h *NoticeHandler) Post(w http.ResponseWriter, r *http.Request) {
	author, ok := studentFromRequest(r)
	if !ok {
		writeUnauthorized(w)
		return
	}

	var req postNoticeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeInvalidRequest(w)
		return
	}

	notice, err := h.service.PostNotice(r.Context(), author, req.Title, req.BodyHTML)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toNoticeResponse(notice))
}

// List はお知らせ一覧を新しい順に返す。
// GET /api/notices
func (h *NoticeHandler) List(w http.ResponseWriter, r *http.Request) {
	notices, err := h.service.ListNotices(r.Context(), 0)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]noticeResponse, 0, len(notices))
	for _, n := range notices {
		resp = append(resp, toNoticeResponse(n))
	}
	writeJSON(w, http.StatusOK, map[string][]noticeResponse{"notices": resp})
}

// Get はお知らせの詳細を返す。
// GET /api/notices/{noticeID}
func (h *NoticeHandler) Get(w http.ResponseWriter, r *http.Request) {
	noticeID := chi.URLParam(r, "noticeID")
	if noticeID == "" {
		writeInvalidRequest(w)
		return
	}

	notice, err := h.service.GetNotice(r.Context(), noticeID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toNoticeResponse(notice))
}

// Delete はお知らせを削除する。
// DELETE /api/notices/{noticeID}
func (h *NoticeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := studentFromRequest(r)
	if !ok {
		writeUnauthorized(w)
		return
	}

	noticeID := chi.URLParam(r, "noticeID")
	if noticeID == "" {
		writeInvalidRequest(w)
		return
	}

	if err := h.service.DeleteNotice(r.Context(), actor, noticeID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListNotifications は自分宛の通知一覧を返す。
// GET /api/notifications
func (h *NoticeHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	student, ok := studentFromRequest(r)
	if !ok {
		writeUnauthorized(w)
		return
	}

	notifications, err := h.service.ListNotifications(r.Context(), student.ID, 0)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]notificationResponse, 0, len(notifications))
	for _, n := range notifications {
		resp = append(resp, notificationResponse{
			ID:        n.ID,
			Message:   n.Message,
			IsRead:    n.IsRead,
			CreatedAt: n.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string][]notificationResponse{"notifications": resp})
}

// MarkAllRead は自分宛の未読通知をすべて既読にする。
// POST /api/notifications/read
func (h *NoticeHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	student, ok := studentFromRequest(r)
	if !ok {
		writeUnauthorized(w)
		return
	}

	count, err := h.service.MarkAllRead(r.Context(), student.ID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{"marked": count})
}

func toNoticeResponse(n *model.Notice) noticeResponse {
	return noticeResponse{
		ID:        n.ID,
		AuthorID:  n.AuthorID,
		Title:     n.Title,
		BodyHTML:  n.BodyHTML,
		CreatedAt: n.CreatedAt,
	}
}
