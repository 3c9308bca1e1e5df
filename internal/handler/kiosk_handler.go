package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/hitoshi/hostelman/internal/kiosk"
	"github.com/hitoshi/hostelman/internal/model"
	"github.com/hitoshi/hostelman/internal/security"
)

// KioskServiceInterface はキオスクハンドラーが必要とするサービスインターフェース。
type KioskServiceInterface interface {
	// StartSession はチェックポイントセッションを開始する。
	StartSession(ctx context.Context, operator *model.Student) *kiosk.Session
	// ReloadRoster は名簿キャッシュを再ロードし、件数を返す。
	ReloadRoster(ctx context.Context) (int, error)
	// Search はスキャン入力から寮生と許可証を解決する。
	Search(ctx context.Context, sess *kiosk.Session, rawPayload string) error
	// ApplyAction はゲート打刻を適用する。
	ApplyAction(ctx context.Context, sess *kiosk.Session, action kiosk.Action) error
}

// ActivityReader はキオスクのアクティビティ表示に必要なインターフェース。
type ActivityReader interface {
	RecentScans(ctx context.Context, limit int) ([]string, error)
	CountForDay(ctx context.Context, day time.Time, action kiosk.Action) (int64, error)
}

// KioskHandlerConfig はキオスクハンドラーの設定。
type KioskHandlerConfig struct {
	PhotoFetchTimeout time.Duration
	PhotoMaxSize      int64
}

// KioskHandler はゲートキオスクのHTTPハンドラー。
// 操作端末（警備員）ごとにチェックポイントセッションを保持する。
// セッションはサーバー側の解決済みコンテキストであり、打刻はセッション内の
// 許可証に対してのみ行える。
type KioskHandler struct {
	service    KioskServiceInterface
	activity   ActivityReader // nil可
	photoGuard security.PhotoGuardService
	config     KioskHandlerConfig

	mu       sync.Mutex
	sessions map[string]*kiosk.Session // key: 操作者のアカウントID
}

// NewKioskHandler はKioskHandlerを生成する。
func NewKioskHandler(service KioskServiceInterface, activity ActivityReader, photoGuard security.PhotoGuardService, config KioskHandlerConfig) *KioskHandler {
	return &KioskHandler{
		service:    service,
		activity:   activity,
		photoGuard: photoGuard,
		config:     config,
		sessions:   make(map[string]*kiosk.Session),
	}
}

// searchRequest は寮生検索リクエストのボディ。
type searchRequest struct {
	Query string `json:"query"`
}

// actionRequest はゲート打刻リクエストのボディ。
type actionRequest struct {
	Action string `json:"action"` // "OUT" または "IN"
}

// sessionResponse はチェックポイントセッションのAPIレスポンス。
type sessionResponse struct {
	State   string           `json:"state"`
	Student *studentResponse `json:"student,omitempty"`
	Outpass *outpassResponse `json:"outpass,omitempty"`
}

// studentResponse は寮生情報のAPIレスポンス。
type studentResponse struct {
	ID        string `json:"id"`
	StudentID string `json:"student_id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	PhotoURL  string `json:"photo_url,omitempty"`
}

// StartSession はチェックポイントセッションを開始する。
// POST /api/kiosk/session
func (h *KioskHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	operator, ok := studentFromRequest(r)
	if !ok {
		writeUnauthorized(w)
		return
	}

	sess := h.service.StartSession(r.Context(), operator)

	h.mu.Lock()
	h.sessions[operator.ID] = sess
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, toSessionResponse(sess))
}

// Search はスキャン入力から寮生と許可証を解決する。
// POST /api/kiosk/search
func (h *KioskHandler) Search(w http.ResponseWriter, r *http.Request) {
	operator, ok := studentFromRequest(r)
	if !ok {
		writeUnauthorized(w)
		return
	}

	var req searchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeInvalidRequest(w)
		return
	}

	sess := h.sessionFor(r.Context(), operator)
	if err := h.service.Search(r.Context(), sess, req.Query); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toSessionResponse(sess))
}

// Action はゲート打刻を適用する。
// POST /api/kiosk/action
func (h *KioskHandler) Action(w http.ResponseWriter, r *http.Request) {
	operator, ok := studentFromRequest(r)
	if !ok {
		writeUnauthorized(w)
		return
	}

	var req actionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeInvalidRequest(w)
		return
	}

	action := kiosk.Action(req.Action)
	if action != kiosk.ActionOut && action != kiosk.ActionIn {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_ACTION",
			Message:  "不明なゲート操作です。",
			Category: "gate",
			Action:   "OUTまたはINを指定してください。",
		})
		return
	}

	sess := h.sessionFor(r.Context(), operator)
	if err := h.service.ApplyAction(r.Context(), sess, action); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toSessionResponse(sess))
}

// ReloadRoster は名簿キャッシュを再ロードする。
// POST /api/kiosk/roster/reload
func (h *KioskHandler) ReloadRoster(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.ReloadRoster(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"count": count})
}

// Activity は当日のゲートアクティビティを返す。
// GET /api/kiosk/activity
func (h *KioskHandler) Activity(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"out_count": int64(0),
		"in_count":  int64(0),
		"recent":    []string{},
	}

	if h.activity != nil {
		today := time.Now()
		if out, err := h.activity.CountForDay(r.Context(), today, kiosk.ActionOut); err == nil {
			resp["out_count"] = out
		}
		if in, err := h.activity.CountForDay(r.Context(), today, kiosk.ActionIn); err == nil {
			resp["in_count"] = in
		}
		if recent, err := h.activity.RecentScans(r.Context(), 20); err == nil && recent != nil {
			resp["recent"] = recent
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// Photo は寮生の顔写真を取得して返すプロキシエンドポイント。
// 外部URLへの取得はSSRF防止付きクライアントで行う。
// GET /api/kiosk/photo?url=...
func (h *KioskHandler) Photo(w http.ResponseWriter, r *http.Request) {
	rawURL := r.URL.Query().Get("url")
	if err := h.photoGuard.ValidatePhotoURL(rawURL); err != nil {
		handleServiceError(w, model.NewInvalidPhotoURLError(err.Error()))
		return
	}

	client := h.photoGuard.NewSafeClient(h.config.PhotoFetchTimeout, h.config.PhotoMaxSize)
	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, rawURL, nil)
	if err != nil {
		handleServiceError(w, model.NewInvalidPhotoURLError(err.Error()))
		return
	}

	resp, err := client.Do(req)
	if err != nil {
		slog.Warn("photo fetch failed",
			slog.String("url", rawURL),
			slog.String("error", err.Error()),
		)
		handleServiceError(w, model.NewRemoteUnavailableError())
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		handleServiceError(w, model.NewRemoteUnavailableError())
		return
	}

	w.Header().Set("Content-Type", resp.Header.Get("Content-Type"))
	w.Header().Set("Cache-Control", "private, max-age=3600")
	io.Copy(w, io.LimitReader(resp.Body, h.config.PhotoMaxSize))
}

// sessionFor は操作者のセッションを取得する。未開始の場合は開始する。
func (h *KioskHandler) sessionFor(ctx context.Context, operator *model.Student) *kiosk.Session {
	h.mu.Lock()
	sess, ok := h.sessions[operator.ID]
	h.mu.Unlock()
	if ok {
		return sess
	}

	sess = h.service.StartSession(ctx, operator)
	h.mu.Lock()
	h.sessions[operator.ID] = sess
	h.mu.Unlock()
	return sess
}

// toSessionResponse はチェックポイントセッションをAPIレスポンスに変換する。
func toSessionResponse(sess *kiosk.Session) sessionResponse {
	resp := sessionResponse{State: string(sess.State)}
	if sess.Student != nil {
		resp.Student = &studentResponse{
			ID:        sess.Student.ID,
			StudentID: sess.Student.StudentID,
			Email:     sess.Student.Email,
			Name:      sess.Student.Name,
			PhotoURL:  sess.Student.PhotoURL,
		}
	}
	if sess.Outpass != nil {
		outpass := toOutpassResponse(sess.Outpass)
		resp.Outpass = &outpass
	}
	return resp
}
