package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/hostelman/internal/kiosk"
	"github.com/hitoshi/hostelman/internal/middleware"
	"github.com/hitoshi/hostelman/internal/model"
	"github.com/hitoshi/hostelman/internal/security"
)

type mockKioskService struct {
	startSessionFn func(ctx context.Context, operator *model.Student) *kiosk.Session
	reloadRosterFn func(ctx context.Context) (int, error)
	searchFn       func(ctx context.Context, sess *kiosk.Session, rawPayload string) error
	applyActionFn  func(ctx context.Context, sess *kiosk.Session, action kiosk.Action) error
}

func (m *mockKioskService) StartSession(ctx context.Context, operator *model.Student) *kiosk.Session {
	if m.startSessionFn != nil {
		return m.startSessionFn(ctx, operator)
	}
	return &kiosk.Session{Operator: operator, State: kiosk.StateNoPass}
}

func (m *mockKioskService) ReloadRoster(ctx context.Context) (int, error) {
	return m.reloadRosterFn(ctx)
}

func (m *mockKioskService) Search(ctx context.Context, sess *kiosk.Session, rawPayload string) error {
	return m.searchFn(ctx, sess, rawPayload)
}

func (m *mockKioskService) ApplyAction(ctx context.Context, sess *kiosk.Session, action kiosk.Action) error {
	return m.applyActionFn(ctx, sess, action)
}

var _ KioskServiceInterface = (*mockKioskService)(nil)

type mockActivityReader struct {
	recentScansFn func(ctx context.Context, limit int) ([]string, error)
	countForDayFn func(ctx context.Context, day time.Time, action kiosk.Action) (int64, error)
}

func (m *mockActivityReader) RecentScans(ctx context.Context, limit int) ([]string, error) {
	return m.recentScansFn(ctx, limit)
}

func (m *mockActivityReader) CountForDay(ctx context.Context, day time.Time, action kiosk.Action) (int64, error) {
	return m.countForDayFn(ctx, day, action)
}

var _ ActivityReader = (*mockActivityReader)(nil)

// --- テストヘルパー ---

// requestWithStudent はテスト用にリクエストコンテキストに認証済み寮生を注入するヘルパー。
func requestWithStudent(r *http.Request, st *model.Student) *http.Request {
	ctx := middleware.ContextWithUserID(r.Context(), st.ID)
	ctx = middleware.ContextWithStudent(ctx, st)
	return r.WithContext(ctx)
}

// requestWithURLParam はテスト用にchiのURLパラメータを注入するヘルパー。
func requestWithURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	return r.WithContext(ctx)
}

// decodeAPIError はレスポンスボディからAPIErrorレスポンスをパースするヘルパー。
func decodeAPIError(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var result map[string]string
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return result
}

func securityOperator() *model.Student {
	return &model.Student{
		ID:        "op-1",
		StudentID: "SEC001",
		Email:     "guard@example.ac.jp",
		Name:      "警備 一郎",
		Role:      model.RoleSecurity,
	}
}

func newKioskHandlerForTest(svc KioskServiceInterface, activity ActivityReader) *KioskHandler {
	return NewKioskHandler(svc, activity, security.NewPhotoGuard(), KioskHandlerConfig{
		PhotoFetchTimeout: 5 * time.Second,
		PhotoMaxSize:      1 << 20,
	})
}

// --- POST /api/kiosk/search テスト ---

func TestKioskHandler_Search_Success(t *testing.T) {
	resolved := &model.Student{ID: "u-1", StudentID: "20CS1234", Name: "寮生 太郎"}
	svc := &mockKioskService{
		searchFn: func(ctx context.Context, sess *kiosk.Session, rawPayload string) error {
			if rawPayload != "20CS1234" {
				t.Errorf("rawPayload = %q, want %q", rawPayload, "20CS1234")
			}
			sess.Student = resolved
			sess.Outpass = &model.Outpass{ID: "op-10", UserID: "u-1", Status: model.OutpassStatusApproved}
			sess.State = kiosk.StateApprovedToLeave
			return nil
		},
	}
	h := newKioskHandlerForTest(svc, nil)

	body := `{"query":"20CS1234"}`
	req := httptest.NewRequest(http.MethodPost, "/api/kiosk/search", bytes.NewBufferString(body))
	req = requestWithStudent(req, securityOperator())
	w := httptest.NewRecorder()

	h.Search(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var resp sessionResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.State != string(kiosk.StateApprovedToLeave) {
		t.Errorf("state = %q, want %q", resp.State, kiosk.StateApprovedToLeave)
	}
	if resp.Student == nil || resp.Student.StudentID != "20CS1234" {
		t.Errorf("unexpected student in response: %+v", resp.Student)
	}
	if resp.Outpass == nil || resp.Outpass.ID != "op-10" {
		t.Errorf("unexpected outpass in response: %+v", resp.Outpass)
	}
}

func TestKioskHandler_Search_NotFound(t *testing.T) {
	svc := &mockKioskService{
		searchFn: func(ctx context.Context, sess *kiosk.Session, rawPayload string) error {
			return model.NewStudentNotFoundError(rawPayload)
		},
	}
	h := newKioskHandlerForTest(svc, nil)

	body := `{"query":"UNKNOWN"}`
	req := httptest.NewRequest(http.MethodPost, "/api/kiosk/search", bytes.NewBufferString(body))
	req = requestWithStudent(req, securityOperator())
	w := httptest.NewRecorder()

	h.Search(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
	resp := decodeAPIError(t, w)
	if resp["code"] != "STUDENT_NOT_FOUND" {
		t.Errorf("code = %q, want STUDENT_NOT_FOUND", resp["code"])
	}
}

func TestKioskHandler_Search_Unauthenticated(t *testing.T) {
	h := newKioskHandlerForTest(&mockKioskService{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/kiosk/search", bytes.NewBufferString(`{"query":"x"}`))
	w := httptest.NewRecorder()

	h.Search(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestKioskHandler_Search_InvalidJSON(t *testing.T) {
	h := newKioskHandlerForTest(&mockKioskService{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/kiosk/search", bytes.NewBufferString(`{invalid`))
	req = requestWithStudent(req, securityOperator())
	w := httptest.NewRecorder()

	h.Search(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

// --- POST /api/kiosk/action テスト ---

func TestKioskHandler_Action_Success(t *testing.T) {
	svc := &mockKioskService{
		applyActionFn: func(ctx context.Context, sess *kiosk.Session, action kiosk.Action) error {
			if action != kiosk.ActionOut {
				t.Errorf("action = %q, want %q", action, kiosk.ActionOut)
			}
			sess.State = kiosk.StateOnLeave
			return nil
		},
	}
	h := newKioskHandlerForTest(svc, nil)

	body := `{"action":"OUT"}`
	req := httptest.NewRequest(http.MethodPost, "/api/kiosk/action", bytes.NewBufferString(body))
	req = requestWithStudent(req, securityOperator())
	w := httptest.NewRecorder()

	h.Action(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var resp sessionResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.State != string(kiosk.StateOnLeave) {
		t.Errorf("state = %q, want %q", resp.State, kiosk.StateOnLeave)
	}
}

func TestKioskHandler_Action_UnknownAction(t *testing.T) {
	h := newKioskHandlerForTest(&mockKioskService{}, nil)

	body := `{"action":"SIDEWAYS"}`
	req := httptest.NewRequest(http.MethodPost, "/api/kiosk/action", bytes.NewBufferString(body))
	req = requestWithStudent(req, securityOperator())
	w := httptest.NewRecorder()

	h.Action(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	resp := decodeAPIError(t, w)
	if resp["code"] != "INVALID_ACTION" {
		t.Errorf("code = %q, want INVALID_ACTION", resp["code"])
	}
}

func TestKioskHandler_Action_LostRaceConflict(t *testing.T) {
	svc := &mockKioskService{
		applyActionFn: func(ctx context.Context, sess *kiosk.Session, action kiosk.Action) error {
			return model.NewPreconditionFailedError()
		},
	}
	h := newKioskHandlerForTest(svc, nil)

	body := `{"action":"OUT"}`
	req := httptest.NewRequest(http.MethodPost, "/api/kiosk/action", bytes.NewBufferString(body))
	req = requestWithStudent(req, securityOperator())
	w := httptest.NewRecorder()

	h.Action(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusConflict)
	}
	resp := decodeAPIError(t, w)
	if resp["code"] != "PRECONDITION_FAILED" {
		t.Errorf("code = %q, want PRECONDITION_FAILED", resp["code"])
	}
}

// セッションは操作者ごとに保持され、検索と打刻で同一のものが使われる。
func TestKioskHandler_SessionPersistsAcrossRequests(t *testing.T) {
	var captured *kiosk.Session
	svc := &mockKioskService{
		searchFn: func(ctx context.Context, sess *kiosk.Session, rawPayload string) error {
			captured = sess
			return nil
		},
		applyActionFn: func(ctx context.Context, sess *kiosk.Session, action kiosk.Action) error {
			if sess != captured {
				t.Error("expected the same session across requests for the same operator")
			}
			return nil
		},
	}
	h := newKioskHandlerForTest(svc, nil)
	operator := securityOperator()

	req1 := httptest.NewRequest(http.MethodPost, "/api/kiosk/search", bytes.NewBufferString(`{"query":"20CS1234"}`))
	req1 = requestWithStudent(req1, operator)
	h.Search(httptest.NewRecorder(), req1)

	req2 := httptest.NewRequest(http.MethodPost, "/api/kiosk/action", bytes.NewBufferString(`{"action":"OUT"}`))
	req2 = requestWithStudent(req2, operator)
	h.Action(httptest.NewRecorder(), req2)
}

// --- POST /api/kiosk/roster/reload テスト ---

func TestKioskHandler_ReloadRoster(t *testing.T) {
	svc := &mockKioskService{
		reloadRosterFn: func(ctx context.Context) (int, error) {
			return 250, nil
		},
	}
	h := newKioskHandlerForTest(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/kiosk/roster/reload", nil)
	req = requestWithStudent(req, securityOperator())
	w := httptest.NewRecorder()

	h.ReloadRoster(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var resp map[string]int
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["count"] != 250 {
		t.Errorf("count = %d, want 250", resp["count"])
	}
}

func TestKioskHandler_ReloadRoster_RemoteUnavailable(t *testing.T) {
	svc := &mockKioskService{
		reloadRosterFn: func(ctx context.Context) (int, error) {
			return 0, model.NewRemoteUnavailableError()
		},
	}
	h := newKioskHandlerForTest(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/kiosk/roster/reload", nil)
	req = requestWithStudent(req, securityOperator())
	w := httptest.NewRecorder()

	h.ReloadRoster(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
}

// --- GET /api/kiosk/activity テスト ---

func TestKioskHandler_Activity(t *testing.T) {
	activity := &mockActivityReader{
		recentScansFn: func(ctx context.Context, limit int) ([]string, error) {
			return []string{"u-1:OUT", "u-2:IN"}, nil
		},
		countForDayFn: func(ctx context.Context, day time.Time, action kiosk.Action) (int64, error) {
			if action == kiosk.ActionOut {
				return 12, nil
			}
			return 9, nil
		},
	}
	h := newKioskHandlerForTest(&mockKioskService{}, activity)

	req := httptest.NewRequest(http.MethodGet, "/api/kiosk/activity", nil)
	req = requestWithStudent(req, securityOperator())
	w := httptest.NewRecorder()

	h.Activity(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var resp struct {
		OutCount int64    `json:"out_count"`
		InCount  int64    `json:"in_count"`
		Recent   []string `json:"recent"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.OutCount != 12 || resp.InCount != 9 {
		t.Errorf("counts = %d/%d, want 12/9", resp.OutCount, resp.InCount)
	}
	if len(resp.Recent) != 2 {
		t.Errorf("recent length = %d, want 2", len(resp.Recent))
	}
}

// Redisが構成されていない場合もアクティビティはゼロ値で応答する。
func TestKioskHandler_Activity_NoBackend(t *testing.T) {
	h := newKioskHandlerForTest(&mockKioskService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/kiosk/activity", nil)
	req = requestWithStudent(req, securityOperator())
	w := httptest.NewRecorder()

	h.Activity(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

// --- GET /api/kiosk/photo テスト ---

func TestKioskHandler_Photo_BlockedURL(t *testing.T) {
	h := newKioskHandlerForTest(&mockKioskService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/kiosk/photo?url=http://127.0.0.1/photo.jpg", nil)
	req = requestWithStudent(req, securityOperator())
	w := httptest.NewRecorder()

	h.Photo(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	resp := decodeAPIError(t, w)
	if resp["code"] != "INVALID_PHOTO_URL" {
		t.Errorf("code = %q, want INVALID_PHOTO_URL", resp["code"])
	}
}

func TestKioskHandler_Photo_MissingURL(t *testing.T) {
	h := newKioskHandlerForTest(&mockKioskService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/kiosk/photo", nil)
	req = requestWithStudent(req, securityOperator())
	w := httptest.NewRecorder()

	h.Photo(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}
