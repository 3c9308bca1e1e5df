package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/hostelman/internal/model"
)

// OutpassServiceInterface は外出許可証ハンドラーが必要とするサービスインターフェース。
type OutpassServiceInterface interface {
	CreateRequest(ctx context.Context, student *model.Student, reason string, fromTime, toTime time.Time) (*model.Outpass, error)
	Approve(ctx context.Context, approver *model.Student, outpassID string) (*model.Outpass, error)
	Reject(ctx context.Context, approver *model.Student, outpassID string) (*model.Outpass, error)
	ListOwn(ctx context.Context, userID string, limit int) ([]*model.Outpass, error)
	ListPending(ctx context.Context) ([]*model.Outpass, error)
}

// OutpassHandler は外出許可証のHTTPハンドラー。
type OutpassHandler struct {
	service OutpassServiceInterface
}

// NewOutpassHandler はOutpassHandlerを生成する。
func NewOutpassHandler(service OutpassServiceInterface) *OutpassHandler {
	return &OutpassHandler{service: service}
}

// createOutpassRequest は外出許可申請リクエストのボディ。
type createOutpassRequest struct {
	Reason   string    `json:"reason"`
	FromTime time.Time `json:"from_time"`
	ToTime   time.Time `json:"to_time"`
}

// outpassResponse は外出許可証のAPIレスポンス。
type outpassResponse struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Reason      string     `json:"reason"`
	FromTime    time.Time  `json:"from_time"`
	ToTime      time.Time  `json:"to_time"`
	Status      string     `json:"status"`
	GateOutTime *time.Time `json:"gate_out_time,omitempty"`
	GateInTime  *time.Time `json:"gate_in_time,omitempty"`
	RequestedAt time.Time  `json:"requested_at"`
}

// outpassListResponse は外出許可証リストのAPIレスポンス。
type outpassListResponse struct {
	Outpasses []outpassResponse `json:"outpasses"`
}

// Create は外出許可申請を作成する。
// POST /api/outpasses
func (h *OutpassHandler) Create(w http.ResponseWriter, r *http.Request) {
	student, ok := studentFromRequest(r)
	if !ok {
		writeUnauthorized(w)
		return
	}

	var req createOutpassRequest
	if err := decodeJSON(r, &req); err != nil {
		writeInvalidRequest(w)
		return
	}

	outpass, err := h.service.CreateRequest(r.Context(), student, req.Reason, req.FromTime, req.ToTime)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toOutpassResponse(outpass))
}

// ListOwn は自分の外出許可申請一覧を返す。
// GET /api/outpasses/me
func (h *OutpassHandler) ListOwn(w http.ResponseWriter, r *http.Request) {
	student, ok := studentFromRequest(r)
	if !ok {
		writeUnauthorized(w)
		return
	}

	outpasses, err := h.service.ListOwn(r.Context(), student.ID, 0)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toOutpassListResponse(outpasses))
}

// ListPending は承認待ちの申請一覧を返す。
// GET /api/outpasses/pending
func (h *OutpassHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	outpasses, err := h.service.ListPending(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toOutpassListResponse(outpasses))
}

// Approve は申請を承認する。
// POST /api/outpasses/{outpassID}/approve
func (h *OutpassHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.service.Approve)
}

// Reject は申請を却下する。
// POST /api/outpasses/{outpassID}/reject
func (h *OutpassHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.service.Reject)
}

func (h *OutpassHandler) decide(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, approver *model.Student, outpassID string) (*model.Outpass, error)) {
	approver, ok := studentFromRequest(r)
	if !ok {
		writeUnauthorized(w)
		return
	}

	outpassID := chi.URLParam(r, "outpassID")
	if outpassID == "" {
		writeInvalidRequest(w)
		return
	}

	outpass, err := fn(r.Context(), approver, outpassID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toOutpassResponse(outpass))
}

// toOutpassResponse は外出許可証をAPIレスポンスに変換する。
func toOutpassResponse(o *model.Outpass) outpassResponse {
	return outpassResponse{
		ID:          o.ID,
		UserID:      o.UserID,
		Reason:      o.Reason,
		FromTime:    o.FromTime,
		ToTime:      o.ToTime,
		Status:      string(o.Status),
		GateOutTime: o.GateOutTime,
		GateInTime:  o.GateInTime,
		RequestedAt: o.RequestedAt,
	}
}

func toOutpassListResponse(outpasses []*model.Outpass) outpassListResponse {
	resp := outpassListResponse{Outpasses: make([]outpassResponse, 0, len(outpasses))}
	for _, o := range outpasses {
		resp.Outpasses = append(resp.Outpasses, toOutpassResponse(o))
	}
	return resp
}
