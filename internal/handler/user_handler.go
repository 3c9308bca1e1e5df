package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/hostelman/internal/model"
	"github.com/hitoshi/hostelman/internal/student"
)

// StudentServiceInterface はプロフィールハンドラーが必要とするサービスインターフェース。
type StudentServiceInterface interface {
	GetProfile(ctx context.Context, userID string) (*model.Student, error)
	UpdateProfile(ctx context.Context, actor *model.Student, update student.ProfileUpdate) (*model.Student, error)
}

// UserHandler は寮生プロフィールのHTTPハンドラー。
type UserHandler struct {
	service StudentServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service StudentServiceInterface) *UserHandler {
	return &UserHandler{service: service}
}

// updateProfileRequest はプロフィール更新リクエストのボディ。
type updateProfileRequest struct {
	Phone       string `json:"phone"`
	ParentPhone string `json:"parent_phone"`
	PhotoURL    string `json:"photo_url"`
}

// profileResponse は寮生プロフィールのAPIレスポンス。
type profileResponse struct {
	ID          string `json:"id"`
	StudentID   string `json:"student_id"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	Role        string `json:"role"`
	Phone       string `json:"phone,omitempty"`
	ParentPhone string `json:"parent_phone,omitempty"`
	PhotoURL    string `json:"photo_url,omitempty"`
}

// GetProfile は自分のプロフィールを返す。
// GET /api/users/me
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	actor, ok := studentFromRequest(r)
	if !ok {
		writeUnauthorized(w)
		return
	}

	st, err := h.service.GetProfile(r.Context(), actor.ID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toProfileResponse(st))
}

// UpdateProfile は電話番号・保護者電話番号・顔写真URLを更新する。
// PUT /api/users/me
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	actor, ok := studentFromRequest(r)
	if !ok {
		writeUnauthorized(w)
		return
	}

	var req updateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeInvalidRequest(w)
		return
	}

	st, err := h.service.UpdateProfile(r.Context(), actor, student.ProfileUpdate{
		Phone:       req.Phone,
		ParentPhone: req.ParentPhone,
		PhotoURL:    req.PhotoURL,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toProfileResponse(st))
}

func toProfileResponse(st *model.Student) profileResponse {
	return profileResponse{
		ID:          st.ID,
		StudentID:   st.StudentID,
		Email:       st.Email,
		Name:        st.Name,
		Role:        string(st.Role),
		Phone:       st.Phone,
		ParentPhone: st.ParentPhone,
		PhotoURL:    st.PhotoURL,
	}
}
