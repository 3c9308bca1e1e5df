package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/hostelman/internal/model"
	"github.com/hitoshi/hostelman/internal/repository"
)

// --- モック定義 ---

type mockStudentRepo struct {
	findByIDFn           func(ctx context.Context, id string) (*model.Student, error)
	findByStudentIDFn    func(ctx context.Context, studentID string) (*model.Student, error)
	findByEmailFn        func(ctx context.Context, email string) (*model.Student, error)
	listAllFn            func(ctx context.Context) ([]*model.Student, error)
	createWithIdentityFn func(ctx context.Context, student *model.Student, identity *model.Identity) error
	updateProfileFn      func(ctx context.Context, student *model.Student) error
}

func (m *mockStudentRepo) FindByID(ctx context.Context, id string) (*model.Student, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockStudentRepo) FindByStudentID(ctx context.Context, studentID string) (*model.Student, error) {
	if m.findByStudentIDFn != nil {
		return m.findByStudentIDFn(ctx, studentID)
	}
	return nil, nil
}

func (m *mockStudentRepo) FindByEmail(ctx context.Context, email string) (*model.Student, error) {
	if m.findByEmailFn != nil {
		return m.findByEmailFn(ctx, email)
	}
	return nil, nil
}

func (m *mockStudentRepo) ListAll(ctx context.Context) ([]*model.Student, error) {
	if m.listAllFn != nil {
		return m.listAllFn(ctx)
	}
	return nil, nil
}

func (m *mockStudentRepo) CreateWithIdentity(ctx context.Context, student *model.Student, identity *model.Identity) error {
	if m.createWithIdentityFn != nil {
		return m.createWithIdentityFn(ctx, student, identity)
	}
	return nil
}

func (m *mockStudentRepo) UpdateProfile(ctx context.Context, student *model.Student) error {
	if m.updateProfileFn != nil {
		return m.updateProfileFn(ctx, student)
	}
	return nil
}

type mockIdentityRepo struct {
	findByProviderFn func(ctx context.Context, provider, providerUserID string) (*model.Identity, error)
}

func (m *mockIdentityRepo) FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Identity, error) {
	if m.findByProviderFn != nil {
		return m.findByProviderFn(ctx, provider, providerUserID)
	}
	return nil, nil
}

type mockSessionRepo struct {
	createFn         func(ctx context.Context, session *model.Session) error
	findByIDFn       func(ctx context.Context, id string) (*model.Session, error)
	deleteByIDFn     func(ctx context.Context, id string) error
	deleteByUserIDFn func(ctx context.Context, userID string) error
	deleteExpiredFn  func(ctx context.Context) (int64, error)
}

func (m *mockSessionRepo) Create(ctx context.Context, session *model.Session) error {
	if m.createFn != nil {
		return m.createFn(ctx, session)
	}
	return nil
}

func (m *mockSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockSessionRepo) DeleteByID(ctx context.Context, id string) error {
	if m.deleteByIDFn != nil {
		return m.deleteByIDFn(ctx, id)
	}
	return nil
}

func (m *mockSessionRepo) DeleteByUserID(ctx context.Context, userID string) error {
	if m.deleteByUserIDFn != nil {
		return m.deleteByUserIDFn(ctx, userID)
	}
	return nil
}

func (m *mockSessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	if m.deleteExpiredFn != nil {
		return m.deleteExpiredFn(ctx)
	}
	return 0, nil
}

type mockOAuthProvider struct {
	getLoginURLFn  func(state string) string
	exchangeCodeFn func(ctx context.Context, code string) (*OAuthUserInfo, error)
}

func (m *mockOAuthProvider) GetLoginURL(state string) string {
	if m.getLoginURLFn != nil {
		return m.getLoginURLFn(state)
	}
	return ""
}

func (m *mockOAuthProvider) ExchangeCode(ctx context.Context, code string) (*OAuthUserInfo, error) {
	if m.exchangeCodeFn != nil {
		return m.exchangeCodeFn(ctx, code)
	}
	return nil, nil
}

// --- compile-time interface checks ---
var _ repository.StudentRepository = (*mockStudentRepo)(nil)
var _ repository.IdentityRepository = (*mockIdentityRepo)(nil)
var _ repository.SessionRepository = (*mockSessionRepo)(nil)
var _ OAuthProvider = (*mockOAuthProvider)(nil)

// --- テスト ---

func TestGetLoginURL_ReturnsOAuthURL(t *testing.T) {
	provider := &mockOAuthProvider{
		getLoginURLFn: func(state string) string {
			return "https://accounts.google.com/o/oauth2/auth?state=" + state
		},
	}
	svc := NewService(provider, nil, nil, nil, ServiceConfig{SessionMaxAge: 86400})

	url := svc.GetLoginURL("test-state")

	if url == "" {
		t.Fatal("expected non-empty URL")
	}
	expected := "https://accounts.google.com/o/oauth2/auth?state=test-state"
	if url != expected {
		t.Errorf("GetLoginURL() = %q, want %q", url, expected)
	}
}

func TestHandleCallback_NewUser_CreatesStudentAndIdentityAndSession(t *testing.T) {
	ctx := context.Background()

	var createdStudent *model.Student
	var createdIdentity *model.Identity
	var createdSession *model.Session

	provider := &mockOAuthProvider{
		exchangeCodeFn: func(ctx context.Context, code string) (*OAuthUserInfo, error) {
			return &OAuthUserInfo{
				ProviderUserID: "google-user-123",
				Email:          "20CS1234@College.edu",
				Name:           "Test Student",
				Provider:       "google",
			}, nil
		},
	}

	studentRepo := &mockStudentRepo{
		createWithIdentityFn: func(ctx context.Context, student *model.Student, identity *model.Identity) error {
			createdStudent = student
			createdIdentity = identity
			return nil
		},
	}

	identityRepo := &mockIdentityRepo{
		findByProviderFn: func(ctx context.Context, provider, providerUserID string) (*model.Identity, error) {
			// ユーザーが見つからない（新規ユーザー）
			return nil, nil
		},
	}

	sessionRepo := &mockSessionRepo{
		createFn: func(ctx context.Context, session *model.Session) error {
			createdSession = session
			return nil
		},
	}

	svc := NewService(provider, studentRepo, identityRepo, sessionRepo, ServiceConfig{SessionMaxAge: 86400})

	session, err := svc.HandleCallback(ctx, "auth-code-123")
	if err != nil {
		t.Fatalf("HandleCallback() error = %v", err)
	}

	// セッションが返されること
	if session == nil {
		t.Fatal("expected non-nil session")
	}
	if session.ID == "" {
		t.Error("expected non-empty session ID")
	}
	if session.UserID == "" {
		t.Error("expected non-empty user ID in session")
	}

	// 寮生が作成されること（メールは小文字正規化、学籍番号はローカル部の大文字化）
	if createdStudent == nil {
		t.Fatal("expected student to be created")
	}
	if createdStudent.Email != "20cs1234@college.edu" {
		t.Errorf("student email = %q, want %q", createdStudent.Email, "20cs1234@college.edu")
	}
	if createdStudent.StudentID != "20CS1234" {
		t.Errorf("student ID = %q, want %q", createdStudent.StudentID, "20CS1234")
	}
	if createdStudent.Name != "Test Student" {
		t.Errorf("student name = %q, want %q", createdStudent.Name, "Test Student")
	}
	if createdStudent.Role != model.RoleStudent {
		t.Errorf("student role = %q, want %q", createdStudent.Role, model.RoleStudent)
	}

	// identityが作成されること
	if createdIdentity == nil {
		t.Fatal("expected identity to be created")
	}
	if createdIdentity.Provider != "google" {
		t.Errorf("identity provider = %q, want %q", createdIdentity.Provider, "google")
	}
	if createdIdentity.ProviderUserID != "google-user-123" {
		t.Errorf("identity providerUserID = %q, want %q", createdIdentity.ProviderUserID, "google-user-123")
	}

	// セッションが作成されること
	if createdSession == nil {
		t.Fatal("expected session to be created")
	}
	if createdSession.UserID != createdStudent.ID {
		t.Errorf("session userID = %q, want %q", createdSession.UserID, createdStudent.ID)
	}
	if createdSession.ExpiresAt.Before(time.Now()) {
		t.Error("session should not be expired")
	}
}

func TestHandleCallback_ExistingUser_LogsInAndCreatesSession(t *testing.T) {
	ctx := context.Background()

	existingUserID := "existing-user-id-456"
	var createdSession *model.Session

	provider := &mockOAuthProvider{
		exchangeCodeFn: func(ctx context.Context, code string) (*OAuthUserInfo, error) {
			return &OAuthUserInfo{
				ProviderUserID: "google-user-789",
				Email:          "existing@example.com",
				Name:           "Existing User",
				Provider:       "google",
			}, nil
		},
	}

	studentRepo := &mockStudentRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Student, error) {
			return &model.Student{
				ID:    existingUserID,
				Email: "existing@example.com",
				Name:  "Existing User",
			}, nil
		},
	}

	identityRepo := &mockIdentityRepo{
		findByProviderFn: func(ctx context.Context, provider, providerUserID string) (*model.Identity, error) {
			// 既存ユーザーのidentityが見つかる
			return &model.Identity{
				ID:             "identity-id-1",
				UserID:         existingUserID,
				Provider:       "google",
				ProviderUserID: "google-user-789",
			}, nil
		},
	}

	sessionRepo := &mockSessionRepo{
		createFn: func(ctx context.Context, session *model.Session) error {
			createdSession = session
			return nil
		},
	}

	svc := NewService(provider, studentRepo, identityRepo, sessionRepo, ServiceConfig{SessionMaxAge: 86400})

	session, err := svc.HandleCallback(ctx, "auth-code-existing")
	if err != nil {
		t.Fatalf("HandleCallback() error = %v", err)
	}

	if session == nil {
		t.Fatal("expected non-nil session")
	}
	if session.UserID != existingUserID {
		t.Errorf("session userID = %q, want %q", session.UserID, existingUserID)
	}

	// セッションが作成されること
	if createdSession == nil {
		t.Fatal("expected session to be created")
	}
	if createdSession.UserID != existingUserID {
		t.Errorf("session userID = %q, want %q", createdSession.UserID, existingUserID)
	}
}

func TestHandleCallback_OAuthError_ReturnsError(t *testing.T) {
	ctx := context.Background()

	provider := &mockOAuthProvider{
		exchangeCodeFn: func(ctx context.Context, code string) (*OAuthUserInfo, error) {
			return nil, errors.New("oauth exchange failed")
		},
	}

	svc := NewService(provider, nil, nil, nil, ServiceConfig{SessionMaxAge: 86400})

	_, err := svc.HandleCallback(ctx, "bad-code")
	if err == nil {
		t.Fatal("expected error from HandleCallback")
	}
}

func TestHandleCallback_StudentCreationError_ReturnsError(t *testing.T) {
	ctx := context.Background()

	provider := &mockOAuthProvider{
		exchangeCodeFn: func(ctx context.Context, code string) (*OAuthUserInfo, error) {
			return &OAuthUserInfo{
				ProviderUserID: "google-user-err",
				Email:          "error@example.com",
				Name:           "Error User",
				Provider:       "google",
			}, nil
		},
	}

	identityRepo := &mockIdentityRepo{
		findByProviderFn: func(ctx context.Context, provider, providerUserID string) (*model.Identity, error) {
			return nil, nil // 新規ユーザー
		},
	}

	studentRepo := &mockStudentRepo{
		createWithIdentityFn: func(ctx context.Context, student *model.Student, identity *model.Identity) error {
			return errors.New("db error")
		},
	}

	svc := NewService(provider, studentRepo, identityRepo, nil, ServiceConfig{SessionMaxAge: 86400})

	_, err := svc.HandleCallback(ctx, "auth-code-err")
	if err == nil {
		t.Fatal("expected error from HandleCallback")
	}
}

func TestLogout_DeletesSession(t *testing.T) {
	ctx := context.Background()

	var deletedSessionID string

	sessionRepo := &mockSessionRepo{
		deleteByIDFn: func(ctx context.Context, id string) error {
			deletedSessionID = id
			return nil
		},
	}

	svc := NewService(nil, nil, nil, sessionRepo, ServiceConfig{SessionMaxAge: 86400})

	err := svc.Logout(ctx, "session-to-delete")
	if err != nil {
		t.Fatalf("Logout() error = %v", err)
	}

	if deletedSessionID != "session-to-delete" {
		t.Errorf("deleted session ID = %q, want %q", deletedSessionID, "session-to-delete")
	}
}

func TestLogout_EmptySessionID_ReturnsError(t *testing.T) {
	ctx := context.Background()

	svc := NewService(nil, nil, nil, nil, ServiceConfig{SessionMaxAge: 86400})

	err := svc.Logout(ctx, "")
	if err == nil {
		t.Fatal("expected error for empty session ID")
	}
}

func TestGetCurrentUser_ValidSession_ReturnsStudent(t *testing.T) {
	ctx := context.Background()

	userID := "user-id-123"

	sessionRepo := &mockSessionRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Session, error) {
			return &model.Session{
				ID:        "session-valid",
				UserID:    userID,
				ExpiresAt: time.Now().Add(1 * time.Hour),
			}, nil
		},
	}

	studentRepo := &mockStudentRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Student, error) {
			return &model.Student{
				ID:        userID,
				StudentID: "20CS1234",
				Email:     "user@example.com",
				Name:      "Test Student",
				Role:      model.RoleStudent,
			}, nil
		},
	}

	svc := NewService(nil, studentRepo, nil, sessionRepo, ServiceConfig{SessionMaxAge: 86400})

	student, err := svc.GetCurrentUser(ctx, "session-valid")
	if err != nil {
		t.Fatalf("GetCurrentUser() error = %v", err)
	}

	if student == nil {
		t.Fatal("expected non-nil student")
	}
	if student.ID != userID {
		t.Errorf("student ID = %q, want %q", student.ID, userID)
	}
}

func TestGetCurrentUser_ExpiredSession_ReturnsError(t *testing.T) {
	ctx := context.Background()

	sessionRepo := &mockSessionRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Session, error) {
			// 期限切れセッション -> リポジトリはnilを返す
			return nil, nil
		},
	}

	svc := NewService(nil, nil, nil, sessionRepo, ServiceConfig{SessionMaxAge: 86400})

	_, err := svc.GetCurrentUser(ctx, "expired-session")
	if err == nil {
		t.Fatal("expected error for expired session")
	}
}

func TestGetCurrentUser_EmptySessionID_ReturnsError(t *testing.T) {
	ctx := context.Background()

	svc := NewService(nil, nil, nil, nil, ServiceConfig{SessionMaxAge: 86400})

	_, err := svc.GetCurrentUser(ctx, "")
	if err == nil {
		t.Fatal("expected error for empty session ID")
	}
}

func TestDeriveStudentID(t *testing.T) {
	tests := []struct {
		email string
		want  string
	}{
		{"20cs1234@college.edu", "20CS1234"},
		{"21ee0042@college.edu", "21EE0042"},
		{"no-at-sign", "NO-AT-SIGN"},
	}
	for _, tt := range tests {
		if got := deriveStudentID(tt.email); got != tt.want {
			t.Errorf("deriveStudentID(%q) = %q, want %q", tt.email, got, tt.want)
		}
	}
}
