// Package student は寮生プロフィールの参照と更新を提供する。
package student

import (
	"context"
	"fmt"
	"strings"

	"github.com/hitoshi/hostelman/internal/model"
	"github.com/hitoshi/hostelman/internal/repository"
	"github.com/hitoshi/hostelman/internal/security"
)

// Service は寮生プロフィールに関するビジネスロジックを提供する。
type Service struct {
	repo       repository.StudentRepository
	photoGuard security.PhotoGuardService
}

// NewService はServiceを生成する。
func NewService(repo repository.StudentRepository, photoGuard security.PhotoGuardService) *Service {
	return &Service{repo: repo, photoGuard: photoGuard}
}

// ProfileUpdate はプロフィール更新の入力。
type ProfileUpdate struct {
	Phone       string
	ParentPhone string
	PhotoURL    string
}

// GetProfile は寮生プロフィールを取得する。
func (s *Service) GetProfile(ctx context.Context, userID string) (*model.Student, error) {
	st, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find student: %w", err)
	}
	if st == nil {
		return nil, model.NewUserNotFoundError()
	}
	return st, nil
}

// UpdateProfile は電話番号・保護者電話番号・顔写真URLを更新する。
// 顔写真URLは内部アドレスを指していないか検証してから保存する。
func (s *Service) UpdateProfile(ctx context.Context, actor *model.Student, update ProfileUpdate) (*model.Student, error) {
	st, err := s.GetProfile(ctx, actor.ID)
	if err != nil {
		return nil, err
	}

	photoURL := strings.TrimSpace(update.PhotoURL)
	if photoURL != "" {
		if err := s.photoGuard.ValidatePhotoURL(photoURL); err != nil {
			return nil, model.NewInvalidPhotoURLError(err.Error())
		}
	}

	st.Phone = strings.TrimSpace(update.Phone)
	st.ParentPhone = strings.TrimSpace(update.ParentPhone)
	st.PhotoURL = photoURL

	if err := s.repo.UpdateProfile(ctx, st); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return st, nil
}
