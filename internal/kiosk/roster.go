package kiosk

import (
	"context"
	"strings"
	"sync"

	"github.com/hitoshi/hostelman/internal/model"
	"github.com/hitoshi/hostelman/internal/repository"
)

// RosterCache は全寮生名簿のインメモリスナップショット。
// チェックポイントセッション開始時にロードし、以降は読み取り専用。
// Loadのたびに既存の内容を丸ごと置き換える（差分マージはしない）。
type RosterCache struct {
	repo repository.StudentRepository

	mu          sync.RWMutex
	byStudentID map[string]*model.Student
	byEmail     map[string]*model.Student
	loaded      bool
}

// NewRosterCache はRosterCacheを生成する。
func NewRosterCache(repo repository.StudentRepository) *RosterCache {
	return &RosterCache{
		repo:        repo,
		byStudentID: make(map[string]*model.Student),
		byEmail:     make(map[string]*model.Student),
	}
}

// Load は全寮生をリモートストアから取得し、キャッシュを丸ごと置き換える。
// ロード件数を返す。失敗時は既存キャッシュを維持したままエラーを返す
// （呼び出し元はリモートのみの解決に縮退し、致命扱いしないこと）。
func (c *RosterCache) Load(ctx context.Context) (int, error) {
	students, err := c.repo.ListAll(ctx)
	if err != nil {
		return 0, err
	}

	byStudentID := make(map[string]*model.Student, len(students))
	byEmail := make(map[string]*model.Student, len(students))
	for _, s := range students {
		byStudentID[strings.ToUpper(s.StudentID)] = s
		byEmail[strings.ToLower(s.Email)] = s
	}

	c.mu.Lock()
	c.byStudentID = byStudentID
	c.byEmail = byEmail
	c.loaded = true
	c.mu.Unlock()

	return len(students), nil
}

// Populated はキャッシュがロード済みかを返す。
func (c *RosterCache) Populated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

// Count はキャッシュ中の寮生数を返す。
func (c *RosterCache) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byStudentID)
}

// FindByStudentID は大文字正規化済みの学籍番号で完全一致検索する。
func (c *RosterCache) FindByStudentID(studentID string) *model.Student {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.byStudentID[studentID]
}

// FindByEmail は小文字正規化済みのメールアドレスで完全一致検索する。
func (c *RosterCache) FindByEmail(email string) *model.Student {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.byEmail[email]
}

// FindBySuffix は学籍番号が指定の後方一致コードで終わる寮生をすべて返す。
// IDカードに印字された短縮コードのスキャンに対応するための検索。
// suffixは大文字正規化済みであること。
func (c *RosterCache) FindBySuffix(suffix string) []*model.Student {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var matches []*model.Student
	for id, s := range c.byStudentID {
		if strings.HasSuffix(id, suffix) {
			matches = append(matches, s)
		}
	}
	return matches
}
