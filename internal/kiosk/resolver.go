package kiosk

import (
	"context"
	"strings"

	"github.com/hitoshi/hostelman/internal/model"
	"github.com/hitoshi/hostelman/internal/repository"
)

// Resolver は自由入力のクエリを寮生1名に解決する。
// ローカルキャッシュを優先し、リモートは完全一致のフォールバックのみ
// （後方一致をリモートで行うとフルスキャンになるため）。
type Resolver struct {
	roster *RosterCache
	remote repository.StudentRepository
}

// NewResolver はResolverを生成する。
func NewResolver(roster *RosterCache, remote repository.StudentRepository) *Resolver {
	return &Resolver{roster: roster, remote: remote}
}

// suffixMinLen は後方一致検索を試みる最小クエリ長。
// 短すぎるコードは衝突が多く、誤解決のリスクが高い。
const suffixMinLen = 3

// Resolve はクエリを寮生1名に解決する。失敗は例外ではなく
// *model.APIError（AMBIGUOUS_QUERY / STUDENT_NOT_FOUND / REMOTE_UNAVAILABLE）で返す。
// 順序: キャッシュ完全一致 → キャッシュ後方一致（一意のみ採用、複数はAmbiguous）
// → リモート完全一致（学籍番号、次いでメール）→ NotFound。
func (r *Resolver) Resolve(ctx context.Context, query string) (*model.Student, error) {
	trimmed := strings.TrimSpace(query)
	upper := strings.ToUpper(trimmed)
	lower := strings.ToLower(trimmed)

	if trimmed == "" {
		return nil, model.NewStudentNotFoundError(query)
	}

	if r.roster.Populated() {
		if s := r.roster.FindByStudentID(upper); s != nil {
			return s, nil
		}
		if s := r.roster.FindByEmail(lower); s != nil {
			return s, nil
		}

		if len(trimmed) >= suffixMinLen {
			matches := r.roster.FindBySuffix(upper)
			switch len(matches) {
			case 0:
				// リモートフォールバックへ
			case 1:
				return matches[0], nil
			default:
				// 複数ヒット時は推測せず、完全なIDの入力を要求する。
				// リモートフォールバックも行わない。
				return nil, model.NewAmbiguousQueryError(trimmed, len(matches))
			}
		}
	}

	// リモートフォールバック: キャッシュの鮮度切れを完全一致のみで補う
	s, err := r.remote.FindByStudentID(ctx, upper)
	if err != nil {
		return nil, model.NewRemoteUnavailableError()
	}
	if s != nil {
		return s, nil
	}

	s, err = r.remote.FindByEmail(ctx, lower)
	if err != nil {
		return nil, model.NewRemoteUnavailableError()
	}
	if s != nil {
		return s, nil
	}

	return nil, model.NewStudentNotFoundError(trimmed)
}
