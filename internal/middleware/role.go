package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/hostelman/internal/model"
)

// studentContextKey はリクエストコンテキストに寮生レコードを格納するためのキー。
var studentContextKey = contextKey("student")

// StudentFinder は寮生の検索に必要なインターフェース。
// repository.StudentRepositoryの部分集合として定義する。
type StudentFinder interface {
	FindByID(ctx context.Context, id string) (*model.Student, error)
}

// NewRoleMiddleware はロールによるルートグループの認可ミドルウェアを返す。
// SessionMiddlewareの後に配置すること。コンテキストのユーザーIDから
// 寮生レコードを取得し、許可ロールに含まれる場合のみ通過させる。
// 通過時は寮生レコードをコンテキストに注入し、ハンドラーでの再取得を不要にする。
func NewRoleMiddleware(finder StudentFinder, allowed ...model.Role) func(next http.Handler) http.Handler {
	allowedSet := make(map[model.Role]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := UserIDFromContext(r.Context())
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			student, err := finder.FindByID(r.Context(), userID)
			if err != nil {
				slog.Error("failed to find student for role check",
					slog.String("user_id", userID),
					slog.String("error", err.Error()),
				)
				WriteInternalServerError(w)
				return
			}
			if student == nil {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUserNotFoundError())
				return
			}

			if _, ok := allowedSet[student.Role]; !ok {
				slog.Warn("role check failed",
					slog.String("user_id", userID),
					slog.String("role", string(student.Role)),
					slog.String("path", r.URL.Path),
				)
				WriteErrorResponse(w, http.StatusForbidden, model.NewForbiddenRoleError(allowed[0]))
				return
			}

			ctx := context.WithValue(r.Context(), studentContextKey, student)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// StudentFromContext はリクエストコンテキストから寮生レコードを取得する。
// ロールミドルウェアを通過したリクエストでのみ有効。
func StudentFromContext(ctx context.Context) (*model.Student, bool) {
	student, ok := ctx.Value(studentContextKey).(*model.Student)
	return student, ok && student != nil
}

// ContextWithStudent はコンテキストに寮生レコードを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithStudent(ctx context.Context, student *model.Student) context.Context {
	return context.WithValue(ctx, studentContextKey, student)
}
