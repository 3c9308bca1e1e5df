package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/hostelman/internal/middleware"
	"github.com/hitoshi/hostelman/internal/model"
)

// HealthChecker はヘルスチェックに必要なインターフェース。
// *sql.DBがそのまま満たす。
type HealthChecker interface {
	Ping() error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	HealthChecker     HealthChecker
	SessionFinder     middleware.SessionFinder
	StudentFinder     middleware.StudentFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	CSRF              middleware.CSRFConfig

	// メトリクス公開用ハンドラー。nilの場合は/metricsを公開しない。
	MetricsHandler http.Handler

	// レスポンスステータスの記録先。nil可。
	StatusRecorder middleware.HTTPStatusRecorder

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// ゲートキオスク（写真プロキシ設定込みで構築済みのもの）
	KioskHandler *KioskHandler

	// 外出許可証
	OutpassService OutpassServiceInterface

	// 部屋・入寮
	BookingService BookingServiceInterface

	// 食堂
	MessService MessServiceInterface

	// お知らせ・通知
	NoticeService NoticeServiceInterface

	// プロフィール
	StudentService StudentServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → Metrics → SecurityHeaders → CORS
//	→ CSRF → Session → RateLimit(General) → Role
//
// 認証ルート（/auth/*）と/health、/metricsは認証チェーンの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	// 全ルート共通のミドルウェア
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(slog.Default()))
	r.Use(middleware.NewMetricsMiddleware(deps.StatusRecorder))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	kioskHandler := deps.KioskHandler
	outpassHandler := NewOutpassHandler(deps.OutpassService)
	bookingHandler := NewBookingHandler(deps.BookingService)
	messHandler := NewMessHandler(deps.MessService)
	noticeHandler := NewNoticeHandler(deps.NoticeService)
	userHandler := NewUserHandler(deps.StudentService)

	// ロールごとのゲート。認証済みグループの内側で使う。
	anyRole := middleware.NewRoleMiddleware(deps.StudentFinder,
		model.RoleStudent, model.RoleWarden, model.RoleAdmin, model.RoleSecurity)
	gateRole := middleware.NewRoleMiddleware(deps.StudentFinder,
		model.RoleSecurity, model.RoleAdmin)
	approverRole := middleware.NewRoleMiddleware(deps.StudentFinder,
		model.RoleWarden, model.RoleAdmin)
	adminRole := middleware.NewRoleMiddleware(deps.StudentFinder, model.RoleAdmin)

	// --- 認証不要のルート ---

	// ヘルスチェック
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		if deps.HealthChecker != nil {
			if err := deps.HealthChecker.Ping(); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// メトリクス
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// CSRFトークン取得
	r.Method(http.MethodGet, "/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRF))

	// 認証ルート（OAuthフロー）
	r.Route("/auth", func(r chi.Router) {
		r.Get("/google/login", authHandler.Login)
		r.Get("/google/callback", authHandler.Callback)
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: CSRF → Session → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewCSRFMiddleware(deps.CSRF))
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// ゲートキオスク（警備員・管理者のみ）
		r.Route("/api/kiosk", func(r chi.Router) {
			r.Use(gateRole)

			r.Post("/session", kioskHandler.StartSession)
			r.Post("/search", kioskHandler.Search)
			// POST /api/kiosk/action - ゲート打刻（打刻専用レート制限を追加）
			r.With(deps.RateLimiter.GateActionMiddleware()).Post("/action", kioskHandler.Action)
			r.Post("/roster/reload", kioskHandler.ReloadRoster)
			r.Get("/activity", kioskHandler.Activity)
			r.Get("/photo", kioskHandler.Photo)
		})

		// 外出許可証
		r.Route("/api/outpasses", func(r chi.Router) {
			r.With(anyRole).Post("/", outpassHandler.Create)
			r.With(anyRole).Get("/me", outpassHandler.ListOwn)

			// 承認フロー（寮監・管理者のみ）
			r.With(approverRole).Get("/pending", outpassHandler.ListPending)
			r.Route("/{outpassID}", func(r chi.Router) {
				r.Use(approverRole)
				r.Post("/approve", outpassHandler.Approve)
				r.Post("/reject", outpassHandler.Reject)
			})
		})

		// 部屋・入寮申請
		r.Route("/api/rooms", func(r chi.Router) {
			r.Use(anyRole)
			r.Get("/", bookingHandler.ListRooms)
			r.Get("/{roomID}", bookingHandler.GetRoom)
		})
		r.Route("/api/bookings", func(r chi.Router) {
			r.With(anyRole).Post("/", bookingHandler.Book)
			r.With(anyRole).Get("/me", bookingHandler.GetOwn)

			r.Route("/{bookingID}", func(r chi.Router) {
				r.Use(approverRole)
				r.Post("/reject", bookingHandler.Reject)
				r.Post("/vacate", bookingHandler.Vacate)
			})
		})

		// 食堂
		r.Route("/api/mess", func(r chi.Router) {
			r.With(anyRole).Get("/menu", messHandler.GetMenu)
			r.With(adminRole).Put("/menu", messHandler.UpsertMenu)
			r.With(anyRole).Post("/ratings", messHandler.RateMeal)
			r.With(anyRole).Get("/ratings/me", messHandler.ListOwnRatings)
		})

		// お知らせ
		r.Route("/api/notices", func(r chi.Router) {
			r.With(anyRole).Get("/", noticeHandler.List)
			r.With(approverRole).Post("/", noticeHandler.Post)

			r.Route("/{noticeID}", func(r chi.Router) {
				r.With(anyRole).Get("/", noticeHandler.Get)
				r.With(approverRole).Delete("/", noticeHandler.Delete)
			})
		})

		// 通知
		r.Route("/api/notifications", func(r chi.Router) {
			r.Use(anyRole)
			r.Get("/", noticeHandler.ListNotifications)
			r.Post("/read", noticeHandler.MarkAllRead)
		})

		// プロフィール
		r.Route("/api/users", func(r chi.Router) {
			r.Use(anyRole)
			r.Get("/me", userHandler.GetProfile)
			r.Put("/me", userHandler.UpdateProfile)
		})
	})

	return r
}
