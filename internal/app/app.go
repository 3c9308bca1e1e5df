package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/hitoshi/hostelman/internal/audit"
	"github.com/hitoshi/hostelman/internal/auth"
	"github.com/hitoshi/hostelman/internal/booking"
	"github.com/hitoshi/hostelman/internal/config"
	"github.com/hitoshi/hostelman/internal/database"
	"github.com/hitoshi/hostelman/internal/handler"
	"github.com/hitoshi/hostelman/internal/kiosk"
	"github.com/hitoshi/hostelman/internal/logger"
	"github.com/hitoshi/hostelman/internal/mess"
	"github.com/hitoshi/hostelman/internal/metrics"
	"github.com/hitoshi/hostelman/internal/middleware"
	"github.com/hitoshi/hostelman/internal/notice"
	"github.com/hitoshi/hostelman/internal/outpass"
	"github.com/hitoshi/hostelman/internal/repository"
	"github.com/hitoshi/hostelman/internal/security"
	"github.com/hitoshi/hostelman/internal/student"
	"github.com/hitoshi/hostelman/internal/worker/sweep"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// newRedisClient はGateActivity用のRedisクライアントを生成する。
// REDIS_ADDRが未設定の場合はnilを返し、アクティビティ記録は無効になる。
func newRedisClient(cfg *config.Config) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. リポジトリの初期化
	studentRepo := repository.NewPostgresStudentRepo(db)
	identRepo := repository.NewPostgresIdentityRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	outpassRepo := repository.NewPostgresOutpassRepo(db)
	roomRepo := repository.NewPostgresRoomRepo(db)
	bookingRepo := repository.NewPostgresBookingRepo(db)
	messRepo := repository.NewPostgresMessRepo(db)
	noticeRepo := repository.NewPostgresNoticeRepo(db)
	notificationRepo := repository.NewPostgresNotificationRepo(db)
	auditRepo := repository.NewPostgresAuditRepo(db)

	// 3. メトリクスとアクティビティ記録の初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	redisClient := newRedisClient(cfg)
	if redisClient != nil {
		defer redisClient.Close()
	}
	// clientがnilでも全操作がno-opになる
	activity := kiosk.NewGateActivity(redisClient)

	// 4. セキュリティサービスの初期化
	photoGuard := security.NewPhotoGuard()
	sanitizer := security.NewContentSanitizer()

	// 5. ドメインサービスの初期化
	oauthProvider := auth.NewGoogleOAuthProvider(auth.GoogleOAuthConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
	})
	authService := auth.NewService(
		oauthProvider, studentRepo, identRepo, sessionRepo,
		auth.ServiceConfig{SessionMaxAge: cfg.SessionMaxAge},
	)

	auditRecorder := audit.NewRecorder(auditRepo)

	roster := kiosk.NewRosterCache(studentRepo)
	resolver := kiosk.NewResolver(roster, studentRepo)
	kioskService := kiosk.NewService(roster, resolver, outpassRepo, auditRecorder, activity, collector)

	noticeService := notice.NewService(noticeRepo, notificationRepo, sanitizer, auditRecorder)
	outpassService := outpass.NewService(outpassRepo, auditRecorder, noticeService)
	bookingService := booking.NewService(roomRepo, bookingRepo, auditRecorder)
	messService := mess.NewService(messRepo)
	studentService := student.NewService(studentRepo, photoGuard)

	// 6. キオスクハンドラーの構築（写真プロキシ設定込み）
	kioskHandler := handler.NewKioskHandler(kioskService, activity, photoGuard, handler.KioskHandlerConfig{
		PhotoFetchTimeout: cfg.PhotoFetchTimeout,
		PhotoMaxSize:      cfg.PhotoMaxSize,
	})

	// 7. ルーターの構築
	rateLimiterCfg := middleware.DefaultRateLimiterConfig()

	deps := &handler.RouterDeps{
		HealthChecker:     db,
		SessionFinder:     sessionRepo,
		StudentFinder:     studentRepo,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       middleware.NewRateLimiter(rateLimiterCfg),
		CSRF: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		MetricsHandler: metrics.Handler(registry),
		StatusRecorder: collector,

		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			BaseURL:       cfg.BaseURL,
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},

		KioskHandler: kioskHandler,

		OutpassService: outpassService,
		BookingService: bookingService,
		MessService:    messService,
		NoticeService:  noticeService,
		StudentService: studentService,
	}

	router := handler.NewRouter(deps)

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 8. 名簿キャッシュの定期リフレッシュ
	go refreshRoster(ctx, kioskService, cfg.RosterRefreshInterval)

	// 9. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// refreshRoster は名簿キャッシュを定期的に再ロードする。
// ロード失敗は致命ではなく、次の周期まで既存キャッシュで継続する。
func refreshRoster(ctx context.Context, svc *kiosk.Service, interval time.Duration) {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			count, err := svc.ReloadRoster(ctx)
			if err != nil {
				slog.Warn("roster refresh failed", slog.String("error", err.Error()))
				continue
			}
			slog.Info("roster refreshed", slog.Int("count", count))
		}
	}
}

// runWorker はワーカーモードで起動する。
// DB接続を開き、スイープワーカーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established (worker)")

	// 2. リポジトリの初期化
	outpassRepo := repository.NewPostgresOutpassRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	auditRepo := repository.NewPostgresAuditRepo(db)

	// 3. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 4. スイープワーカーの初期化
	sweeper := sweep.NewSweeper(
		outpassRepo,
		sessionRepo,
		audit.NewRecorder(auditRepo),
		collector,
		slog.Default(),
		sweep.Config{
			OutpassReturnGrace: cfg.OutpassReturnGrace,
			AuditRetentionDays: cfg.AuditRetentionDays,
		},
	)

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Duration("sweep_interval", cfg.SweepInterval),
		slog.Duration("outpass_return_grace", cfg.OutpassReturnGrace),
	)

	// スイープワーカーをメインgoroutineで実行（ブロッキング）
	sweeper.Start(ctx, cfg.SweepInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
