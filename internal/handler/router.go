package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/jobalert/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	TokenValidator    middleware.TokenValidator
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	MetricsRecorder   middleware.HTTPStatusRecorder
	MetricsHandler    http.Handler

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// ユーザー
	UserService UserServiceInterface
	TokenIssuer TokenIssuerInterface

	// 求人
	JobHandler *JobHandler
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	ProxyScheme → SecurityHeaders → CORS → Logging → Metrics → Recovery
//
// OAuthログイン開始（/auth/twitter/login）はIP単位のレート制限を追加する。
// 認証が必要なルートはAuthToken → RateLimit(General)を通す。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	// 全ルート共通のミドルウェア
	r.Use(middleware.NewProxySchemeMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	if deps.MetricsRecorder != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.MetricsRecorder))
	}
	r.Use(middleware.NewRecoveryMiddleware())

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	userHandler := NewUserHandler(deps.UserService, deps.TokenIssuer)

	// --- 運用エンドポイント ---

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	// --- 認証不要のルート ---

	// OAuthフロー
	r.Route("/auth", func(r chi.Router) {
		// ログイン開始はIP単位のレート制限を追加
		r.With(deps.RateLimiter.LoginMiddleware()).Get("/twitter/login", authHandler.Login)
		r.Get("/callback", authHandler.Callback)
		r.Get("/me", authHandler.Me)
	})

	// メール/パスワード認証
	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", userHandler.Register)
		r.With(deps.RateLimiter.LoginMiddleware()).Post("/login", userHandler.Login)

		// オンボーディングは認証が必要
		r.Group(func(r chi.Router) {
			r.Use(middleware.NewAuthTokenMiddleware(deps.TokenValidator))
			r.Use(deps.RateLimiter.GeneralMiddleware())
			r.Post("/onboarding", userHandler.Onboarding)
		})
	})

	// 求人一覧と統計は公開エンドポイント
	r.Get("/api/jobs", deps.JobHandler.List)
	r.Get("/api/stats", deps.JobHandler.Stats)

	return r
}
