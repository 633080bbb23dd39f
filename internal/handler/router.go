package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/authgate/internal/auth"
	"github.com/hitoshi/authgate/internal/metrics"
	"github.com/hitoshi/authgate/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	TokenVerifier     middleware.TokenVerifier
	CORSAllowedOrigin string
	Logger            *slog.Logger

	// サービス
	AuthService    AuthServiceInterface
	ProfileService ProfileServiceInterface
	OAuthService   OAuthServiceInterface
	OAuthProvider  auth.ExternalProvider
	OAuthConfig    OAuthHandlerConfig

	// 観測
	Metrics       metrics.Recorder
	MetricsGather prometheus.Gatherer
	HealthChecker HealthChecker
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成した
// chi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Metrics → Logging
//
// 認証が必要なルートはさらにAuthMiddleware（ベアラートークン検証）を通る。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	if deps.Metrics != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.Metrics))
	}
	if deps.Logger != nil {
		r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	}

	authHandler := NewAuthHandler(deps.AuthService, deps.Metrics)
	profileHandler := NewProfileHandler(deps.ProfileService)
	oauthHandler := NewOAuthHandler(deps.OAuthProvider, deps.OAuthService, deps.OAuthConfig, deps.Metrics)

	r.Route("/auth", func(r chi.Router) {
		// --- 認証不要のルート ---

		// OAuthフロー
		r.Get("/google", oauthHandler.Login)
		r.Get("/google/callback", oauthHandler.Callback)

		// メール/パスワードフロー
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/forgot-password", authHandler.ForgotPassword)
		r.Post("/reset-password", authHandler.ResetPassword)

		// --- 認証が必要なルート ---
		r.Group(func(r chi.Router) {
			r.Use(middleware.NewAuthMiddleware(deps.TokenVerifier))

			r.Get("/profile", profileHandler.Profile)
			r.Put("/profile/update", profileHandler.UpdateProfile)
			r.Get("/logout", profileHandler.Logout)
			r.Get("/user/{id}", profileHandler.GetUserByID)
		})
	})

	// 運用系エンドポイント
	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.MetricsGather != nil {
		r.Handle("/metrics", metrics.Handler(deps.MetricsGather))
	}

	return r
}
