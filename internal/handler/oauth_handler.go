package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"

	"github.com/hitoshi/authgate/internal/auth"
	"github.com/hitoshi/authgate/internal/metrics"
	"github.com/hitoshi/authgate/internal/middleware"
	"github.com/hitoshi/authgate/internal/model"
)

const oauthStateCookie = "oauth_state"

// OAuthServiceInterface はOAuthハンドラーが必要とするサービスインターフェース。
type OAuthServiceInterface interface {
	ResolveExternalIdentity(ctx context.Context, identity *auth.ExternalIdentity) (*model.User, string, error)
}

// OAuthHandlerConfig はOAuthハンドラーの設定。
type OAuthHandlerConfig struct {
	CookieSecure bool
}

// OAuthHandler はGoogle OAuthフローのHTTPハンドラー。
// セッションモデルはAPI全体でステートレスなベアラートークンに統一しており、
// Cookieはハンドシェイク中のstate（CSRF対策）にのみ使用する。
type OAuthHandler struct {
	provider auth.ExternalProvider
	service  OAuthServiceInterface
	config   OAuthHandlerConfig
	recorder metrics.Recorder
}

// NewOAuthHandler はOAuthHandlerを生成する。recorderはnil可。
func NewOAuthHandler(provider auth.ExternalProvider, service OAuthServiceInterface, config OAuthHandlerConfig, recorder metrics.Recorder) *OAuthHandler {
	return &OAuthHandler{
		provider: provider,
		service:  service,
		config:   config,
		recorder: recorder,
	}
}

// Login はGoogle OAuthフローを開始する。
// GET /auth/google
func (h *OAuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	state, err := generateState()
	if err != nil {
		slog.Error("failed to generate oauth state", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	// stateをCookieに保存（CSRF対策）
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10分
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	url := h.provider.LoginURL(state)
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

// Callback はOAuthコールバックを処理し、検証済み識別情報をローカルユーザーに
// 対応付けてトークンをJSONで返す。
// GET /auth/google/callback?code=xxx&state=yyy
func (h *OAuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	// 1. stateの検証（CSRF対策）
	state := r.URL.Query().Get("state")
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != state {
		slog.Warn("oauth state mismatch",
			slog.String("query_state", state),
		)
		writeServiceError(w, r, model.NewValidationError("stateパラメータが不正です。"))
		return
	}

	// stateクッキーを削除
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	// 2. 認可コードの取得
	code := r.URL.Query().Get("code")
	if code == "" {
		writeServiceError(w, r, model.NewValidationError("認可コードがありません。"))
		return
	}

	// 3. 認可コードを検証済み識別情報に交換
	identity, err := h.provider.Exchange(r.Context(), code)
	if err != nil {
		slog.Error("oauth code exchange failed", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	// 4. ローカルユーザーへの対応付けとトークン発行
	user, tokenString, err := h.service.ResolveExternalIdentity(r.Context(), identity)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	if h.recorder != nil {
		h.recorder.RecordOAuthLogin()
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Googleログインに成功しました。",
		"user":    toUserPayload(user),
		"token":   tokenString,
	})
}

// generateState はCSRF対策用のランダムなstate値を生成する。
func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
