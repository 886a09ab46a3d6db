package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/hitoshi/jobalert/internal/auth"
	"github.com/hitoshi/jobalert/internal/middleware"
	"github.com/hitoshi/jobalert/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	BeginLogin(ctx context.Context) (string, error)
	HandleCallback(ctx context.Context, code, state string) (*auth.CallbackResult, error)
	GetCurrentUser(ctx context.Context, tokenString string) (*model.User, error)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	FrontendURL string // リダイレクト先のフロントエンドのベースURL
}

// AuthHandler はOAuth認証関連のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service: service,
		config:  config,
	}
}

// userResponse はユーザー情報のAPIレスポンス。
type userResponse struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"display_name"`
	ProfileImage string    `json:"profile_image,omitempty"`
	Preferences  []string  `json:"preferences"`
	AlertSpeed   string    `json:"alert_speed"`
	CreatedAt    time.Time `json:"created_at"`
}

// newUserResponse はmodel.UserからuserResponseを構築する。
func newUserResponse(user *model.User) userResponse {
	prefs := user.Preferences
	if prefs == nil {
		prefs = []string{}
	}
	return userResponse{
		ID:           user.ID,
		Username:     user.Username,
		Email:        user.Email,
		DisplayName:  user.DisplayName,
		ProfileImage: user.ProfileImage,
		Preferences:  prefs,
		AlertSpeed:   string(user.AlertSpeed),
		CreatedAt:    user.CreatedAt,
	}
}

// Login はX OAuthフローを開始する。
// GET /auth/twitter/login
// 成功時はプロバイダーの認可ページへリダイレクトする。
// 設定不備はリダイレクト前に500エラーとして返す。
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	authURL, err := h.service.BeginLogin(r.Context())
	if err != nil {
		slog.Error("failed to begin oauth login", slog.String("error", err.Error()))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, authURL, http.StatusFound)
}

// Callback はOAuthコールバックを処理する。
// GET /auth/callback?code=xxx&state=yyy
// 成功・失敗を問わず常にフロントエンドへのリダイレクトを返す
// （ブラウザにエラーページやJSONボディを直接返さない）。
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")

	result, err := h.service.HandleCallback(r.Context(), code, state)
	if err != nil {
		// 詳細はサーバーログのみに記録し、ブラウザには無害化したメッセージを返す
		slog.Error("oauth callback failed",
			slog.String("error", err.Error()),
			slog.String("state", state),
		)
		http.Redirect(w, r, h.errorRedirectURL(err), http.StatusFound)
		return
	}

	redirectURL := h.config.FrontendURL + "/auth/callback?token=" + url.QueryEscape(result.Token) +
		"&new_user=" + strconv.FormatBool(result.NewUser)
	http.Redirect(w, r, redirectURL, http.StatusFound)
}

// Me は現在のログインユーザー情報を返す。
// GET /auth/me
// Authorization: Bearer <token> ヘッダーのトークンで認証する。
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	token := middleware.BearerToken(r)
	if token == "" {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	user, err := h.service.GetCurrentUser(r.Context(), token)
	if err != nil {
		slog.Warn("failed to get current user", slog.String("error", err.Error()))
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	writeJSON(w, http.StatusOK, newUserResponse(user))
}

// errorRedirectURL はコールバックのエラーをフロントエンドの
// エラーページURLに変換する。メッセージには秘密情報を含めない。
func (h *AuthHandler) errorRedirectURL(err error) string {
	var message string
	switch {
	case errors.Is(err, auth.ErrInvalidState):
		message = "Invalid state"
	case errors.Is(err, auth.ErrExchange):
		message = "Token exchange failed"
	case errors.Is(err, auth.ErrIdentityFetch):
		message = "Could not fetch user info"
	default:
		message = "Authentication failed"
	}
	return h.config.FrontendURL + "/auth/error?message=" + url.QueryEscape(message)
}
