package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hitoshi/jobalert/internal/middleware"
	"github.com/hitoshi/jobalert/internal/model"
	"github.com/hitoshi/jobalert/internal/user"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	Register(ctx context.Context, email, password string, preferences []string) (*model.User, error)
	Login(ctx context.Context, email, password string) (string, *model.User, error)
	CompleteOnboarding(ctx context.Context, userID string, input user.OnboardingInput) (*model.User, error)
}

// UserHandler はユーザー登録・ログイン・オンボーディングのHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
	tokens  TokenIssuerInterface
}

// TokenIssuerInterface はセッショントークン発行のインターフェース。
type TokenIssuerInterface interface {
	Issue(userID string) (string, error)
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface, tokens TokenIssuerInterface) *UserHandler {
	return &UserHandler{
		service: service,
		tokens:  tokens,
	}
}

// registerRequest はユーザー登録のリクエストボディ。
type registerRequest struct {
	Email       string   `json:"email"`
	Password    string   `json:"password"`
	Preferences []string `json:"preferences"`
}

// loginRequest はログインのリクエストボディ。
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// sessionResponse はトークン付きのログイン・登録レスポンス。
type sessionResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

// onboardingRequest はオンボーディングのリクエストボディ。
type onboardingRequest struct {
	TelegramID  string   `json:"telegram_id"`
	Preferences []string `json:"preferences"`
	AlertSpeed  string   `json:"alert_speed"`
	InAppNotify bool     `json:"in_app_notifications"`
}

// Register はメール/パスワードでユーザーを登録する。
// POST /api/auth/register
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("リクエストボディの形式が不正です"))
		return
	}

	newUser, err := h.service.Register(r.Context(), req.Email, req.Password, req.Preferences)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	token, err := h.tokens.Issue(newUser.ID)
	if err != nil {
		slog.Error("failed to issue token after registration",
			slog.String("user_id", newUser.ID),
			slog.String("error", err.Error()),
		)
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, sessionResponse{
		Token: token,
		User:  newUserResponse(newUser),
	})
}

// Login はメール/パスワードでログインする。
// POST /api/auth/login
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("リクエストボディの形式が不正です"))
		return
	}

	token, loggedIn, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{
		Token: token,
		User:  newUserResponse(loggedIn),
	})
}

// Onboarding はオンボーディング項目を設定する。
// POST /api/auth/onboarding（要認証）
func (h *UserHandler) Onboarding(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req onboardingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("リクエストボディの形式が不正です"))
		return
	}

	updated, err := h.service.CompleteOnboarding(r.Context(), userID, user.OnboardingInput{
		TelegramID:  req.TelegramID,
		Preferences: req.Preferences,
		AlertSpeed:  req.AlertSpeed,
		InAppNotify: req.InAppNotify,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newUserResponse(updated))
}
