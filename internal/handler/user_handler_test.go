package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/jobalert/internal/middleware"
	"github.com/hitoshi/jobalert/internal/model"
	"github.com/hitoshi/jobalert/internal/user"
)

// --- モック定義 ---

type mockUserService struct {
	registerFn           func(ctx context.Context, email, password string, preferences []string) (*model.User, error)
	loginFn              func(ctx context.Context, email, password string) (string, *model.User, error)
	completeOnboardingFn func(ctx context.Context, userID string, input user.OnboardingInput) (*model.User, error)
}

func (m *mockUserService) Register(ctx context.Context, email, password string, preferences []string) (*model.User, error) {
	if m.registerFn != nil {
		return m.registerFn(ctx, email, password, preferences)
	}
	return &model.User{ID: "user-1", Email: email, Username: "alice"}, nil
}

func (m *mockUserService) Login(ctx context.Context, email, password string) (string, *model.User, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, email, password)
	}
	return "session-token", &model.User{ID: "user-1", Email: email}, nil
}

func (m *mockUserService) CompleteOnboarding(ctx context.Context, userID string, input user.OnboardingInput) (*model.User, error) {
	if m.completeOnboardingFn != nil {
		return m.completeOnboardingFn(ctx, userID, input)
	}
	return &model.User{ID: userID}, nil
}

type mockTokenIssuer struct {
	issueFn func(userID string) (string, error)
}

func (m *mockTokenIssuer) Issue(userID string) (string, error) {
	if m.issueFn != nil {
		return m.issueFn(userID)
	}
	return "session-token", nil
}

var _ UserServiceInterface = (*mockUserService)(nil)
var _ TokenIssuerInterface = (*mockTokenIssuer)(nil)

// --- テスト ---

func TestUserHandlerRegister_Success(t *testing.T) {
	h := NewUserHandler(&mockUserService{}, &mockTokenIssuer{})

	body := `{"email":"alice@example.com","password":"password123","preferences":["backend"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.Register(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusCreated)
	}

	var resp sessionResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Token != "session-token" {
		t.Errorf("token = %q, want session-token", resp.Token)
	}
	if resp.User.ID != "user-1" {
		t.Errorf("user.ID = %q, want user-1", resp.User.ID)
	}
}

func TestUserHandlerRegister_InvalidBody(t *testing.T) {
	h := NewUserHandler(&mockUserService{}, &mockTokenIssuer{})

	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()

	h.Register(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestUserHandlerRegister_EmailTaken(t *testing.T) {
	svc := &mockUserService{
		registerFn: func(_ context.Context, _, _ string, _ []string) (*model.User, error) {
			return nil, model.NewEmailTakenError()
		},
	}
	h := NewUserHandler(svc, &mockTokenIssuer{})

	body := `{"email":"alice@example.com","password":"password123"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.Register(rec, req)

	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusConflict)
	}

	var resp apiErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Code != model.ErrCodeEmailTaken {
		t.Errorf("code = %q, want %q", resp.Code, model.ErrCodeEmailTaken)
	}
}

func TestUserHandlerLogin_Success(t *testing.T) {
	h := NewUserHandler(&mockUserService{}, &mockTokenIssuer{})

	body := `{"email":"alice@example.com","password":"password123"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.Login(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp sessionResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Token != "session-token" {
		t.Errorf("token = %q, want session-token", resp.Token)
	}
}

func TestUserHandlerLogin_InvalidCredentials(t *testing.T) {
	svc := &mockUserService{
		loginFn: func(_ context.Context, _, _ string) (string, *model.User, error) {
			return "", nil, model.NewInvalidCredentialsError()
		},
	}
	h := NewUserHandler(svc, &mockTokenIssuer{})

	body := `{"email":"alice@example.com","password":"wrong"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.Login(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestUserHandlerOnboarding_Success(t *testing.T) {
	var gotUserID string
	var gotInput user.OnboardingInput
	svc := &mockUserService{
		completeOnboardingFn: func(_ context.Context, userID string, input user.OnboardingInput) (*model.User, error) {
			gotUserID = userID
			gotInput = input
			return &model.User{ID: userID, AlertSpeed: model.AlertSpeedDaily}, nil
		},
	}
	h := NewUserHandler(svc, &mockTokenIssuer{})

	body := `{"telegram_id":"tg-1","preferences":["backend"],"alert_speed":"daily","in_app_notifications":true}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/onboarding", strings.NewReader(body))
	req = req.WithContext(middleware.ContextWithUserID(req.Context(), "user-1"))
	rec := httptest.NewRecorder()

	h.Onboarding(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	if gotUserID != "user-1" {
		t.Errorf("userID = %q, want user-1", gotUserID)
	}
	if gotInput.TelegramID != "tg-1" || gotInput.AlertSpeed != "daily" || !gotInput.InAppNotify {
		t.Errorf("unexpected input: %+v", gotInput)
	}
}

func TestUserHandlerOnboarding_Unauthenticated(t *testing.T) {
	h := NewUserHandler(&mockUserService{}, &mockTokenIssuer{})

	req := httptest.NewRequest(http.MethodPost, "/api/auth/onboarding", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()

	h.Onboarding(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestUserHandlerOnboarding_InvalidAlertSpeed(t *testing.T) {
	svc := &mockUserService{
		completeOnboardingFn: func(_ context.Context, _ string, input user.OnboardingInput) (*model.User, error) {
			return nil, model.NewInvalidAlertSpeedError(input.AlertSpeed)
		},
	}
	h := NewUserHandler(svc, &mockTokenIssuer{})

	body := `{"alert_speed":"hourly"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/onboarding", strings.NewReader(body))
	req = req.WithContext(middleware.ContextWithUserID(req.Context(), "user-1"))
	rec := httptest.NewRecorder()

	h.Onboarding(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestUserHandlerRegister_TokenIssueFailure(t *testing.T) {
	issuer := &mockTokenIssuer{
		issueFn: func(_ string) (string, error) {
			return "", fmt.Errorf("failed to sign token")
		},
	}
	h := NewUserHandler(&mockUserService{}, issuer)

	body := `{"email":"alice@example.com","password":"password123"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.Register(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
}
