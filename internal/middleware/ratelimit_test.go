package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func newTestRateLimiter(t *testing.T, loginRate rate.Limit, loginBurst int) *RateLimiter {
	t.Helper()
	rl := NewRateLimiter(RateLimiterConfig{
		GeneralRate:     rate.Limit(1),
		GeneralBurst:    2,
		LoginRate:       loginRate,
		LoginBurst:      loginBurst,
		CleanupInterval: time.Minute,
	})
	t.Cleanup(rl.Stop)
	return rl
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestLoginMiddleware_AllowsWithinBurst(t *testing.T) {
	rl := newTestRateLimiter(t, rate.Limit(0.1), 3)
	handler := rl.LoginMiddleware()(okHandler())

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/auth/twitter/login", nil)
		req.RemoteAddr = "203.0.113.1:5000"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want %d", i+1, rec.Code, http.StatusOK)
		}
	}
}

func TestLoginMiddleware_RejectsOverBurst(t *testing.T) {
	rl := newTestRateLimiter(t, rate.Limit(0.01), 1)
	handler := rl.LoginMiddleware()(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/auth/twitter/login", nil)
	req.RemoteAddr = "203.0.113.1:5000"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("first request: status = %d, want %d", rec.Code, http.StatusOK)
	}

	req2 := httptest.NewRequest(http.MethodGet, "/auth/twitter/login", nil)
	req2.RemoteAddr = "203.0.113.1:5001"
	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, req2)

	if rec2.Code != http.StatusTooManyRequests {
		t.Errorf("second request: status = %d, want %d", rec2.Code, http.StatusTooManyRequests)
	}
	if rec2.Header().Get("Retry-After") == "" {
		t.Error("429 response should carry a Retry-After header")
	}
}

func TestLoginMiddleware_SeparateIPsSeparateLimits(t *testing.T) {
	rl := newTestRateLimiter(t, rate.Limit(0.01), 1)
	handler := rl.LoginMiddleware()(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/auth/twitter/login", nil)
	req.RemoteAddr = "203.0.113.1:5000"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("first IP: status = %d, want %d", rec.Code, http.StatusOK)
	}

	// 別IPは独立したリミッターを持つ
	req2 := httptest.NewRequest(http.MethodGet, "/auth/twitter/login", nil)
	req2.RemoteAddr = "203.0.113.2:5000"
	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, req2)
	if rec2.Code != http.StatusOK {
		t.Errorf("second IP: status = %d, want %d", rec2.Code, http.StatusOK)
	}
}

func TestGeneralMiddleware_RequiresUserID(t *testing.T) {
	rl := newTestRateLimiter(t, rate.Limit(1), 1)
	handler := rl.GeneralMiddleware()(okHandler())

	// コンテキストにユーザーIDがない場合は401
	req := httptest.NewRequest(http.MethodGet, "/api/auth/onboarding", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestGeneralMiddleware_PerUserLimit(t *testing.T) {
	rl := newTestRateLimiter(t, rate.Limit(1), 1)
	handler := rl.GeneralMiddleware()(okHandler())

	send := func(userID string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/auth/onboarding", nil)
		req = req.WithContext(ContextWithUserID(req.Context(), userID))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	// バースト(2)までは許可
	if code := send("user-1"); code != http.StatusOK {
		t.Fatalf("request 1: status = %d, want %d", code, http.StatusOK)
	}
	if code := send("user-1"); code != http.StatusOK {
		t.Fatalf("request 2: status = %d, want %d", code, http.StatusOK)
	}
	if code := send("user-1"); code != http.StatusTooManyRequests {
		t.Errorf("request 3: status = %d, want %d", code, http.StatusTooManyRequests)
	}

	// 別ユーザーには影響しない
	if code := send("user-2"); code != http.StatusOK {
		t.Errorf("other user: status = %d, want %d", code, http.StatusOK)
	}
}

func TestClientIP_XForwardedFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.2")

	if got := clientIP(req); got != "203.0.113.7" {
		t.Errorf("clientIP = %q, want 203.0.113.7", got)
	}
}

func TestClientIP_RemoteAddr(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.9:4321"

	if got := clientIP(req); got != "203.0.113.9" {
		t.Errorf("clientIP = %q, want 203.0.113.9", got)
	}
}

func TestRateLimiter_Cleanup(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{
		GeneralRate:     rate.Limit(1),
		GeneralBurst:    1,
		LoginRate:       rate.Limit(1),
		LoginBurst:      1,
		CleanupInterval: 10 * time.Millisecond,
	})
	defer rl.Stop()

	handler := rl.LoginMiddleware()(okHandler())
	req := httptest.NewRequest(http.MethodGet, "/auth/twitter/login", nil)
	req.RemoteAddr = "203.0.113.1:5000"
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if rl.LoginLimiterCount() != 1 {
		t.Fatalf("LoginLimiterCount = %d, want 1", rl.LoginLimiterCount())
	}

	// CleanupInterval*2 を超えた未使用エントリは削除される
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if rl.LoginLimiterCount() == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Error("stale limiter entries should be cleaned up")
}
