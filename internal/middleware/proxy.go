package middleware

import (
	"net/http"
	"strings"
)

// NewProxySchemeMiddleware はリバースプロキシ（Render, Cloudflare等）の
// ヘッダーからリクエストのスキームを復元するミドルウェアを返す。
// X-Forwarded-ProtoまたはCF-Visitorがhttpsを示す場合、
// r.URL.Schemeをhttpsに設定する。
func NewProxySchemeMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			forwardedProto := r.Header.Get("X-Forwarded-Proto")
			cfVisitor := r.Header.Get("CF-Visitor")

			if forwardedProto == "https" || strings.Contains(strings.ToLower(cfVisitor), "https") {
				r.URL.Scheme = "https"
			}

			next.ServeHTTP(w, r)
		})
	}
}
