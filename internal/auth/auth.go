package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/star/solarweather/internal/httputil"
)

// Config holds authentication configuration.
type Config struct {
	Enabled bool
	Token   string
}

// protectedRoutes generate or modify the stored forecast. Reads stay public.
var protectedRoutes = map[string]bool{
	"POST /api/v1/predictions": true,
	"GET /generar-prediccion":  true,
}

// isProtected returns true if the request needs a token.
func isProtected(r *http.Request) bool {
	return protectedRoutes[r.Method+" "+r.URL.Path]
}

// Middleware returns an HTTP middleware that enforces Bearer token auth
// on the generation routes when auth is enabled.
func Middleware(cfg Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.Enabled || !isProtected(r) {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")

			if !ok || token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(cfg.Token)) != 1 {
				w.Header().Set("WWW-Authenticate", `Bearer realm="solarweather"`)
				httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
