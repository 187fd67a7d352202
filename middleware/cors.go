package middleware

import (
	"net/http"
	"strings"

	"vendorcompliance/config"
)

// allowedOrigin echoes the request origin when CORS_ORIGIN is unset or lists it.
func allowedOrigin(origin string) string {
	if config.CORSOrigin == "" || config.CORSOrigin == "*" {
		if origin != "" {
			return origin
		}
		return "*"
	}
	for _, o := range strings.Split(config.CORSOrigin, ",") {
		if strings.TrimSpace(o) == origin {
			return origin
		}
	}
	return ""
}

func CorsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Upgrade") == "websocket" {
			next.ServeHTTP(w, r)
			return
		}

		if origin := allowedOrigin(r.Header.Get("Origin")); origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, PATCH")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With, X-Request-ID, Accept, Origin")
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Length, Content-Disposition, X-Request-ID")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
