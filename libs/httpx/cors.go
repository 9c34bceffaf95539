package httpx

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// CORSPolicy defines the CORS headers to emit for matching origins. An origin
// entry of "*" allows any origin; "*.example.com" allows any subdomain.
type CORSPolicy struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	AllowCredentials bool
	MaxAge           time.Duration
}

// WithCORS answers preflight requests and decorates simple ones. Empty
// AllowedOrigins disables it.
func WithCORS(cfg CORSPolicy) Middleware {
	origins := normalizeList(cfg.AllowedOrigins)
	if len(origins) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	static := map[string]string{}
	if methods := normalizeList(cfg.AllowedMethods); len(methods) > 0 {
		static["Access-Control-Allow-Methods"] = strings.Join(methods, ", ")
	}
	if headers := normalizeList(cfg.AllowedHeaders); len(headers) > 0 {
		static["Access-Control-Allow-Headers"] = strings.Join(headers, ", ")
	}
	if secs := int(cfg.MaxAge.Seconds()); secs > 0 {
		static["Access-Control-Max-Age"] = strconv.Itoa(secs)
	}
	if cfg.AllowCredentials {
		static["Access-Control-Allow-Credentials"] = "true"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			allowOrigin, ok := matchOrigin(origin, origins, cfg.AllowCredentials)
			if origin == "" || !ok {
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Set("Access-Control-Allow-Origin", allowOrigin)
			for k, v := range static {
				h.Set(k, v)
			}
			h.Add("Vary", "Origin")

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func normalizeList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func matchOrigin(origin string, allowed []string, allowCredentials bool) (string, bool) {
	for _, candidate := range allowed {
		switch {
		case candidate == "*":
			// Browsers reject "*" together with credentials.
			if allowCredentials {
				return origin, true
			}
			return "*", true
		case strings.HasPrefix(candidate, "*."):
			suffix := strings.ToLower(candidate[1:])
			if strings.HasSuffix(strings.ToLower(origin), suffix) {
				return origin, true
			}
		case strings.EqualFold(candidate, origin):
			return origin, true
		}
	}
	return "", false
}
