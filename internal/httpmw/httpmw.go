// Package httpmw contains the request interceptors applied to every API route.
package httpmw

import (
	"fmt"
	"mime"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/thoas/go-funk"

	"github.com/patric-chuzhbe/catsapi/internal/logger"
	"github.com/patric-chuzhbe/catsapi/internal/models"
)

var secureHeaders = map[string]string{
	"Cross-Origin-Resource-Policy":      "same-origin",
	"Cross-Origin-Opener-Policy":        "same-origin",
	"Origin-Agent-Cluster":              "?1",
	"Referrer-Policy":                   "no-referrer",
	"Strict-Transport-Security":         "max-age=15552000; includeSubDomains",
	"X-Content-Type-Options":            "nosniff",
	"X-DNS-Prefetch-Control":            "off",
	"X-Download-Options":                "noopen",
	"X-Frame-Options":                   "SAMEORIGIN",
	"X-Permitted-Cross-Domain-Policies": "none",
	"X-XSS-Protection":                  "0",
}

var corsAllowMethods = []string{
	http.MethodGet,
	http.MethodHead,
	http.MethodPut,
	http.MethodPost,
	http.MethodDelete,
	http.MethodPatch,
}

var safeMethods = []string{http.MethodGet, http.MethodHead}

// Content types a browser may send cross-site without a preflight.
var formContentTypes = []string{
	"application/x-www-form-urlencoded",
	"multipart/form-data",
	"text/plain",
}

// Recoverer turns a panic in a handler into a JSON 500 and logs the stack.
func Recoverer(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			recovered := recover()
			if recovered == nil {
				return
			}
			if recovered == http.ErrAbortHandler {
				panic(recovered)
			}

			logger.Log.Errorw(
				"panic while serving request",
				"request_id", logger.RequestIDFromContext(r.Context()),
				"panic", fmt.Sprint(recovered),
				"stack", string(debug.Stack()),
			)
			writeError(w, http.StatusInternalServerError, "Internal Server Error")
		}()

		h.ServeHTTP(w, r)
	})
}

// SecureHeaders sets the hardening headers on every response.
func SecureHeaders(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for name, value := range secureHeaders {
			w.Header().Set(name, value)
		}
		h.ServeHTTP(w, r)
	})
}

// CORS allows any origin. Preflight requests are answered here with 204.
func CORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")

		if r.Method != http.MethodOptions {
			h.ServeHTTP(w, r)
			return
		}

		w.Header().Set("Access-Control-Allow-Methods", strings.Join(corsAllowMethods, ","))
		if requested := r.Header.Get("Access-Control-Request-Headers"); requested != "" {
			w.Header().Set("Access-Control-Allow-Headers", requested)
			w.Header().Add("Vary", "Access-Control-Request-Headers")
		}
		w.Header().Del("Content-Type")
		w.Header().Del("Content-Length")
		w.WriteHeader(http.StatusNoContent)
	})
}

// CSRF rejects unsafe form submissions whose Origin is not allowedOrigin.
// JSON requests are not affected: a browser cannot send them cross-site
// without passing the CORS preflight.
func CSRF(allowedOrigin string) func(http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if funk.ContainsString(safeMethods, r.Method) || !isFormRequest(r) {
				h.ServeHTTP(w, r)
				return
			}

			if r.Header.Get("Origin") != allowedOrigin {
				logger.Log.Debugw(
					"cross-site form request rejected",
					"origin", r.Header.Get("Origin"),
					"request_id", logger.RequestIDFromContext(r.Context()),
				)
				writeError(w, http.StatusForbidden, "Forbidden")
				return
			}

			h.ServeHTTP(w, r)
		})
	}
}

func isFormRequest(r *http.Request) bool {
	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	}

	return funk.ContainsString(formContentTypes, mediaType)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = fmt.Fprintf(w, `{"status":%q,"message":%q}`, models.StatusError, message)
}
