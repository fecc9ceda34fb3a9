package httpmw

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("passed"))
	})
}

func TestSecureHeaders(t *testing.T) {
	recorder := httptest.NewRecorder()
	SecureHeaders(okHandler()).ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api", nil))

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "nosniff", recorder.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "SAMEORIGIN", recorder.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-referrer", recorder.Header().Get("Referrer-Policy"))
	assert.Equal(t, "max-age=15552000; includeSubDomains", recorder.Header().Get("Strict-Transport-Security"))
	assert.Equal(t, "0", recorder.Header().Get("X-XSS-Protection"))
	assert.Len(t, secureHeaders, 11)
}

func TestCORS(t *testing.T) {
	t.Run("simple_request", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		request := httptest.NewRequest(http.MethodGet, "/api/cats", nil)
		request.Header.Set("Origin", "https://somewhere.example")

		CORS(okHandler()).ServeHTTP(recorder, request)

		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.Equal(t, "*", recorder.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "passed", recorder.Body.String())
	})

	t.Run("preflight", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		request := httptest.NewRequest(http.MethodOptions, "/api/cats", nil)
		request.Header.Set("Origin", "https://somewhere.example")
		request.Header.Set("Access-Control-Request-Method", http.MethodPatch)
		request.Header.Set("Access-Control-Request-Headers", "authorization,content-type")

		CORS(okHandler()).ServeHTTP(recorder, request)

		assert.Equal(t, http.StatusNoContent, recorder.Code)
		assert.Empty(t, recorder.Body.String())
		assert.Equal(t, "GET,HEAD,PUT,POST,DELETE,PATCH", recorder.Header().Get("Access-Control-Allow-Methods"))
		assert.Equal(t, "authorization,content-type", recorder.Header().Get("Access-Control-Allow-Headers"))
		assert.Equal(t, "Access-Control-Request-Headers", recorder.Header().Get("Vary"))
	})
}

func TestCSRF(t *testing.T) {
	handler := CSRF("example.com")(okHandler())

	testCases := []struct {
		name         string
		method       string
		contentType  string
		origin       string
		expectedCode int
	}{
		{name: "get_is_safe", method: http.MethodGet, contentType: "application/x-www-form-urlencoded", origin: "evil.com", expectedCode: http.StatusOK},
		{name: "json_post", method: http.MethodPost, contentType: "application/json", origin: "evil.com", expectedCode: http.StatusOK},
		{name: "no_content_type", method: http.MethodDelete, expectedCode: http.StatusOK},
		{name: "form_from_allowed_origin", method: http.MethodPost, contentType: "application/x-www-form-urlencoded", origin: "example.com", expectedCode: http.StatusOK},
		{name: "form_from_other_origin", method: http.MethodPost, contentType: "application/x-www-form-urlencoded", origin: "evil.com", expectedCode: http.StatusForbidden},
		{name: "multipart_without_origin", method: http.MethodPatch, contentType: "multipart/form-data; boundary=xyz", expectedCode: http.StatusForbidden},
		{name: "text_plain_with_charset", method: http.MethodPut, contentType: "Text/Plain; charset=utf-8", origin: "evil.com", expectedCode: http.StatusForbidden},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			request := httptest.NewRequest(testCase.method, "/api/cats", strings.NewReader("name=Tom"))
			if testCase.contentType != "" {
				request.Header.Set("Content-Type", testCase.contentType)
			}
			if testCase.origin != "" {
				request.Header.Set("Origin", testCase.origin)
			}
			recorder := httptest.NewRecorder()

			handler.ServeHTTP(recorder, request)

			assert.Equal(t, testCase.expectedCode, recorder.Code)
			if testCase.expectedCode == http.StatusForbidden {
				assert.JSONEq(t, `{"status":"error","message":"Forbidden"}`, recorder.Body.String())
			}
		})
	}
}

func TestRecoverer(t *testing.T) {
	panicking := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	recorder := httptest.NewRecorder()
	assert.NotPanics(t, func() {
		Recoverer(panicking).ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api", nil))
	})

	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
	assert.Equal(t, "application/json", recorder.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"error","message":"Internal Server Error"}`, recorder.Body.String())
}

func TestRecovererRepanicsOnAbort(t *testing.T) {
	aborting := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	})

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		Recoverer(aborting).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api", nil))
	})
}
