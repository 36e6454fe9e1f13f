package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupKeyRouter(apiKey string) *gin.Engine {
	r := gin.New()
	r.Use(APIKey(apiKey))
	r.POST("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return r
}

func doRequest(r *gin.Engine, apiKey string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/test", http.NoBody)
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func parseBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse response body: %v", err)
	}
	return result
}

func TestAPIKey(t *testing.T) {
	tests := []struct {
		name          string
		configuredKey string
		requestKey    string
		wantStatus    int
		wantErrorCode string
	}{
		{
			name:          "valid_api_key",
			configuredKey: "local-secret",
			requestKey:    "local-secret",
			wantStatus:    http.StatusOK,
		},
		{
			name:          "invalid_api_key",
			configuredKey: "local-secret",
			requestKey:    "wrong",
			wantStatus:    http.StatusUnauthorized,
			wantErrorCode: "INVALID_API_KEY",
		},
		{
			name:          "missing_api_key",
			configuredKey: "local-secret",
			wantStatus:    http.StatusUnauthorized,
			wantErrorCode: "INVALID_API_KEY",
		},
		{
			name:       "open_when_not_configured",
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(setupKeyRouter(tt.configuredKey), tt.requestKey)
			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if tt.wantErrorCode == "" {
				return
			}
			errObj, ok := parseBody(t, rec)["error"].(map[string]interface{})
			if !ok || errObj["code"] != tt.wantErrorCode {
				t.Errorf("expected error code %q, got %v", tt.wantErrorCode, errObj)
			}
		})
	}
}

func TestRequestLogging(t *testing.T) {
	r := gin.New()
	r.Use(RequestLogging())
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, RequestID(c))
	})

	t.Run("assigns an id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", http.NoBody))
		id := rec.Header().Get("X-Request-ID")
		if id == "" || rec.Body.String() != id {
			t.Errorf("expected matching request id, header %q body %q", id, rec.Body.String())
		}
	})

	t.Run("keeps a caller supplied id", func(t *testing.T) {
		const supplied = "0190a6f0-1c2d-7e3f-8a4b-5c6d7e8f9a0b"
		req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
		req.Header.Set("X-Request-ID", supplied)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Header().Get("X-Request-ID") != supplied {
			t.Errorf("expected %s, got %s", supplied, rec.Header().Get("X-Request-ID"))
		}
	})
}
