package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/forgo/cityquest/internal/middleware"
	"github.com/forgo/cityquest/internal/model"
	"github.com/forgo/cityquest/pkg/jwt"
)

// ============================================================================
// Test Helpers
// ============================================================================

func makeJSONRequest(method, path string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func makeRawRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func withPlayer(req *http.Request, userID string) *http.Request {
	claims := &jwt.Claims{UserID: userID, TelegramID: "42", Role: jwt.RoleUser}
	return req.WithContext(middleware.WithClaims(req.Context(), claims))
}

func withClaims(req *http.Request, claims *jwt.Claims) *http.Request {
	return req.WithContext(middleware.WithClaims(req.Context(), claims))
}

// passthrough stands in for the guard middleware in route tests
func passthrough(next http.Handler) http.Handler {
	return next
}

func serve(mux *http.ServeMux, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	return rr
}

func parseErrorResponse(t *testing.T, body []byte) *model.ProblemDetails {
	t.Helper()
	var problem model.ProblemDetails
	if err := json.Unmarshal(body, &problem); err != nil {
		t.Fatalf("failed to parse error response: %v", err)
	}
	return &problem
}

// decodeData unwraps {"data": ...} into v and returns the links
func decodeData(t *testing.T, body []byte, v interface{}) map[string]string {
	t.Helper()
	var envelope struct {
		Data  json.RawMessage   `json:"data"`
		Links map[string]string `json:"_links"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if v != nil {
		if err := json.Unmarshal(envelope.Data, v); err != nil {
			t.Fatalf("failed to decode data: %v", err)
		}
	}
	return envelope.Links
}

func intPtr(i int) *int {
	return &i
}

func decodeJSONBody(t *testing.T, body []byte, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(body, v); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
}
