package serve

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

var authSecret = []byte("test-secret")

func protectedEcho(t *testing.T) http.Handler {
	t.Helper()
	return RequireBearer(authSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(Subject(r)))
	}))
}

func TestRequireBearerRoundTrip(t *testing.T) {
	token, err := IssueToken(authSecret, "user-1", time.Minute)
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	protectedEcho(t).ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Body.String() != "user-1" {
		t.Errorf("subject not propagated, got %q", rec.Body.String())
	}
}

func TestRequireBearerMissingToken(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()
	protectedEcho(t).ServeHTTP(rec, req)

	if rec.Code != 401 {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	env := decodeEnvelope(t, rec.Body.String())
	if env.Error.Code != "unauthorized" {
		t.Errorf("unexpected code %q", env.Error.Code)
	}
}

func TestRequireBearerWrongSecret(t *testing.T) {
	token, err := IssueToken([]byte("other-secret"), "user-1", time.Minute)
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	protectedEcho(t).ServeHTTP(rec, req)

	if rec.Code != 401 {
		t.Errorf("expected 401 for a token signed with another secret, got %d", rec.Code)
	}
}

func TestRequireBearerExpiredToken(t *testing.T) {
	token, err := IssueToken(authSecret, "user-1", -time.Minute)
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	protectedEcho(t).ServeHTTP(rec, req)

	if rec.Code != 401 {
		t.Errorf("expected 401 for an expired token, got %d", rec.Code)
	}
}

func TestRequireBearerGarbageToken(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer not.a.jwt")
	rec := httptest.NewRecorder()
	protectedEcho(t).ServeHTTP(rec, req)

	if rec.Code != 401 {
		t.Errorf("expected 401 for a malformed token, got %d", rec.Code)
	}
}

func TestSubjectWithoutAuth(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	if got := Subject(req); got != "" {
		t.Errorf("expected empty subject on an unauthenticated request, got %q", got)
	}
}
