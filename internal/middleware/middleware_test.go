package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gradschool/internal/auth"
	"gradschool/internal/config"
	"gradschool/internal/models"
)

func newAuth(t *testing.T) (*auth.Service, *AuthMiddleware) {
	t.Helper()
	svc := auth.NewService(&config.JWTConfig{Secret: "test-secret", Issuer: "gradschool", Expiration: time.Hour})
	return svc, NewAuthMiddleware(svc)
}

func okHandler(w http.ResponseWriter, r *http.Request) {
	claims, _ := GetClaims(r)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(string(claims.Role)))
}

func TestAuthenticate(t *testing.T) {
	svc, m := newAuth(t)
	token, err := svc.GenerateToken(3, "aa@test.edu", models.UserRoleAA)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + token, http.StatusUnauthorized},
		{"garbage token", "Bearer not-a-token", http.StatusUnauthorized},
		{"valid token", "Bearer " + token, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/rates", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			m.Authenticate(http.HandlerFunc(okHandler)).ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Errorf("Expected status %d, got %d", tt.want, rec.Code)
			}
			if tt.want == http.StatusOK && rec.Body.String() != "aa" {
				t.Errorf("Expected claims in context, got body %q", rec.Body.String())
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	handler := RequireRole(models.UserRoleAA, models.UserRoleAdmin)(http.HandlerFunc(okHandler))

	tests := []struct {
		name   string
		claims *auth.JWTClaims
		want   int
	}{
		{"unauthenticated", nil, http.StatusUnauthorized},
		{"student", &auth.JWTClaims{UserID: 1, Role: models.UserRoleStudent}, http.StatusForbidden},
		{"aa", &auth.JWTClaims{UserID: 2, Role: models.UserRoleAA}, http.StatusOK},
		{"admin", &auth.JWTClaims{UserID: 3, Role: models.UserRoleAdmin}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPut, "/", nil)
			if tt.claims != nil {
				req = req.WithContext(WithClaims(req.Context(), tt.claims))
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("Expected status %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

func TestLoggingMiddlewareLevels(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	defer slog.SetDefault(prev)

	statuses := map[string]int{"/ok": 200, "/missing": 404, "/broken": 500}
	handler := LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(statuses[r.URL.Path])
		_, _ = w.Write([]byte(`{"path":"` + r.URL.Path + `"}`))
	}))

	for path := range statuses {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{"x":1}`)))
	}

	out := buf.String()
	for _, want := range []string{
		`level=INFO msg="Request completed"`,
		`level=WARN msg="Request failed"`,
		`level=ERROR msg="Request failed with error"`,
		`request_body="{\"x\":1}"`,
		`status=404`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected log output to contain %s, got:\n%s", want, out)
		}
	}
}
