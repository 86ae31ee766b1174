package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mmeshcher/roomie/internal/model"
)

func testUser() *model.User {
	return &model.User{
		ID:    uuid.MustParse("00000000-0000-0000-0000-00000000002a"),
		Email: "alice@example.com",
		Name:  "Alice",
	}
}

func TestAuthMiddleware_WithValidToken(t *testing.T) {
	m := NewAuthMiddleware("test-secret", time.Hour)
	u := testUser()

	token, err := m.IssueToken(u)
	if err != nil {
		t.Fatalf("IssueToken error: %v", err)
	}

	nextCalled := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextCalled = true
		id, ok := GetUserIDFromContext(r.Context())
		if !ok {
			t.Fatalf("user id not in context")
		}
		if id != u.ID {
			t.Fatalf("user id from context = %s, want %s", id, u.ID)
		}
		claims, _ := GetClaimsFromContext(r.Context())
		if claims.Email != u.Email || claims.Name != u.Name {
			t.Fatalf("unexpected claims: %+v", claims)
		}
	})

	r := httptest.NewRequest(http.MethodGet, "/protected", nil)
	r.Header.Set("Authorization", "Bearer "+token)

	m.Middleware(next).ServeHTTP(httptest.NewRecorder(), r)

	if !nextCalled {
		t.Fatalf("next handler was not called")
	}
}

func TestAuthMiddleware_Rejects(t *testing.T) {
	m := NewAuthMiddleware("test-secret", time.Hour)
	other := NewAuthMiddleware("other-secret", time.Hour)

	foreign, err := other.IssueToken(testUser())
	if err != nil {
		t.Fatalf("IssueToken error: %v", err)
	}

	expiredIssuer := NewAuthMiddleware("test-secret", time.Hour)
	expiredIssuer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, err := expiredIssuer.IssueToken(testUser())
	if err != nil {
		t.Fatalf("IssueToken error: %v", err)
	}

	tests := []struct {
		name   string
		header string
	}{
		{name: "no header", header: ""},
		{name: "not bearer", header: "Basic abc"},
		{name: "garbage", header: "Bearer not-a-jwt"},
		{name: "foreign signature", header: "Bearer " + foreign},
		{name: "expired", header: "Bearer " + expired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatalf("next handler should not be called")
			})

			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}

			m.Middleware(next).ServeHTTP(w, r)

			res := w.Result()
			if res.StatusCode != http.StatusUnauthorized {
				t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusUnauthorized)
			}
		})
	}
}

func TestNewAuthMiddleware_Defaults(t *testing.T) {
	m := NewAuthMiddleware("", 0)
	if len(m.secretKey) == 0 {
		t.Fatalf("expected generated secret key")
	}
	if m.ttl != DefaultTokenTTL {
		t.Fatalf("ttl = %v, want %v", m.ttl, DefaultTokenTTL)
	}
}
