package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/isdelr/pitchzone-be/internal/models"
	"github.com/isdelr/pitchzone-be/internal/services"
)

type mockUsers struct {
	GetUserByIDFunc func(ctx context.Context, id string) (models.User, error)
}

func (m *mockUsers) GetUserByID(ctx context.Context, id string) (models.User, error) {
	return m.GetUserByIDFunc(ctx, id)
}

func usersWith(known ...models.User) *mockUsers {
	return &mockUsers{GetUserByIDFunc: func(_ context.Context, id string) (models.User, error) {
		for _, u := range known {
			if u.ID == id {
				return u, nil
			}
		}
		return models.User{}, &services.Error{Kind: services.KindNotFound, Message: "User not found"}
	}}
}

func TestTokenRoundTrip(t *testing.T) {
	m := NewTokenManager("test-secret")
	token, err := m.GenerateJWT(models.User{ID: "u1"})
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}
	claims, err := m.ValidateJWT(token)
	if err != nil {
		t.Fatalf("ValidateJWT: %v", err)
	}
	if claims.UserID != "u1" {
		t.Errorf("UserID = %q", claims.UserID)
	}
	if got := claims.ExpiresAt.Sub(claims.IssuedAt.Time); got != TokenTTL {
		t.Errorf("lifetime = %v, want %v", got, TokenTTL)
	}
}

func TestTokenRejections(t *testing.T) {
	m := NewTokenManager("test-secret")
	token, _ := m.GenerateJWT(models.User{ID: "u1"})

	if _, err := NewTokenManager("other-secret").ValidateJWT(token); err == nil {
		t.Error("token signed with another secret accepted")
	}
	if _, err := m.ValidateJWT("not.a.token"); err == nil {
		t.Error("garbage accepted")
	}

	m.now = func() time.Time { return time.Now().Add(TokenTTL + time.Minute) }
	if _, err := m.ValidateJWT(token); err != ErrTokenExpired {
		t.Errorf("expired token error = %v, want ErrTokenExpired", err)
	}
}

func TestAllowsIsRoleExact(t *testing.T) {
	tests := []struct {
		role models.Role
		cap  Capability
		want bool
	}{
		{models.RoleEntrepreneur, CapEntrepreneur, true},
		{models.RoleEntrepreneur, CapInvestor, false},
		{models.RoleEntrepreneur, CapAdmin, false},
		{models.RoleInvestor, CapInvestor, true},
		{models.RoleInvestor, CapEntrepreneur, false},
		{models.RoleAdmin, CapAdmin, true},
		{models.RoleAdmin, CapInvestor, false},
		{models.RoleAdmin, CapAuthenticated, true},
		{models.Role(0), CapAuthenticated, false},
	}
	for _, tt := range tests {
		if got := Allows(tt.role, tt.cap); got != tt.want {
			t.Errorf("Allows(%s, %s) = %v, want %v", tt.role, tt.cap, got, tt.want)
		}
	}
}

func TestAuthenticateMiddleware(t *testing.T) {
	tokens := NewTokenManager("test-secret")
	alice := models.User{ID: "u1", Username: "alice", Role: models.RoleInvestor}
	mw := NewMiddleware(tokens, usersWith(alice))

	var seen models.User
	handler := mw.Authenticate(Require(CapInvestor)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserFrom(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})))

	valid, _ := tokens.GenerateJWT(alice)
	orphan, _ := tokens.GenerateJWT(models.User{ID: "deleted"})

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"no token", "", http.StatusUnauthorized},
		{"bad token", "Bearer junk", http.StatusUnauthorized},
		{"deleted user", "Bearer " + orphan, http.StatusUnauthorized},
		{"valid", "Bearer " + valid, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
	if seen.ID != alice.ID {
		t.Errorf("handler saw user %q", seen.ID)
	}
}

func TestRequireWrongRole(t *testing.T) {
	tokens := NewTokenManager("test-secret")
	bob := models.User{ID: "u2", Role: models.RoleEntrepreneur}
	mw := NewMiddleware(tokens, usersWith(bob))
	handler := mw.Authenticate(Require(CapInvestor)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler reached")
	})))

	token, _ := tokens.GenerateJWT(bob)
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestOptionalMiddleware(t *testing.T) {
	tokens := NewTokenManager("test-secret")
	alice := models.User{ID: "u1", Role: models.RoleInvestor}
	mw := NewMiddleware(tokens, usersWith(alice))

	var got string
	handler := mw.Optional(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, _ := UserFrom(r.Context())
		got = u.ID
	}))

	token, _ := tokens.GenerateJWT(alice)
	tests := []struct{ header, want string }{
		{"", ""},
		{"Bearer garbage", ""},
		{"Bearer " + token, "u1"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		rec := httptest.NewRecorder()
		got = ""
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK || got != tt.want {
			t.Errorf("header %q: status %d, viewer %q, want %q", tt.header, rec.Code, got, tt.want)
		}
	}
}
