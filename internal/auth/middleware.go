package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/isdelr/pitchzone-be/internal/models"
	"github.com/isdelr/pitchzone-be/internal/response"
	"github.com/isdelr/pitchzone-be/internal/services"
	"github.com/rs/zerolog/log"
)

type contextKey string

const userKey = contextKey("user")

// UserLookup resolves the account behind a token.
type UserLookup interface {
	GetUserByID(ctx context.Context, id string) (models.User, error)
}

// Middleware authenticates requests against the user store.
type Middleware struct {
	tokens *TokenManager
	users  UserLookup
}

// NewMiddleware creates a new Middleware.
func NewMiddleware(tokens *TokenManager, users UserLookup) *Middleware {
	return &Middleware{tokens: tokens, users: users}
}

// WithUser stores the authenticated user in ctx.
func WithUser(ctx context.Context, user models.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFrom returns the authenticated user, if any.
func UserFrom(ctx context.Context) (models.User, bool) {
	user, ok := ctx.Value(userKey).(models.User)
	return user, ok
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// resolve verifies the token and re-reads its user, so tokens of deleted
// accounts stop working immediately.
func (m *Middleware) resolve(r *http.Request, token string) (models.User, error) {
	claims, err := m.tokens.ValidateJWT(token)
	if err != nil {
		if errors.Is(err, ErrTokenExpired) {
			return models.User{}, &services.Error{Kind: services.KindAuth, Message: "Token expired."}
		}
		return models.User{}, &services.Error{Kind: services.KindAuth, Message: "Invalid token."}
	}

	user, err := m.users.GetUserByID(r.Context(), claims.UserID)
	if err != nil {
		if services.KindOf(err) == services.KindNotFound {
			return models.User{}, &services.Error{Kind: services.KindAuth, Message: "Invalid token. User not found."}
		}
		return models.User{}, err
	}
	return user, nil
}

// Authenticate rejects requests without a valid bearer token.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			response.Fail(w, http.StatusUnauthorized, "Access denied. No token provided.")
			return
		}

		user, err := m.resolve(r, token)
		if err != nil {
			log.Debug().Err(err).Str("path", r.URL.Path).Msg("Rejected bearer token")
			response.Error(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

// Optional attaches the user when a valid token is present and otherwise
// lets the request through anonymously.
func (m *Middleware) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token := bearerToken(r); token != "" {
			if user, err := m.resolve(r, token); err == nil {
				r = r.WithContext(WithUser(r.Context(), user))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// Require admits only users holding capability c. It must run after
// Authenticate.
func Require(c Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFrom(r.Context())
			if !ok {
				response.Fail(w, http.StatusUnauthorized, "Access denied. No token provided.")
				return
			}
			if !Allows(user.Role, c) {
				response.Fail(w, http.StatusForbidden, "Access denied. "+c.String()+" required.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
