package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/R3E-Network/canteen_pos/internal/app/domain/identity"
	"github.com/R3E-Network/canteen_pos/internal/app/session"
	"github.com/R3E-Network/canteen_pos/internal/errors"
	"github.com/R3E-Network/canteen_pos/internal/httputil"
	"github.com/R3E-Network/canteen_pos/pkg/logger"
)

// AuthMiddleware resolves the session behind a request's token.
type AuthMiddleware struct {
	tokens *session.Tokens
	store  session.Store
	logger *logger.Logger
}

// NewAuthMiddleware creates a session authentication middleware.
func NewAuthMiddleware(tokens *session.Tokens, store session.Store, log *logger.Logger) *AuthMiddleware {
	if log == nil {
		log = logger.NewDefault("auth")
	}
	return &AuthMiddleware{tokens: tokens, store: store, logger: log}
}

// Handler rejects requests without a live session and stores the session in
// the request context otherwise.
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := m.Resolve(r.Context(), r)
		if err != nil {
			m.respondError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(session.WithSession(r.Context(), sess)))
	})
}

// Resolve validates the request token and loads its session.
func (m *AuthMiddleware) Resolve(ctx context.Context, r *http.Request) (session.Session, error) {
	raw := TokenFromRequest(r)
	if raw == "" {
		return session.Session{}, errors.Unauthorized("")
	}
	claims, err := m.tokens.Parse(raw)
	if err != nil {
		return session.Session{}, err
	}
	sess, err := m.store.Get(ctx, claims.Subject)
	if err != nil {
		return session.Session{}, err
	}
	if string(sess.Identity.Role) != claims.Role {
		return session.Session{}, errors.InvalidToken(nil)
	}
	return sess, nil
}

func (m *AuthMiddleware) respondError(w http.ResponseWriter, r *http.Request, err error) {
	httputil.WriteError(w, err)
	m.logger.WithError(err).
		WithField("path", r.URL.Path).
		WithField("method", r.Method).
		Debug("authentication failed")
}

// TokenFromRequest reads the bearer token, falling back to the session cookie.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if c, err := r.Cookie(session.CookieName); err == nil {
		return c.Value
	}
	return ""
}

// RequireRole only lets sessions of the given roles through. It must run after
// AuthMiddleware.
func RequireRole(roles ...identity.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, ok := session.FromContext(r.Context())
			if !ok {
				httputil.WriteError(w, errors.Unauthorized(""))
				return
			}
			for _, role := range roles {
				if sess.Identity.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			httputil.WriteError(w, errors.Forbidden("this action requires the "+joinRoles(roles)+" role"))
		})
	}
}

func joinRoles(roles []identity.Role) string {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	return strings.Join(names, " or ")
}
