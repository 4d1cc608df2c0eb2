// Package session keeps per-login state (identity, cached balance and cart)
// on the server. Clients only hold a signed token naming the session.
package session

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/R3E-Network/canteen_pos/internal/app/domain/cart"
	"github.com/R3E-Network/canteen_pos/internal/app/domain/identity"
	"github.com/R3E-Network/canteen_pos/internal/app/domain/money"
)

// Session is the server-side state of one login. Balance is a display cache;
// checkout always reads the stored balance.
type Session struct {
	ID        string            `json:"id"`
	Identity  identity.Identity `json:"identity"`
	Balance   money.Cents       `json:"balance"`
	Cart      cart.Cart         `json:"cart"`
	CreatedAt time.Time         `json:"created_at"`
	ExpiresAt time.Time         `json:"expires_at"`
}

// New starts a session for id that lives for ttl.
func New(id identity.Identity, ttl time.Duration, now time.Time) Session {
	return Session{
		ID:        uuid.NewString(),
		Identity:  id,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// Expired reports whether the session is past its deadline.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// Store persists sessions. Get and Update fail with an UNAUTHORIZED service
// error when the session is unknown or expired.
type Store interface {
	Save(ctx context.Context, sess Session) error
	Get(ctx context.Context, id string) (Session, error)
	// Update applies fn to the stored session and saves the result atomically
	// with respect to other updates of the same session.
	Update(ctx context.Context, id string, fn func(*Session) error) (Session, error)
	Delete(ctx context.Context, id string) error
}

type ctxKey struct{}

// WithSession returns a context carrying sess.
func WithSession(ctx context.Context, sess Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, sess)
}

// FromContext returns the session stored by WithSession.
func FromContext(ctx context.Context) (Session, bool) {
	sess, ok := ctx.Value(ctxKey{}).(Session)
	return sess, ok
}
