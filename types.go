package auth

import (
	"context"
	"fmt"

	"github.com/goliatone/go-router"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// UserStore is the externally implemented storage for user records.
// Records are open maps: the core only requires "id" and "password" keys
// and treats everything else as opaque schema-driven fields.
type UserStore interface {
	// Create persists a new record and returns it with a store assigned id.
	Create(ctx context.Context, fields map[string]any) (map[string]any, error)
	// Find locates a user matching any of the given login field values.
	// Absence is (nil, nil), never an error.
	Find(ctx context.Context, query map[string]any) (map[string]any, error)
	// Get fetches a user by id. Absence is (nil, nil).
	Get(ctx context.Context, userID string) (map[string]any, error)
	Delete(ctx context.Context, userID string) error
}

// SessionStore maps session ids to session records. Two interchangeable
// backends ship with the module: MemorySessionStore and RedisSessionStore.
type SessionStore interface {
	// Create stores a new session for the user and returns its generated id.
	Create(ctx context.Context, userID string, data map[string]any) (string, error)
	// Get returns the session record, or (nil, nil) when absent or expired.
	Get(ctx context.Context, sessionID string) (*SessionRecord, error)
	// GetByUser enumerates the live sessions owned by a user.
	GetByUser(ctx context.Context, userID string) ([]*SessionRecord, error)
	// Delete removes a session. Deleting a missing session is a no-op.
	Delete(ctx context.Context, sessionID string) error
	// Refresh touches updated_at and, where the backend supports expiry,
	// resets the TTL window. Refreshing a missing session is a no-op.
	Refresh(ctx context.Context, sessionID string) error
}

// AuthStrategy turns identity claims into a transportable credential and
// back. JWTStrategy is the reference implementation; opaque cookie-to-session
// strategies can plug in without any token decoding at all.
type AuthStrategy interface {
	// Issue signs credentials for the claims and either attaches them to the
	// response (cookie transport, nil artifact) or returns a token pair.
	Issue(c router.Context, claims *TokenClaims, ttlSeconds int) (*TokenPair, error)
	// Extract reads and verifies the request credential. A request carrying
	// no credential at all yields (nil, nil).
	Extract(c router.Context) (*TokenClaims, error)
	// Revoke invalidates the response-side credential. Stateless transports
	// treat this as a no-op.
	Revoke(c router.Context) error
}

// TokenPair is the credential artifact surfaced by bearer transports.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// PasswordHasher is the opaque hashing capability used by the manager.
type PasswordHasher interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

// OAuthProvider is the optional external redirect capability; the core never
// implements the OAuth protocol itself.
type OAuthProvider interface {
	Name() string
	AuthorizationURL() string
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTH "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTH "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
