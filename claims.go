package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims is the structured payload carried by a signed credential:
// subject id, token id, optional session id, timestamps, plus any
// additional claims contributed at issuance time.
type TokenClaims struct {
	jwt.RegisteredClaims
	SessionID string         `json:"sid,omitempty"`
	Extra     map[string]any `json:"dat,omitempty"`
}

// NewTokenClaims builds the minimal claim set for a user. The token id is
// set by the manager: the session id when a session store is configured,
// a fresh random identifier otherwise.
func NewTokenClaims(userID, tokenID string) *TokenClaims {
	return &TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: userID,
			ID:      tokenID,
		},
	}
}

// UserID returns the subject claim.
func (c *TokenClaims) UserID() string {
	return c.RegisteredClaims.Subject
}

// TokenID returns the jti claim.
func (c *TokenClaims) TokenID() string {
	return c.RegisteredClaims.ID
}

// Expires returns the expiration time, zero when unset.
func (c *TokenClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// Issued returns the issued-at time, zero when unset.
func (c *TokenClaims) Issued() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

// WithExtra merges additional claims under the existing extras. Existing
// keys win on conflict.
func (c *TokenClaims) WithExtra(extra map[string]any) *TokenClaims {
	if len(extra) == 0 {
		return c
	}
	merged := make(map[string]any, len(extra)+len(c.Extra))
	for k, v := range extra {
		merged[k] = v
	}
	for k, v := range c.Extra {
		merged[k] = v
	}
	c.Extra = merged
	return c
}

// clone returns a copy so access and refresh claim sets can diverge on
// expiry only.
func (c *TokenClaims) clone() *TokenClaims {
	out := *c
	if c.Extra != nil {
		out.Extra = make(map[string]any, len(c.Extra))
		for k, v := range c.Extra {
			out.Extra[k] = v
		}
	}
	return &out
}

// stamp sets iat/exp for a given window.
func (c *TokenClaims) stamp(issuedAt time.Time, ttl time.Duration) {
	c.RegisteredClaims.IssuedAt = jwt.NewNumericDate(issuedAt)
	c.RegisteredClaims.ExpiresAt = jwt.NewNumericDate(issuedAt.Add(ttl))
}
