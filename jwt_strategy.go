package auth

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

// TransportMode selects how a credential travels between client and server.
type TransportMode string

const (
	// ModeCookie delivers the access token via a secure http-only cookie.
	ModeCookie TransportMode = "cookie"
	// ModeBearer surfaces an access/refresh token pair in the response body.
	ModeBearer TransportMode = "bearer"
)

// UnmarshalText implements encoding.TextUnmarshaler for TransportMode.
func (m *TransportMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(string(text))
	switch v {
	case string(ModeCookie), string(ModeBearer):
		*m = TransportMode(v)
		return nil
	default:
		return fmt.Errorf("invalid TransportMode: %q (valid options: cookie, bearer)", v)
	}
}

// CookieName is the fixed cookie the cookie transport reads and writes.
const CookieName = "authkit_token"

// DefaultRefreshTTL is the refresh credential lifetime, seven days.
const DefaultRefreshTTL = 7 * 24 * time.Hour

// AdditionalClaimsFunc supplies extra claims merged under the caller's
// claims at issuance time. Caller claims win on conflict.
type AdditionalClaimsFunc func() map[string]any

// JWTStrategy issues and verifies signed credentials carrying TokenClaims.
type JWTStrategy struct {
	secret            []byte
	method            jwt.SigningMethod
	mode              TransportMode
	refreshTTL        time.Duration
	additionalClaims  AdditionalClaimsFunc
	allowExpiredPaths []string
	secureCookies     bool
	logger            Logger
}

// NewJWTStrategy creates a strategy signing with an HMAC secret, HS256 and
// cookie transport by default.
func NewJWTStrategy(secret string) *JWTStrategy {
	return &JWTStrategy{
		secret:        []byte(secret),
		method:        jwt.SigningMethodHS256,
		mode:          ModeCookie,
		refreshTTL:    DefaultRefreshTTL,
		secureCookies: true,
		logger:        defLogger{},
	}
}

func (s *JWTStrategy) WithMode(mode TransportMode) *JWTStrategy {
	s.mode = mode
	return s
}

func (s *JWTStrategy) WithRefreshTTL(ttl time.Duration) *JWTStrategy {
	if ttl > 0 {
		s.refreshTTL = ttl
	}
	return s
}

func (s *JWTStrategy) WithAdditionalClaims(fn AdditionalClaimsFunc) *JWTStrategy {
	s.additionalClaims = fn
	return s
}

// WithAllowExpiredPaths registers request paths permitted to present an
// already expired credential, so e.g. a logout endpoint can still identify
// the caller. Entries are exact paths or path.Match patterns.
func (s *JWTStrategy) WithAllowExpiredPaths(paths ...string) *JWTStrategy {
	s.allowExpiredPaths = append(s.allowExpiredPaths, paths...)
	return s
}

func (s *JWTStrategy) WithSecureCookies(secure bool) *JWTStrategy {
	s.secureCookies = secure
	return s
}

func (s *JWTStrategy) WithLogger(logger Logger) *JWTStrategy {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// Mode returns the configured transport mode.
func (s *JWTStrategy) Mode() TransportMode {
	return s.mode
}

// Issue signs an access and a refresh credential for the claims, identical
// except for expiry. Cookie mode attaches the access token to the response
// and returns no artifact; bearer mode returns the pair.
func (s *JWTStrategy) Issue(c router.Context, claims *TokenClaims, ttlSeconds int) (*TokenPair, error) {
	if claims == nil {
		return nil, errors.New("claims must not be nil", errors.CategoryInternal)
	}

	if s.additionalClaims != nil {
		claims.WithExtra(s.additionalClaims())
	}

	issuedAt := time.Now()
	ttl := time.Duration(ttlSeconds) * time.Second

	access := claims.clone()
	access.stamp(issuedAt, ttl)

	refresh := claims.clone()
	refresh.stamp(issuedAt, s.refreshTTL)

	accessToken, err := s.sign(access)
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.sign(refresh)
	if err != nil {
		return nil, err
	}

	if s.mode == ModeCookie {
		s.setCookie(c, accessToken, issuedAt.Add(ttl))
		return nil, nil
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// Extract reads the request credential from the cookie or the bearer header
// and verifies it. A request carrying no credential yields (nil, nil).
func (s *JWTStrategy) Extract(c router.Context) (*TokenClaims, error) {
	raw := s.readToken(c)
	if raw == "" {
		return nil, nil
	}

	return s.verify(raw, s.pathAllowsExpired(c.Path()))
}

// Revoke deletes the credential cookie using the attributes set at
// issuance. Bearer transports are stateless so revocation is a no-op.
func (s *JWTStrategy) Revoke(c router.Context) error {
	if s.mode != ModeCookie {
		return nil
	}

	c.Cookie(&router.Cookie{
		Name:     CookieName,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   s.secureCookies,
		SameSite: "Lax",
	})
	return nil
}

func (s *JWTStrategy) sign(claims *TokenClaims) (string, error) {
	token := jwt.NewWithClaims(s.method, claims)

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}

	return signed, nil
}

func (s *JWTStrategy) verify(raw string, allowExpired bool) (*TokenClaims, error) {
	var parserOptions []jwt.ParserOption
	if allowExpired {
		// Signature is still checked; only claim validation is skipped so an
		// expired credential can identify the caller on allow-listed paths.
		parserOptions = append(parserOptions, jwt.WithoutClaimsValidation())
	}

	token, err := jwt.ParseWithClaims(raw, &TokenClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			s.logger.Error("JWTStrategy verify encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, parserOptions...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
			WithTextCode(ErrTokenMalformed.TextCode)
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid {
		s.logger.Error("JWTStrategy verify could not decode claims")
		return nil, ErrTokenMalformed
	}

	return claims, nil
}

func (s *JWTStrategy) readToken(c router.Context) string {
	if s.mode == ModeCookie {
		return c.Cookies(CookieName)
	}

	header := c.GetString(router.HeaderAuthorization, "")
	if header == "" {
		return ""
	}

	const scheme = "Bearer"
	if len(header) > len(scheme)+1 && strings.EqualFold(header[:len(scheme)], scheme) {
		return strings.TrimSpace(header[len(scheme):])
	}

	return ""
}

func (s *JWTStrategy) pathAllowsExpired(reqPath string) bool {
	for _, p := range s.allowExpiredPaths {
		if p == reqPath {
			return true
		}
		if ok, err := path.Match(p, reqPath); err == nil && ok {
			return true
		}
	}
	return false
}

func (s *JWTStrategy) setCookie(c router.Context, token string, expires time.Time) {
	c.Cookie(&router.Cookie{
		Name:     CookieName,
		Value:    token,
		Expires:  expires,
		HTTPOnly: true,
		Secure:   s.secureCookies,
		SameSite: "Lax",
	})
}

var _ AuthStrategy = (*JWTStrategy)(nil)
