package auth

import (
	"strings"

	"github.com/goliatone/go-errors"
)

// Text codes surfaced alongside categorized errors so API consumers can
// branch without string matching.
const (
	TextCodeMissingLoginFields = "MISSING_LOGIN_FIELDS"
	TextCodeInvalidPassword    = "INVALID_PASSWORD"
	TextCodeInvalidCreds       = "INVALID_CREDENTIALS"
	TextCodeUserNotFound       = "USER_NOT_FOUND"
	TextCodeSessionNotFound    = "SESSION_NOT_FOUND"
	TextCodeSessionMismatch    = "SESSION_USER_MISMATCH"
	TextCodeTokenExpired       = "TOKEN_EXPIRED"
	TextCodeTokenMalformed     = "TOKEN_MALFORMED"
)

// ErrMissingLoginFields is returned when a signup or login payload carries
// none of the configured login fields.
var ErrMissingLoginFields = errors.New("one or more login fields are missing", errors.CategoryValidation).
	WithTextCode(TextCodeMissingLoginFields).
	WithCode(errors.CodeBadRequest)

// ErrInvalidPassword is returned when the supplied password fails the
// configured policy or does not verify against the stored hash.
var ErrInvalidPassword = errors.New("invalid password", errors.CategoryValidation).
	WithTextCode(TextCodeInvalidPassword).
	WithCode(errors.CodeBadRequest)

// ErrInvalidCredentials is the unauthorized error for empty, unresolvable,
// or mismatched request credentials.
var ErrInvalidCredentials = errors.New("empty or invalid credentials", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds).
	WithCode(errors.CodeUnauthorized)

// ErrUserNotFound is returned when no user matches the login fields or the
// resolved subject id.
var ErrUserNotFound = errors.New("user not found", errors.CategoryNotFound).
	WithTextCode(TextCodeUserNotFound).
	WithCode(errors.CodeNotFound)

// ErrSessionNotFound is returned when a credential references a session the
// store no longer holds.
var ErrSessionNotFound = errors.New("session not found", errors.CategoryAuth).
	WithTextCode(TextCodeSessionNotFound).
	WithCode(errors.CodeUnauthorized)

// ErrSessionMismatch guards against a forged or stale claim pointing at a
// session owned by a different user.
var ErrSessionMismatch = errors.New("session does not belong to user", errors.CategoryAuth).
	WithTextCode(TextCodeSessionMismatch).
	WithCode(errors.CodeUnauthorized)

// ErrTokenExpired is the verification failure for credentials past their
// expiry window.
var ErrTokenExpired = errors.New("token is expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed covers signature failures and undecodable credentials.
var ErrTokenMalformed = errors.New("token is malformed", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// wrapUnclassified applies a flow level wrapper to unclassified failures.
// An error that already carries a category propagates unchanged so the outer
// boundary maps it to the correct status precisely.
func wrapUnclassified(err error, msg string) error {
	if err == nil {
		return nil
	}

	var richErr *errors.Error
	if errors.As(err, &richErr) {
		return richErr
	}

	return errors.Wrap(err, errors.CategoryInternal, msg)
}

// IsTokenExpiredError will check for expired tokens, including legacy
// errors that only carry the jwt library's message.
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}

	var richErr *errors.Error
	if errors.As(err, &richErr) && richErr.TextCode == TextCodeTokenExpired {
		return true
	}

	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for undecodable token errors.
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}

	var richErr *errors.Error
	if errors.As(err, &richErr) && richErr.TextCode == TextCodeTokenMalformed {
		return true
	}

	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}

// IsCredentialsError reports whether err is an unauthorized classification
// (bad, missing, or mismatched credentials).
func IsCredentialsError(err error) bool {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		return false
	}
	return richErr.Category == errors.CategoryAuth
}
