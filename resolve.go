package auth

import (
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

// CurrentUserFunc resolves the verified user behind a request.
type CurrentUserFunc func(c router.Context) (map[string]any, error)

// CurrentSessionFunc resolves the session id behind a request.
type CurrentSessionFunc func(c router.Context) (string, error)

// CurrentUser builds the request-scoped procedure that turns raw request
// credentials into a verified, session-cross-checked user. Build it once
// per manager and reuse it; the procedure closes over the manager's
// collaborators only and is safe to invoke concurrently.
func (m *Manager) CurrentUser() CurrentUserFunc {
	return func(c router.Context) (map[string]any, error) {
		user, err := m.resolveUser(c)
		if err != nil {
			m.emitEvent(c.Context(), ActivityEventCredentialFailure, "", "", map[string]any{
				"path":  c.Path(),
				"error": err.Error(),
			})
			return nil, err
		}
		return user, nil
	}
}

func (m *Manager) resolveUser(c router.Context) (map[string]any, error) {
	ctx := c.Context()

	claims, err := m.strategy.Extract(c)
	if err != nil {
		return nil, wrapUnclassified(err, "failed to verify token")
	}
	if claims == nil {
		return nil, ErrInvalidCredentials
	}

	uid := claims.UserID()
	if uid == "" {
		if alt, ok := claims.Extra["user_id"].(string); ok {
			uid = alt
		}
	}
	if uid == "" {
		return nil, ErrInvalidCredentials
	}

	if m.sessions != nil {
		if claims.SessionID == "" {
			return nil, ErrInvalidCredentials
		}

		session, err := m.sessions.Get(ctx, claims.SessionID)
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryInternal, "failed to verify session")
		}
		if session == nil {
			return nil, ErrSessionNotFound
		}
		if session.UserID != uid {
			return nil, ErrSessionMismatch
		}

		// Sessions are touched on resolution; a refresh failure is not a
		// reason to reject an otherwise valid credential.
		if err := m.sessions.Refresh(ctx, claims.SessionID); err != nil {
			m.logger.Warn("session refresh failed", "session", claims.SessionID, "error", err)
		}
	}

	user, err := m.users.Get(ctx, uid)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to look up user")
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	return stripPassword(user), nil
}

// CurrentSession builds the request-scoped procedure returning the session
// id carried by the request credential. The id may be empty when the
// strategy is not session-backed.
func (m *Manager) CurrentSession() CurrentSessionFunc {
	return func(c router.Context) (string, error) {
		claims, err := m.strategy.Extract(c)
		if err != nil {
			return "", wrapUnclassified(err, "failed to verify token")
		}
		if claims == nil {
			return "", ErrInvalidCredentials
		}

		return claims.SessionID, nil
	}
}
