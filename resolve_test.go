package auth_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	auth "github.com/goliatone/go-authkit"
	"github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// loginContext returns a context carrying a fresh credential for user-1.
func loginContext(t *testing.T, manager *auth.Manager, users *MockUserStore) *testContext {
	t.Helper()

	hash, err := fastHasher.HashPassword("secret123")
	require.NoError(t, err)

	users.On("Find", mock.Anything, mock.Anything).Return(map[string]any{
		"id":       "user-1",
		"email":    "known@example.com",
		"password": hash,
	}, nil)

	result, err := manager.Login(newTestContext(), map[string]any{
		"email":    "known@example.com",
		"password": "secret123",
	})
	require.NoError(t, err)
	require.NotNil(t, result.Tokens)

	c := newTestContext()
	c.setBearer(result.Tokens.AccessToken)
	return c
}

func TestCurrentUserSessionBacked(t *testing.T) {
	users := new(MockUserStore)
	users.On("Get", mock.Anything, "user-1").Return(map[string]any{
		"id":       "user-1",
		"email":    "known@example.com",
		"password": "$2a$04$storedhash",
	}, nil)

	sessions := auth.NewMemorySessionStore(0)
	manager := newTestManager(t, auth.ManagerOptions{
		Users:    users,
		Sessions: sessions,
	})

	c := loginContext(t, manager, users)

	user, err := manager.CurrentUser()(c)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "user-1", user["id"])
	assert.NotContains(t, user, "password")
}

func TestCurrentUserStateless(t *testing.T) {
	users := new(MockUserStore)
	users.On("Get", mock.Anything, "user-1").Return(map[string]any{
		"id":    "user-1",
		"email": "known@example.com",
	}, nil)

	// no session store configured: resolution skips the session cross-check
	manager := newTestManager(t, auth.ManagerOptions{Users: users})

	c := loginContext(t, manager, users)

	user, err := manager.CurrentUser()(c)
	require.NoError(t, err)
	assert.Equal(t, "user-1", user["id"])
}

func TestCurrentUserNoCredential(t *testing.T) {
	manager := newTestManager(t, auth.ManagerOptions{Users: new(MockUserStore)})

	user, err := manager.CurrentUser()(newTestContext())
	assert.Nil(t, user)
	require.Error(t, err)

	var richErr *errors.Error
	require.True(t, errors.As(err, &richErr))
	assert.Equal(t, auth.TextCodeInvalidCreds, richErr.TextCode)
}

func TestCurrentUserMissingSessionID(t *testing.T) {
	users := new(MockUserStore)

	// issue a credential without a session id, then resolve against a
	// manager that requires one
	stateless := newTestManager(t, auth.ManagerOptions{Users: users})
	c := loginContext(t, stateless, users)

	sessionBacked := newTestManager(t, auth.ManagerOptions{
		Users:    users,
		Sessions: auth.NewMemorySessionStore(0),
	})

	user, err := sessionBacked.CurrentUser()(c)
	assert.Nil(t, user)
	require.Error(t, err)

	var richErr *errors.Error
	require.True(t, errors.As(err, &richErr))
	assert.Equal(t, auth.TextCodeInvalidCreds, richErr.TextCode)
}

func TestCurrentUserSessionDeleted(t *testing.T) {
	users := new(MockUserStore)
	sessions := auth.NewMemorySessionStore(0)
	manager := newTestManager(t, auth.ManagerOptions{
		Users:    users,
		Sessions: sessions,
	})

	c := loginContext(t, manager, users)

	require.NoError(t, sessions.DeleteByUser(context.Background(), "user-1"))

	user, err := manager.CurrentUser()(c)
	assert.Nil(t, user)
	require.Error(t, err)

	var richErr *errors.Error
	require.True(t, errors.As(err, &richErr))
	assert.Equal(t, auth.TextCodeSessionNotFound, richErr.TextCode)
}

func TestCurrentUserSessionOwnerMismatch(t *testing.T) {
	users := new(MockUserStore)

	sessions := new(MockSessionStore)
	sessions.On("Create", mock.Anything, "user-1", mock.Anything).Return("sess-1", nil)
	sessions.On("Get", mock.Anything, "sess-1").Return(&auth.SessionRecord{
		SessionID: "sess-1",
		UserID:    "someone-else",
	}, nil)

	manager := newTestManager(t, auth.ManagerOptions{
		Users:    users,
		Sessions: sessions,
	})

	c := loginContext(t, manager, users)

	user, err := manager.CurrentUser()(c)
	assert.Nil(t, user)
	require.Error(t, err)

	var richErr *errors.Error
	require.True(t, errors.As(err, &richErr))
	assert.Equal(t, auth.TextCodeSessionMismatch, richErr.TextCode)
}

func TestCurrentUserUnknownSubject(t *testing.T) {
	users := new(MockUserStore)
	users.On("Get", mock.Anything, "user-1").Return(nil, nil)

	manager := newTestManager(t, auth.ManagerOptions{Users: users})

	c := loginContext(t, manager, users)

	user, err := manager.CurrentUser()(c)
	assert.Nil(t, user)
	require.Error(t, err)

	var richErr *errors.Error
	require.True(t, errors.As(err, &richErr))
	assert.Equal(t, auth.TextCodeUserNotFound, richErr.TextCode)
}

func TestCurrentUserRefreshFailureTolerated(t *testing.T) {
	users := new(MockUserStore)
	users.On("Get", mock.Anything, "user-1").Return(map[string]any{
		"id": "user-1",
	}, nil)

	sessions := new(MockSessionStore)
	sessions.On("Create", mock.Anything, "user-1", mock.Anything).Return("sess-1", nil)
	sessions.On("Get", mock.Anything, "sess-1").Return(&auth.SessionRecord{
		SessionID: "sess-1",
		UserID:    "user-1",
	}, nil)
	sessions.On("Refresh", mock.Anything, "sess-1").Return(fmt.Errorf("redis hiccup"))

	manager := newTestManager(t, auth.ManagerOptions{
		Users:    users,
		Sessions: sessions,
	})

	c := loginContext(t, manager, users)

	user, err := manager.CurrentUser()(c)
	assert.NoError(t, err, "a touch failure never rejects a valid credential")
	assert.NotNil(t, user)
}

func TestCurrentUserTouchesSession(t *testing.T) {
	users := new(MockUserStore)
	users.On("Get", mock.Anything, "user-1").Return(map[string]any{"id": "user-1"}, nil)

	sessions := auth.NewMemorySessionStore(time.Hour)
	manager := newTestManager(t, auth.ManagerOptions{
		Users:    users,
		Sessions: sessions,
	})

	c := loginContext(t, manager, users)

	before, err := sessions.GetByUser(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, before, 1)

	time.Sleep(5 * time.Millisecond)
	_, err = manager.CurrentUser()(c)
	require.NoError(t, err)

	after, err := sessions.Get(context.Background(), before[0].SessionID)
	require.NoError(t, err)
	require.NotNil(t, after)
	assert.True(t, after.UpdatedAt.After(before[0].UpdatedAt))
}

func TestCurrentUserEmitsCredentialFailure(t *testing.T) {
	var events []auth.ActivityEvent
	manager := newTestManager(t, auth.ManagerOptions{Users: new(MockUserStore)}).
		WithActivitySink(auth.ActivitySinkFunc(func(ctx context.Context, event auth.ActivityEvent) error {
			events = append(events, event)
			return nil
		}))

	c := newTestContext()
	c.path = "/api/me"

	_, err := manager.CurrentUser()(c)
	require.Error(t, err)

	require.Len(t, events, 1)
	assert.Equal(t, auth.ActivityEventCredentialFailure, events[0].EventType)
	assert.Equal(t, "/api/me", events[0].Metadata["path"])
}

func TestCurrentSession(t *testing.T) {
	users := new(MockUserStore)
	sessions := auth.NewMemorySessionStore(0)
	manager := newTestManager(t, auth.ManagerOptions{
		Users:    users,
		Sessions: sessions,
	})

	c := loginContext(t, manager, users)

	sid, err := manager.CurrentSession()(c)
	require.NoError(t, err)
	require.NotEmpty(t, sid)

	rec, err := sessions.Get(context.Background(), sid)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "user-1", rec.UserID)
}

func TestCurrentSessionNoCredential(t *testing.T) {
	manager := newTestManager(t, auth.ManagerOptions{Users: new(MockUserStore)})

	sid, err := manager.CurrentSession()(newTestContext())
	assert.Empty(t, sid)
	assert.Error(t, err)
}
