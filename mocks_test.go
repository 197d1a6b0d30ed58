package auth_test

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	auth "github.com/goliatone/go-authkit"
	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/mock"
)

// testContext is a stub router.Context acting as its own cookie jar so
// issue/extract round-trips behave like a real client.
type testContext struct {
	ctx         context.Context
	path        string
	method      string
	originalURL string
	body        []byte
	headers     map[string]string
	cookies     map[string]string
	setCookies  []*router.Cookie
	locals      map[any]any

	statusCode      int
	jsonStatus      int
	jsonBody        any
	noContentStatus int
	redirectTo      string
	redirectStatus  int
}

func newTestContext() *testContext {
	return &testContext{
		ctx:     context.Background(),
		path:    "/",
		method:  "GET",
		headers: map[string]string{},
		cookies: map[string]string{},
		locals:  map[any]any{},
	}
}

func (t *testContext) Next() error                   { return nil }
func (t *testContext) Context() context.Context      { return t.ctx }
func (t *testContext) SetContext(ctx context.Context) { t.ctx = ctx }
func (t *testContext) Path() string                  { return t.path }
func (t *testContext) Method() string                { return t.method }
func (t *testContext) Body() []byte                  { return t.body }

func (t *testContext) Status(code int) router.Context {
	t.statusCode = code
	return t
}

func (t *testContext) SendString(s string) error { return nil }
func (t *testContext) Send(b []byte) error       { return nil }

func (t *testContext) JSON(code int, val any) error {
	t.jsonStatus = code
	t.jsonBody = val
	return nil
}

func (t *testContext) NoContent(code int) error {
	t.noContentStatus = code
	return nil
}

func (t *testContext) Render(name string, bind any, layout ...string) error { return nil }

func (t *testContext) Redirect(path string, status ...int) error {
	t.redirectTo = path
	if len(status) > 0 {
		t.redirectStatus = status[0]
	}
	return nil
}

func (t *testContext) RedirectToRoute(name string, data router.ViewContext, status ...int) error {
	return nil
}

func (t *testContext) RedirectBack(fallback string, status ...int) error { return nil }

func (t *testContext) SetHeader(key, val string) router.Context {
	t.headers[key] = val
	return t
}

func (t *testContext) Header(key string) string { return t.headers[key] }

func (t *testContext) Get(key string, defaultValue any) any {
	if v, ok := t.locals[key]; ok {
		return v
	}
	return defaultValue
}

func (t *testContext) GetBool(key string, defaultValue bool) bool { return defaultValue }
func (t *testContext) GetInt(key string, def int) int             { return def }
func (t *testContext) Set(key string, val any)                    { t.locals[key] = val }
func (t *testContext) Bind(i any) error                           { return nil }
func (t *testContext) BindJSON(i any) error                       { return nil }
func (t *testContext) BindXML(i any) error                        { return nil }
func (t *testContext) BindQuery(i any) error                      { return nil }
func (t *testContext) CookieParser(i any) error                   { return nil }

// Cookie records the set-cookie and mirrors it into the jar, honoring
// expiry so revocation deletes the value like a browser would.
func (t *testContext) Cookie(cookie *router.Cookie) {
	t.setCookies = append(t.setCookies, cookie)
	if !cookie.Expires.IsZero() && cookie.Expires.Before(time.Now()) {
		delete(t.cookies, cookie.Name)
		return
	}
	t.cookies[cookie.Name] = cookie.Value
}

func (t *testContext) Cookies(key string, defaultValue ...string) string {
	if v, ok := t.cookies[key]; ok {
		return v
	}
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return ""
}

func (t *testContext) Param(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return ""
}

func (t *testContext) ParamsInt(key string, defaultValue int) int { return defaultValue }
func (t *testContext) Query(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return ""
}
func (t *testContext) QueryInt(key string, defaultValue int) int { return defaultValue }
func (t *testContext) Queries() map[string]string                { return map[string]string{} }

func (t *testContext) GetString(key string, defaultValue string) string {
	if v, ok := t.headers[key]; ok {
		return v
	}
	return defaultValue
}

func (t *testContext) Locals(key any, value ...any) any {
	if len(value) > 0 {
		t.locals[key] = value[0]
		return nil
	}
	return t.locals[key]
}

func (t *testContext) setBearer(token string) {
	t.headers[router.HeaderAuthorization] = "Bearer " + token
}

func (t *testContext) OriginalURL() string          { return t.originalURL }
func (t *testContext) OnNext(callback func() error) {}
func (t *testContext) Referer() string              { return t.headers["Referer"] }

func (t *testContext) RouteName() string               { return "" }
func (t *testContext) RouteParams() map[string]string  { return map[string]string{} }
func (t *testContext) QueryValues(name string) []string { return nil }
func (t *testContext) LocalsMerge(key any, value map[string]any) map[string]any { return value }
func (t *testContext) FormFile(key string) (*multipart.FileHeader, error) {
	return nil, http.ErrMissingFile
}
func (t *testContext) FormValue(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return ""
}
func (t *testContext) IP() string                 { return "127.0.0.1" }
func (t *testContext) SendStatus(code int) error  { t.statusCode = code; return nil }
func (t *testContext) SendStream(r io.Reader) error { return nil }

// MockUserStore implements auth.UserStore
type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) Create(ctx context.Context, fields map[string]any) (map[string]any, error) {
	args := m.Called(ctx, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]any), args.Error(1)
}

func (m *MockUserStore) Find(ctx context.Context, query map[string]any) (map[string]any, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]any), args.Error(1)
}

func (m *MockUserStore) Get(ctx context.Context, userID string) (map[string]any, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]any), args.Error(1)
}

func (m *MockUserStore) Delete(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// MockSessionStore implements auth.SessionStore
type MockSessionStore struct {
	mock.Mock
}

func (m *MockSessionStore) Create(ctx context.Context, userID string, data map[string]any) (string, error) {
	args := m.Called(ctx, userID, data)
	return args.String(0), args.Error(1)
}

func (m *MockSessionStore) Get(ctx context.Context, sessionID string) (*auth.SessionRecord, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.SessionRecord), args.Error(1)
}

func (m *MockSessionStore) GetByUser(ctx context.Context, userID string) ([]*auth.SessionRecord, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*auth.SessionRecord), args.Error(1)
}

func (m *MockSessionStore) Delete(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

func (m *MockSessionStore) Refresh(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

// MockStrategy implements auth.AuthStrategy
type MockStrategy struct {
	mock.Mock
}

func (m *MockStrategy) Issue(c router.Context, claims *auth.TokenClaims, ttlSeconds int) (*auth.TokenPair, error) {
	args := m.Called(c, claims, ttlSeconds)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.TokenPair), args.Error(1)
}

func (m *MockStrategy) Extract(c router.Context) (*auth.TokenClaims, error) {
	args := m.Called(c)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.TokenClaims), args.Error(1)
}

func (m *MockStrategy) Revoke(c router.Context) error {
	args := m.Called(c)
	return args.Error(0)
}
