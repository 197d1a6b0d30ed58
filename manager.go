package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

// ManagerOptions wires the manager's collaborators. Config, Users, Strategy
// and Schema are required; Sessions enables session-backed credentials and
// OAuth enables the external redirect route.
type ManagerOptions struct {
	Config   *Config
	Users    UserStore
	Sessions SessionStore
	Strategy AuthStrategy
	Schema   *SchemaDescriptor
	Hasher   PasswordHasher
	OAuth    OAuthProvider
}

// Manager is the composition root: it orchestrates signup, login and logout
// and constructs the credential resolution procedures. It holds no
// per-request state and is safe for concurrent use.
type Manager struct {
	cfg          *Config
	users        UserStore
	sessions     SessionStore
	strategy     AuthStrategy
	schema       *SchemaDescriptor
	hasher       PasswordHasher
	oauth        OAuthProvider
	logger       Logger
	activitySink ActivitySink
}

// AuthResult is the outcome of a signup or login flow: the user record with
// the password stripped, plus the credential artifact for bearer transports.
type AuthResult struct {
	User   map[string]any `json:"user"`
	Tokens *TokenPair     `json:"tokens,omitempty"`
}

// NewManager validates the wiring and returns a usable manager. Every field
// in Config.LoginFields must exist in the schema descriptor; a violation
// fails here, before any request is served.
func NewManager(opts ManagerOptions) (*Manager, error) {
	if opts.Config == nil {
		return nil, errors.New("manager requires a config", errors.CategoryValidation)
	}
	if opts.Users == nil {
		return nil, errors.New("manager requires a user store", errors.CategoryValidation)
	}
	if opts.Strategy == nil {
		return nil, errors.New("manager requires an auth strategy", errors.CategoryValidation)
	}
	if opts.Schema == nil {
		return nil, errors.New("manager requires a schema descriptor", errors.CategoryValidation)
	}

	for _, field := range opts.Config.LoginFields {
		if !opts.Schema.Has(field) {
			return nil, errors.New(
				fmt.Sprintf("login field %q is not in the user schema", field),
				errors.CategoryValidation,
			).WithMetadata(map[string]any{"field": field})
		}
	}

	hasher := opts.Hasher
	if hasher == nil {
		hasher = NewBcryptHasher(0)
	}

	return &Manager{
		cfg:          opts.Config,
		users:        opts.Users,
		sessions:     opts.Sessions,
		strategy:     opts.Strategy,
		schema:       opts.Schema,
		hasher:       hasher,
		oauth:        opts.OAuth,
		logger:       defLogger{},
		activitySink: noopActivitySink{},
	}, nil
}

func (m *Manager) WithLogger(logger Logger) *Manager {
	if logger != nil {
		m.logger = logger
	}
	return m
}

// WithActivitySink configures an ActivitySink for emitting audit events.
func (m *Manager) WithActivitySink(sink ActivitySink) *Manager {
	m.activitySink = normalizeActivitySink(sink)
	return m
}

// Config returns the manager's immutable configuration.
func (m *Manager) Config() *Config {
	return m.cfg
}

// Strategy returns the configured credential strategy.
func (m *Manager) Strategy() AuthStrategy {
	return m.strategy
}

// OAuth returns the optional external redirect capability, nil when unset.
func (m *Manager) OAuth() OAuthProvider {
	return m.oauth
}

// Signup creates a user from the raw field set and, when the configuration
// enables login-after-signup, issues credentials for it. The returned user
// never carries the plaintext or hashed password.
func (m *Manager) Signup(c router.Context, fields map[string]any) (*AuthResult, error) {
	result, err := m.signup(c, fields)
	if err != nil {
		m.emitEvent(c.Context(), ActivityEventSignupFailure, "", "", map[string]any{
			"error": err.Error(),
		})
		return nil, wrapUnclassified(err, "failed to sign up")
	}

	m.emitEvent(c.Context(), ActivityEventSignupSuccess, userID(result.User), "", nil)
	return result, nil
}

func (m *Manager) signup(c router.Context, fields map[string]any) (*AuthResult, error) {
	ctx := c.Context()

	password, remaining := splitPassword(fields)

	if len(m.pickLoginFields(remaining)) == 0 {
		return nil, ErrMissingLoginFields
	}

	if err := m.schema.ValidateFields(remaining); err != nil {
		return nil, err
	}

	if !m.cfg.ValidatePassword(password) {
		return nil, ErrInvalidPassword
	}

	hash, err := m.hasher.HashPassword(password)
	if err != nil {
		return nil, wrapUnclassified(err, "failed to hash password")
	}

	record := make(map[string]any, len(remaining)+1)
	for k, v := range remaining {
		record[k] = v
	}
	record["password"] = hash

	user, err := m.users.Create(ctx, record)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to create user")
	}

	result := &AuthResult{User: stripPassword(user)}

	if m.cfg.LoginAfterSignup {
		tokens, err := m.issueTokens(c, userID(user))
		if err != nil {
			return nil, err
		}
		result.Tokens = tokens
	}

	return result, nil
}

// Login verifies a user's password against the stored hash and issues
// credentials.
//
// Note the configured password policy predicate runs against the supplied
// password here too, mirroring signup; embedders whose policy is only safe
// for new-password creation should supply a verification-tolerant predicate.
func (m *Manager) Login(c router.Context, fields map[string]any) (*AuthResult, error) {
	result, err := m.login(c, fields)
	if err != nil {
		m.emitEvent(c.Context(), ActivityEventLoginFailure, "", "", map[string]any{
			"error": err.Error(),
		})
		return nil, wrapUnclassified(err, "failed to login")
	}

	m.emitEvent(c.Context(), ActivityEventLoginSuccess, userID(result.User), "", nil)
	return result, nil
}

func (m *Manager) login(c router.Context, fields map[string]any) (*AuthResult, error) {
	ctx := c.Context()

	password, remaining := splitPassword(fields)

	query := m.pickLoginFields(remaining)
	if len(query) == 0 {
		return nil, ErrMissingLoginFields
	}

	if !m.cfg.ValidatePassword(password) {
		return nil, ErrInvalidPassword
	}

	user, err := m.users.Find(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to look up user")
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	hash, _ := user["password"].(string)
	if err := m.hasher.ComparePasswordAndHash(password, hash); err != nil {
		return nil, err
	}

	tokens, err := m.issueTokens(c, userID(user))
	if err != nil {
		return nil, err
	}

	return &AuthResult{User: stripPassword(user), Tokens: tokens}, nil
}

// Logout revokes the active credential and deletes its session when one is
// resolvable. A missing or expired credential means the caller is already
// logged out, so it is never an error; calling Logout twice is a no-op.
func (m *Manager) Logout(c router.Context) error {
	ctx := c.Context()

	claims, err := m.strategy.Extract(c)
	if err != nil {
		// Already invalid or expired credential: treat as logged out.
		m.logger.Debug("Logout with unusable credential", "error", err)
		claims = nil
	}

	if claims != nil && m.sessions != nil && claims.SessionID != "" {
		if err := m.sessions.Delete(ctx, claims.SessionID); err != nil {
			return errors.Wrap(err, errors.CategoryInternal, "failed to logout")
		}
	}

	if err := m.strategy.Revoke(c); err != nil {
		return wrapUnclassified(err, "failed to logout")
	}

	var uid, sid string
	if claims != nil {
		uid, sid = claims.UserID(), claims.SessionID
	}
	m.emitEvent(ctx, ActivityEventLogout, uid, sid, nil)

	return nil
}

// issueTokens is the shared issuance procedure: create a session when a
// store is configured, let the token id be the session id (or a fresh
// random identifier otherwise) and delegate to the strategy. Session
// failures classify separately from signing failures so operators can tell
// storage outages from signing-key outages.
func (m *Manager) issueTokens(c router.Context, uid string) (*TokenPair, error) {
	var sessionID string

	if m.sessions != nil {
		sid, err := m.sessions.Create(c.Context(), uid, nil)
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryInternal, "failed to create session")
		}
		sessionID = sid
	}

	tokenID := sessionID
	if tokenID == "" {
		tokenID = strings.ReplaceAll(uuid.New().String(), "-", "")
	}

	claims := NewTokenClaims(uid, tokenID)
	claims.SessionID = sessionID

	tokens, err := m.strategy.Issue(c, claims, m.cfg.SessionTTLSeconds)
	if err != nil {
		return nil, wrapUnclassified(err, "failed to issue token")
	}

	return tokens, nil
}

// pickLoginFields extracts the configured login field values present in
// the payload, never including the password.
func (m *Manager) pickLoginFields(fields map[string]any) map[string]any {
	out := map[string]any{}
	for _, name := range m.cfg.LoginFields {
		if v, ok := fields[name]; ok {
			out[name] = v
		}
	}
	return out
}

func (m *Manager) emitEvent(ctx context.Context, eventType ActivityEventType, uid, sid string, metadata map[string]any) {
	sink := normalizeActivitySink(m.activitySink)
	event := ActivityEvent{
		EventType:  eventType,
		UserID:     uid,
		SessionID:  sid,
		Metadata:   metadata,
		OccurredAt: time.Now(),
	}

	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}

	if err := sink.Record(ctx, event); err != nil {
		m.logger.Warn("activity sink record error: %v", err)
	}
}

func splitPassword(fields map[string]any) (string, map[string]any) {
	password, _ := fields["password"].(string)
	remaining := make(map[string]any, len(fields))
	for k, v := range fields {
		if k == "password" {
			continue
		}
		remaining[k] = v
	}
	return password, remaining
}

func stripPassword(user map[string]any) map[string]any {
	out := make(map[string]any, len(user))
	for k, v := range user {
		if k == "password" {
			continue
		}
		out[k] = v
	}
	return out
}

func userID(user map[string]any) string {
	switch id := user["id"].(type) {
	case string:
		return id
	case fmt.Stringer:
		return id.String()
	default:
		return ""
	}
}
