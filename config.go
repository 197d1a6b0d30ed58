package auth

import (
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/goliatone/go-errors"
)

var slugPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// PasswordValidator is a pure predicate over a plaintext password. The
// default accepts everything; embedders supply their own policy.
type PasswordValidator func(password string) bool

// RequestShape declares the fields a signup or login payload is allowed to
// carry. Shapes are optional; when supplied they must declare a password
// field and at least one configured login field.
type RequestShape struct {
	Fields []string
}

// Has reports whether the shape declares the given field.
func (s RequestShape) Has(field string) bool {
	for _, f := range s.Fields {
		if f == field {
			return true
		}
	}
	return false
}

// Config is the validated auth policy object. It is constructed once via
// NewConfig and immutable afterward; validation runs at construction and
// never at request time.
type Config struct {
	Slug              string
	SessionTTLSeconds int
	SecureCookies     bool
	LoginFields       []string
	LoginAfterSignup  bool
	PasswordValidator PasswordValidator
	SignupShape       *RequestShape
	LoginShape        *RequestShape
	Roles             []string
}

// NewConfig validates and freezes an auth configuration. A zero
// SessionTTLSeconds defaults to one hour.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.SessionTTLSeconds == 0 {
		cfg.SessionTTLSeconds = 3600
	}

	if cfg.PasswordValidator == nil {
		cfg.PasswordValidator = func(string) bool { return true }
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c Config) validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.Slug, validation.Required, validation.Match(slugPattern)),
		validation.Field(&c.LoginFields, validation.Required, validation.Length(1, 0)),
		validation.Field(&c.SessionTTLSeconds, validation.Min(1)),
	)
	if err != nil {
		return errors.Wrap(err, errors.CategoryValidation, "invalid auth configuration")
	}

	if err := c.validateShape("signup_request", c.SignupShape); err != nil {
		return err
	}
	return c.validateShape("login_request", c.LoginShape)
}

func (c Config) validateShape(name string, shape *RequestShape) error {
	if shape == nil {
		return nil
	}

	if !shape.Has("password") {
		return errors.New("request shape must declare a password field", errors.CategoryValidation).
			WithMetadata(map[string]any{"shape": name})
	}

	for _, field := range c.LoginFields {
		if shape.Has(field) {
			return nil
		}
	}

	return errors.New("request shape declares none of the configured login fields", errors.CategoryValidation).
		WithMetadata(map[string]any{"shape": name, "login_fields": c.LoginFields})
}

// ValidatePassword runs the configured password policy predicate.
func (c *Config) ValidatePassword(password string) bool {
	if c.PasswordValidator == nil {
		return true
	}
	return c.PasswordValidator(password)
}

// HasRole reports membership in the optional closed role enumeration. An
// empty enumeration accepts any role.
func (c *Config) HasRole(role string) bool {
	if len(c.Roles) == 0 {
		return true
	}
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}
