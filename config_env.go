package auth

import (
	"time"

	"github.com/caarlos0/env/v11"
	goerrors "github.com/goliatone/go-errors"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

// RedisEnvConfig holds the remote session store connection settings.
type RedisEnvConfig struct {
	Addr      string `env:"ADDR"       envDefault:"localhost:6379"`
	Password  string `env:"PASSWORD"`
	DB        int    `env:"DB"         envDefault:"0"`
	KeyPrefix string `env:"KEY_PREFIX" envDefault:"authkit:"`
}

// EnvConfig carries the deployment knobs loadable from the environment.
// Policy that needs code (password validator, request shapes, schema) stays
// programmatic; this covers what operators actually tune per environment.
type EnvConfig struct {
	Slug              string        `env:"AUTH_SLUG"               envDefault:"authkit"`
	SigningSecret     string        `env:"AUTH_SIGNING_SECRET,required,notEmpty"`
	SessionTTLSeconds int           `env:"AUTH_SESSION_TTL"        envDefault:"3600"`
	RefreshTTLSeconds int           `env:"AUTH_REFRESH_TTL"        envDefault:"604800"`
	SecureCookies     bool          `env:"AUTH_SECURE_COOKIES"     envDefault:"true"`
	LoginFields       []string      `env:"AUTH_LOGIN_FIELDS"       envDefault:"email" envSeparator:","`
	LoginAfterSignup  bool          `env:"AUTH_LOGIN_AFTER_SIGNUP" envDefault:"true"`
	Mode              TransportMode `env:"AUTH_TRANSPORT_MODE"     envDefault:"cookie"`

	Redis RedisEnvConfig `envPrefix:"AUTH_REDIS_"`
}

// LoadEnvConfig reads the environment, optionally seeded from .env files.
// Missing .env files are ignored; a malformed environment is a
// configuration error.
func LoadEnvConfig(files ...string) (*EnvConfig, error) {
	// Absent .env is the normal production case.
	_ = godotenv.Load(files...)

	cfg := &EnvConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid auth environment")
	}

	return cfg, nil
}

// Config materializes the policy object for NewConfig.
func (e *EnvConfig) Config() Config {
	return Config{
		Slug:              e.Slug,
		SessionTTLSeconds: e.SessionTTLSeconds,
		SecureCookies:     e.SecureCookies,
		LoginFields:       e.LoginFields,
		LoginAfterSignup:  e.LoginAfterSignup,
	}
}

// Strategy materializes a JWTStrategy from the deployment settings.
func (e *EnvConfig) Strategy() *JWTStrategy {
	return NewJWTStrategy(e.SigningSecret).
		WithMode(e.Mode).
		WithRefreshTTL(time.Duration(e.RefreshTTLSeconds) * time.Second).
		WithSecureCookies(e.SecureCookies)
}

// RedisClient builds a client for the remote session store.
func (e *EnvConfig) RedisClient() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     e.Redis.Addr,
		Password: e.Redis.Password,
		DB:       e.Redis.DB,
	})
}

// RedisSessions wires the remote session store from the deployment
// settings.
func (e *EnvConfig) RedisSessions() *RedisSessionStore {
	return NewRedisSessionStore(e.RedisClient(), time.Duration(e.SessionTTLSeconds)*time.Second).
		WithKeyPrefix(e.Redis.KeyPrefix)
}
