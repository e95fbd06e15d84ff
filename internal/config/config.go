package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port    string `envconfig:"PORT" default:"8080"`
	DBDSN   string `envconfig:"DB_DSN" default:"gatekeeper.db"`
	LogFile string `envconfig:"LOG_FILE"`

	JWTSecret  string        `envconfig:"JWT_SECRET"`
	SessionTTL time.Duration `envconfig:"SESSION_TTL" default:"1h"`

	CookieSecure   bool   `envconfig:"COOKIE_SECURE" default:"true"`
	CookieSameSite string `envconfig:"COOKIE_SAMESITE" default:"Strict"`

	RequireApproval bool `envconfig:"REQUIRE_APPROVAL" default:"true"`
	BcryptCost      int  `envconfig:"BCRYPT_COST" default:"10"`

	LoginRateMax    int           `envconfig:"LOGIN_RATE_MAX" default:"5"`
	LoginRateWindow time.Duration `envconfig:"LOGIN_RATE_WINDOW" default:"1m"`

	CORSOrigins string `envconfig:"CORS_ORIGINS" default:"http://localhost:3000"`
	BodyLimit   int    `envconfig:"BODY_LIMIT" default:"1048576"`
	// ProxyHeader names the header holding the client IP when running behind a proxy.
	ProxyHeader string `envconfig:"PROXY_HEADER"`

	// RedisAddr enables shared limiter and denylist state when set.
	RedisAddr      string `envconfig:"REDIS_ADDR"`
	RevokeOnLogout bool   `envconfig:"SESSION_REVOKE_ON_LOGOUT" default:"false"`
}

// Load reads the server configuration from the environment.
func Load() (Config, error) {
	cfg, err := LoadBase()
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	log.Printf("[config] PORT=%s DB_DSN=%s SESSION_TTL=%s COOKIE_SAMESITE=%s REQUIRE_APPROVAL=%t REDIS_ADDR=%q REVOKE_ON_LOGOUT=%t",
		cfg.Port, cfg.DBDSN, cfg.SessionTTL, cfg.CookieSameSite, cfg.RequireApproval, cfg.RedisAddr, cfg.RevokeOnLogout)
	return cfg, nil
}

// LoadBase reads the environment without the server-only checks. The
// operator CLI uses it, since it never signs tokens.
func LoadBase() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return errors.New("JWT_SECRET must be provided")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive, got %s", c.SessionTTL)
	}
	switch strings.ToLower(c.CookieSameSite) {
	case "strict":
		c.CookieSameSite = "Strict"
	case "lax":
		c.CookieSameSite = "Lax"
	case "none":
		c.CookieSameSite = "None"
	default:
		return fmt.Errorf("COOKIE_SAMESITE must be Strict, Lax or None, got %q", c.CookieSameSite)
	}
	// Browsers drop SameSite=None cookies that are not Secure.
	if c.CookieSameSite == "None" && !c.CookieSecure {
		return errors.New("COOKIE_SAMESITE=None requires COOKIE_SECURE=true")
	}
	// Credentialed CORS cannot use a wildcard origin.
	if strings.Contains(c.CORSOrigins, "*") {
		return errors.New("CORS_ORIGINS must list explicit origins")
	}
	if c.LoginRateMax < 1 {
		return fmt.Errorf("LOGIN_RATE_MAX must be at least 1, got %d", c.LoginRateMax)
	}
	return nil
}
