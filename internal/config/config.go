package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

// Config holds all configuration required by the API process.
// Values come from env; ENV_FILE optionally points at a dotenv file that is
// loaded first (existing env vars win).
// Secrets (webhook URL, image host key, JWT secret) must never be literals in code.
type Config struct {
	App       AppConfig
	Storage   StorageConfig
	DB        DBConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Webhook   WebhookConfig
	ImageHost ImageHostConfig
	Bootstrap BootstrapConfig
}

type AppConfig struct {
	Env  string
	Port int

	// Namespace prefixes every Redis key so several deployments can share one instance.
	Namespace string

	// Timezone is used when rendering record dates into notification text.
	Timezone string
}

type StorageConfig struct {
	// Backend accepts: postgres, memory
	Backend string
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// Accepts: disable, require, verify-ca, verify-full
	SSLMode string
}

// RedisConfig is optional. Without it sessions live in process memory and the
// webhook in-flight cap is disabled.
type RedisConfig struct {
	Host string
	Port int
}

type AuthConfig struct {
	JWTSecret       string
	JWTIssuer       string
	JWTAudience     string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

type WebhookConfig struct {
	// DefaultURL is used when no webhook URL has been saved in settings.
	DefaultURL    string
	FollowUpDelay time.Duration
	Timeout       time.Duration
	// MaxInFlight caps concurrent deliveries (needs Redis). 0 disables the cap.
	MaxInFlight int
}

type ImageHostConfig struct {
	Endpoint string
	APIKey   string
}

type BootstrapConfig struct {
	AdminUsername string
	AdminPassword string
}

const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"

	defaultImageHostEndpoint = "https://api.imgbb.com/1/upload"
)

func Load() (Config, error) {
	if f := strings.TrimSpace(os.Getenv("ENV_FILE")); f != "" {
		if err := godotenv.Load(f); err != nil {
			return Config{}, fmt.Errorf("ENV_FILE %q: %w", f, err)
		}
	}

	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	{
		n, err := mustInt("APP_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.App.Port = n
	}
	c.App.Namespace = strings.TrimSpace(os.Getenv("APP_NAMESPACE"))
	c.App.Timezone = strings.TrimSpace(os.Getenv("APP_TIMEZONE"))

	c.Storage.Backend = strings.TrimSpace(os.Getenv("STORAGE_BACKEND"))

	if c.Storage.Backend == "" || c.Storage.Backend == BackendPostgres {
		c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
		{
			n, err := mustInt("DB_PORT")
			n, parseErrs = appendParseErr(parseErrs, n, err)
			c.DB.Port = n
		}
		c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
		c.DB.Password = os.Getenv("DB_PASSWORD")
		c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
		c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))
	}

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	if c.Redis.Host != "" {
		n, err := mustInt("REDIS_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Redis.Port = n
	}

	c.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	c.Auth.JWTIssuer = strings.TrimSpace(os.Getenv("JWT_ISSUER"))
	c.Auth.JWTAudience = strings.TrimSpace(os.Getenv("JWT_AUDIENCE"))
	// Duration env vars are optional; defaults applied in Validate().
	c.Auth.AccessTokenTTL = mustDuration("JWT_ACCESS_TTL")
	c.Auth.RefreshTokenTTL = mustDuration("JWT_REFRESH_TTL")

	c.Webhook.DefaultURL = strings.TrimSpace(os.Getenv("DISCORD_WEBHOOK_URL"))
	c.Webhook.FollowUpDelay = mustDuration("WEBHOOK_FOLLOWUP_DELAY")
	c.Webhook.Timeout = mustDuration("WEBHOOK_TIMEOUT")
	if v := strings.TrimSpace(os.Getenv("WEBHOOK_MAX_INFLIGHT")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			parseErrs = append(parseErrs, fmt.Errorf("WEBHOOK_MAX_INFLIGHT must be an integer, got %q", v))
		}
		c.Webhook.MaxInFlight = n
	}

	c.ImageHost.Endpoint = strings.TrimSpace(os.Getenv("IMAGE_HOST_ENDPOINT"))
	c.ImageHost.APIKey = os.Getenv("IMAGE_HOST_API_KEY")

	c.Bootstrap.AdminUsername = strings.TrimSpace(os.Getenv("BOOTSTRAP_ADMIN_USERNAME"))
	c.Bootstrap.AdminPassword = os.Getenv("BOOTSTRAP_ADMIN_PASSWORD")

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks the config and fills in defaults. It has a pointer receiver
// because defaults are written back.
func (c *Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}
	if c.App.Namespace == "" {
		c.App.Namespace = "arrestlog"
	}
	if c.App.Timezone == "" {
		c.App.Timezone = "America/Sao_Paulo"
	}
	if _, err := time.LoadLocation(c.App.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("APP_TIMEZONE %q is not a known location", c.App.Timezone))
	}

	if c.Storage.Backend == "" {
		c.Storage.Backend = BackendPostgres
	}
	switch c.Storage.Backend {
	case BackendPostgres:
		errs = append(errs, c.validateDB()...)
	case BackendMemory:
		if c.IsProduction() {
			errs = append(errs, errors.New("STORAGE_BACKEND=memory is not allowed in production"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORAGE_BACKEND must be one of postgres, memory, got %q", c.Storage.Backend))
	}

	if c.Redis.Host != "" && (c.Redis.Port <= 0 || c.Redis.Port > 65535) {
		errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
	}

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.IsProduction() {
		if c.Auth.JWTIssuer == "" {
			errs = append(errs, errors.New("JWT_ISSUER is required in production"))
		}
		if c.Redis.Host == "" {
			errs = append(errs, errors.New("REDIS_HOST is required in production"))
		}
	}
	if c.Auth.AccessTokenTTL <= 0 {
		c.Auth.AccessTokenTTL = 15 * time.Minute
	}
	if c.Auth.RefreshTokenTTL <= 0 {
		c.Auth.RefreshTokenTTL = 7 * 24 * time.Hour
	}
	if c.Auth.RefreshTokenTTL <= c.Auth.AccessTokenTTL {
		errs = append(errs, errors.New("JWT_REFRESH_TTL must be greater than JWT_ACCESS_TTL"))
	}

	if c.Webhook.DefaultURL != "" {
		if err := ValidateHTTPURL(c.Webhook.DefaultURL); err != nil {
			// Do not echo the URL: the token is part of it.
			errs = append(errs, fmt.Errorf("DISCORD_WEBHOOK_URL: %w", err))
		}
	}
	if c.Webhook.FollowUpDelay <= 0 {
		c.Webhook.FollowUpDelay = time.Second
	}
	if c.Webhook.Timeout <= 0 {
		c.Webhook.Timeout = 15 * time.Second
	}
	if c.Webhook.MaxInFlight < 0 {
		errs = append(errs, fmt.Errorf("WEBHOOK_MAX_INFLIGHT must be >= 0, got %d", c.Webhook.MaxInFlight))
	}

	if c.ImageHost.Endpoint == "" {
		c.ImageHost.Endpoint = defaultImageHostEndpoint
	}

	if (c.Bootstrap.AdminUsername == "") != (c.Bootstrap.AdminPassword == "") {
		errs = append(errs, errors.New("BOOTSTRAP_ADMIN_USERNAME and BOOTSTRAP_ADMIN_PASSWORD must be set together"))
	}

	return joinErrors(errs)
}

func (c *Config) validateDB() []error {
	var errs []error
	if c.DB.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if c.DB.Port <= 0 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
	}
	if c.DB.User == "" {
		errs = append(errs, errors.New("DB_USER is required"))
	}
	if c.DB.Name == "" {
		errs = append(errs, errors.New("DB_NAME is required"))
	}
	if c.DB.SSLMode == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("DB_SSLMODE is required in production"))
		} else {
			c.DB.SSLMode = "disable"
		}
	}
	if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
		errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
	}
	return errs
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func (c Config) RedisEnabled() bool {
	return c.Redis.Host != ""
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// Location returns the configured time zone, falling back to UTC.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ValidateHTTPURL accepts absolute http(s) URLs with a host.
func ValidateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return errors.New("not a valid URL")
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return errors.New("scheme must be http or https")
	}
	if u.Host == "" {
		return errors.New("host is required")
	}
	return nil
}

func mustInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func mustDuration(key string) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}

func appendParseErr(errs []error, n int, err error) (int, []error) {
	if err != nil {
		errs = append(errs, err)
	}
	return n, errs
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
