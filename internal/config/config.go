package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	Redis         RedisConfig         `yaml:"redis"`
	Fingerprint   FingerprintConfig   `yaml:"fingerprint"`
	RateLimit     RateLimitConfig     `yaml:"rate_limit"`
	BlockList     BlockListConfig     `yaml:"block_list"`
	Suspicion     SuspicionConfig     `yaml:"suspicion"`
	Auth          AuthConfig          `yaml:"auth"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Analytics     AnalyticsConfig     `yaml:"analytics"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
	// PublicHost is the site's own hostname; referrers from it classify as internal.
	PublicHost             string   `yaml:"public_host"`
	AllowedOrigins         []string `yaml:"allowed_origins"`
	RequestTimeoutSeconds  int      `yaml:"request_timeout_seconds"`
	ShutdownTimeoutSeconds int      `yaml:"shutdown_timeout_seconds"`
}

// GetHost returns the server host, with ECS detection
func (c ServerConfig) GetHost() string {
	// On ECS/container, listen on all interfaces
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// Addr returns host:port for http.Server.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.GetHost(), c.Port)
}

// RequestTimeout bounds each request's context.
func (c ServerConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// ShutdownTimeout bounds graceful shutdown.
func (c ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}

// DatabaseConfig holds the Postgres connection settings
type DatabaseConfig struct {
	URL                    string `yaml:"url"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// ConnMaxLifetime returns the pool's connection lifetime.
func (c DatabaseConfig) ConnMaxLifetime() time.Duration {
	return time.Duration(c.ConnMaxLifetimeMinutes) * time.Minute
}

// RedisConfig holds the Redis connection used for analytics counters and send locks.
// An empty URL disables both.
type RedisConfig struct {
	URL string `yaml:"url"`
}

// Enabled reports whether a Redis URL is configured.
func (c RedisConfig) Enabled() bool { return c.URL != "" }

// FingerprintConfig holds the secret mixed into the daily salt.
type FingerprintConfig struct {
	Secret string `yaml:"secret"`
}

// RateLimitConfig controls the sliding-window send limit.
type RateLimitConfig struct {
	Limit         int   `yaml:"limit"`
	WindowMinutes int   `yaml:"window_minutes"`
	FailOpen      *bool `yaml:"fail_open"`
	// SerializeSends wraps check+insert in a per-fingerprint distributed lock.
	SerializeSends bool `yaml:"serialize_sends"`
	LockWaitMillis int  `yaml:"lock_wait_millis"`
	LockTTLSeconds int  `yaml:"lock_ttl_seconds"`
}

// Window returns the sliding window length.
func (c RateLimitConfig) Window() time.Duration {
	return time.Duration(c.WindowMinutes) * time.Minute
}

// FailOpenEnabled defaults to true when unset.
func (c RateLimitConfig) FailOpenEnabled() bool { return c.FailOpen == nil || *c.FailOpen }

// LockWait bounds how long a send queues behind another from the same fingerprint.
func (c RateLimitConfig) LockWait() time.Duration {
	return time.Duration(c.LockWaitMillis) * time.Millisecond
}

// LockTTL bounds how long a crashed holder keeps the lock.
func (c RateLimitConfig) LockTTL() time.Duration {
	return time.Duration(c.LockTTLSeconds) * time.Second
}

// BlockListConfig controls the block gate.
type BlockListConfig struct {
	FailOpen *bool `yaml:"fail_open"`
}

// FailOpenEnabled defaults to true when unset.
func (c BlockListConfig) FailOpenEnabled() bool { return c.FailOpen == nil || *c.FailOpen }

// SuspicionConfig tunes the abuse heuristics.
type SuspicionConfig struct {
	BurstWindowMinutes int `yaml:"burst_window_minutes"`
	BurstMedium        int `yaml:"burst_medium"`
	BurstHigh          int `yaml:"burst_high"`
	RepeatCount        int `yaml:"repeat_count"`
	VolumeLow          int `yaml:"volume_low"`
}

// BurstWindow returns the burst detection window.
func (c SuspicionConfig) BurstWindow() time.Duration {
	return time.Duration(c.BurstWindowMinutes) * time.Minute
}

// AuthConfig holds the external identity provider's token settings.
type AuthConfig struct {
	JWTSecret  string `yaml:"jwt_secret"`
	Issuer     string `yaml:"issuer"`
	Audience   string `yaml:"audience"`
	CookieName string `yaml:"cookie_name"`
}

// Notification dispatch modes.
const (
	NotifyInline   = "inline"
	NotifySQS      = "sqs"
	NotifyDisabled = "disabled"
)

// NotificationsConfig controls how new-message alerts are dispatched and delivered.
type NotificationsConfig struct {
	Mode                   string         `yaml:"mode"`
	DispatchTimeoutSeconds int            `yaml:"dispatch_timeout_seconds"`
	DashboardURL           string         `yaml:"dashboard_url"`
	SQS                    SQSConfig      `yaml:"sqs"`
	Push                   PushConfig     `yaml:"push"`
	Email                  EmailConfig    `yaml:"email"`
	Templates              TemplateConfig `yaml:"templates"`
}

// DispatchTimeout bounds one inline delivery or one enqueue.
func (c NotificationsConfig) DispatchTimeout() time.Duration {
	return time.Duration(c.DispatchTimeoutSeconds) * time.Second
}

// SQSConfig holds the notification queue settings.
type SQSConfig struct {
	QueueURL          string `yaml:"queue_url"`
	Region            string `yaml:"region"`
	AccessKey         string `yaml:"access_key"`
	SecretKey         string `yaml:"secret_key"`
	WaitTimeSeconds   int    `yaml:"wait_time_seconds"`
	MaxMessages       int    `yaml:"max_messages"`
	VisibilityTimeout int    `yaml:"visibility_timeout"`
}

// PushConfig holds Web Push (VAPID) settings.
type PushConfig struct {
	VAPIDPublicKey  string `yaml:"vapid_public_key"`
	VAPIDPrivateKey string `yaml:"vapid_private_key"`
	Subscriber      string `yaml:"subscriber"`
	TTLSeconds      int    `yaml:"ttl_seconds"`
	RatePerSecond   int    `yaml:"rate_per_second"`
	MaxRetries      int    `yaml:"max_retries"`
	TimeoutSeconds  int    `yaml:"timeout_seconds"`
}

// Enabled reports whether VAPID keys are configured.
func (c PushConfig) Enabled() bool { return c.VAPIDPublicKey != "" && c.VAPIDPrivateKey != "" }

// Timeout returns the push HTTP client timeout.
func (c PushConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// EmailConfig holds the SES email channel settings.
type EmailConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Region      string `yaml:"region"`
	AccessKey   string `yaml:"access_key"`
	SecretKey   string `yaml:"secret_key"`
	FromAddress string `yaml:"from_address"`
}

// TemplateConfig holds the liquid templates for alerts.
type TemplateConfig struct {
	Title        string `yaml:"title"`
	Body         string `yaml:"body"`
	EmailSubject string `yaml:"email_subject"`
	EmailBody    string `yaml:"email_body"`
}

// AnalyticsConfig controls the Redis visit counters.
type AnalyticsConfig struct {
	Enabled        bool `yaml:"enabled"`
	RetentionHours int  `yaml:"retention_hours"`

	// VisitRetentionDays bounds how long raw visit rows stay in Postgres.
	VisitRetentionDays     int `yaml:"visit_retention_days"`
	CleanupIntervalMinutes int `yaml:"cleanup_interval_minutes"`
}

// Retention is the TTL of each hourly counter hash.
func (c AnalyticsConfig) Retention() time.Duration {
	return time.Duration(c.RetentionHours) * time.Hour
}

// VisitRetention is the age after which visit rows are pruned.
func (c AnalyticsConfig) VisitRetention() time.Duration {
	return time.Duration(c.VisitRetentionDays) * 24 * time.Hour
}

func (c AnalyticsConfig) CleanupInterval() time.Duration {
	return time.Duration(c.CleanupIntervalMinutes) * time.Minute
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level     string `yaml:"level"`
	RedactPII *bool  `yaml:"redact_pii"`
}

// RedactPIIEnabled defaults to true when unset.
func (c LoggingConfig) RedactPIIEnabled() bool { return c.RedactPII == nil || *c.RedactPII }

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.RequestTimeoutSeconds == 0 {
		cfg.Server.RequestTimeoutSeconds = 15
	}
	if cfg.Server.ShutdownTimeoutSeconds == 0 {
		cfg.Server.ShutdownTimeoutSeconds = 20
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetimeMinutes == 0 {
		cfg.Database.ConnMaxLifetimeMinutes = 30
	}
	if cfg.RateLimit.Limit == 0 {
		cfg.RateLimit.Limit = 10
	}
	if cfg.RateLimit.WindowMinutes == 0 {
		cfg.RateLimit.WindowMinutes = 60
	}
	if cfg.RateLimit.LockWaitMillis == 0 {
		cfg.RateLimit.LockWaitMillis = 500
	}
	if cfg.RateLimit.LockTTLSeconds == 0 {
		cfg.RateLimit.LockTTLSeconds = 5
	}
	if cfg.Suspicion.BurstWindowMinutes == 0 {
		cfg.Suspicion.BurstWindowMinutes = 5
	}
	if cfg.Suspicion.BurstMedium == 0 {
		cfg.Suspicion.BurstMedium = 5
	}
	if cfg.Suspicion.BurstHigh == 0 {
		cfg.Suspicion.BurstHigh = 10
	}
	if cfg.Suspicion.RepeatCount == 0 {
		cfg.Suspicion.RepeatCount = 3
	}
	if cfg.Suspicion.VolumeLow == 0 {
		cfg.Suspicion.VolumeLow = 20
	}
	if cfg.Auth.Audience == "" {
		cfg.Auth.Audience = "authenticated"
	}
	if cfg.Auth.CookieName == "" {
		cfg.Auth.CookieName = "wb_session"
	}
	if cfg.Notifications.Mode == "" {
		cfg.Notifications.Mode = NotifyInline
	}
	if cfg.Notifications.DispatchTimeoutSeconds == 0 {
		cfg.Notifications.DispatchTimeoutSeconds = 10
	}
	if cfg.Notifications.SQS.Region == "" {
		cfg.Notifications.SQS.Region = "us-west-2"
	}
	if cfg.Notifications.SQS.WaitTimeSeconds == 0 {
		cfg.Notifications.SQS.WaitTimeSeconds = 20
	}
	if cfg.Notifications.SQS.MaxMessages == 0 {
		cfg.Notifications.SQS.MaxMessages = 10
	}
	if cfg.Notifications.SQS.VisibilityTimeout == 0 {
		cfg.Notifications.SQS.VisibilityTimeout = 60
	}
	if cfg.Notifications.Push.TTLSeconds == 0 {
		cfg.Notifications.Push.TTLSeconds = 86400
	}
	if cfg.Notifications.Push.RatePerSecond == 0 {
		cfg.Notifications.Push.RatePerSecond = 50
	}
	if cfg.Notifications.Push.MaxRetries == 0 {
		cfg.Notifications.Push.MaxRetries = 2
	}
	if cfg.Notifications.Push.TimeoutSeconds == 0 {
		cfg.Notifications.Push.TimeoutSeconds = 10
	}
	if cfg.Notifications.Email.Region == "" {
		cfg.Notifications.Email.Region = "us-west-2"
	}
	if cfg.Analytics.RetentionHours == 0 {
		cfg.Analytics.RetentionHours = 8 * 24
	}
	if cfg.Analytics.VisitRetentionDays == 0 {
		cfg.Analytics.VisitRetentionDays = 90
	}
	if cfg.Analytics.CleanupIntervalMinutes == 0 {
		cfg.Analytics.CleanupIntervalMinutes = 60
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so secrets can live in .env locally and in real env vars on ECS.
// A missing config file is tolerated for env-only deployments.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg = &Config{}
		applyDefaults(cfg)
	} else if err != nil {
		return nil, err
	}

	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("PUBLIC_HOST"); v != "" {
		cfg.Server.PublicHost = v
	}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		cfg.Server.AllowedOrigins = splitList(v)
	}

	// Database override (critical for ECS deployment where config.yaml has local defaults)
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("FINGERPRINT_SECRET"); v != "" {
		cfg.Fingerprint.Secret = v
	}
	if v := os.Getenv("RATE_LIMIT_FAIL_OPEN"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.RateLimit.FailOpen = &b
			cfg.BlockList.FailOpen = &b
		}
	}

	// Auth overrides
	if v := os.Getenv("AUTH_JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("AUTH_JWT_ISSUER"); v != "" {
		cfg.Auth.Issuer = v
	}

	// Notification overrides
	if v := os.Getenv("NOTIFY_MODE"); v != "" {
		cfg.Notifications.Mode = v
	}
	if v := os.Getenv("SQS_NOTIFY_QUEUE_URL"); v != "" {
		cfg.Notifications.SQS.QueueURL = v
	}
	if v := os.Getenv("AWS_REGION"); v != "" {
		cfg.Notifications.SQS.Region = v
		cfg.Notifications.Email.Region = v
	}
	if v := os.Getenv("AWS_SES_ACCESS_KEY"); v != "" {
		cfg.Notifications.Email.AccessKey = v
	}
	if v := os.Getenv("AWS_SES_SECRET_KEY"); v != "" {
		cfg.Notifications.Email.SecretKey = v
	}
	if v := os.Getenv("SES_FROM_ADDRESS"); v != "" {
		cfg.Notifications.Email.FromAddress = v
	}
	if v := os.Getenv("VAPID_PUBLIC_KEY"); v != "" {
		cfg.Notifications.Push.VAPIDPublicKey = v
	}
	if v := os.Getenv("VAPID_PRIVATE_KEY"); v != "" {
		cfg.Notifications.Push.VAPIDPrivateKey = v
	}
	if v := os.Getenv("VAPID_SUBSCRIBER"); v != "" {
		cfg.Notifications.Push.Subscriber = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	return cfg, nil
}

// Validate rejects configurations the server must not start with.
func (c *Config) Validate() error {
	var problems []string

	switch strings.TrimSpace(c.Fingerprint.Secret) {
	case "":
		problems = append(problems, "fingerprint.secret (FINGERPRINT_SECRET) is required")
	case "change-me":
		problems = append(problems, "fingerprint.secret is still the sample placeholder")
	}
	if c.Database.URL == "" {
		problems = append(problems, "database.url (DATABASE_URL) is required")
	}
	if c.RateLimit.Limit < 0 || c.RateLimit.WindowMinutes < 0 {
		problems = append(problems, "rate_limit.limit and rate_limit.window_minutes must be positive")
	}
	if c.Auth.JWTSecret == "" {
		problems = append(problems, "auth.jwt_secret (AUTH_JWT_SECRET) is required")
	}

	switch c.Notifications.Mode {
	case NotifyInline, NotifyDisabled:
	case NotifySQS:
		if c.Notifications.SQS.QueueURL == "" {
			problems = append(problems, "notifications.sqs.queue_url is required in sqs mode")
		}
	default:
		problems = append(problems, fmt.Sprintf("notifications.mode %q is not one of inline, sqs, disabled", c.Notifications.Mode))
	}
	if c.Notifications.Email.Enabled && c.Notifications.Email.FromAddress == "" {
		problems = append(problems, "notifications.email.from_address is required when email is enabled")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
