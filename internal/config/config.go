package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultAppName       = "OrbitAuth"
	defaultAppEnv        = "development"
	defaultPort          = "8080"
	defaultLogLevel      = "info"
	defaultShutdownDelay = 10 * time.Second

	defaultPhoneAuthTTL  = 5 * time.Minute
	defaultQrAuthTTL     = 5 * time.Minute
	defaultUserSessTTL   = 30 * 24 * time.Hour
	defaultAdminSessTTL  = 7 * 24 * time.Hour
	defaultCallThrottle  = 60 * time.Second
	defaultGatewayAPIURL = "https://api.flashcall.example/v1/request"
)

// Config captures application runtime configuration loaded from environment
// variables. Integrations whose secrets are absent are disabled rather than
// treated as startup failures.
type Config struct {
	AppName        string
	AppEnv         string
	Port           string
	LogLevel       string
	DatabaseURL    string
	RedisURL       string
	ShutdownPeriod time.Duration

	// Telephony gateway. Outbound flash-call requests need both the bearer
	// token and a reachable webhook base URL.
	GatewayAPIURL  string
	GatewayToken   string
	WebhookBaseURL string
	// TestPhone short-circuits the gateway entirely, for store review and
	// automated tests.
	TestPhone string

	// Admin auth. All three must be present or admin auth stays disabled.
	AdminSecret          string
	AdminDefaultUsername string
	AdminDefaultPassword string

	// LegacyPhoneHeader re-enables trusting the raw x-user-phone header as
	// a claimed identity. Off by default; only for old clients.
	LegacyPhoneHeader bool

	PhoneAuthTTL    time.Duration
	QrAuthTTL       time.Duration
	UserSessionTTL  time.Duration
	AdminSessionTTL time.Duration
	CallThrottle    time.Duration
}

// Load reads configuration values from the environment (and a local .env
// file when present) and populates a Config instance.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		AppName:        getEnv("APP_NAME", defaultAppName),
		AppEnv:         getEnv("APP_ENV", defaultAppEnv),
		Port:           getEnv("PORT", defaultPort),
		LogLevel:       strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisURL:       os.Getenv("REDIS_URL"),
		ShutdownPeriod: defaultShutdownDelay,

		GatewayAPIURL:  getEnv("GATEWAY_API_URL", defaultGatewayAPIURL),
		GatewayToken:   os.Getenv("GATEWAY_TOKEN"),
		WebhookBaseURL: strings.TrimRight(os.Getenv("WEBHOOK_BASE_URL"), "/"),
		TestPhone:      os.Getenv("TEST_PHONE"),

		AdminSecret:          os.Getenv("ADMIN_AUTH_SECRET"),
		AdminDefaultUsername: os.Getenv("ADMIN_DEFAULT_USERNAME"),
		AdminDefaultPassword: os.Getenv("ADMIN_DEFAULT_PASSWORD"),

		LegacyPhoneHeader: getBool("LEGACY_PHONE_HEADER", false),

		PhoneAuthTTL:    getDuration("PHONE_AUTH_TTL", defaultPhoneAuthTTL),
		QrAuthTTL:       getDuration("QR_AUTH_TTL", defaultQrAuthTTL),
		UserSessionTTL:  getDuration("USER_SESSION_TTL", defaultUserSessTTL),
		AdminSessionTTL: getDuration("ADMIN_SESSION_TTL", defaultAdminSessTTL),
		CallThrottle:    getDuration("CALL_THROTTLE", defaultCallThrottle),
	}

	if v := os.Getenv("SHUTDOWN_TIMEOUT_SECONDS"); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SHUTDOWN_TIMEOUT_SECONDS: %w", err)
		}
		cfg.ShutdownPeriod = time.Duration(seconds) * time.Second
	} else if v := os.Getenv("SHUTDOWN_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
		}
		cfg.ShutdownPeriod = d
	}

	return cfg, nil
}

// GatewayEnabled reports whether outbound flash-call requests can be made.
func (c Config) GatewayEnabled() bool {
	return c.GatewayToken != "" && c.WebhookBaseURL != ""
}

// AdminAuthEnabled reports whether the admin login path is configured. A
// missing secret disables admin auth entirely instead of failing insecurely.
func (c Config) AdminAuthEnabled() bool {
	return c.AdminSecret != "" && c.AdminDefaultUsername != "" && c.AdminDefaultPassword != ""
}

// WebhookURL returns the absolute callback URL handed to the gateway, or an
// empty string when no base URL is configured.
func (c Config) WebhookURL() string {
	if c.WebhookBaseURL == "" {
		return ""
	}
	return c.WebhookBaseURL + "/api/v1/auth/phone/webhook"
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
