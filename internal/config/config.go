package config

import (
	"errors"
	"fmt"
	"net"
	neturl "net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers.
const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Mail drivers.
const (
	MailLog   = "log"
	MailSMTP  = "smtp"
	MailBrevo = "brevo"
)

// Config centralises runtime configuration.
type Config struct {
	AppEnv   string
	LogLevel string

	HTTPPort        string
	BasePath        string
	AllowedOrigins  []string
	ReadTimeoutSec  int
	WriteTimeoutSec int
	IdleTimeoutSec  int

	StoreDriver   string
	MongoURI      string
	MongoDatabase string
	DatabaseURL   string

	JWTSecret        string
	JWTIssuer        string
	JWTAccessExpiry  time.Duration
	JWTRefreshExpiry time.Duration

	SessionTTL            time.Duration
	VerificationCodeTTL   time.Duration
	BcryptCost            int
	RevokeSessionsOnReset bool
	AuthRatePerMinute     int

	RedisEnabled    bool
	RedisURL        string
	CacheTTL        time.Duration
	RateLimitMax    int
	RateLimitWindow time.Duration
	LockTTL         time.Duration
	LockRetryCount  int
	LockRetryDelay  time.Duration

	Mail Mail
}

// Mail configures outbound email.
type Mail struct {
	Driver             string
	From               string
	FromName           string
	SMTPHost           string
	SMTPPort           int
	SMTPUsername       string
	SMTPPassword       string
	BrevoAPIKey        string
	BreakerMaxFailures int
	BreakerTimeout     time.Duration
}

// Load reads configuration from environment variables providing sane defaults.
// A .env file in the working directory is applied first without overriding the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("loading .env: %w", err)
	}

	httpPort := getEnv("HTTP_PORT", "")
	if httpPort == "" {
		httpPort = getEnv("PORT", "8080")
	}

	cfg := Config{
		AppEnv:   getEnv("APP_ENV", "production"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		HTTPPort:        httpPort,
		BasePath:        "/" + strings.Trim(getEnv("API_BASE_PATH", "/api/v1"), "/"),
		AllowedOrigins:  splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		ReadTimeoutSec:  getIntEnv("HTTP_READ_TIMEOUT", 15),
		WriteTimeoutSec: getIntEnv("HTTP_WRITE_TIMEOUT", 15),
		IdleTimeoutSec:  getIntEnv("HTTP_IDLE_TIMEOUT", 60),

		StoreDriver:   strings.ToLower(getEnv("STORE_DRIVER", DriverMongo)),
		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGO_DATABASE", "boilerplate"),
		DatabaseURL:   resolveDatabaseURL(),

		JWTSecret:        getEnv("JWT_SECRET", ""),
		JWTIssuer:        getEnv("JWT_ISSUER", "backoffice"),
		JWTAccessExpiry:  getDurationEnv("JWT_ACCESS_EXPIRY", 720*time.Hour),
		JWTRefreshExpiry: getDurationEnv("JWT_REFRESH_EXPIRY", 720*time.Hour),

		SessionTTL:            getDurationEnv("SESSION_TTL", 720*time.Hour),
		VerificationCodeTTL:   getDurationEnv("VERIFICATION_CODE_TTL", 10*time.Minute),
		BcryptCost:            getIntEnv("BCRYPT_COST", 10),
		RevokeSessionsOnReset: getBoolEnv("AUTH_REVOKE_SESSIONS_ON_RESET", false),
		AuthRatePerMinute:     getIntEnv("AUTH_RATE_LIMIT_PER_MINUTE", 60),

		RedisEnabled:    getBoolEnv("REDIS_ENABLE", false),
		RedisURL:        getEnv("REDIS_URL", "redis://localhost:6379/0"),
		CacheTTL:        getSecondsEnv("CACHE_TTL", time.Hour),
		RateLimitMax:    getIntEnv("RATE_LIMIT_MAX", 10),
		RateLimitWindow: getSecondsEnv("RATE_LIMIT_WINDOW", time.Minute),
		LockTTL:         getDurationEnv("LOCK_TTL", 10*time.Second),
		LockRetryCount:  getIntEnv("LOCK_RETRY_COUNT", 20),
		LockRetryDelay:  getDurationEnv("LOCK_RETRY_DELAY", 200*time.Millisecond),

		Mail: Mail{
			Driver:             strings.ToLower(getEnv("MAIL_DRIVER", MailLog)),
			From:               getEnv("MAIL_FROM", "no-reply@example.com"),
			FromName:           getEnv("MAIL_FROM_NAME", "Backoffice"),
			SMTPHost:           getEnv("SMTP_HOST", ""),
			SMTPPort:           getIntEnv("SMTP_PORT", 587),
			SMTPUsername:       getEnv("SMTP_USERNAME", ""),
			SMTPPassword:       getEnv("SMTP_PASSWORD", ""),
			BrevoAPIKey:        getEnv("BREVO_API_KEY", ""),
			BreakerMaxFailures: getIntEnv("MAIL_BREAKER_MAX_FAILURES", 5),
			BreakerTimeout:     getDurationEnv("MAIL_BREAKER_TIMEOUT", 30*time.Second),
		},
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.JWTRefreshExpiry < c.JWTAccessExpiry {
		errs = append(errs, errors.New("JWT_REFRESH_EXPIRY must not be shorter than JWT_ACCESS_EXPIRY"))
	}
	switch c.StoreDriver {
	case DriverMongo:
		if c.MongoURI == "" {
			errs = append(errs, errors.New("MONGO_URI is required for the mongo driver"))
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("database configuration missing: provide DATABASE_URL or PG* env vars"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER %q is not one of mongo, postgres, memory", c.StoreDriver))
	}
	switch c.Mail.Driver {
	case MailLog:
	case MailSMTP:
		if c.Mail.SMTPHost == "" {
			errs = append(errs, errors.New("SMTP_HOST is required for the smtp mail driver"))
		}
	case MailBrevo:
		if c.Mail.BrevoAPIKey == "" {
			errs = append(errs, errors.New("BREVO_API_KEY is required for the brevo mail driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("MAIL_DRIVER %q is not one of log, smtp, brevo", c.Mail.Driver))
	}
	if c.RedisEnabled && c.RedisURL == "" {
		errs = append(errs, errors.New("REDIS_URL is required when REDIS_ENABLE is true"))
	}
	if c.RateLimitMax <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_MAX must be positive"))
	}
	return errors.Join(errs...)
}

// Development reports whether APP_ENV selects development behaviour.
func (c Config) Development() bool {
	return c.AppEnv == "development" || c.AppEnv == "local"
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}

// getSecondsEnv accepts either a bare number of seconds or a Go duration.
func getSecondsEnv(key string, fallback time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return time.Duration(n) * time.Second
		}
	}
	return getDurationEnv(key, fallback)
}

func getIntEnv(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return fallback
}

func getBoolEnv(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return fallback
}

func splitCSV(value string) []string {
	parts := []string{}
	for _, part := range strings.Split(value, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	if len(parts) == 0 {
		return []string{"*"}
	}
	return parts
}

// resolveDatabaseURL prefers an explicit URL and falls back to assembling one from PG* variables.
func resolveDatabaseURL() string {
	for _, key := range []string{"DATABASE_URL", "POSTGRES_URL", "PGURL"} {
		if url := coerceDatabaseURL(os.Getenv(key)); url != "" {
			return url
		}
	}
	if path := os.Getenv("DATABASE_URL_FILE"); path != "" {
		if data, err := os.ReadFile(path); err == nil {
			if url := coerceDatabaseURL(string(data)); url != "" {
				return url
			}
		}
	}

	host := firstNonEmpty(os.Getenv("PGHOST"), os.Getenv("POSTGRES_HOST"))
	user := firstNonEmpty(os.Getenv("PGUSER"), os.Getenv("POSTGRES_USER"))
	if host == "" || user == "" {
		return ""
	}
	password := firstNonEmpty(os.Getenv("PGPASSWORD"), os.Getenv("POSTGRES_PASSWORD"))
	database := firstNonEmpty(os.Getenv("PGDATABASE"), os.Getenv("POSTGRES_DB"), user)
	port := firstNonEmpty(os.Getenv("PGPORT"), os.Getenv("POSTGRES_PORT"), "5432")
	sslMode := firstNonEmpty(os.Getenv("PGSSLMODE"), "require")

	dsn := &neturl.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(host, port),
		Path:   "/" + database,
		User:   neturl.User(user),
	}
	if password != "" {
		dsn.User = neturl.UserPassword(user, password)
	}
	query := dsn.Query()
	query.Set("sslmode", sslMode)
	dsn.RawQuery = query.Encode()
	return dsn.String()
}

func coerceDatabaseURL(raw string) string {
	raw = strings.TrimSpace(raw)
	switch {
	case strings.HasPrefix(raw, "postgres://"):
		return raw
	case strings.HasPrefix(raw, "postgresql://"):
		return "postgres://" + strings.TrimPrefix(raw, "postgresql://")
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
