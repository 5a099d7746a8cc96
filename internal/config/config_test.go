package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
	for _, key := range []string{
		"DATABASE_URL", "POSTGRES_URL", "PGURL", "DATABASE_URL_FILE",
		"PGHOST", "POSTGRES_HOST", "PGUSER", "POSTGRES_USER",
		"HTTP_PORT", "PORT", "API_BASE_PATH", "STORE_DRIVER", "MAIL_DRIVER",
		"JWT_ACCESS_EXPIRY", "JWT_REFRESH_EXPIRY", "CACHE_TTL", "REDIS_ENABLE",
	} {
		t.Setenv(key, "")
	}
	t.Setenv("JWT_SECRET", "secret")
}

func TestLoad_Defaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "/api/v1", cfg.BasePath)
	assert.Equal(t, DriverMongo, cfg.StoreDriver)
	assert.Equal(t, MailLog, cfg.Mail.Driver)
	assert.Equal(t, 720*time.Hour, cfg.JWTAccessExpiry)
	assert.Equal(t, 10*time.Minute, cfg.VerificationCodeTTL)
	assert.Equal(t, time.Hour, cfg.CacheTTL)
	assert.Equal(t, 10, cfg.RateLimitMax)
	assert.Equal(t, time.Minute, cfg.RateLimitWindow)
	assert.False(t, cfg.RedisEnabled)
	assert.False(t, cfg.RevokeSessionsOnReset)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
}

func TestLoad_Overrides(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("API_BASE_PATH", "api/v2/")
	t.Setenv("CACHE_TTL", "120")
	t.Setenv("REDIS_ENABLE", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("STORE_DRIVER", "MEMORY")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.HTTPPort)
	assert.Equal(t, "/api/v2", cfg.BasePath)
	assert.Equal(t, 2*time.Minute, cfg.CacheTTL)
	assert.True(t, cfg.RedisEnabled)
	assert.Equal(t, DriverMemory, cfg.StoreDriver)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
}

func TestLoad_Validation(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("JWT_SECRET", "")
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("MAIL_DRIVER", "pigeon")
	t.Setenv("JWT_ACCESS_EXPIRY", "2h")
	t.Setenv("JWT_REFRESH_EXPIRY", "1h")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET is required")
	assert.Contains(t, err.Error(), "database configuration missing")
	assert.Contains(t, err.Error(), `MAIL_DRIVER "pigeon"`)
	assert.Contains(t, err.Error(), "JWT_REFRESH_EXPIRY")
}

func TestResolveDatabaseURL(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("DATABASE_URL", "postgresql://u:p@db:5432/app")
	assert.Equal(t, "postgres://u:p@db:5432/app", resolveDatabaseURL())

	t.Setenv("DATABASE_URL", "")
	t.Setenv("PGHOST", "db")
	t.Setenv("PGUSER", "app")
	t.Setenv("PGPASSWORD", "pw")
	t.Setenv("PGDATABASE", "main")
	t.Setenv("PGPORT", "")
	t.Setenv("PGSSLMODE", "disable")
	assert.Equal(t, "postgres://app:pw@db:5432/main?sslmode=disable", resolveDatabaseURL())
}
