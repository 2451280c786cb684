package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 50051, cfg.GRPC.Port)
	assert.Equal(t, 15*time.Second, cfg.GRPC.HealthInterval)
	assert.Equal(t, "sqlite", cfg.DB.Driver)
	assert.Equal(t, "./data/disaster-reports.db", cfg.DB.Path)
	assert.Equal(t, 24*time.Hour, cfg.Session.TTL)
	assert.Equal(t, "disaster_session", cfg.Session.CookieName)
	assert.False(t, cfg.Session.CookieSecure)
	assert.Equal(t, 10, cfg.Auth.BcryptCost)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_GeneratesSecretWhenUnset(t *testing.T) {
	first, err := Load()
	require.NoError(t, err)
	second, err := Load()
	require.NoError(t, err)

	assert.True(t, first.Session.SecretGenerated)
	assert.Len(t, first.Session.Secret, 32)
	assert.NotEqual(t, first.Session.Secret, second.Session.Secret)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/db")
	t.Setenv("SESSION_SECRET", testSecret)
	t.Setenv("SESSION_TTL", "2h")
	t.Setenv("SESSION_COOKIE_SECURE", "true")
	t.Setenv("BCRYPT_COST", "12")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.DB.Driver)
	assert.Equal(t, []byte(testSecret), cfg.Session.Secret)
	assert.False(t, cfg.Session.SecretGenerated)
	assert.Equal(t, 2*time.Hour, cfg.Session.TTL)
	assert.True(t, cfg.Session.CookieSecure)
	assert.Equal(t, 12, cfg.Auth.BcryptCost)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"short secret", map[string]string{"SESSION_SECRET": "changeme"}},
		{"bad port", map[string]string{"SERVER_PORT": "70000"}},
		{"bad log level", map[string]string{"LOG_LEVEL": "verbose"}},
		{"unknown driver", map[string]string{"DB_DRIVER": "oracle"}},
		{"postgres without url", map[string]string{"DB_DRIVER": "postgres"}},
		{"short ttl", map[string]string{"SESSION_TTL": "10s"}},
		{"zero health interval", map[string]string{"GRPC_HEALTH_INTERVAL": "0s"}},
		{"negative health interval", map[string]string{"GRPC_HEALTH_INTERVAL": "-5s"}},
		{"zero purge interval", map[string]string{"SESSION_PURGE_INTERVAL": "0s"}},
		{"bcrypt cost too high", map[string]string{"BCRYPT_COST": "40"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
