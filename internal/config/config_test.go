package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("REGISTRATION_TTL", "")
	t.Setenv("MAX_PAGE_SIZE", "")

	cfg := Load()

	assert.Equal(t, 20*time.Minute, cfg.RegistrationTTL)
	assert.Equal(t, 100, cfg.MaxPageSize)
	assert.Equal(t, "relations", cfg.DynamoTables.Relations)
	assert.True(t, cfg.CookieSecure)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_EXPIRY", "1h")
	t.Setenv("OTP_MAX_ATTEMPTS", "3")
	t.Setenv("COOKIE_SECURE", "false")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test,http://b.test")

	cfg := Load()

	assert.Equal(t, time.Hour, cfg.AccessTokenExpiry)
	assert.Equal(t, 3, cfg.OTPMaxAttempts)
	assert.False(t, cfg.CookieSecure)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.AllowedOrigins)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("REFRESH_TOKEN_EXPIRY", "ten days")
	t.Setenv("DEFAULT_PAGE_SIZE", "abc")

	cfg := Load()

	assert.Equal(t, 240*time.Hour, cfg.RefreshTokenExpiry)
	assert.Equal(t, 10, cfg.DefaultPageSize)
}
