package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDevelopmentDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("JWT_SECRET", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, defaultOTPTTL, cfg.OTPTTL)
	assert.Equal(t, 5*time.Minute, cfg.OTPTTL)
	assert.Equal(t, devJWTSecret, cfg.JWTSecret)
	assert.Equal(t, defaultOTPSendPerMinute, cfg.OTPSendPerMinute)
	assert.Equal(t, ":8080", cfg.Address())
	assert.True(t, cfg.IsDev())
}

func TestLoadProductionRequiresBackends(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("JWT_SECRET", "s3cret")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestLoadParsesDurations(t *testing.T) {
	t.Setenv("APP_ENV", "local")
	t.Setenv("OTP_TTL", "90s")
	t.Setenv("SHUTDOWN_TIMEOUT_SECONDS", "3")
	t.Setenv("VERIFIED_EMAIL_WINDOW", "0s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, cfg.OTPTTL)
	assert.Equal(t, 3*time.Second, cfg.ShutdownPeriod)
	assert.Equal(t, time.Duration(0), cfg.VerifiedEmailWindow)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("APP_ENV", "local")

	t.Run("duration", func(t *testing.T) {
		t.Setenv("ACCESS_TOKEN_TTL", "soon")
		_, err := Load()
		require.Error(t, err)
	})

	t.Run("notifier", func(t *testing.T) {
		t.Setenv("NOTIFIER", "carrier-pigeon")
		_, err := Load()
		require.Error(t, err)
	})

	t.Run("amqp without url", func(t *testing.T) {
		t.Setenv("NOTIFIER", "amqp")
		t.Setenv("AMQP_URL", "")
		_, err := Load()
		require.Error(t, err)
	})
}
