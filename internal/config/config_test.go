package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"APP_PORT", "APP_ENV", "DYNAMO_TABLE_USERS", "VCCS_TIMEOUT", "PASSWORD_MIN_LENGTH",
		"SMTP_HOST", "DYNAMO_TABLE_USER_VERIFICATIONS", "RECOVERY_CODE_TTL", "PASSWORD_MIN_ENTROPY"} {
		t.Setenv(k, "")
	}
	cfg := Load()
	assert.Equal(t, "3000", cfg.AppPort)
	assert.Equal(t, "users", cfg.DynamoTables.Users)
	assert.Equal(t, 5*time.Second, cfg.VCCSTimeout)
	assert.Equal(t, 10, cfg.PasswordMinLength)
	assert.Equal(t, 25.0, cfg.PasswordMinEntropy)
	assert.Equal(t, "user_verifications", cfg.DynamoTables.Verifications)
	assert.Equal(t, 15*time.Minute, cfg.RecoveryCodeTTL)
	assert.Empty(t, cfg.SMTPHost, "mail is off unless a host is configured")
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("VCCS_URL", "http://vccs.internal:8550")
	t.Setenv("VCCS_TIMEOUT", "750ms")
	t.Setenv("PASSWORD_MIN_LENGTH", "12")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("PASSWORD_MIN_ENTROPY", "40.5")
	t.Setenv("RECOVERY_MAX_ATTEMPTS", "3")

	cfg := Load()

	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, "http://vccs.internal:8550", cfg.VCCSURL)
	assert.Equal(t, 750*time.Millisecond, cfg.VCCSTimeout)
	assert.Equal(t, 12, cfg.PasswordMinLength)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, 40.5, cfg.PasswordMinEntropy)
	assert.Equal(t, 3, cfg.RecoveryMaxAttempts)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("VCCS_TIMEOUT", "soon")
	t.Setenv("PASSWORD_MIN_LENGTH", "many")
	t.Setenv("PASSWORD_MIN_ENTROPY", "high")

	cfg := Load()

	assert.Equal(t, 5*time.Second, cfg.VCCSTimeout)
	assert.Equal(t, 10, cfg.PasswordMinLength)
	assert.Equal(t, 25.0, cfg.PasswordMinEntropy)
}
