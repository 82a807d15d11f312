package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, int32(8190), cfg.HTTP.Port)
	assert.Equal(t, DefaultDatabasePath, cfg.Database.Path)
	assert.Equal(t, 14, cfg.Circulation.LoanPeriodDays)
	assert.Equal(t, 14, cfg.Circulation.RenewalDays)
	assert.Equal(t, int64(DefaultMaxCoverSize), cfg.Uploads.MaxCoverSize)
	assert.Equal(t, 12*time.Hour, cfg.Auth.SessionLifetime)
	assert.Equal(t, 72*time.Hour, cfg.Auth.SetupTokenTTL)
	assert.False(t, cfg.Mail.Enabled)
	assert.True(t, cfg.Tasks.Enabled)
	assert.Equal(t, "0 8 * * *", cfg.Circulation.OverdueSchedule)
}

func TestNewConfig_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("RENEWAL_DAYS", "7")
	t.Setenv("MAIL_ENABLED", "true")
	t.Setenv("AUTH_SESSION_LIFETIME", "1h")
	t.Setenv("LOG_FORMAT", "console")

	cfg := NewConfig()

	assert.Equal(t, int32(9000), cfg.HTTP.Port)
	assert.Equal(t, 7, cfg.Circulation.RenewalDays)
	assert.True(t, cfg.Mail.Enabled)
	assert.Equal(t, time.Hour, cfg.Auth.SessionLifetime)
	assert.Equal(t, "console", cfg.Logging.Format)
}
