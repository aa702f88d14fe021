package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "0123456789abcdef0123456789abcdef"

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PASETO_KEY", testKey)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "3001", cfg.Server.Port)
	assert.True(t, cfg.Server.IsDevelopment())
	assert.Equal(t, 30*24*time.Hour, cfg.Auth.SessionDuration)
	assert.Equal(t, 8, cfg.Auth.MinPasswordLength)
	assert.Equal(t, 48*time.Hour, cfg.Rental.Duration)
	assert.Equal(t, "/uploads", cfg.Storage.PublicPrefix)
	assert.True(t, cfg.Database.AutoMigrate)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PASETO_KEY", testKey)
	t.Setenv("APP_ENV", "prod")
	t.Setenv("RENTAL_DURATION", "3600")
	t.Setenv("TRUSTED_ORIGINS", " https://laocinema.com , ,https://admin.laocinema.com")
	t.Setenv("REDIS_DB", "not-a-number")
	t.Setenv("DB_AUTO_MIGRATE", "false")
	t.Setenv("SMTP_USER", "mailer@laocinema.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.False(t, cfg.Server.IsDevelopment())
	assert.Equal(t, time.Hour, cfg.Rental.Duration)
	assert.Equal(t, []string{"https://laocinema.com", "https://admin.laocinema.com"}, cfg.Server.TrustedOrigins)
	assert.Equal(t, 0, cfg.Redis.DB)
	assert.False(t, cfg.Database.AutoMigrate)
	assert.Equal(t, "mailer@laocinema.com", cfg.Email.From)
}

func TestLoad_InvalidKey(t *testing.T) {
	t.Setenv("PASETO_KEY", "short")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "32 bytes")
}

func TestDatabaseConfig_ConnectionStrings(t *testing.T) {
	c := DatabaseConfig{
		Host: "db", Port: "5432", User: "u", Password: "p", DBName: "lc", SSLMode: "disable",
		ChannelBinding: "require",
	}

	assert.Equal(t, "host=db port=5432 user=u password=p dbname=lc sslmode=disable channel_binding=require", c.ConnectionString())
	assert.Equal(t, "postgres://u:p@db:5432/lc?sslmode=disable", c.URL())
}
