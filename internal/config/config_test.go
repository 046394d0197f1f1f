package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 10, cfg.Database.PoolSize)
	assert.Equal(t, 10*time.Second, cfg.Database.ConnectTimeout)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, int64(1<<20), cfg.HTTP.BodyLimit)
	assert.Equal(t, 720*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_FileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte(`
database:
  host: db.internal
  port: 6543
ledger:
  timezone: Asia/Shanghai
whitelist:
  chats: [-100, -200]
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600))
	t.Setenv("DATABASE_NAME", "from_env")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.Equal(t, "from_env", cfg.Database.Name)
	assert.Equal(t, "Asia/Shanghai", cfg.Ledger.Timezone)
	assert.Equal(t, []int64{-100, -200}, cfg.Whitelist.Chats)
	assert.Equal(t, "postgres://ledger:@db.internal:6543/from_env?sslmode=disable", cfg.Database.DSN())
}

func TestLedgerConfig_Location(t *testing.T) {
	loc, err := (&LedgerConfig{}).Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)

	_, err = (&LedgerConfig{Timezone: "Mars/Olympus"}).Location()
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	cfg := &Config{}
	assert.ErrorIs(t, cfg.Validate(true, false), ErrMissingBotToken)

	cfg.Bot.Token = "123:abc"
	assert.ErrorIs(t, cfg.Validate(true, false), ErrWeakJWTSecret)

	cfg.Auth.JWTSecret = "0123456789abcdef0123456789abcdef"
	assert.NoError(t, cfg.Validate(true, true))

	cfg.Ledger.Timezone = "Nowhere/Special"
	assert.Error(t, cfg.Validate(false, true))
}

func TestConfig_IsChatAllowed(t *testing.T) {
	open := &Config{}
	assert.True(t, open.IsChatAllowed(-42))

	closed := &Config{Whitelist: WhitelistConfig{Chats: []int64{-1, -2}}}
	assert.True(t, closed.IsChatAllowed(-2))
	assert.False(t, closed.IsChatAllowed(-3))
}
