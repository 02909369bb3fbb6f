package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/arena?sslmode=disable")
	t.Setenv("JWT_SECRET_KEY", "secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, 8080, cfg.ServerPort)
	require.Equal(t, []string{"http://localhost:3000"}, cfg.AllowedOrigins)
	require.Equal(t, "http://localhost:3000", cfg.WebAppBaseURL)
	require.Equal(t, "http://localhost:8080", cfg.PublicBaseURL)
	require.False(t, cfg.EnableTelegram)
	require.False(t, cfg.R2Configured())
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET_KEY", "secret")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadRejectsBadPort(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SERVER_PORT", "not-a-port")

	_, err := Load()
	require.Error(t, err)

	t.Setenv("SERVER_PORT", "70000")
	_, err = Load()
	require.Error(t, err)
}

func TestLoadParsesOrigins(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ALLOWED_ORIGINS", "https://evo-faceit.ru, https://www.evo-faceit.ru")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, []string{"https://evo-faceit.ru", "https://www.evo-faceit.ru"}, cfg.AllowedOrigins)
}

func TestLoadEnablesTelegram(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("TELEGRAM_CHAT_ID", "-100500")

	cfg, err := Load()
	require.NoError(t, err)
	require.True(t, cfg.EnableTelegram)
}
