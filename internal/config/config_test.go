package config

import (
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"DATABASE_DRIVER", "DATABASE_URL", "DATABASE_MAX_CONNS", "HTTP_ADDR",
		"TELEGRAM_BOT_TOKEN", "TELEGRAM_DEBUG", "TELEGRAM_ALLOWED_CHATS", "REFERENCE_DATA_PATH", "LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	cfg := Load()
	assert.Equal(t, "sqlite", cfg.DatabaseDriver)
	assert.Equal(t, "movements.db", cfg.DatabaseURL)
	assert.Equal(t, 10, cfg.DatabaseMaxConns)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Empty(t, cfg.TelegramToken)
	assert.False(t, cfg.TelegramDebug)
	assert.Empty(t, cfg.TelegramChats)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/movements")
	t.Setenv("DATABASE_MAX_CONNS", "25")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("TELEGRAM_DEBUG", "true")
	t.Setenv("TELEGRAM_ALLOWED_CHATS", "100, -200")
	t.Setenv("REFERENCE_DATA_PATH", "config/reference_data.yaml")
	t.Setenv("LOG_LEVEL", "debug")

	cfg := Load()
	assert.Equal(t, "postgres", cfg.DatabaseDriver)
	assert.Equal(t, "postgres://localhost/movements", cfg.DatabaseURL)
	assert.Equal(t, 25, cfg.DatabaseMaxConns)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.True(t, cfg.TelegramDebug)
	assert.Equal(t, []int64{100, -200}, cfg.TelegramChats)
	assert.Equal(t, "config/reference_data.yaml", cfg.ReferenceDataPath)
}

func TestLoadIgnoresBadNumbers(t *testing.T) {
	t.Setenv("DATABASE_MAX_CONNS", "many")
	t.Setenv("TELEGRAM_DEBUG", "sometimes")
	t.Setenv("TELEGRAM_ALLOWED_CHATS", "100,staff,200")

	cfg := Load()
	assert.Equal(t, 10, cfg.DatabaseMaxConns)
	assert.False(t, cfg.TelegramDebug)
	assert.Equal(t, []int64{100, 200}, cfg.TelegramChats)
}

func TestNewLogger(t *testing.T) {
	logger := (&Config{LogLevel: "debug", LogFormat: "json"}).NewLogger()
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)

	logger = (&Config{LogLevel: "loud"}).NewLogger()
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, logger.Formatter)
}
