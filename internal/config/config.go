package config

import (
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	DatabaseDriver    string
	DatabaseURL       string
	DatabaseMaxConns  int
	HTTPAddr          string
	TelegramToken     string
	TelegramDebug     bool
	TelegramChats     []int64
	ReferenceDataPath string
	LogLevel          string
	LogFormat         string
}

var instance *Config
var once sync.Once

func GetConfig() *Config {
	once.Do(func() {
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			logrus.Warnf("error loading env file: %s", err.Error())
		}
		instance = Load()
	})

	return instance
}

// Load reads the configuration from the process environment.
func Load() *Config {
	cfg := &Config{
		DatabaseDriver:    getEnv("DATABASE_DRIVER", "sqlite"),
		DatabaseURL:       getEnv("DATABASE_URL", "movements.db"),
		DatabaseMaxConns:  int(getEnvAsInt("DATABASE_MAX_CONNS", 10)),
		HTTPAddr:          getEnv("HTTP_ADDR", ":8080"),
		TelegramToken:     getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramDebug:     getEnvAsBool("TELEGRAM_DEBUG", false),
		TelegramChats:     getEnvAsInt64Slice("TELEGRAM_ALLOWED_CHATS"),
		ReferenceDataPath: getEnv("REFERENCE_DATA_PATH", ""),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "text"),
	}

	if cfg.TelegramToken == "" {
		logrus.Info("TELEGRAM_BOT_TOKEN not set, staff bot disabled")
	}

	return cfg
}

// NewLogger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		logger.Warnf("unknown log level %q, using info", c.LogLevel)
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if c.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}
	return logger
}

func getEnv(key string, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}

	return defaultVal
}

func getEnvAsBool(name string, defaultVal bool) bool {
	valStr := getEnv(name, "")
	if val, err := strconv.ParseBool(valStr); err == nil {
		return val
	}

	return defaultVal
}

func getEnvAsInt(name string, defaultVal int64) int64 {
	valStr := getEnv(name, "")
	if val, err := strconv.Atoi(valStr); err == nil {
		return int64(val)
	}

	return defaultVal
}

// getEnvAsInt64Slice parses a comma separated list, skipping bad entries.
func getEnvAsInt64Slice(name string) []int64 {
	var out []int64
	for _, part := range strings.Split(getEnv(name, ""), ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		val, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			logrus.Warnf("ignoring bad %s entry %q", name, part)
			continue
		}
		out = append(out, val)
	}
	return out
}
