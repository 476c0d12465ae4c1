package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	TelegramToken string
	PostgresDSN   string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Directory holding the card name index and the emoji database.
	DataDir string

	LogLevel string
}

// Load reads the .env file if present and builds the config from the
// environment. Missing mandatory values are reported by the caller.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg(".env file not found, using system variables")
	}

	redisDB := 0
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			redisDB = n
		}
	}

	dataDir := os.Getenv("DATA_DIR")
	if dataDir == "" {
		dataDir = "data"
	}

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "127.0.0.1:6379"
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	return Config{
		TelegramToken: os.Getenv("TELEGRAM_TOKEN"),
		PostgresDSN:   os.Getenv("POSTGRES_DSN"),
		RedisAddr:     redisAddr,
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       redisDB,
		DataDir:       dataDir,
		LogLevel:      logLevel,
	}
}
