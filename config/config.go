package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
)

type Config struct {
	AppEnv               string
	DataDir              string
	DBMaxIdleConns       int
	DBMaxOpenConns       int
	MaxFileSizeBytes     int64
	TrashRetentionDays   int
	HistoryRetentionDays int
	OCRMaxAttempts       int
	LogLevel             string
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Printf("%s not set, defaulting to %s", key, defaultValue)
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
		log.Printf("Invalid integer value for %s, defaulting to %d", key, defaultValue)
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
		log.Printf("Invalid integer value for %s, defaulting to %d", key, defaultValue)
	}
	return defaultValue
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./data"
	}
	return filepath.Join(home, ".inkwell")
}

func Load() Config {
	log.Println("Loading configuration...")

	return Config{
		AppEnv:               getEnv("APP_ENV", "development"),
		DataDir:              getEnv("INKWELL_DATA_DIR", defaultDataDir()),
		DBMaxIdleConns:       getEnvAsInt("DB_MAX_IDLE_CONNS", 4),
		DBMaxOpenConns:       getEnvAsInt("DB_MAX_OPEN_CONNS", 16),
		MaxFileSizeBytes:     getEnvAsInt64("MAX_FILE_SIZE_BYTES", 256<<20),
		TrashRetentionDays:   getEnvAsInt("TRASH_RETENTION_DAYS", 30),
		HistoryRetentionDays: getEnvAsInt("HISTORY_RETENTION_DAYS", 90),
		OCRMaxAttempts:       getEnvAsInt("OCR_MAX_ATTEMPTS", 3),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
	}
}
