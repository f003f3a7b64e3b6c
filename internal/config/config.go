package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var AppEnv Config

type Config struct {
	MongoURI       string
	DBName         string
	JWTSecret      string
	AccessTokenTTL time.Duration
	Port           string
	RedisURL       string
	NotifyQueue    string
	OversellPolicy string
	TxMaxAttempts  int
}

func Load() {
	if err := godotenv.Load(); err != nil {
		log.Println(".env not loaded:", err)
	}
	AppEnv = FromEnv()
}

// FromEnv reads the configuration from the process environment.
func FromEnv() Config {
	return Config{
		MongoURI:       getEnvOrDefault("MONGO_URI", "mongodb://localhost:27017/?replicaSet=rs0"),
		DBName:         getEnvOrDefault("DB_NAME", "coopstore"),
		JWTSecret:      getEnvOrDefault("JWT_SECRET", ""),
		AccessTokenTTL: getDurationEnv("ACCESS_TOKEN_TTL", 60, time.Minute),
		Port:           getEnvOrDefault("PORT", "8080"),
		RedisURL:       getEnvOrDefault("REDIS_URL", ""),
		NotifyQueue:    getEnvOrDefault("NOTIFY_QUEUE", "coopstore:email"),
		OversellPolicy: getEnvOrDefault("OVERSELL_POLICY", "clamp"),
		TxMaxAttempts:  getIntEnv("TX_MAX_ATTEMPTS", 3),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue int, unit time.Duration) time.Duration {
	return time.Duration(getIntEnv(key, defaultValue)) * unit
}
