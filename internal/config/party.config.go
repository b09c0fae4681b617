package config

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	HTTPAddr string

	RedisAddr string
	RedisPass string

	KafkaBrokers  []string
	ConsumerGroup string

	JWTSecret string

	FCMCredentialsFile string

	PartyMaxAge   time.Duration
	PurgeInterval time.Duration
}

func Load() AppConfig {
	if err := godotenv.Load(); err != nil {
		log.Println("Party: No .env file found, relying on system env vars")
	}
	return AppConfig{
		HTTPAddr:           getEnv("HTTP_ADDR", ":8021"),
		RedisAddr:          getEnv("REDIS_ADDR", "redis:6379"),
		RedisPass:          getEnv("REDIS_PASS", ""),
		KafkaBrokers:       strings.Split(getEnv("KAFKA_BROKERS", "kafka:9092"), ","),
		ConsumerGroup:      getEnv("KAFKA_CONSUMER_GROUP", "party-dispatch"),
		JWTSecret:          getEnv("JWT_SECRET", ""),
		FCMCredentialsFile: getEnv("FCM_CREDENTIALS_FILE", "/app/secrets/fcm-credentials.json"),
		PartyMaxAge:        getEnvAsDuration("PARTY_MAX_AGE", 48*time.Hour),
		PurgeInterval:      getEnvAsDuration("PARTY_PURGE_INTERVAL", time.Hour),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
