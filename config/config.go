package config

import (
	"os"
)

// Config carries everything main needs to wire the service. Values come
// from the environment, optionally seeded from a .env file.
type Config struct {
	Port          string
	MongoURI      string
	DatabaseName  string
	JWTSecret     string
	MigrationCron string
	LogLevel      string
}

func Load() Config {
	return Config{
		Port:          getenv("PORT", "8080"),
		MongoURI:      os.Getenv("MONGODB_URI"),
		DatabaseName:  getenv("DATABASE_NAME", "stock-portfolio-tracker"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		MigrationCron: getenv("MIGRATION_CRON", "0 3 * * *"),
		LogLevel:      getenv("LOG_LEVEL", "info"),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
