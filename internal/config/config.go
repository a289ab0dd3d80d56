package config

import (
	"os"
	"strconv"
)

type Config struct {
	// gRPC listen address for the push/query transport.
	ListenAddr string
	// Admin HTTP port (Fiber).
	AdminPort string

	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Liveness
	LivenessTTLSeconds int
}

// Load reads the configuration from the environment. The gRPC listen address
// may also be given as the first positional argument, which wins over the
// environment.
func Load(args []string) *Config {
	ttl, _ := strconv.Atoi(getEnv("LIVENESS_TTL_SECONDS", "60"))

	cfg := &Config{
		ListenAddr:         getEnv("LISTEN_ADDR", "0.0.0.0:50051"),
		AdminPort:          getEnv("ADMIN_PORT", "8098"),
		DBHost:             getEnv("DB_HOST", "127.0.0.1"),
		DBPort:             getEnv("DB_PORT", "3306"),
		DBUser:             getEnv("DB_USER", "monitor"),
		DBPassword:         getEnv("DB_PASSWORD", ""),
		DBName:             getEnv("DB_NAME", "monitor_db"),
		LivenessTTLSeconds: ttl,
	}
	if len(args) > 0 && args[0] != "" {
		cfg.ListenAddr = args[0]
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
