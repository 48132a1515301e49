package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"eld_trip_planner/internal/gateway"
)

// Settings is everything the server and batch planner read from the environment.
type Settings struct {
	Port string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	DBTimezone string

	RoutingProvider string
	MapboxToken     string
	GoogleKey       string
	RedisAddr       string
	RouteCacheTTL   time.Duration
	RouteCacheSize  int

	JWTSecret   string
	CORSOrigins []string
	LogFile     string
	LogLevel    string
}

// Load reads .env (if present) and then the process environment.
func Load() Settings {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found, relying on env vars")
	}

	return Settings{
		Port: getEnv("PORT", "8080"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "password"),
		DBName:     getEnv("DB_NAME", "eld_trips"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),
		DBTimezone: getEnv("DB_TIMEZONE", "UTC"),

		RoutingProvider: getEnv("ROUTING_PROVIDER", "mapbox"),
		MapboxToken:     getEnv("MAPBOX_ACCESS_TOKEN", ""),
		GoogleKey:       getEnv("GOOGLE_MAPS_API_KEY", ""),
		RedisAddr:       getEnv("REDIS_ADDR", ""),
		RouteCacheTTL:   getEnvDuration("ROUTE_CACHE_TTL", 6*time.Hour),
		RouteCacheSize:  getEnvInt("ROUTE_CACHE_SIZE", 256),

		JWTSecret:   getEnv("JWT_SECRET", "supersecret"),
		CORSOrigins: getEnvList("CORS_ALLOWED_ORIGINS"),
		LogFile:     getEnv("LOG_FILE", "./logs/app.log"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
	}
}

// GatewayOptions maps the routing settings onto the gateway factory.
func (s Settings) GatewayOptions() gateway.ProviderOptions {
	return gateway.ProviderOptions{
		Provider:    s.RoutingProvider,
		MapboxToken: s.MapboxToken,
		GoogleKey:   s.GoogleKey,
		RedisAddr:   s.RedisAddr,
		CacheTTL:    s.RouteCacheTTL,
		CacheSize:   s.RouteCacheSize,
	}
}

// getEnv reads an environment variable or returns the provided default
func getEnv(key, defaultValue string) string {
	if v, exists := os.LookupEnv(key); exists {
		return v
	}
	return defaultValue
}

// getEnvList splits a comma separated variable, dropping blank entries.
func getEnvList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getEnvInt(key string, defaultValue int) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		logrus.WithField("key", key).Warnf("not an integer: %q, using %d", v, defaultValue)
		return defaultValue
	}
	return n
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok {
		return defaultValue
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		logrus.WithField("key", key).Warnf("not a duration: %q, using %s", v, defaultValue)
		return defaultValue
	}
	return d
}
