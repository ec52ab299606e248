package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every runtime knob the service reads from the environment.
type Config struct {
	AppPort string

	// StoreBackend selects the column store adapter: leveldb, memory,
	// redis or mysql.
	StoreBackend string
	LevelDBPath  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	MySQLDSN string

	// NatsURL is optional. When empty the service runs without the
	// post.created event stream and relies on worker polling alone.
	NatsURL string

	JWTSecret string

	TimelineDepth int
	BackfillLimit int

	FanoutWorkers     int
	FanoutBatchSize   int
	FanoutInterval    time.Duration
	FanoutMaxAttempts int
}

// Load reads the optional .env file and the process environment into a
// Config. Missing optional keys fall back to defaults; JWT_SECRET has no
// safe default and is reported by the caller when empty.
func Load() (*Config, error) {
	// A missing .env file is fine, the system environment still applies.
	_ = godotenv.Load()

	cfg := &Config{
		AppPort:       getEnv("APP_PORT", "8080"),
		StoreBackend:  getEnv("STORE_BACKEND", "leveldb"),
		LevelDBPath:   getEnv("LEVELDB_PATH", "data/feedline"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		MySQLDSN:      os.Getenv("MYSQL_DSN"),
		NatsURL:       os.Getenv("NATS_URL"),
		JWTSecret:     os.Getenv("JWT_SECRET"),

		TimelineDepth: getEnvInt("TIMELINE_DEPTH", 1000),
		BackfillLimit: getEnvInt("BACKFILL_LIMIT", 10),

		FanoutWorkers:     getEnvInt("FANOUT_WORKERS", 8),
		FanoutBatchSize:   getEnvInt("FANOUT_BATCH_SIZE", 100),
		FanoutInterval:    getEnvDuration("FANOUT_INTERVAL", time.Second),
		FanoutMaxAttempts: getEnvInt("FANOUT_MAX_ATTEMPTS", 5),
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
