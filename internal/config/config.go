package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config captures all runtime configuration derived from environment variables.
type Config struct {
	Port               string
	JWTSecret          string
	DBURL              string
	RedisAddr          string
	RedisPassword      string
	TMDBBaseURL        string
	TMDBAPIKey         string
	TMDBTimeoutSecs    int
	TMDBRequestsPerSec float64
	ReadTimeoutSecs    int
	WriteTimeoutSecs   int
	IdleTimeoutSecs    int
	DBMaxConns         int
	DBMinConns         int
	DBMaxIdleSecs      int
	DBMaxLifeSecs      int
	DBConnTimeoutSecs  int

	// Per-endpoint-class cache TTLs, in seconds.
	CachePopularTTLSecs  int
	CacheTopRatedTTLSecs int
	CacheTrendingTTLSecs int
	CacheDetailTTLSecs   int
	CacheSearchTTLSecs   int
}

// Load reads configuration from the environment (and an optional .env
// file), applying defaults and validation.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Port:               getEnv("PORT", "8080"),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		DBURL:              os.Getenv("DB_URL"),
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		TMDBBaseURL:        getEnv("TMDB_BASE_URL", "https://api.themoviedb.org/3"),
		TMDBAPIKey:         os.Getenv("TMDB_API_KEY"),
		TMDBTimeoutSecs:    getEnvInt("TMDB_TIMEOUT_SECS", 10),
		TMDBRequestsPerSec: getEnvFloat("TMDB_REQUESTS_PER_SEC", 4),
		ReadTimeoutSecs:    getEnvInt("SERVER_READ_TIMEOUT", 15),
		WriteTimeoutSecs:   getEnvInt("SERVER_WRITE_TIMEOUT", 15),
		IdleTimeoutSecs:    getEnvInt("SERVER_IDLE_TIMEOUT", 60),
		DBMaxConns:         getEnvInt("DB_MAX_CONNS", 20),
		DBMinConns:         getEnvInt("DB_MIN_CONNS", 2),
		DBMaxIdleSecs:      getEnvInt("DB_MAX_CONN_IDLE_SECS", 300),
		DBMaxLifeSecs:      getEnvInt("DB_MAX_CONN_LIFETIME_SECS", 3600),
		DBConnTimeoutSecs:  getEnvInt("DB_CONN_TIMEOUT_SECS", 10),

		CachePopularTTLSecs:  getEnvInt("CACHE_POPULAR_TTL_SECS", 15*60),
		CacheTopRatedTTLSecs: getEnvInt("CACHE_TOP_RATED_TTL_SECS", 60*60),
		CacheTrendingTTLSecs: getEnvInt("CACHE_TRENDING_TTL_SECS", 5*60),
		CacheDetailTTLSecs:   getEnvInt("CACHE_DETAIL_TTL_SECS", 30*60),
		CacheSearchTTLSecs:   getEnvInt("CACHE_SEARCH_TTL_SECS", 10*60),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.DBURL == "" {
		return Config{}, fmt.Errorf("DB_URL is required")
	}
	if cfg.TMDBAPIKey == "" {
		return Config{}, fmt.Errorf("TMDB_API_KEY is required")
	}
	if cfg.TMDBTimeoutSecs <= 0 {
		return Config{}, fmt.Errorf("TMDB_TIMEOUT_SECS must be positive")
	}
	if cfg.TMDBRequestsPerSec <= 0 {
		return Config{}, fmt.Errorf("TMDB_REQUESTS_PER_SEC must be positive")
	}
	if cfg.DBMaxConns <= 0 {
		return Config{}, fmt.Errorf("DB_MAX_CONNS must be positive")
	}
	if cfg.DBMinConns < 0 {
		return Config{}, fmt.Errorf("DB_MIN_CONNS must be non-negative")
	}
	if cfg.DBMinConns > cfg.DBMaxConns {
		return Config{}, fmt.Errorf("DB_MIN_CONNS cannot exceed DB_MAX_CONNS")
	}
	for name, ttl := range map[string]int{
		"CACHE_POPULAR_TTL_SECS":   cfg.CachePopularTTLSecs,
		"CACHE_TOP_RATED_TTL_SECS": cfg.CacheTopRatedTTLSecs,
		"CACHE_TRENDING_TTL_SECS":  cfg.CacheTrendingTTLSecs,
		"CACHE_DETAIL_TTL_SECS":    cfg.CacheDetailTTLSecs,
		"CACHE_SEARCH_TTL_SECS":    cfg.CacheSearchTTLSecs,
	} {
		if ttl <= 0 {
			return Config{}, fmt.Errorf("%s must be positive", name)
		}
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return fallback
}
