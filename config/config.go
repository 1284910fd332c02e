package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// defaultWatchlist is the built-in set of tracked listing URLs, used when
// WATCHLIST is not set. Each URL is the listing's canonical identifier.
var defaultWatchlist = []string{
	"https://www.otodom.pl/pl/oferta/mieszkanie-3-pokojowe-mokotow-ID4mZ2a",
	"https://www.otodom.pl/pl/oferta/przytulne-2-pokoje-wola-metro-ID4n81x",
	"https://www.otodom.pl/pl/oferta/kawalerka-w-centrum-po-remoncie-ID4kQ3f",
	"https://www.otodom.pl/pl/oferta/apartament-4-pokoje-zoliborz-ID4mX9c",
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Watchlist []string

	FetchMode     string // "http" or "browser"
	HTTPTimeoutMs int
	UserAgent     string
	ChromeBin     string

	MaxConcurrency int
	RateLimitMs    int
	MaxRetries     int

	HistoryBackend string // "csv" or "postgres"
	HistoryCSVPath string
	HistoryLimit   int

	FallbackPolicy string // "replace", "blend" or "off"
	QueryAreaM2    float64

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		Watchlist: getEnvList("WATCHLIST", defaultWatchlist),

		FetchMode:     getEnv("FETCH_MODE", "http"),
		HTTPTimeoutMs: getEnvInt("HTTP_TIMEOUT_MS", 4000),
		UserAgent: getEnv("USER_AGENT",
			"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 "+
				"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
		ChromeBin: getEnv("CHROME_BIN", ""),

		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 3),
		RateLimitMs:    getEnvInt("RATE_LIMIT_MS", 1000),
		MaxRetries:     getEnvInt("MAX_RETRIES", 3),

		HistoryBackend: getEnv("HISTORY_BACKEND", "csv"),
		HistoryCSVPath: getEnv("HISTORY_CSV_PATH", "./output/price_history.csv"),
		HistoryLimit:   getEnvInt("HISTORY_LIMIT", 5),

		FallbackPolicy: getEnv("FALLBACK_POLICY", "replace"),
		QueryAreaM2:    getEnvFloat("QUERY_AREA_M2", 50),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "watcher"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "watcher123"),
		PostgresDB:       getEnv("POSTGRES_DB", "otodom_watch"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
	}
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err == nil {
			return f
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(val, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
