package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	Port               string
	LogLevel           string
	DatabasePath       string // sqlite database holding the NBP rate cache
	CountryDataPath    string
	HistoricalDataPath string // optional NBP Table A JSON seed file

	NBPAPIBaseURL      string
	NBPFetchEnabled    bool
	RateLookbackDays   int
	RateResolveTimeout time.Duration

	MaxRequestBytes int64
	AllowedOrigins  []string
}

var Cfg *AppConfig

func LoadConfig() {
	errEnv := godotenv.Load()
	if errEnv != nil {
		log.Println("Info: No .env file found or error loading .env file. Relying on OS environment variables and defaults. Error (if any):", errEnv)
	} else {
		log.Println(".env file loaded successfully.")
	}

	log.Println("Loading application configuration...")

	lookbackDays := getEnvInt("RATE_LOOKBACK_DAYS", 10)
	if lookbackDays < 1 {
		log.Printf("WARNING: RATE_LOOKBACK_DAYS must be at least 1, got %d. Using default 10.", lookbackDays)
		lookbackDays = 10
	}

	resolveTimeoutStr := getEnv("RATE_RESOLVE_TIMEOUT", "30s")
	resolveTimeout, err := time.ParseDuration(resolveTimeoutStr)
	if err != nil {
		log.Printf("WARNING: Invalid RATE_RESOLVE_TIMEOUT format '%s'. Using default 30s. Error: %v", resolveTimeoutStr, err)
		resolveTimeout = 30 * time.Second
	}

	Cfg = &AppConfig{
		Port:               getEnv("PORT", "8080"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		DatabasePath:       getEnv("DATABASE_PATH", "./nbp_cache.db"),
		CountryDataPath:    getEnv("COUNTRY_DATA_PATH", "./data/countries.json"),
		HistoricalDataPath: getEnv("HISTORICAL_DATA_PATH", ""),
		NBPAPIBaseURL:      getEnv("NBP_API_BASE_URL", "https://api.nbp.pl/api"),
		NBPFetchEnabled:    getEnvBool("NBP_FETCH_ENABLED", true),
		RateLookbackDays:   lookbackDays,
		RateResolveTimeout: resolveTimeout,
		MaxRequestBytes:    getEnvInt64("MAX_REQUEST_BYTES", 10<<20),
		AllowedOrigins:     []string{getEnv("FRONTEND_ORIGIN", "http://localhost:3000")},
	}

	log.Printf("Configuration loaded. Port: %s, LogLevel: %s, DatabasePath: %s", Cfg.Port, Cfg.LogLevel, Cfg.DatabasePath)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
		log.Printf("WARNING: Invalid integer for %s: '%s'. Using default %d.", key, value, fallback)
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
		log.Printf("WARNING: Invalid integer for %s: '%s'. Using default %d.", key, value, fallback)
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
		log.Printf("WARNING: Invalid boolean for %s: '%s'. Using default %t.", key, value, fallback)
	}
	return fallback
}
