// config.go
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	AuthModeRemote = "remote"
	AuthModeJWT    = "jwt"
)

type Config struct {
	Port string

	MongoURI          string
	MongoDBName       string
	MongoTransactions bool

	AuthMode    string
	AuthURL     string
	JWTSecret   string
	JWTAudience string

	StripeSecretKey string
	StripeAPIURL    string
	PaymentCurrency string

	RabbitURL string

	CORSOrigins    []string
	LogLevel       string
	LogJSON        bool
	RequestTimeout time.Duration
}

// LoadDotEnv copies the given env files (default .env) into the process
// environment. Variables already set win.
func LoadDotEnv(paths ...string) error {
	return godotenv.Load(paths...)
}

// Load reads the process environment; call LoadDotEnv first to pick up .env.
func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "5000"),

		MongoURI:          getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName:       getEnv("MONGO_DB_NAME", "zapshiftDB"),
		MongoTransactions: getBoolEnv("MONGO_TRANSACTIONS", false),

		AuthMode:    strings.ToLower(getEnv("AUTH_MODE", AuthModeRemote)),
		AuthURL:     getEnv("AUTH_URL", "http://localhost:3000"),
		JWTSecret:   getEnv("JWT_SECRET", ""),
		JWTAudience: getEnv("JWT_AUDIENCE", ""),

		StripeSecretKey: getEnv("STRIPE_SECRET_KEY", ""),
		StripeAPIURL:    getEnv("STRIPE_API_URL", "https://api.stripe.com"),
		PaymentCurrency: getEnv("PAYMENT_CURRENCY", "usd"),

		RabbitURL: getEnv("RABBIT_URL", ""),

		CORSOrigins:    getListEnv("CORS_ORIGINS", []string{"*"}),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogJSON:        getBoolEnv("LOG_JSON", false),
		RequestTimeout: getDurationEnv("REQUEST_TIMEOUT", 5, time.Second),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func getBoolEnv(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	parsed, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return parsed
}

func getDurationEnv(key string, fallback int, unit time.Duration) time.Duration {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return time.Duration(parsed) * unit
		}
	}
	return time.Duration(fallback) * unit
}

func getListEnv(key string, fallback []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
