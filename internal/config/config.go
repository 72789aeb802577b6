// Package config loads dangdoc settings from the environment, after merging
// any .env files found on disk.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	StorageSQLite = "sqlite"
	StorageMemory = "memory"
	StorageRedis  = "redis"
)

// Config holds all client configuration.
type Config struct {
	APIBaseURL  string        `env:"API_BASE_URL" envDefault:"http://localhost:8000"`
	HTTPTimeout time.Duration `env:"HTTP_TIMEOUT" envDefault:"15s"`

	// Social login
	KakaoLoginURL    string `env:"KAKAO_LOGIN_URL"`
	KakaoRedirectURI string `env:"KAKAO_REDIRECT_URI" envDefault:"http://127.0.0.1:8765/auth/kakao/callback"`
	KakaoClientID    string `env:"KAKAO_CLIENT_ID"`
	KakaoExchangeURL string `env:"KAKAO_EXCHANGE_URL"`

	// Identity provider
	FirebaseAPIKey   string `env:"FIREBASE_API_KEY"`
	FirebaseAuthURL  string `env:"FIREBASE_AUTH_URL" envDefault:"https://identitytoolkit.googleapis.com"`
	FirebaseTokenURL string `env:"FIREBASE_TOKEN_URL" envDefault:"https://securetoken.googleapis.com/v1/token"`

	// Storage
	DBPath   string `env:"DB_PATH"`
	Storage  string `env:"STORAGE" envDefault:"sqlite"`
	RedisURL string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`

	// Nutrition
	LookupConcurrency  int           `env:"LOOKUP_CONCURRENCY" envDefault:"4"`
	NutritionCacheTTL  time.Duration `env:"NUTRITION_CACHE_TTL" envDefault:"168h"`
	NutritionFallback  string        `env:"NUTRITION_FALLBACK"`
	OpenFoodFactsURL   string        `env:"OPENFOODFACTS_URL"`
	TokenFreshnessSkew time.Duration `env:"TOKEN_FRESHNESS_SKEW" envDefault:"2m"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"warn"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
}

// Prefix is applied to every variable name: API_BASE_URL is read from
// DANGDOC_API_BASE_URL.
const Prefix = "DANGDOC_"

// Load merges the given dotenv files into the process environment (missing
// files are ignored, existing variables win) and parses Config.
func Load(envFiles ...string) (Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load env file %s: %w", f, err)
		}
	}
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: Prefix}); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ExchangeURL is where authorization codes are traded for a login payload:
// KAKAO_EXCHANGE_URL, else the backend's Kakao callback under APIBaseURL.
func (c Config) ExchangeURL() string {
	if u := strings.TrimSpace(c.KakaoExchangeURL); u != "" {
		return u
	}
	return strings.TrimRight(strings.TrimSpace(c.APIBaseURL), "/") + kakaoCallbackPath
}

const kakaoCallbackPath = "/auth/kakao/callback"

// Validate rejects settings that would only fail later at first use.
func (c Config) Validate() error {
	switch c.Storage {
	case StorageSQLite, StorageMemory, StorageRedis:
	default:
		return fmt.Errorf("unsupported %sSTORAGE %q (use sqlite, memory or redis)", Prefix, c.Storage)
	}
	if c.LookupConcurrency <= 0 {
		return fmt.Errorf("%sLOOKUP_CONCURRENCY must be > 0", Prefix)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("%sHTTP_TIMEOUT must be > 0", Prefix)
	}
	switch c.NutritionFallback {
	case "", "openfoodfacts":
	default:
		return fmt.Errorf("unsupported %sNUTRITION_FALLBACK %q", Prefix, c.NutritionFallback)
	}
	return nil
}
