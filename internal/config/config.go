package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"

	pkgcfg "github.com/Skotchmaster/news_guard/pkg/config"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	ServiceName string
	HTTPAddr    string
	LogLevel    string
	CORSOrigins []string

	DBDriver    string
	DatabaseURL string
	SQLitePath  string
	AutoMigrate bool

	JWTSecret      []byte
	AccessTokenTTL time.Duration
	BcryptCost     int

	ClassifierURL     string
	ClassifierTimeout time.Duration

	GeminiAPIKey        string
	GeminiModel         string
	GeminiTimeout       time.Duration
	GenerateTemperature float32
	VerdictTemperature  float32

	KafkaBrokers []string
	KafkaTopic   string

	ESURL      string
	ESUser     string
	ESPassword string
	ESIndex    string

	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	MaxExternalPerUser int
}

// Load reads .env when present and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("notice: .env not loaded: %v", err)
	}
	return FromEnv()
}

func FromEnv() (Config, error) {
	cfg := Config{
		ServiceName: pkgcfg.EnvDefault("SERVICE_NAME", "news_guard"),
		HTTPAddr:    pkgcfg.EnvDefault("HTTP_ADDR", ":8000"),
		LogLevel:    pkgcfg.EnvDefault("LOG_LEVEL", "info"),
		CORSOrigins: pkgcfg.CSV(pkgcfg.EnvDefault("CORS_ORIGINS", "http://localhost:5173,http://127.0.0.1:5173")),

		DBDriver:    pkgcfg.EnvDefault("DB_DRIVER", DriverPostgres),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		SQLitePath:  pkgcfg.EnvDefault("SQLITE_PATH", "news_guard.db"),
		AutoMigrate: pkgcfg.EnvDefault("AUTO_MIGRATE", "true") == "true",

		JWTSecret:      []byte(os.Getenv("JWT_SECRET")),
		AccessTokenTTL: pkgcfg.EnvDurationDefault("ACCESS_TOKEN_TTL", 30*time.Minute),
		BcryptCost:     pkgcfg.EnvIntDefault("BCRYPT_COST", bcrypt.DefaultCost),

		ClassifierURL:     os.Getenv("CLASSIFIER_URL"),
		ClassifierTimeout: pkgcfg.EnvDurationDefault("CLASSIFIER_TIMEOUT", 10*time.Second),

		GeminiAPIKey:        os.Getenv("GEMINI_API_KEY"),
		GeminiModel:         pkgcfg.EnvDefault("GEMINI_MODEL", "gemini-2.5-flash"),
		GeminiTimeout:       pkgcfg.EnvDurationDefault("GEMINI_TIMEOUT", 30*time.Second),
		GenerateTemperature: float32(pkgcfg.EnvFloatDefault("GEMINI_GENERATE_TEMPERATURE", 0.7)),
		VerdictTemperature:  float32(pkgcfg.EnvFloatDefault("GEMINI_VERDICT_TEMPERATURE", 0)),

		KafkaBrokers: pkgcfg.CSV(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   pkgcfg.EnvDefault("KAFKA_TOPIC", "news_events"),

		ESURL:      os.Getenv("ES_URL"),
		ESUser:     os.Getenv("ES_USER"),
		ESPassword: os.Getenv("ES_PASSWORD"),
		ESIndex:    pkgcfg.EnvDefault("ES_INDEX", "news_history"),

		RedisAddr:          os.Getenv("REDIS_ADDR"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		RedisDB:            pkgcfg.EnvIntDefault("REDIS_DB", 0),
		MaxExternalPerUser: pkgcfg.EnvIntDefault("MAX_EXTERNAL_PER_USER", 2),
	}

	if cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost {
		return Config{}, fmt.Errorf("BCRYPT_COST must be within [%d, %d]", bcrypt.MinCost, bcrypt.MaxCost)
	}
	switch cfg.DBDriver {
	case DriverPostgres:
		if err := pkgcfg.NonEmpty(cfg.DatabaseURL, "DATABASE_URL"); err != nil {
			return Config{}, err
		}
	case DriverSQLite:
	default:
		return Config{}, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
	return cfg, nil
}

// Validate checks what the HTTP server needs on top of the store settings.
func (c Config) Validate() error {
	if len(c.JWTSecret) == 0 {
		return fmt.Errorf("missing required env JWT_SECRET")
	}
	if err := pkgcfg.NonEmpty(c.ClassifierURL, "CLASSIFIER_URL"); err != nil {
		return err
	}
	return pkgcfg.NonEmpty(c.GeminiAPIKey, "GEMINI_API_KEY")
}
