package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServiceName string
	ServerPort  int
	LogLevel    string

	DBDriver    string
	DatabaseURL string

	TokenSecret   []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration

	BcryptCost int

	CookieSecure   bool
	CookieHTTPOnly bool

	CORSOrigins   []string
	AuthRateLimit float64
	AuthRateBurst int

	KafkaBrokers []string

	ESURL      string
	ESUser     string
	ESPassword string
	ESIndex    string
}

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var ErrMissingEnv = errors.New("missing required env")

// Load reads .env when present and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("notice: cannot read .env: %v", err)
	}
	return FromEnv()
}

func FromEnv() (Config, error) {
	cfg := Config{
		ServiceName: EnvDefault("SERVICE_NAME", "car_catalog"),
		ServerPort:  EnvIntDefault("SERVER_PORT", 8080),
		LogLevel:    EnvDefault("LOG_LEVEL", "info"),

		DBDriver:    EnvDefault("DB_DRIVER", DriverSQLite),
		DatabaseURL: EnvDefault("DATABASE_URL", "carcatalog.db"),

		TokenSecret:   []byte(os.Getenv("TOKEN_SECRET")),
		RefreshSecret: []byte(os.Getenv("REFRESH_TOKEN_SECRET")),

		BcryptCost: EnvIntDefault("BCRYPT_COST", 10),

		CookieSecure:   EnvBoolDefault("COOKIE_SECURE", false),
		CookieHTTPOnly: EnvBoolDefault("COOKIE_HTTP_ONLY", false),

		CORSOrigins:   CSV(EnvDefault("CORS_ORIGINS", "http://localhost:5173")),
		AuthRateLimit: EnvFloatDefault("AUTH_RATE_LIMIT", 5),
		AuthRateBurst: EnvIntDefault("AUTH_RATE_BURST", 10),

		KafkaBrokers: CSV(os.Getenv("KAFKA_BROKERS")),

		ESURL:      os.Getenv("ES_URL"),
		ESUser:     os.Getenv("ES_USER"),
		ESPassword: os.Getenv("ES_PASSWORD"),
		ESIndex:    EnvDefault("ES_INDEX", "cars"),
	}

	if len(cfg.TokenSecret) == 0 {
		return Config{}, fmt.Errorf("%w TOKEN_SECRET", ErrMissingEnv)
	}
	if len(cfg.RefreshSecret) == 0 {
		cfg.RefreshSecret = cfg.TokenSecret
	}

	var err error
	if cfg.AccessTTL, err = requiredDuration("ACCESS_JWT_EXPIRATION"); err != nil {
		return Config{}, err
	}
	if cfg.RefreshTTL, err = requiredDuration("REFRESH_JWT_EXPIRATION"); err != nil {
		return Config{}, err
	}
	if cfg.RefreshTTL < cfg.AccessTTL {
		return Config{}, fmt.Errorf("REFRESH_JWT_EXPIRATION (%s) is shorter than ACCESS_JWT_EXPIRATION (%s)", cfg.RefreshTTL, cfg.AccessTTL)
	}

	switch cfg.DBDriver {
	case DriverSQLite, DriverPostgres:
	default:
		return Config{}, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}

	return cfg, nil
}

func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.ServerPort)
}

func (c Config) String() string {
	return fmt.Sprintf(
		"Config{service=%s port=%d db=%s access_ttl=%s refresh_ttl=%s token_secret=%s es=%s kafka=%v}",
		c.ServiceName, c.ServerPort, c.DBDriver, c.AccessTTL, c.RefreshTTL, mask(c.TokenSecret), c.ESURL, c.KafkaBrokers,
	)
}

func requiredDuration(key string) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return 0, fmt.Errorf("%w %s", ErrMissingEnv, key)
	}
	d, err := ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}

func mask(secret []byte) string {
	if len(secret) == 0 {
		return ""
	}
	return "****"
}
