package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Checkout     CheckoutConfig
	Square       SquareConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if _, err := cfg.Checkout.Rate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SELLARO_APP_ENV" required:"true"`
	Port         string `envconfig:"SELLARO_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SELLARO_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SELLARO_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"SELLARO_DB_DSN"`
	Driver string `envconfig:"SELLARO_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SELLARO_DB_HOST"`
	LegacyPort     int    `envconfig:"SELLARO_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SELLARO_DB_USER"`
	LegacyPassword string `envconfig:"SELLARO_DB_PASSWORD"`
	LegacyName     string `envconfig:"SELLARO_DB_NAME"`
	LegacySSLMode  string `envconfig:"SELLARO_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SELLARO_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SELLARO_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SELLARO_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SELLARO_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SELLARO_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SELLARO_REDIS_ADDR"`
	Password     string        `envconfig:"SELLARO_REDIS_PASSWORD"`
	DB           int           `envconfig:"SELLARO_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SELLARO_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SELLARO_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SELLARO_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SELLARO_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SELLARO_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// CheckoutConfig carries the explicit policy inputs the orchestrator needs.
// Commission and lock timing are configuration, never ambient process state,
// so tests can pin them deterministically.
type CheckoutConfig struct {
	CommissionRate string        `envconfig:"SELLARO_CHECKOUT_COMMISSION_RATE" default:"0.10"`
	LockTTL        time.Duration `envconfig:"SELLARO_CHECKOUT_LOCK_TTL" default:"5s"`
}

// Rate parses the configured commission rate into a decimal fraction.
func (c CheckoutConfig) Rate() (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(strings.TrimSpace(c.CommissionRate))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid commission rate %q: %w", c.CommissionRate, err)
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.Zero, fmt.Errorf("commission rate %q out of range [0,1]", c.CommissionRate)
	}
	return rate, nil
}

type SquareConfig struct {
	AccessToken string `envconfig:"SELLARO_SQUARE_ACCESS_TOKEN"`
	Env         string `envconfig:"SELLARO_SQUARE_ENV" default:"sandbox"`
	LocationID  string `envconfig:"SELLARO_SQUARE_LOCATION_ID"`
}

// Environment returns the normalized Square environment (sandbox/production).
func (s SquareConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "sandbox"
	}
	return env
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"SELLARO_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"SELLARO_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
