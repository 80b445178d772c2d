package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	str "walletverify/pkg/string"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"

	EnvProduction = "production"
)

var contractAddressPattern = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)

// Config is built once in main and passed to constructors. Nothing below
// cmd/ reads the environment.
type Config struct {
	Environment string
	LogLevel    string

	Server   Server
	Admin    Admin
	Oracle   Oracle
	Store    Store
	Database Database
	Redis    Redis
	Kafka    Kafka
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// Admin holds the static operator credential and token settings.
type Admin struct {
	Username      string
	Password      string
	PasswordHash  string
	StaticToken   string
	JWTSigningKey string
	TokenTTL      time.Duration
	Issuer        string
	Audience      string
}

// Oracle configures the ledger read path.
type Oracle struct {
	RPCURL          string
	ContractAddress string
	Timeout         time.Duration
	MaxAttempts     int
	Backoff         time.Duration
	CacheTTL        time.Duration
}

type Store struct {
	Driver     string
	SQLitePath string
}

type Database struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type Redis struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type Kafka struct {
	Brokers []string
	Topic   string
}

// Enabled reports whether an event broker is configured.
func (k Kafka) Enabled() bool { return len(k.Brokers) > 0 }

// DevSigningKey is used when JWT_SIGNING_KEY is unset outside production.
const DevSigningKey = "dev-secret-key-change-in-production"

// FromEnv loads .env (if present) and builds the Config. Malformed values are
// errors; missing values take defaults.
func FromEnv() (Config, error) {
	_ = godotenv.Load() //nolint:errcheck // .env is optional

	p := &parser{}
	cfg := Config{
		Environment: getenv("ENVIRONMENT", "development"),
		LogLevel:    getenv("LOG_LEVEL", "info"),
		Server: Server{
			Addr:            getenv("WALLETVERIFY_ADDR", ":8080"),
			ReadTimeout:     p.duration("HTTP_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    p.duration("HTTP_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: p.duration("SHUTDOWN_TIMEOUT", 15*time.Second),
		},
		Admin: Admin{
			Username:      os.Getenv("ADMIN_USERNAME"),
			Password:      os.Getenv("ADMIN_PASSWORD"),
			PasswordHash:  os.Getenv("ADMIN_PASSWORD_HASH"),
			StaticToken:   os.Getenv("ADMIN_STATIC_TOKEN"),
			JWTSigningKey: os.Getenv("JWT_SIGNING_KEY"),
			TokenTTL:      p.duration("ADMIN_TOKEN_TTL", time.Hour),
			Issuer:        getenv("ADMIN_TOKEN_ISSUER", "walletverify"),
			Audience:      getenv("ADMIN_TOKEN_AUDIENCE", "walletverify-admin"),
		},
		Oracle: Oracle{
			RPCURL:          os.Getenv("ETH_RPC_URL"),
			ContractAddress: strings.TrimSpace(os.Getenv("CONTRACT_ADDRESS")),
			Timeout:         p.duration("ORACLE_TIMEOUT", 5*time.Second),
			MaxAttempts:     p.integer("ORACLE_MAX_ATTEMPTS", 1),
			Backoff:         p.duration("ORACLE_BACKOFF", 200*time.Millisecond),
			CacheTTL:        p.duration("ORACLE_CACHE_TTL", 0),
		},
		Store: Store{
			Driver:     strings.ToLower(getenv("STORE_DRIVER", StoreMemory)),
			SQLitePath: getenv("SQLITE_PATH", "walletverify.db"),
		},
		Database: Database{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    p.integer("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    p.integer("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: p.duration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: Redis{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     p.integer("REDIS_POOL_SIZE", 10),
			MinIdleConns: p.integer("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  p.duration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  p.duration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: p.duration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: Kafka{
			Brokers: splitList(os.Getenv("KAFKA_BROKERS")),
			Topic:   getenv("KAFKA_TOPIC", "wallet.events"),
		},
	}
	if p.err != nil {
		return Config{}, p.err
	}
	if cfg.Admin.JWTSigningKey == "" && cfg.Environment != EnvProduction {
		cfg.Admin.JWTSigningKey = DevSigningKey
	}
	return cfg, nil
}

// IsProduction reports whether strict validation applies.
func (c Config) IsProduction() bool { return c.Environment == EnvProduction }

// ContractConfigured reports whether CONTRACT_ADDRESS looks like a real address.
// Placeholders such as "0x..." are treated as unset.
func (o Oracle) ContractConfigured() bool {
	return contractAddressPattern.MatchString(o.ContractAddress)
}

// Validate rejects configurations the server must not start with. Outside
// production only structural problems are errors; a missing ledger just
// makes every reconciliation report the oracle as unavailable.
func (c Config) Validate() error {
	var errs []error

	switch c.Store.Driver {
	case StoreMemory, StoreSQLite:
	case StorePostgres:
		if c.Database.URL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required when STORE_DRIVER=postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.Store.Driver))
	}
	if c.Oracle.MaxAttempts < 1 {
		errs = append(errs, errors.New("ORACLE_MAX_ATTEMPTS must be at least 1"))
	}
	if c.Admin.TokenTTL <= 0 {
		errs = append(errs, errors.New("ADMIN_TOKEN_TTL must be positive"))
	}

	if c.IsProduction() {
		if c.Admin.JWTSigningKey == "" || c.Admin.JWTSigningKey == DevSigningKey {
			errs = append(errs, errors.New("JWT_SIGNING_KEY is required in production"))
		}
		if c.Admin.Username == "" || (c.Admin.Password == "" && c.Admin.PasswordHash == "") {
			errs = append(errs, errors.New("ADMIN_USERNAME and ADMIN_PASSWORD or ADMIN_PASSWORD_HASH are required in production"))
		}
		if !c.Oracle.ContractConfigured() {
			errs = append(errs, fmt.Errorf("CONTRACT_ADDRESS %q is not a contract address", c.Oracle.ContractAddress))
		}
		if c.Oracle.RPCURL == "" {
			errs = append(errs, errors.New("ETH_RPC_URL is required in production"))
		}
	}
	return errors.Join(errs...)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(raw string) []string {
	return str.DedupeAndTrim(strings.Split(raw, ","))
}

// parser records the first malformed value so FromEnv can report it.
type parser struct {
	err error
}

func (p *parser) duration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		p.fail(fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return d
}

func (p *parser) integer(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		p.fail(fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return n
}

func (p *parser) fail(err error) {
	if p.err == nil {
		p.err = err
	}
}
