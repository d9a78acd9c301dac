package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddress    string        `yaml:"http_address" env:"TASKS_HTTP_ADDRESS" env-default:":8080"`
	GRPCAddress    string        `yaml:"grpc_address" env:"TASKS_GRPC_ADDRESS" env-default:":9090"`
	HealthInterval time.Duration `yaml:"health_interval" env:"TASKS_HEALTH_INTERVAL" env-default:"10s"`
	Log            Log           `yaml:"log"`
	HTTP           HTTP          `yaml:"http"`
	Storage        Storage       `yaml:"storage"`
	DB             DB            `yaml:"db"`
	Redis          Redis         `yaml:"redis"`
	RateLimiter    RateLimiter   `yaml:"rate_limiter"`
}

type Log struct {
	Level  string `yaml:"level" env:"TASKS_LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env:"TASKS_LOG_FORMAT" env-default:"text"`
}

type HTTP struct {
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout" env:"TASKS_HTTP_READ_HEADER_TIMEOUT" env-default:"5s"`
	RequestTimeout    time.Duration `yaml:"request_timeout" env:"TASKS_HTTP_REQUEST_TIMEOUT" env-default:"3s"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout" env:"TASKS_HTTP_SHUTDOWN_TIMEOUT" env-default:"5s"`
	MaxBodyBytes      int64         `yaml:"max_body_bytes" env:"TASKS_HTTP_MAX_BODY_BYTES" env-default:"1048576"`
}

// Storage selects the backend. DSN is used by sqlite3 (file path or
// ":memory:") and, when set, by postgres instead of the DB section.
// Path is the leveldb directory; empty means in-memory.
type Storage struct {
	Driver string `yaml:"driver" env:"TASKS_STORAGE_DRIVER" env-default:"postgres"`
	DSN    string `yaml:"dsn" env:"TASKS_STORAGE_DSN"`
	Path   string `yaml:"path" env:"TASKS_STORAGE_PATH"`
}

type DB struct {
	Host     string `yaml:"host" env:"TASKS_DB_HOST" env-default:"localhost"`
	Port     string `yaml:"port" env:"TASKS_DB_PORT" env-default:"5432"`
	User     string `yaml:"user" env:"TASKS_DB_USER"`
	Password string `yaml:"password" env:"TASKS_DB_PASSWORD"`
	DBName   string `yaml:"db_name" env:"TASKS_DB_NAME"`
	SSLMode  string `yaml:"sslmode" env:"TASKS_DB_SSLMODE" env-default:"disable"`
}

type Redis struct {
	Address  string `yaml:"address" env:"TASKS_REDIS_ADDRESS"`
	Password string `yaml:"password" env:"TASKS_REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"TASKS_REDIS_DB" env-default:"0"`
}

type RateLimiter struct {
	Enabled bool `yaml:"enabled" env:"TASKS_RATE_LIMITER_ENABLED"`
	RPS     int  `yaml:"rps" env:"TASKS_RATE_LIMITER_RPS" env-default:"50"`
	Burst   int  `yaml:"burst" env:"TASKS_RATE_LIMITER_BURST" env-default:"100"`
}

const (
	DriverPostgres = "postgres"
	DriverSqlite   = "sqlite3"
	DriverLevelDB  = "leveldb"
)

func MustLoadConfig() *Config {
	// a missing .env file is fine, the variables may come from the environment.
	_ = godotenv.Load()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		panic("No config path in env")
	}

	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads the yaml file at path, applies env overrides and defaults,
// and validates the result.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverPostgres:
		if c.Storage.DSN == "" && (c.DB.User == "" || c.DB.DBName == "") {
			return errors.New("postgres storage needs storage.dsn or db.user and db.db_name")
		}
	case DriverSqlite:
		if c.Storage.DSN == "" {
			return errors.New("sqlite3 storage needs storage.dsn")
		}
	case DriverLevelDB:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	if c.RateLimiter.Enabled {
		if c.Redis.Address == "" {
			return errors.New("rate limiter needs redis.address")
		}
		if c.RateLimiter.RPS <= 0 {
			return errors.New("rate_limiter.rps must be positive")
		}
	}
	return nil
}
