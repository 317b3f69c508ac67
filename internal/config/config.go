package config

import (
	"flag"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	Env         string `yaml:"env" env:"ENV" env-default:"local" env-description:"Environment" env-choices:"local,dev,prod"`
	HTTP        `yaml:"http"`
	Storage     `yaml:"storage"`
	Postgres    `yaml:"postgres"`
	Auth        `yaml:"auth"`
	Classifier  `yaml:"classifier"`
	Rewards     `yaml:"rewards"`
	Stats       `yaml:"stats"`
	Challenges  `yaml:"challenges"`
	Leaderboard `yaml:"leaderboard"`
	RateLimit   `yaml:"rate_limit"`
}

type HTTP struct {
	Host            string        `yaml:"host" env:"HTTP_HOST" env-default:"localhost"`
	Port            int           `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env-default:"15s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env-default:"5s"`
}

type Storage struct {
	Driver string `yaml:"driver" env:"STORAGE_DRIVER" env-default:"postgres" env-choices:"postgres,memory"`
}

type Postgres struct {
	Host    string `yaml:"host" env:"POSTGRES_HOST" env-default:"localhost"`
	Port    string `yaml:"port" env:"POSTGRES_PORT" env-default:"5432"`
	User    string `yaml:"user" env:"POSTGRES_USER" env-default:"waste_wise"`
	Pass    string `yaml:"pass" env:"POSTGRES_PASSWORD" env-default:"waste_wise"`
	Db      string `yaml:"db" env:"POSTGRES_DB" env-default:"waste_wise"`
	SSLMode string `yaml:"sslmode" env:"POSTGRES_SSLMODE" env-default:"disable"`
}

// URL returns the connection string understood by lib/pq.
func (p Postgres) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(p.User, p.Pass),
		Host:     p.Host + ":" + p.Port,
		Path:     p.Db,
		RawQuery: "sslmode=" + url.QueryEscape(p.SSLMode),
	}
	return u.String()
}

type Auth struct {
	JWTSecret string        `yaml:"jwt_secret" env:"JWT_SECRET" env-required:"true"`
	TokenTTL  time.Duration `yaml:"token_ttl" env:"TOKEN_TTL" env-default:"24h"`
	// AdminToken authorises challenge creation. Empty disables it.
	AdminToken string `yaml:"admin_token" env:"ADMIN_TOKEN"`
}

// Classifier with an empty URL selects the built-in deterministic stub.
type Classifier struct {
	URL        string        `yaml:"url" env:"CLASSIFIER_URL"`
	Timeout    time.Duration `yaml:"timeout" env:"CLASSIFIER_TIMEOUT" env-default:"5s"`
	MaxRetries int           `yaml:"max_retries" env:"CLASSIFIER_MAX_RETRIES" env-default:"2"`
	Backoff    time.Duration `yaml:"backoff" env-default:"100ms"`
	// TotalTimeout bounds a whole classification, retries included. Zero
	// derives it from Timeout, MaxRetries and Backoff.
	TotalTimeout time.Duration `yaml:"total_timeout" env:"CLASSIFIER_TOTAL_TIMEOUT" env-default:"0s"`
}

// Rewards.Seed 0 awards the midpoint of each category range.
type Rewards struct {
	Seed int64 `yaml:"seed" env:"REWARDS_SEED" env-default:"0"`
}

type Stats struct {
	DefaultWindowDays int `yaml:"default_window_days" env-default:"30"`
}

type Challenges struct {
	MaxRewardPoints int64 `yaml:"max_reward_points" env:"CHALLENGES_MAX_REWARD_POINTS" env-default:"500"`
}

type Leaderboard struct {
	DefaultLimit int `yaml:"default_limit" env-default:"10"`
	MaxLimit     int `yaml:"max_limit" env-default:"100"`
}

type RateLimit struct {
	ScansPerSecond float64 `yaml:"scans_per_second" env:"RATE_LIMIT_RPS" env-default:"1"`
	Burst          int     `yaml:"burst" env:"RATE_LIMIT_BURST" env-default:"5"`
}

func MustLoad() *Config {
	// A missing .env is fine; variables may come from the environment.
	_ = godotenv.Load()

	path := fetchConfigPath()

	cfg, err := Load(path)
	if err != nil {
		panic(err.Error())
	}

	return cfg
}

// Load reads the YAML file at path and applies environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", path)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	switch cfg.Storage.Driver {
	case DriverPostgres, DriverMemory:
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}

	return &cfg, nil
}

func fetchConfigPath() string {
	var res string

	flag.StringVar(&res, "config", "", "path to config file")
	flag.Parse()

	if res == "" {
		res = os.Getenv("CONFIG_PATH")
	}

	return res
}
