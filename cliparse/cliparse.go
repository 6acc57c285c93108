package cliparse

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPort       = 3318
	DefaultKafkaTopic = "poll.vote.recorded"
)

type Config struct {
	Port         int    `yaml:"port"`
	DatabaseURL  string `yaml:"database_url"`
	DatabaseType string `yaml:"database_type"`
	AdminKeySalt string `yaml:"admin_key_salt"`

	// Optional bearer-token authentication. Empty secret disables it.
	JWTSecret string `yaml:"jwt_secret"`
	JWTIssuer string `yaml:"jwt_issuer"`

	// Empty RedisURL selects the in-process limiter.
	RedisURL             string        `yaml:"redis_url"`
	RateLimitMaxAttempts int           `yaml:"rate_limit_max_attempts"`
	RateLimitWindow      time.Duration `yaml:"rate_limit_window"`

	AllowVoteChange bool `yaml:"allow_vote_change"`

	KafkaBrokers []string `yaml:"kafka_brokers"`
	KafkaTopic   string   `yaml:"kafka_topic"`

	LogLevel string `yaml:"log_level"`
}

func defaults() Config {
	return Config{
		Port:                 DefaultPort,
		DatabaseType:         "sqlite",
		RateLimitMaxAttempts: 5,
		RateLimitWindow:      time.Minute,
		AllowVoteChange:      true,
		KafkaTopic:           DefaultKafkaTopic,
		LogLevel:             "info",
	}
}

// ParseFlags builds the config from defaults, an optional YAML file, the
// environment (including a .env file) and finally CLI flags, each layer
// overriding the previous one.
func ParseFlags(args []string) (Config, error) {
	cfg := defaults()

	fs := flag.NewFlagSet("quickly-vote", flag.ContinueOnError)

	configFile := fs.String("c", "", "Path to YAML config file")

	// Network config (can be CLI args or env)
	port := fs.Int("p", 0, "Server port")
	databaseURL := fs.String("d", "", "Database URL")
	databaseType := fs.String("t", "", "Database type (sqlite or postgres)")
	redisURL := fs.String("redis", "", "Redis URL for the shared rate limiter")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	allowVoteChange := fs.Bool("allow-vote-change", true, "Let repeat voters replace their vote on single-vote polls")

	// Secrets (prefer env variables, but allow CLI for dev)
	adminSalt := fs.String("admin-salt", "", "Admin key salt (prefer env)")
	jwtSecret := fs.String("jwt-secret", "", "JWT signing secret (prefer env)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}

	if *configFile == "" {
		*configFile = os.Getenv("CONFIG_FILE")
	}
	if *configFile != "" {
		if err := loadFile(*configFile, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	// Flags win over everything else, but only when given.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "p":
			cfg.Port = *port
		case "d":
			cfg.DatabaseURL = *databaseURL
		case "t":
			cfg.DatabaseType = *databaseType
		case "redis":
			cfg.RedisURL = *redisURL
		case "log-level":
			cfg.LogLevel = *logLevel
		case "allow-vote-change":
			cfg.AllowVoteChange = *allowVoteChange
		case "admin-salt":
			cfg.AdminKeySalt = *adminSalt
		case "jwt-secret":
			cfg.JWTSecret = *jwtSecret
		}
	})

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if portStr := os.Getenv("PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return errors.New("invalid PORT env variable")
		}
		cfg.Port = port
	}

	setString(&cfg.DatabaseURL, "DATABASE_URL")
	setString(&cfg.DatabaseType, "DATABASE_TYPE")
	setString(&cfg.AdminKeySalt, "ADMIN_KEY_SALT")
	setString(&cfg.JWTSecret, "JWT_SECRET")
	setString(&cfg.JWTIssuer, "JWT_ISSUER")
	setString(&cfg.RedisURL, "REDIS_URL")
	setString(&cfg.KafkaTopic, "KAFKA_TOPIC")
	setString(&cfg.LogLevel, "LOG_LEVEL")

	if v := os.Getenv("RATE_LIMIT_MAX_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.New("invalid RATE_LIMIT_MAX_ATTEMPTS env variable")
		}
		cfg.RateLimitMaxAttempts = n
	}

	if v := os.Getenv("RATE_LIMIT_WINDOW"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return errors.New("invalid RATE_LIMIT_WINDOW env variable")
		}
		cfg.RateLimitWindow = d
	}

	if v := os.Getenv("ALLOW_VOTE_CHANGE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.New("invalid ALLOW_VOTE_CHANGE env variable")
		}
		cfg.AllowVoteChange = b
	}

	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.KafkaBrokers = splitList(v)
	}

	return nil
}

func (c Config) validate() error {
	if c.DatabaseURL == "" {
		return errors.New("database URL required (use -d or DATABASE_URL env)")
	}
	if c.DatabaseType != "sqlite" && c.DatabaseType != "postgres" {
		return fmt.Errorf("unsupported database type %q", c.DatabaseType)
	}

	// Secrets - MUST be provided
	if c.AdminKeySalt == "" {
		return errors.New("ADMIN_KEY_SALT required")
	}

	if c.RateLimitMaxAttempts <= 0 {
		return errors.New("rate limit max attempts must be positive")
	}
	if c.RateLimitWindow <= 0 {
		return errors.New("rate limit window must be positive")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
