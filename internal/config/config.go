package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	StoreRedis  = "redis"
	StoreMemory = "memory"

	BridgeLocal = "local"
	BridgeNATS  = "nats"
)

type Config struct {
	Port string
	Env  string

	Store     string
	RedisURL  string
	RedisPass string
	RedisDB   int

	JWTSecret string
	JWTTTL    time.Duration

	NATSURL         string
	BridgeMode      string
	BridgePublicKey string
	OracleSecretKey string
	BridgeQueueSize int

	AllowPlanting bool
	ShuffleSeed   string

	RateLimitActions int
	RateLimitWindow  time.Duration

	LogLevel  string
	LogFormat string
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("env", "development")
	v.SetDefault("store", StoreRedis)
	v.SetDefault("redis_url", "localhost:6379")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("jwt_secret", "")
	v.SetDefault("jwt_ttl", 24*time.Hour)
	v.SetDefault("nats_url", "nats://127.0.0.1:4222")
	v.SetDefault("bridge_mode", BridgeLocal)
	v.SetDefault("bridge_public_key", "")
	v.SetDefault("oracle_secret_key", "")
	v.SetDefault("bridge_queue_size", 256)
	v.SetDefault("blockjack_allow_planting", false)
	v.SetDefault("shuffle_seed", "")
	v.SetDefault("rate_limit_actions", 60)
	v.SetDefault("rate_limit_window", time.Minute)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
}

// Load reads the environment and, when path is set, a config file whose
// keys are the lower-case environment names. The environment wins.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{
		Port:             v.GetString("port"),
		Env:              v.GetString("env"),
		Store:            strings.ToLower(v.GetString("store")),
		RedisURL:         v.GetString("redis_url"),
		RedisPass:        v.GetString("redis_password"),
		RedisDB:          v.GetInt("redis_db"),
		JWTSecret:        v.GetString("jwt_secret"),
		JWTTTL:           v.GetDuration("jwt_ttl"),
		NATSURL:          v.GetString("nats_url"),
		BridgeMode:       strings.ToLower(v.GetString("bridge_mode")),
		BridgePublicKey:  v.GetString("bridge_public_key"),
		OracleSecretKey:  v.GetString("oracle_secret_key"),
		BridgeQueueSize:  v.GetInt("bridge_queue_size"),
		AllowPlanting:    v.GetBool("blockjack_allow_planting"),
		ShuffleSeed:      v.GetString("shuffle_seed"),
		RateLimitActions: v.GetInt("rate_limit_actions"),
		RateLimitWindow:  v.GetDuration("rate_limit_window"),
		LogLevel:         v.GetString("log_level"),
		LogFormat:        strings.ToLower(v.GetString("log_format")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	switch c.Store {
	case StoreRedis, StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("STORE must be %q or %q, got %q", StoreRedis, StoreMemory, c.Store))
	}
	switch c.BridgeMode {
	case BridgeLocal, BridgeNATS:
	default:
		errs = append(errs, fmt.Errorf("BRIDGE_MODE must be %q or %q, got %q", BridgeLocal, BridgeNATS, c.BridgeMode))
	}
	if c.BridgeMode == BridgeNATS && c.BridgePublicKey == "" && c.OracleSecretKey == "" {
		errs = append(errs, errors.New("BRIDGE_PUBLIC_KEY is required with the nats bridge"))
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat))
	}
	if c.JWTTTL <= 0 {
		errs = append(errs, errors.New("JWT_TTL must be positive"))
	}
	if c.RateLimitActions < 0 || c.RateLimitWindow <= 0 {
		errs = append(errs, errors.New("rate limit settings must be positive"))
	}

	if c.IsProduction() {
		if c.JWTSecret == "" {
			errs = append(errs, errors.New("JWT_SECRET is required in production"))
		}
		if c.AllowPlanting {
			errs = append(errs, errors.New("BLOCKJACK_ALLOW_PLANTING must be off in production"))
		}
		if c.ShuffleSeed != "" {
			errs = append(errs, errors.New("SHUFFLE_SEED must be empty in production"))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
