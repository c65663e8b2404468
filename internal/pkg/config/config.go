package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`
	Port     string `env:"PORT,      default=8080"`

	// APIBaseURL points at the production user service. Empty or an
	// example.com placeholder pins the offline mock for the process lifetime.
	APIBaseURL     string        `env:"COMMUNITY_API_URL"`
	RequestTimeout time.Duration `env:"COMMUNITY_API_TIMEOUT, default=8s"`

	JWTSecret string `env:"JWT_SECRET, default=dev-secret"`

	Store StoreConfig
	Redis RedisConfig
	Mongo MongoConfig
}

// StoreConfig selects and parameterises the secure session store backend.
type StoreConfig struct {
	Backend    string `env:"STORE_BACKEND,    default=file"` // file | redis | mongo
	Dir        string `env:"STORE_DIR,        default=.community-auth"`
	Passphrase string `env:"STORE_PASSPHRASE, default=dev-passphrase"`
}

type RedisConfig struct {
	Addr string `env:"REDIS_ADDR, default=localhost:6379"`
	DB   int    `env:"REDIS_DB,   default=0"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=community_auth"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	var cfg Config
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return &cfg
}
