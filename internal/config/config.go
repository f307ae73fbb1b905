package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Board    BoardConfig    `mapstructure:"board"`
	Sync     SyncConfig     `mapstructure:"sync"`
	Auth     AuthConfig     `mapstructure:"auth"`
}

type ServerConfig struct {
	HTTPPort        int           `mapstructure:"http_port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
}

const (
	BackendPostgres = "postgres"
	BackendFile     = "file"
)

// StorageConfig selects the backing document store.
type StorageConfig struct {
	Backend string `mapstructure:"backend"`
	DataDir string `mapstructure:"data_dir"`
}

type BoardConfig struct {
	Zone            string `mapstructure:"zone"`
	SeedPath        string `mapstructure:"seed_path"`
	EditModeDefault bool   `mapstructure:"edit_mode_default"`
}

// SyncConfig bounds the write-through retry loop.
type SyncConfig struct {
	MaxRetries      uint64        `mapstructure:"max_retries"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
	AttemptTimeout  time.Duration `mapstructure:"attempt_timeout"`
}

// AuthConfig only concerns editor identity; login lives elsewhere.
type AuthConfig struct {
	JWTSecretEnv string `mapstructure:"jwt_secret_env"`
	EditorHeader string `mapstructure:"editor_header"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.database", "railboard")
	v.SetDefault("database.user", "railboard")
	v.SetDefault("database.max_connections", 10)

	v.SetDefault("storage.backend", BackendPostgres)
	v.SetDefault("storage.data_dir", "data")

	v.SetDefault("board.zone", "Zone A")
	v.SetDefault("board.seed_path", "configs/circuits.yaml")
	v.SetDefault("board.edit_mode_default", false)

	v.SetDefault("sync.max_retries", 5)
	v.SetDefault("sync.initial_interval", "200ms")
	v.SetDefault("sync.max_interval", "10s")
	v.SetDefault("sync.attempt_timeout", "5s")

	v.SetDefault("auth.jwt_secret_env", "RAILBOARD_JWT_SECRET")
	v.SetDefault("auth.editor_header", "X-Editor")
}

// Load reads the YAML config at path. Every key can be overridden from the
// environment with the RAILBOARD_ prefix, e.g. RAILBOARD_STORAGE_BACKEND=file.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	setDefaults(v)

	v.SetEnvPrefix("RAILBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendPostgres, BackendFile:
	default:
		return fmt.Errorf("invalid storage backend %q", c.Storage.Backend)
	}
	if c.Storage.Backend == BackendFile && c.Storage.DataDir == "" {
		return fmt.Errorf("storage.data_dir is required for the file backend")
	}
	if c.Server.HTTPPort <= 0 {
		return fmt.Errorf("invalid http port %d", c.Server.HTTPPort)
	}
	for _, origin := range c.Server.AllowedOrigins {
		if origin != "*" && !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
			return fmt.Errorf("invalid allowed origin %q", origin)
		}
	}
	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.User, c.Password, c.Host, c.Port, c.Database)
}

// JWTSecret returns the token signing secret, or "" when bearer identities
// are disabled.
func (a *AuthConfig) JWTSecret() string {
	if a.JWTSecretEnv == "" {
		return ""
	}
	return os.Getenv(a.JWTSecretEnv)
}
