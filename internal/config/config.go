package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "VENDORIQ"

type Config interface {
	EnvConfig
	TransportConfig
	StoreConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
}

type mainConfig struct {
	v            *viper.Viper
	baseEndpoint string
}

var _ Config = (*mainConfig)(nil)

type LoadOption func(*viper.Viper) error

// WithFlag binds a command-line flag to key. A flag the user set takes
// precedence over the environment and the config file.
func WithFlag(key string, flag *pflag.Flag) LoadOption {
	return func(v *viper.Viper) error {
		if flag == nil {
			return nil
		}
		return v.BindPFlag(key, flag)
	}
}

// Load reads configuration from the optional file at path, then from
// VENDORIQ_* environment variables. The backend endpoint is resolved here,
// once, and is fixed for the lifetime of the returned Config.
func Load(path string, options ...LoadOption) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	for _, opt := range options {
		if err := opt(v); err != nil {
			return nil, fmt.Errorf("bind flag: %w", err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	c := &mainConfig{v: v}
	c.baseEndpoint = ResolveBaseEndpoint(c.GetAPIURLOverride(), c.GetHost())
	return c, nil
}

// New returns a Config built from environment variables and defaults only.
func New() Config {
	c, _ := Load("")
	return c
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_name", "VendorIQ")
	v.SetDefault("env", "DEV")
	v.SetDefault("log_level", "info")
	v.SetDefault("api_url", "")
	v.SetDefault("host", hostname())
	v.SetDefault("request_timeout", defaultRequestTimeout)
	v.SetDefault("store.backend", StoreBackendFile)
	v.SetDefault("store.path", "")
	v.SetDefault("store.redis_addr", "localhost:6379")
	v.SetDefault("store.redis_password", "")
	v.SetDefault("store.redis_db", 0)
	v.SetDefault("store.redis_prefix", "vendoriq:session:")
}

func (c *mainConfig) GetAppName() string {
	return c.v.GetString("app_name")
}

func (c *mainConfig) GetEnv() string {
	env := c.v.GetString("env")
	if env == "" {
		return "DEV"
	}
	return env
}

func (c *mainConfig) GetLogLevel() string {
	return c.v.GetString("log_level")
}

func (c *mainConfig) GetAPIURLOverride() string {
	return strings.TrimSpace(c.v.GetString("api_url"))
}

func (c *mainConfig) GetHost() string {
	return c.v.GetString("host")
}

func (c *mainConfig) GetBaseEndpoint() string {
	return c.baseEndpoint
}

func (c *mainConfig) GetRequestTimeout() time.Duration {
	timeout := c.v.GetDuration("request_timeout")
	if timeout <= 0 {
		return defaultRequestTimeout
	}
	return timeout
}

func (c *mainConfig) GetStoreBackend() string {
	return strings.ToLower(c.v.GetString("store.backend"))
}

// GetStorePath returns the configured store location, or a file under the
// user's config directory named for the backend.
func (c *mainConfig) GetStorePath() string {
	if p := c.v.GetString("store.path"); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	name := "session.yaml"
	if c.GetStoreBackend() == StoreBackendSQLite {
		name = "session.db"
	}
	return filepath.Join(dir, "vendoriq", name)
}

func (c *mainConfig) GetRedisAddr() string {
	return c.v.GetString("store.redis_addr")
}

func (c *mainConfig) GetRedisPassword() string {
	return c.v.GetString("store.redis_password")
}

func (c *mainConfig) GetRedisDB() int {
	return c.v.GetInt("store.redis_db")
}

func (c *mainConfig) GetRedisPrefix() string {
	return c.v.GetString("store.redis_prefix")
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return ""
	}
	return h
}
