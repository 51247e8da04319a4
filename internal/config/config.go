// Package config loads relaygraph settings from defaults, an optional YAML
// file and RELAYGRAPH_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/hanpama/relaygraph/internal/logging"
)

// EnvPrefix prefixes environment overrides: server.addr is read from
// RELAYGRAPH_SERVER_ADDR.
const EnvPrefix = "RELAYGRAPH"

type Config struct {
	Server   Server         `mapstructure:"server"`
	GraphQL  GraphQL        `mapstructure:"graphql"`
	Database Database       `mapstructure:"database"`
	Auth     Auth           `mapstructure:"auth"`
	Log      logging.Config `mapstructure:"log"`
	Otel     Otel           `mapstructure:"otel"`
}

type Server struct {
	Addr            string        `mapstructure:"addr"`
	Pretty          bool          `mapstructure:"pretty"`
	Timeout         time.Duration `mapstructure:"timeout"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
	MetadataHeaders []string      `mapstructure:"metadata_headers"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	GraphiQL        bool          `mapstructure:"graphiql"`
}

type GraphQL struct {
	DefaultPageSize int  `mapstructure:"default_page_size"`
	Introspection   bool `mapstructure:"introspection"`
}

type Database struct {
	Path string `mapstructure:"path"`
}

type Auth struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

type Otel struct {
	Endpoint string `mapstructure:"endpoint"`
	Service  string `mapstructure:"service"`
}

var defaults = map[string]any{
	"server.addr":               ":8080",
	"server.pretty":             false,
	"server.timeout":            "10s",
	"server.max_body_bytes":     32 << 20,
	"server.metadata_headers":   []string{},
	"server.cors_origins":       []string{},
	"server.graphiql":           true,
	"graphql.default_page_size": 100,
	"graphql.introspection":     true,
	"database.path":             "relaygraph.db",
	"auth.jwt_secret":           "",
	"auth.token_ttl":            "1h",
	"log.level":                 "info",
	"log.format":                "text",
	"log.output":                "stderr",
	"otel.endpoint":             "",
	"otel.service":              "relaygraph",
}

// New returns a viper instance holding the defaults and reading environment
// overrides. Callers may bind command-line flags to it before Load.
func New() *viper.Viper {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads file into v when file is non-empty and decodes the result.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("config: server.addr is required")
	}
	if c.GraphQL.DefaultPageSize < 0 {
		return fmt.Errorf("config: graphql.default_page_size must not be negative, got %d", c.GraphQL.DefaultPageSize)
	}
	if c.Server.Timeout < 0 {
		return fmt.Errorf("config: server.timeout must not be negative, got %s", c.Server.Timeout)
	}
	return nil
}
