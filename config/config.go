// Package config loads server settings from a starberry.{yaml,toml,json}
// file and STARBERRY_* environment variables, the environment taking
// precedence. Everything has a default, so a missing file is not an
// error.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Settings is the declarative server configuration consumed by the app
// builder.
type Settings struct {
	Binding string `mapstructure:"binding"`
	Mode    string `mapstructure:"mode"`

	MaxConnections    int           `mapstructure:"max_connections"`
	MaxConnectionTime time.Duration `mapstructure:"max_connection_time"`

	MaxBodySize   int `mapstructure:"max_body_size"`
	MaxHeaderSize int `mapstructure:"max_header_size"`
	MaxHeaders    int `mapstructure:"max_headers"`

	LogLevel string `mapstructure:"log_level"`

	Static StaticSettings `mapstructure:"static"`
}

// StaticSettings configures the optional file server.
type StaticSettings struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir"`
	Mount   string `mapstructure:"mount"`
}

// Default returns the stock settings used when nothing is configured.
func Default() Settings {
	return Settings{
		Binding:           "127.0.0.1:3003",
		Mode:              "development",
		MaxConnections:    0,
		MaxConnectionTime: 0,
		MaxBodySize:       1 << 20,
		MaxHeaderSize:     8192,
		MaxHeaders:        100,
		LogLevel:          "info",
		Static: StaticSettings{
			Dir:   "static",
			Mount: "/static",
		},
	}
}

// Load reads settings from the given directories (the working directory
// when none are given), layered under environment overrides.
func Load(paths ...string) (Settings, error) {
	v := viper.New()
	v.SetConfigName("starberry")
	if len(paths) == 0 {
		paths = []string{"."}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.SetEnvPrefix("STARBERRY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	def := Default()
	v.SetDefault("binding", def.Binding)
	v.SetDefault("mode", def.Mode)
	v.SetDefault("max_connections", def.MaxConnections)
	v.SetDefault("max_connection_time", def.MaxConnectionTime)
	v.SetDefault("max_body_size", def.MaxBodySize)
	v.SetDefault("max_header_size", def.MaxHeaderSize)
	v.SetDefault("max_headers", def.MaxHeaders)
	v.SetDefault("log_level", def.LogLevel)
	v.SetDefault("static.enabled", def.Static.Enabled)
	v.SetDefault("static.dir", def.Static.Dir)
	v.SetDefault("static.mount", def.Static.Mount)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Settings{}, fmt.Errorf("config: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate rejects values the server cannot run with.
func (s Settings) Validate() error {
	if s.Binding == "" {
		return errors.New("config: binding must not be empty")
	}
	switch s.Mode {
	case "development", "production", "beta", "build":
	default:
		return fmt.Errorf("config: unknown mode %q", s.Mode)
	}
	if s.MaxConnections < 0 {
		return fmt.Errorf("config: max_connections must not be negative")
	}
	if s.MaxBodySize < 0 || s.MaxHeaderSize < 0 || s.MaxHeaders < 0 {
		return fmt.Errorf("config: parse limits must not be negative")
	}
	return nil
}
