package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Server is the hub process configuration.
type Server struct {
	Addr           string   `mapstructure:"addr"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	SendBuffer     int      `mapstructure:"send_buffer"`
	LogLevel       string   `mapstructure:"log_level"`
	LogFormat      string   `mapstructure:"log_format"`
	Redis          Redis    `mapstructure:"redis"`
	Postgres       Postgres `mapstructure:"postgres"`
}

// Redis configures the chat archive. Empty Addr disables it.
type Redis struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
	Channel  string        `mapstructure:"channel"`
}

// Postgres configures tutor role lookup. Empty URL trusts the client's claim.
type Postgres struct {
	URL string `mapstructure:"url"`
}

// LoadServer reads an optional config file, then STUDYROOM_* environment
// variables (STUDYROOM_REDIS_ADDR for redis.addr).
func LoadServer(path string) (*Server, error) {
	v := viper.New()
	v.SetDefault("addr", ":8080")
	v.SetDefault("allowed_origins", []string{})
	v.SetDefault("send_buffer", 256)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 24*time.Hour)
	v.SetDefault("redis.channel", "chat-messages")
	v.SetDefault("postgres.url", "")

	v.SetEnvPrefix("STUDYROOM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Server
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.SendBuffer <= 0 {
		return nil, fmt.Errorf("config: send_buffer must be positive, got %d", cfg.SendBuffer)
	}
	return &cfg, nil
}
