// Package config loads the server configuration from yaml plus environment
// overrides.
package config

import (
	"time"

	"allowly/internal/channel"
	"allowly/internal/obs"
	pg "allowly/internal/repository/postgres"
)

type App struct {
	Name    string `mapstructure:"name"`
	Env     string `mapstructure:"env"`
	Version string `mapstructure:"version"`
}

type Server struct {
	HTTPAddr        string        `mapstructure:"http_addr"`
	MetricsAddr     string        `mapstructure:"metrics_addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	GracefulTimeout time.Duration `mapstructure:"graceful_timeout"`
}

type Auth struct {
	// JWTSecret signs session tokens.
	JWTSecret  string        `mapstructure:"jwt_secret"`
	SessionTTL time.Duration `mapstructure:"session_ttl"`
	// SecureCookie marks the session cookie Secure; disable for local http.
	SecureCookie bool `mapstructure:"secure_cookie"`
}

type Channel struct {
	// Backend selects the pub/sub implementation: "memory" or "kafka".
	Backend string              `mapstructure:"backend"`
	Kafka   channel.KafkaConfig `mapstructure:"kafka"`
}

type Sched struct {
	InvitationTTL time.Duration `mapstructure:"invitation_ttl"`
}

type Config struct {
	App     App            `mapstructure:"app"`
	Server  Server         `mapstructure:"server"`
	DB      pg.Config      `mapstructure:"db"`
	Channel Channel        `mapstructure:"channel"`
	Sched   Sched          `mapstructure:"sched"`
	Auth    Auth           `mapstructure:"auth"`
	Log     obs.LogConfig  `mapstructure:"log"`
	OTEL    obs.OTELConfig `mapstructure:"otel"`
}
