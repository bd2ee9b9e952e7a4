package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Config carries every knob for the breakout client and the dev server.
type Config struct {
	Mode string `mapstructure:"mode"`

	// Client side.
	APIBaseURL string `mapstructure:"api_base_url" validate:"required,url"`
	SocketURL  string `mapstructure:"socket_url" validate:"required"`
	AuthToken  string `mapstructure:"auth_token"`

	AckTimeout         time.Duration `mapstructure:"ack_timeout"`
	CreatePollAttempts int           `mapstructure:"create_poll_attempts" validate:"gte=1"`
	CreatePollInterval time.Duration `mapstructure:"create_poll_interval"`
	ReconnectPause     time.Duration `mapstructure:"reconnect_pause"`

	SendBuffer int           `mapstructure:"send_buffer"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`

	// Dev server side.
	Port   int    `mapstructure:"port"`
	Secret string `mapstructure:"secret"`
}

var validate = validator.New()

// Load reads config/config.<env>.yaml selected by CONFIG_ENV, applying
// defaults for everything absent. A missing file is not an error; the
// defaults describe a local dev setup.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)
	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("mode", "release")
	v.SetDefault("api_base_url", "http://localhost:8080/api/sessions")
	v.SetDefault("socket_url", "ws://localhost:8080/api/ws")
	v.SetDefault("auth_token", "")
	v.SetDefault("ack_timeout", "8s")
	v.SetDefault("create_poll_attempts", 6)
	v.SetDefault("create_poll_interval", "1s")
	v.SetDefault("reconnect_pause", "1s")
	v.SetDefault("send_buffer", 32)
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("port", 8080)
	v.SetDefault("secret", "dev-secret")

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}
