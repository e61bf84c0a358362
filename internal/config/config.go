package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/dkeye/chatrelay/internal/adapters/rtc"
	"github.com/rs/zerolog/log"
	"github.com/samber/oops"
	"github.com/spf13/viper"
)

type Config struct {
	Mode          string        `mapstructure:"mode"`
	Port          int           `mapstructure:"port"`
	StaticPath    string        `mapstructure:"static_path"`
	ReadLimit     int64         `mapstructure:"read_limit"`
	PingPeriod    time.Duration `mapstructure:"ping_period"`
	Secret        string        `mapstructure:"secret"`
	LogLevel      string        `mapstructure:"log_level"`
	InternalToken string        `mapstructure:"internal_token"`

	Auth   AuthConfig   `mapstructure:"auth"`
	Signal SignalConfig `mapstructure:"signal"`
	Call   CallConfig   `mapstructure:"call"`
	Otel   OtelConfig   `mapstructure:"otel"`

	ICEServers []rtc.ICEServer `mapstructure:"ice_servers"`
	// Groups seeds group membership per user id. It is a list rather than a
	// map because viper lowercases map keys, which would mangle user ids.
	Groups []GroupGrant `mapstructure:"groups"`
}

type GroupGrant struct {
	User   string   `mapstructure:"user"`
	Groups []string `mapstructure:"groups"`
}

type AuthConfig struct {
	// JWTSecret enables token verification on the WebSocket handshake.
	JWTSecret string `mapstructure:"jwt_secret"`
}

type SignalConfig struct {
	SendBuffer int     `mapstructure:"send_buffer"`
	RateLimit  float64 `mapstructure:"rate_limit"`
	RateBurst  int     `mapstructure:"rate_burst"`
}

type CallConfig struct {
	RingTimeout time.Duration `mapstructure:"ring_timeout"`
}

type OtelConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
	Insecure bool   `mapstructure:"insecure"`
	Stdout   bool   `mapstructure:"stdout"`
}

// Load reads config/config.<CONFIG_ENV>.yaml (CONFIG_ENV defaults to "dev").
// A missing file is not an error. CHATRELAY_* environment variables override
// file values, e.g. CHATRELAY_CALL_RING_TIMEOUT=30s.
func Load() (*Config, error) {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return LoadFile(fmt.Sprintf("config/config.%s.yaml", env))
}

func LoadFile(fileName string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(fileName)

	v.SetEnvPrefix("CHATRELAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.Is(err, fs.ErrNotExist) && !errors.As(err, &notFound) {
			return nil, oops.In("config").Code("config_parse").With("file", fileName).Wrapf(err, "failed to read config")
		}
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, oops.In("config").Code("config_parse").With("file", fileName).Wrapf(err, "failed to parse config")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	log.Info().
		Str("module", "config").
		Str("mode", cfg.Mode).
		Int("port", cfg.Port).
		Str("static", cfg.StaticPath).
		Dur("ring_timeout", cfg.Call.RingTimeout).
		Bool("auth", cfg.Auth.JWTSecret != "").
		Msg("config")
	return &cfg, nil
}

// GroupTable merges Groups into user id -> group ids. Entries for the same
// user accumulate.
func (c *Config) GroupTable() map[string][]string {
	out := make(map[string][]string, len(c.Groups))
	for _, g := range c.Groups {
		out[g.User] = append(out[g.User], g.Groups...)
	}
	return out
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("secret", "change-me")
	v.SetDefault("log_level", "info")
	v.SetDefault("internal_token", "")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("signal.send_buffer", 64)
	v.SetDefault("signal.rate_limit", 20)
	v.SetDefault("signal.rate_burst", 40)
	v.SetDefault("call.ring_timeout", "45s")
	v.SetDefault("otel.enabled", false)
	v.SetDefault("otel.endpoint", "")
	v.SetDefault("otel.insecure", false)
	v.SetDefault("otel.stdout", false)
}

func (c *Config) validate() error {
	errs := oops.In("config").Code("config_invalid")
	switch {
	case c.Port <= 0 || c.Port > 65535:
		return errs.With("port", c.Port).Errorf("port out of range")
	case c.PingPeriod <= 0:
		return errs.With("ping_period", c.PingPeriod).Errorf("ping_period must be positive")
	case c.Call.RingTimeout < 0:
		return errs.With("ring_timeout", c.Call.RingTimeout).Errorf("ring_timeout must not be negative")
	}
	return nil
}
