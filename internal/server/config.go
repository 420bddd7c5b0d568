package server

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/sekia-ai/nativebridge/internal/api"
	"github.com/sekia-ai/nativebridge/internal/backend"
	"github.com/sekia-ai/nativebridge/internal/secrets"
	"github.com/sekia-ai/nativebridge/pkg/sockpath"
)

// Config is the top-level daemon configuration.
type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	Server   ServerConfig   `mapstructure:"server"`
	NATS     NATSConfig     `mapstructure:"nats"`
	Bridge   BridgeConfig   `mapstructure:"bridge"`
	Security SecurityConfig `mapstructure:"security"`
	IAP      IAPConfig      `mapstructure:"iap"`
	Fonts    FontsConfig    `mapstructure:"fonts"`
	Events   EventsConfig   `mapstructure:"events"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// ServerConfig holds control socket settings.
type ServerConfig struct {
	Socket string `mapstructure:"socket"`
}

// NATSConfig selects the bus native plugins attach to. With URL set the
// daemon connects to an external server instead of embedding one.
type NATSConfig struct {
	URL   string `mapstructure:"url"`
	Host  string `mapstructure:"host"`
	Port  int    `mapstructure:"port"`
	Token string `mapstructure:"token"`
}

// BridgeConfig tunes the native command bridge.
type BridgeConfig struct {
	// Platform picks android or ios for mobilesim builds.
	Platform       string        `mapstructure:"platform"`
	InvokeTimeout  time.Duration `mapstructure:"invoke_timeout"`
	ResolveTimeout time.Duration `mapstructure:"resolve_timeout"`
}

// SecurityConfig holds application-level security settings.
type SecurityConfig struct {
	CommandSecret string `mapstructure:"command_secret"`
}

// IAPConfig holds store settings.
type IAPConfig struct {
	PublicKey string `mapstructure:"public_key"`
}

// FontsConfig controls the desktop font catalog.
type FontsConfig struct {
	Dirs  []string `mapstructure:"dirs"`
	Watch bool     `mapstructure:"watch"`
}

// EventsConfig sizes the event replay buffer.
type EventsConfig struct {
	RingSize int `mapstructure:"ring_size"`
}

// LoadConfig reads configuration from file, env, and flags, and unseals any
// ENC[...] values.
func LoadConfig(cfgFile string) (Config, error) {
	v := viper.New()

	v.SetDefault("log.level", "info")
	v.SetDefault("server.socket", sockpath.DefaultSocketPath())
	v.SetDefault("bridge.invoke_timeout", backend.DefaultInvokeTimeout)
	v.SetDefault("bridge.resolve_timeout", backend.DefaultResolveTimeout)
	v.SetDefault("fonts.watch", true)
	v.SetDefault("events.ring_size", api.DefaultRingSize)

	v.SetConfigType("toml")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("nativebridge")
		v.AddConfigPath("/etc/nativebridge")
		v.AddConfigPath("$HOME/.config/nativebridge")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("BRIDGE")
	v.AutomaticEnv()

	v.BindEnv("nats.token", "BRIDGE_NATS_TOKEN")
	v.BindEnv("security.command_secret", "BRIDGE_COMMAND_SECRET")
	v.BindEnv("iap.public_key", "BRIDGE_IAP_PUBLIC_KEY")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	if _, err := secrets.Unseal(v); err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
