package mcp

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/sekia-ai/nativebridge/pkg/sockpath"
)

// Config holds all configuration for the MCP server.
type Config struct {
	Daemon DaemonConfig `mapstructure:"daemon"`
}

// DaemonConfig holds settings for connecting to the bridged API.
type DaemonConfig struct {
	Socket string `mapstructure:"socket"`
}

// LoadConfig reads the MCP server configuration from file, env vars, and defaults.
func LoadConfig(cfgFile string) (Config, error) {
	v := viper.New()

	v.SetDefault("daemon.socket", sockpath.DefaultSocketPath())

	v.SetConfigType("toml")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("bridge-mcp")
		v.AddConfigPath("/etc/nativebridge")
		v.AddConfigPath("$HOME/.config/nativebridge")
		v.AddConfigPath(".")
	}

	v.BindEnv("daemon.socket", "BRIDGE_DAEMON_SOCKET")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
