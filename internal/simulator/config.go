package simulator

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/sekia-ai/nativebridge/internal/fonts"
	"github.com/sekia-ai/nativebridge/internal/secrets"
	"github.com/sekia-ai/nativebridge/pkg/model"
)

// FileConfig is the on-disk configuration of bridge-nativesim.
type FileConfig struct {
	NATS struct {
		URL   string `mapstructure:"url"`
		Token string `mapstructure:"token"`
	} `mapstructure:"nats"`
	Security struct {
		CommandSecret string `mapstructure:"command_secret"`
	} `mapstructure:"security"`
	Simulator struct {
		Platform          string        `mapstructure:"platform"`
		WordDelay         time.Duration `mapstructure:"word_delay"`
		StatusBarHeight   uint32        `mapstructure:"status_bar_height"`
		AuthRedirectURL   string        `mapstructure:"auth_redirect_url"`
		CancelledProducts []string      `mapstructure:"cancelled_products"`
		FontDirs          []string      `mapstructure:"font_dirs"`
	} `mapstructure:"simulator"`
}

// LoadConfig reads bridge-nativesim configuration from file and env.
func LoadConfig(cfgFile string) (FileConfig, error) {
	v := viper.New()

	v.SetDefault("nats.url", "nats://127.0.0.1:4222")
	v.SetDefault("simulator.platform", string(model.PlatformAndroid))
	v.SetDefault("simulator.word_delay", "120ms")
	v.SetDefault("simulator.status_bar_height", 24)

	v.SetConfigType("toml")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("bridge-nativesim")
		v.AddConfigPath("/etc/nativebridge")
		v.AddConfigPath("$HOME/.config/nativebridge")
		v.AddConfigPath(".")
	}

	v.BindEnv("nats.url", "BRIDGE_NATS_URL")
	v.BindEnv("nats.token", "BRIDGE_NATS_TOKEN")
	v.BindEnv("security.command_secret", "BRIDGE_COMMAND_SECRET")
	v.BindEnv("simulator.platform", "BRIDGE_PLATFORM")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return FileConfig{}, fmt.Errorf("read config: %w", err)
		}
	}

	if _, err := secrets.Unseal(v); err != nil {
		return FileConfig{}, err
	}

	var fc FileConfig
	if err := v.Unmarshal(&fc); err != nil {
		return fc, err
	}
	if !model.Platform(fc.Simulator.Platform).Valid() {
		return fc, fmt.Errorf("simulator.platform must be android or ios, got %q", fc.Simulator.Platform)
	}
	return fc, nil
}

// Config turns the file configuration into a simulator Config. Font
// directories, when set, back get_sys_fonts_list with a live catalog.
func (fc FileConfig) Config(version string, logger zerolog.Logger) Config {
	cfg := Config{
		NATSUrl:           fc.NATS.URL,
		Platform:          fc.Simulator.Platform,
		Secret:            fc.Security.CommandSecret,
		Version:           version,
		WordDelay:         fc.Simulator.WordDelay,
		StatusBarHeight:   fc.Simulator.StatusBarHeight,
		AuthRedirectURL:   fc.Simulator.AuthRedirectURL,
		CancelledProducts: fc.Simulator.CancelledProducts,
	}
	if fc.NATS.Token != "" {
		cfg.NATSOpts = append(cfg.NATSOpts, nats.Token(fc.NATS.Token))
	}
	if len(fc.Simulator.FontDirs) > 0 {
		cfg.Fonts = fonts.New(fc.Simulator.FontDirs, logger)
	}
	return cfg
}
