// Package cliconfig resolves runtime settings from config file,
// environment and defaults, in that order of increasing precedence for
// the environment and flags layered on top by the commands.
package cliconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Defaults applied when neither config file nor environment provide a
// value.
const (
	DefaultListenAddr = ":9090"
	DefaultLogLevel   = "info"
	DefaultLogFormat  = "text"
)

// Settings is the resolved runtime configuration.
type Settings struct {
	DataDir         string `mapstructure:"data_dir"`
	ListenAddr      string `mapstructure:"listen_addr"`
	SubscriptionURL string `mapstructure:"subscription_url"`
	Logging         struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"logging"`
}

// DefaultDataDir returns the per-user data directory.
func DefaultDataDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		base = "."
	}
	return filepath.Join(base, "clashdesk")
}

// Load reads settings. cfgFile overrides the default search path
// (data dir and current directory, file name "config.yaml").
// Environment variables use the CLASHDESK_ prefix with underscores,
// e.g. CLASHDESK_LISTEN_ADDR.
func Load(cfgFile string) (*Settings, error) {
	v := viper.New()

	v.SetDefault("data_dir", DefaultDataDir())
	v.SetDefault("listen_addr", DefaultListenAddr)
	v.SetDefault("subscription_url", "")
	v.SetDefault("logging.level", DefaultLogLevel)
	v.SetDefault("logging.format", DefaultLogFormat)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(DefaultDataDir())
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("CLASHDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing default config file is fine; an explicit or broken
		// one is not.
		_, notFound := err.(viper.ConfigFileNotFoundError)
		if cfgFile != "" || !notFound {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("decode configuration: %w", err)
	}
	return &s, nil
}
