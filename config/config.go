// Package config loads settings from an optional config file and
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const EnvPrefix = "TOYSQL_"

type Config struct {
	DataDir string        `mapstructure:"data_dir"`
	Log     LogConfig     `mapstructure:"log"`
	Storage StorageConfig `mapstructure:"storage"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type StorageConfig struct {
	SyncWrites bool `mapstructure:"sync_writes"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", "./data")
	v.SetDefault("log.level", "INFO")
	v.SetDefault("log.format", "text")
	v.SetDefault("storage.sync_writes", true)
	v.SetDefault("metrics.addr", "")
}

// flagKeys maps command line flags to config keys.
var flagKeys = map[string]string{
	"data-dir":     "data_dir",
	"log-level":    "log.level",
	"log-format":   "log.format",
	"metrics-addr": "metrics.addr",
	"sync":         "storage.sync_writes",
}

// Load fills target from, lowest precedence first: defaults, file (if
// non-empty), environment variables starting with prefix, then the flags in
// flags that were set. TOYSQL_LOG__LEVEL sets log.level: a double underscore
// separates sections, a single one stays part of the key.
func Load(prefix, file string, flags *pflag.FlagSet, target *Config) error {
	v := viper.New()
	setDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !os.IsNotExist(err) {
				return fmt.Errorf("config: failed to read %s: %w", file, err)
			}
		}
	}

	v.SetEnvPrefix(strings.TrimSuffix(prefix, "_"))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "__"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return fmt.Errorf("config: failed to bind flag %s: %w", name, err)
			}
		}
	}

	if err := v.Unmarshal(target); err != nil {
		return fmt.Errorf("config: failed to unmarshal: %w", err)
	}

	return nil
}
