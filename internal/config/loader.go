package config

import (
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/turtacn/platemap/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/platemap/pkg/errors"
)

// envPrefix is the environment variable prefix used by all settings.
const envPrefix = "PLATEMAP"

// newViper builds a Viper instance with YAML files, the PLATEMAP_ env prefix
// and a "." → "_" key replacer so "redis.addr" resolves to PLATEMAP_REDIS_ADDR.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// Load reads the YAML file at configPath, merges PLATEMAP_* environment
// overrides, applies defaults and validates. An empty configPath loads from
// defaults and the environment only.
func Load(configPath string) (*Config, error) {
	v := newViper()
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, errors.ErrCodeConfigInvalid, "config: failed to read config file %q", configPath)
		}
	}
	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a Config from PLATEMAP_* variables and defaults.
//
//	PLATEMAP_<SECTION>_<FIELD>   e.g.  PLATEMAP_REDIS_ADDR, PLATEMAP_ENUMERATION_WORKERS
func LoadFromEnv() (*Config, error) {
	return Load("")
}

func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "config: failed to unmarshal configuration")
	}
	ApplyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Watch re-reads configPath whenever it changes and passes the new Config to
// onChange. A change that fails to parse or validate is logged and skipped.
// Watch does not block.
func Watch(configPath string, log logging.Logger, onChange func(*Config)) error {
	log = logging.OrNop(log)
	v := newViper()
	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		return errors.Wrapf(err, errors.ErrCodeConfigInvalid, "config: failed to read config file %q", configPath)
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := unmarshalAndFinalize(v)
		if err != nil {
			log.Warn("Ignoring invalid configuration change",
				logging.String("file", e.Name), logging.Err(err))
			return
		}
		log.Info("Configuration reloaded", logging.String("file", e.Name))
		onChange(cfg)
	})
	v.WatchConfig()
	return nil
}

//Personal.AI order the ending
