package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// envPrefix is the environment variable prefix used by all settings.
const envPrefix = "OZONE"

// newViper builds a pre-configured Viper instance: YAML file type, OZONE_
// env prefix, automatic env binding, and a key replacer mapping "." → "_"
// so that nested keys like "database.host" resolve to "OZONE_DATABASE_HOST".
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	registerKeys(v)
	return v
}

// registerKeys declares every config key to viper.  AutomaticEnv only
// surfaces OZONE_* variables for keys viper already knows about, so without
// this, env-only loading would silently ignore everything.
func registerKeys(v *viper.Viper) {
	for _, k := range []string{
		"database.host", "database.user", "database.password",
		"database.db_name", "database.ssl_mode", "database.migration_path",
		"log.level", "log.format",
	} {
		v.SetDefault(k, "")
	}
	for _, k := range []string{
		"database.port", "database.max_open_conns", "database.max_idle_conns",
	} {
		v.SetDefault(k, 0)
	}
	for _, k := range []string{
		"database.conn_max_lifetime", "database.conn_max_idle_time",
		"calculation.batch_timeout",
	} {
		v.SetDefault(k, time.Duration(0))
	}
	v.SetDefault("log.output_paths", []string{})
	v.SetDefault("log.error_output_paths", []string{})
}

// Load reads the YAML file at configPath, merges any OZONE_* environment
// variable overrides, applies defaults for unset fields, and validates the
// result.
func Load(configPath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: failed to read config file %q: %w", configPath, err)
	}
	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a Config entirely from OZONE_* environment variables,
// with no config file required.  Preferred for containerised deployments.
//
//	OZONE_<SECTION>_<FIELD>   e.g.  OZONE_DATABASE_HOST, OZONE_LOG_LEVEL
func LoadFromEnv() (*Config, error) {
	return unmarshalAndFinalize(newViper())
}

// unmarshalAndFinalize unmarshals viper state into a Config, applies
// defaults, and validates the result.
func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal: %w", err)
	}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
