package config

import "time"

// applyDefaults fills every unset field with its platform default.  Defaults
// are applied after unmarshalling and before validation, so an explicit
// zero-value in the file is indistinguishable from "unset" — configure
// non-default values explicitly.
func applyDefaults(cfg *Config) {
	db := &cfg.Database
	if db.Host == "" {
		db.Host = "localhost"
	}
	if db.Port == 0 {
		db.Port = 5432
	}
	if db.User == "" {
		db.User = "ozone"
	}
	if db.DBName == "" {
		db.DBName = "ozone"
	}
	if db.SSLMode == "" {
		db.SSLMode = "disable"
	}
	if db.MaxOpenConns == 0 {
		db.MaxOpenConns = 25
	}
	if db.MaxIdleConns == 0 {
		db.MaxIdleConns = 10
	}
	if db.ConnMaxLifetime == 0 {
		db.ConnMaxLifetime = 30 * time.Minute
	}
	if db.ConnMaxIdleTime == 0 {
		db.ConnMaxIdleTime = 5 * time.Minute
	}
	if db.MigrationPath == "" {
		db.MigrationPath = "file://migrations"
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}

	if cfg.Calculation.BatchTimeout == 0 {
		cfg.Calculation.BatchTimeout = 10 * time.Minute
	}
}
