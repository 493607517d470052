package config

import (
	"fmt"
	"os"
	"strconv"
)

const envPrefix = "AUTODOC_"

// LoadFromEnv applies AUTODOC_* environment overrides to cfg.
func LoadFromEnv(cfg *Config) error {
	if v := os.Getenv(envPrefix + "LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv(envPrefix + "DB"); v != "" {
		cfg.DB = v
	}
	if v := os.Getenv(envPrefix + "LISTEN"); v != "" {
		cfg.Listen = v
	}
	if v := os.Getenv(envPrefix + "HIGHLIGHT"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: invalid boolean for %sHIGHLIGHT: %q", envPrefix, v)
		}
		cfg.Docs.Highlight = b
	}
	if v := os.Getenv(envPrefix + "MAX_FILES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: invalid integer for %sMAX_FILES: %q", envPrefix, v)
		}
		cfg.Limits.MaxFiles = n
	}
	if v := os.Getenv(envPrefix + "MAX_ARCHIVE_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("config: invalid integer for %sMAX_ARCHIVE_BYTES: %q", envPrefix, v)
		}
		cfg.Limits.MaxArchiveBytes = n
	}
	return nil
}
