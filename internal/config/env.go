package config

import (
	"os"
	"strconv"
)

// FromEnv overlays RUNLOG_* environment variables onto cfg.
func FromEnv(cfg *Config) {
	if v := os.Getenv("RUNLOG_ROOT_DIR"); v != "" {
		cfg.RootDir = v
	}
	if v := os.Getenv("RUNLOG_NAME"); v != "" {
		cfg.Name = v
	}
	if v := os.Getenv("RUNLOG_VERSION"); v != "" {
		cfg.Version = v
	}
	if v := os.Getenv("RUNLOG_FLUSH_EVERY_N_STEPS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.FlushEveryNSteps = n
		}
	}
	if v := os.Getenv("RUNLOG_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("RUNLOG_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
}
