// Package config provides loading and environment overlay for runlog
// configuration. It exposes a Default() baseline, file loading for JSON and
// YAML, and a RUNLOG_* env overlay.
//
// Example:
//
//	cfg := config.Default()
//	if fileCfg, err := config.Load("runlog.yaml"); err == nil {
//	    cfg = fileCfg
//	}
//	config.FromEnv(&cfg)
//	if err := cfg.Validate(); err != nil { ... }
package config
