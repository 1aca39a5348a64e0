// Package config provides loading and environment overlay for the txlog
// command configuration. It exposes a Default() baseline that a JSON or YAML
// file and TXLOG_* variables refine.
//
// Example:
//
//	cfg, err := config.Load("/etc/txlog.yaml")
//	if err != nil {
//	    return err
//	}
//	config.FromEnv(&cfg)
package config
