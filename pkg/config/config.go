// Package config resolves process configuration from CLI flags via
// github.com/spf13/pflag's GNU-style long flags.
package config

import (
	"time"

	"github.com/spf13/pflag"
)

// Config holds every knob cmd/tradeserver needs to start the server.
type Config struct {
	IP             string
	Port           int
	DatabaseURI    string
	LogPath        string
	SessionCleanup time.Duration
}

// Default returns a Config where every field has a sane value with no
// external input required.
func Default() Config {
	return Config{
		IP:             "127.0.0.1",
		Port:           8080,
		DatabaseURI:    "local.db",
		LogPath:        "",
		SessionCleanup: 10 * time.Second,
	}
}

// Parse builds a Config from args (typically os.Args[1:]), overriding
// Default()'s values with any flags present.
func Parse(args []string) (Config, error) {
	cfg := Default()

	fs := pflag.NewFlagSet("tradeserver", pflag.ContinueOnError)
	fs.StringVar(&cfg.IP, "ip", cfg.IP, "listen address")
	fs.IntVar(&cfg.Port, "port", cfg.Port, "listen port")
	fs.StringVar(&cfg.DatabaseURI, "database-uri", cfg.DatabaseURI, "sqlite database path")
	fs.StringVar(&cfg.LogPath, "log-path", cfg.LogPath, "optional file to additionally tee logs to")
	fs.DurationVar(&cfg.SessionCleanup, "session-cleanup-interval", cfg.SessionCleanup, "interval between session expiry sweeps")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
