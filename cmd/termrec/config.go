package main

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"

	"github.com/choonkeat/termrec/termsession"
)

// envPrefix namespaces every environment override, e.g. TERMREC_OUTPUT_DIR.
const envPrefix = "TERMREC_"

// Config is the persistent part of termrec's settings. Values are layered:
// defaults, then the TOML file, then TERMREC_* environment variables, then
// command-line flags.
type Config struct {
	// OutputDir receives session-<uuid>.json files when --output is not given.
	OutputDir string `toml:"output_dir" env:"OUTPUT_DIR"`
	// Shell runs string commands. Empty means $SHELL, then /bin/sh.
	Shell string `toml:"shell" env:"SHELL"`
	// LogFile receives diagnostics. Empty discards them.
	LogFile string `toml:"log_file" env:"LOG_FILE"`
	// DebugLog receives decoded output text as it is recorded.
	DebugLog string `toml:"debug_log" env:"DEBUG_LOG"`

	DrainTimeout time.Duration `toml:"drain_timeout" env:"DRAIN_TIMEOUT"`
	KillGrace    time.Duration `toml:"kill_grace" env:"KILL_GRACE"`
}

// defaultConfig returns the settings used when nothing overrides them.
func defaultConfig() Config {
	return Config{
		OutputDir:    filepath.Join("~", ".termrec", "recordings"),
		DrainTimeout: termsession.DefaultDrainTimeout,
		KillGrace:    termsession.DefaultKillGrace,
	}
}

// defaultConfigPath is ~/.termrec/config.toml.
func defaultConfigPath() string {
	return filepath.Join("~", ".termrec", "config.toml")
}

// loadConfig layers the config file at path and the environment over the
// defaults. A missing file is only an error when the user named it.
func loadConfig(path string, explicit bool) (Config, error) {
	cfg := defaultConfig()

	if path != "" {
		expanded, err := expandTilde(path)
		if err != nil {
			return Config{}, err
		}
		_, err = toml.DecodeFile(expanded, &cfg)
		switch {
		case err == nil:
		case errors.Is(err, fs.ErrNotExist) && !explicit:
		default:
			return Config{}, fmt.Errorf("load config %s: %w", path, err)
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: envPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
