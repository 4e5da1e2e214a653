// Package config loads the wrapper's persisted settings, creating them with defaults when
// they are missing or unusable. Loading never fails the program.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	DefaultFileName   = "mwrap.json"
	DefaultMemorySize = 4096
	DefaultCronTime   = "0 3 * * *"
	DefaultTimeZone   = "Europe/Berlin"

	// EnvPrefix namespaces environment overrides, e.g. MWRAP_MEMORYSIZE or MWRAP_AUTORESTART_ENABLED.
	EnvPrefix = "MWRAP"
)

// AutoRestart describes the optional scheduled restart.
type AutoRestart struct {
	Enabled  bool   `json:"enabled" mapstructure:"enabled"`
	CronTime string `json:"cronTime" mapstructure:"cronTime"`
	TimeZone string `json:"timeZone" mapstructure:"timeZone"`
}

// Config is the persisted settings record.
type Config struct {
	// MemorySize is the server heap in megabytes.
	MemorySize  int         `json:"memorySize" mapstructure:"memorySize"`
	AutoRestart AutoRestart `json:"autoRestart" mapstructure:"autoRestart"`
}

// Default returns the record written when no usable settings file exists.
func Default() Config {
	return Config{
		MemorySize: DefaultMemorySize,
		AutoRestart: AutoRestart{
			Enabled:  false,
			CronTime: DefaultCronTime,
			TimeZone: DefaultTimeZone,
		},
	}
}

// Validate rejects records no server can be launched from.
func (c Config) Validate() error {
	if c.MemorySize <= 0 {
		return fmt.Errorf("memorySize must be a positive number of megabytes, got %d", c.MemorySize)
	}
	return nil
}

// LoadError explains why a settings file was not used. Load recovers from it locally.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load config %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Load reads path. When the file is absent, unreadable, malformed or invalid, an existing
// file is moved aside to path+".bak", the defaults are persisted to path and returned.
// A nil logger discards the reports.
func Load(path string, logger *log.Logger) Config {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	cfg, err := Read(path)
	if err == nil {
		logger.Printf("Loaded config from %s.", path)
		return cfg
	}

	logger.Printf("Couldn't load config (%v). Creating and loading default config.", err)
	if _, statErr := os.Stat(path); statErr == nil {
		backup := path + ".bak"
		if err := os.Rename(path, backup); err != nil {
			logger.Printf("Failed to back up %s: %v", path, err)
		} else {
			logger.Printf("Moved unusable config to %s.", backup)
		}
	}

	def := Default()
	if err := Save(path, def); err != nil {
		logger.Printf("Failed to persist default config: %v", err)
	}
	return def
}

// Read parses path with environment overrides applied and missing keys defaulted.
func Read(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	def := Default()
	v.SetDefault("memorySize", def.MemorySize)
	v.SetDefault("autoRestart.enabled", def.AutoRestart.Enabled)
	v.SetDefault("autoRestart.cronTime", def.AutoRestart.CronTime)
	v.SetDefault("autoRestart.timeZone", def.AutoRestart.TimeZone)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, &LoadError{Path: path, Err: err}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, &LoadError{Path: path, Err: err}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, &LoadError{Path: path, Err: err}
	}
	return cfg, nil
}

// Save writes cfg as JSON through a temp file and rename, so a crash never leaves a
// half-written settings file.
func Save(path string, cfg Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".mwrap-*.json")
	if err != nil {
		return fmt.Errorf("create temp config: %w", err)
	}
	tmpName := tmp.Name()

	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()
	if err := errors.Join(writeErr, closeErr); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("chmod config: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename config: %w", err)
	}
	return nil
}
