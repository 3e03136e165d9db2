// Package config resolves overlay settings from defaults, an optional config
// file, OVERLAY_* environment variables and bound command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"cmdoverlay/inject"

	"github.com/spf13/viper"
)

const (
	KeyCatalog       = "catalog"
	KeyDataDir       = "data_dir"
	KeyTargetProcess = "target_process"
	KeyOpenKey       = "open_key"
	KeySettle        = "delays.settle"
	KeyKeyHold       = "delays.key_hold"
	KeyPerChar       = "delays.per_char"
	KeyLogLevel      = "log_level"
	KeyLogFile       = "log_file"
)

// Config is the resolved settings.
type Config struct {
	Catalog       string
	DataDir       string
	TargetProcess string
	OpenKey       uint16
	Delays        inject.Delays
	LogLevel      string
	LogFile       string
}

// Defaults registers default values on v.
func Defaults(v *viper.Viper) {
	dataDir := ".cmdoverlay"
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, ".cmdoverlay")
	}
	v.SetDefault(KeyCatalog, "commands.json")
	v.SetDefault(KeyDataDir, dataDir)
	v.SetDefault(KeyTargetProcess, inject.DefaultTarget)
	v.SetDefault(KeyOpenKey, "0x0D")
	v.SetDefault(KeySettle, inject.DefaultDelays.Settle)
	v.SetDefault(KeyKeyHold, inject.DefaultDelays.KeyHold)
	v.SetDefault(KeyPerChar, inject.DefaultDelays.PerChar)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFile, "")
}

// Load reads the config file (explicit path, or config.yaml in the data dir
// if present) and the environment, then resolves the settings.
func Load(v *viper.Viper, path string) (Config, error) {
	Defaults(v)
	v.SetEnvPrefix("OVERLAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(v.GetString(KeyDataDir))
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	return From(v)
}

// From resolves settings already present in v.
func From(v *viper.Viper) (Config, error) {
	key, err := ParseKey(v.GetString(KeyOpenKey))
	if err != nil {
		return Config{}, err
	}

	var delays [3]time.Duration
	for i, name := range []string{KeySettle, KeyKeyHold, KeyPerChar} {
		if delays[i], err = ParseDelay(v.Get(name)); err != nil {
			return Config{}, fmt.Errorf("%s: %w", name, err)
		}
	}

	cfg := Config{
		Catalog:       v.GetString(KeyCatalog),
		DataDir:       v.GetString(KeyDataDir),
		TargetProcess: v.GetString(KeyTargetProcess),
		OpenKey:       key,
		Delays: inject.Delays{
			Settle:  delays[0],
			KeyHold: delays[1],
			PerChar: delays[2],
		},
		LogLevel: v.GetString(KeyLogLevel),
		LogFile:  v.GetString(KeyLogFile),
	}
	if cfg.LogFile == "" {
		cfg.LogFile = filepath.Join(cfg.DataDir, "overlay.log")
	}
	return cfg, nil
}

// ParseDelay reads a delay setting. Plain numbers are milliseconds; strings
// with a unit ("50ms", "1s") are Go durations. Negative delays are rejected.
func ParseDelay(raw any) (time.Duration, error) {
	var d time.Duration
	switch t := raw.(type) {
	case nil:
		return 0, nil
	case time.Duration:
		d = t
	case int:
		d = time.Duration(t) * time.Millisecond
	case int64:
		d = time.Duration(t) * time.Millisecond
	case uint64:
		d = time.Duration(t) * time.Millisecond
	case float64:
		d = time.Duration(t * float64(time.Millisecond))
	case string:
		s := strings.TrimSpace(t)
		if ms, err := strconv.ParseFloat(s, 64); err == nil {
			d = time.Duration(ms * float64(time.Millisecond))
			break
		}
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return 0, fmt.Errorf("invalid delay %q: %w", t, err)
		}
		d = parsed
	default:
		return 0, fmt.Errorf("invalid delay %v (%T)", raw, raw)
	}
	if d < 0 {
		return 0, fmt.Errorf("delay must not be negative, got %s", d)
	}
	return d, nil
}

// ParseKey reads a virtual-key code in decimal or 0x hex.
func ParseKey(s string) (uint16, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 0, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid key code %q: %w", s, err)
	}
	if n == 0 {
		return 0, fmt.Errorf("invalid key code %q: must not be zero", s)
	}
	return uint16(n), nil
}

// CatalogPath resolves a relative catalog path against the working directory
// first and the executable's directory second.
func (c Config) CatalogPath() string {
	if filepath.IsAbs(c.Catalog) {
		return c.Catalog
	}
	if _, err := os.Stat(c.Catalog); err == nil {
		return c.Catalog
	}
	if exe, err := os.Executable(); err == nil {
		return filepath.Join(filepath.Dir(exe), c.Catalog)
	}
	return c.Catalog
}

// Dispatcher returns the inject settings.
func (c Config) Dispatcher() inject.Config {
	return inject.Config{
		Target:  c.TargetProcess,
		OpenKey: c.OpenKey,
		Delays:  c.Delays,
	}
}
