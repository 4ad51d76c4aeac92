// Package config loads the streakr YAML configuration file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sadopc/streakr/internal/xp"
	"gopkg.in/yaml.v3"
)

// EnvPath overrides the config file location.
const EnvPath = "STREAKR_CONFIG"

type Config struct {
	DBPath       string        `yaml:"db_path"`
	StatePath    string        `yaml:"state_path"`
	LogPath      string        `yaml:"log_path"`
	LogLevel     string        `yaml:"log_level"`
	TickInterval time.Duration `yaml:"tick_interval"`
	XP           xp.Weighted   `yaml:"xp"`
}

// DefaultXP is the award table used when the config file names no weights.
var DefaultXP = xp.Weighted{
	Base:            10,
	PerFocusMinutes: 5,
	StreakBonus:     2,
	StreakCap:       7,
	EstimateBonus:   5,
	DailyBonus:      5,
}

// Dir is the directory holding the config file, database, state and log.
func Dir() (string, error) {
	cfg, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cfg, "streakr"), nil
}

// Path returns the config file location, honouring $STREAKR_CONFIG.
func Path() (string, error) {
	if p := os.Getenv(EnvPath); p != "" {
		return p, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Default returns a config rooted at dir.
func Default(dir string) *Config {
	return &Config{
		DBPath:       filepath.Join(dir, "streakr.db"),
		StatePath:    filepath.Join(dir, "state.yaml"),
		LogPath:      filepath.Join(dir, "streakr.log"),
		LogLevel:     "info",
		TickInterval: time.Second,
		XP:           DefaultXP,
	}
}

// Load reads the file at path over the defaults. An empty path resolves via
// Path; a missing file yields the defaults.
func Load(path string) (*Config, error) {
	dir, err := Dir()
	if err != nil {
		return nil, fmt.Errorf("resolve config dir: %w", err)
	}
	if path == "" {
		if path, err = Path(); err != nil {
			return nil, fmt.Errorf("resolve config path: %w", err)
		}
	}

	cfg := Default(dir)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := Decode(bytes.NewReader(data), cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Decode overlays the YAML document in r onto cfg and validates the result.
// Unknown keys are rejected.
func Decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	var err error
	for _, p := range []*string{&cfg.DBPath, &cfg.StatePath, &cfg.LogPath} {
		if *p, err = expandHome(*p); err != nil {
			return err
		}
	}
	return cfg.Validate()
}

func (c *Config) Validate() error {
	if c.TickInterval <= 0 {
		return fmt.Errorf("tick_interval must be positive, got %s", c.TickInterval)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.DBPath == "" {
		return errors.New("db_path must not be empty")
	}
	if c.StatePath == "" {
		return errors.New("state_path must not be empty")
	}
	w := c.XP
	for name, v := range map[string]int{
		"xp.base": w.Base, "xp.per_focus_minutes": w.PerFocusMinutes,
		"xp.streak_bonus": w.StreakBonus, "xp.streak_cap": w.StreakCap,
		"xp.estimate_bonus": w.EstimateBonus, "xp.daily_bonus": w.DailyBonus,
	} {
		if v < 0 {
			return fmt.Errorf("%s must not be negative, got %d", name, v)
		}
	}
	return nil
}

// Level returns the configured slog level.
func (c *Config) Level() slog.Level {
	l, _ := ParseLevel(c.LogLevel)
	return l
}

// Marshal renders the effective config as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log_level %q (want debug, info, warn or error)", s)
}

func expandHome(p string) (string, error) {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("expand %s: %w", p, err)
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~")), nil
}
