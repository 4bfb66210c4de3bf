package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	AppName               = "duely"
	DefaultConfigFileName = "config.toml"
	DefaultDBName         = "todo.db"
	DefaultSweepInterval  = "20s"
	DefaultDescription    = "Don't forget to do this work"

	// EnvConfig overrides the config file location.
	EnvConfig = "DUELY_CONFIG"
)

type Keymap struct {
	Quit    string `toml:"quit"`
	Add     string `toml:"add"`
	Up      string `toml:"up"`
	Down    string `toml:"down"`
	Toggle  string `toml:"toggle"`
	Delete  string `toml:"delete"`
	Confirm string `toml:"confirm"`
	Cancel  string `toml:"cancel"`
	Edit    string `toml:"edit"`
	Search  string `toml:"search"`
	Undo    string `toml:"undo"`
	Filter  string `toml:"filter"`
	Next    string `toml:"next_field"`
	Prev    string `toml:"prev_field"`
}

type Notify struct {
	Enabled     bool     `toml:"enabled"`
	Description string   `toml:"description"`
	Command     []string `toml:"command,omitempty"`
}

type Log struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

type Config struct {
	DBPath        string `toml:"db_path"`
	DefaultFilter string `toml:"default_filter"`
	HideCompleted bool   `toml:"hide_completed"`
	SweepInterval string `toml:"sweep_interval"`
	Notify        Notify `toml:"notify"`
	Log           Log    `toml:"log"`
	Keys          Keymap `toml:"keys"`
}

// ResolveConfigPath returns $DUELY_CONFIG when set, else the config file
// under the user config dir, else one in the working directory.
func ResolveConfigPath() string {
	if p := os.Getenv(EnvConfig); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return DefaultConfigFileName
	}
	return filepath.Join(dir, AppName, DefaultConfigFileName)
}

// LoadOrCreate reads path, writing the defaults there first if it doesn't
// exist. A relative db_path or log file is taken relative to the config.
func LoadOrCreate(path string) (Config, error) {
	cfg := defaultConfig()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := write(path, cfg); err != nil {
			return cfg, err
		}
		return cfg.resolve(path), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	if cfg.DBPath == "" {
		cfg.DBPath = DefaultDBName
	}
	if cfg.SweepInterval == "" {
		cfg.SweepInterval = DefaultSweepInterval
	}
	if cfg.Notify.Description == "" {
		cfg.Notify.Description = DefaultDescription
	}
	if _, err := cfg.SweepEvery(); err != nil {
		return cfg, err
	}
	cfg.Keys = cfg.Keys.withDefaults(defaultKeymap())
	return cfg.resolve(path), nil
}

// SweepEvery parses sweep_interval.
func (c Config) SweepEvery() (time.Duration, error) {
	d, err := time.ParseDuration(c.SweepInterval)
	if err != nil {
		return 0, fmt.Errorf("sweep_interval: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("sweep_interval: must be positive, got %s", c.SweepInterval)
	}
	return d, nil
}

func (c Config) resolve(path string) Config {
	base := filepath.Dir(path)
	c.DBPath = relativeTo(base, c.DBPath)
	if c.Log.File != "" {
		c.Log.File = relativeTo(base, c.Log.File)
	}
	return c
}

func relativeTo(base, p string) string {
	if p == "" || filepath.IsAbs(p) || p == ":memory:" || strings.HasPrefix(p, "file:") {
		return p
	}
	return filepath.Join(base, p)
}

func write(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (k Keymap) withDefaults(d Keymap) Keymap {
	fill := func(v *string, def string) {
		if *v == "" {
			*v = def
		}
	}
	fill(&k.Quit, d.Quit)
	fill(&k.Add, d.Add)
	fill(&k.Up, d.Up)
	fill(&k.Down, d.Down)
	fill(&k.Toggle, d.Toggle)
	fill(&k.Delete, d.Delete)
	fill(&k.Confirm, d.Confirm)
	fill(&k.Cancel, d.Cancel)
	fill(&k.Edit, d.Edit)
	fill(&k.Search, d.Search)
	fill(&k.Undo, d.Undo)
	fill(&k.Filter, d.Filter)
	fill(&k.Next, d.Next)
	fill(&k.Prev, d.Prev)
	return k
}

func defaultConfig() Config {
	return Config{
		DBPath:        DefaultDBName,
		DefaultFilter: "all",
		SweepInterval: DefaultSweepInterval,
		Notify: Notify{
			Enabled:     true,
			Description: DefaultDescription,
		},
		Log: Log{
			Level: "info",
			File:  "duely.log",
		},
		Keys: defaultKeymap(),
	}
}

func defaultKeymap() Keymap {
	return Keymap{
		Quit:    "q",
		Add:     "a",
		Up:      "k",
		Down:    "j",
		Toggle:  " ",
		Delete:  "d",
		Confirm: "enter",
		Cancel:  "esc",
		Edit:    "e",
		Search:  "/",
		Undo:    "u",
		Filter:  "f",
		Next:    "tab",
		Prev:    "shift+tab",
	}
}
