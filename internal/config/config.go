// Package config loads mindcanvas settings from a YAML file with
// MINDCANVAS_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"mindcanvas/internal/geometry"
	"mindcanvas/internal/layout"
	"mindcanvas/internal/storage"
	"mindcanvas/internal/store"
)

const (
	EnvPrefix = "MINDCANVAS_"
	AppName   = "mindcanvas"
)

type Config struct {
	Storage       Storage  `koanf:"storage"`
	Log           Log      `koanf:"log"`
	SaveDirectory string   `koanf:"save_directory"`
	Canvas        Canvas   `koanf:"canvas"`
	Autosave      Autosave `koanf:"autosave"`
}

type Storage struct {
	Driver string `koanf:"driver" validate:"oneof=file sqlite redis memory"`
	// Path is a directory for the file driver and a database file for
	// sqlite.
	Path     string `koanf:"path"`
	RedisURL string `koanf:"redis_url" validate:"required_if=Driver redis"`
	Prefix   string `koanf:"prefix"`
}

type Log struct {
	Level string `koanf:"level" validate:"oneof=debug info warn error"`
	File  string `koanf:"file"`
}

// Canvas sizes the nominal map used for placing new cards before the
// terminal size is known.
type Canvas struct {
	MapWidth   float64 `koanf:"map_width" validate:"gt=0"`
	MapHeight  float64 `koanf:"map_height" validate:"gt=0"`
	Margin     float64 `koanf:"margin" validate:"gte=0"`
	MinSpacing float64 `koanf:"min_spacing" validate:"gte=0"`
}

type Autosave struct {
	Debounce time.Duration `koanf:"debounce" validate:"gte=0"`
}

// Default returns the settings used when nothing is configured.
func Default() *Config {
	return &Config{
		Storage: Storage{
			Driver: string(storage.DriverFile),
			Path:   filepath.Join(userDir(os.UserConfigDir, ".config"), AppName, "data"),
			Prefix: storage.DefaultRedisPrefix,
		},
		Log: Log{
			Level: "info",
			File:  filepath.Join(stateDir(), AppName, AppName+".log"),
		},
		Canvas: Canvas{
			MapWidth:   store.DefaultMapSize.Width,
			MapHeight:  store.DefaultMapSize.Height,
			Margin:     layout.DefaultMargin,
			MinSpacing: layout.DefaultMinSpacing,
		},
		Autosave: Autosave{Debounce: storage.DefaultAutosaveDebounce},
	}
}

// DefaultPath is ~/.config/mindcanvas/config.yaml.
func DefaultPath() string {
	return filepath.Join(userDir(os.UserConfigDir, ".config"), AppName, "config.yaml")
}

// Load reads path if it exists, overlays the environment and validates the
// result. An empty path uses DefaultPath.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}
	k := koanf.New(".")
	cfg := Default()

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	// MINDCANVAS_STORAGE_REDIS_URL -> storage.redis_url
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	cfg.Storage.Path = expandHome(cfg.Storage.Path)
	if cfg.Storage.Driver == string(storage.DriverSQLite) && cfg.Storage.Path == Default().Storage.Path {
		cfg.Storage.Path = filepath.Join(filepath.Dir(cfg.Storage.Path), AppName+".db")
	}
	cfg.Log.File = expandHome(cfg.Log.File)
	cfg.SaveDirectory = expandHome(cfg.SaveDirectory)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var sections = []string{"storage", "log", "canvas", "autosave"}

func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	for _, sec := range sections {
		if rest, ok := strings.CutPrefix(key, sec+"_"); ok {
			return sec + "." + rest
		}
	}
	return key
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks every field against its constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, len(verrs))
			for i, fe := range verrs {
				msgs[i] = fmt.Sprintf("%s fails %q", fe.Namespace(), fe.Tag())
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	switch storage.Driver(c.Storage.Driver) {
	case storage.DriverFile, storage.DriverSQLite:
		if c.Storage.Path == "" {
			return fmt.Errorf("invalid config: storage.path is required for the %s driver", c.Storage.Driver)
		}
	}
	return nil
}

// StorageOptions converts the storage section for storage.Open.
func (c *Config) StorageOptions() storage.Options {
	return storage.Options{
		Driver:   storage.Driver(c.Storage.Driver),
		Path:     c.Storage.Path,
		RedisURL: c.Storage.RedisURL,
		Prefix:   c.Storage.Prefix,
	}
}

// MapSize returns the configured nominal map size.
func (c *Config) MapSize() geometry.Size {
	return geometry.Size{Width: c.Canvas.MapWidth, Height: c.Canvas.MapHeight}
}

// LogLevel parses the configured level, falling back to info.
func (c *Config) LogLevel() log.Level {
	lvl, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

// SavePath places filename in the save directory, creating it when needed.
// Absolute filenames and an empty save directory leave filename untouched.
func (c *Config) SavePath(filename string) string {
	filename = expandHome(filename)
	if c.SaveDirectory == "" || filepath.IsAbs(filename) {
		return filename
	}
	os.MkdirAll(c.SaveDirectory, 0o755)
	return filepath.Join(c.SaveDirectory, filename)
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

func userDir(lookup func() (string, error), fallback string) string {
	if dir, err := lookup(); err == nil && dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, fallback)
}

func stateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "state")
}
