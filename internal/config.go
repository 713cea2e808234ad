package internal

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/viper"

	"github.com/tuannm99/novaspatial/internal/spatial"
)

const (
	BackendSegment = "segment"
	BackendPebble  = "pebble"
)

var ErrBadConfig = errors.New("novaspatial: invalid config")

type NovaSpatialConfig struct {
	AppName string `mapstructure:"app_name"`

	Storage struct {
		Backend      string `mapstructure:"backend"`
		Workdir      string `mapstructure:"workdir"`
		PoolCapacity int    `mapstructure:"pool_capacity"`
		// Sync makes pebble writes durable one by one.
		Sync bool `mapstructure:"sync"`
	} `mapstructure:"storage"`

	Spatial struct {
		Grid          []int `mapstructure:"grid"`
		MaxCoverCells int   `mapstructure:"max_cover_cells"`
	} `mapstructure:"spatial"`

	Server struct {
		Addr      string `mapstructure:"addr"`
		Debug     bool   `mapstructure:"debug"`
		TokenHash string `mapstructure:"token_hash"`
	} `mapstructure:"server"`

	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_name", "novaspatial")
	v.SetDefault("storage.backend", BackendSegment)
	v.SetDefault("storage.workdir", "./data")
	v.SetDefault("storage.pool_capacity", 1024)
	v.SetDefault("storage.sync", false)
	v.SetDefault("spatial.grid", spatial.DefaultGrid.Ints())
	v.SetDefault("spatial.max_cover_cells", 1<<14)
	v.SetDefault("server.addr", "127.0.0.1:8866")
	v.SetDefault("server.debug", false)
	v.SetDefault("server.token_hash", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("NOVASPATIAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*NovaSpatialConfig, error) {
	var cfg NovaSpatialConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DefaultConfig returns the built-in defaults with NOVASPATIAL_* overrides.
func DefaultConfig() *NovaSpatialConfig {
	cfg, err := decode(newViper())
	if err != nil {
		slog.Warn("config.env.invalid", "err", err)
		v := viper.New()
		setDefaults(v)
		cfg, _ = decode(v)
	}
	return cfg
}

// LoadConfig reads a YAML file. An empty path yields DefaultConfig.
func LoadConfig(path string) (*NovaSpatialConfig, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return decode(v)
}

// LoadConfigFrom reads YAML from r.
func LoadConfigFrom(r io.Reader) (*NovaSpatialConfig, error) {
	v := newViper()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return decode(v)
}

func (c *NovaSpatialConfig) Validate() error {
	switch c.Storage.Backend {
	case BackendSegment, BackendPebble:
	default:
		return fmt.Errorf("%w: storage.backend %q", ErrBadConfig, c.Storage.Backend)
	}
	if c.Storage.Workdir == "" {
		return fmt.Errorf("%w: storage.workdir is empty", ErrBadConfig)
	}
	if c.Storage.PoolCapacity <= 0 {
		return fmt.Errorf("%w: storage.pool_capacity %d", ErrBadConfig, c.Storage.PoolCapacity)
	}
	if _, err := c.Grid(); err != nil {
		return fmt.Errorf("%w: %v", ErrBadConfig, err)
	}
	if c.Spatial.MaxCoverCells <= 0 {
		return fmt.Errorf("%w: spatial.max_cover_cells %d", ErrBadConfig, c.Spatial.MaxCoverCells)
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log.format %q", ErrBadConfig, c.Log.Format)
	}
	return nil
}

func (c *NovaSpatialConfig) Grid() (spatial.Grid, error) {
	return spatial.GridFromInts(c.Spatial.Grid)
}

func (c *NovaSpatialConfig) LogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("%w: log.level %q", ErrBadConfig, c.Log.Level)
	}
	return lvl, nil
}

// NewLogger builds the slog handler selected by the log section.
func (c *NovaSpatialConfig) NewLogger(w io.Writer) *slog.Logger {
	lvl, err := c.LogLevel()
	if err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
