// Package config loads the sheetslicer settings file.
//
// Settings live in TOML at $XDG_CONFIG_HOME/sheetslicer/config.toml
// (~/.config/sheetslicer/config.toml when the variable is unset). A
// missing file means defaults. Keys absent from the file keep their
// defaults, and out-of-range numbers are clamped on load:
//
//	[grid]
//	columns = 10
//	rows = 7
//
//	[export]
//	format = "jpg"
//	quality = 85
//	background = "#FFFFFF"
package config

import (
	"bytes"
	"image/color"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/sheetslicer/pkg/cache"
	sserrors "github.com/matzehuels/sheetslicer/pkg/errors"
	"github.com/matzehuels/sheetslicer/pkg/export"
	"github.com/matzehuels/sheetslicer/pkg/grid"
	"github.com/matzehuels/sheetslicer/pkg/integrations/arkhamdb"
	"github.com/matzehuels/sheetslicer/pkg/storage"
)

const appName = "sheetslicer"

// Grid dimensions accepted from the settings file.
const (
	MinGrid = 1
	MaxGrid = 50
)

// Cache backends.
const (
	CacheFile  = "file"
	CacheRedis = "redis"
	CacheNone  = "none"
)

// Config is the whole settings file.
type Config struct {
	Grid     grid.Spec      `toml:"grid"`
	Export   ExportConfig   `toml:"export"`
	ArkhamDB ArkhamDBConfig `toml:"arkhamdb"`
	Cache    CacheConfig    `toml:"cache"`
	Storage  StorageConfig  `toml:"storage"`
	Server   ServerConfig   `toml:"server"`
}

// ExportConfig holds the export defaults.
type ExportConfig struct {
	Format          string `toml:"format"`
	Quality         int    `toml:"quality"`
	Background      string `toml:"background"`
	FrontSuffix     string `toml:"front_suffix"`
	BackSuffix      string `toml:"back_suffix"`
	IncludeCardCode bool   `toml:"include_card_code"`
	SkipUnnamed     bool   `toml:"skip_unnamed"`
}

// ArkhamDBConfig configures card lookup.
type ArkhamDBConfig struct {
	Enabled          bool          `toml:"enabled"`
	BaseURL          string        `toml:"base_url"`
	ImageBase        string        `toml:"image_base"`
	IncludeEncounter bool          `toml:"include_encounter"`
	Limit            int           `toml:"limit"`
	Timeout          time.Duration `toml:"timeout"`
}

// CacheConfig selects where lookup responses are kept between runs.
type CacheConfig struct {
	Backend string            `toml:"backend"`
	Dir     string            `toml:"dir"`
	Redis   cache.RedisConfig `toml:"redis"`
}

// StorageConfig enables uploading exports to object storage.
type StorageConfig struct {
	Enabled bool `toml:"enabled"`
	storage.Config
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// Default returns the settings of a fresh installation.
func Default() *Config {
	return &Config{
		Grid: grid.Spec{Columns: 10, Rows: 7},
		Export: ExportConfig{
			Format:          "jpg",
			Quality:         export.DefaultQuality,
			Background:      "#FFFFFF",
			FrontSuffix:     export.DefaultFrontSuffix,
			BackSuffix:      export.DefaultBackSuffix,
			IncludeCardCode: true,
		},
		ArkhamDB: ArkhamDBConfig{
			Enabled:          true,
			BaseURL:          arkhamdb.DefaultBaseURL,
			ImageBase:        arkhamdb.DefaultImageBase,
			IncludeEncounter: true,
			Limit:            arkhamdb.DefaultLimit,
			Timeout:          10 * time.Second,
		},
		Cache: CacheConfig{
			Backend: CacheFile,
			Redis:   cache.RedisConfig{Addr: "localhost:6379", Prefix: appName + ":"},
		},
		Server: ServerConfig{Addr: ":8080"},
	}
}

// Dir returns the settings directory using the XDG standard.
func Dir() (string, error) {
	if home := os.Getenv("XDG_CONFIG_HOME"); home != "" {
		return filepath.Join(home, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName), nil
}

// Path returns the default settings file.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// CacheDir returns the default file cache directory (~/.cache/sheetslicer).
func CacheDir() (string, error) {
	if home := os.Getenv("XDG_CACHE_HOME"); home != "" {
		return filepath.Join(home, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// Load reads path over the defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, sserrors.Wrap(sserrors.ErrCodeInvalidConfig, err, "read %s", path)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, sserrors.Wrap(sserrors.ErrCodeInvalidConfig, err, "parse %s", path)
	}
	cfg.clamp()
	cfg.SetDefaults()
	return cfg, nil
}

// Save writes cfg to path, creating the directory.
func (c *Config) Save(path string) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return sserrors.Wrap(sserrors.ErrCodeInternal, err, "encode config")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return sserrors.Wrap(sserrors.ErrCodeInvalidPath, err, "create %s", filepath.Dir(path))
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return sserrors.Wrap(sserrors.ErrCodeInvalidPath, err, "write %s", path)
	}
	return nil
}

// clamp pulls numbers into range the way the settings dialog did.
func (c *Config) clamp() {
	c.Grid.Columns = min(max(c.Grid.Columns, MinGrid), MaxGrid)
	c.Grid.Rows = min(max(c.Grid.Rows, MinGrid), MaxGrid)
	c.Export.Quality = min(max(c.Export.Quality, 1), 100)
}

// SetDefaults fills empty strings that have a default.
func (c *Config) SetDefaults() {
	d := Default()
	if c.Export.Format == "" {
		c.Export.Format = d.Export.Format
	}
	if c.Export.Background == "" {
		c.Export.Background = d.Export.Background
	}
	if c.ArkhamDB.BaseURL == "" {
		c.ArkhamDB.BaseURL = d.ArkhamDB.BaseURL
	}
	if c.ArkhamDB.ImageBase == "" {
		c.ArkhamDB.ImageBase = d.ArkhamDB.ImageBase
	}
	if c.ArkhamDB.Limit <= 0 {
		c.ArkhamDB.Limit = d.ArkhamDB.Limit
	}
	if c.ArkhamDB.Timeout <= 0 {
		c.ArkhamDB.Timeout = d.ArkhamDB.Timeout
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = d.Cache.Backend
	}
	if c.Server.Addr == "" {
		c.Server.Addr = d.Server.Addr
	}
}

// Validate checks values that cannot be clamped.
func (c *Config) Validate() error {
	if err := c.Grid.Validate(); err != nil {
		return err
	}
	if _, err := export.ParseFormat(c.Export.Format); err != nil {
		return sserrors.Wrap(sserrors.ErrCodeInvalidConfig, err, "export.format")
	}
	if _, err := ParseHexColor(c.Export.Background); err != nil {
		return sserrors.Wrap(sserrors.ErrCodeInvalidConfig, err, "export.background")
	}
	if err := sserrors.ValidateURL(c.ArkhamDB.BaseURL); err != nil {
		return sserrors.Wrap(sserrors.ErrCodeInvalidConfig, err, "arkhamdb.base_url")
	}
	switch c.Cache.Backend {
	case CacheFile, CacheNone:
	case CacheRedis:
		if c.Cache.Redis.Addr == "" {
			return sserrors.New(sserrors.ErrCodeInvalidConfig, "cache.redis.addr is required for the redis backend")
		}
	default:
		return sserrors.New(sserrors.ErrCodeInvalidConfig, "cache.backend must be one of: file, redis, none (got %q)", c.Cache.Backend)
	}
	if c.Storage.Enabled {
		if err := c.Storage.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ExportOptions converts the export section into pipeline options.
func (c *Config) ExportOptions() (export.Options, error) {
	format, err := export.ParseFormat(c.Export.Format)
	if err != nil {
		return export.Options{}, err
	}
	bg, err := ParseHexColor(c.Export.Background)
	if err != nil {
		return export.Options{}, err
	}
	return export.Options{
		Format:          format,
		Quality:         c.Export.Quality,
		Background:      bg,
		FrontSuffix:     c.Export.FrontSuffix,
		BackSuffix:      c.Export.BackSuffix,
		IncludeCardCode: c.Export.IncludeCardCode,
		SkipUnnamed:     c.Export.SkipUnnamed,
	}, nil
}

// ArkhamDBOptions converts the arkhamdb section into client options.
// Backend and Logger are left for the caller.
func (c *Config) ArkhamDBOptions() arkhamdb.Options {
	return arkhamdb.Options{
		BaseURL:   c.ArkhamDB.BaseURL,
		ImageBase: c.ArkhamDB.ImageBase,
		Limit:     c.ArkhamDB.Limit,
		Timeout:   c.ArkhamDB.Timeout,
	}
}

// ParseHexColor parses "#RRGGBB" or "#RGB", with or without the hash.
func ParseHexColor(s string) (color.NRGBA, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return color.NRGBA{}, sserrors.New(sserrors.ErrCodeInvalidInput, "invalid color %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.NRGBA{}, sserrors.New(sserrors.ErrCodeInvalidInput, "invalid color %q", s)
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
}
