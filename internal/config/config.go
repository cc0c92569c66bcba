// Package config loads fosse's settings from fosse-config.yml, FOSSE_*
// environment variables and command-line flags, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/fosse-media/fosse/internal/validation"
)

// DefaultFile is read from the working directory when no file is given.
const DefaultFile = "fosse-config.yml"

// EnvPrefix prefixes every environment override, e.g. FOSSE_SCAN_WORKERS.
const EnvPrefix = "FOSSE"

// Config holds the application configuration.
type Config struct {
	Root             string   `mapstructure:"root"`
	VideoExtensions  []string `mapstructure:"video_extensions" validate:"min=1,dive,required"`
	NotebookFilename string   `mapstructure:"notebook_filename" validate:"required,excludesall=/\\"`
	DBFile           string   `mapstructure:"db_file" validate:"required"`
	LogFile          string   `mapstructure:"log_file"`
	LogLevel         string   `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	Environment      string   `mapstructure:"environment" validate:"oneof=development staging production"`
	// FFprobePath overrides the ffprobe binary; empty means look it up on PATH.
	FFprobePath string `mapstructure:"ffprobe_path"`

	Scan   ScanConfig   `mapstructure:"scan"`
	Server ServerConfig `mapstructure:"server"`
	Watch  WatchConfig  `mapstructure:"watch"`
	Search SearchConfig `mapstructure:"search"`
}

// ScanConfig tunes scan sessions.
type ScanConfig struct {
	Workers        int    `mapstructure:"workers" validate:"min=1,max=64"`
	SkipHiddenDirs bool   `mapstructure:"skip_hidden_dirs"`
	Schedule       string `mapstructure:"schedule"` // cron spec, empty disables
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port" validate:"min=1,max=65535"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// Addr is the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// WatchConfig tunes watch mode.
type WatchConfig struct {
	// SettleDelay is how long the tree must be quiet before a rescan.
	SettleDelay time.Duration `mapstructure:"settle_delay"`
	// MinInterval is the minimum spacing between watch-triggered rescans.
	MinInterval time.Duration `mapstructure:"min_interval"`
}

// SearchConfig locates the full-text index.
type SearchConfig struct {
	Path string `mapstructure:"path"` // empty disables the index
}

// IsDevelopment reports whether the pretty log handler should be used.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("root", "")
	v.SetDefault("video_extensions", []string{".mp4", ".mkv", ".webm", ".avi", ".mov", ".flv", ".wmv", ".m4v"})
	v.SetDefault("notebook_filename", "fosse.yml")
	v.SetDefault("db_file", "fosse.db")
	v.SetDefault("log_file", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("environment", "production")
	v.SetDefault("ffprobe_path", "")

	v.SetDefault("scan.workers", 4)
	v.SetDefault("scan.skip_hidden_dirs", false)
	v.SetDefault("scan.schedule", "")

	v.SetDefault("server.host", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)

	v.SetDefault("watch.settle_delay", 2*time.Second)
	v.SetDefault("watch.min_interval", 30*time.Second)

	v.SetDefault("search.path", "")
}

// flagKeys maps command-line flag names to configuration keys.
var flagKeys = map[string]string{
	"root":              "root",
	"db-file":           "db_file",
	"log-file":          "log_file",
	"log-level":         "log_level",
	"env":               "environment",
	"notebook-filename": "notebook_filename",
	"ffprobe-path":      "ffprobe_path",
	"workers":           "scan.workers",
	"schedule":          "scan.schedule",
	"port":              "server.port",
	"search-path":       "search.path",
}

// Load reads the configuration. file may be empty, in which case
// DefaultFile is read if it exists. flags may be nil; only flags that were
// registered on it are bound.
func Load(file string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	explicit := file != ""
	if !explicit {
		file = DefaultFile
	}
	v.SetConfigFile(file)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}
	// Legacy key name. Registered after reading so a file value moves over.
	v.RegisterAlias("fosse_file", "notebook_filename")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

var validate = validation.New()

// Validate checks field constraints.
func (c *Config) Validate() error {
	c.LogLevel = strings.ToLower(c.LogLevel)
	return validate.Validate(c)
}

func (c *Config) expandPaths() error {
	for name, p := range map[string]*string{
		"root":        &c.Root,
		"db_file":     &c.DBFile,
		"log_file":    &c.LogFile,
		"search.path": &c.Search.Path,
	} {
		expanded, err := expandPath(*p)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
		*p = expanded
	}
	// A bare binary name is looked up on PATH.
	if strings.ContainsRune(c.FFprobePath, filepath.Separator) {
		expanded, err := expandPath(c.FFprobePath)
		if err != nil {
			return fmt.Errorf("invalid ffprobe_path: %w", err)
		}
		c.FFprobePath = expanded
	}
	return nil
}

// expandPath expands ~ and makes the path absolute. Empty stays empty.
func expandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}

	if path == "~" || strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, strings.TrimPrefix(path, "~"))
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}
