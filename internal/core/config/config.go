package config

import (
	"fmt"
	"strings"
	"time"

	coreagg "github.com/aevon-lab/vahan-pulse/internal/core/aggregation"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/robfig/cron/v3"
)

// Source types.
const (
	SourceFile     = "file"
	SourcePostgres = "postgres"
	SourceSQLite   = "sqlite"
)

// Config represents the top-level application config plus resolved analytics views.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Source    SourceConfig    `koanf:"source"`
	Database  DatabaseConfig  `koanf:"database"`
	Analytics AnalyticsConfig `koanf:"analytics"`

	// Views is populated by Load after parsing view files.
	Views []coreagg.ViewDefinition `koanf:"-"`
}

type ServerConfig struct {
	Port          int    `koanf:"port"`
	Host          string `koanf:"host"`
	MaxBodySizeMB int    `koanf:"max_body_size_mb"`
	Mode          string `koanf:"mode"` // debug | release
}

type SourceConfig struct {
	Type            string `koanf:"type"` // file | postgres | sqlite
	Path            string `koanf:"path"` // export file for type=file
	DSN             string `koanf:"dsn"`  // connection string, or database file for sqlite
	FallbackPath    string `koanf:"fallback_path"`
	RefreshSchedule string `koanf:"refresh_schedule"` // cron spec with seconds; empty disables
	LoadTimeout     string `koanf:"load_timeout"`
}

type DatabaseConfig struct {
	MaxOpenConns int  `koanf:"max_open_conns"`
	MaxIdleConns int  `koanf:"max_idle_conns"`
	AutoMigrate  bool `koanf:"auto_migrate"`
}

type AnalyticsConfig struct {
	ViewsDir         string `koanf:"views_dir"`
	YoYLag           int    `koanf:"yoy_lag"`
	TopManufacturers int    `koanf:"top_manufacturers"`
	ShareTop         int    `koanf:"share_top"`
}

// IsDatabase reports whether the primary source is a database that can accept writes.
func (c SourceConfig) IsDatabase() bool {
	return c.Type == SourcePostgres || c.Type == SourceSQLite
}

// EffectiveLoadTimeout returns the parsed load timeout, defaulting to 30s.
func (c SourceConfig) EffectiveLoadTimeout() time.Duration {
	d, err := time.ParseDuration(c.LoadTimeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d (must be 1-65535)", c.Server.Port)
	}
	if strings.TrimSpace(c.Server.Host) == "" {
		return fmt.Errorf("server.host is required")
	}
	if c.Server.MaxBodySizeMB <= 0 {
		return fmt.Errorf("server.max_body_size_mb must be > 0")
	}
	if c.Server.Mode != "debug" && c.Server.Mode != "release" {
		return fmt.Errorf("invalid server.mode %q (must be debug or release)", c.Server.Mode)
	}

	switch c.Source.Type {
	case SourceFile:
		if strings.TrimSpace(c.Source.Path) == "" {
			return fmt.Errorf("source.path is required for source.type %q", SourceFile)
		}
	case SourcePostgres, SourceSQLite:
		if strings.TrimSpace(c.Source.DSN) == "" {
			return fmt.Errorf("source.dsn is required for source.type %q", c.Source.Type)
		}
	default:
		return fmt.Errorf("unsupported source.type %q (must be file, postgres or sqlite)", c.Source.Type)
	}
	if c.Source.RefreshSchedule != "" {
		if _, err := cron.NewParser(cronParseOptions).Parse(c.Source.RefreshSchedule); err != nil {
			return fmt.Errorf("invalid source.refresh_schedule %q: %w", c.Source.RefreshSchedule, err)
		}
	}
	if c.Source.LoadTimeout != "" {
		d, err := time.ParseDuration(c.Source.LoadTimeout)
		if err != nil {
			return fmt.Errorf("invalid source.load_timeout %q: %w", c.Source.LoadTimeout, err)
		}
		if d <= 0 {
			return fmt.Errorf("source.load_timeout must be > 0")
		}
	}

	if c.Source.IsDatabase() {
		if c.Database.MaxOpenConns <= 0 {
			return fmt.Errorf("database.max_open_conns must be > 0")
		}
		if c.Database.MaxIdleConns <= 0 {
			return fmt.Errorf("database.max_idle_conns must be > 0")
		}
	}

	if c.Analytics.YoYLag <= 0 {
		return fmt.Errorf("analytics.yoy_lag must be > 0")
	}
	if c.Analytics.TopManufacturers <= 0 {
		return fmt.Errorf("analytics.top_manufacturers must be > 0")
	}
	if c.Analytics.ShareTop <= 0 {
		return fmt.Errorf("analytics.share_top must be > 0")
	}

	return nil
}

// cronParseOptions matches cron.WithSeconds, which the refresher runs with.
const cronParseOptions = cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor

// Load parses config from file + env, validates it, then loads analytics views.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]interface{}{
		"server.port":                 8080,
		"server.host":                 "0.0.0.0",
		"server.max_body_size_mb":     4,
		"server.mode":                 "release",
		"source.type":                 SourceFile,
		"source.path":                 "sample_data.csv",
		"source.dsn":                  "",
		"source.fallback_path":        "",
		"source.refresh_schedule":     "",
		"source.load_timeout":         "30s",
		"database.max_open_conns":     25,
		"database.max_idle_conns":     25,
		"database.auto_migrate":       true,
		"analytics.views_dir":         "./config/views",
		"analytics.yoy_lag":           coreagg.DefaultYoYLag,
		"analytics.top_manufacturers": 12,
		"analytics.share_top":         8,
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider("VAHAN_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "VAHAN_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	repo, err := coreagg.NewFileSystemViewRepository(cfg.Analytics.ViewsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load analytics views: %w", err)
	}
	cfg.Views = repo.GetViews()

	return &cfg, nil
}
