package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Engine struct {
		TravelBufferMinutes int    `yaml:"travel_buffer_minutes"`
		GridOpen            string `yaml:"grid_open"`       // "05:00"
		GridLastStart       string `yaml:"grid_last_start"` // "21:30"
		SlotMinutes         int    `yaml:"slot_minutes"`
		DefaultAnchorMinute int    `yaml:"default_anchor_minute"`
	} `yaml:"engine"`

	RateLimit struct {
		RequestsPerSecond float64 `yaml:"requests_per_second"`
		Burst             int     `yaml:"burst"`
	} `yaml:"rate_limit"`

	Backup BackupConfig `yaml:"backup"`
}

// BackupConfig controls the periodic snapshot of the sqlite file.
type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	StoragePath   string `yaml:"storage_path"`
	IntervalHours int    `yaml:"interval_hours"`
	RetentionDays int    `yaml:"retention_days"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/fitgrid.db"
	}
	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Backup.StoragePath == "" {
		cfg.Backup.StoragePath = "data/backups"
	}
	if cfg.Backup.IntervalHours <= 0 {
		cfg.Backup.IntervalHours = 24
	}
	return &cfg, nil
}

func (c *Config) TravelBuffer() int {
	if c.Engine.TravelBufferMinutes <= 0 {
		return 15
	}
	return c.Engine.TravelBufferMinutes
}

func (c *Config) LimiterRate() float64 {
	if c.RateLimit.RequestsPerSecond <= 0 {
		return 50
	}
	return c.RateLimit.RequestsPerSecond
}

func (c *Config) LimiterBurst() int {
	if c.RateLimit.Burst <= 0 {
		return 100
	}
	return c.RateLimit.Burst
}
