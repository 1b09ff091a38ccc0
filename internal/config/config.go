package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	NATS       NATSConfig       `yaml:"nats"`
	MinIO      MinIOConfig      `yaml:"minio"`
	Matching   MatchingConfig   `yaml:"matching"`
	Dedup      DedupConfig      `yaml:"dedup"`
	Attendance AttendanceConfig `yaml:"attendance"`
	Notify     NotifyConfig     `yaml:"notify"`
	Worker     WorkerConfig     `yaml:"worker"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type ServerConfig struct {
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	MaxConns int    `yaml:"max_conns"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

type NATSConfig struct {
	URL string `yaml:"url"`
}

type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

type MatchingConfig struct {
	// DistanceThreshold is the maximum cosine distance for a positive match.
	DistanceThreshold float64 `yaml:"distance_threshold"`
	EmbeddingDim      int     `yaml:"embedding_dim"`
	// RefreshInterval controls how often the worker reloads the identity
	// registry snapshot from the directory.
	RefreshInterval time.Duration `yaml:"refresh_interval"`
}

type DedupConfig struct {
	// Windows maps an event type (attendance, ppe, access) to the minimum
	// spacing enforced between successive emissions for the same
	// subject+location.
	Windows map[string]time.Duration `yaml:"windows"`
	// Retention bounds how long suppression entries are kept before the
	// sweep drops them. Must exceed every window above.
	Retention     time.Duration `yaml:"retention"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// Window returns the configured dedup window for an event type, falling back
// to the "default" entry.
func (d DedupConfig) Window(eventType string) time.Duration {
	if w, ok := d.Windows[eventType]; ok {
		return w
	}
	return d.Windows["default"]
}

type AttendanceConfig struct {
	// MergeInterval absorbs rapid repeated detections of a standing person
	// without inflating detection counts.
	MergeInterval time.Duration `yaml:"merge_interval"`
	// Timezone is the site-local zone used to bucket detections into
	// calendar days.
	Timezone string `yaml:"timezone"`
}

func (a AttendanceConfig) Location() (*time.Location, error) {
	if a.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(a.Timezone)
}

type NotifyConfig struct {
	// RecencyWindow is the maximum age of a detection timestamp for the
	// event to still trigger a notification.
	RecencyWindow time.Duration `yaml:"recency_window"`
	DedupWindow   time.Duration `yaml:"dedup_window"`
}

type WorkerConfig struct {
	Count       int `yaml:"count"`
	MetricsPort int `yaml:"metrics_port"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads config from YAML file and applies environment variable overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(cfg)
	setDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = 20
	}
	if cfg.Matching.DistanceThreshold == 0 {
		cfg.Matching.DistanceThreshold = 0.6
	}
	if cfg.Matching.EmbeddingDim == 0 {
		cfg.Matching.EmbeddingDim = 128
	}
	if cfg.Matching.RefreshInterval == 0 {
		cfg.Matching.RefreshInterval = 30 * time.Second
	}
	if cfg.Dedup.Windows == nil {
		cfg.Dedup.Windows = map[string]time.Duration{}
	}
	if _, ok := cfg.Dedup.Windows["default"]; !ok {
		cfg.Dedup.Windows["default"] = 60 * time.Second
	}
	if _, ok := cfg.Dedup.Windows["ppe"]; !ok {
		cfg.Dedup.Windows["ppe"] = 60 * time.Second
	}
	if _, ok := cfg.Dedup.Windows["access"]; !ok {
		cfg.Dedup.Windows["access"] = 60 * time.Second
	}
	if cfg.Dedup.Retention == 0 {
		cfg.Dedup.Retention = time.Hour
	}
	if cfg.Dedup.SweepInterval == 0 {
		cfg.Dedup.SweepInterval = time.Minute
	}
	if cfg.Attendance.MergeInterval == 0 {
		cfg.Attendance.MergeInterval = 30 * time.Second
	}
	if cfg.Notify.RecencyWindow == 0 {
		cfg.Notify.RecencyWindow = 60 * time.Second
	}
	if cfg.Notify.DedupWindow == 0 {
		cfg.Notify.DedupWindow = 10 * time.Second
	}
	if cfg.Worker.Count == 0 {
		cfg.Worker.Count = 4
	}
	if cfg.Worker.MetricsPort == 0 {
		cfg.Worker.MetricsPort = 8082
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func validate(cfg *Config) error {
	for eventType, w := range cfg.Dedup.Windows {
		if w >= cfg.Dedup.Retention {
			return fmt.Errorf("dedup window for %q (%s) must be shorter than retention (%s)",
				eventType, w, cfg.Dedup.Retention)
		}
	}
	if _, err := cfg.Attendance.Location(); err != nil {
		return fmt.Errorf("attendance timezone: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SW_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("SW_API_KEY"); v != "" {
		cfg.Server.APIKey = v
	}
	if v := os.Getenv("SW_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("SW_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("SW_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("SW_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("SW_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("SW_NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("SW_MINIO_ENDPOINT"); v != "" {
		cfg.MinIO.Endpoint = v
	}
	if v := os.Getenv("SW_MINIO_ACCESS_KEY"); v != "" {
		cfg.MinIO.AccessKey = v
	}
	if v := os.Getenv("SW_MINIO_SECRET_KEY"); v != "" {
		cfg.MinIO.SecretKey = v
	}
	if v := os.Getenv("SW_MINIO_BUCKET"); v != "" {
		cfg.MinIO.Bucket = v
	}
	if v := os.Getenv("SW_ATTENDANCE_TZ"); v != "" {
		cfg.Attendance.Timezone = v
	}
	if v := os.Getenv("SW_WORKER_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Worker.Count = n
		}
	}
}
