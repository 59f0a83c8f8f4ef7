// Package config loads textmacro settings from YAML with environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"textmacro-go/infrastructure/logging"
)

// Target kinds.
const (
	TargetDesktop = "desktop"
	TargetBrowser = "browser"
)

// OCR engine names.
const (
	EngineAuto      = "auto"
	EngineTesseract = "tesseract"
	EngineHTTP      = "http"
	EngineNone      = "none"
)

// Storage drivers.
const (
	StorageFile  = "file"
	StorageMongo = "mongo"
)

// Config is the root configuration structure.
type Config struct {
	Monitor  MonitorConfig  `yaml:"monitor"`
	Target   string         `yaml:"target"`
	Browser  BrowserConfig  `yaml:"browser"`
	OCR      OCRConfig      `yaml:"ocr"`
	Storage  StorageConfig  `yaml:"storage"`
	History  HistoryConfig  `yaml:"history"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// MonitorConfig tunes the polling loop.
type MonitorConfig struct {
	CheckInterval Duration     `yaml:"check_interval"`
	OCRLanguage   string       `yaml:"ocr_language"`
	ActionDelay   Duration     `yaml:"action_delay"`
	StopTimeout   Duration     `yaml:"stop_timeout"`
	MaxRegionSets int          `yaml:"max_region_sets"`
	Hotkeys       HotkeyConfig `yaml:"hotkeys"`
}

// HotkeyConfig binds global key combinations such as "ctrl+alt+x".
type HotkeyConfig struct {
	Enabled bool     `yaml:"enabled"`
	Toggle  string   `yaml:"toggle"`
	Stop    []string `yaml:"stop"`
}

// BrowserConfig describes the headless browser target.
type BrowserConfig struct {
	URL         string `yaml:"url"`
	Headless    bool   `yaml:"headless"`
	Width       int    `yaml:"width"`
	Height      int    `yaml:"height"`
	UserDataDir string `yaml:"user_data_dir"`
}

// OCRConfig selects and tunes the text recognizer.
type OCRConfig struct {
	Engine  string           `yaml:"engine"`
	HTTP    OCRHTTPConfig    `yaml:"http"`
	Cache   OCRCacheConfig   `yaml:"cache"`
	Breaker OCRBreakerConfig `yaml:"breaker"`
}

// OCRHTTPConfig points at an external OCR service.
type OCRHTTPConfig struct {
	BaseURL        string   `yaml:"base_url"`
	Timeout        Duration `yaml:"timeout"`
	HealthInterval Duration `yaml:"health_interval"`
}

// OCRCacheConfig controls perceptual-hash result reuse.
type OCRCacheConfig struct {
	Enabled     bool `yaml:"enabled"`
	MaxDistance int  `yaml:"max_distance"`
}

// OCRBreakerConfig controls the recognizer circuit breaker.
type OCRBreakerConfig struct {
	Threshold int      `yaml:"threshold"`
	Cooldown  Duration `yaml:"cooldown"`
}

// StorageConfig selects where region sets persist.
type StorageConfig struct {
	Driver string           `yaml:"driver"`
	File   FileStoreConfig  `yaml:"file"`
	Mongo  MongoStoreConfig `yaml:"mongo"`
}

// FileStoreConfig is the JSON document location.
type FileStoreConfig struct {
	Path string `yaml:"path"`
}

// MongoStoreConfig holds MongoDB connection settings.
type MongoStoreConfig struct {
	URI        string `yaml:"uri"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
}

// HistoryConfig controls the sqlite trigger history.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	TLS         bool   `yaml:"tls"`
	ClientID    string `yaml:"client_id"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	QoS         int    `yaml:"qos"`
	TopicPrefix string `yaml:"topic_prefix"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool     `yaml:"enabled"`
	URL           string   `yaml:"url"`
	Token         string   `yaml:"token"`
	Org           string   `yaml:"org"`
	Bucket        string   `yaml:"bucket"`
	BatchSize     int      `yaml:"batch_size"`
	FlushInterval Duration `yaml:"flush_interval"`
}

// LoggingConfig mirrors logging.Config in YAML form.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	Dir        string `yaml:"dir"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
	AddSource  bool   `yaml:"add_source"`
}

// Duration accepts either a Go duration string ("1.5s") or a plain number
// of seconds (1.5).
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	v, err := parseDuration(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = Duration(v)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return v, nil
}

// DefaultDataDir returns the directory holding regions.json and history.db.
func DefaultDataDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "textmacro")
}

// DefaultPath returns the config file looked up when none is given.
func DefaultPath() string {
	return filepath.Join(DefaultDataDir(), "textmacro.yaml")
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	dataDir := DefaultDataDir()
	return &Config{
		Monitor: MonitorConfig{
			CheckInterval: Duration(time.Second),
			OCRLanguage:   "jpn+eng",
			ActionDelay:   Duration(100 * time.Millisecond),
			StopTimeout:   Duration(2 * time.Second),
			MaxRegionSets: 20,
			// Esc stays unbound so key:esc actions cannot stop the monitor.
			Hotkeys: HotkeyConfig{
				Enabled: true,
				Toggle:  "f6",
				Stop:    []string{"f8", "ctrl+alt+x"},
			},
		},
		Target: TargetDesktop,
		Browser: BrowserConfig{
			Headless: true,
			Width:    1280,
			Height:   800,
		},
		OCR: OCRConfig{
			Engine: EngineAuto,
			HTTP: OCRHTTPConfig{
				Timeout:        Duration(10 * time.Second),
				HealthInterval: Duration(30 * time.Second),
			},
			Cache: OCRCacheConfig{
				MaxDistance: 0,
			},
			Breaker: OCRBreakerConfig{
				Threshold: 5,
				Cooldown:  Duration(10 * time.Second),
			},
		},
		Storage: StorageConfig{
			Driver: StorageFile,
			File:   FileStoreConfig{Path: filepath.Join(dataDir, "regions.json")},
			Mongo: MongoStoreConfig{
				URI:        "mongodb://localhost:27017",
				Database:   "textmacro",
				Collection: "region_sets",
			},
		},
		History: HistoryConfig{
			Enabled: true,
			Path:    filepath.Join(dataDir, "history.db"),
		},
		MQTT: MQTTConfig{
			Host:        "localhost",
			Port:        1883,
			ClientID:    "textmacro",
			QoS:         1,
			TopicPrefix: "textmacro",
		},
		InfluxDB: InfluxDBConfig{
			URL:           "http://localhost:8086",
			Org:           "textmacro",
			Bucket:        "textmacro",
			BatchSize:     100,
			FlushInterval: Duration(10 * time.Second),
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  50,
			MaxBackups: 10,
			MaxAgeDays: 14,
			Compress:   true,
		},
	}
}

// Load reads configuration from a YAML file on top of Default, applies
// TEXTMACRO_* environment overrides and validates the result.
// An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := Parse(data, cfg); err != nil {
			return nil, err
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Parse decodes YAML into cfg, keeping fields the document leaves out.
func Parse(data []byte, cfg *Config) error {
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}
	return nil
}

// Marshal renders cfg as YAML.
func Marshal(cfg *Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}

func applyEnvOverrides(cfg *Config) error {
	// Monitor
	if v := os.Getenv("TEXTMACRO_MONITOR_CHECK_INTERVAL"); v != "" {
		d, err := parseDuration(v)
		if err != nil {
			return fmt.Errorf("TEXTMACRO_MONITOR_CHECK_INTERVAL: %w", err)
		}
		cfg.Monitor.CheckInterval = Duration(d)
	}
	if v := os.Getenv("TEXTMACRO_MONITOR_OCR_LANGUAGE"); v != "" {
		cfg.Monitor.OCRLanguage = v
	}
	if v := os.Getenv("TEXTMACRO_MONITOR_HOTKEYS_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("TEXTMACRO_MONITOR_HOTKEYS_ENABLED: %w", err)
		}
		cfg.Monitor.Hotkeys.Enabled = b
	}

	// Target
	if v := os.Getenv("TEXTMACRO_TARGET"); v != "" {
		cfg.Target = v
	}
	if v := os.Getenv("TEXTMACRO_BROWSER_URL"); v != "" {
		cfg.Browser.URL = v
	}

	// OCR
	if v := os.Getenv("TEXTMACRO_OCR_ENGINE"); v != "" {
		cfg.OCR.Engine = v
	}
	if v := os.Getenv("TEXTMACRO_OCR_HTTP_BASE_URL"); v != "" {
		cfg.OCR.HTTP.BaseURL = v
	}

	// Storage
	if v := os.Getenv("TEXTMACRO_STORAGE_DRIVER"); v != "" {
		cfg.Storage.Driver = v
	}
	if v := os.Getenv("TEXTMACRO_STORAGE_FILE_PATH"); v != "" {
		cfg.Storage.File.Path = v
	}
	if v := os.Getenv("TEXTMACRO_STORAGE_MONGO_URI"); v != "" {
		cfg.Storage.Mongo.URI = v
	}
	if v := os.Getenv("TEXTMACRO_HISTORY_PATH"); v != "" {
		cfg.History.Path = v
	}

	// MQTT
	if v := os.Getenv("TEXTMACRO_MQTT_HOST"); v != "" {
		cfg.MQTT.Host = v
	}
	if v := os.Getenv("TEXTMACRO_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Username = v
	}
	if v := os.Getenv("TEXTMACRO_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Password = v
	}

	// InfluxDB
	if v := os.Getenv("TEXTMACRO_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Logging
	if v := os.Getenv("TEXTMACRO_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	return nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if c.Monitor.CheckInterval <= 0 {
		errs = append(errs, "monitor.check_interval must be positive")
	}
	if c.Monitor.ActionDelay < 0 {
		errs = append(errs, "monitor.action_delay must not be negative")
	}
	if c.Monitor.StopTimeout <= 0 {
		errs = append(errs, "monitor.stop_timeout must be positive")
	}
	if c.Monitor.MaxRegionSets < 1 {
		errs = append(errs, "monitor.max_region_sets must be at least 1")
	}
	if c.Monitor.Hotkeys.Enabled {
		if c.Monitor.Hotkeys.Toggle != "" && !validCombo(c.Monitor.Hotkeys.Toggle) {
			errs = append(errs, fmt.Sprintf("monitor.hotkeys.toggle %q is not a key combination", c.Monitor.Hotkeys.Toggle))
		}
		for _, combo := range c.Monitor.Hotkeys.Stop {
			if !validCombo(combo) {
				errs = append(errs, fmt.Sprintf("monitor.hotkeys.stop %q is not a key combination", combo))
			}
		}
	}

	switch c.Target {
	case TargetDesktop:
	case TargetBrowser:
		if c.Browser.URL == "" {
			errs = append(errs, "browser.url is required when target is browser")
		}
		if c.Browser.Width <= 0 || c.Browser.Height <= 0 {
			errs = append(errs, "browser.width and browser.height must be positive")
		}
	default:
		errs = append(errs, fmt.Sprintf("target must be %q or %q", TargetDesktop, TargetBrowser))
	}

	switch c.OCR.Engine {
	case EngineAuto, EngineTesseract, EngineNone:
	case EngineHTTP:
		if c.OCR.HTTP.BaseURL == "" {
			errs = append(errs, "ocr.http.base_url is required when ocr.engine is http")
		}
	default:
		errs = append(errs, "ocr.engine must be auto, tesseract, http, or none")
	}
	if c.OCR.Cache.MaxDistance < 0 {
		errs = append(errs, "ocr.cache.max_distance must not be negative")
	}

	switch c.Storage.Driver {
	case StorageFile:
		if c.Storage.File.Path == "" {
			errs = append(errs, "storage.file.path is required")
		}
	case StorageMongo:
		if c.Storage.Mongo.URI == "" || c.Storage.Mongo.Database == "" || c.Storage.Mongo.Collection == "" {
			errs = append(errs, "storage.mongo uri, database and collection are required")
		}
	default:
		errs = append(errs, "storage.driver must be file or mongo")
	}

	if c.History.Enabled && c.History.Path == "" {
		errs = append(errs, "history.path is required when history is enabled")
	}

	if c.MQTT.Enabled {
		if c.MQTT.Host == "" {
			errs = append(errs, "mqtt.host is required")
		}
		if c.MQTT.Port < 1 || c.MQTT.Port > 65535 {
			errs = append(errs, "mqtt.port must be between 1 and 65535")
		}
		if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
			errs = append(errs, "mqtt.qos must be 0, 1, or 2")
		}
	}

	if c.InfluxDB.Enabled && (c.InfluxDB.URL == "" || c.InfluxDB.Org == "" || c.InfluxDB.Bucket == "") {
		errs = append(errs, "influxdb url, org and bucket are required")
	}

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, "logging.level: "+err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// validCombo reports whether s is one or more non-empty keys joined by "+".
func validCombo(s string) bool {
	for _, k := range strings.Split(s, "+") {
		if strings.TrimSpace(k) == "" {
			return false
		}
	}
	return true
}

// LogConfig converts the logging section into a logging.Config.
func (c *Config) LogConfig() (*logging.Config, error) {
	level, err := logging.ParseLevel(c.Logging.Level)
	if err != nil {
		return nil, err
	}
	return &logging.Config{
		Level:      level,
		Format:     c.Logging.Format,
		Dir:        c.Logging.Dir,
		MaxSizeMB:  c.Logging.MaxSizeMB,
		MaxBackups: c.Logging.MaxBackups,
		MaxAgeDays: c.Logging.MaxAgeDays,
		Compress:   c.Logging.Compress,
		AddSource:  c.Logging.AddSource,
	}, nil
}
