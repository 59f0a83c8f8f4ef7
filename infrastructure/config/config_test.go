package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "textmacro.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
monitor:
  check_interval: 1.5
  ocr_language: eng
  action_delay: 250ms
target: browser
browser:
  url: "https://example.com"
ocr:
  engine: http
  http:
    base_url: "http://localhost:8000"
storage:
  driver: file
  file:
    path: "/tmp/regions.json"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if got := cfg.Monitor.CheckInterval.Std(); got != 1500*time.Millisecond {
		t.Errorf("Monitor.CheckInterval = %v, want %v", got, 1500*time.Millisecond)
	}
	if got := cfg.Monitor.ActionDelay.Std(); got != 250*time.Millisecond {
		t.Errorf("Monitor.ActionDelay = %v, want %v", got, 250*time.Millisecond)
	}
	if cfg.Monitor.OCRLanguage != "eng" {
		t.Errorf("Monitor.OCRLanguage = %q, want %q", cfg.Monitor.OCRLanguage, "eng")
	}
	if cfg.Target != TargetBrowser {
		t.Errorf("Target = %q, want %q", cfg.Target, TargetBrowser)
	}
	if cfg.Storage.File.Path != "/tmp/regions.json" {
		t.Errorf("Storage.File.Path = %q, want %q", cfg.Storage.File.Path, "/tmp/regions.json")
	}
	// Untouched sections keep their defaults.
	if got := cfg.Monitor.StopTimeout.Std(); got != 2*time.Second {
		t.Errorf("Monitor.StopTimeout = %v, want %v", got, 2*time.Second)
	}
	if cfg.Monitor.MaxRegionSets != 20 {
		t.Errorf("Monitor.MaxRegionSets = %d, want 20", cfg.Monitor.MaxRegionSets)
	}
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error = %v", err)
	}
	if got := cfg.Monitor.CheckInterval.Std(); got != time.Second {
		t.Errorf("Monitor.CheckInterval = %v, want %v", got, time.Second)
	}
	if cfg.Monitor.OCRLanguage != "jpn+eng" {
		t.Errorf("Monitor.OCRLanguage = %q, want %q", cfg.Monitor.OCRLanguage, "jpn+eng")
	}
	if cfg.OCR.Engine != EngineAuto {
		t.Errorf("OCR.Engine = %q, want %q", cfg.OCR.Engine, EngineAuto)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/textmacro.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "monitor: [unclosed")
	if _, err := Load(path); err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	path := writeConfig(t, "monitor:\n  check_interval: soon\n")
	if _, err := Load(path); err == nil {
		t.Error("Load() expected error for invalid duration, got nil")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("TEXTMACRO_MONITOR_CHECK_INTERVAL", "3s")
	t.Setenv("TEXTMACRO_OCR_ENGINE", "none")
	t.Setenv("TEXTMACRO_STORAGE_FILE_PATH", "/tmp/override.json")
	t.Setenv("TEXTMACRO_LOG_LEVEL", "debug")

	path := writeConfig(t, "ocr:\n  engine: tesseract\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if got := cfg.Monitor.CheckInterval.Std(); got != 3*time.Second {
		t.Errorf("Monitor.CheckInterval = %v, want %v", got, 3*time.Second)
	}
	if cfg.OCR.Engine != EngineNone {
		t.Errorf("OCR.Engine = %q, want %q", cfg.OCR.Engine, EngineNone)
	}
	if cfg.Storage.File.Path != "/tmp/override.json" {
		t.Errorf("Storage.File.Path = %q, want %q", cfg.Storage.File.Path, "/tmp/override.json")
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
}

func TestLoad_EnvOverrideInvalidDuration(t *testing.T) {
	t.Setenv("TEXTMACRO_MONITOR_CHECK_INTERVAL", "later")
	if _, err := Load(""); err == nil {
		t.Error("Load() expected error for invalid env duration, got nil")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"defaults", func(c *Config) {}, ""},
		{"zero interval", func(c *Config) { c.Monitor.CheckInterval = 0 }, "monitor.check_interval"},
		{"negative delay", func(c *Config) { c.Monitor.ActionDelay = -1 }, "monitor.action_delay"},
		{"zero cap", func(c *Config) { c.Monitor.MaxRegionSets = 0 }, "monitor.max_region_sets"},
		{"unknown target", func(c *Config) { c.Target = "phone" }, "target must be"},
		{"browser without url", func(c *Config) { c.Target = TargetBrowser }, "browser.url"},
		{"http without url", func(c *Config) { c.OCR.Engine = EngineHTTP }, "ocr.http.base_url"},
		{"unknown engine", func(c *Config) { c.OCR.Engine = "magic" }, "ocr.engine"},
		{"unknown driver", func(c *Config) { c.Storage.Driver = "s3" }, "storage.driver"},
		{"mongo without uri", func(c *Config) {
			c.Storage.Driver = StorageMongo
			c.Storage.Mongo.URI = ""
		}, "storage.mongo"},
		{"history without path", func(c *Config) { c.History.Path = "" }, "history.path"},
		{"mqtt bad qos", func(c *Config) {
			c.MQTT.Enabled = true
			c.MQTT.QoS = 3
		}, "mqtt.qos"},
		{"mqtt disabled bad qos", func(c *Config) { c.MQTT.QoS = 3 }, ""},
		{"influx without bucket", func(c *Config) {
			c.InfluxDB.Enabled = true
			c.InfluxDB.Bucket = ""
		}, "influxdb"},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"empty hotkey part", func(c *Config) { c.Monitor.Hotkeys.Toggle = "ctrl+" }, "monitor.hotkeys.toggle"},
		{"bad stop hotkey", func(c *Config) { c.Monitor.Hotkeys.Stop = []string{"f8", "+"} }, "monitor.hotkeys.stop"},
		{"no toggle hotkey", func(c *Config) { c.Monitor.Hotkeys.Toggle = "" }, ""},
		{"hotkeys disabled", func(c *Config) {
			c.Monitor.Hotkeys.Enabled = false
			c.Monitor.Hotkeys.Toggle = "+"
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.Monitor.CheckInterval = 0
	cfg.Storage.Driver = "s3"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() expected error, got nil")
	}
	if !strings.Contains(err.Error(), "; ") {
		t.Errorf("Validate() error = %q, want both problems joined", err)
	}
}

func TestMarshal_RoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Monitor.CheckInterval = Duration(750 * time.Millisecond)

	data, err := Marshal(cfg)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	got := Default()
	if err := Parse(data, got); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got.Monitor.CheckInterval != cfg.Monitor.CheckInterval {
		t.Errorf("CheckInterval = %v, want %v", got.Monitor.CheckInterval.Std(), cfg.Monitor.CheckInterval.Std())
	}
}

func TestLogConfig(t *testing.T) {
	cfg := Default()
	cfg.Logging.Level = "warn"
	cfg.Logging.Format = "json"

	lc, err := cfg.LogConfig()
	if err != nil {
		t.Fatalf("LogConfig() error = %v", err)
	}
	if lc.Level.String() != "WARN" {
		t.Errorf("Level = %v, want WARN", lc.Level)
	}
	if lc.Format != "json" {
		t.Errorf("Format = %q, want %q", lc.Format, "json")
	}
}

func TestDefault_OCRCacheMatchesExactHashes(t *testing.T) {
	if got := Default().OCR.Cache.MaxDistance; got != 0 {
		t.Errorf("OCR.Cache.MaxDistance = %d, want 0", got)
	}
}

func TestLoad_HotkeysEnvOverride(t *testing.T) {
	t.Setenv("TEXTMACRO_MONITOR_HOTKEYS_ENABLED", "false")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Monitor.Hotkeys.Enabled {
		t.Error("Monitor.Hotkeys.Enabled = true, want false")
	}

	t.Setenv("TEXTMACRO_MONITOR_HOTKEYS_ENABLED", "sometimes")
	if _, err := Load(""); err == nil {
		t.Error("Load() expected error for invalid hotkeys flag, got nil")
	}
}

func TestDefault_HotkeysLeaveEscUnbound(t *testing.T) {
	hk := Default().Monitor.Hotkeys
	if !hk.Enabled || hk.Toggle != "f6" {
		t.Errorf("Hotkeys = %+v, want enabled with toggle f6", hk)
	}
	for _, combo := range hk.Stop {
		if combo == "esc" {
			t.Errorf("Hotkeys.Stop = %v, want no esc binding", hk.Stop)
		}
	}
}
