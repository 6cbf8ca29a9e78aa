package config

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

var (
	once     sync.Once
	instance *Config
	loadErr  error
)

// ComponentConfig holds the network settings for an HTTP component.
type ComponentConfig struct {
	Host  string `yaml:"host"`
	Port  int    `yaml:"port"`
	Debug bool   `yaml:"debug"`
}

// CLIConfig holds CLI-only settings (not a service).
type CLIConfig struct {
	Debug bool `yaml:"debug"`
}

// GeminiConfig holds the text-generation endpoint settings. The API key
// is deliberately not here: it lives in the settings store.
type GeminiConfig struct {
	BaseURL        string `yaml:"base_url"`
	DefaultModel   string `yaml:"default_model"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// StorageConfig points at the local settings database.
type StorageConfig struct {
	SettingsPath string `yaml:"settings_path"`
}

// MetricsConfig holds the metrics exporter settings.
type MetricsConfig struct {
	Port int `yaml:"port"`
}

// Config is the configuration tree, matching bookrater.yaml.
type Config struct {
	Gemini     GeminiConfig    `yaml:"gemini"`
	WebAdapter ComponentConfig `yaml:"web_adapter"`
	CLI        CLIConfig       `yaml:"cli"`
	Storage    StorageConfig   `yaml:"storage"`
	Metrics    MetricsConfig   `yaml:"metrics"`
}

func defaults() *Config {
	return &Config{
		Gemini: GeminiConfig{
			BaseURL:        "https://generativelanguage.googleapis.com",
			DefaultModel:   "gemini-1.5-flash",
			TimeoutSeconds: 30,
		},
		WebAdapter: ComponentConfig{Host: "127.0.0.1", Port: 8080},
		Storage:    StorageConfig{SettingsPath: ".bookrater.db"},
		Metrics:    MetricsConfig{Port: 9090},
	}
}

// Get returns the initialized configuration object (singleton). A missing
// config file is fine: the CLI must work out of the box, so defaults apply.
func Get() *Config {
	once.Do(func() {
		instance = defaults()

		path := os.Getenv("BOOKRATER_CONFIG")
		if path == "" {
			path = "bookrater.yaml"
		}

		f, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return
			}
			loadErr = fmt.Errorf("read %s: %w", path, err)
			return
		}
		if err := yaml.Unmarshal(f, instance); err != nil {
			loadErr = fmt.Errorf("parse %s: %w", path, err)
		}
	})
	return instance
}

// Err reports a config file problem detected by Get, if any.
func Err() error {
	Get()
	return loadErr
}

// Address returns host:port.
func (c ComponentConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// FullURL returns http://host:port.
func (c ComponentConfig) FullURL() string {
	return fmt.Sprintf("http://%s:%d", c.Host, c.Port)
}
