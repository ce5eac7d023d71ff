package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found wins.
var DefaultConfigPaths = []string{
	"tdarrmon.yaml",
	"tdarrmon.yml",
	"/etc/tdarrmon/config.yaml",
	"/etc/tdarrmon/config.yml",
}

// ConfigPathEnvVar overrides the config file search path.
const ConfigPathEnvVar = "TDARRMON_CONFIG"

// envPrefix namespaces all other environment overrides:
// TDARRMON_TDARR_URL -> tdarr.url, TDARRMON_MQTT_BROKER -> mqtt.broker.
const envPrefix = "TDARRMON_"

// Config is the full daemon configuration.
type Config struct {
	Tdarr   TdarrConfig   `koanf:"tdarr"`
	HTTP    HTTPConfig    `koanf:"http"`
	MQTT    MQTTConfig    `koanf:"mqtt"`
	Logging LoggingConfig `koanf:"logging"`
}

// TdarrConfig points at the Tdarr server being monitored.
type TdarrConfig struct {
	URL            string        `koanf:"url"`
	APIKey         string        `koanf:"api_key"`
	PollInterval   time.Duration `koanf:"poll_interval"`
	FetchTimeout   time.Duration `koanf:"fetch_timeout"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
}

// HTTPConfig configures the local HTTP API and metrics listener.
type HTTPConfig struct {
	Enabled bool   `koanf:"enabled"`
	Listen  string `koanf:"listen"`
}

// MQTTConfig configures the Home Assistant discovery bridge.
type MQTTConfig struct {
	Enabled         bool   `koanf:"enabled"`
	Broker          string `koanf:"broker"`
	Username        string `koanf:"username"`
	Password        string `koanf:"password"`
	ClientID        string `koanf:"client_id"`
	TopicPrefix     string `koanf:"topic_prefix"`
	DiscoveryPrefix string `koanf:"discovery_prefix"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

func defaultConfig() *Config {
	return &Config{
		Tdarr: TdarrConfig{
			URL:            "http://localhost:8265",
			PollInterval:   60 * time.Second,
			FetchTimeout:   30 * time.Second,
			RequestTimeout: 15 * time.Second,
		},
		HTTP: HTTPConfig{
			Enabled: true,
			Listen:  ":8099",
		},
		MQTT: MQTTConfig{
			Enabled:         false,
			Broker:          "tcp://localhost:1883",
			ClientID:        "tdarrmon",
			TopicPrefix:     "tdarrmon",
			DiscoveryPrefix: "homeassistant",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration from layered sources, lowest priority first:
// built-in defaults, then an optional YAML file, then TDARRMON_* environment
// variables.
func Load() (*Config, error) {
	return loadFrom(findConfigFile())
}

func loadFrom(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration invalid: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for values that would only fail later at
// connect time, and reports them with the setting name a user must fix.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Tdarr.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("tdarr.url %q is not an absolute URL", c.Tdarr.URL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("tdarr.url scheme %q is not http or https", u.Scheme)
	}
	if c.Tdarr.PollInterval < time.Second {
		return fmt.Errorf("tdarr.poll_interval %s is below the 1s minimum", c.Tdarr.PollInterval)
	}
	if c.Tdarr.FetchTimeout <= 0 {
		return fmt.Errorf("tdarr.fetch_timeout must be positive, got %s", c.Tdarr.FetchTimeout)
	}
	if c.HTTP.Enabled && c.HTTP.Listen == "" {
		return fmt.Errorf("http.listen is required when http.enabled is true")
	}
	if c.MQTT.Enabled {
		if c.MQTT.Broker == "" {
			return fmt.Errorf("mqtt.broker is required when mqtt.enabled is true")
		}
		if c.MQTT.TopicPrefix == "" {
			return fmt.Errorf("mqtt.topic_prefix must not be empty")
		}
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format %q is not json or console", c.Logging.Format)
	}
	return nil
}

// findConfigFile returns the first config file that exists, honoring the
// TDARRMON_CONFIG override.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransform maps TDARRMON_TDARR_API_KEY to tdarr.api_key. Only the first
// underscore separates the section; the rest of the name keeps its
// underscores, matching the koanf struct tags.
func envTransform(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
	section, rest, found := strings.Cut(key, "_")
	if !found {
		return section
	}
	return section + "." + rest
}
