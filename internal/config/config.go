package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type SettingsBackend string

const (
	BackendMemory    SettingsBackend = "memory"
	BackendPebble    SettingsBackend = "pebble"
	BackendFirestore SettingsBackend = "firestore"
)

type Config struct {
	Port          string `yaml:"port"`
	AllowedOrigin string `yaml:"allowed_origin"`
	LogLevel      string `yaml:"log_level"`
	Metrics       bool   `yaml:"metrics"` // expose /metrics

	SettingsBackend SettingsBackend `yaml:"settings_backend"`
	SettingsPath    string          `yaml:"settings_path"` // pebble directory
	GCPProjectID    string          `yaml:"gcp_project"`

	ReplyPolicy   string        `yaml:"reply_policy"` // uniform, rotate, echo or first
	ReplyDelayMin time.Duration `yaml:"reply_delay_min"`
	ReplyDelayMax time.Duration `yaml:"reply_delay_max"`

	MessageRPS   float64 `yaml:"message_rps"`
	MessageBurst int     `yaml:"message_burst"`

	MaxUpload      string `yaml:"max_upload"` // e.g. "32 MiB"
	MaxUploadBytes int64  `yaml:"-"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Port:            "8080",
		AllowedOrigin:   "*",
		LogLevel:        "info",
		Metrics:         true,
		SettingsBackend: BackendPebble,
		SettingsPath:    "data/settings",
		ReplyPolicy:     "uniform",
		ReplyDelayMin:   time.Second,
		ReplyDelayMax:   3 * time.Second,
		MessageRPS:      2,
		MessageBurst:    5,
		MaxUpload:       "32 MiB",
	}
}

// Load reads .env, the optional YAML file named by STUDYCHAT_CONFIG_FILE
// and finally the environment, each layer overriding the previous one.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	if path := os.Getenv("STUDYCHAT_CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.Port = getEnv("STUDYCHAT_PORT", cfg.Port)
	cfg.AllowedOrigin = getEnv("STUDYCHAT_ALLOWED_ORIGIN", cfg.AllowedOrigin)
	cfg.LogLevel = getEnv("STUDYCHAT_LOG_LEVEL", cfg.LogLevel)
	cfg.Metrics = getBoolEnv("STUDYCHAT_METRICS", cfg.Metrics)
	cfg.SettingsBackend = SettingsBackend(getEnv("STUDYCHAT_SETTINGS_BACKEND", string(cfg.SettingsBackend)))
	cfg.SettingsPath = getEnv("STUDYCHAT_SETTINGS_PATH", cfg.SettingsPath)
	cfg.GCPProjectID = getEnv("STUDYCHAT_GCP_PROJECT", cfg.GCPProjectID)
	cfg.ReplyPolicy = getEnv("STUDYCHAT_REPLY_POLICY", cfg.ReplyPolicy)
	cfg.MaxUpload = getEnv("STUDYCHAT_MAX_UPLOAD", cfg.MaxUpload)

	var err error
	if cfg.ReplyDelayMin, err = getDurationEnv("STUDYCHAT_REPLY_DELAY_MIN", cfg.ReplyDelayMin); err != nil {
		return nil, err
	}
	if cfg.ReplyDelayMax, err = getDurationEnv("STUDYCHAT_REPLY_DELAY_MAX", cfg.ReplyDelayMax); err != nil {
		return nil, err
	}
	if cfg.MessageRPS, err = getFloatEnv("STUDYCHAT_MESSAGE_RPS", cfg.MessageRPS); err != nil {
		return nil, err
	}
	if cfg.MessageBurst, err = getIntEnv("STUDYCHAT_MESSAGE_BURST", cfg.MessageBurst); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

// Validate checks cross-field constraints and fills derived fields.
func (c *Config) Validate() error {
	switch c.SettingsBackend {
	case BackendMemory, BackendPebble:
	case BackendFirestore:
		if c.GCPProjectID == "" {
			return fmt.Errorf("STUDYCHAT_GCP_PROJECT must be set for the firestore settings backend")
		}
	default:
		return fmt.Errorf("unknown settings backend %q", c.SettingsBackend)
	}

	if c.SettingsBackend == BackendPebble && c.SettingsPath == "" {
		return fmt.Errorf("STUDYCHAT_SETTINGS_PATH must be set for the pebble settings backend")
	}

	if c.ReplyDelayMin < 0 || c.ReplyDelayMax < c.ReplyDelayMin {
		return fmt.Errorf("invalid reply delay range [%s, %s]", c.ReplyDelayMin, c.ReplyDelayMax)
	}

	if c.MessageRPS <= 0 || c.MessageBurst <= 0 {
		return fmt.Errorf("message rate limit must be positive (rps=%v burst=%d)", c.MessageRPS, c.MessageBurst)
	}

	n, err := humanize.ParseBytes(c.MaxUpload)
	if err != nil {
		return fmt.Errorf("invalid max upload size %q: %w", c.MaxUpload, err)
	}
	c.MaxUploadBytes = int64(n)

	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return def
}

func getDurationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func getFloatEnv(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func getIntEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}
