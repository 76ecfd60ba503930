package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the resolved runtime configuration for the economy bridge.
// It is read once at startup and never changes afterwards.
type Config struct {
	ServiceID string
	LogLevel  string

	Enabled          bool
	GridURL          string
	GridShortName    string
	InitURL          string
	Environment      string
	SimulatorVersion string

	GatewayTimeout time.Duration
	ClaimWorkers   int

	HTTPPort int
	GRPCPort int

	RedisURL         string
	DatabaseURL      string
	MaxDBConns       int
	KafkaBrokers     []string
	InteractionTopic string
	// InteractionTopics routes single event kinds (chat, dialog, ...) to their own
	// topic. Unlisted kinds go to InteractionTopic.
	InteractionTopics map[string]string
}

// configFile mirrors the YAML schema used by configs/default.yaml.
type configFile struct {
	Service struct {
		ID       string `yaml:"id"`
		HTTPPort int    `yaml:"http_port"`
		GRPCPort int    `yaml:"grpc_port"`
		LogLevel string `yaml:"log_level"`
	} `yaml:"service"`
	Economy struct {
		Enabled          *bool  `yaml:"enabled"`
		GridURL          string `yaml:"grid_url"`
		GridShortName    string `yaml:"grid_short_name"`
		InitURL          string `yaml:"init_url"`
		Environment      string `yaml:"environment"`
		SimulatorVersion string `yaml:"simulator_version"`
	} `yaml:"economy"`
	Gateway struct {
		TimeoutSeconds int `yaml:"timeout_seconds"`
	} `yaml:"gateway"`
	Presence struct {
		ClaimWorkers int `yaml:"claim_workers"`
	} `yaml:"presence"`
	Dependencies struct {
		PostgresURL  string   `yaml:"postgres_url"`
		RedisURL     string   `yaml:"redis_url"`
		KafkaBrokers []string `yaml:"kafka_brokers"`
	} `yaml:"dependencies"`
	Events struct {
		InteractionTopic string            `yaml:"interaction_topic"`
		Topics           map[string]string `yaml:"topics"`
	} `yaml:"events"`
}

// LoadConfig resolves configuration in priority order: defaults -> file -> env.
// A missing file is not an error; a malformed one is. Unknown keys, such as the grid_id
// of older region configs, are ignored: the grid is identified by its URL.
func LoadConfig(path string) (Config, error) {
	cfg := Config{
		ServiceID:        "economy-bridge",
		LogLevel:         "info",
		Environment:      "TEST",
		SimulatorVersion: "unknown",
		GatewayTimeout:   20 * time.Second,
		ClaimWorkers:     8,
		HTTPPort:         8080,
		GRPCPort:         9090,
		MaxDBConns:       10,
		InteractionTopic: "economy.user-interaction.v1",
	}

	raw, err := os.ReadFile(path)
	if err == nil {
		var f configFile
		if unmarshalErr := yaml.Unmarshal(raw, &f); unmarshalErr != nil {
			return Config{}, fmt.Errorf("parse config file: %w", unmarshalErr)
		}
		applyFile(&cfg, f)
	}

	cfg.LogLevel = envOrDefault("LOG_LEVEL", cfg.LogLevel)
	cfg.Enabled = envBool("ECONOMY_ENABLED", cfg.Enabled)
	cfg.GridURL = envOrDefault("ECONOMY_GRID_URL", cfg.GridURL)
	cfg.GridShortName = envOrDefault("ECONOMY_GRID_SHORT_NAME", cfg.GridShortName)
	cfg.InitURL = envOrDefault("ECONOMY_INIT_URL", cfg.InitURL)
	cfg.Environment = envOrDefault("ECONOMY_ENVIRONMENT", cfg.Environment)
	cfg.SimulatorVersion = envOrDefault("SIMULATOR_VERSION", cfg.SimulatorVersion)
	cfg.GatewayTimeout = time.Duration(envInt("GATEWAY_TIMEOUT_SECONDS", int(cfg.GatewayTimeout.Seconds()))) * time.Second
	cfg.ClaimWorkers = envInt("CLAIM_WORKERS", cfg.ClaimWorkers)
	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.GRPCPort = envInt("GRPC_PORT", cfg.GRPCPort)
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.DatabaseURL = envOrDefault("DB_URL", envOrDefault("POSTGRES_URL", cfg.DatabaseURL))
	cfg.MaxDBConns = envInt("DB_MAX_CONNS", cfg.MaxDBConns)
	cfg.KafkaBrokers = envCSV("KAFKA_BROKERS", cfg.KafkaBrokers)
	cfg.InteractionTopic = envOrDefault("INTERACTION_TOPIC", cfg.InteractionTopic)
	cfg.InteractionTopics = envPairs("INTERACTION_TOPICS", cfg.InteractionTopics)

	cfg.GridURL = NormaliseGridURL(cfg.GridURL)
	return cfg, nil
}

func applyFile(cfg *Config, f configFile) {
	if f.Service.ID != "" {
		cfg.ServiceID = f.Service.ID
	}
	if f.Service.HTTPPort > 0 {
		cfg.HTTPPort = f.Service.HTTPPort
	}
	if f.Service.GRPCPort > 0 {
		cfg.GRPCPort = f.Service.GRPCPort
	}
	if f.Service.LogLevel != "" {
		cfg.LogLevel = f.Service.LogLevel
	}
	if f.Economy.Enabled != nil {
		cfg.Enabled = *f.Economy.Enabled
	}
	if f.Economy.GridURL != "" {
		cfg.GridURL = f.Economy.GridURL
	}
	if f.Economy.GridShortName != "" {
		cfg.GridShortName = f.Economy.GridShortName
	}
	if f.Economy.InitURL != "" {
		cfg.InitURL = f.Economy.InitURL
	}
	if f.Economy.Environment != "" {
		cfg.Environment = f.Economy.Environment
	}
	if f.Economy.SimulatorVersion != "" {
		cfg.SimulatorVersion = f.Economy.SimulatorVersion
	}
	if f.Gateway.TimeoutSeconds > 0 {
		cfg.GatewayTimeout = time.Duration(f.Gateway.TimeoutSeconds) * time.Second
	}
	if f.Presence.ClaimWorkers > 0 {
		cfg.ClaimWorkers = f.Presence.ClaimWorkers
	}
	if f.Dependencies.PostgresURL != "" {
		cfg.DatabaseURL = f.Dependencies.PostgresURL
	}
	if f.Dependencies.RedisURL != "" {
		cfg.RedisURL = f.Dependencies.RedisURL
	}
	if len(f.Dependencies.KafkaBrokers) > 0 {
		cfg.KafkaBrokers = f.Dependencies.KafkaBrokers
	}
	if f.Events.InteractionTopic != "" {
		cfg.InteractionTopic = f.Events.InteractionTopic
	}
	if len(f.Events.Topics) > 0 {
		cfg.InteractionTopics = f.Events.Topics
	}
}

// ModuleStatus reports whether the economy module may run, and why not.
func (c Config) ModuleStatus() (bool, string) {
	switch {
	case !c.Enabled:
		return false, "economy module not enabled"
	case strings.TrimSpace(c.InitURL) == "":
		return false, "missing ECONOMY_INIT_URL"
	case strings.TrimSpace(c.GridURL) == "":
		return false, "missing ECONOMY_GRID_URL"
	default:
		return true, ""
	}
}

// NormaliseGridURL gives a grid URL a scheme and a trailing slash.
func NormaliseGridURL(raw string) string {
	url := strings.TrimSpace(raw)
	if url == "" {
		return ""
	}
	if !strings.HasSuffix(url, "/") {
		url += "/"
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "http://" + url
	}
	return url
}

// envOrDefault returns an env var when present, otherwise the provided fallback.
func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

// envInt parses integer env vars with safe fallback on empty/invalid values.
func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envBool(name string, fallback bool) bool {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	switch strings.ToLower(raw) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

// envCSV parses comma-separated env vars and removes empty segments.
func envCSV(name string, fallback []string) []string {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	parts := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		parts = append(parts, trimmed)
	}
	if len(parts) == 0 {
		return fallback
	}
	return parts
}

// envPairs parses "kind=value" lists such as "dialog=sim.dialog,alert=sim.alert".
// Malformed segments are skipped.
func envPairs(name string, fallback map[string]string) map[string]string {
	parts := envCSV(name, nil)
	if len(parts) == 0 {
		return fallback
	}
	out := make(map[string]string, len(parts))
	for _, part := range parts {
		key, value, ok := strings.Cut(part, "=")
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		if !ok || key == "" || value == "" {
			continue
		}
		out[key] = value
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
