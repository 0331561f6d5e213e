package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the gateway service.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Mandrill    MandrillConfig    `yaml:"mandrill"`
	DeliveryLog DeliveryLogConfig `yaml:"delivery_log"`
	LogLevel    string            `yaml:"log_level"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port           int      `yaml:"port"`
	Host           string   `yaml:"host"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	// AdminToken, when set, must accompany requests that change shared
	// gateway state in the X-Admin-Token header.
	AdminToken     string   `yaml:"admin_token"`
}

// GetHost returns the server host, with container detection
func (c ServerConfig) GetHost() string {
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// Addr returns host:port for net/http.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.GetHost(), c.Port)
}

// MandrillConfig holds Mandrill API configuration.
//
// Credentials are organised as environment → endpoint → token, so the same
// config file carries both the live key and the sandbox (test) key, and a
// deployment can hold several accounts under distinct endpoint ids.
type MandrillConfig struct {
	Name           string                         `yaml:"name"`
	Environment    string                         `yaml:"environment"`
	BaseURL        string                         `yaml:"base_url"`
	TimeoutSeconds int                            `yaml:"timeout_seconds"`
	MaxRetries     *int                           `yaml:"max_retries"` // nil means DefaultMaxRetries; 0 disables
	Environments   map[string]MandrillEnvironment `yaml:"environments"`
}

// MandrillEnvironment holds the endpoints available in one environment.
type MandrillEnvironment struct {
	BaseURL   string                      `yaml:"base_url"` // optional per-environment override
	Endpoints map[string]MandrillEndpoint `yaml:"endpoints"`
}

// MandrillEndpoint is one credential slot.
type MandrillEndpoint struct {
	Token string `yaml:"token"`
}

// Timeout returns the configured timeout as a duration
func (c MandrillConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Retries returns the retry budget for throttled requests. An unset value
// means DefaultMaxRetries; zero or less disables retries.
func (c MandrillConfig) Retries() int {
	if c.MaxRetries == nil {
		return DefaultMaxRetries
	}
	return *c.MaxRetries
}

// Token looks up the API token for an environment and endpoint id.
// The second return value is false when either slot is missing.
func (c MandrillConfig) Token(environment, endpointID string) (string, bool) {
	env, ok := c.Environments[environment]
	if !ok {
		return "", false
	}
	ep, ok := env.Endpoints[endpointID]
	if !ok {
		return "", false
	}
	return ep.Token, true
}

// HasEnvironment reports whether any credentials exist for environment.
func (c MandrillConfig) HasEnvironment(environment string) bool {
	_, ok := c.Environments[environment]
	return ok
}

// EndpointURL returns the API base URL for an environment, honouring the
// per-environment override.
func (c MandrillConfig) EndpointURL(environment string) string {
	if env, ok := c.Environments[environment]; ok && env.BaseURL != "" {
		return env.BaseURL
	}
	return c.BaseURL
}

// setToken writes a token into a slot, creating the environment if needed.
func (c *MandrillConfig) setToken(environment, endpointID, token string) {
	if c.Environments == nil {
		c.Environments = make(map[string]MandrillEnvironment)
	}
	env := c.Environments[environment]
	if env.Endpoints == nil {
		env.Endpoints = make(map[string]MandrillEndpoint)
	}
	env.Endpoints[endpointID] = MandrillEndpoint{Token: token}
	c.Environments[environment] = env
}

// DeliveryLogConfig selects where classified sends are recorded.
type DeliveryLogConfig struct {
	Type        string `yaml:"type"` // "none", "postgres" or "redis"
	DatabaseURL string `yaml:"database_url"`
	RedisAddr   string `yaml:"redis_addr"`
	RedisKey    string `yaml:"redis_key"`
	MaxEntries  int64  `yaml:"max_entries"`
}

// Default names used when the file leaves them empty.
const (
	DefaultGatewayName = "mandrill"
	DefaultEnvironment = "live"
	DefaultEndpointID  = "default"
	DefaultBaseURL     = "https://mandrillapp.com/api/1.0"
	DefaultMaxRetries  = 2
)

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = []string{"http://localhost:5173", "http://localhost:8080"}
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Mandrill.Name == "" {
		cfg.Mandrill.Name = DefaultGatewayName
	}
	if cfg.Mandrill.Environment == "" {
		cfg.Mandrill.Environment = DefaultEnvironment
	}
	if cfg.Mandrill.BaseURL == "" {
		cfg.Mandrill.BaseURL = DefaultBaseURL
	}
	if cfg.Mandrill.TimeoutSeconds == 0 {
		cfg.Mandrill.TimeoutSeconds = 30
	}
	if cfg.Mandrill.MaxRetries == nil {
		n := DefaultMaxRetries
		cfg.Mandrill.MaxRetries = &n
	}
	if cfg.DeliveryLog.Type == "" {
		cfg.DeliveryLog.Type = "none"
	}
	if cfg.DeliveryLog.RedisKey == "" {
		cfg.DeliveryLog.RedisKey = "mandrill:sends"
	}
	if cfg.DeliveryLog.MaxEntries == 0 {
		cfg.DeliveryLog.MaxEntries = 1000
	}
}

// LoadFromEnv loads configuration with environment variable overrides.
// It loads a .env file (if present) first, so keys can live in .env locally
// and in real env vars in deployment.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("MANDRILL_ENVIRONMENT"); v != "" {
		cfg.Mandrill.Environment = v
	}
	if v := os.Getenv("MANDRILL_BASE_URL"); v != "" {
		cfg.Mandrill.BaseURL = v
	}
	if v := os.Getenv("MANDRILL_API_KEY"); v != "" {
		cfg.Mandrill.setToken("live", DefaultEndpointID, v)
	}
	if v := os.Getenv("MANDRILL_SANDBOX_API_KEY"); v != "" {
		cfg.Mandrill.setToken("sandbox", DefaultEndpointID, v)
	}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		cfg.Server.AllowedOrigins = strings.Split(v, ",")
	}
	if v := os.Getenv("ADMIN_TOKEN"); v != "" {
		cfg.Server.AdminToken = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DeliveryLog.DatabaseURL = v
		if cfg.DeliveryLog.Type == "none" {
			cfg.DeliveryLog.Type = "postgres"
		}
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.DeliveryLog.RedisAddr = v
	}

	return cfg, nil
}
