// Package config loads weathertools configuration from config/{ENV_NAME}.yaml
// plus environment overrides, following the teacher's two-phase YAML+env+
// validate() pattern (internal/config/config.go).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// AuthMode is the closed set of HTTP transport auth modes (§6).
type AuthMode string

const (
	AuthNone   AuthMode = "none"
	AuthAPIKey AuthMode = "api_key"
	AuthJWT    AuthMode = "jwt"
)

// Config holds process configuration loaded from YAML and env.
type Config struct {
	TestingMode bool

	ProxyBaseURL string
	ProxyTimeout time.Duration

	StationsBaseURL  string
	StationsClientID string
	StationsTimeout  time.Duration

	HTTPPort string // empty selects the stream transport (§6)

	LogLevel string

	AuthMode   AuthMode
	AuthSecret string // API key, or JWT signing secret

	GazetteerPath string

	CacheBackend          string // "in_memory" or "memcached"
	CacheTTL              time.Duration
	MemcachedAddrs        string
	MemcachedTimeout      time.Duration
	MemcachedMaxIdleConns int

	CircuitBreakerFailureThreshold int
	CircuitBreakerSuccessThreshold int
	CircuitBreakerTimeout          time.Duration

	InboundRateLimitRPS   int
	InboundRateLimitBurst int

	ShutdownTimeout time.Duration
}

type fileConfig struct {
	TestingMode *bool `yaml:"testing_mode"`

	Proxy struct {
		BaseURL string `yaml:"base_url"`
		Timeout string `yaml:"timeout"`
	} `yaml:"proxy"`

	Stations struct {
		BaseURL  string `yaml:"base_url"`
		ClientID string `yaml:"client_id"`
		Timeout  string `yaml:"timeout"`
	} `yaml:"stations"`

	HTTP struct {
		Port string `yaml:"port"`
	} `yaml:"http"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	Auth struct {
		Mode   string `yaml:"mode"`
		Secret string `yaml:"secret"`
	} `yaml:"auth"`

	Gazetteer struct {
		Path string `yaml:"path"`
	} `yaml:"gazetteer"`

	Cache struct {
		Backend   string `yaml:"backend"`
		TTL       string `yaml:"ttl"`
		Memcached struct {
			Addrs        string `yaml:"addrs"`
			Timeout      string `yaml:"timeout"`
			MaxIdleConns int    `yaml:"max_idle_conns"`
		} `yaml:"memcached"`
	} `yaml:"cache"`

	CircuitBreaker struct {
		FailureThreshold int    `yaml:"failure_threshold"`
		SuccessThreshold int    `yaml:"success_threshold"`
		Timeout          string `yaml:"timeout"`
	} `yaml:"circuit_breaker"`

	RateLimit struct {
		RPS   int `yaml:"rps"`
		Burst int `yaml:"burst"`
	} `yaml:"rate_limit"`

	Shutdown struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"shutdown"`
}

type secretsFile struct {
	StationsClientID string `yaml:"stations_client_id"`
	AuthSecret       string `yaml:"auth_secret"`
}

// Load reads configuration from config/{ENV_NAME}.yaml (default dev), with
// environment variables overriding individual fields; config/secrets.yaml is
// read only for secret-bearing fields still empty after that. Call from the
// project root.
func Load() (*Config, error) {
	env := os.Getenv("ENV_NAME")
	if env == "" {
		env = "dev"
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}
	configPath := filepath.Join(cwd, "config", env+".yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", configPath)
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg := &Config{}
	if fc.TestingMode != nil {
		cfg.TestingMode = *fc.TestingMode
	}

	cfg.ProxyBaseURL = firstNonEmpty(os.Getenv("PROXY_BASE_URL"), fc.Proxy.BaseURL)
	if cfg.ProxyBaseURL == "" {
		return nil, fmt.Errorf("proxy.base_url is required")
	}
	cfg.ProxyTimeout = parseDuration(fc.Proxy.Timeout, 5*time.Second)

	cfg.StationsBaseURL = firstNonEmpty(os.Getenv("STATIONS_BASE_URL"), fc.Stations.BaseURL)
	if cfg.StationsBaseURL == "" {
		return nil, fmt.Errorf("stations.base_url is required")
	}
	cfg.StationsTimeout = parseDuration(fc.Stations.Timeout, 10*time.Second)

	cfg.StationsClientID = os.Getenv("STATIONS_CLIENT_ID")
	if cfg.StationsClientID == "" {
		cfg.StationsClientID = fc.Stations.ClientID
	}
	if cfg.StationsClientID == "" {
		if sec, err := loadSecrets(cwd); err == nil {
			cfg.StationsClientID = sec.StationsClientID
		}
	}

	cfg.HTTPPort = firstNonEmpty(os.Getenv("HTTP_PORT"), fc.HTTP.Port)

	cfg.LogLevel = firstNonEmpty(os.Getenv("LOG_LEVEL"), fc.Log.Level, "info")

	cfg.AuthMode = AuthMode(firstNonEmpty(os.Getenv("AUTH_MODE"), fc.Auth.Mode, string(AuthNone)))
	cfg.AuthSecret = os.Getenv("AUTH_SECRET")
	if cfg.AuthSecret == "" {
		cfg.AuthSecret = fc.Auth.Secret
	}
	if cfg.AuthSecret == "" {
		if sec, err := loadSecrets(cwd); err == nil {
			cfg.AuthSecret = sec.AuthSecret
		}
	}

	cfg.GazetteerPath = firstNonEmpty(os.Getenv("GAZETTEER_PATH"), fc.Gazetteer.Path, "gazetteer.sqlite")

	cfg.CacheBackend = strings.ToLower(firstNonEmpty(os.Getenv("CACHE_BACKEND"), fc.Cache.Backend, "in_memory"))
	cfg.CacheTTL = parseDuration(fc.Cache.TTL, 15*time.Minute)
	cfg.MemcachedAddrs = firstNonEmpty(os.Getenv("MEMCACHED_ADDRS"), fc.Cache.Memcached.Addrs, "localhost:11211")
	cfg.MemcachedTimeout = parseDuration(fc.Cache.Memcached.Timeout, 500*time.Millisecond)
	cfg.MemcachedMaxIdleConns = fc.Cache.Memcached.MaxIdleConns
	if cfg.MemcachedMaxIdleConns <= 0 {
		cfg.MemcachedMaxIdleConns = 2
	}

	cfg.CircuitBreakerFailureThreshold = fc.CircuitBreaker.FailureThreshold
	if cfg.CircuitBreakerFailureThreshold <= 0 {
		cfg.CircuitBreakerFailureThreshold = 5
	}
	cfg.CircuitBreakerSuccessThreshold = fc.CircuitBreaker.SuccessThreshold
	if cfg.CircuitBreakerSuccessThreshold <= 0 {
		cfg.CircuitBreakerSuccessThreshold = 2
	}
	cfg.CircuitBreakerTimeout = parseDuration(fc.CircuitBreaker.Timeout, 30*time.Second)

	cfg.InboundRateLimitRPS = fc.RateLimit.RPS
	if cfg.InboundRateLimitRPS <= 0 {
		cfg.InboundRateLimitRPS = 50
	}
	cfg.InboundRateLimitBurst = fc.RateLimit.Burst
	if cfg.InboundRateLimitBurst <= 0 {
		cfg.InboundRateLimitBurst = 100
	}

	cfg.ShutdownTimeout = parseDuration(fc.Shutdown.Timeout, 30*time.Second)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadSecrets(cwd string) (secretsFile, error) {
	secretsPath := filepath.Join(cwd, "config", "secrets.yaml")
	raw, err := os.ReadFile(secretsPath)
	if err != nil {
		return secretsFile{}, err
	}
	var sec secretsFile
	if err := yaml.Unmarshal(raw, &sec); err != nil {
		return secretsFile{}, err
	}
	return sec, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func parseDuration(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

// validate performs post-load validation, failing startup with a distinct
// error when the config is unusable (§7).
func validate(cfg *Config) error {
	switch cfg.CacheBackend {
	case "in_memory", "memcached":
	default:
		return fmt.Errorf("cache.backend must be in_memory or memcached, got %q", cfg.CacheBackend)
	}
	switch cfg.AuthMode {
	case AuthNone, AuthAPIKey, AuthJWT:
	default:
		return fmt.Errorf("auth.mode must be none, api_key, or jwt, got %q", cfg.AuthMode)
	}
	if cfg.AuthMode != AuthNone && cfg.AuthSecret == "" {
		return fmt.Errorf("auth.secret is required when auth.mode is %q", cfg.AuthMode)
	}
	if cfg.ProxyTimeout <= 0 || cfg.StationsTimeout <= 0 {
		return fmt.Errorf("proxy and stations timeouts must be positive")
	}
	return nil
}
