// Package config resolves client settings from defaults, an optional YAML
// file and the environment, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dvcrn/bank-api-client/internal/env"
)

// Store backends.
const (
	StoreMemory  = "memory"
	StoreFile    = "file"
	StoreKeyring = "keyring"
	StoreRedis   = "redis"
	StoreKV      = "kv"
)

// Config holds the resolved configuration.
type Config struct {
	BaseURL     string   `yaml:"base_url"`
	PublicPaths []string `yaml:"public_paths"`

	RequestTimeout  time.Duration `yaml:"request_timeout"`
	RefreshTimeout  time.Duration `yaml:"refresh_timeout"`
	RefreshInterval time.Duration `yaml:"refresh_interval"`
	RefreshSkew     time.Duration `yaml:"refresh_skew"`
	ListPageSize    int           `yaml:"list_page_size"`

	Store           string        `yaml:"store"`
	CredentialsPath string        `yaml:"credentials_path"`
	KeyringService  string        `yaml:"keyring_service"`
	RedisAddr       string        `yaml:"redis_addr"`
	RedisKey        string        `yaml:"redis_key"`
	RedisTTL        time.Duration `yaml:"redis_ttl"`
	KVBinding       string        `yaml:"kv_binding"`

	ListenAddr  string `yaml:"listen_addr"`
	AdminAPIKey string `yaml:"-"`

	// Sources records where each overridden field came from.
	Sources map[string]string `yaml:"-"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		BaseURL:         "http://localhost:8080",
		PublicPaths:     []string{"/auth/login", "/auth/register"},
		RequestTimeout:  30 * time.Second,
		RefreshTimeout:  10 * time.Second,
		RefreshInterval: 5 * time.Minute,
		RefreshSkew:     5 * time.Minute,
		ListPageSize:    100,
		Store:           StoreFile,
		KeyringService:  "bankctl",
		RedisAddr:       "localhost:6379",
		RedisKey:        "bankctl:session",
		KVBinding:       "bank_api_client_kv",
		ListenAddr:      ":9877",
		Sources:         make(map[string]string),
	}
}

// Load resolves the configuration. path may be empty, in which case
// BANK_CONFIG_FILE is consulted; a missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = env.GetOrDefault("BANK_CONFIG_FILE", "")
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.loadEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}

	var fileCfg Config
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	c.merge(&fileCfg, "file:"+path)
	return nil
}

// merge copies every non-zero field of other into c.
func (c *Config) merge(other *Config, source string) {
	set := func(field string) { c.Sources[field] = source }

	if other.BaseURL != "" {
		c.BaseURL = other.BaseURL
		set("base_url")
	}
	if len(other.PublicPaths) > 0 {
		c.PublicPaths = other.PublicPaths
		set("public_paths")
	}
	if other.RequestTimeout > 0 {
		c.RequestTimeout = other.RequestTimeout
		set("request_timeout")
	}
	if other.RefreshTimeout > 0 {
		c.RefreshTimeout = other.RefreshTimeout
		set("refresh_timeout")
	}
	if other.RefreshInterval > 0 {
		c.RefreshInterval = other.RefreshInterval
		set("refresh_interval")
	}
	if other.RefreshSkew > 0 {
		c.RefreshSkew = other.RefreshSkew
		set("refresh_skew")
	}
	if other.ListPageSize > 0 {
		c.ListPageSize = other.ListPageSize
		set("list_page_size")
	}
	if other.Store != "" {
		c.Store = other.Store
		set("store")
	}
	if other.CredentialsPath != "" {
		c.CredentialsPath = other.CredentialsPath
		set("credentials_path")
	}
	if other.KeyringService != "" {
		c.KeyringService = other.KeyringService
		set("keyring_service")
	}
	if other.RedisAddr != "" {
		c.RedisAddr = other.RedisAddr
		set("redis_addr")
	}
	if other.RedisKey != "" {
		c.RedisKey = other.RedisKey
		set("redis_key")
	}
	if other.RedisTTL > 0 {
		c.RedisTTL = other.RedisTTL
		set("redis_ttl")
	}
	if other.KVBinding != "" {
		c.KVBinding = other.KVBinding
		set("kv_binding")
	}
	if other.ListenAddr != "" {
		c.ListenAddr = other.ListenAddr
		set("listen_addr")
	}
}

func (c *Config) loadEnv() error {
	var fromEnv Config

	fromEnv.BaseURL = env.GetOrDefault("BANK_API_BASE_URL", "")
	if paths, ok := env.List("BANK_PUBLIC_PATHS"); ok {
		fromEnv.PublicPaths = paths
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"BANK_REQUEST_TIMEOUT", &fromEnv.RequestTimeout},
		{"BANK_REFRESH_TIMEOUT", &fromEnv.RefreshTimeout},
		{"TOKEN_REFRESH_INTERVAL", &fromEnv.RefreshInterval},
		{"BANK_REFRESH_SKEW", &fromEnv.RefreshSkew},
		{"BANK_REDIS_TTL", &fromEnv.RedisTTL},
	}
	for _, d := range durations {
		v, ok, err := env.Duration(d.key)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", d.key, err)
		}
		if ok {
			*d.dst = v
		}
	}

	if n, ok, err := env.Int("BANK_LIST_PAGE_SIZE"); err != nil {
		return fmt.Errorf("invalid BANK_LIST_PAGE_SIZE: %w", err)
	} else if ok {
		fromEnv.ListPageSize = n
	}

	fromEnv.Store = strings.ToLower(env.GetOrDefault("BANK_CREDENTIAL_STORE", ""))
	fromEnv.CredentialsPath = env.GetOrDefault("BANK_CREDENTIALS_PATH", "")
	fromEnv.KeyringService = env.GetOrDefault("BANK_KEYRING_SERVICE", "")
	fromEnv.RedisAddr = env.GetOrDefault("BANK_REDIS_ADDR", "")
	fromEnv.RedisKey = env.GetOrDefault("BANK_REDIS_KEY", "")
	fromEnv.KVBinding = env.GetOrDefault("BANK_KV_BINDING", "")
	if port, ok := env.Get("PORT"); ok {
		fromEnv.ListenAddr = ":" + strings.TrimPrefix(port, ":")
	}

	c.merge(&fromEnv, "env")
	c.AdminAPIKey = env.GetOrDefault("ADMIN_API_KEY", "")
	return nil
}

// Validate rejects settings the client cannot run with.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return errors.New("base URL is required")
	}
	if !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return fmt.Errorf("base URL %q must be http or https", c.BaseURL)
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")

	switch c.Store {
	case StoreMemory, StoreFile, StoreKeyring, StoreRedis, StoreKV:
	default:
		return fmt.Errorf("unknown credential store %q", c.Store)
	}
	if c.ListPageSize <= 0 {
		return fmt.Errorf("list page size must be positive, got %d", c.ListPageSize)
	}
	if c.RefreshTimeout <= 0 {
		return errors.New("refresh timeout must be positive")
	}
	return nil
}
