package config

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/nodegraph/internal/logging"
	"github.com/aretw0/nodegraph/pkg/persistence/middleware"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultFile is the configuration file looked up in the working directory.
const DefaultFile = "nodegraph.yaml"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "NODEGRAPH_"

// Session store kinds.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
)

// Config holds the settings shared by the CLI commands and servers.
type Config struct {
	Graph    string `yaml:"graph"`
	Lenient  bool   `yaml:"lenient"`
	LogLevel string `yaml:"log_level"`

	Store    StoreConfig    `yaml:"store"`
	Redis    RedisConfig    `yaml:"redis"`
	Security SecurityConfig `yaml:"security"`

	HTTPAddr string `yaml:"http_addr"`
	Metrics  bool   `yaml:"metrics"`

	// StrictOwnership rejects engine calls from goroutines other than the one that built it.
	StrictOwnership bool `yaml:"strict_ownership"`
}

type StoreConfig struct {
	Kind string `yaml:"kind"`
	Dir  string `yaml:"dir"`
}

type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Prefix   string        `yaml:"prefix"`
	TTL      time.Duration `yaml:"ttl"`
}

type SecurityConfig struct {
	// EncryptionKey is a 32-byte AES key, hex or base64 encoded. Empty disables encryption.
	EncryptionKey string   `yaml:"encryption_key"`
	PIIKeys       []string `yaml:"pii_keys"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Store:    StoreConfig{Kind: StoreMemory, Dir: ".nodegraph/sessions"},
		Redis:    RedisConfig{Addr: "localhost:6379", Prefix: "nodegraph:session:"},
		HTTPAddr: ":8080",
	}
}

// Load builds the configuration from defaults, the YAML file at path, a .env file
// in the working directory and NODEGRAPH_* variables, later sources winning.
// A missing file is not an error unless path was given explicitly.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	if err := cfg.loadFile(path); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	// Variables already set in the process take precedence over .env.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) loadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}
	var errs []error
	boolean := func(name string, dst *bool) {
		if v, ok := lookup(EnvPrefix + name); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = b
		}
	}

	str("GRAPH", &c.Graph)
	boolean("LENIENT", &c.Lenient)
	str("LOG_LEVEL", &c.LogLevel)
	str("STORE", &c.Store.Kind)
	str("SESSION_DIR", &c.Store.Dir)
	str("REDIS_ADDR", &c.Redis.Addr)
	str("REDIS_PASSWORD", &c.Redis.Password)
	str("REDIS_PREFIX", &c.Redis.Prefix)
	str("HTTP_ADDR", &c.HTTPAddr)
	boolean("METRICS", &c.Metrics)
	boolean("STRICT_OWNERSHIP", &c.StrictOwnership)
	str("ENCRYPTION_KEY", &c.Security.EncryptionKey)

	if v, ok := lookup(EnvPrefix + "REDIS_DB"); ok {
		db, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sREDIS_DB: %w", EnvPrefix, err))
		}
		c.Redis.DB = db
	}
	if v, ok := lookup(EnvPrefix + "REDIS_TTL"); ok {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sREDIS_TTL: %w", EnvPrefix, err))
		}
		c.Redis.TTL = ttl
	}
	if v, ok := lookup(EnvPrefix + "PII_KEYS"); ok {
		c.Security.PIIKeys = nil
		for _, k := range strings.Split(v, ",") {
			if k = strings.TrimSpace(k); k != "" {
				c.Security.PIIKeys = append(c.Security.PIIKeys, k)
			}
		}
	}
	return errors.Join(errs...)
}

// Validate checks values that would otherwise fail late, when a command starts serving.
func (c *Config) Validate() error {
	var errs []error
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	switch c.Store.Kind {
	case StoreMemory, StoreFile, StoreRedis:
	default:
		errs = append(errs, fmt.Errorf("unknown session store %q (want memory, file or redis)", c.Store.Kind))
	}
	if c.Redis.TTL < 0 {
		errs = append(errs, fmt.Errorf("redis ttl must not be negative"))
	}
	if _, err := c.Key(); err != nil {
		errs = append(errs, err)
	}
	if err := middleware.ValidatePatterns(c.Security.PIIKeys); err != nil {
		errs = append(errs, fmt.Errorf("invalid pii key pattern: %w", err))
	}
	return errors.Join(errs...)
}

// Key decodes the encryption key. It returns nil when encryption is disabled.
func (c *Config) Key() ([]byte, error) {
	raw := strings.TrimSpace(c.Security.EncryptionKey)
	if raw == "" {
		return nil, nil
	}
	if key, err := hex.DecodeString(raw); err == nil && len(key) == 32 {
		return key, nil
	}
	if key, err := base64.StdEncoding.DecodeString(raw); err == nil && len(key) == 32 {
		return key, nil
	}
	return nil, errors.New("encryption key must be 32 bytes, hex or base64 encoded")
}
