// Package config loads slotflow settings from defaults, an optional YAML file
// and SLOTFLOW_ environment variables.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Store kinds.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
	StoreSQLite = "sqlite"
)

// Config is the complete runtime configuration.
type Config struct {
	LogLevel  string `koanf:"log_level"`
	LogFormat string `koanf:"log_format"`
	// Mode selects the default extraction priority: "normal" tries the
	// primary extractor first, "reflex" the regex fallback.
	Mode string `koanf:"mode"`

	Extraction ExtractionConfig `koanf:"extraction"`
	Confidence ConfidenceConfig `koanf:"confidence"`
	Call       CallConfig       `koanf:"call"`
	Store      StoreConfig      `koanf:"store"`
	Redis      RedisConfig      `koanf:"redis"`
	Server     ServerConfig     `koanf:"server"`
	Encryption EncryptionConfig `koanf:"encryption"`
	PII        PIIConfig        `koanf:"pii"`
	Transport  TransportConfig  `koanf:"transport"`
	Session    SessionConfig    `koanf:"session"`
	Catalog    CatalogConfig    `koanf:"catalog"`
}

// ExtractionConfig tunes extraction. Command, when set, runs as the primary
// extractor (see pkg/adapters/process).
type ExtractionConfig struct {
	Command            string        `koanf:"command"`
	Args               []string      `koanf:"args"`
	Timeout            time.Duration `koanf:"timeout"`
	PrimaryConfidence  float64       `koanf:"primary_confidence"`
	FallbackConfidence float64       `koanf:"fallback_confidence"`
}

// ConfidenceConfig holds the shared gate thresholds.
type ConfidenceConfig struct {
	Low    float64 `koanf:"low"`
	Medium float64 `koanf:"medium"`
	High   float64 `koanf:"high"`
}

type CallConfig struct {
	RetryCount        int           `koanf:"retry_count"`
	Timeout           time.Duration `koanf:"timeout"`
	BackoffInitial    time.Duration `koanf:"backoff_initial"`
	BackoffMultiplier float64       `koanf:"backoff_multiplier"`
	BackoffMax        time.Duration `koanf:"backoff_max"`
}

type StoreConfig struct {
	Kind string `koanf:"kind"`
	// Path is the directory of the file store or the database of the sqlite store.
	Path string `koanf:"path"`
}

type RedisConfig struct {
	Addr     string        `koanf:"addr"`
	Password Secret        `koanf:"password"`
	DB       int           `koanf:"db"`
	Prefix   string        `koanf:"prefix"`
	TTL      time.Duration `koanf:"ttl"`
	// Lock enables the distributed conversation lock.
	Lock bool `koanf:"lock"`
}

type ServerConfig struct {
	Port            int           `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// EncryptionConfig enables the encryption middleware when Key is set.
type EncryptionConfig struct {
	// Key is a base64 encoded 32-byte AES key.
	Key          Secret   `koanf:"key"`
	FallbackKeys []Secret `koanf:"fallback_keys"`
}

// PIIConfig enables masking of stored state when Enabled is true.
type PIIConfig struct {
	Enabled  bool     `koanf:"enabled"`
	Patterns []string `koanf:"patterns"`
}

type TransportConfig struct {
	URL   string `koanf:"url"`
	Token Secret `koanf:"token"`
}

type SessionConfig struct {
	LockTTL time.Duration `koanf:"lock_ttl"`
}

// CatalogConfig points the booking flow at a service catalog. Sources are
// tried in order: File (a YAML list of services), Dir (Markdown service
// documents named by Services), URL. With none set the built-in demo
// catalog is used.
type CatalogConfig struct {
	URL      string   `koanf:"url"`
	File     string   `koanf:"file"`
	Dir      string   `koanf:"dir"`
	Services []string `koanf:"services"`
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.Mode {
	case "normal", "reflex":
	default:
		return fmt.Errorf("invalid mode %q (must be normal or reflex)", c.Mode)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format %q (must be text or json)", c.LogFormat)
	}

	for name, v := range map[string]float64{
		"confidence.low":                 c.Confidence.Low,
		"confidence.medium":              c.Confidence.Medium,
		"confidence.high":                c.Confidence.High,
		"extraction.primary_confidence":  c.Extraction.PrimaryConfidence,
		"extraction.fallback_confidence": c.Extraction.FallbackConfidence,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be within [0,1], got %v", name, v)
		}
	}
	if c.Confidence.Low > c.Confidence.Medium || c.Confidence.Medium > c.Confidence.High {
		return errors.New("confidence thresholds must satisfy low <= medium <= high")
	}

	if c.Call.RetryCount < 1 {
		return fmt.Errorf("call.retry_count must be at least 1, got %d", c.Call.RetryCount)
	}
	if c.Call.Timeout <= 0 {
		return errors.New("call.timeout must be positive")
	}

	switch c.Store.Kind {
	case StoreMemory:
	case StoreFile, StoreSQLite:
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for the %s store", c.Store.Kind)
		}
	case StoreRedis:
		if c.Redis.Addr == "" {
			return errors.New("redis.addr is required for the redis store")
		}
	default:
		return fmt.Errorf("invalid store kind %q", c.Store.Kind)
	}
	if c.Redis.Lock && c.Redis.Addr == "" {
		return errors.New("redis.addr is required for the distributed lock")
	}

	if c.Catalog.Dir != "" && len(c.Catalog.Services) == 0 {
		return errors.New("catalog.services must list the documents of catalog.dir")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Session.LockTTL <= 0 {
		return errors.New("session.lock_ttl must be positive")
	}
	return nil
}
