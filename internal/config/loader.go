package config

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix namespaces the environment overrides.
const EnvPrefix = "SLOTFLOW_"

const maxConfigFileSize = 1024 * 1024

const defaults = `
log_level: info
log_format: text
mode: normal
extraction:
  timeout: 5s
  primary_confidence: 1.0
  fallback_confidence: 0.7
confidence:
  low: 0.5
  medium: 0.7
  high: 0.9
call:
  retry_count: 3
  timeout: 10s
  backoff_initial: 500ms
  backoff_multiplier: 2
  backoff_max: 5s
store:
  kind: memory
  path: .slotflow/conversations
redis:
  addr: localhost:6379
  db: 0
  prefix: "slotflow:conversation:"
  ttl: 24h
server:
  port: 8080
  shutdown_timeout: 10s
session:
  lock_ttl: 30s
`

// topLevel lists the keys whose names contain an underscore but no section.
var topLevel = map[string]bool{"log_level": true, "log_format": true}

// Load builds the configuration. Precedence, highest first:
//
//  1. SLOTFLOW_* environment variables
//  2. the YAML file at path, when path is not empty
//  3. built-in defaults
//
// Environment variables map onto keys by splitting at the first underscore
// after the prefix:
//
//	SLOTFLOW_REDIS_ADDR                     -> redis.addr
//	SLOTFLOW_EXTRACTION_FALLBACK_CONFIDENCE -> extraction.fallback_confidence
//	SLOTFLOW_LOG_LEVEL                      -> log_level
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(rawbytes.Provider([]byte(defaults)), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		content, err := readFile(path)
		if err != nil {
			return nil, err
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	if topLevel[lower] {
		return lower
	}
	section, field, ok := strings.Cut(lower, "_")
	if !ok {
		return lower
	}
	return section + "." + field
}

func readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("config path %s is a directory", path)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file %s exceeds %d bytes", path, maxConfigFileSize)
	}
	return io.ReadAll(io.LimitReader(f, maxConfigFileSize))
}
