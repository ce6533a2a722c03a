// Package config loads process settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every setting of the storeflow binary.
type Config struct {
	// DBDSN is a SQLite path or a postgres:// URL. Empty uses in-memory stores.
	DBDSN string
	// RedisAddr moves variables, tags and pending inputs to Redis and enables
	// the distributed per-user lock.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	PendingTTL    time.Duration

	// FlowsDir is a directory of Markdown node documents, watched for changes.
	FlowsDir string
	// FlowFile is a YAML bundle of nodes, rules and presets.
	FlowFile string

	StartNode string
	HTTPAddr  string
	PublicURL string
	LogLevel  string
	AdminIDs  []string

	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFrom       string

	// EncryptionKey encrypts user variables at rest. 32 bytes, hex or base64.
	EncryptionKey          string
	EncryptionFallbackKeys []string
	// PIIKeys are patterns of variable and order field keys masked on save.
	PIIKeys []string
}

// Defaults returns the settings used when nothing is configured.
func Defaults() Config {
	return Config{
		StartNode: "MAIN",
		HTTPAddr:  ":8080",
		LogLevel:  "info",
	}
}

// Load reads the .env file at envFile, if it exists, then the environment.
// Variables already set in the environment win over the file.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}
	return FromEnv(os.LookupEnv)
}

// FromEnv builds a Config from a lookup function such as os.LookupEnv.
func FromEnv(lookup func(string) (string, bool)) (Config, error) {
	cfg := Defaults()
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	str("STOREFLOW_DB_DSN", &cfg.DBDSN)
	str("STOREFLOW_REDIS_ADDR", &cfg.RedisAddr)
	str("STOREFLOW_REDIS_PASSWORD", &cfg.RedisPassword)
	str("STOREFLOW_FLOWS_DIR", &cfg.FlowsDir)
	str("STOREFLOW_FLOW_FILE", &cfg.FlowFile)
	str("STOREFLOW_START_NODE", &cfg.StartNode)
	str("STOREFLOW_HTTP_ADDR", &cfg.HTTPAddr)
	str("STOREFLOW_PUBLIC_URL", &cfg.PublicURL)
	str("STOREFLOW_LOG_LEVEL", &cfg.LogLevel)
	str("TWILIO_ACCOUNT_SID", &cfg.TwilioAccountSID)
	str("TWILIO_AUTH_TOKEN", &cfg.TwilioAuthToken)
	str("TWILIO_FROM_NUMBER", &cfg.TwilioFrom)
	str("STOREFLOW_ENCRYPTION_KEY", &cfg.EncryptionKey)

	if v, ok := lookup("STOREFLOW_REDIS_DB"); ok && v != "" {
		var db int
		if _, err := fmt.Sscanf(v, "%d", &db); err != nil {
			return Config{}, fmt.Errorf("STOREFLOW_REDIS_DB: %w", err)
		}
		cfg.RedisDB = db
	}
	if v, ok := lookup("STOREFLOW_PENDING_TTL"); ok && v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("STOREFLOW_PENDING_TTL: %w", err)
		}
		cfg.PendingTTL = ttl
	}
	if v, ok := lookup("STOREFLOW_ADMIN_IDS"); ok {
		cfg.AdminIDs = SplitList(v)
	}
	if v, ok := lookup("STOREFLOW_ENCRYPTION_FALLBACK_KEYS"); ok {
		cfg.EncryptionFallbackKeys = SplitList(v)
	}
	if v, ok := lookup("STOREFLOW_PII_KEYS"); ok {
		cfg.PIIKeys = SplitList(v)
	}
	return cfg, nil
}

// SplitList splits a comma separated list, dropping blanks.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// TwilioEnabled reports whether the WhatsApp transport is configured.
func (c Config) TwilioEnabled() bool {
	return c.TwilioAccountSID != "" && c.TwilioAuthToken != "" && c.TwilioFrom != ""
}
