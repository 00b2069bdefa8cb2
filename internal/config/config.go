/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Database backend selection.
type DatabaseBackend string

const (
	DatabasePostgres DatabaseBackend = "postgres"
	DatabaseMySQL    DatabaseBackend = "mysql"
	DatabaseSQLite   DatabaseBackend = "sqlite"
)

// Event bus backend selection for multi-instance deployments.
type BusBackend string

const (
	BusMemory BusBackend = "memory"
	BusRedis  BusBackend = "redis"
	BusNATS   BusBackend = "nats"
)

// Config covers process level configuration read from environment variables.
type Config struct {
	Environment string
	HTTPBind    string
	HTTPPort    int
	DBBackend   DatabaseBackend
	DBDSN       string
	MetricsBind string

	// Script sandbox configuration. ScriptDirs is the allow-list of base
	// directories scripts must resolve into; it is fixed for the process
	// lifetime.
	ScriptDirs                []string
	ScriptRequireExec         bool
	ScriptRejectWorldWritable bool
	ScriptTimeout             time.Duration
	ScriptMaxOutputBytes      int

	// Webhook delivery configuration
	WebhookTimeout time.Duration

	// Plugin manifests
	PluginDir             string
	PluginRefreshInterval time.Duration
	PluginInvokeTimeout   time.Duration

	// Distributed event bus (optional)
	BusBackend    BusBackend
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	NATSURL       string
	InstanceID    string

	// Tracing configuration
	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64
}

// Load reads environment variables, applies defaults, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Environment: getEnv("HEIMDALL_ENV", "development"),
		HTTPBind:    getEnv("HEIMDALL_HTTP_BIND", "0.0.0.0"),
		HTTPPort:    getEnvInt("HEIMDALL_HTTP_PORT", 8080),
		DBBackend:   DatabaseBackend(getEnv("HEIMDALL_DB_BACKEND", string(DatabaseSQLite))),
		DBDSN:       getEnv("HEIMDALL_DB_DSN", "heimdall.db"),
		MetricsBind: getEnv("HEIMDALL_METRICS_BIND", "127.0.0.1:9000"),

		ScriptDirs:                splitDirs(getEnv("HEIMDALL_SCRIPT_DIRS", "/data/scripts")),
		ScriptRequireExec:         getEnvBool("HEIMDALL_SCRIPT_REQUIRE_EXEC", true),
		ScriptRejectWorldWritable: getEnvBool("HEIMDALL_SCRIPT_REJECT_WORLD_WRITABLE", true),
		ScriptTimeout:             time.Duration(getEnvInt("HEIMDALL_SCRIPT_TIMEOUT_SECONDS", 30)) * time.Second,
		ScriptMaxOutputBytes:      getEnvInt("HEIMDALL_SCRIPT_MAX_OUTPUT_BYTES", 10240),

		WebhookTimeout: time.Duration(getEnvInt("HEIMDALL_WEBHOOK_TIMEOUT_SECONDS", 10)) * time.Second,

		PluginDir:             getEnv("HEIMDALL_PLUGIN_DIR", "/data/plugins"),
		PluginRefreshInterval: time.Duration(getEnvInt("HEIMDALL_PLUGIN_REFRESH_SECONDS", 60)) * time.Second,
		PluginInvokeTimeout:   time.Duration(getEnvInt("HEIMDALL_PLUGIN_INVOKE_TIMEOUT_SECONDS", 10)) * time.Second,

		BusBackend:    BusBackend(getEnv("HEIMDALL_BUS_BACKEND", string(BusMemory))),
		RedisAddr:     getEnv("HEIMDALL_REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("HEIMDALL_REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("HEIMDALL_REDIS_DB", 0),
		NATSURL:       getEnv("HEIMDALL_NATS_URL", "nats://localhost:4222"),
		InstanceID:    getEnv("HEIMDALL_INSTANCE_ID", ""),

		TracingEnabled:    getEnvBool("HEIMDALL_TRACING_ENABLED", false),
		OTLPEndpoint:      getEnv("HEIMDALL_OTLP_ENDPOINT", "localhost:4317"),
		TracingSampleRate: getEnvFloat("HEIMDALL_TRACING_SAMPLE_RATE", 1.0),
	}

	switch cfg.DBBackend {
	case DatabasePostgres, DatabaseMySQL, DatabaseSQLite:
	default:
		return nil, fmt.Errorf("unknown database backend: %s", cfg.DBBackend)
	}

	switch cfg.BusBackend {
	case BusMemory, BusRedis, BusNATS:
	default:
		return nil, fmt.Errorf("unknown bus backend: %s", cfg.BusBackend)
	}

	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("HEIMDALL_DB_DSN is required")
	}

	if len(cfg.ScriptDirs) == 0 {
		return nil, fmt.Errorf("HEIMDALL_SCRIPT_DIRS must name at least one directory")
	}
	for _, dir := range cfg.ScriptDirs {
		if !filepath.IsAbs(dir) {
			return nil, fmt.Errorf("script dir must be absolute: %s", dir)
		}
	}

	if cfg.ScriptTimeout <= 0 {
		return nil, fmt.Errorf("HEIMDALL_SCRIPT_TIMEOUT_SECONDS must be positive")
	}
	if cfg.ScriptMaxOutputBytes <= 0 {
		return nil, fmt.Errorf("HEIMDALL_SCRIPT_MAX_OUTPUT_BYTES must be positive")
	}

	return cfg, nil
}

// splitDirs parses a colon separated directory list, dropping empty entries.
func splitDirs(raw string) []string {
	var dirs []string
	for _, part := range strings.Split(raw, ":") {
		part = strings.TrimSpace(part)
		if part != "" {
			dirs = append(dirs, filepath.Clean(part))
		}
	}
	return dirs
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
