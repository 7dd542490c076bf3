// Custodian - GRC Backup and Restore Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodian

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths are searched in order when no explicit path is given.
var DefaultConfigPaths = []string{
	"custodian.yaml",
	"custodian.yml",
	"/etc/custodian/config.yaml",
	"/etc/custodian/config.yml",
}

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

// DefaultExcludeTables are never dumped: the ledger table and transient
// tables would make a restored database reference jobs and sessions that
// no longer exist.
var DefaultExcludeTables = []string{"backup_logs", "failed_jobs", "sessions"}

// DefaultDirectories are relative to AppConfig.Root.
var DefaultDirectories = []string{"storage/app/private", "storage/app/public", ".env"}

// DefaultExcludePatterns skip logs, the backup directory and framework caches.
var DefaultExcludePatterns = []string{
	"*.log",
	"**/*.log",
	"backups/**",
	"framework/cache/**",
	"framework/sessions/**",
	"framework/views/**",
}

// Default returns the built-in configuration without reading files or the
// environment.
func Default() *Config {
	return defaultConfig()
}

func defaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Name: "grc",
			Root: ".",
		},
		Database: DatabaseConfig{
			Driver:      "mysql",
			Host:        "127.0.0.1",
			Port:        0, // engine default
			Database:    "grc",
			DumpTimeout: time.Hour,
			Tools: ToolsConfig{
				MySQLDump: "mysqldump",
				MySQL:     "mysql",
				PGDump:    "pg_dump",
				PSQL:      "psql",
			},
		},
		Backup: BackupConfig{
			DefaultStorage:       "local",
			RetentionDays:        30,
			Compress:             true,
			CompressionAlgorithm: "gzip",
			CompressionLevel:     -1,
			ExcludeTables:        append([]string(nil), DefaultExcludeTables...),
			Directories:          append([]string(nil), DefaultDirectories...),
			ExcludePatterns:      append([]string(nil), DefaultExcludePatterns...),
			PathPrefix:           "backups",
		},
		Storage: StorageConfig{
			Local:   LocalDiskConfig{Root: "storage/app"},
			Private: LocalDiskConfig{Root: "storage/app/private"},
			S3: S3Config{
				Region:          "us-east-1",
				BreakerFailures: 5,
				BreakerTimeout:  30 * time.Second,
			},
		},
		Ledger: LedgerConfig{
			Path:       "storage/custodian/ledger",
			GCInterval: 10 * time.Minute,
		},
		Events: EventsConfig{
			Enabled:   false,
			Transport: "gochannel",
			NATSURL:   "nats://127.0.0.1:4222",
			Topic:     "backup.jobs",
		},
		Server: ServerConfig{
			Host:              "127.0.0.1",
			Port:              8686,
			ReadTimeout:       30 * time.Second,
			ShutdownTimeout:   30 * time.Second,
			CORSOrigins:       []string{},
			RateLimitRequests: 60,
			RateLimitWindow:   time.Minute,
			DownloadURLTTL:    15 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads configuration from defaults, the YAML file at path (or the
// discovered default file when path is empty) and the environment, then
// validates the result.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// sliceConfigPaths accept comma-separated strings from the environment.
var sliceConfigPaths = []string{
	"backup.exclude_tables",
	"backup.directories",
	"backup.exclude_patterns",
	"server.cors_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		parts := SplitList(strVal)
		if err := k.Set(path, parts); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// SplitList splits a comma-separated list, trimming blanks.
func SplitList(s string) []string {
	out := []string{}
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

var envMappings = map[string]string{
	"app_name": "app.name",
	"app_root": "app.root",
	"app_key":  "encryption.key",

	"db_connection":   "database.driver",
	"db_host":         "database.host",
	"db_port":         "database.port",
	"db_database":     "database.database",
	"db_username":     "database.username",
	"db_password":     "database.password",
	"db_preflight":    "database.preflight",
	"db_dump_timeout": "database.dump_timeout",
	"mysqldump_path":  "database.tools.mysqldump",
	"mysql_path":      "database.tools.mysql",
	"pg_dump_path":    "database.tools.pg_dump",
	"psql_path":       "database.tools.psql",

	"backup_disk":                 "backup.default_storage",
	"backup_retention_days":       "backup.retention_days",
	"backup_compress":             "backup.compress",
	"backup_compression":          "backup.compression_algorithm",
	"backup_compression_level":    "backup.compression_level",
	"backup_exclude_tables":       "backup.exclude_tables",
	"backup_directories":          "backup.directories",
	"backup_exclude_patterns":     "backup.exclude_patterns",
	"backup_temp_dir":             "backup.temp_dir",
	"backup_path_prefix":          "backup.path_prefix",
	"backup_encryption_key":       "encryption.key",
	"backup_max_bytes_per_second": "storage.max_bytes_per_second",
	"backup_local_root":           "storage.local.root",
	"backup_private_root":         "storage.private.root",

	"aws_s3_enabled":              "storage.s3.enabled",
	"aws_bucket":                  "storage.s3.bucket",
	"aws_default_region":          "storage.s3.region",
	"aws_endpoint":                "storage.s3.endpoint",
	"aws_access_key_id":           "storage.s3.access_key_id",
	"aws_secret_access_key":       "storage.s3.secret_access_key",
	"aws_prefix":                  "storage.s3.prefix",
	"aws_use_path_style_endpoint": "storage.s3.use_path_style",

	"ledger_path":        "ledger.path",
	"ledger_in_memory":   "ledger.in_memory",
	"ledger_gc_interval": "ledger.gc_interval",

	"events_enabled":   "events.enabled",
	"events_transport": "events.transport",
	"events_topic":     "events.topic",
	"nats_url":         "events.nats_url",

	"http_host":           "server.host",
	"http_port":           "server.port",
	"http_read_timeout":   "server.read_timeout",
	"jwt_secret":          "server.jwt_secret",
	"authz_policy":        "server.authz_policy",
	"cors_origins":        "server.cors_origins",
	"rate_limit_requests": "server.rate_limit_requests",
	"rate_limit_window":   "server.rate_limit_window",
	"download_url_ttl":    "server.download_url_ttl",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps known environment variables to config keys and
// drops everything else.
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}
