// Custodian - GRC Backup and Restore Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodian

package config

import "time"

// Config is the complete runtime configuration.
type Config struct {
	App        AppConfig        `koanf:"app"`
	Database   DatabaseConfig   `koanf:"database"`
	Backup     BackupConfig     `koanf:"backup"`
	Storage    StorageConfig    `koanf:"storage"`
	Encryption EncryptionConfig `koanf:"encryption"`
	Ledger     LedgerConfig     `koanf:"ledger"`
	Events     EventsConfig     `koanf:"events"`
	Server     ServerConfig     `koanf:"server"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// AppConfig describes the host application.
type AppConfig struct {
	Name string `koanf:"name"`
	// Root is the application root; backup directories and restored files
	// are resolved relative to it.
	Root string `koanf:"root" validate:"required"`
}

// DatabaseConfig is the connection to the database being backed up.
type DatabaseConfig struct {
	Driver   string `koanf:"driver" validate:"required"`
	Host     string `koanf:"host"`
	Port     int    `koanf:"port" validate:"gte=0,lte=65535"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	// Database is the schema name, or the file path for embedded engines.
	Database string `koanf:"database" validate:"required"`

	// Preflight checks connectivity before invoking dump tools (postgres only).
	Preflight   bool          `koanf:"preflight"`
	DumpTimeout time.Duration `koanf:"dump_timeout" validate:"gte=0"`
	Tools       ToolsConfig   `koanf:"tools"`
}

// ToolsConfig holds paths to the native dump and restore binaries.
type ToolsConfig struct {
	MySQLDump string `koanf:"mysqldump"`
	MySQL     string `koanf:"mysql"`
	PGDump    string `koanf:"pg_dump"`
	PSQL      string `koanf:"psql"`
}

// BackupConfig holds process-wide backup defaults.
type BackupConfig struct {
	DefaultStorage       string   `koanf:"default_storage" validate:"required"`
	RetentionDays        int      `koanf:"retention_days" validate:"gte=0"`
	Compress             bool     `koanf:"compress"`
	CompressionAlgorithm string   `koanf:"compression_algorithm" validate:"oneof=gzip zstd"`
	CompressionLevel     int      `koanf:"compression_level" validate:"gte=-1,lte=22"`
	ExcludeTables        []string `koanf:"exclude_tables"`
	Directories          []string `koanf:"directories"`
	ExcludePatterns      []string `koanf:"exclude_patterns"`
	// TempDir is the parent of per-job workspaces; empty means os.TempDir().
	TempDir string `koanf:"temp_dir"`
	// PathPrefix is the artifact key prefix inside the storage backend.
	PathPrefix string `koanf:"path_prefix" validate:"required"`
}

// StorageConfig configures the named storage backends.
type StorageConfig struct {
	Local   LocalDiskConfig `koanf:"local"`
	Private LocalDiskConfig `koanf:"private"`
	S3      S3Config        `koanf:"s3"`
	// MaxBytesPerSecond throttles artifact uploads and downloads; 0 disables.
	MaxBytesPerSecond int64 `koanf:"max_bytes_per_second" validate:"gte=0"`
}

// LocalDiskConfig is a filesystem-backed disk.
type LocalDiskConfig struct {
	Root string `koanf:"root"`
}

// S3Config is an S3-compatible object store.
type S3Config struct {
	Enabled         bool          `koanf:"enabled"`
	Bucket          string        `koanf:"bucket"`
	Region          string        `koanf:"region"`
	Endpoint        string        `koanf:"endpoint"`
	AccessKeyID     string        `koanf:"access_key_id"`
	SecretAccessKey string        `koanf:"secret_access_key"`
	Prefix          string        `koanf:"prefix"`
	UsePathStyle    bool          `koanf:"use_path_style"`
	BreakerFailures uint32        `koanf:"breaker_failures"`
	BreakerTimeout  time.Duration `koanf:"breaker_timeout"`
}

// EncryptionConfig holds the application-wide symmetric key.
type EncryptionConfig struct {
	// Key is either a raw secret or "base64:<encoded>".
	Key string `koanf:"key"`
}

// LedgerConfig configures the BadgerDB job ledger.
type LedgerConfig struct {
	Path       string        `koanf:"path"`
	InMemory   bool          `koanf:"in_memory"`
	GCInterval time.Duration `koanf:"gc_interval"`
}

// EventsConfig configures job lifecycle event publishing.
type EventsConfig struct {
	Enabled   bool   `koanf:"enabled"`
	Transport string `koanf:"transport" validate:"oneof=gochannel nats"`
	NATSURL   string `koanf:"nats_url"`
	Topic     string `koanf:"topic"`
}

// ServerConfig configures the admin HTTP API.
type ServerConfig struct {
	Host              string        `koanf:"host"`
	Port              int           `koanf:"port" validate:"gte=1,lte=65535"`
	ReadTimeout       time.Duration `koanf:"read_timeout"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout"`
	JWTSecret         string        `koanf:"jwt_secret" validate:"omitempty,min=32"`
	AuthzPolicy       string        `koanf:"authz_policy"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitRequests int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	DownloadURLTTL    time.Duration `koanf:"download_url_ttl"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}
