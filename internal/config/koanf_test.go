// Custodian - GRC Backup and Restore Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodian

package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

// isolateEnv points CONFIG_PATH at a missing file and runs from an empty
// directory so default config files on the host are not picked up.
func isolateEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv(ConfigPathEnvVar, filepath.Join(dir, "missing.yaml"))
	return dir
}

func writeConfigFile(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "custodian.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Backup.RetentionDays != 30 {
		t.Errorf("Backup.RetentionDays = %d, want 30", cfg.Backup.RetentionDays)
	}
	if !cfg.Backup.Compress {
		t.Error("Backup.Compress should default to true")
	}
	if !reflect.DeepEqual(cfg.Backup.ExcludeTables, []string{"backup_logs", "failed_jobs", "sessions"}) {
		t.Errorf("Backup.ExcludeTables = %v", cfg.Backup.ExcludeTables)
	}
	if cfg.Backup.DefaultStorage != "local" {
		t.Errorf("Backup.DefaultStorage = %q, want local", cfg.Backup.DefaultStorage)
	}
	if cfg.Database.DumpTimeout != time.Hour {
		t.Errorf("Database.DumpTimeout = %v, want 1h", cfg.Database.DumpTimeout)
	}

	// Defaults must not alias the package-level slices.
	cfg.Backup.ExcludeTables[0] = "mutated"
	if DefaultExcludeTables[0] != "backup_logs" {
		t.Error("defaultConfig aliases DefaultExcludeTables")
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		env  string
		want string
	}{
		{"DB_CONNECTION", "database.driver"},
		{"DB_PASSWORD", "database.password"},
		{"APP_KEY", "encryption.key"},
		{"BACKUP_DISK", "backup.default_storage"},
		{"AWS_BUCKET", "storage.s3.bucket"},
		{"HOME", ""},
		{"PATH", ""},
	}
	for _, tt := range tests {
		if got := envTransformFunc(tt.env); got != tt.want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", tt.env, got, tt.want)
		}
	}
}

func TestSplitList(t *testing.T) {
	got := SplitList(" users, ,sessions ,")
	if !reflect.DeepEqual(got, []string{"users", "sessions"}) {
		t.Errorf("SplitList = %v", got)
	}
	if got := SplitList(""); len(got) != 0 {
		t.Errorf("SplitList(\"\") = %v, want empty", got)
	}
}

func TestLoad_Defaults(t *testing.T) {
	isolateEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Driver != "mysql" {
		t.Errorf("Database.Driver = %q, want mysql", cfg.Database.Driver)
	}
	if cfg.Backup.PathPrefix != "backups" {
		t.Errorf("Backup.PathPrefix = %q", cfg.Backup.PathPrefix)
	}
}

func TestLoad_EnvVars(t *testing.T) {
	isolateEnv(t)
	t.Setenv("DB_CONNECTION", "postgres")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "5433")
	t.Setenv("DB_PASSWORD", "s3cret")
	t.Setenv("DB_DUMP_TIMEOUT", "90s")
	t.Setenv("BACKUP_RETENTION_DAYS", "7")
	t.Setenv("BACKUP_EXCLUDE_TABLES", "sessions, cache")
	t.Setenv("BACKUP_COMPRESS", "false")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Driver != "postgres" || cfg.Database.Host != "db.internal" || cfg.Database.Port != 5433 {
		t.Errorf("unexpected database config: %+v", cfg.Database)
	}
	if cfg.Database.DumpTimeout != 90*time.Second {
		t.Errorf("DumpTimeout = %v, want 90s", cfg.Database.DumpTimeout)
	}
	if cfg.Backup.RetentionDays != 7 {
		t.Errorf("RetentionDays = %d, want 7", cfg.Backup.RetentionDays)
	}
	if !reflect.DeepEqual(cfg.Backup.ExcludeTables, []string{"sessions", "cache"}) {
		t.Errorf("ExcludeTables = %v", cfg.Backup.ExcludeTables)
	}
	if cfg.Backup.Compress {
		t.Error("Compress should be false")
	}
}

func TestLoad_FileThenEnvOverride(t *testing.T) {
	dir := isolateEnv(t)
	path := writeConfigFile(t, dir, `
database:
  driver: sqlite
  database: /var/lib/grc/database.sqlite
backup:
  retention_days: 14
  default_storage: private
`)
	t.Setenv("BACKUP_RETENTION_DAYS", "21")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("Driver = %q, want sqlite", cfg.Database.Driver)
	}
	if cfg.Backup.DefaultStorage != "private" {
		t.Errorf("DefaultStorage = %q, want private", cfg.Backup.DefaultStorage)
	}
	if cfg.Backup.RetentionDays != 21 {
		t.Errorf("RetentionDays = %d, want env override 21", cfg.Backup.RetentionDays)
	}
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "unsupported driver",
			env:     map[string]string{"DB_CONNECTION": "oracle"},
			wantErr: "not supported",
		},
		{
			name:    "s3 default without s3 enabled",
			env:     map[string]string{"BACKUP_DISK": "s3"},
			wantErr: "AWS_S3_ENABLED",
		},
		{
			name:    "s3 enabled without bucket",
			env:     map[string]string{"AWS_S3_ENABLED": "true"},
			wantErr: "AWS_BUCKET",
		},
		{
			name:    "short encryption key",
			env:     map[string]string{"APP_KEY": "too-short"},
			wantErr: "at least 32 bytes",
		},
		{
			name:    "bad compression algorithm",
			env:     map[string]string{"BACKUP_COMPRESSION": "lz4"},
			wantErr: "compression_algorithm",
		},
		{
			name:    "negative retention",
			env:     map[string]string{"BACKUP_RETENTION_DAYS": "-1"},
			wantErr: "retention_days",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestDecodeKey(t *testing.T) {
	raw, err := DecodeKey("base64:AAECAwQFBgcICQoLDA0ODxAREhMUFRYXGBkaGxwdHh8=")
	if err != nil {
		t.Fatalf("DecodeKey: %v", err)
	}
	if len(raw) != 32 || raw[31] != 31 {
		t.Errorf("unexpected decoded key: %v", raw)
	}

	if _, err := DecodeKey("base64:!!!"); err == nil {
		t.Error("expected error for invalid base64")
	}

	plain, _ := DecodeKey("plain-secret")
	if string(plain) != "plain-secret" {
		t.Errorf("raw key altered: %q", plain)
	}
}
