// Custodian - GRC Backup and Restore Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodian

package authz

import (
	"os"
	"path/filepath"
	"testing"
)

// setupEnforcer creates an enforcer with the embedded policy.
func setupEnforcer(t *testing.T) *Enforcer {
	t.Helper()
	enforcer, err := NewEnforcer(EnforcerConfig{})
	if err != nil {
		t.Fatalf("NewEnforcer() error = %v", err)
	}
	return enforcer
}

// assertEnforce checks that enforcement returns expected result.
func assertEnforce(t *testing.T, enforcer *Enforcer, role, object, action string, want bool) {
	t.Helper()
	got, err := enforcer.Enforce(role, object, action)
	if err != nil {
		t.Fatalf("Enforce(%q, %q, %q) error = %v", role, object, action, err)
	}
	if got != want {
		t.Errorf("Enforce(%q, %q, %q) = %v, want %v", role, object, action, got, want)
	}
}

func TestEnforcer_EmbeddedPolicy(t *testing.T) {
	enforcer := setupEnforcer(t)

	tests := []struct {
		action   string
		viewer   bool
		operator bool
		admin    bool
	}{
		{ActionRead, true, true, true},
		{ActionCreate, false, true, true},
		{ActionVerify, false, true, true},
		{ActionCancel, false, true, true},
		{ActionDownload, false, true, true},
		{ActionRestore, false, false, true},
		{ActionDelete, false, false, true},
		{ActionCleanup, false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.action, func(t *testing.T) {
			assertEnforce(t, enforcer, "viewer", ObjectBackups, tt.action, tt.viewer)
			assertEnforce(t, enforcer, "operator", ObjectBackups, tt.action, tt.operator)
			assertEnforce(t, enforcer, "admin", ObjectBackups, tt.action, tt.admin)
		})
	}
}

func TestEnforcer_UnknownRoleDenied(t *testing.T) {
	enforcer := setupEnforcer(t)
	assertEnforce(t, enforcer, "auditor", ObjectBackups, ActionRead, false)
	assertEnforce(t, enforcer, "admin", "users", ActionRead, false)
}

func TestEnforcer_EmptyRoleUsesDefault(t *testing.T) {
	enforcer := setupEnforcer(t)
	assertEnforce(t, enforcer, "", ObjectBackups, ActionRead, true)
	assertEnforce(t, enforcer, "", ObjectBackups, ActionDelete, false)

	operator, err := NewEnforcer(EnforcerConfig{DefaultRole: "operator"})
	if err != nil {
		t.Fatal(err)
	}
	assertEnforce(t, operator, "", ObjectBackups, ActionVerify, true)
}

func TestEnforcer_PolicyFile(t *testing.T) {
	policyPath := filepath.Join(t.TempDir(), "policy.csv")
	policy := "p, auditor, backups, read\np, auditor, backups, download\n"
	if err := os.WriteFile(policyPath, []byte(policy), 0o600); err != nil {
		t.Fatal(err)
	}

	enforcer, err := NewEnforcer(EnforcerConfig{PolicyPath: policyPath})
	if err != nil {
		t.Fatalf("NewEnforcer() error = %v", err)
	}
	assertEnforce(t, enforcer, "auditor", ObjectBackups, ActionDownload, true)
	assertEnforce(t, enforcer, "auditor", ObjectBackups, ActionDelete, false)
	assertEnforce(t, enforcer, "admin", ObjectBackups, ActionDelete, false)
}

func TestEnforcer_MissingPolicyFile(t *testing.T) {
	_, err := NewEnforcer(EnforcerConfig{PolicyPath: filepath.Join(t.TempDir(), "missing.csv")})
	if err == nil {
		t.Error("expected error for a missing policy file")
	}
}
