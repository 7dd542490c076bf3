// Custodian - GRC Backup and Restore Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodian

package backup

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/tomtom215/custodian/internal/logging"
)

// workspace is a per-job temporary directory.
type workspace struct {
	dir string
}

func newWorkspace(parent, prefix string) (*workspace, error) {
	if parent != "" {
		if err := os.MkdirAll(parent, 0o700); err != nil {
			return nil, fmt.Errorf("create workspace parent: %w", err)
		}
	}
	dir, err := os.MkdirTemp(parent, "custodian-"+prefix+"-*")
	if err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	return &workspace{dir: dir}, nil
}

// Path joins elem onto the workspace directory.
func (w *workspace) Path(elem ...string) string {
	return filepath.Join(append([]string{w.dir}, elem...)...)
}

// Mkdir creates a subdirectory and returns its path.
func (w *workspace) Mkdir(name string) (string, error) {
	p := w.Path(name)
	if err := os.MkdirAll(p, 0o700); err != nil {
		return "", fmt.Errorf("create %s: %w", name, err)
	}
	return p, nil
}

// Remove deletes the workspace and everything in it.
func (w *workspace) Remove() {
	if err := os.RemoveAll(w.dir); err != nil {
		logging.Warn().Err(err).Str("dir", w.dir).Msg("Failed to remove workspace")
	}
}
