// Custodian - GRC Backup and Restore Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodian

package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/natefinch/atomic"
)

// LocalBackend stores artifacts on the local filesystem under a root directory.
type LocalBackend struct {
	name string
	root string
}

// NewLocalBackend creates a filesystem backend. The root directory is created
// with 0700 permissions if missing.
func NewLocalBackend(name, root string) (*LocalBackend, error) {
	if root == "" {
		return nil, fmt.Errorf("storage %s: root directory is required", name)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage %s: resolve root: %w", name, err)
	}
	if err := os.MkdirAll(abs, 0o700); err != nil {
		return nil, fmt.Errorf("storage %s: create root: %w", name, err)
	}
	return &LocalBackend{name: name, root: abs}, nil
}

// Name implements Backend.
func (b *LocalBackend) Name() string { return b.name }

// Root returns the absolute root directory.
func (b *LocalBackend) Root() string { return b.root }

func (b *LocalBackend) resolve(p string) (string, error) {
	cleaned, err := CleanPath(p)
	if err != nil {
		return "", err
	}
	return filepath.Join(b.root, filepath.FromSlash(cleaned)), nil
}

// Put implements Backend. The artifact becomes visible only once fully written.
func (b *LocalBackend) Put(ctx context.Context, p string, r io.Reader, _ int64) error {
	full, err := b.resolve(p)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o700); err != nil {
		return fmt.Errorf("create artifact directory: %w", err)
	}
	if err := atomic.WriteFile(full, &contextReader{ctx: ctx, r: r}); err != nil {
		return fmt.Errorf("write %s: %w", p, err)
	}
	return nil
}

// Get implements Backend. The returned reader is an *os.File.
func (b *LocalBackend) Get(_ context.Context, p string) (io.ReadCloser, error) {
	full, err := b.resolve(p)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full) //nolint:gosec // G304: path is confined to the backend root
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", p, ErrNotFound)
		}
		return nil, fmt.Errorf("open %s: %w", p, err)
	}
	return f, nil
}

// Exists implements Backend.
func (b *LocalBackend) Exists(_ context.Context, p string) (bool, error) {
	full, err := b.resolve(p)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat %s: %w", p, err)
	}
	return info.Mode().IsRegular(), nil
}

// Delete implements Backend. Empty parent directories are pruned up to the root.
func (b *LocalBackend) Delete(_ context.Context, p string) error {
	full, err := b.resolve(p)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete %s: %w", p, err)
	}

	for dir := filepath.Dir(full); dir != b.root && len(dir) > len(b.root); dir = filepath.Dir(dir) {
		if os.Remove(dir) != nil {
			break // not empty
		}
	}
	return nil
}

// TemporaryURL implements Backend. Local disks are never served directly.
func (b *LocalBackend) TemporaryURL(context.Context, string, time.Duration) (string, error) {
	return "", ErrTemporaryURLNotSupported
}
