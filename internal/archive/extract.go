// Custodian - GRC Backup and Restore Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodian

package archive

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"
)

// ErrUnsafePath is returned for archive entries that would escape the
// extraction directory.
var ErrUnsafePath = errors.New("archive entry escapes destination")

// ExtractResult counts what Extract did.
type ExtractResult struct {
	Restored int `json:"restored"`
	Skipped  int `json:"skipped"`
}

// ExtractOptions controls Extract.
type ExtractOptions struct {
	// Overwrite replaces existing files; otherwise they are skipped.
	Overwrite bool

	// StagingDir is where the staging directory is created. Empty uses the
	// system temporary directory.
	StagingDir string

	// ExternalRoots are absolute directories outside destRoot that the
	// archive was built from. Entries under ExternalPrefix are restored to
	// their original location only when it lies inside one of them;
	// everything else lands under destRoot.
	ExternalRoots []string
}

// Extract restores archivePath under destRoot. Entries are staged first, so a
// corrupt or hostile archive leaves destRoot untouched. Existing files are
// only replaced when opts.Overwrite is set.
func Extract(ctx context.Context, archivePath, destRoot string, opts ExtractOptions) (*ExtractResult, error) {
	staging, err := os.MkdirTemp(opts.StagingDir, "custodian-extract-*")
	if err != nil {
		return nil, fmt.Errorf("create staging directory: %w", err)
	}
	defer os.RemoveAll(staging) //nolint:errcheck // best effort cleanup

	if err := untar(ctx, archivePath, staging); err != nil {
		return nil, err
	}

	res := &ExtractResult{}
	err = filepath.WalkDir(staging, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(staging, p)
		if err != nil {
			return err
		}
		dest := destination(destRoot, filepath.ToSlash(rel), opts.ExternalRoots)

		if _, statErr := os.Stat(dest); statErr == nil && !opts.Overwrite {
			res.Skipped++
			return nil
		}
		if err := copyStaged(p, dest); err != nil {
			return fmt.Errorf("restore %s: %w", filepath.ToSlash(rel), err)
		}
		res.Restored++
		return nil
	})
	if err != nil {
		return res, err
	}
	return res, nil
}

// destination maps an entry name to the path it is restored to.
func destination(destRoot, name string, externalRoots []string) string {
	if rest, ok := strings.CutPrefix(name, ExternalPrefix); ok {
		original := filepath.Join(string(filepath.Separator), filepath.FromSlash(rest))
		for _, root := range externalRoots {
			if !filepath.IsAbs(root) {
				continue
			}
			rel, err := filepath.Rel(filepath.Clean(root), original)
			if err == nil && !outside(rel) {
				return original
			}
		}
	}
	return filepath.Join(destRoot, filepath.FromSlash(name))
}

func copyStaged(src, dest string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return err
	}
	f, err := os.Open(src) //nolint:gosec // G304: staging path
	if err != nil {
		return err
	}
	defer f.Close() //nolint:errcheck // read-only

	if err := atomic.WriteFile(dest, f); err != nil {
		return err
	}
	return os.Chmod(dest, info.Mode().Perm())
}

// safeJoin joins an archive entry name onto dir, rejecting traversal.
func safeJoin(dir, name string) (string, error) {
	if name == "" || filepath.IsAbs(name) || strings.HasPrefix(name, "/") {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, name)
	}
	dest := filepath.Join(dir, filepath.FromSlash(name))
	if !strings.HasPrefix(dest, filepath.Clean(dir)+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, name)
	}
	return dest, nil
}

// untar writes every regular file of archivePath under dir.
func untar(ctx context.Context, archivePath, dir string) error {
	f, err := os.Open(archivePath) //nolint:gosec // G304: workspace path
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer f.Close() //nolint:errcheck // read-only

	tr := tar.NewReader(f)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read archive entry: %w", err)
		}

		dest, err := safeJoin(dir, hdr.Name)
		if err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(dest, 0o750); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := writeEntry(tr, dest, hdr); err != nil {
				return fmt.Errorf("extract %s: %w", hdr.Name, err)
			}
		default:
			// Links and devices are never restored.
		}
	}
}

func writeEntry(r io.Reader, dest string, hdr *tar.Header) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return err
	}
	mode := os.FileMode(hdr.Mode).Perm() | 0o600 //nolint:gosec // G115: tar mode bits
	out, err := os.OpenFile(dest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode) //nolint:gosec // G304: validated by safeJoin
	if err != nil {
		return err
	}
	n, err := io.Copy(out, io.LimitReader(r, hdr.Size))
	closeErr := out.Close()
	if err != nil {
		return err
	}
	if n != hdr.Size {
		return fmt.Errorf("short entry: %d of %d bytes", n, hdr.Size)
	}
	return closeErr
}
