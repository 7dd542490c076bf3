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
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/tomtom215/custodian/internal/logging"
)

// BuildResult summarizes an archive build.
type BuildResult struct {
	Files   int      `json:"files"`
	Bytes   int64    `json:"bytes"`
	Skipped []string `json:"skipped,omitempty"`
}

// Builder writes file archives rooted at an application directory.
type Builder struct {
	root     string
	excludes []string
}

// NewBuilder creates a builder. Invalid glob patterns are rejected up front.
func NewBuilder(root string, excludes []string) (*Builder, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve application root: %w", err)
	}
	for _, p := range excludes {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid exclude pattern %q", p)
		}
	}
	return &Builder{root: abs, excludes: excludes}, nil
}

// Excluded reports whether rel, a slash-separated path relative to the
// walked directory, matches an exclude pattern.
func (b *Builder) Excluded(rel string, isDir bool) bool {
	base := path.Base(rel)
	for _, p := range b.excludes {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
		if !strings.Contains(p, "/") {
			if ok, _ := doublestar.Match(p, base); ok {
				return true
			}
		}
		if isDir {
			// "backups/**" and "backups/*" exclude the directory itself.
			trimmed := strings.TrimSuffix(strings.TrimSuffix(p, "/**"), "/*")
			if trimmed != p && trimmed == rel {
				return true
			}
		}
	}
	return false
}

// Build writes a tar of sources to outPath. Relative sources are resolved
// against the application root; missing sources are skipped.
func (b *Builder) Build(ctx context.Context, outPath string, sources []string) (res *BuildResult, err error) {
	out, err := os.OpenFile(outPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600) //nolint:gosec // G304: workspace path
	if err != nil {
		return nil, fmt.Errorf("create archive: %w", err)
	}
	defer func() {
		if err != nil {
			_ = out.Close()
			_ = os.Remove(outPath)
		}
	}()

	tw := tar.NewWriter(out)
	res = &BuildResult{}

	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		full := src
		if !filepath.IsAbs(full) {
			full = filepath.Join(b.root, src)
		}

		info, statErr := os.Lstat(full)
		if statErr != nil {
			if errors.Is(statErr, fs.ErrNotExist) {
				logging.Ctx(ctx).Warn().Str("source", src).Msg("Backup source does not exist, skipping")
				res.Skipped = append(res.Skipped, src)
				continue
			}
			return nil, fmt.Errorf("stat %s: %w", src, statErr)
		}

		switch {
		case info.IsDir():
			err = b.addDir(ctx, tw, full, res)
		case info.Mode().IsRegular():
			err = b.addFile(tw, full, info, res)
		default:
			res.Skipped = append(res.Skipped, src)
		}
		if err != nil {
			return nil, err
		}
	}

	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("finish archive: %w", err)
	}
	if err := out.Sync(); err != nil {
		return nil, fmt.Errorf("sync archive: %w", err)
	}
	if err := out.Close(); err != nil {
		return nil, fmt.Errorf("close archive: %w", err)
	}
	return res, nil
}

func (b *Builder) addDir(ctx context.Context, tw *tar.Writer, dir string, res *BuildResult) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if p == dir {
			return nil
		}

		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if b.Excluded(rel, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			res.Skipped = append(res.Skipped, b.entryName(p))
			return nil
		}
		return b.addFile(tw, p, info, res)
	})
}

// ExternalPrefix starts the entry name of every file archived from outside
// the application root. The rest of the name is the file's absolute path.
const ExternalPrefix = "external/"

// entryName is p relative to the application root. Files outside the root
// keep their absolute path under ExternalPrefix so nested names stay unique.
func (b *Builder) entryName(p string) string {
	rel, err := filepath.Rel(b.root, p)
	if err != nil || outside(rel) {
		clean := filepath.Clean(p)
		clean = clean[len(filepath.VolumeName(clean)):]
		return ExternalPrefix + strings.TrimPrefix(filepath.ToSlash(clean), "/")
	}
	return filepath.ToSlash(rel)
}

// outside reports whether a filepath.Rel result leaves its base directory.
func outside(rel string) bool {
	return rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel)
}

func (b *Builder) addFile(tw *tar.Writer, p string, info fs.FileInfo, res *BuildResult) error {
	name := b.entryName(p)
	hdr := &tar.Header{
		Name:     name,
		Size:     info.Size(),
		Mode:     int64(info.Mode().Perm()),
		ModTime:  info.ModTime(),
		Typeflag: tar.TypeReg,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("write header for %s: %w", name, err)
	}

	f, err := os.Open(p) //nolint:gosec // G304: path comes from the configured backup directories
	if err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close() //nolint:errcheck // read-only

	n, err := io.CopyN(tw, f, info.Size())
	if err != nil {
		return fmt.Errorf("archive %s: %w", name, err)
	}
	res.Files++
	res.Bytes += n
	return nil
}
