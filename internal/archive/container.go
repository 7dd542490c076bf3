// Custodian - GRC Backup and Restore Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodian

package archive

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Container directory names.
const (
	DatabaseDir = "database"
	FilesDir    = "files"
)

// ContainerContents locates the parts of an unpacked full-backup container.
// Either path is empty when the container lacks that part.
type ContainerContents struct {
	DatabasePath string
	FilesPath    string
}

// PackContainer writes a tar holding the database dump and the files archive.
// Empty paths are omitted.
func PackContainer(outPath, databasePath, filesPath string) (err error) {
	out, err := os.OpenFile(outPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600) //nolint:gosec // G304: workspace path
	if err != nil {
		return fmt.Errorf("create container: %w", err)
	}
	defer func() {
		if err != nil {
			_ = out.Close()
			_ = os.Remove(outPath)
		}
	}()

	tw := tar.NewWriter(out)
	parts := []struct{ dir, path string }{
		{DatabaseDir, databasePath},
		{FilesDir, filesPath},
	}
	for _, part := range parts {
		if part.path == "" {
			continue
		}
		if err := addPart(tw, part.dir+"/"+filepath.Base(part.path), part.path); err != nil {
			return err
		}
	}

	if err := tw.Close(); err != nil {
		return fmt.Errorf("finish container: %w", err)
	}
	if err := out.Sync(); err != nil {
		return fmt.Errorf("sync container: %w", err)
	}
	return out.Close()
}

func addPart(tw *tar.Writer, name, p string) error {
	f, err := os.Open(p) //nolint:gosec // G304: workspace path
	if err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close() //nolint:errcheck // read-only

	info, err := f.Stat()
	if err != nil {
		return err
	}
	if err := tw.WriteHeader(&tar.Header{
		Name:     name,
		Size:     info.Size(),
		Mode:     0o600,
		ModTime:  info.ModTime(),
		Typeflag: tar.TypeReg,
	}); err != nil {
		return fmt.Errorf("write header for %s: %w", name, err)
	}
	if _, err := io.CopyN(tw, f, info.Size()); err != nil {
		return fmt.Errorf("add %s: %w", name, err)
	}
	return nil
}

// UnpackContainer extracts a full-backup container into dir.
func UnpackContainer(ctx context.Context, containerPath, dir string) (*ContainerContents, error) {
	if err := untar(ctx, containerPath, dir); err != nil {
		return nil, fmt.Errorf("unpack container: %w", err)
	}

	contents := &ContainerContents{}
	for _, part := range []struct {
		dir    string
		target *string
	}{
		{DatabaseDir, &contents.DatabasePath},
		{FilesDir, &contents.FilesPath},
	} {
		entries, err := os.ReadDir(filepath.Join(dir, part.dir))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		for _, e := range entries {
			if e.Type().IsRegular() && !strings.HasPrefix(e.Name(), ".") {
				*part.target = filepath.Join(dir, part.dir, e.Name())
				break
			}
		}
	}
	return contents, nil
}
