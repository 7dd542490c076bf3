// Custodian - GRC Backup and Restore Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodian

package codec

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
)

// ChecksumScheme identifies what a recorded checksum covers.
const ChecksumScheme = "sha256/pre-encryption/v1"

// ChecksumReader hashes everything read from r.
func ChecksumReader(r io.Reader) (sum string, n int64, err error) {
	h := sha256.New()
	n, err = io.Copy(h, r)
	if err != nil {
		return "", n, fmt.Errorf("hash stream: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

// ChecksumFile returns the SHA-256 hex digest and size of the file at path.
func ChecksumFile(path string) (string, int64, error) {
	f, err := os.Open(path) //nolint:gosec // G304: path is a workspace file owned by the job
	if err != nil {
		return "", 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck // read-only

	return ChecksumReader(f)
}

// ChecksumsEqual compares two hex digests case-insensitively in constant time.
func ChecksumsEqual(a, b string) bool {
	a, b = strings.ToLower(a), strings.ToLower(b)
	if len(a) != len(b) || a == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
