// Custodian - GRC Backup and Restore Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodian

// Package codec holds the byte-stream transforms applied to backup payloads:
// SHA-256 checksums, compression (gzip via pgzip, zstd) and streaming
// authenticated encryption.
//
// Pipeline order for stored artifacts is fixed:
//
//	payload -> compress -> checksum -> encrypt -> store
//
// The checksum covers the compressed, unencrypted bytes. ChecksumScheme names
// that ordering and is recorded with every job so a future change of order
// can be detected instead of silently failing verification.
//
// # Encrypted artifact format
//
//	magic "CSTDNAE1" (8) | salt (32) | nonce prefix (7) | chunk...
//
// Each chunk is AES-256-GCM sealed plaintext of at most 64 KiB. The nonce is
// prefix || big-endian chunk counter (4) || last-chunk flag (1), so dropped,
// reordered or appended chunks fail authentication. The per-artifact key is
// derived with HKDF-SHA256 from the application key and the salt. Memory use is
// bounded by one chunk regardless of artifact size.
package codec
