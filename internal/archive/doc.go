// Custodian - GRC Backup and Restore Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodian

// Package archive builds and extracts the file half of a backup.
//
// A Builder walks the configured sources and writes an uncompressed tar.
// Sources under the application root keep their root-relative names:
//
//	storage/app/private/evidence/soc2-report.pdf
//	storage/app/public/logo.png
//	.env
//
// Sources outside the root are stored under an "external/" prefix that
// carries their absolute location, so nested paths survive and Extract can
// put them back where they came from:
//
//	external/srv/evidence/sub/a.txt
//
// Directories are walked recursively and every path relative to the walked
// directory is matched against doublestar exclude globs such as "*.log",
// "logs/**" or "backups/**". A pattern without a slash also matches the base
// name at any depth. Symbolic links are never followed.
//
// Extract stages entries into a temporary directory, rejecting any entry that
// would escape it, and only then copies them to the destination. Existing
// files are left alone unless overwrite is set.
//
// PackContainer and UnpackContainer assemble the full-backup container:
//
//	database/<dumpfile>
//	files/<name>_files.tar
package archive
