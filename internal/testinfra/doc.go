// Custodian - GRC Backup and Restore Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodian

// Package testinfra provides Docker-backed fixtures for integration tests.
//
// It uses testcontainers-go to start the servers Custodian talks to in
// production: MySQL and PostgreSQL for the dump drivers and MinIO for the
// S3 storage backend. Everything here is behind the integration build tag:
//
//	go test -tags integration ./internal/...
//
// # Database Containers
//
//	func TestPostgresRoundTrip(t *testing.T) {
//	    testinfra.SkipIfNoDocker(t)
//	    testinfra.SkipIfNoTool(t, "pg_dump", "psql")
//
//	    ctx := context.Background()
//	    pg, err := testinfra.NewPostgresContainer(ctx)
//	    if err != nil {
//	        t.Fatal(err)
//	    }
//	    defer testinfra.CleanupContainer(t, ctx, pg.Container)
//
//	    if err := pg.ExecSQL(ctx, "CREATE TABLE risks (id int)"); err != nil {
//	        t.Fatal(err)
//	    }
//	    // pg.Host, pg.Port, pg.Username, pg.Password, pg.Database
//	}
//
// The dump tools run on the host, so tests that exercise them also skip
// when mysqldump or pg_dump is not on PATH.
//
// # MinIO Container
//
// NewMinIOContainer starts MinIO and creates a bucket through the AWS SDK,
// so storage tests run against a real S3 API including presigned URLs.
//
// # CI Considerations
//
// Tests are skipped gracefully when Docker is unavailable. The first run
// pulls the images; later runs use the local image cache.
package testinfra
