// Custodian - GRC Backup and Restore Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodian

// Package config loads Custodian configuration with koanf.
//
// Layers, lowest precedence first:
//
//  1. Built-in defaults (defaultConfig)
//  2. YAML file (explicit path, CONFIG_PATH, or DefaultConfigPaths)
//  3. Environment variables (see envMappings)
//
// Environment variable names follow the host application's .env conventions
// (DB_CONNECTION, DB_HOST, APP_KEY, AWS_BUCKET, ...) so the engine can read the
// same environment file the application uses.
//
// Example config.yaml:
//
//	app:
//	  root: /var/www/grc
//	database:
//	  driver: postgres
//	  host: db
//	  database: grc
//	backup:
//	  default_storage: s3
//	  retention_days: 30
//	storage:
//	  s3:
//	    bucket: grc-backups
//	    region: eu-west-1
package config
