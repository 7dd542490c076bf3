// Custodian - GRC Backup and Restore Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodian

package logging

import (
	"net/url"
	"strings"
)

// RedactSecret masks a secret value, keeping at most the first two characters
// of values long enough for that to be safe.
//
//	RedactSecret("s3cr3t-password") // "s3***"
func RedactSecret(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) < 12 {
		return "***"
	}
	return secret[:2] + "***"
}

// RedactDSN removes the password component from a URL-style connection string.
// Strings that do not parse as URLs are fully masked.
func RedactDSN(dsn string) string {
	if dsn == "" {
		return ""
	}
	u, err := url.Parse(dsn)
	if err != nil || u.Scheme == "" {
		return "***"
	}
	if u.User != nil {
		if _, ok := u.User.Password(); ok {
			u.User = url.UserPassword(u.User.Username(), "xxxxx")
		}
	}
	q := u.Query()
	for key := range q {
		if strings.Contains(strings.ToLower(key), "password") {
			q.Set(key, "xxxxx")
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}
