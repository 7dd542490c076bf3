// Custodian - GRC Backup and Restore Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodian

package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/alecthomas/kingpin/v2"

	"github.com/tomtom215/custodian/internal/auth"
	"github.com/tomtom215/custodian/internal/config"
)

type commandToken struct {
	subject string
	role    string
	ttl     time.Duration
}

func (c *commandToken) setup(a *App) {
	cmd := a.app.Command("token", "Issue a bearer token for the admin API.")
	cmd.Flag("subject", "Token subject, recorded as the creator of jobs it starts.").Required().StringVar(&c.subject)
	cmd.Flag("role", "Role claim: admin, operator or viewer.").Default("admin").StringVar(&c.role)
	cmd.Flag("ttl", "Token lifetime.").Default("1h").DurationVar(&c.ttl)
	cmd.Action(func(*kingpin.ParseContext) error {
		cfg, err := config.Load(a.configPath)
		if err != nil {
			return err
		}
		if cfg.Server.JWTSecret == "" {
			return errors.New("server.jwt_secret (JWT_SECRET) is not configured")
		}
		m, err := auth.NewJWTManager(cfg.Server.JWTSecret, c.ttl)
		if err != nil {
			return err
		}
		token, err := m.GenerateToken(c.subject, c.role)
		if err != nil {
			return err
		}
		fmt.Fprintln(a.stdout, token)
		return nil
	})
}
