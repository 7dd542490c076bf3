// Custodian - GRC Backup and Restore Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodian

package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/alecthomas/kingpin/v2"

	"github.com/tomtom215/custodian/internal/api"
	"github.com/tomtom215/custodian/internal/ledger"
	"github.com/tomtom215/custodian/internal/logging"
	"github.com/tomtom215/custodian/internal/supervisor"
	"github.com/tomtom215/custodian/internal/supervisor/services"
)

const defaultShutdownTimeout = 30 * time.Second

type commandServe struct {
	host string
	port int
}

func (c *commandServe) setup(a *App) {
	cmd := a.app.Command("serve", "Run the admin HTTP API and background maintenance.")
	cmd.Flag("host", "Listen address, overrides the configuration.").StringVar(&c.host)
	cmd.Flag("port", "Listen port, overrides the configuration.").IntVar(&c.port)
	cmd.PreAction(func(*kingpin.ParseContext) error {
		a.serving = true
		return nil
	})
	cmd.Action(a.action(c.run))
}

func (c *commandServe) run(ctx context.Context, env *environment) error {
	cfg := env.cfg.Server
	if c.host != "" {
		cfg.Host = c.host
	}
	if c.port != 0 {
		cfg.Port = c.port
	}

	router, err := api.NewRouter(api.NewHandler(env.svc, env.store, cfg), cfg)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadTimeout,
		ReadTimeout:       cfg.ReadTimeout,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.ShutdownTimeout,
	})
	if err != nil {
		return err
	}
	tree.AddMaintenanceService(ledger.NewGCService(env.store, env.cfg.Ledger.GCInterval))
	tree.AddAPIService(services.NewHTTPServerService(srv, srv.Addr, cfg.ShutdownTimeout))

	logging.Info().Str("addr", srv.Addr).Bool("auth", cfg.JWTSecret != "").Msg("Admin API listening")

	err = tree.Serve(ctx)

	// Jobs started through the API outlive their requests; stop them before
	// the ledger closes.
	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	if serr := env.svc.Shutdown(shutdownCtx); serr != nil {
		logging.Warn().Err(serr).Msg("Backup jobs did not stop before the shutdown timeout")
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		logging.Info().Msg("Admin API stopped")
		return nil
	}
	return err
}
