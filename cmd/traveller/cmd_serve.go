// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/traveller/services/traveller/config"
	"github.com/AleutianAI/traveller/services/traveller/server"
	"github.com/AleutianAI/traveller/services/traveller/session"
	"github.com/AleutianAI/traveller/services/traveller/storage/badger"
	"github.com/AleutianAI/traveller/services/traveller/telemetry"
)

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	levelFromFlag := cmd.Flags().Changed("log-level")
	if !levelFromFlag {
		level.Set(telemetry.ParseLevel(cfg.Log.Level))
	}
	if !cmd.Flags().Changed("log-format") {
		slog.SetDefault(telemetry.NewLogger(os.Stderr, level, useText(cfg.Log.Format, os.Stderr.Fd())))
	}
	logger := slog.Default()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Init(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(flushCtx); err != nil {
			logger.Warn("Telemetry shutdown failed", slog.String("error", err.Error()))
		}
	}()

	store, err := openStore(cfg.Storage, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("Session store close failed", slog.String("error", err.Error()))
		}
	}()

	manager := session.NewManager(store,
		session.WithRateLimit(cfg.Session.RateLimit, cfg.Session.Burst),
		session.WithMaxSessions(cfg.Session.MaxSessions),
		session.WithLogger(logger),
	)
	if _, err := manager.Restore(ctx); err != nil {
		return fmt.Errorf("restore sessions: %w", err)
	}

	if level.Level() <= slog.LevelDebug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := server.NewRouter(manager, cfg.Telemetry.ServiceName)
	srv := server.New(cfg.Server.Addr, router, cfg.Server.ShutdownTimeout, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})
	if configPath != "" {
		g.Go(func() error {
			return config.Watch(gctx, configPath, func(next config.Config) {
				if levelFromFlag {
					return
				}
				level.Set(telemetry.ParseLevel(next.Log.Level))
				logger.Info("Log level updated", slog.String("level", level.Level().String()))
			})
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("Traveller server stopped")
	return nil
}

// openStore opens the session journal described by cfg.
func openStore(cfg config.StorageConfig, logger *slog.Logger) (*badger.Store, error) {
	if cfg.InMemory {
		return badger.OpenInMemory()
	}
	storeCfg := badger.DefaultConfig(cfg.DataDir)
	storeCfg.SyncWrites = cfg.SyncWrites
	storeCfg.GCInterval = cfg.GCInterval
	storeCfg.Logger = logger.With(slog.String("component", "badger"))

	store, err := badger.Open(storeCfg)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}
	return store, nil
}
