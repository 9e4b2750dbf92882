// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package main is the entry point of the shorts assembly server.
//
// The server exposes the assembly engine over a gin REST API, instrumented
// with OpenTelemetry, and starts the background Pub/Sub render-request
// listeners and the provider registry refresher.
//
// Functions:
//   - main: Sets up logging, configuration, telemetry and state, serves the
//     API and shuts everything down on SIGINT or SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jaycherian/gcp-go-shorts-assembly/internal/api"
	"github.com/jaycherian/gcp-go-shorts-assembly/internal/telemetry"
)

// shutdownTimeout bounds the graceful shutdown of the HTTP server.
const shutdownTimeout = 10 * time.Second

func main() {
	closeLog, err := telemetry.SetupLogging(telemetry.LoggingOptions{LogFile: "app.log"})
	if err != nil {
		log.Fatal(err)
	}
	slog.Info("Logging initialized")

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		_ = closeLog()
		os.Exit(1)
	}
	_ = closeLog()
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	config, err := LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	shutdownTelemetry, err := telemetry.SetupOpenTelemetry(ctx, config)
	if err != nil {
		return fmt.Errorf("setting up telemetry: %w", err)
	}
	slog.Info("Tracing initialized", "enabled", config.Telemetry.Enabled)

	state, err := InitState(ctx, config)
	if err != nil {
		return errors.Join(err, shutdownTelemetry(context.Background()))
	}
	slog.Info("Initialized State", "providers", len(state.engine.Registry.Configs()))

	SetupListeners(ctx, state)
	StartRefresher(ctx, state)

	router := api.NewRouter(config.Application.Name, &api.Handlers{
		Runner:    state.engine.Workflow,
		Providers: state.engine.Providers,
		Verifier:  state.engine.Verifier,
		Profile:   config.Profile,
	})

	port := config.Server.Port
	if port == 0 {
		port = 8080
	}
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           router,
		ReadHeaderTimeout: 20 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()
	slog.Info("Server ready", "port", port)

	select {
	case <-ctx.Done():
		slog.Info("Shutdown Server ...")
	case err = <-serveErr:
		slog.Error("failed to listen", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return errors.Join(
		err,
		srv.Shutdown(shutdownCtx),
		state.cloud.Close(),
		shutdownTelemetry(shutdownCtx),
	)
}
