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

package workflow

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/model"
)

// Reloader refreshes the provider registry.
type Reloader interface {
	Reload(ctx context.Context) ([]model.ProviderConfig, error)
}

// RegistryRefresher reloads the provider registry on a fixed interval so
// configuration and credential changes are picked up without a restart.
type RegistryRefresher struct {
	reloader Reloader
	interval time.Duration
	logger   *slog.Logger
}

// NewRegistryRefresher creates a refresher ticking every interval.
func NewRegistryRefresher(reloader Reloader, interval time.Duration) *RegistryRefresher {
	return &RegistryRefresher{
		reloader: reloader,
		interval: interval,
		logger:   otelslog.NewLogger("registry-refresher"),
	}
}

// Start runs the refresher in a background goroutine until ctx is cancelled.
func (r *RegistryRefresher) Start(ctx context.Context) {
	go r.Run(ctx)
}

// Run blocks, reloading once per tick, and returns when ctx is cancelled.
// A non-positive interval returns immediately.
func (r *RegistryRefresher) Run(ctx context.Context) {
	if r.interval <= 0 {
		return
	}
	tracer := otel.Tracer("registry-refresh")
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			traceCtx, span := tracer.Start(ctx, "registry-refresh")
			configs, err := r.reloader.Reload(traceCtx)
			if err != nil {
				span.SetStatus(codes.Error, "failed to reload registry")
				r.logger.ErrorContext(traceCtx, "registry refresh failed", "error", err)
			} else {
				span.SetStatus(codes.Ok, "registry reloaded")
				r.logger.DebugContext(traceCtx, "registry refreshed", "providers", len(configs))
			}
			span.End()
		}
	}
}
