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

// Package main contains the logic for starting the background jobs of the
// server: the Pub/Sub render-request listeners and the provider registry
// refresher.
package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/workflow"
)

// SetupListeners attaches the assembly workflow to every configured Pub/Sub
// listener and starts them. Each message body is a render request in JSON.
func SetupListeners(ctx context.Context, state *StateManager) {
	for name, listener := range state.cloud.PubSubListeners {
		listener.SetCommand(state.engine.Workflow)
		listener.Listen(ctx)
		slog.Info("render request listener started", "subscription", name)
	}
}

// StartRefresher rebuilds the provider registry every refresh interval. An
// interval of zero leaves the registry as built at startup.
func StartRefresher(ctx context.Context, state *StateManager) {
	interval := time.Duration(state.config.Server.RefreshIntervalSeconds) * time.Second
	if interval <= 0 {
		slog.Info("provider registry refresh disabled")
		return
	}
	workflow.NewRegistryRefresher(state.engine.Providers, interval).Start(ctx)
}
