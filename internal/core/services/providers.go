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

package services

import (
	"context"
	"log/slog"

	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/model"
	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/providers"
)

// EntryLoader produces a fresh provider set, typically by re-reading the
// configuration.
type EntryLoader func(ctx context.Context) ([]providers.Entry, error)

// ProviderService is the API view of the provider registry.
type ProviderService struct {
	Registry *providers.Registry
	Usage    *providers.UsageStats
	Loader   EntryLoader // Optional; without it Reload is a no-op.
}

// NewProviderService creates the service.
func NewProviderService(registry *providers.Registry, usage *providers.UsageStats, loader EntryLoader) *ProviderService {
	return &ProviderService{Registry: registry, Usage: usage, Loader: loader}
}

// Configs lists every configured provider.
func (s *ProviderService) Configs() []model.ProviderConfig {
	return s.Registry.Configs()
}

// UsageStats returns the counters of every provider that was attempted.
func (s *ProviderService) UsageStats() []model.UsageStat {
	return s.Usage.Snapshot()
}

// Health merges configuration and counters.
func (s *ProviderService) Health() []model.ProviderHealth {
	return s.Usage.Health(s.Registry.Configs())
}

// Reload replaces the registry contents with the loader's result. The
// registry is left untouched when loading fails.
func (s *ProviderService) Reload(ctx context.Context) ([]model.ProviderConfig, error) {
	if s.Loader == nil {
		return s.Registry.Configs(), nil
	}
	entries, err := s.Loader(ctx)
	if err != nil {
		return nil, err
	}
	s.Registry.Reload(entries)
	slog.InfoContext(ctx, "provider registry reloaded", "providers", len(entries))
	return s.Registry.Configs(), nil
}
