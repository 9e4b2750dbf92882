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

package providers

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"golang.org/x/time/rate"

	"github.com/jaycherian/gcp-go-shorts-assembly/internal/cloud"
	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/model"
)

// Build constructs the registry entries for every enabled provider in config.
//
// Logic Flow:
//  1. Providers are visited in ID order so the resulting registry does not
//     depend on map iteration.
//  2. Each entry gets its ProviderConfig, with CredentialPresent resolved from
//     the environment at build time.
//  3. Image providers with credentials get an implementation: imagen uses the
//     quota-aware model from clients, openai and http use the shared
//     instrumented HTTP client. External providers are tracked without one.
//
// A provider whose credentials are missing is still returned so it shows up in
// health listings; the selector never picks it.
func Build(config *cloud.Config, clients *cloud.ServiceClients) ([]Entry, error) {
	pipeline := config.PipelineConfig()
	sink := ImageSink{Dir: filepath.Join(pipeline.WorkDir, "images")}

	ids := make([]string, 0, len(config.Providers))
	for id := range config.Providers {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	entries := make([]Entry, 0, len(ids))
	for _, id := range ids {
		settings := config.Providers[id]
		if settings.Disabled {
			slog.Debug("provider disabled, skipping", "provider", id)
			continue
		}
		capability := model.Capability(strings.ToLower(settings.Capability))
		if capability == "" {
			capability = model.CapabilityImage
		}
		cfg := model.ProviderConfig{
			ID:                id,
			DisplayName:       settings.DisplayName,
			Priority:          settings.Priority,
			Capability:        capability,
			CredentialPresent: cloud.CredentialPresent(settings),
		}
		if cfg.DisplayName == "" {
			cfg.DisplayName = id
		}

		entry := Entry{Config: cfg}
		if cfg.CredentialPresent && capability == model.CapabilityImage {
			impl, err := buildProvider(id, settings, clients, sink, pipeline)
			if err != nil {
				return nil, err
			}
			entry.Provider = impl
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func buildProvider(id string, settings cloud.ProviderSettings, clients *cloud.ServiceClients, sink ImageSink, pipeline model.PipelineConfig) (Provider, error) {
	apiKey := ""
	if settings.CredentialEnv != "" {
		apiKey = strings.TrimSpace(os.Getenv(settings.CredentialEnv))
	}

	switch settings.Kind {
	case cloud.ProviderKindImagen:
		if clients == nil {
			return nil, fmt.Errorf("provider %s: no imagen model available", id)
		}
		if clients.ImageModels[id] == nil {
			if clients.GenAIClient == nil {
				return nil, fmt.Errorf("provider %s: no imagen model available", id)
			}
			if clients.ImageModels == nil {
				clients.ImageModels = make(map[string]*cloud.QuotaAwareImageModel)
			}
			clients.ImageModels[id] = cloud.NewQuotaAwareImageModel(cloud.DefaultImagesConfig(), settings.Model, clients.GenAIClient.Models, settings.RateLimit)
		}
		return NewImagenProvider(id, clients.ImageModels[id], sink), nil
	case cloud.ProviderKindOpenAI:
		opts := []option.RequestOption{option.WithAPIKey(apiKey)}
		if clients != nil && clients.HTTPClient != nil {
			opts = append(opts, option.WithHTTPClient(clients.HTTPClient))
		}
		client := openai.NewClient(opts...)
		return NewOpenAIProvider(id, &client.Images, settings.Model, sink), nil
	case cloud.ProviderKindHTTP:
		if settings.Endpoint == "" {
			return nil, fmt.Errorf("provider %s: http providers require an endpoint", id)
		}
		opts := HTTPProviderOptions{
			ID:         id,
			Endpoint:   settings.Endpoint,
			Format:     settings.Format,
			APIKey:     apiKey,
			AuthHeader: settings.AuthHeader,
			AuthScheme: settings.AuthScheme,
			Width:      pipeline.Width,
			Height:     pipeline.Height,
			Sink:       sink,
		}
		if clients != nil {
			opts.Client = clients.HTTPClient
		}
		if settings.RateLimit > 0 {
			opts.Limiter = rate.NewLimiter(rate.Every(time.Second/time.Duration(settings.RateLimit)), settings.RateLimit)
		}
		return NewHTTPProvider(opts), nil
	case cloud.ProviderKindExternal, "":
		return nil, nil
	default:
		return nil, fmt.Errorf("provider %s: unknown kind %q", id, settings.Kind)
	}
}
