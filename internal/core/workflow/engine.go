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
	"fmt"
	"path/filepath"
	"sync"

	"github.com/jaycherian/gcp-go-shorts-assembly/internal/cloud"
	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/commands"
	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/generation"
	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/model"
	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/placeholder"
	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/probe"
	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/process"
	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/providers"
	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/render"
	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/services"
	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/verify"
)

// Engine is the fully wired assembly engine shared by the server and the CLI.
type Engine struct {
	Config      *cloud.Config
	Pipeline    model.PipelineConfig
	Registry    *providers.Registry
	Usage       *providers.UsageStats
	Coordinator *generation.Coordinator
	Prober      *probe.FFProbe
	Verifier    *verify.Verifier
	Store       services.ArtifactStore
	Providers   *services.ProviderService
	Workflow    *AssemblyWorkflow
}

// ConfigLoader returns a freshly loaded configuration.
type ConfigLoader func() (*cloud.Config, error)

// NewEngine wires every component from config.
//
// Inputs:
//   - config: The loaded application configuration.
//   - clients: The service clients created for config.
//   - runner: Runs ffmpeg and ffprobe.
//   - reload: Re-reads the configuration for registry refreshes. May be nil,
//     in which case refreshes rebuild from config.
//
// Outputs:
//   - *Engine: The engine.
//   - error: A provider that could not be constructed.
func NewEngine(config *cloud.Config, clients *cloud.ServiceClients, runner process.Runner, reload ConfigLoader) (*Engine, error) {
	pipeline := config.PipelineConfig()

	entries, err := providers.Build(config, clients)
	if err != nil {
		return nil, fmt.Errorf("building providers: %w", err)
	}
	registry := providers.NewRegistry(entries...)
	usage := providers.NewUsageStats()
	selector := providers.NewSelector(registry, nil)

	renderer := placeholder.NewRenderer(pipeline.Width, pipeline.Height, filepath.Join(pipeline.WorkDir, "placeholders"))
	coordinator := generation.NewCoordinator(pipeline, registry, selector, usage, renderer)

	prober := probe.NewFFProbe(runner, pipeline.FFprobePath)
	verifier := verify.NewVerifier(prober)

	var store services.ArtifactStore
	if config.Storage.Bucket != "" && clients != nil && clients.StorageClient != nil {
		store = services.NewGCSArtifactStore(config, clients)
	} else {
		root := config.Storage.ArtifactRoot
		if root == "" {
			root = filepath.Join(pipeline.OutputDir, "artifacts")
		}
		store = services.NewLocalArtifactStore(root)
	}

	var downloader commands.ObjectDownloader
	if clients != nil && clients.StorageClient != nil {
		downloader = services.NewGCSDownloader(clients.StorageClient)
	}

	var mu sync.Mutex
	loader := func(ctx context.Context) ([]providers.Entry, error) {
		mu.Lock()
		defer mu.Unlock()
		cfg := config
		if reload != nil {
			var err error
			if cfg, err = reload(); err != nil {
				return nil, fmt.Errorf("reloading configuration: %w", err)
			}
		}
		return providers.Build(cfg, clients)
	}

	wf := NewAssemblyWorkflow(pipeline, Dependencies{
		Prober:     prober,
		Generator:  coordinator,
		Renderer:   render.NewInvoker(pipeline, runner),
		Verifier:   verifier,
		Remediator: verify.NewRemediator(runner, pipeline.FFmpegPath, verifier),
		Store:      store,
		Downloader: downloader,
	})

	return &Engine{
		Config:      config,
		Pipeline:    pipeline,
		Registry:    registry,
		Usage:       usage,
		Coordinator: coordinator,
		Prober:      prober,
		Verifier:    verifier,
		Store:       store,
		Providers:   services.NewProviderService(registry, usage, loader),
		Workflow:    wf,
	}, nil
}
