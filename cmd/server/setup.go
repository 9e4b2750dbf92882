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

// Package main contains the setup and initialization logic for the server's
// state: the configuration, the Google Cloud clients and the assembly engine.
//
// Functions:
//   - SetupOS: Points the configuration loader at the configs directory.
//   - LoadConfig: Reads the layered configuration from disk.
//   - InitState: Creates the clients and wires the engine.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jaycherian/gcp-go-shorts-assembly/internal/cloud"
	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/process"
	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/workflow"
)

// StateManager holds the shared dependencies of the server.
type StateManager struct {
	config *cloud.Config
	cloud  *cloud.ServiceClients
	engine *workflow.Engine
}

// SetupOS sets the environment variables read by the configuration loader.
// Values already present in the environment are kept, so a deployment can
// select another runtime with GCP_RUNTIME.
func SetupOS() error {
	if os.Getenv(cloud.EnvConfigFilePrefix) == "" {
		if err := os.Setenv(cloud.EnvConfigFilePrefix, "configs"); err != nil {
			return err
		}
	}
	if os.Getenv(cloud.EnvConfigRuntime) == "" {
		return os.Setenv(cloud.EnvConfigRuntime, "local")
	}
	return nil
}

// LoadConfig reads the configuration and the dotenv secrets from disk. It is
// also the reload function of the provider registry.
func LoadConfig() (*cloud.Config, error) {
	if err := SetupOS(); err != nil {
		return nil, fmt.Errorf("setting up environment: %w", err)
	}
	if err := cloud.LoadEnv(); err != nil {
		return nil, err
	}
	config := cloud.NewConfig()
	if err := cloud.LoadConfig(config); err != nil {
		return nil, err
	}
	return config, nil
}

// InitState creates the service clients and the engine.
//
// Inputs:
//   - ctx: The root context; client connections live as long as it does.
//   - config: The loaded configuration.
//
// Outputs:
//   - *StateManager: The initialised state.
//   - error: A client or provider that could not be created.
func InitState(ctx context.Context, config *cloud.Config) (*StateManager, error) {
	clients, err := cloud.NewCloudServiceClients(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("creating cloud clients: %w", err)
	}

	pipeline := config.PipelineConfig()
	if err := process.CheckBinaries(pipeline.FFmpegPath, pipeline.FFprobePath); err != nil {
		_ = clients.Close()
		return nil, err
	}

	engine, err := workflow.NewEngine(config, clients, process.NewExecRunner(), LoadConfig)
	if err != nil {
		_ = clients.Close()
		return nil, err
	}
	return &StateManager{config: config, cloud: clients, engine: engine}, nil
}
