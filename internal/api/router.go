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

// Package api exposes the assembly engine over HTTP with gin.
//
// Routes (under /api/v1):
//   - POST /renders: run a render request synchronously.
//   - GET /providers: configured providers.
//   - GET /providers/usage: usage counters merged with configuration.
//   - POST /providers/reload: rebuild the registry from configuration.
//   - POST /verify: verify an existing file against the profile.
//   - GET /stats: aggregate provider statistics.
package api

import (
	"context"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/model"
)

// RenderRunner executes render requests.
type RenderRunner interface {
	Run(ctx context.Context, req *model.RenderRequest) (*model.RenderResult, error)
}

// ProviderView is the provider registry as seen by the API.
type ProviderView interface {
	Configs() []model.ProviderConfig
	UsageStats() []model.UsageStat
	Health() []model.ProviderHealth
	Reload(ctx context.Context) ([]model.ProviderConfig, error)
}

// FileVerifier checks an artifact on disk.
type FileVerifier interface {
	Verify(ctx context.Context, path string, profile model.CompatibilityProfile) model.CompatibilityReport
}

// Handlers holds the collaborators of the HTTP routes.
type Handlers struct {
	Runner    RenderRunner
	Providers ProviderView
	Verifier  FileVerifier
	Profile   model.CompatibilityProfile
}

// NewRouter returns a gin engine with tracing, CORS and every route.
func NewRouter(serviceName string, h *Handlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(serviceName))
	r.Use(cors.Default())

	apiV1 := r.Group("/api/v1")
	{
		RenderRouter(apiV1, h)
		ProviderRouter(apiV1, h)
		VerifyRouter(apiV1, h)
		Dashboard(apiV1, h)
	}
	return r
}
