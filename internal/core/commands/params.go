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

// Package commands holds the stages of the assembly chain. Each stage is a
// cor.Command reading its input from a named context key and writing its
// result to another, so stages can be tested in isolation and recombined.
package commands

import (
	"context"

	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/cor"
	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/model"
)

// Context keys shared by the assembly stages.
const (
	ParamRequest      = "__request__"       // *model.RenderRequest
	ParamDuration     = "__duration__"      // float64, seconds of narration
	ParamSlots        = "__slots__"         // []model.TimelineSlot
	ParamAssets       = "__assets__"        // []model.GeneratedAsset
	ParamPlan         = "__plan__"          // *model.TransitionPlan
	ParamArtifact     = "__artifact__"      // string, local path of the current artifact
	ParamReport       = "__report__"        // model.CompatibilityReport
	ParamRemediated   = "__remediated__"    // bool
	ParamPublishedURL = "__published_url__" // string
)

// DurationProber reads the length of a media file.
type DurationProber interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// AssetGenerator produces one asset per slot.
type AssetGenerator interface {
	GenerateAll(ctx context.Context, slots []model.TimelineSlot) ([]model.GeneratedAsset, error)
}

// VideoRenderer encodes a plan into a file.
type VideoRenderer interface {
	Render(ctx context.Context, plan *model.TransitionPlan, audioPath string, total float64) (string, error)
}

// ArtifactVerifier checks a file against a profile.
type ArtifactVerifier interface {
	Verify(ctx context.Context, path string, profile model.CompatibilityProfile) model.CompatibilityReport
}

// ArtifactRemediator re-encodes a failing file.
type ArtifactRemediator interface {
	Remediate(ctx context.Context, path string, profile model.CompatibilityProfile) (string, model.CompatibilityReport, error)
}

// Get returns the value at key when it has type T.
func Get[T any](context cor.Context, key string) (T, bool) {
	v, ok := context.Get(key).(T)
	return v, ok
}
