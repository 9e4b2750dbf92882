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

package commands

import (
	"log/slog"

	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/cor"
	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/model"
)

// CompatibilityCheck verifies the rendered artifact. A failing report is a
// result, not an error: the chain continues and the report is returned to the
// caller.
type CompatibilityCheck struct {
	cor.BaseCommand
	verifier ArtifactVerifier
	profile  model.CompatibilityProfile
}

// NewCompatibilityCheck creates the verification stage for profile.
//
// Inputs: ParamArtifact (string path)
// Outputs: ParamReport (model.CompatibilityReport)
func NewCompatibilityCheck(name string, verifier ArtifactVerifier, profile model.CompatibilityProfile) *CompatibilityCheck {
	return &CompatibilityCheck{
		BaseCommand: *cor.NewBaseCommandWithParams(name, ParamArtifact, ParamReport),
		verifier:    verifier,
		profile:     profile,
	}
}

// Execute verifies the artifact and records the report, passing or not.
func (c *CompatibilityCheck) Execute(context cor.Context) {
	path, _ := Get[string](context, c.GetInputParam())
	report := c.verifier.Verify(context.GetContext(), path, c.profile)
	if !report.Passed {
		slog.WarnContext(context.GetContext(), "artifact is not compatible", "path", path, "violations", report.Messages())
	}
	c.Succeed(context, report)
}
