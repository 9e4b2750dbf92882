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
	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/cor"
	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/model"
)

// Remediation re-encodes a failing artifact when the request or the pipeline
// asks for it. It does nothing for passing artifacts.
type Remediation struct {
	cor.BaseCommand
	remediator ArtifactRemediator
	profile    model.CompatibilityProfile
	always     bool
}

// NewRemediation creates the stage. always enables remediation regardless of
// the request flag.
func NewRemediation(name string, remediator ArtifactRemediator, profile model.CompatibilityProfile, always bool) *Remediation {
	return &Remediation{
		BaseCommand: *cor.NewBaseCommandWithParams(name, ParamReport, ParamReport),
		remediator:  remediator,
		profile:     profile,
		always:      always,
	}
}

func (c *Remediation) Execute(context cor.Context) {
	report, _ := Get[model.CompatibilityReport](context, c.GetInputParam())
	req, _ := Get[*model.RenderRequest](context, ParamRequest)
	if report.Passed || c.remediator == nil || !(c.always || (req != nil && req.Remediate)) {
		return
	}

	original, _ := Get[string](context, ParamArtifact)
	fixed, fixedReport, err := c.remediator.Remediate(context.GetContext(), original, c.profile)
	if err != nil {
		c.Fail(context, err)
		return
	}
	context.AddTempFile(original)
	context.Add(ParamArtifact, fixed)
	context.Add(ParamRemediated, true)
	c.Succeed(context, fixedReport)
}
