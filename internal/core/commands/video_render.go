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
	"fmt"

	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/cor"
	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/model"
	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/services"
)

// VideoRender encodes the plan and hands the result to the artifact store as
// pending.
type VideoRender struct {
	cor.BaseCommand
	renderer VideoRenderer
	store    services.ArtifactStore
}

// NewVideoRender creates the render stage. The audio path and duration are
// read from ParamRequest and ParamDuration.
//
// Inputs: ParamPlan (*model.TransitionPlan)
// Outputs: ParamArtifact (string path of the pending artifact)
func NewVideoRender(name string, renderer VideoRenderer, store services.ArtifactStore) *VideoRender {
	return &VideoRender{
		BaseCommand: *cor.NewBaseCommandWithParams(name, ParamPlan, ParamArtifact),
		renderer:    renderer,
		store:       store,
	}
}

// Execute renders the plan and stores the output as pending.
func (c *VideoRender) Execute(context cor.Context) {
	plan, _ := Get[*model.TransitionPlan](context, c.GetInputParam())
	req, _ := Get[*model.RenderRequest](context, ParamRequest)
	total, _ := Get[float64](context, ParamDuration)

	out, err := c.renderer.Render(context.GetContext(), plan, req.AudioPath, total)
	if err != nil {
		c.Fail(context, err)
		return
	}
	pending, err := c.store.Pending(context.GetContext(), plan.RunID, out)
	if err != nil {
		c.Fail(context, fmt.Errorf("storing pending artifact: %w", err))
		return
	}
	c.Succeed(context, pending)
}
