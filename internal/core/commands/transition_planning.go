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
	"errors"

	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/cor"
	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/model"
	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/render"
)

// TransitionPlanning turns slots and assets into a render plan.
type TransitionPlanning struct {
	cor.BaseCommand
	builder render.Builder
}

// NewTransitionPlanning creates the planning stage. Slots and the run ID are
// read from ParamSlots and ParamRequest.
//
// Inputs: ParamAssets ([]model.GeneratedAsset)
// Outputs: ParamPlan (*model.TransitionPlan)
func NewTransitionPlanning(name string, builder render.Builder) *TransitionPlanning {
	return &TransitionPlanning{
		BaseCommand: *cor.NewBaseCommandWithParams(name, ParamAssets, ParamPlan),
		builder:     builder,
	}
}

// Execute builds the plan.
func (c *TransitionPlanning) Execute(context cor.Context) {
	assets, _ := Get[[]model.GeneratedAsset](context, c.GetInputParam())
	slots, _ := Get[[]model.TimelineSlot](context, ParamSlots)
	req, ok := Get[*model.RenderRequest](context, ParamRequest)
	if !ok {
		c.Fail(context, errors.New("transition planning requires a render request"))
		return
	}
	plan, err := c.builder.Build(req.RunID, slots, assets)
	if err != nil {
		c.Fail(context, err)
		return
	}
	c.Succeed(context, plan)
}
