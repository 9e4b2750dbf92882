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
	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/timeline"
)

// ErrEmptyTimeline is recorded when the narration has no length.
var ErrEmptyTimeline = errors.New("nothing to render: timeline is empty")

// TimelineAllocation maps the request's segments onto the narration.
type TimelineAllocation struct {
	cor.BaseCommand
	allocator timeline.Allocator
}

// NewTimelineAllocation creates the allocation stage. The segments are read
// from ParamRequest.
//
// Inputs: ParamDuration (float64 seconds)
// Outputs: ParamSlots ([]model.TimelineSlot)
func NewTimelineAllocation(name string, allocator timeline.Allocator) *TimelineAllocation {
	return &TimelineAllocation{
		BaseCommand: *cor.NewBaseCommandWithParams(name, ParamDuration, ParamSlots),
		allocator:   allocator,
	}
}

// Execute allocates the slots. An empty allocation fails with ErrEmptyTimeline.
func (c *TimelineAllocation) Execute(context cor.Context) {
	total, _ := Get[float64](context, c.GetInputParam())
	req, ok := Get[*model.RenderRequest](context, ParamRequest)
	if !ok {
		c.Fail(context, errors.New("timeline allocation requires a render request"))
		return
	}
	slots := c.allocator.Allocate(req.Segments, total)
	if len(slots) == 0 {
		c.Fail(context, ErrEmptyTimeline)
		return
	}
	c.Succeed(context, slots)
}
